package features

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

// SavitzkyGolay smooths a uniformly indexed signal by fitting a polynomial
// of Order to each Window-sample neighbourhood. The first and last
// Window/2 samples are taken from polynomials fitted to the first and last
// full windows.
type SavitzkyGolay struct {
	Window int
	Order  int

	// pinv maps a window of samples to polynomial coefficients, with the
	// window centre at x = 0.
	pinv *mat.Dense
}

// NewSavitzkyGolay validates the window and order and precomputes the
// least-squares projection.
func NewSavitzkyGolay(window, order int) (*SavitzkyGolay, error) {
	if order < 0 {
		return nil, fmt.Errorf("polyorder must be non-negative, got %d", order)
	}
	if window%2 != 1 || window < 1 {
		return nil, fmt.Errorf("window_length must be a positive odd integer, got %d", window)
	}
	if window < order+1 {
		return nil, fmt.Errorf("window_length %d must be at least polyorder+1 (%d)", window, order+1)
	}

	half := window / 2
	a := mat.NewDense(window, order+1, nil)
	for j := 0; j < window; j++ {
		x := float64(j - half)
		p := 1.0
		for k := 0; k <= order; k++ {
			a.Set(j, k, p)
			p *= x
		}
	}

	eye := mat.NewDense(window, window, nil)
	for j := 0; j < window; j++ {
		eye.Set(j, j, 1)
	}
	var pinv mat.Dense
	if err := pinv.Solve(a, eye); err != nil {
		return nil, fmt.Errorf("savitzky-golay projection: %w", err)
	}
	return &SavitzkyGolay{Window: window, Order: order, pinv: &pinv}, nil
}

// Coefficients returns the convolution weights applied at a window centre.
func (sg *SavitzkyGolay) Coefficients() []float64 {
	return mat.Row(nil, 0, sg.pinv)
}

// Smooth returns the filtered signal. A signal shorter than the window is
// returned unchanged together with motion.ErrInsufficientSmoothingWindow.
func (sg *SavitzkyGolay) Smooth(x []float64) ([]float64, error) {
	out := make([]float64, len(x))
	copy(out, x)
	n := len(x)
	if n < sg.Window {
		return out, fmt.Errorf("%d rows, window %d: %w", n, sg.Window, motion.ErrInsufficientSmoothingWindow)
	}

	half := sg.Window / 2
	centre := sg.Coefficients()
	for i := half; i < n-half; i++ {
		var acc float64
		for k, c := range centre {
			acc += c * x[i-half+k]
		}
		out[i] = acc
	}

	// edges: evaluate the polynomial fitted to the first / last window
	head := sg.fit(x[:sg.Window])
	tail := sg.fit(x[n-sg.Window:])
	for j := 0; j < half; j++ {
		out[j] = polyval(head, float64(j-half))
		out[n-half+j] = polyval(tail, float64(j+1))
	}
	return out, nil
}

func (sg *SavitzkyGolay) fit(window []float64) []float64 {
	var coef mat.VecDense
	coef.MulVec(sg.pinv, mat.NewVecDense(len(window), window))
	return coef.RawVector().Data
}

func polyval(coef []float64, x float64) float64 {
	var y float64
	for k := len(coef) - 1; k >= 0; k-- {
		y = y*x + coef[k]
	}
	return y
}
