package report

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"

	xfont "golang.org/x/image/font"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

// Axis and marker labels.
const (
	LabelDistance     = "Distance (mm)"
	LabelSpeed        = "Speed (mm/s)"
	LabelAcceleration = "Acceleration (mm/s²)"
	LabelTime         = "Time (s)"
	LabelTone         = "Auditory tone"
)

// plotDPI matches the raster density of the desktop report.
const plotDPI = 100

var (
	traceColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	toneColor  = color.RGBA{R: 214, G: 39, B: 40, A: 255}
)

type panel struct {
	label string
	value func(motion.Frame) float64
}

var panels = []panel{
	{LabelDistance, func(f motion.Frame) float64 { return f.Distance }},
	{LabelSpeed, func(f motion.Frame) float64 { return f.Velocity }},
	{LabelAcceleration, func(f motion.Frame) float64 { return f.Acceleration }},
}

// RenderPlot draws the three vertically stacked kinematics panels of one
// trial as a PNG. Time is measured from the trial start and the tone is
// marked on every panel.
func RenderPlot(w io.Writer, trial motion.Trial, frames motion.Frames, opts Options) error {
	plots := make([][]*plot.Plot, len(panels))
	for i, pn := range panels {
		p, err := panelPlot(trial, frames, pn)
		if err != nil {
			return fmt.Errorf("%s panel: %w", pn.label, err)
		}
		plots[i] = []*plot.Plot{p}
	}

	img := vgimg.NewWith(vgimg.UseWH(opts.PlotWidth, opts.PlotHeight), vgimg.UseDPI(plotDPI))
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      len(panels),
		Cols:      1,
		PadTop:    vg.Points(56),
		PadBottom: vg.Points(12),
		PadLeft:   vg.Points(12),
		PadRight:  vg.Points(24),
		PadY:      vg.Points(24),
	}
	canvases := plot.Align(plots, tiles, dc)
	for i := range plots {
		plots[i][0].Draw(canvases[i][0])
	}
	drawTitle(dc, trial.Name, vg.Points(24))

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func panelPlot(trial motion.Trial, frames motion.Frames, pn panel) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = LabelTime
	p.Y.Label.Text = pn.label
	p.X.Tick.Marker = secondTicks{}

	pts := make(plotter.XYs, len(frames))
	for i, f := range frames {
		pts[i].X = f.Timestamp - trial.Start
		pts[i].Y = pn.value(f)
	}
	ymin, ymax := valueRange(pts)

	if len(pts) > 0 {
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = traceColor
		line.Width = vg.Points(1.5)
		p.Add(line)
	}

	tone := trial.Tone - trial.Start
	marker, err := plotter.NewLine(plotter.XYs{{X: tone, Y: ymin}, {X: tone, Y: ymax}})
	if err != nil {
		return nil, err
	}
	marker.Color = toneColor
	marker.Width = vg.Points(1.5)
	marker.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}
	lbl, err := toneLabel(tone, ymax)
	if err != nil {
		return nil, err
	}
	p.Add(marker, lbl)

	p.X.Min = math.Min(0, tone)
	p.X.Max = math.Max(trial.Duration(), tone)
	if p.X.Max <= p.X.Min {
		p.X.Max = p.X.Min + 1
	}
	p.Y.Min, p.Y.Max = ymin, ymax
	return p, nil
}

// toneLabel annotates the top of the tone marker at x.
func toneLabel(x, ymax float64) (*plotter.Labels, error) {
	lbl, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: x, Y: ymax}},
		Labels: []string{LabelTone},
	})
	if err != nil {
		return nil, err
	}
	lbl.TextStyle[0].Color = toneColor
	lbl.TextStyle[0].XAlign = text.XLeft
	lbl.TextStyle[0].YAlign = text.YTop
	lbl.Offset = vg.Point{X: vg.Points(4), Y: vg.Points(-2)}
	return lbl, nil
}

// valueRange returns a non-degenerate y extent for pts.
func valueRange(pts plotter.XYs) (float64, float64) {
	if len(pts) == 0 {
		return 0, 1
	}
	ys := make([]float64, len(pts))
	for i, pt := range pts {
		ys[i] = pt.Y
	}
	lo, hi := floats.Min(ys), floats.Max(ys)
	if hi == lo {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}

// maxTicks caps tick density on very long trials.
const maxTicks = 60

// secondTicks places a labelled tick on every whole second.
type secondTicks struct{}

func (secondTicks) Ticks(min, max float64) []plot.Tick {
	step := 1.0
	if span := max - min; span > maxTicks {
		step = math.Ceil(span / maxTicks)
	}
	var ticks []plot.Tick
	for s := math.Ceil(min/step) * step; s <= max; s += step {
		ticks = append(ticks, plot.Tick{Value: s, Label: strconv.FormatFloat(s, 'f', -1, 64)})
	}
	return ticks
}

func titleStyle(size vg.Length) text.Style {
	fnt := font.From(plot.DefaultFont, size)
	fnt.Weight = xfont.WeightBold
	return text.Style{
		Color:   color.Black,
		Font:    fnt,
		XAlign:  text.XCenter,
		YAlign:  text.YTop,
		Handler: plot.DefaultTextHandler,
	}
}

func drawTitle(dc draw.Canvas, title string, size vg.Length) {
	pt := vg.Point{X: dc.Center().X, Y: dc.Max.Y - vg.Points(12)}
	dc.FillText(titleStyle(size), pt, title)
}

// RenderPlaceholder writes a titled PNG stating that the trial window held
// no tracking data.
func RenderPlaceholder(w io.Writer, trial motion.Trial, opts Options) error {
	img := vgimg.NewWith(vgimg.UseWH(opts.PlotWidth, opts.PlotHeight), vgimg.UseDPI(plotDPI))
	dc := draw.New(img)
	drawTitle(dc, trial.Name, vg.Points(24))

	msg := titleStyle(vg.Points(18))
	msg.Font.Weight = xfont.WeightNormal
	msg.YAlign = text.YCenter
	dc.FillText(msg, dc.Center(), motion.ErrEmptyTrialWindow.Error())

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}
