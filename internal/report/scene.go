package report

import (
	"fmt"
	"image"
	"image/color"
	stddraw "image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

var (
	cubeColor  = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	boneColor  = color.RGBA{R: 90, G: 90, B: 90, A: 255}
	palmColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	jointColor = color.RGBA{R: 255, G: 127, B: 14, A: 255}
	labelColor = color.RGBA{R: 20, G: 20, B: 20, A: 255}
)

// projector maps world millimetres onto frame pixels with a fixed
// orthographic camera.
type projector struct {
	center        motion.Vec3
	half          float64
	right, up     motion.Vec3
	scale         float64
	width, height float64
}

func newProjector(opts Options) projector {
	el := opts.ElevationDeg * math.Pi / 180
	az := opts.AzimuthDeg * math.Pi / 180
	mid := (opts.WorldMin + opts.WorldMax) / 2
	w, h := float64(opts.Width), float64(opts.Height)
	return projector{
		center: motion.Vec3{X: mid, Y: mid, Z: mid},
		half:   (opts.WorldMax - opts.WorldMin) / 2,
		right:  motion.Vec3{X: -math.Sin(az), Y: math.Cos(az)},
		up:     motion.Vec3{X: -math.Sin(el) * math.Cos(az), Y: -math.Sin(el) * math.Sin(az), Z: math.Cos(el)},
		// The cube diagonal spans 2*sqrt(3) normalised units.
		scale:  0.95 * math.Min(w, h) / (2 * math.Sqrt(3)),
		width:  w,
		height: h,
	}
}

func dot(a, b motion.Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func (p projector) project(v motion.Vec3) vg.Point {
	n := motion.Vec3{
		X: (v.X - p.center.X) / p.half,
		Y: (v.Y - p.center.Y) / p.half,
		Z: (v.Z - p.center.Z) / p.half,
	}
	return vg.Point{
		X: vg.Length(p.width/2 + dot(n, p.right)*p.scale),
		Y: vg.Length(p.height/2 + dot(n, p.up)*p.scale),
	}
}

// cubeEdges lists the 12 edges of the unit cube by corner bitmask.
var cubeEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

func (p projector) corner(mask int, lo, hi float64) motion.Vec3 {
	pick := func(bit int) float64 {
		if mask&bit != 0 {
			return hi
		}
		return lo
	}
	return motion.Vec3{X: pick(1), Y: pick(2), Z: pick(4)}
}

// RenderFrame draws one video frame: the world cube, every row's joints
// connected to its palm, and an elapsed-time caption. elapsed is seconds
// since the trial start.
func RenderFrame(rows []motion.Row, elapsed float64, opts Options) *image.RGBA {
	// One point per pixel.
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(opts.Width), vg.Length(opts.Height)),
		vgimg.UseDPI(int(vg.Inch)),
	)
	proj := newProjector(opts)

	c.SetLineWidth(1)
	c.SetColor(cubeColor)
	for _, e := range cubeEdges {
		var path vg.Path
		path.Move(proj.project(proj.corner(e[0], opts.WorldMin, opts.WorldMax)))
		path.Line(proj.project(proj.corner(e[1], opts.WorldMin, opts.WorldMax)))
		c.Stroke(path)
	}

	for _, r := range rows {
		palm := proj.project(opts.Palm.At(r.Values))
		for _, j := range opts.Joints {
			if j.Ref == opts.Palm {
				continue
			}
			pt := proj.project(j.Ref.At(r.Values))
			c.SetLineWidth(1.5)
			c.SetColor(boneColor)
			var bone vg.Path
			bone.Move(palm)
			bone.Line(pt)
			c.Stroke(bone)
			fillDot(c, pt, 3, jointColor)
		}
		fillDot(c, palm, 6, palmColor)
	}

	img := toRGBA(c.Image())
	caption(img, fmt.Sprintf("t = %.3f s", elapsed))
	return img
}

func fillDot(c *vgimg.Canvas, at vg.Point, r vg.Length, col color.Color) {
	var path vg.Path
	path.Move(vg.Point{X: at.X + r, Y: at.Y})
	path.Arc(at, r, 0, 2*math.Pi)
	path.Close()
	c.SetColor(col)
	c.Fill(path)
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == 4*rgba.Rect.Dx() && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	stddraw.Draw(rgba, rgba.Bounds(), img, b.Min, stddraw.Src)
	return rgba
}

// caption writes s in the top-left corner with the fixed 7x13 face.
func caption(img *image.RGBA, s string) {
	face := basicfont.Face7x13
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(8), Y: fixed.I(8 + face.Ascent)},
	}
	d.DrawString(s)
}
