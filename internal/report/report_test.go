package report

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/reachgrasp.report/internal/fsutil"
	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.PlotWidth = 4 * vg.Inch
	opts.PlotHeight = 5 * vg.Inch
	opts.Width = 64
	opts.Height = 48
	opts.Workers = 3
	return opts
}

func testFrames(start float64, n int) motion.Frames {
	frames := make(motion.Frames, n)
	for i := range frames {
		ts := start + float64(i)*0.05
		frames[i] = motion.Frame{
			Row: motion.Row{
				Timestamp: ts,
				TrackID:   "1",
				HandType:  motion.HandRight,
				Values:    []float64{float64(i), -50, 20},
				Original:  i%2 == 0,
			},
			Distance:     float64(i) * 2,
			Velocity:     math.Sin(float64(i)),
			Acceleration: math.Cos(float64(i)),
		}
	}
	return frames
}

func TestRenderPlot(t *testing.T) {
	opts := testOptions()
	trial := motion.Trial{Name: "Reach and Grasp 1", Start: 100, Stop: 102, Tone: 100.5, IsSuccess: true}

	var buf bytes.Buffer
	require.NoError(t, RenderPlot(&buf, trial, testFrames(100, 40), opts))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 400, img.Bounds().Dx())
	assert.Equal(t, 500, img.Bounds().Dy())
}

func TestToneLabel(t *testing.T) {
	lbl, err := toneLabel(0.5, 42)
	require.NoError(t, err)
	require.Len(t, lbl.Labels, 1)
	assert.Equal(t, LabelTone, lbl.Labels[0])
	assert.Equal(t, plotter.XY{X: 0.5, Y: 42}, lbl.XYs[0])
	assert.Equal(t, toneColor, lbl.TextStyle[0].Color)
	assert.Equal(t, text.XLeft, lbl.TextStyle[0].XAlign)
	assert.Equal(t, text.YTop, lbl.TextStyle[0].YAlign)

	trial := motion.Trial{Name: "t", Start: 100, Stop: 102, Tone: 100.5}
	_, err = panelPlot(trial, testFrames(100, 40), panels[0])
	require.NoError(t, err)
}

func TestRenderPlot_NoFrames(t *testing.T) {
	var buf bytes.Buffer
	trial := motion.Trial{Name: "empty", Start: 0, Stop: 1, Tone: 0.5}
	require.NoError(t, RenderPlot(&buf, trial, nil, testOptions()))
	_, err := png.Decode(&buf)
	assert.NoError(t, err)
}

func TestRenderPlaceholder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPlaceholder(&buf, motion.Trial{Name: "Reach and Grasp 9"}, testOptions()))
	_, err := png.Decode(&buf)
	assert.NoError(t, err)
}

func TestSecondTicks(t *testing.T) {
	ticks := secondTicks{}.Ticks(0, 3.5)
	var values []float64
	for _, tk := range ticks {
		values = append(values, tk.Value)
	}
	assert.Equal(t, []float64{0, 1, 2, 3}, values)
	assert.Equal(t, "2", ticks[2].Label)

	long := secondTicks{}.Ticks(0, 600)
	assert.LessOrEqual(t, len(long), maxTicks+1)
}

func TestProjectorCentre(t *testing.T) {
	opts := testOptions()
	proj := newProjector(opts)
	mid := (opts.WorldMin + opts.WorldMax) / 2
	pt := proj.project(motion.Vec3{X: mid, Y: mid, Z: mid})
	assert.InDelta(t, float64(opts.Width)/2, float64(pt.X), 1e-9)
	assert.InDelta(t, float64(opts.Height)/2, float64(pt.Y), 1e-9)

	// Every cube corner lands inside the frame.
	for mask := 0; mask < 8; mask++ {
		c := proj.project(proj.corner(mask, opts.WorldMin, opts.WorldMax))
		assert.True(t, c.X >= 0 && float64(c.X) <= float64(opts.Width), "corner %d x=%v", mask, c.X)
		assert.True(t, c.Y >= 0 && float64(c.Y) <= float64(opts.Height), "corner %d y=%v", mask, c.Y)
	}
}

func TestRenderFrame(t *testing.T) {
	opts := testOptions()
	opts.Joints = []motion.Joint{
		{Name: "palm_position", Ref: motion.PointRef{X: 0, Y: 1, Z: 2}},
		{Name: "thumb_tip", Ref: motion.PointRef{X: 3, Y: 4, Z: 5}},
	}
	rows := []motion.Row{{Values: []float64{0, 0, 0, 40, 40, 40}}}

	img := RenderFrame(rows, 0.5, opts)
	require.Equal(t, image.Rect(0, 0, opts.Width, opts.Height), img.Bounds())
	assert.Equal(t, 4*opts.Width, img.Stride)

	// Same input renders identical pixels.
	again := RenderFrame(rows, 0.5, opts)
	assert.True(t, bytes.Equal(img.Pix, again.Pix))

	blank := RenderFrame(nil, 0.5, opts)
	assert.False(t, bytes.Equal(img.Pix, blank.Pix))
}

// captureEncoder keeps every frame it is handed.
type captureEncoder struct {
	frames []*image.RGBA
	closed bool
}

func (c *captureEncoder) Start(ctx context.Context, spec VideoSpec) (FrameSink, error) {
	return c, nil
}

func (c *captureEncoder) WriteFrame(img *image.RGBA) error {
	c.frames = append(c.frames, img)
	return nil
}

func (c *captureEncoder) Close() error {
	c.closed = true
	return nil
}

func TestRenderVideo_Order(t *testing.T) {
	opts := testOptions()
	grid := []float64{10, 10.25, 10.5, 10.75, 11, 11.25, 11.5, 11.75, 12}
	buckets := make([][]motion.Row, len(grid))
	for i := range buckets {
		buckets[i] = []motion.Row{{Timestamp: grid[i], Values: []float64{float64(i * 20), 0, 0}}}
	}

	enc := &captureEncoder{}
	spec := VideoSpec{Path: "out.mp4", Width: opts.Width, Height: opts.Height, Framerate: 4}
	require.NoError(t, RenderVideo(context.Background(), enc, spec, 10, grid, buckets, opts))

	require.Len(t, enc.frames, len(grid))
	assert.True(t, enc.closed)
	for i := range grid {
		want := RenderFrame(buckets[i], grid[i]-10, opts)
		assert.True(t, bytes.Equal(want.Pix, enc.frames[i].Pix), "frame %d out of order", i)
	}
}

func TestRenderVideo_Errors(t *testing.T) {
	opts := testOptions()
	enc := &captureEncoder{}
	spec := VideoSpec{Width: opts.Width, Height: opts.Height, Framerate: 24}

	err := RenderVideo(context.Background(), enc, spec, 0, []float64{0, 1}, nil, opts)
	assert.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = RenderVideo(ctx, enc, spec, 0, []float64{0}, [][]motion.Row{nil}, opts)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, enc.closed)
}

func TestMemoryEncoder(t *testing.T) {
	fs := fsutil.NewMemoryFileSystem()
	enc := NewMemoryEncoder(fs)
	opts := testOptions()
	spec := VideoSpec{Path: "/out/trial.mp4", Width: opts.Width, Height: opts.Height, Framerate: 24}

	grid := []float64{0, 1.0 / 24, 2.0 / 24}
	require.NoError(t, RenderVideo(context.Background(), enc, spec, 0, grid, make([][]motion.Row, 3), opts))
	assert.Equal(t, 3, enc.Frames("/out/trial.mp4"))
	assert.True(t, fs.Exists("/out/trial.mp4"))

	sink, err := enc.Start(context.Background(), spec)
	require.NoError(t, err)
	assert.Error(t, sink.WriteFrame(image.NewRGBA(image.Rect(0, 0, 2, 2))))
}

func TestFFmpegArgs(t *testing.T) {
	enc := &FFmpegEncoder{}
	args := enc.Args(VideoSpec{Path: "/tmp/a.mp4", Width: 500, Height: 400, Framerate: 24})
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-f rawvideo -pix_fmt rgba -s 500x400 -r 24 -i -")
	assert.Contains(t, joined, "-c:v libx264 -pix_fmt yuv420p")
	assert.Equal(t, "/tmp/a.mp4", args[len(args)-1])

	enc.Codec = "mpeg4"
	assert.Contains(t, strings.Join(enc.Args(VideoSpec{Path: "x.mp4"}), " "), "-c:v mpeg4")
}

func TestFFmpegEncoder_MissingBinary(t *testing.T) {
	enc := &FFmpegEncoder{Path: "/nonexistent/ffmpeg-binary"}
	_, err := enc.Start(context.Background(), VideoSpec{Path: "x.mp4", Width: 16, Height: 16, Framerate: 24})
	assert.Error(t, err)
}

// fakeFFmpeg writes a shell script standing in for ffmpeg. $out holds
// the output path, which is always the last argument.
func fakeFFmpeg(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script encoder")
	}
	script := filepath.Join(t.TempDir(), "ffmpeg")
	src := "#!/bin/sh\nfor a; do out=$a; done\n" + body + "\n"
	require.NoError(t, os.WriteFile(script, []byte(src), 0o755))
	return script
}

func TestFFmpegEncoder_Output(t *testing.T) {
	opts := testOptions()
	grid := []float64{0, 1.0 / 24, 2.0 / 24}
	buckets := make([][]motion.Row, len(grid))

	tests := []struct {
		name    string
		body    string
		cancel  bool
		wantErr string
	}{
		{name: "success", body: "cat >/dev/null\necho encoded > \"$out\""},
		{name: "encoder exits non-zero", body: "echo partial > \"$out\"\necho boom >&2\nexit 1", wantErr: "boom"},
		{name: "encoder reads then fails", body: "cat >/dev/null\necho partial > \"$out\"\necho boom >&2\nexit 1", wantErr: "boom"},
		{name: "cancelled", body: "cat >/dev/null\necho partial > \"$out\"", cancel: true, wantErr: "cancel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := &FFmpegEncoder{Path: fakeFFmpeg(t, tt.body)}
			dir := t.TempDir()
			path := filepath.Join(dir, "trial.mp4")
			spec := VideoSpec{Path: path, Width: opts.Width, Height: opts.Height, Framerate: 24}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.cancel {
				cancel()
			}
			err := RenderVideo(ctx, enc, spec, 0, grid, buckets, opts)

			entries, rerr := os.ReadDir(dir)
			require.NoError(t, rerr)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				_, serr := os.Stat(path)
				assert.True(t, os.IsNotExist(serr), "failed encode left %s behind", path)
				assert.Empty(t, entries, "partial output left in %s", dir)
				return
			}
			require.NoError(t, err)
			data, rerr := os.ReadFile(path)
			require.NoError(t, rerr)
			assert.Equal(t, "encoded\n", string(data))
			require.Len(t, entries, 1)
			assert.Equal(t, "trial.mp4", entries[0].Name())
		})
	}
}

func TestKinematicsWriter(t *testing.T) {
	schema := motion.MustSchema("palm_position_x", "palm_position_y", "palm_position_z")
	frames := testFrames(5, 2)

	var buf bytes.Buffer
	require.NoError(t, NewKinematicsWriter(&buf, schema).Write(frames))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,hand_id,hand_type,palm_position_x,palm_position_y,palm_position_z,original,distance,velocity,acceleration", lines[0])
	assert.Equal(t, "5,1,right,0,-50,20,true,0,0,1", lines[1])
}

func TestRenderChart(t *testing.T) {
	var buf bytes.Buffer
	trial := motion.Trial{Name: "Reach and Grasp 1", Start: 100, Stop: 102, Tone: 101}
	require.NoError(t, RenderChart(&buf, trial, testFrames(100, 5)))

	html := buf.String()
	assert.Contains(t, html, LabelDistance)
	assert.Contains(t, html, LabelSpeed)
	assert.Contains(t, html, "Reach and Grasp 1")
}
