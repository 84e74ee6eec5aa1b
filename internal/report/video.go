package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/reachgrasp.report/internal/fsutil"
	"github.com/banshee-data/reachgrasp.report/internal/monitoring"
	"github.com/banshee-data/reachgrasp.report/internal/motion"
)

// VideoSpec describes the stream an Encoder should produce.
type VideoSpec struct {
	Path      string
	Width     int
	Height    int
	Framerate int
}

// FrameSink accepts frames in presentation order. Close finalises the
// file; it must be called even after a WriteFrame error.
type FrameSink interface {
	WriteFrame(img *image.RGBA) error
	Close() error
}

// Encoder opens a FrameSink for one video file.
type Encoder interface {
	Start(ctx context.Context, spec VideoSpec) (FrameSink, error)
}

// FFmpegEncoder pipes raw RGBA frames into an ffmpeg process.
type FFmpegEncoder struct {
	Path  string // executable, "ffmpeg" when empty
	Codec string // "libx264" when empty
}

// Args returns the ffmpeg command line for spec.
func (e *FFmpegEncoder) Args(spec VideoSpec) []string {
	codec := e.Codec
	if codec == "" {
		codec = "libx264"
	}
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"-s", fmt.Sprintf("%dx%d", spec.Width, spec.Height),
		"-r", strconv.Itoa(spec.Framerate),
		"-i", "-",
		"-an",
		"-c:v", codec,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(spec.Framerate),
		"-movflags", "+faststart",
		spec.Path,
	}
}

// Start launches ffmpeg with stdin attached to the returned sink. ffmpeg
// writes to a hidden sibling of spec.Path which Close renames into place
// only when the encode succeeds.
func (e *FFmpegEncoder) Start(ctx context.Context, spec VideoSpec) (FrameSink, error) {
	bin := e.Path
	if bin == "" {
		bin = "ffmpeg"
	}
	stem := strings.TrimSuffix(filepath.Base(spec.Path), filepath.Ext(spec.Path))
	tmp, err := os.CreateTemp(filepath.Dir(spec.Path), "."+stem+".*.mp4")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg output: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	partial := spec
	partial.Path = tmpPath
	cmd := exec.CommandContext(ctx, bin, e.Args(partial)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	sink := &ffmpegSink{ctx: ctx, cmd: cmd, stdin: stdin, tmpPath: tmpPath, path: spec.Path, width: spec.Width, height: spec.Height}
	cmd.Stderr = &sink.stderr
	if err := cmd.Start(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	return sink, nil
}

type ffmpegSink struct {
	ctx     context.Context
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stderr  bytes.Buffer
	tmpPath string
	path    string
	width   int
	height  int
	failed  bool
	closed  bool
}

func (s *ffmpegSink) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != s.width || b.Dy() != s.height {
		s.failed = true
		return fmt.Errorf("frame size %dx%d, want %dx%d", b.Dx(), b.Dy(), s.width, s.height)
	}
	if _, err := s.stdin.Write(toRGBA(img).Pix); err != nil {
		s.failed = true
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Close waits for ffmpeg and publishes the file. Any write or encode
// failure discards the partial output instead.
func (s *ffmpegSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.finish()
	if err == nil {
		err = s.ctx.Err()
	}
	if err != nil || s.failed {
		os.Remove(s.tmpPath)
		return err
	}
	if err := os.Rename(s.tmpPath, s.path); err != nil {
		os.Remove(s.tmpPath)
		return fmt.Errorf("ffmpeg output: %w", err)
	}
	return nil
}

func (s *ffmpegSink) finish() error {
	closeErr := s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		if msg := strings.TrimSpace(s.stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg: %w", err)
	}
	return closeErr
}

// MemoryEncoder records frame counts instead of encoding. It writes a
// small text stub to FS so that artifact listings stay realistic.
type MemoryEncoder struct {
	FS fsutil.FileSystem

	mu     sync.Mutex
	frames map[string]int
}

// NewMemoryEncoder creates an encoder that writes stubs into fs.
func NewMemoryEncoder(fs fsutil.FileSystem) *MemoryEncoder {
	return &MemoryEncoder{FS: fs, frames: make(map[string]int)}
}

// Frames reports how many frames were written to path.
func (m *MemoryEncoder) Frames(path string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames[path]
}

func (m *MemoryEncoder) Start(ctx context.Context, spec VideoSpec) (FrameSink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memorySink{enc: m, spec: spec}, nil
}

type memorySink struct {
	enc   *MemoryEncoder
	spec  VideoSpec
	count int
}

func (s *memorySink) WriteFrame(img *image.RGBA) error {
	b := img.Bounds()
	if b.Dx() != s.spec.Width || b.Dy() != s.spec.Height {
		return fmt.Errorf("frame size %dx%d, want %dx%d", b.Dx(), b.Dy(), s.spec.Width, s.spec.Height)
	}
	s.count++
	return nil
}

func (s *memorySink) Close() error {
	s.enc.mu.Lock()
	s.enc.frames[s.spec.Path] = s.count
	s.enc.mu.Unlock()
	stub := fmt.Sprintf("frames=%d fps=%d size=%dx%d\n", s.count, s.spec.Framerate, s.spec.Width, s.spec.Height)
	return s.enc.FS.WriteFile(s.spec.Path, []byte(stub), 0o644)
}

// RenderVideo renders one frame per grid timestamp and streams them to
// enc in order. buckets[i] holds the rows drawn at grid[i]. Frames are
// rendered concurrently in batches bounded by opts.Workers.
func RenderVideo(ctx context.Context, enc Encoder, spec VideoSpec, start float64, grid []float64, buckets [][]motion.Row, opts Options) error {
	if len(grid) != len(buckets) {
		return fmt.Errorf("render video: %d grid points but %d buckets", len(grid), len(buckets))
	}
	sink, err := enc.Start(ctx, spec)
	if err != nil {
		return err
	}

	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	batch := make([]*image.RGBA, 2*workers)

	writeErr := func() error {
		for lo := 0; lo < len(grid); lo += len(batch) {
			hi := min(lo+len(batch), len(grid))
			g, gctx := errgroup.WithContext(ctx)
			g.SetLimit(workers)
			for i := lo; i < hi; i++ {
				g.Go(func() error {
					if err := gctx.Err(); err != nil {
						return err
					}
					batch[i-lo] = RenderFrame(buckets[i], grid[i]-start, opts)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			for _, img := range batch[:hi-lo] {
				if err := sink.WriteFrame(img); err != nil {
					return err
				}
			}
		}
		return nil
	}()

	closeErr := sink.Close()
	if writeErr != nil {
		return errors.Join(writeErr, closeErr)
	}
	if closeErr == nil {
		monitoring.Logf("report: wrote %d frames to %s", len(grid), spec.Path)
	}
	return closeErr
}
