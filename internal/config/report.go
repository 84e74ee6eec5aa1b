package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/reachgrasp.report/internal/motion"
	"github.com/banshee-data/reachgrasp.report/internal/motion/features"
	"github.com/banshee-data/reachgrasp.report/internal/report"
)

// ReportConfig holds the processing and rendering parameters of a report
// run. Every field is optional in the JSON file; the Get* accessors supply
// the documented defaults for anything left unset.
type ReportConfig struct {
	// Clock alignment
	DeviceTimeScale *float64 `json:"device_time_scale,omitempty"` // device units -> seconds

	// Feature derivation
	SmoothingWindowLength *int     `json:"smoothing_window_length,omitempty"`
	SmoothingPolyOrder    *int     `json:"smoothing_polyorder,omitempty"`
	PositionChannels      []string `json:"position_channels,omitempty"`

	// Video
	Framerate        *int     `json:"framerate,omitempty"`
	WorldMin         *float64 `json:"world_min,omitempty"` // mm
	WorldMax         *float64 `json:"world_max,omitempty"` // mm
	ViewElevationDeg *float64 `json:"view_elevation_deg,omitempty"`
	ViewAzimuthDeg   *float64 `json:"view_azimuth_deg,omitempty"`
	FrameWidth       *int     `json:"frame_width,omitempty"`
	FrameHeight      *int     `json:"frame_height,omitempty"`
	RenderWorkers    *int     `json:"render_workers,omitempty"`
	FFmpegPath       *string  `json:"ffmpeg_path,omitempty"`
	VideoCodec       *string  `json:"video_codec,omitempty"`

	// Static plot
	PlotWidthIn  *float64 `json:"plot_width_in,omitempty"`
	PlotHeightIn *float64 `json:"plot_height_in,omitempty"`

	// Optional artifacts
	WriteHTMLChart     *bool `json:"write_html_chart,omitempty"`
	WriteKinematicsCSV *bool `json:"write_kinematics_csv,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// DefaultPositionChannels are the palm position columns of a Leap Motion
// recording.
var DefaultPositionChannels = []string{"palm_position_x", "palm_position_y", "palm_position_z"}

// DefaultReportConfig returns a config with every field populated.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		DeviceTimeScale:       ptrFloat64(1e-6),
		SmoothingWindowLength: ptrInt(33),
		SmoothingPolyOrder:    ptrInt(3),
		PositionChannels:      append([]string(nil), DefaultPositionChannels...),
		Framerate:             ptrInt(24),
		WorldMin:              ptrFloat64(-300),
		WorldMax:              ptrFloat64(150),
		ViewElevationDeg:      ptrFloat64(125),
		ViewAzimuthDeg:        ptrFloat64(-140),
		FrameWidth:            ptrInt(500),
		FrameHeight:           ptrInt(400),
		RenderWorkers:         ptrInt(4),
		FFmpegPath:            ptrString("ffmpeg"),
		VideoCodec:            ptrString("libx264"),
		PlotWidthIn:           ptrFloat64(15),
		PlotHeightIn:          ptrFloat64(20),
		WriteHTMLChart:        ptrBool(false),
		WriteKinematicsCSV:    ptrBool(true),
	}
}

// LoadReportConfig loads a ReportConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
// Fields omitted from the JSON file fall back to defaults.
func LoadReportConfig(path string) (*ReportConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &ReportConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *ReportConfig) Validate() error {
	if s := c.GetDeviceTimeScale(); !(s > 0) {
		return fmt.Errorf("device_time_scale must be positive, got %g", s)
	}

	window, order := c.GetSmoothingWindowLength(), c.GetSmoothingPolyOrder()
	if order < 0 {
		return fmt.Errorf("smoothing_polyorder must be non-negative, got %d", order)
	}
	if window%2 != 1 || window < order+1 {
		return fmt.Errorf("smoothing_window_length must be odd and >= polyorder+1, got %d (polyorder %d)", window, order)
	}

	if ch := c.GetPositionChannels(); len(ch) != 3 {
		return fmt.Errorf("position_channels must name exactly 3 channels, got %d", len(ch))
	}

	if fps := c.GetFramerate(); fps < 1 || fps > 240 {
		return fmt.Errorf("framerate must be between 1 and 240, got %d", fps)
	}
	if c.GetWorldMin() >= c.GetWorldMax() {
		return fmt.Errorf("world_min (%g) must be less than world_max (%g)", c.GetWorldMin(), c.GetWorldMax())
	}
	for name, v := range map[string]int{"frame_width": c.GetFrameWidth(), "frame_height": c.GetFrameHeight()} {
		if v < 16 || v > 4096 || v%2 != 0 {
			return fmt.Errorf("%s must be even and between 16 and 4096, got %d", name, v)
		}
	}
	if w := c.GetRenderWorkers(); w < 1 || w > 64 {
		return fmt.Errorf("render_workers must be between 1 and 64, got %d", w)
	}
	if c.GetFFmpegPath() == "" {
		return fmt.Errorf("ffmpeg_path must not be empty")
	}
	if c.GetVideoCodec() == "" {
		return fmt.Errorf("video_codec must not be empty")
	}
	if c.GetPlotWidthIn() <= 0 || c.GetPlotHeightIn() <= 0 {
		return fmt.Errorf("plot size must be positive, got %gx%g", c.GetPlotWidthIn(), c.GetPlotHeightIn())
	}
	return nil
}

// GetDeviceTimeScale returns the device_time_scale value or the default.
func (c *ReportConfig) GetDeviceTimeScale() float64 {
	if c.DeviceTimeScale == nil {
		return 1e-6 // microseconds
	}
	return *c.DeviceTimeScale
}

// GetSmoothingWindowLength returns the smoothing_window_length value or the default.
func (c *ReportConfig) GetSmoothingWindowLength() int {
	if c.SmoothingWindowLength == nil {
		return 33
	}
	return *c.SmoothingWindowLength
}

// GetSmoothingPolyOrder returns the smoothing_polyorder value or the default.
func (c *ReportConfig) GetSmoothingPolyOrder() int {
	if c.SmoothingPolyOrder == nil {
		return 3
	}
	return *c.SmoothingPolyOrder
}

// GetPositionChannels returns the position_channels value or the default.
func (c *ReportConfig) GetPositionChannels() []string {
	if len(c.PositionChannels) == 0 {
		return DefaultPositionChannels
	}
	return c.PositionChannels
}

// GetFramerate returns the framerate value or the default.
func (c *ReportConfig) GetFramerate() int {
	if c.Framerate == nil {
		return 24
	}
	return *c.Framerate
}

// GetWorldMin returns the world_min value or the default.
func (c *ReportConfig) GetWorldMin() float64 {
	if c.WorldMin == nil {
		return -300
	}
	return *c.WorldMin
}

// GetWorldMax returns the world_max value or the default.
func (c *ReportConfig) GetWorldMax() float64 {
	if c.WorldMax == nil {
		return 150
	}
	return *c.WorldMax
}

// GetViewElevationDeg returns the view_elevation_deg value or the default.
func (c *ReportConfig) GetViewElevationDeg() float64 {
	if c.ViewElevationDeg == nil {
		return 125
	}
	return *c.ViewElevationDeg
}

// GetViewAzimuthDeg returns the view_azimuth_deg value or the default.
func (c *ReportConfig) GetViewAzimuthDeg() float64 {
	if c.ViewAzimuthDeg == nil {
		return -140
	}
	return *c.ViewAzimuthDeg
}

// GetFrameWidth returns the frame_width value or the default.
func (c *ReportConfig) GetFrameWidth() int {
	if c.FrameWidth == nil {
		return 500
	}
	return *c.FrameWidth
}

// GetFrameHeight returns the frame_height value or the default.
func (c *ReportConfig) GetFrameHeight() int {
	if c.FrameHeight == nil {
		return 400
	}
	return *c.FrameHeight
}

// GetRenderWorkers returns the render_workers value or the default.
func (c *ReportConfig) GetRenderWorkers() int {
	if c.RenderWorkers == nil {
		return 4
	}
	return *c.RenderWorkers
}

// GetFFmpegPath returns the ffmpeg_path value or the default.
func (c *ReportConfig) GetFFmpegPath() string {
	if c.FFmpegPath == nil {
		return "ffmpeg"
	}
	return *c.FFmpegPath
}

// GetVideoCodec returns the video_codec value or the default.
func (c *ReportConfig) GetVideoCodec() string {
	if c.VideoCodec == nil {
		return "libx264"
	}
	return *c.VideoCodec
}

// GetPlotWidthIn returns the plot_width_in value or the default.
func (c *ReportConfig) GetPlotWidthIn() float64 {
	if c.PlotWidthIn == nil {
		return 15
	}
	return *c.PlotWidthIn
}

// GetPlotHeightIn returns the plot_height_in value or the default.
func (c *ReportConfig) GetPlotHeightIn() float64 {
	if c.PlotHeightIn == nil {
		return 20
	}
	return *c.PlotHeightIn
}

// GetWriteHTMLChart returns the write_html_chart value or the default.
func (c *ReportConfig) GetWriteHTMLChart() bool {
	if c.WriteHTMLChart == nil {
		return false
	}
	return *c.WriteHTMLChart
}

// GetWriteKinematicsCSV returns the write_kinematics_csv value or the default.
func (c *ReportConfig) GetWriteKinematicsCSV() bool {
	if c.WriteKinematicsCSV == nil {
		return true
	}
	return *c.WriteKinematicsCSV
}

// FeatureOptions resolves the feature derivation options against a
// recording's schema.
func (c *ReportConfig) FeatureOptions(schema *motion.Schema) (features.Options, error) {
	ch := c.GetPositionChannels()
	if len(ch) != 3 {
		return features.Options{}, fmt.Errorf("position_channels must name exactly 3 channels, got %d", len(ch))
	}
	ref, err := schema.Point(ch[0], ch[1], ch[2])
	if err != nil {
		return features.Options{}, fmt.Errorf("position channels: %w", err)
	}
	return features.Options{
		WindowLength: c.GetSmoothingWindowLength(),
		PolyOrder:    c.GetSmoothingPolyOrder(),
		Position:     ref,
	}, nil
}

// RenderOptions resolves the rendering options against a recording's
// schema. Every channel triple in the schema is drawn as a joint.
func (c *ReportConfig) RenderOptions(schema *motion.Schema) (report.Options, error) {
	fopts, err := c.FeatureOptions(schema)
	if err != nil {
		return report.Options{}, err
	}
	return report.Options{
		Framerate:    c.GetFramerate(),
		WorldMin:     c.GetWorldMin(),
		WorldMax:     c.GetWorldMax(),
		ElevationDeg: c.GetViewElevationDeg(),
		AzimuthDeg:   c.GetViewAzimuthDeg(),
		Width:        c.GetFrameWidth(),
		Height:       c.GetFrameHeight(),
		Workers:      c.GetRenderWorkers(),
		PlotWidth:    vg.Length(c.GetPlotWidthIn()) * vg.Inch,
		PlotHeight:   vg.Length(c.GetPlotHeightIn()) * vg.Inch,
		Palm:         fopts.Position,
		Joints:       schema.Joints(),
	}, nil
}
