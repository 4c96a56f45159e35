package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/danmuck/plotctl/internal/sample"
	"github.com/danmuck/plotctl/internal/stream"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultBaud           = 115200
	DefaultWindow         = 255
	DefaultYMin           = 0
	DefaultYMax           = 1023
	DefaultQueueSize      = 64
	DefaultRenderInterval = "250ms"
	DefaultMaxLineBytes   = sample.DefaultMaxLineBytes
	// MinMaxLineBytes fits a handful of samples per line.
	MinMaxLineBytes = 16
)

var ErrInvalidConfig = errors.New("config: invalid plotter config")

// PlotterConfig is fixed at startup. YMin/YMax are carried to renderers
// untouched; the core never clamps samples to them.
type PlotterConfig struct {
	Transport      string   `toml:"transport"`
	Baud           int      `toml:"baud"`
	Window         int      `toml:"window"`
	YMin           float64  `toml:"y_min"`
	YMax           float64  `toml:"y_max"`
	QueueSize      int      `toml:"queue_size"`
	MaxLineBytes   int      `toml:"max_line_bytes"`
	OverflowPolicy string   `toml:"overflow_policy"`
	HTTPAddr       string   `toml:"http_addr"`
	HTTPToken      string   `toml:"http_token"`
	RenderInterval string   `toml:"render_interval"`
	CorsOrigins    []string `toml:"cors_origins"`
}

// Axis is the plotting range handed to renderers.
type Axis struct {
	XMax int     `json:"x_max"`
	YMin float64 `json:"y_min"`
	YMax float64 `json:"y_max"`
}

func Default() PlotterConfig {
	return PlotterConfig{
		Baud:           DefaultBaud,
		Window:         DefaultWindow,
		YMin:           DefaultYMin,
		YMax:           DefaultYMax,
		QueueSize:      DefaultQueueSize,
		MaxLineBytes:   DefaultMaxLineBytes,
		OverflowPolicy: string(stream.DropOldest),
		RenderInterval: DefaultRenderInterval,
	}
}

// LoadPlotterConfig reads a complete config file; missing numeric keys fall
// back to defaults before validation.
func LoadPlotterConfig(path string) (PlotterConfig, error) {
	cfg := Default()
	if err := loadToml(path, &cfg); err != nil {
		return PlotterConfig{}, err
	}
	if err := ValidatePlotterConfig(cfg); err != nil {
		return PlotterConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidatePlotterConfig(cfg PlotterConfig) error {
	if cfg.Baud <= 0 {
		return fmt.Errorf("%w: baud must be positive, got %d", ErrInvalidConfig, cfg.Baud)
	}
	if cfg.Window <= 0 {
		return fmt.Errorf("%w: window must be positive, got %d", ErrInvalidConfig, cfg.Window)
	}
	if cfg.YMin >= cfg.YMax {
		return fmt.Errorf("%w: y_min (%g) must be below y_max (%g)", ErrInvalidConfig, cfg.YMin, cfg.YMax)
	}
	if cfg.QueueSize <= 0 {
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, cfg.QueueSize)
	}
	if cfg.MaxLineBytes < MinMaxLineBytes {
		return fmt.Errorf("%w: max_line_bytes must be at least %d, got %d", ErrInvalidConfig, MinMaxLineBytes, cfg.MaxLineBytes)
	}
	if _, err := stream.ParseOverflowPolicy(cfg.OverflowPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := cfg.RenderEvery(); err != nil {
		return err
	}
	for _, origin := range cfg.CorsOrigins {
		if !validOrigin(origin) {
			return fmt.Errorf("%w: cors origin %q needs an http:// or https:// scheme or a '*'", ErrInvalidConfig, origin)
		}
	}
	return nil
}

// validOrigin accepts what gin-contrib/cors accepts without panicking.
func validOrigin(origin string) bool {
	origin = strings.TrimSpace(origin)
	if strings.Contains(origin, "*") {
		return true
	}
	return strings.HasPrefix(origin, "http://") || strings.HasPrefix(origin, "https://")
}

// RenderEvery parses render_interval; empty means every update.
func (c PlotterConfig) RenderEvery() (time.Duration, error) {
	raw := strings.TrimSpace(c.RenderInterval)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: render_interval %q", ErrInvalidConfig, c.RenderInterval)
	}
	return d, nil
}

// Stream derives the pipeline sizing. Call after validation.
func (c PlotterConfig) Stream() stream.Config {
	policy, _ := stream.ParseOverflowPolicy(c.OverflowPolicy)
	return stream.Config{
		Capacity:     c.Window,
		QueueSize:    c.QueueSize,
		Overflow:     policy,
		MaxLineBytes: c.MaxLineBytes,
	}
}

func (c PlotterConfig) Axis() Axis {
	return Axis{XMax: c.Window, YMin: c.YMin, YMax: c.YMax}
}
