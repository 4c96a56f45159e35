package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/plotctl/internal/config"
)

type fileConfig struct {
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

// loadRuntimeConfig overlays only the keys present in path onto defaults.
func loadRuntimeConfig(path string) (config.PlotterConfig, error) {
	cfg := config.Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config.PlotterConfig{}, fmt.Errorf("load plotctl config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return config.PlotterConfig{}, fmt.Errorf("load plotctl config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("transport") {
		cfg.Transport = strings.TrimSpace(raw.Transport)
	}
	if meta.IsDefined("baud") {
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("window") {
		cfg.Window = raw.Window
	}
	if meta.IsDefined("y_min") {
		cfg.YMin = raw.YMin
	}
	if meta.IsDefined("y_max") {
		cfg.YMax = raw.YMax
	}
	if meta.IsDefined("queue_size") {
		cfg.QueueSize = raw.QueueSize
	}
	if meta.IsDefined("max_line_bytes") {
		cfg.MaxLineBytes = raw.MaxLineBytes
	}
	if meta.IsDefined("overflow_policy") {
		cfg.OverflowPolicy = strings.TrimSpace(raw.OverflowPolicy)
	}
	if meta.IsDefined("http_addr") {
		cfg.HTTPAddr = strings.TrimSpace(raw.HTTPAddr)
	}
	if meta.IsDefined("http_token") {
		cfg.HTTPToken = strings.TrimSpace(raw.HTTPToken)
	}
	if meta.IsDefined("render_interval") {
		cfg.RenderInterval = strings.TrimSpace(raw.RenderInterval)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	return cfg, nil
}

type options struct {
	configPath string
	flags      *flag.FlagSet
	baud       int
	window     int
	httpAddr   string
	transport  string
}

func parseArgs(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("plotctl", flag.ContinueOnError)
	fs.StringVar(&opts.configPath, "config", "", "path to a plotctl TOML config")
	fs.IntVar(&opts.baud, "baud", config.DefaultBaud, "serial baud rate")
	fs.IntVar(&opts.window, "window", config.DefaultWindow, "samples kept per channel")
	fs.StringVar(&opts.httpAddr, "http", "", "listen address for /snapshot, /health and /metrics")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: plotctl [flags] <transport>\n\ntransport is a serial device, tcp://host:port, or - for stdin\n\n")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if fs.NArg() > 1 {
		return options{}, fmt.Errorf("expected one transport argument, got %d", fs.NArg())
	}
	opts.transport = strings.TrimSpace(fs.Arg(0))
	opts.flags = fs
	return opts, nil
}

// resolveConfig applies defaults, then the config file, then explicitly set
// flags and the positional transport.
func resolveConfig(opts options) (config.PlotterConfig, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := loadRuntimeConfig(opts.configPath)
		if err != nil {
			return config.PlotterConfig{}, err
		}
		cfg = loaded
	}

	opts.flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "baud":
			cfg.Baud = opts.baud
		case "window":
			cfg.Window = opts.window
		case "http":
			cfg.HTTPAddr = strings.TrimSpace(opts.httpAddr)
		}
	})
	if opts.transport != "" {
		cfg.Transport = opts.transport
	}

	if cfg.Transport == "" {
		return config.PlotterConfig{}, fmt.Errorf("no transport given")
	}
	if err := config.ValidatePlotterConfig(cfg); err != nil {
		return config.PlotterConfig{}, err
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	if len(in) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
