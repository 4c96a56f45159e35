// Package server exposes a read-only HTTP view of a running pipeline for an
// external renderer polling at its own cadence.
package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/danmuck/plotctl/internal/auth"
	"github.com/danmuck/plotctl/internal/config"
	"github.com/danmuck/plotctl/internal/observability"
	"github.com/danmuck/plotctl/internal/stream"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const nodeName = "plotctl"

var ErrInvalidOptions = errors.New("server: invalid options")

// StatsSource reports pipeline counters; *stream.Pipeline satisfies it.
type StatsSource interface {
	Stats() stream.Stats
}

type Server struct {
	Addr    string
	Started time.Time

	latest *stream.Latest
	stats  StatsSource
	axis   config.Axis
	router *gin.Engine
}

// Options configures the HTTP surface. An empty Token leaves every route open;
// otherwise everything but /health requires it as a bearer token.
type Options struct {
	Addr        string
	Axis        config.Axis
	CorsOrigins []string
	Token       string
}

func New(opts Options, latest *stream.Latest, stats StatsSource) (*Server, error) {
	corsCfg := cors.Config{
		AllowOrigins: normalizeOrigins(opts.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if err := corsCfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}

	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(
		log.Logger.With().Str("component", "http").Str("run_id", stats.Stats().RunID).Logger(),
		"/snapshot", "/health", "/metrics",
	))
	r.Use(observability.RequestMetricsMiddleware(nodeName))
	r.Use(cors.New(corsCfg))
	if opts.Token != "" {
		r.Use(auth.RequireBearer(auth.StaticToken{Token: opts.Token}, "/health"))
	}
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		Addr:    opts.Addr,
		Started: time.Now(),
		latest:  latest,
		stats:   stats,
		axis:    opts.Axis,
		router:  r,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		stats := s.stats.Stats()
		c.JSON(http.StatusOK, gin.H{
			"status":       "ok",
			"uptime":       time.Since(s.Started).String(),
			"run_id":       stats.RunID,
			"applied":      stats.Applied,
			"parse_errors": stats.ParseErrors,
			"dropped":      stats.Dropped,
			"channels":     stats.Channels,
			"reader_done":  stats.ReaderDone,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/snapshot", func(c *gin.Context) {
		snap, ok := s.latest.Load()
		if !ok {
			c.Status(http.StatusNoContent)
			return
		}
		c.Set(observability.SnapshotSeqKey, snap.Seq)
		c.JSON(http.StatusOK, gin.H{
			"axis":     s.axis,
			"snapshot": snap,
		})
	})
}

// Serve blocks until the listener fails.
func (s *Server) Serve() error {
	return s.router.Run(s.Addr)
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
