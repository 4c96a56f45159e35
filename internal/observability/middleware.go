package observability

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SnapshotSeqKey is the gin context key a handler sets to the sequence number
// of the snapshot it served; the request log carries it as "seq".
const SnapshotSeqKey = "plotctl.snapshot_seq"

// unmatchedRoute keeps stray paths out of the route label space.
const unmatchedRoute = "unmatched"

// RequestLogger logs one event per request. Successful hits on the polled
// routes log at trace level, since a renderer polls them continuously.
func RequestLogger(logger zerolog.Logger, polled ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(polled))
	for _, p := range polled {
		quiet[p] = struct{}{}
	}
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := routeOf(c)

		var event *zerolog.Event
		switch _, isPolled := quiet[route]; {
		case status >= 500:
			event = logger.Error()
		case status >= 400:
			event = logger.Warn()
		case isPolled:
			event = logger.Trace()
		default:
			event = logger.Debug()
		}
		if seq, ok := c.Get(SnapshotSeqKey); ok {
			if v, ok := seq.(uint64); ok {
				event = event.Uint64("seq", v)
			}
		}

		event.
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Int("bytes", c.Writer.Size()).
			Msg("http request")
	}
}

func RequestMetricsMiddleware(node string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		RecordHTTPRequest(node, c.Request.Method, routeOf(c), c.Writer.Status(), time.Since(start))
	}
}

func routeOf(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return unmatchedRoute
}
