package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/danmuck/plotctl/internal/config"
	"github.com/danmuck/plotctl/internal/window"
)

// consoleRenderer prints the newest value of every channel, at most once per
// interval. Values outside the configured y range are marked with '!'.
// Notify and Flush run on the pipeline owner, or after Run has returned.
type consoleRenderer struct {
	out   io.Writer
	every time.Duration
	axis  config.Axis
	now   func() time.Time
	last  time.Time

	// pending holds the newest snapshot suppressed by the throttle.
	pending *window.Snapshot
}

func newConsoleRenderer(out io.Writer, every time.Duration, axis config.Axis) *consoleRenderer {
	return &consoleRenderer{out: out, every: every, axis: axis, now: time.Now}
}

func (r *consoleRenderer) Notify(s window.Snapshot) {
	now := r.now()
	if r.every > 0 && !r.last.IsZero() && now.Sub(r.last) < r.every {
		r.pending = &s
		return
	}
	r.last = now
	r.pending = nil
	fmt.Fprintln(r.out, r.line(s))
}

// Flush prints the last throttled snapshot, if any, so the final state of a
// burst is not lost when the stream ends.
func (r *consoleRenderer) Flush() {
	if r.pending == nil {
		return
	}
	fmt.Fprintln(r.out, r.line(*r.pending))
	r.last = r.now()
	r.pending = nil
}

func (r *consoleRenderer) line(s window.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d [%d/%d]", s.Seq, s.Length, s.Capacity)
	for _, ch := range s.Channels {
		v := ch.Latest()
		mark := ""
		if f, ok := v.Float64(); ok && (f < r.axis.YMin || f > r.axis.YMax) {
			mark = "!"
		}
		fmt.Fprintf(&b, " %s=%s%s", ch.Name, v, mark)
	}
	return b.String()
}
