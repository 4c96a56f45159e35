package stream

import (
	"sync/atomic"

	"github.com/danmuck/plotctl/internal/window"
)

// UpdateSink is notified once per applied record on the buffer-owning
// goroutine. Slow sinks slow the owner, never the reader.
type UpdateSink interface {
	Notify(window.Snapshot)
}

// SinkFunc adapts a function to UpdateSink.
type SinkFunc func(window.Snapshot)

func (f SinkFunc) Notify(s window.Snapshot) {
	f(s)
}

// Latest keeps the most recent snapshot for readers on other goroutines.
type Latest struct {
	snap atomic.Pointer[window.Snapshot]
}

func (l *Latest) Notify(s window.Snapshot) {
	l.snap.Store(&s)
}

// Load returns the newest snapshot; ok is false before the first update.
func (l *Latest) Load() (window.Snapshot, bool) {
	p := l.snap.Load()
	if p == nil {
		return window.Snapshot{}, false
	}
	return *p, true
}
