package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/plotctl/internal/sample"
	"github.com/danmuck/plotctl/internal/testutil/testlog"
	"github.com/danmuck/plotctl/internal/window"
	"github.com/rs/zerolog"
)

type recordingSink struct {
	mu    sync.Mutex
	snaps []window.Snapshot
}

func (s *recordingSink) Notify(snap window.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
}

func (s *recordingSink) all() []window.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]window.Snapshot(nil), s.snaps...)
}

func newTestPipeline(t *testing.T, cfg Config, sink UpdateSink) *Pipeline {
	t.Helper()
	p, err := New(cfg, sink, zerolog.Nop())
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestPipelineAppliesRecordsInOrder(t *testing.T) {
	testlog.Start(t)
	sink := &recordingSink{}
	p := newTestPipeline(t, Config{Capacity: 3, QueueSize: 16, Overflow: DropOldest}, sink)

	input := "1 10\n2\n1 abc 3\n\n3 30 300\n"
	if err := p.Run(context.Background(), strings.NewReader(input)); err != nil {
		t.Fatalf("run: %v", err)
	}

	snaps := sink.all()
	if len(snaps) != 3 {
		t.Fatalf("sink notified %d times, want 3", len(snaps))
	}
	for i, snap := range snaps {
		if snap.Seq != uint64(i+1) {
			t.Fatalf("snapshot %d seq = %d", i, snap.Seq)
		}
	}

	final := snaps[2]
	want := [][]sample.Value{
		{sample.Int(1), sample.Int(2), sample.Int(3)},
		{sample.Int(10), sample.None(), sample.Int(30)},
		{sample.None(), sample.None(), sample.Int(300)},
	}
	if len(final.Channels) != len(want) {
		t.Fatalf("channels = %d, want %d", len(final.Channels), len(want))
	}
	for i, ch := range final.Channels {
		for j, v := range want[i] {
			if ch.Values[j] != v {
				t.Fatalf("ch%d[%d] = %v, want %v", i, j, ch.Values[j], v)
			}
		}
	}

	stats := p.Stats()
	if stats.ParseErrors != 1 || stats.Applied != 3 || stats.Decoded != 3 || stats.Channels != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if !stats.ReaderDone {
		t.Fatalf("reader should be done after EOF")
	}
	testlog.Logf("stream/pipeline: applied=%d parse_errors=%d", stats.Applied, stats.ParseErrors)
}

func TestPipelineReturnsTransportError(t *testing.T) {
	boom := errors.New("device unplugged")
	r := io.MultiReader(strings.NewReader("1 2\n"), &failingReader{err: boom})
	p := newTestPipeline(t, DefaultConfig(), SinkFunc(func(window.Snapshot) {}))

	err := p.Run(context.Background(), r)
	if !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if p.Stats().Applied != 1 {
		t.Fatalf("records before the failure should be applied, stats=%+v", p.Stats())
	}
}

func TestPipelineKeepsTransportErrorAfterCancel(t *testing.T) {
	boom := errors.New("device unplugged")
	r := io.MultiReader(strings.NewReader("1 2\n"), &failingReader{err: boom})

	release := make(chan struct{})
	p := newTestPipeline(t, DefaultConfig(), SinkFunc(func(window.Snapshot) { <-release }))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, r) }()

	waitFor(t, func() bool { return p.Stats().ReaderDone })
	cancel()
	close(release)

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("expected transport error to survive cancel, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pipeline did not stop after cancel")
	}
}

func TestPipelineStopsOnCancel(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	latest := &Latest{}
	p := newTestPipeline(t, DefaultConfig(), latest)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, pr) }()

	if _, err := io.WriteString(pw, "5 6\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, func() bool { _, ok := latest.Load(); return ok })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancel should not be an error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pipeline did not stop after cancel")
	}
	snap, _ := latest.Load()
	if len(snap.Channels) != 2 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestPipelineSlowSinkDoesNotBlockReader(t *testing.T) {
	testlog.Start(t)
	release := make(chan struct{})
	sink := &recordingSink{}
	blocking := SinkFunc(func(s window.Snapshot) {
		<-release
		sink.Notify(s)
	})
	p := newTestPipeline(t, Config{Capacity: 4, QueueSize: 2, Overflow: DropOldest}, blocking)

	const total = 50
	var b strings.Builder
	for i := 1; i <= total; i++ {
		fmt.Fprintf(&b, "%d\n", i)
	}

	done := make(chan error, 1)
	go func() { done <- p.Run(context.Background(), strings.NewReader(b.String())) }()

	waitFor(t, func() bool { return p.Stats().ReaderDone })
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}

	stats := p.Stats()
	if stats.Dropped == 0 {
		t.Fatalf("expected the overflow policy to discard records, stats=%+v", stats)
	}
	if stats.Applied+stats.Dropped != total {
		t.Fatalf("applied+dropped = %d, want %d", stats.Applied+stats.Dropped, total)
	}
	snaps := sink.all()
	last := snaps[len(snaps)-1].Channels[0].Latest()
	if v, _ := last.Int(); v != total {
		t.Fatalf("newest applied value = %v, want %d", last, total)
	}
	testlog.Logf("stream/pipeline: slow sink applied=%d dropped=%d", stats.Applied, stats.Dropped)
}

func TestPipelineRunOnce(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig(), &Latest{})
	if err := p.Run(context.Background(), strings.NewReader("")); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := p.Run(context.Background(), strings.NewReader("")); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestNewValidation(t *testing.T) {
	if _, err := New(DefaultConfig(), nil, zerolog.Nop()); !errors.Is(err, ErrNilSink) {
		t.Fatalf("expected ErrNilSink, got %v", err)
	}
	if _, err := New(Config{Capacity: 0, QueueSize: 1}, &Latest{}, zerolog.Nop()); !errors.Is(err, window.ErrInvalidCapacity) {
		t.Fatalf("expected ErrInvalidCapacity, got %v", err)
	}
	if _, err := New(Config{Capacity: 1, QueueSize: 0}, &Latest{}, zerolog.Nop()); !errors.Is(err, ErrInvalidQueueSize) {
		t.Fatalf("expected ErrInvalidQueueSize, got %v", err)
	}
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}
