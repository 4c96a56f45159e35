package stream

import (
	"context"
	"errors"
	"testing"

	"github.com/danmuck/plotctl/internal/sample"
	"github.com/danmuck/plotctl/internal/testutil/testlog"
)

func rec(line uint64) sample.Record {
	return sample.Record{Line: line, Kind: sample.KindInt, Values: []sample.Value{sample.Int(int64(line))}}
}

func drain(t *testing.T, q *Queue) []uint64 {
	t.Helper()
	q.Close()
	var out []uint64
	for {
		r, ok := q.Pop(context.Background())
		if !ok {
			return out
		}
		out = append(out, r.Line)
	}
}

func TestQueueDropOldestKeepsNewest(t *testing.T) {
	testlog.Start(t)
	q, err := NewQueue(2, DropOldest)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	for i := uint64(1); i <= 2; i++ {
		if _, err := q.Push(rec(i)); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}
	dropped, err := q.Push(rec(3))
	if !errors.Is(err, ErrQueueOverflow) {
		t.Fatalf("expected ErrQueueOverflow, got %v", err)
	}
	if dropped.Line != 1 {
		t.Fatalf("dropped line = %d, want 1", dropped.Line)
	}
	if _, err := q.Push(rec(4)); !errors.Is(err, ErrQueueOverflow) {
		t.Fatalf("expected second overflow, got %v", err)
	}

	got := drain(t, q)
	if len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Fatalf("unexpected queue contents: %v", got)
	}
	if q.Dropped() != 2 {
		t.Fatalf("dropped = %d, want 2", q.Dropped())
	}
	testlog.Logf("stream/queue: drop_oldest kept %v", got)
}

func TestQueueFreedSlotIsUsedBeforeEvicting(t *testing.T) {
	q, err := NewQueue(2, DropOldest)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	q.Push(rec(1))
	q.Push(rec(2))
	if r, ok := q.Pop(context.Background()); !ok || r.Line != 1 {
		t.Fatalf("pop = %d,%v want 1,true", r.Line, ok)
	}
	if _, err := q.Push(rec(3)); err != nil {
		t.Fatalf("push into freed slot should not overflow: %v", err)
	}

	got := drain(t, q)
	if len(got) != 2 || got[0] != 2 || got[1] != 3 || q.Dropped() != 0 {
		t.Fatalf("unexpected contents %v dropped=%d", got, q.Dropped())
	}
}

func TestQueueConcurrentDropOldestAccountsEveryRecord(t *testing.T) {
	testlog.Start(t)
	q, err := NewQueue(4, DropOldest)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}

	const total = 20000
	var overflows uint64
	go func() {
		defer q.Close()
		for i := uint64(1); i <= total; i++ {
			if _, err := q.Push(rec(i)); err != nil {
				overflows++
			}
		}
	}()

	var received, last uint64
	for {
		r, ok := q.Pop(context.Background())
		if !ok {
			break
		}
		if r.Line <= last {
			t.Fatalf("out of order: %d after %d", r.Line, last)
		}
		last = r.Line
		received++
	}

	if last != total {
		t.Fatalf("newest record lost: last=%d", last)
	}
	if received+q.Dropped() != total {
		t.Fatalf("received=%d dropped=%d, want sum %d", received, q.Dropped(), total)
	}
	if overflows != q.Dropped() {
		t.Fatalf("overflow errors=%d, dropped=%d", overflows, q.Dropped())
	}
	testlog.Logf("stream/queue: concurrent received=%d dropped=%d", received, q.Dropped())
}

func TestQueueDropNewestKeepsFirst(t *testing.T) {
	q, err := NewQueue(2, DropNewest)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	q.Push(rec(1))
	q.Push(rec(2))
	dropped, err := q.Push(rec(3))
	if !errors.Is(err, ErrQueueOverflow) || dropped.Line != 3 {
		t.Fatalf("expected incoming record rejected, got line=%d err=%v", dropped.Line, err)
	}

	got := drain(t, q)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected queue contents: %v", got)
	}
}

func TestQueuePopStopsOnContext(t *testing.T) {
	q, err := NewQueue(1, DropOldest)
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := q.Pop(ctx); ok {
		t.Fatalf("expected Pop to stop on cancelled context")
	}
}

func TestNewQueueValidation(t *testing.T) {
	if _, err := NewQueue(0, DropOldest); !errors.Is(err, ErrInvalidQueueSize) {
		t.Fatalf("expected ErrInvalidQueueSize, got %v", err)
	}
	if _, err := NewQueue(1, "drop_random"); !errors.Is(err, ErrUnknownOverflowPol) {
		t.Fatalf("expected ErrUnknownOverflowPol, got %v", err)
	}
	q, err := NewQueue(1, "")
	if err != nil || q.Policy() != DropOldest {
		t.Fatalf("empty policy should default to drop_oldest, got %q err=%v", q.Policy(), err)
	}
}

func TestParseOverflowPolicy(t *testing.T) {
	cases := map[string]OverflowPolicy{
		"":             DropOldest,
		" DROP_NEWEST": DropNewest,
		"drop_oldest":  DropOldest,
	}
	for raw, want := range cases {
		got, err := ParseOverflowPolicy(raw)
		if err != nil || got != want {
			t.Fatalf("ParseOverflowPolicy(%q) = %q,%v want %q", raw, got, err, want)
		}
	}
	if _, err := ParseOverflowPolicy("lossless"); !errors.Is(err, ErrUnknownOverflowPol) {
		t.Fatalf("expected ErrUnknownOverflowPol, got %v", err)
	}
}
