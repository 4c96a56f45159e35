package stream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/danmuck/plotctl/internal/sample"
)

var (
	ErrQueueOverflow      = errors.New("stream: queue overflow")
	ErrInvalidQueueSize   = errors.New("stream: queue size must be positive")
	ErrUnknownOverflowPol = errors.New("stream: unknown overflow policy")
)

// OverflowPolicy decides which record is discarded when the queue is full.
type OverflowPolicy string

const (
	// DropOldest evicts the oldest queued record to admit the new one.
	DropOldest OverflowPolicy = "drop_oldest"
	// DropNewest rejects the incoming record.
	DropNewest OverflowPolicy = "drop_newest"
)

func ParseOverflowPolicy(raw string) (OverflowPolicy, error) {
	switch p := OverflowPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case "":
		return DropOldest, nil
	case DropOldest, DropNewest:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOverflowPol, raw)
	}
}

// Queue is a bounded single-producer single-consumer record queue.
// Only the producer may call Push and Close.
type Queue struct {
	mu     sync.Mutex
	items  []sample.Record
	head   int
	n      int
	closed bool
	// ready holds at most one wakeup for the consumer.
	ready chan struct{}

	policy  OverflowPolicy
	dropped atomic.Uint64
}

func NewQueue(size int, policy OverflowPolicy) (*Queue, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidQueueSize, size)
	}
	if policy == "" {
		policy = DropOldest
	}
	if policy != DropOldest && policy != DropNewest {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOverflowPol, policy)
	}
	return &Queue{
		items:  make([]sample.Record, size),
		ready:  make(chan struct{}, 1),
		policy: policy,
	}, nil
}

// Push never blocks. When the queue is full the policy discards exactly one
// record, which is returned along with ErrQueueOverflow. A free slot is
// always used; nothing is evicted unless the queue is full at the moment of
// the push.
func (q *Queue) Push(rec sample.Record) (sample.Record, error) {
	q.mu.Lock()
	if q.n < len(q.items) {
		q.items[(q.head+q.n)%len(q.items)] = rec
		q.n++
		q.mu.Unlock()
		q.wake()
		return sample.Record{}, nil
	}
	if q.policy == DropNewest {
		q.mu.Unlock()
		q.dropped.Add(1)
		return rec, ErrQueueOverflow
	}
	// Full ring: the tail slot is the head slot.
	old := q.items[q.head]
	q.items[q.head] = rec
	q.head = (q.head + 1) % len(q.items)
	q.mu.Unlock()
	q.dropped.Add(1)
	q.wake()
	return old, ErrQueueOverflow
}

// Pop blocks until a record is available. ok is false once the queue is
// closed and drained, or ctx is done.
func (q *Queue) Pop(ctx context.Context) (sample.Record, bool) {
	for {
		if ctx.Err() != nil {
			return sample.Record{}, false
		}
		q.mu.Lock()
		if q.n > 0 {
			rec := q.items[q.head]
			q.items[q.head] = sample.Record{}
			q.head = (q.head + 1) % len(q.items)
			q.n--
			q.mu.Unlock()
			return rec, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return sample.Record{}, false
		}

		select {
		case <-ctx.Done():
			return sample.Record{}, false
		case <-q.ready:
		}
	}
}

func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.wake()
}

func (q *Queue) wake() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.n
}

func (q *Queue) Cap() int {
	return len(q.items)
}

func (q *Queue) Policy() OverflowPolicy {
	return q.policy
}

// Dropped reports how many records the overflow policy has discarded.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}
