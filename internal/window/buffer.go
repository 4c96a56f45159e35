package window

import (
	"errors"
	"fmt"

	"github.com/danmuck/plotctl/internal/sample"
)

var ErrInvalidCapacity = errors.New("window: capacity must be positive")

// Buffer holds one rolling window per channel, all sharing capacity N.
type Buffer struct {
	capacity int
	length   int
	channels []*channel
	appended uint64
}

func New(capacity int) (*Buffer, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	return &Buffer{capacity: capacity}, nil
}

func (b *Buffer) Capacity() int {
	return b.capacity
}

// Channels reports the channel count. It never decreases.
func (b *Buffer) Channels() int {
	return len(b.channels)
}

// Len reports the shared window length, at most Capacity.
func (b *Buffer) Len() int {
	return b.length
}

// Appended reports how many non-empty records have been applied.
func (b *Buffer) Appended() uint64 {
	return b.appended
}

// Grow adds channels until there are at least width of them and returns how
// many were created. New windows hold Len() None values.
func (b *Buffer) Grow(width int) int {
	added := 0
	for len(b.channels) < width {
		b.channels = append(b.channels, newChannel(b.capacity, b.length))
		added++
	}
	return added
}

// Append applies one record and reports whether the buffer changed.
// Empty records are a no-op.
func (b *Buffer) Append(rec sample.Record) bool {
	if rec.Empty() {
		return false
	}
	b.Grow(rec.Width())
	for i, ch := range b.channels {
		v := sample.None()
		if i < rec.Width() {
			v = rec.Values[i]
		}
		ch.push(v, b.capacity)
	}
	if b.length < b.capacity {
		b.length++
	}
	b.appended++
	return true
}

// Snapshot copies every window oldest to newest. It does not mutate b.
func (b *Buffer) Snapshot() Snapshot {
	snap := Snapshot{
		Seq:      b.appended,
		Capacity: b.capacity,
		Length:   b.length,
		Channels: make([]ChannelWindow, len(b.channels)),
	}
	for i, ch := range b.channels {
		snap.Channels[i] = ChannelWindow{
			Index:  i,
			Name:   ChannelName(i),
			Values: ch.clone(),
		}
	}
	return snap
}
