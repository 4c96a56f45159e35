package window

import (
	"fmt"

	"github.com/danmuck/plotctl/internal/sample"
)

// ChannelName is the display label for channel index i.
func ChannelName(i int) string {
	return fmt.Sprintf("Ch %d", i)
}

type channel struct {
	values []sample.Value
}

func newChannel(capacity, length int) *channel {
	c := &channel{values: make([]sample.Value, length, capacity)}
	for i := range c.values {
		c.values[i] = sample.None()
	}
	return c
}

// push appends v, evicting the oldest value once the window holds capacity values.
func (c *channel) push(v sample.Value, capacity int) {
	if len(c.values) < capacity {
		c.values = append(c.values, v)
		return
	}
	copy(c.values, c.values[1:])
	c.values[len(c.values)-1] = v
}

func (c *channel) clone() []sample.Value {
	out := make([]sample.Value, len(c.values))
	copy(out, c.values)
	return out
}
