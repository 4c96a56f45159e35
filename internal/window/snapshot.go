package window

import "github.com/danmuck/plotctl/internal/sample"

// Snapshot is an immutable copy of a Buffer at one point in time.
type Snapshot struct {
	Seq      uint64          `json:"seq"`
	Capacity int             `json:"capacity"`
	Length   int             `json:"length"`
	Channels []ChannelWindow `json:"channels"`
}

// ChannelWindow is one channel's values, oldest first.
type ChannelWindow struct {
	Index  int            `json:"index"`
	Name   string         `json:"name"`
	Values []sample.Value `json:"values"`
}

// Latest returns the newest value of the channel, None when empty.
func (c ChannelWindow) Latest() sample.Value {
	if len(c.Values) == 0 {
		return sample.None()
	}
	return c.Values[len(c.Values)-1]
}

// Points normalizes the window to x/y pairs for plotting, skipping None.
// x is the position in the window, so the x axis spans [0, Capacity).
func (c ChannelWindow) Points() [][2]float64 {
	out := make([][2]float64, 0, len(c.Values))
	for x, v := range c.Values {
		y, ok := v.Float64()
		if !ok {
			continue
		}
		out = append(out, [2]float64{float64(x), y})
	}
	return out
}

// Latest returns the newest value of every channel in index order.
func (s Snapshot) Latest() []sample.Value {
	out := make([]sample.Value, len(s.Channels))
	for i, ch := range s.Channels {
		out[i] = ch.Latest()
	}
	return out
}
