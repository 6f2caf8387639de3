package plugin

import (
	"sync/atomic"
)

const (
	MinScore = -10
	MaxScore = 10
)

// Connectivity is the process-wide network reachability vote shared by all
// plugins. The score is clamped to [MinScore, MaxScore]; a non-negative
// score means connected.
type Connectivity struct {
	score atomic.Int32
}

// NewConnectivity returns a counter at zero, i.e. connected.
func NewConnectivity() *Connectivity {
	return &Connectivity{}
}

// Vote adds delta to the score, clamped, and returns the new score.
func (c *Connectivity) Vote(delta int) int {
	for {
		old := c.score.Load()
		next := int(old) + delta
		if next > MaxScore {
			next = MaxScore
		}
		if next < MinScore {
			next = MinScore
		}
		if c.score.CompareAndSwap(old, int32(next)) {
			return next
		}
	}
}

// Score returns the current score.
func (c *Connectivity) Score() int {
	return int(c.score.Load())
}

// Connected reports whether the score is non-negative.
func (c *Connectivity) Connected() bool {
	return c.Score() >= 0
}
