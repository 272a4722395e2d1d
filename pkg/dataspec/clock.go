package dataspec

import (
	"sync"
	"time"
)

// Clock supplies the current time in milliseconds since the Unix epoch.
//
// Schedules that default their anchor to "now" read it from a Clock, so
// tests can pin time deterministically instead of depending on process-wide
// state.
type Clock interface {
	NowMS() int64
}

// SystemClock returns the wall-clock backed Clock used by default.
//
// Consecutive reads within a short window return the same value, so that a
// batch of specs built in one call all anchor to the same instant.
func SystemClock() Clock {
	return defaultClock
}

const nowCoherenceWindowMS = 100

var defaultClock = &systemClock{}

type systemClock struct {
	mu     sync.Mutex
	cached int64
}

func (c *systemClock) NowMS() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now().UnixMilli()
	if now-c.cached > nowCoherenceWindowMS {
		c.cached = now
	}
	return c.cached
}

// FixedClock returns a Clock pinned at the given millisecond timestamp.
func FixedClock(ms int64) Clock {
	return fixedClock(ms)
}

type fixedClock int64

func (c fixedClock) NowMS() int64 {
	return int64(c)
}
