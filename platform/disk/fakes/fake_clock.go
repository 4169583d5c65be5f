package fakes

import (
	"time"

	"code.cloudfoundry.org/clock"
)

// FakeClock advances its notion of now by each Sleep so that timeout-based
// retry loops terminate without real waiting.
type FakeClock struct {
	clock.Clock

	now            time.Time
	SleptDurations []time.Duration
}

func (c *FakeClock) Now() time.Time { return c.now }

func (c *FakeClock) Since(t time.Time) time.Duration { return c.now.Sub(t) }

func (c *FakeClock) Sleep(d time.Duration) {
	c.now = c.now.Add(d)
	c.SleptDurations = append(c.SleptDurations, d)
}
