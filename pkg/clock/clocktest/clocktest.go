// Package clocktest provides a manually advanced clock.Clock for tests.
package clocktest

import (
	"sort"
	"sync"
	"time"

	"github.com/hay-kot/marktimer/pkg/clock"
)

// Clock is a fake clock. Time only moves when Advance is called, and due
// callbacks run synchronously on the goroutine calling Advance.
type Clock struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*timer
}

var _ clock.Clock = (*Clock)(nil)

type timer struct {
	c       *Clock
	when    time.Time
	seq     int
	fn      func()
	pending bool
}

func (t *timer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	was := t.pending
	t.pending = false
	return was
}

// New returns a fake clock starting at start.
func New(start time.Time) *Clock {
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	t := &timer{c: c, when: c.now.Add(d), seq: c.seq, fn: f, pending: true}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by d, firing every callback that falls
// due in order of deadline. Callbacks scheduled by a firing callback run
// within the same Advance if they fall inside the window.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)

	for {
		next := c.nextDue(target)
		if next == nil {
			break
		}
		next.pending = false
		c.now = next.when
		c.mu.Unlock()

		next.fn()

		c.mu.Lock()
	}

	c.now = target
	c.mu.Unlock()
}

// AdvanceSteps calls Advance n times with step, which mirrors a real
// ticker that never falls behind.
func (c *Clock) AdvanceSteps(n int, step time.Duration) {
	for range n {
		c.Advance(step)
	}
}

// Pending returns how many callbacks are still scheduled.
func (c *Clock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.compact()
	return len(c.timers)
}

// nextDue returns the earliest pending timer at or before target. Caller
// holds c.mu.
func (c *Clock) nextDue(target time.Time) *timer {
	c.compact()
	sort.SliceStable(c.timers, func(i, j int) bool {
		if c.timers[i].when.Equal(c.timers[j].when) {
			return c.timers[i].seq < c.timers[j].seq
		}
		return c.timers[i].when.Before(c.timers[j].when)
	})
	if len(c.timers) == 0 || c.timers[0].when.After(target) {
		return nil
	}
	t := c.timers[0]
	c.timers = c.timers[1:]
	return t
}

func (c *Clock) compact() {
	live := c.timers[:0]
	for _, t := range c.timers {
		if t.pending {
			live = append(live, t)
		}
	}
	c.timers = live
}
