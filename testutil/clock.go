package testutil

import (
	"sync"
	"time"

	"github.com/jathurchan/davlock/clock"
)

// FakeClock is a manually advanced clock.Clock. Safe for concurrent use.
// Tickers created from it fire once per Advance call that crosses their
// period.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

var _ clock.Clock = (*FakeClock)(nil)

// NewFakeClock creates a FakeClock set to the given time.
func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{now: t}
}

// FixedClock returns a FakeClock set to 2024-01-15 10:30:00 UTC.
func FixedClock() *FakeClock {
	return NewFakeClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Since(t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// After returns a channel that already holds Now()+d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	ch := make(chan time.Time, 1)
	ch <- c.Now().Add(d)
	return ch
}

func (c *FakeClock) NewTicker(d time.Duration) clock.Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	ft := &fakeTicker{
		period: d,
		next:   c.now.Add(d),
		ch:     make(chan time.Time, 1),
		owner:  c,
	}
	c.tickers = append(c.tickers, ft)
	return ft
}

// Advance moves the clock forward by d and fires any ticker whose next tick
// falls within the new time. Ticks are dropped when the receiver is slow,
// like time.Ticker.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	tickers := append([]*fakeTicker(nil), c.tickers...)
	c.mu.Unlock()

	for _, ft := range tickers {
		ft.fire(now)
	}
}

// Tickers reports how many tickers are currently running.
func (c *FakeClock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tickers)
}

func (c *FakeClock) remove(ft *fakeTicker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.tickers {
		if t == ft {
			c.tickers = append(c.tickers[:i], c.tickers[i+1:]...)
			return
		}
	}
}

type fakeTicker struct {
	mu     sync.Mutex
	period time.Duration
	next   time.Time
	ch     chan time.Time
	owner  *FakeClock
}

func (ft *fakeTicker) Chan() <-chan time.Time { return ft.ch }

func (ft *fakeTicker) Stop() { ft.owner.remove(ft) }

func (ft *fakeTicker) fire(now time.Time) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if now.Before(ft.next) {
		return
	}
	for !now.Before(ft.next) {
		ft.next = ft.next.Add(ft.period)
	}
	select {
	case ft.ch <- now:
	default:
	}
}
