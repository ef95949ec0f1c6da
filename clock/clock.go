// Package clock abstracts wall-clock time so lock expiry can be driven
// deterministically in tests.
package clock

import "time"

// Clock is the time source injected into the lock store and its reaper.
type Clock interface {
	// Now returns the current time. Lock issue and expiration stamps are
	// taken from it.
	Now() time.Time

	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration

	// After waits for d to elapse and then sends the current time on the
	// returned channel.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker delivering ticks every d.
	// d must be greater than zero.
	NewTicker(d time.Duration) Ticker
}

// Ticker wraps time.Ticker so tests can substitute their own.
type Ticker interface {
	// Chan returns the channel on which ticks are delivered.
	Chan() <-chan time.Time

	// Stop turns off the ticker. The channel is not closed.
	Stop()
}

type standardClock struct{}

// New returns a Clock backed by the time package.
func New() Clock {
	return standardClock{}
}

func (standardClock) Now() time.Time                         { return time.Now() }
func (standardClock) Since(t time.Time) time.Duration        { return time.Since(t) }
func (standardClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (standardClock) NewTicker(d time.Duration) Ticker {
	return &standardTicker{ticker: time.NewTicker(d)}
}

type standardTicker struct {
	ticker *time.Ticker
}

func (st *standardTicker) Chan() <-chan time.Time { return st.ticker.C }
func (st *standardTicker) Stop()                  { st.ticker.Stop() }
