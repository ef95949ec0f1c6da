package clock

import (
	"testing"
	"time"
)

func TestStandardClock_NowAndSince(t *testing.T) {
	c := New()

	before := time.Now()
	now := c.Now()
	if now.Before(before) {
		t.Fatalf("Now() = %v is before %v", now, before)
	}
	if c.Since(now.Add(-time.Second)) < time.Second {
		t.Error("Since should report at least the elapsed offset")
	}
}

func TestStandardClock_Ticker(t *testing.T) {
	c := New()
	ticker := c.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	select {
	case <-ticker.Chan():
	case <-time.After(time.Second):
		t.Fatal("ticker did not fire")
	}
}

func TestStandardClock_After(t *testing.T) {
	select {
	case <-New().After(time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("After did not fire")
	}
}
