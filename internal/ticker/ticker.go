// Package ticker provides the shared one-second cadence used by rest
// countdowns and timed exercises. It is an injected collaborator, not a
// process-wide singleton.
package ticker

import (
	"sync"
	"sync/atomic"
	"time"
)

// TickFunc receives the remaining tick count after each cadence tick and
// reports whether the countdown wants further ticks. A countdown is
// deregistered when it reaches zero remaining ticks or returns false,
// whichever comes first.
type TickFunc func(remaining int) bool

type countdown struct {
	remaining int
	fn        TickFunc
	stopped   atomic.Bool
}

// Ticker broadcasts a wall-clock cadence to a dynamic set of countdowns.
type Ticker struct {
	mu     sync.Mutex
	blocks []*countdown
	stop   chan struct{}
	once   sync.Once
}

// New starts a ticker firing at the given interval (1 second for the
// session cadence).
func New(interval time.Duration) *Ticker {
	t := &Ticker{stop: make(chan struct{})}
	go t.run(interval)
	return t
}

// NewManual returns a ticker that only advances via Tick, for tests.
func NewManual() *Ticker {
	return &Ticker{stop: make(chan struct{})}
}

func (t *Ticker) run(interval time.Duration) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			t.Tick()
		case <-t.stop:
			return
		}
	}
}

// Register adds a countdown with the given number of remaining ticks. The
// returned stop function deregisters the countdown; after it returns, the
// callback receives no further ticks and the countdown no longer counts
// as pending.
func (t *Ticker) Register(remaining int, fn TickFunc) (stop func()) {
	b := &countdown{remaining: remaining, fn: fn}
	t.mu.Lock()
	t.blocks = append(t.blocks, b)
	t.mu.Unlock()
	return func() { b.stopped.Store(true) }
}

// Tick advances every registered countdown once. A countdown that reaches
// zero is not called again on later ticks; a stopped one is dropped
// without a call.
func (t *Ticker) Tick() {
	t.mu.Lock()
	blocks := t.blocks
	t.blocks = nil
	t.mu.Unlock()

	var keep []*countdown
	for _, b := range blocks {
		if b.stopped.Load() {
			continue
		}
		b.remaining--
		if b.fn(b.remaining) && b.remaining > 0 {
			keep = append(keep, b)
		}
	}

	t.mu.Lock()
	t.blocks = append(keep, t.blocks...)
	t.mu.Unlock()
}

// Pending returns the number of live countdowns.
func (t *Ticker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, b := range t.blocks {
		if !b.stopped.Load() {
			n++
		}
	}
	return n
}

// Stop halts the cadence. Registered countdowns receive no further ticks.
func (t *Ticker) Stop() {
	t.once.Do(func() { close(t.stop) })
}
