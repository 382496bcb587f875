// Package trigger models the search control that is disabled while a lookup
// runs: at most one lookup is in flight, and re-entry is refused rather than queued.
package trigger

import (
	"errors"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned by Run when a lookup is already in flight.
var ErrBusy = errors.New("lookup already in progress")

// Guard is the "request in progress" flag. The zero value is not usable; use New.
// mu keeps busy and the semaphore permit changing together.
type Guard struct {
	mu   sync.Mutex
	sem  *semaphore.Weighted
	busy bool
}

// New returns an idle Guard.
func New() *Guard {
	return &Guard{sem: semaphore.NewWeighted(1)}
}

// TryAcquire disables the trigger. It never blocks; false means a lookup is running.
func (g *Guard) TryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.sem.TryAcquire(1) {
		return false
	}
	g.busy = true
	return true
}

// Release re-enables the trigger. Call exactly once per successful TryAcquire.
func (g *Guard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sem.Release(1)
	g.busy = false
}

// Busy reports whether a lookup holds the guard.
func (g *Guard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

// Run calls fn while holding the guard and releases it on every exit path,
// including a panic in fn.
func (g *Guard) Run(fn func() error) error {
	if !g.TryAcquire() {
		return ErrBusy
	}
	defer g.Release()
	return fn()
}
