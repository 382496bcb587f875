// Package traffic keeps sliding windows of lookup outcomes. Health reporting
// derives its overloaded and degraded states from these counts.
package traffic

import (
	"sync"
	"time"
)

// retention bounds how long outcomes are kept regardless of the windows asked for.
const retention = 5 * time.Minute

var defaultTracker = NewTracker()

// RecordSuccess records a lookup that produced a report, or failed on the
// caller's input (invalid or unknown city).
func RecordSuccess() {
	defaultTracker.RecordSuccess()
}

// RecordFailure records a lookup that failed on an upstream (geocoding or weather).
func RecordFailure() {
	defaultTracker.RecordFailure()
}

// RecordDenied records a request turned away by the rate limiter or the trigger guard.
func RecordDenied() {
	defaultTracker.RecordDenied()
}

// RequestCount returns the number of outcomes (success + failure + denied) within the window.
func RequestCount(window time.Duration) int {
	return defaultTracker.RequestCount(window)
}

// DenialCount returns the number of denials within the window.
func DenialCount(window time.Duration) int {
	return defaultTracker.DenialCount(window)
}

// ErrorRate returns (failures, total) within the window. Denials are excluded from total.
func ErrorRate(window time.Duration) (failures, total int) {
	return defaultTracker.ErrorRate(window)
}

// Overloaded reports whether requests in window exceed thresholdPct of what
// the rate limit admits over that window.
func Overloaded(window time.Duration, rateLimitRPS, thresholdPct int) bool {
	return defaultTracker.Overloaded(window, rateLimitRPS, thresholdPct)
}

// Degraded reports whether the upstream failure rate in window reaches errorPct.
func Degraded(window time.Duration, errorPct int) bool {
	return defaultTracker.Degraded(window, errorPct)
}

// Reset clears all recorded outcomes. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Tracker maintains sliding windows of outcome timestamps.
type Tracker struct {
	mu          sync.Mutex
	now         func() time.Time
	successes   []time.Time
	failures    []time.Time
	deniedTimes []time.Time
}

// NewTracker returns an empty Tracker on the wall clock.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now}
}

func (t *Tracker) RecordSuccess() {
	t.record(&t.successes)
}

func (t *Tracker) RecordFailure() {
	t.record(&t.failures)
}

func (t *Tracker) RecordDenied() {
	t.record(&t.deniedTimes)
}

func (t *Tracker) record(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

func (t *Tracker) RequestCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	return countSince(t.successes, cutoff) +
		countSince(t.failures, cutoff) +
		countSince(t.deniedTimes, cutoff)
}

func (t *Tracker) DenialCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.deniedTimes, t.now().Add(-window))
}

func (t *Tracker) ErrorRate(window time.Duration) (failures, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	failures = countSince(t.failures, cutoff)
	return failures, failures + countSince(t.successes, cutoff)
}

func (t *Tracker) Overloaded(window time.Duration, rateLimitRPS, thresholdPct int) bool {
	if window <= 0 || rateLimitRPS <= 0 || thresholdPct <= 0 {
		return false
	}
	threshold := float64(rateLimitRPS) * window.Seconds() * float64(thresholdPct) / 100
	return float64(t.RequestCount(window)) > threshold
}

func (t *Tracker) Degraded(window time.Duration, errorPct int) bool {
	if window <= 0 || errorPct <= 0 {
		return false
	}
	failures, total := t.ErrorRate(window)
	if total == 0 {
		return false
	}
	return float64(failures)*100/float64(total) >= float64(errorPct)
}

func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successes = nil
	t.failures = nil
	t.deniedTimes = nil
}

// countSince counts timestamps that are not before cutoff.
func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than retention. Slices are append-only
// in time order, so the stale entries are a prefix. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-retention)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for i < len(times) && times[i].Before(cutoff) {
			i++
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successes)
	prune(&t.failures)
	prune(&t.deniedTimes)
}
