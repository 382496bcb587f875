package lifecycle

import (
	"testing"
	"time"
)

func TestIsShuttingDown_DefaultFalse(t *testing.T) {
	SetShuttingDown(false)
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true, want false by default")
	}
}

func TestSetShuttingDown_Toggle(t *testing.T) {
	SetShuttingDown(true)
	if !IsShuttingDown() {
		t.Error("IsShuttingDown() = false after SetShuttingDown(true), want true")
	}
	SetShuttingDown(false)
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true after SetShuttingDown(false), want false")
	}
}

func TestUptime(t *testing.T) {
	startedAt.Store(0)
	if got := Uptime(time.Now()); got != 0 {
		t.Errorf("Uptime() before MarkStarted = %v, want 0", got)
	}

	start := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	MarkStarted(start)
	defer startedAt.Store(0)
	if got := Uptime(start.Add(90 * time.Second)); got != 90*time.Second {
		t.Errorf("Uptime() = %v, want 1m30s", got)
	}
}
