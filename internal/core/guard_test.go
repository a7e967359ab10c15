package core

import (
	"testing"
	"time"
)

// fakeClock drives a Guard deterministically in tests.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGuard(workTimeout, cooldown time.Duration) (*Guard, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
	g := NewGuard(workTimeout, cooldown)
	g.now = clock.now
	return g, clock
}

func TestGuard_AcquireRelease(t *testing.T) {
	g, _ := newTestGuard(300*time.Second, 3*time.Second)

	ok, reason := g.Acquire("task-1")
	if !ok {
		t.Fatalf("expected acquire to succeed, got refusal %q", reason)
	}
	if !g.busy() {
		t.Error("expected guard to be busy after acquire")
	}

	if !g.Release("task-1") {
		t.Error("expected release by holder to succeed")
	}
	if g.busy() {
		t.Error("expected guard to be idle after release")
	}
}

func TestGuard_SecondAcquireBlocked(t *testing.T) {
	g, _ := newTestGuard(300*time.Second, 3*time.Second)

	if ok, _ := g.Acquire("task-1"); !ok {
		t.Fatal("first acquire should succeed")
	}
	ok, reason := g.Acquire("task-2")
	if ok {
		t.Fatal("second acquire should be refused while working")
	}
	if reason != "busy" {
		t.Errorf("expected obstacle busy, got %q", reason)
	}
}

func TestGuard_CooldownBlocksThenExpires(t *testing.T) {
	g, clock := newTestGuard(300*time.Second, 3*time.Second)

	g.Acquire("task-1")
	g.Release("task-1")

	ok, reason := g.Acquire("task-2")
	if ok {
		t.Fatal("acquire during cooldown should be refused")
	}
	if reason != "cooldown" {
		t.Errorf("expected obstacle cooldown, got %q", reason)
	}

	// Exactly at the boundary the cooldown still holds.
	clock.advance(3 * time.Second)
	if ok, _ := g.Acquire("task-2"); ok {
		t.Fatal("cooldown should not expire until strictly past the period")
	}

	clock.advance(time.Millisecond)
	if ok, reason := g.Acquire("task-2"); !ok {
		t.Fatalf("acquire after cooldown expiry should succeed, got %q", reason)
	}
}

func TestGuard_WorkTimeoutForcesIdle(t *testing.T) {
	g, clock := newTestGuard(300*time.Second, 3*time.Second)

	g.Acquire("task-1")
	clock.advance(300*time.Second + time.Millisecond)

	ok, reason := g.Acquire("task-2")
	if !ok {
		t.Fatalf("expected acquire after work timeout to succeed, got %q", reason)
	}

	status := g.Status()
	if status.TaskID != "task-2" {
		t.Errorf("expected holder task-2, got %q", status.TaskID)
	}
}

func TestGuard_ReleaseByNonHolderIsNoOp(t *testing.T) {
	g, _ := newTestGuard(300*time.Second, 3*time.Second)

	g.Acquire("task-1")
	if g.Release("task-2") {
		t.Error("release by a non-holder should report failure")
	}
	if !g.busy() {
		t.Error("guard should still be held after a mismatched release")
	}
	if !g.Release("task-1") {
		t.Error("holder release should still succeed afterwards")
	}
}

func TestGuard_ReleaseWhenIdleStartsCooldown(t *testing.T) {
	g, _ := newTestGuard(300*time.Second, 3*time.Second)

	if !g.Release("anything") {
		t.Fatal("release of an idle guard should succeed")
	}
	if ok, reason := g.Acquire("task-1"); ok || reason != "cooldown" {
		t.Errorf("expected cooldown refusal, got ok=%v reason=%q", ok, reason)
	}
}

func TestGuard_StatusSelfHeals(t *testing.T) {
	g, clock := newTestGuard(300*time.Second, 3*time.Second)

	g.Acquire("task-1")
	clock.advance(301 * time.Second)

	status := g.Status()
	if status.Working {
		t.Error("status should report idle after the work timeout elapsed")
	}
	if status.TaskID != "" {
		t.Errorf("expected no holder, got %q", status.TaskID)
	}
}
