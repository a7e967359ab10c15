package core

import (
	"sync"
	"time"
)

const (
	// DefaultWorkTimeout bounds how long a single task may hold the guard
	// before it is considered abandoned.
	DefaultWorkTimeout = 300 * time.Second

	// DefaultCooldown is the quiet period after a release during which new
	// work is refused.
	DefaultCooldown = 3 * time.Second
)

// GuardStatus is a point-in-time snapshot of the guard for status
// endpoints and MCP tools.
type GuardStatus struct {
	Working        bool      `json:"working"`
	TaskID         string    `json:"task_id,omitempty"`
	WorkingSince   time.Time `json:"working_since,omitzero"`
	CoolingDown    bool      `json:"cooling_down"`
	CooldownSince  time.Time `json:"cooldown_since,omitzero"`
	WorkTimeout    float64   `json:"work_timeout_seconds"`
	CooldownPeriod float64   `json:"cooldown_seconds"`
}

// Guard serializes scheduling work: at most one task is processed at a
// time, and a short cooldown follows every release. Expiry of both the
// work timeout and the cooldown is lazy, evaluated on the next call that
// inspects the state.
type Guard struct {
	mu            sync.Mutex
	working       bool
	taskID        string
	workStart     time.Time
	coolingDown   bool
	cooldownStart time.Time

	workTimeout time.Duration
	cooldown    time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewGuard creates a Guard with the given timers. Non-positive values
// fall back to the defaults.
func NewGuard(workTimeout, cooldown time.Duration) *Guard {
	if workTimeout <= 0 {
		workTimeout = DefaultWorkTimeout
	}
	if cooldown < 0 {
		cooldown = DefaultCooldown
	}
	return &Guard{
		workTimeout: workTimeout,
		cooldown:    cooldown,
		now:         time.Now,
	}
}

// expireLocked applies lazy timer expiry. Callers must hold mu.
func (g *Guard) expireLocked() {
	now := g.now()
	if g.coolingDown && now.Sub(g.cooldownStart) > g.cooldown {
		g.coolingDown = false
		g.cooldownStart = time.Time{}
	}
	if g.working && now.Sub(g.workStart) > g.workTimeout {
		g.working = false
		g.taskID = ""
		g.workStart = time.Time{}
	}
}

// Acquire attempts to take the guard for the given task. It returns true
// on success; on refusal the second return names the obstacle, "cooldown"
// or "busy". Acquiring clears any finished cooldown.
func (g *Guard) Acquire(taskID string) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expireLocked()

	if g.coolingDown {
		return false, "cooldown"
	}
	if g.working {
		return false, "busy"
	}

	g.working = true
	g.taskID = taskID
	g.workStart = g.now()
	g.coolingDown = false
	g.cooldownStart = time.Time{}
	return true, ""
}

// Release ends the working phase and starts the cooldown. Only the holder
// may release while work is in flight; a mismatched task ID is a no-op
// and returns false. Releasing an idle guard still starts the cooldown.
func (g *Guard) Release(taskID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expireLocked()

	if g.working && g.taskID != taskID {
		return false
	}

	g.working = false
	g.taskID = ""
	g.workStart = time.Time{}
	g.coolingDown = true
	g.cooldownStart = g.now()
	return true
}

// busy reports whether the guard is currently held by unexpired work.
func (g *Guard) busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expireLocked()
	return g.working
}

// Status returns a snapshot after applying lazy expiry, so a stale
// working or cooldown flag is never reported.
func (g *Guard) Status() GuardStatus {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expireLocked()
	return GuardStatus{
		Working:        g.working,
		TaskID:         g.taskID,
		WorkingSince:   g.workStart,
		CoolingDown:    g.coolingDown,
		CooldownSince:  g.cooldownStart,
		WorkTimeout:    g.workTimeout.Seconds(),
		CooldownPeriod: g.cooldown.Seconds(),
	}
}
