package model

import (
	"time"
)

// Process represents a single timed operation owned by a player. Instances
// are mutated only inside the owning player's critical section; components
// outside the engine receive clones.
type Process struct {
	ID       string   `json:"id"`
	Player   string   `json:"player"`
	Type     Type     `json:"type"`
	Target   string   `json:"target"`
	Priority Priority `json:"priority"`

	Demand    Resources `json:"demand"`
	Allocated Resources `json:"allocated"`

	State       State   `json:"state"`
	Progress    float64 `json:"progress"`
	Cancellable bool    `json:"cancellable"`

	// Duration is the total running time the process needs to reach 1.0
	// progress. Elapsed accumulates running time across pauses; while the
	// process is Running the stretch since StartedAt is not yet folded in.
	Duration time.Duration `json:"duration"`
	Elapsed  time.Duration `json:"elapsed"`

	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	ETA        *time.Time `json:"eta,omitempty"`

	// Checkpoint carries opaque partial-work state for types that support
	// it; persisted on pause and optionally on cancel.
	Checkpoint []byte `json:"checkpoint,omitempty"`

	// Resolving marks a process whose completion effect is being applied.
	// Such a process stays Running, is excluded from further progress
	// advancement and can no longer be cancelled.
	Resolving bool `json:"resolving,omitempty"`
}

// ProgressAt returns the progress the process has reached by now, clamped to
// [Progress, 1]. Progress is monotonically non-decreasing while Running even
// under clock drift: the stored value is the floor.
func (p *Process) ProgressAt(now time.Time) float64 {
	if p.State != StateRunning || p.StartedAt == nil || p.Duration <= 0 {
		return p.Progress
	}
	elapsed := p.Elapsed + now.Sub(*p.StartedAt)
	progress := float64(elapsed) / float64(p.Duration)
	if progress < p.Progress {
		return p.Progress
	}
	if progress > 1 {
		return 1
	}
	return progress
}

// RemainingAt returns the running time still needed to reach 1.0 progress.
func (p *Process) RemainingAt(now time.Time) time.Duration {
	remaining := time.Duration((1 - p.ProgressAt(now)) * float64(p.Duration))
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ETAAt projects the wall-clock completion time as seen at now.
func (p *Process) ETAAt(now time.Time) time.Time {
	return now.Add(p.RemainingAt(now))
}

// Clone returns a deep copy safe for use outside the player's critical
// section.
func (p *Process) Clone() *Process {
	if p == nil {
		return nil
	}
	out := *p
	if p.StartedAt != nil {
		at := *p.StartedAt
		out.StartedAt = &at
	}
	if p.FinishedAt != nil {
		at := *p.FinishedAt
		out.FinishedAt = &at
	}
	if p.ETA != nil {
		at := *p.ETA
		out.ETA = &at
	}
	if len(p.Checkpoint) > 0 {
		out.Checkpoint = append([]byte(nil), p.Checkpoint...)
	}
	return &out
}
