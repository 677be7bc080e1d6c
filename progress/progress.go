// Package progress provides a lightweight tracker that keeps aggregated
// process counters (queued, running, completed, …) per player. Components
// update the counters via the Delta helper without requiring a global
// registry; an optional onChange callback runs outside the critical section
// so it can do slow work (JSON encoding, I/O) without blocking the engine.
package progress

import (
	"sync"
	"time"
)

// Delta represents an incremental counter change emitted by admission,
// scheduling or resolution. Fields are signed and can be either positive
// (increment) or negative (decrement).
type Delta struct {
	Queued    int
	Running   int
	Paused    int
	Completed int
	Cancelled int
	Failed    int
}

// Counters is a value snapshot of one player's aggregated process counts.
type Counters struct {
	Player    string
	Queued    int
	Running   int
	Paused    int
	Completed int
	Cancelled int
	Failed    int
	UpdatedAt time.Time
}

// Tracker keeps per-player aggregated counters. It is safe for concurrent
// use.
type Tracker struct {
	mu       sync.Mutex
	players  map[string]*Counters
	onChange func(Counters)
}

func NewTracker() *Tracker {
	return &Tracker{players: map[string]*Counters{}}
}

// OnChange registers a callback invoked with a snapshot after every update.
func (t *Tracker) OnChange(fn func(Counters)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Update applies the supplied delta for a player.
func (t *Tracker) Update(player string, d Delta) {
	t.mu.Lock()
	counters, ok := t.players[player]
	if !ok {
		counters = &Counters{Player: player}
		t.players[player] = counters
	}
	counters.Queued += d.Queued
	counters.Running += d.Running
	counters.Paused += d.Paused
	counters.Completed += d.Completed
	counters.Cancelled += d.Cancelled
	counters.Failed += d.Failed
	counters.UpdatedAt = time.Now()
	snapshot := *counters
	cb := t.onChange
	t.mu.Unlock()

	if cb != nil {
		cb(snapshot)
	}
}

// Snapshot returns a copy of a player's counters.
func (t *Tracker) Snapshot(player string) Counters {
	t.mu.Lock()
	defer t.mu.Unlock()
	if counters, ok := t.players[player]; ok {
		return *counters
	}
	return Counters{Player: player}
}
