package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestState_CanTransition(t *testing.T) {
	testCases := []struct {
		name   string
		from   State
		to     State
		expect bool
	}{
		{name: "queued to running", from: StateQueued, to: StateRunning, expect: true},
		{name: "queued to cancelled", from: StateQueued, to: StateCancelled, expect: true},
		{name: "queued to failed", from: StateQueued, to: StateFailed, expect: true},
		{name: "queued to paused", from: StateQueued, to: StatePaused, expect: false},
		{name: "queued to completed", from: StateQueued, to: StateCompleted, expect: false},
		{name: "running to paused", from: StateRunning, to: StatePaused, expect: true},
		{name: "running to completed", from: StateRunning, to: StateCompleted, expect: true},
		{name: "running to cancelled", from: StateRunning, to: StateCancelled, expect: true},
		{name: "paused to running", from: StatePaused, to: StateRunning, expect: true},
		{name: "paused to completed", from: StatePaused, to: StateCompleted, expect: false},
		{name: "completed is terminal", from: StateCompleted, to: StateRunning, expect: false},
		{name: "cancelled is terminal", from: StateCancelled, to: StateQueued, expect: false},
		{name: "failed is terminal", from: StateFailed, to: StateRunning, expect: false},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.expect, tc.from.CanTransition(tc.to), tc.name)
	}
}

func TestState_Terminal(t *testing.T) {
	assert.True(t, StateCompleted.Terminal())
	assert.True(t, StateCancelled.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateQueued.Terminal())
	assert.False(t, StateRunning.Terminal())
	assert.False(t, StatePaused.Terminal())
}

func TestProcess_ProgressAt(t *testing.T) {
	started := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name    string
		process Process
		at      time.Time
		expect  float64
	}{
		{
			name:    "halfway",
			process: Process{State: StateRunning, StartedAt: &started, Duration: 100 * time.Second},
			at:      started.Add(50 * time.Second),
			expect:  0.5,
		},
		{
			name:    "clamped at one",
			process: Process{State: StateRunning, StartedAt: &started, Duration: 100 * time.Second},
			at:      started.Add(500 * time.Second),
			expect:  1,
		},
		{
			name:    "elapsed from a prior pause counts",
			process: Process{State: StateRunning, StartedAt: &started, Duration: 100 * time.Second, Elapsed: 30 * time.Second},
			at:      started.Add(20 * time.Second),
			expect:  0.5,
		},
		{
			name:    "stored progress is the floor under clock drift",
			process: Process{State: StateRunning, StartedAt: &started, Duration: 100 * time.Second, Progress: 0.8},
			at:      started.Add(10 * time.Second),
			expect:  0.8,
		},
		{
			name:    "queued returns stored progress",
			process: Process{State: StateQueued, Progress: 0},
			at:      started,
			expect:  0,
		},
		{
			name:    "paused returns stored progress",
			process: Process{State: StatePaused, Progress: 0.4, Duration: 100 * time.Second},
			at:      started.Add(time.Hour),
			expect:  0.4,
		},
	}
	for _, tc := range testCases {
		assert.InDelta(t, tc.expect, tc.process.ProgressAt(tc.at), 1e-9, tc.name)
	}
}

func TestProcess_RemainingAt(t *testing.T) {
	started := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := Process{State: StateRunning, StartedAt: &started, Duration: 100 * time.Second}

	assert.Equal(t, 100*time.Second, p.RemainingAt(started))
	assert.Equal(t, 25*time.Second, p.RemainingAt(started.Add(75*time.Second)))
	assert.Equal(t, time.Duration(0), p.RemainingAt(started.Add(200*time.Second)))

	at := started.Add(40 * time.Second)
	assert.Equal(t, at.Add(60*time.Second), p.ETAAt(at))
}

func TestProcess_Clone(t *testing.T) {
	started := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	eta := started.Add(time.Minute)
	p := &Process{
		ID:         "p1",
		State:      StateRunning,
		StartedAt:  &started,
		ETA:        &eta,
		Checkpoint: []byte(`{"offset":42}`),
	}
	clone := p.Clone()
	assert.EqualValues(t, p, clone)

	*clone.StartedAt = started.Add(time.Hour)
	clone.Checkpoint[0] = 'X'
	assert.Equal(t, started, *p.StartedAt)
	assert.Equal(t, byte('{'), p.Checkpoint[0])

	var nilProcess *Process
	assert.Nil(t, nilProcess.Clone())
}
