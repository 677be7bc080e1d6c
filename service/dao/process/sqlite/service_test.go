package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/dao"
)

func newStore(t *testing.T) *Service {
	svc, err := New(filepath.Join(t.TempDir(), "processes.db"))
	assert.Nil(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestService_SaveLoadRoundTrip(t *testing.T) {
	svc := newStore(t)
	ctx := context.Background()

	started := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p := &model.Process{
		ID:        "p1",
		Player:    "alice",
		Type:      model.TypeBruteforce,
		Target:    "target-1",
		Priority:  model.PriorityHigh,
		Demand:    model.Resources{CPU: 60, RAM: 128},
		Allocated: model.Resources{CPU: 60, RAM: 128},
		State:     model.StateRunning,
		Progress:  0.25,
		Duration:  5 * time.Minute,
		StartedAt: &started,
	}
	assert.Nil(t, svc.Save(ctx, p))

	loaded, err := svc.Load(ctx, "p1")
	assert.Nil(t, err)
	assert.EqualValues(t, p, loaded)

	// Upsert replaces the document.
	p.State = model.StateCompleted
	assert.Nil(t, svc.Save(ctx, p))
	loaded, err = svc.Load(ctx, "p1")
	assert.Nil(t, err)
	assert.Equal(t, model.StateCompleted, loaded.State)
}

func TestService_LoadMissing(t *testing.T) {
	svc := newStore(t)
	ctx := context.Background()

	_, err := svc.Load(ctx, "missing")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	_, err = svc.Load(ctx, "")
	assert.ErrorIs(t, err, dao.ErrInvalidID)
}

func TestService_Delete(t *testing.T) {
	svc := newStore(t)
	ctx := context.Background()

	assert.Nil(t, svc.Save(ctx, &model.Process{ID: "p1", Player: "alice", State: model.StateQueued}))
	assert.Nil(t, svc.Delete(ctx, "p1"))
	assert.ErrorIs(t, svc.Delete(ctx, "p1"), dao.ErrNotFound)
}

func TestService_ListFilters(t *testing.T) {
	svc := newStore(t)
	ctx := context.Background()

	assert.Nil(t, svc.Save(ctx, &model.Process{ID: "p1", Player: "alice", State: model.StateQueued}))
	assert.Nil(t, svc.Save(ctx, &model.Process{ID: "p2", Player: "alice", State: model.StateRunning}))
	assert.Nil(t, svc.Save(ctx, &model.Process{ID: "p3", Player: "bob", State: model.StateRunning}))

	all, err := svc.List(ctx)
	assert.Nil(t, err)
	assert.Len(t, all, 3)

	mine, err := svc.List(ctx, dao.NewParameter("Player", "alice"))
	assert.Nil(t, err)
	assert.Len(t, mine, 2)

	running, err := svc.List(ctx,
		dao.NewParameter("Player", "alice"),
		dao.NewParameter("State", string(model.StateRunning)))
	assert.Nil(t, err)
	assert.Len(t, running, 1)
	assert.Equal(t, "p2", running[0].ID)

	active, err := svc.List(ctx, dao.NewParameter("State",
		string(model.StateQueued), string(model.StateRunning)))
	assert.Nil(t, err)
	assert.Len(t, active, 3)
}
