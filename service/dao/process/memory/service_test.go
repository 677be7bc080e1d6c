package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/dao"
)

func TestService_CRUD(t *testing.T) {
	svc := New()
	ctx := context.Background()

	assert.ErrorIs(t, svc.Save(ctx, nil), dao.ErrNilEntity)
	assert.ErrorIs(t, svc.Save(ctx, &model.Process{}), dao.ErrInvalidID)

	p := &model.Process{ID: "p1", Player: "alice", State: model.StateQueued}
	assert.Nil(t, svc.Save(ctx, p))

	// The store holds a clone; later mutation of the original is invisible.
	p.Progress = 0.5
	loaded, err := svc.Load(ctx, "p1")
	assert.Nil(t, err)
	assert.Zero(t, loaded.Progress)

	_, err = svc.Load(ctx, "missing")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	assert.Nil(t, svc.Delete(ctx, "p1"))
	assert.ErrorIs(t, svc.Delete(ctx, "p1"), dao.ErrNotFound)
}

func TestService_List(t *testing.T) {
	svc := New()
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
