package resolver

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hexsim/hexsim/internal/keyed"
	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/admission"
	"github.com/hexsim/hexsim/service/balance"
	"github.com/hexsim/hexsim/service/dao"
	"github.com/hexsim/hexsim/service/dao/process/memory"
	"github.com/hexsim/hexsim/service/effect"
	"github.com/hexsim/hexsim/service/ledger"
	"github.com/hexsim/hexsim/service/registry"
)

type fixture struct {
	ledger    *ledger.Service
	registry  *registry.Service
	admission *admission.Service
	locks     *keyed.Mutex

	mu        sync.Mutex
	completed []*model.Process
	failed    []*model.Process
	promoted  []*model.Process
}

func newFixture(applier effect.Applier, config Config) (*fixture, *Service) {
	return newFixtureStore(memory.New(), applier, config)
}

func newFixtureStore(store dao.Service[string, model.Process], applier effect.Applier, config Config) (*fixture, *Service) {
	f := &fixture{
		ledger:   ledger.New(),
		registry: registry.New(store),
		locks:    keyed.New(),
	}
	f.ledger.SetCapacity("alice", model.Resources{CPU: 100})
	f.admission = admission.New(f.ledger, f.registry, balance.Default(), nil)
	svc := New(config, f.registry, f.ledger, f.admission, effect.NewRegistry(), applier, f.locks, Hooks{
		Completed: func(p *model.Process) {
			f.mu.Lock()
			f.completed = append(f.completed, p)
			f.mu.Unlock()
		},
		Failed: func(p *model.Process) {
			f.mu.Lock()
			f.failed = append(f.failed, p)
			f.mu.Unlock()
		},
		Promoted: func(p *model.Process) {
			f.mu.Lock()
			f.promoted = append(f.promoted, p)
			f.mu.Unlock()
		},
	})
	return f, svc
}

// runAtFull creates a Running process pinned at 1.0 progress.
func (f *fixture) runAtFull(t *testing.T, id string) *model.Process {
	p := &model.Process{
		ID:     id,
		Player: "alice",
		Type:   model.TypeBruteforce,
		Demand: model.Resources{CPU: 60},
	}
	assert.Nil(t, f.registry.Create(context.Background(), p))
	state, err := f.admission.Admit(context.Background(), p)
	assert.Nil(t, err)
	assert.Equal(t, model.StateRunning, state)
	p.Progress = 1
	return p
}

func TestService_ResolveCompletes(t *testing.T) {
	var applied int32
	applier := effect.ApplierFunc(func(_ context.Context, e *model.Effect) error {
		atomic.AddInt32(&applied, 1)
		return nil
	})
	f, svc := newFixture(applier, Config{})

	p := f.runAtFull(t, "p1")
	assert.Nil(t, svc.Resolve(context.Background(), "alice", "p1"))

	assert.EqualValues(t, 1, atomic.LoadInt32(&applied))
	assert.Equal(t, model.StateCompleted, p.State)
	assert.True(t, p.Allocated.IsZero())
	assert.Equal(t, model.Resources{}, f.ledger.Snapshot("alice").Used)
	assert.Len(t, f.completed, 1)
	assert.Empty(t, f.failed)
}

func TestService_ResolveIsIdempotent(t *testing.T) {
	var applied int32
	applier := effect.ApplierFunc(func(_ context.Context, _ *model.Effect) error {
		atomic.AddInt32(&applied, 1)
		return nil
	})
	f, svc := newFixture(applier, Config{})

	f.runAtFull(t, "p1")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Nil(t, svc.Resolve(context.Background(), "alice", "p1"))
		}()
	}
	wg.Wait()
	// A later duplicate signal finds the process Completed and no-ops.
	assert.Nil(t, svc.Resolve(context.Background(), "alice", "p1"))

	assert.EqualValues(t, 1, atomic.LoadInt32(&applied))
	assert.Len(t, f.completed, 1)
}

func TestService_ResolveSkipsUnfinished(t *testing.T) {
	var applied int32
	applier := effect.ApplierFunc(func(_ context.Context, _ *model.Effect) error {
		atomic.AddInt32(&applied, 1)
		return nil
	})
	f, svc := newFixture(applier, Config{})

	p := &model.Process{ID: "p1", Player: "alice", Type: model.TypeBruteforce, Demand: model.Resources{CPU: 60}}
	assert.Nil(t, f.registry.Create(context.Background(), p))
	_, err := f.admission.Admit(context.Background(), p)
	assert.Nil(t, err)
	p.Progress = 0.7

	assert.Nil(t, svc.Resolve(context.Background(), "alice", "p1"))
	assert.Zero(t, atomic.LoadInt32(&applied))
	assert.Equal(t, model.StateRunning, p.State)

	// Unknown processes are equally a no-op.
	assert.Nil(t, svc.Resolve(context.Background(), "alice", "ghost"))
}

func TestService_RetryThenSucceed(t *testing.T) {
	var attempts int32
	applier := effect.ApplierFunc(func(_ context.Context, _ *model.Effect) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return fmt.Errorf("transient failure")
		}
		return nil
	})
	f, svc := newFixture(applier, Config{MaxRetries: 5, RetryDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})

	p := f.runAtFull(t, "p1")
	assert.Nil(t, svc.Resolve(context.Background(), "alice", "p1"))
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
	assert.Equal(t, model.StateCompleted, p.State)
}

func TestService_RetriesExhaustedFails(t *testing.T) {
	var attempts int32
	applier := effect.ApplierFunc(func(_ context.Context, _ *model.Effect) error {
		atomic.AddInt32(&attempts, 1)
		return fmt.Errorf("transient failure")
	})
	f, svc := newFixture(applier, Config{MaxRetries: 3, RetryDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})

	p := f.runAtFull(t, "p1")
	assert.Nil(t, svc.Resolve(context.Background(), "alice", "p1"))
	assert.EqualValues(t, 3, atomic.LoadInt32(&attempts))
	assert.Equal(t, model.StateFailed, p.State)
	// The allocation is only released at the terminal transition.
	assert.Equal(t, model.Resources{}, f.ledger.Snapshot("alice").Used)
	assert.Len(t, f.failed, 1)
	assert.Empty(t, f.completed)
}

func TestService_FatalErrorFailsImmediately(t *testing.T) {
	var attempts int32
	applier := effect.ApplierFunc(func(_ context.Context, _ *model.Effect) error {
		atomic.AddInt32(&attempts, 1)
		return fmt.Errorf("target vanished: %w", effect.ErrFatal)
	})
	f, svc := newFixture(applier, Config{MaxRetries: 5, RetryDelay: time.Millisecond})

	p := f.runAtFull(t, "p1")
	assert.Nil(t, svc.Resolve(context.Background(), "alice", "p1"))
	assert.EqualValues(t, 1, atomic.LoadInt32(&attempts))
	assert.Equal(t, model.StateFailed, p.State)
}

// terminalRejectingStore accepts every write except terminal states,
// simulating a store outage that begins after the effect was applied.
type terminalRejectingStore struct {
	dao.Service[string, model.Process]
}

func (s *terminalRejectingStore) Save(ctx context.Context, p *model.Process) error {
	if p.State.Terminal() {
		return fmt.Errorf("store unavailable")
	}
	return s.Service.Save(ctx, p)
}

func TestService_TerminalWriteOutageForcesFailed(t *testing.T) {
	applier := effect.ApplierFunc(func(_ context.Context, _ *model.Effect) error { return nil })
	store := &terminalRejectingStore{Service: memory.New()}
	f, svc := newFixtureStore(store, applier, Config{MaxRetries: 2, RetryDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond})

	p := f.runAtFull(t, "p1")
	err := svc.Resolve(context.Background(), "alice", "p1")
	assert.NotNil(t, err)

	// The process must not stay pinned holding its allocation: the outcome
	// is forced to Failed in memory and the resources come back.
	assert.Equal(t, model.StateFailed, p.State)
	assert.False(t, p.Resolving)
	assert.True(t, p.Allocated.IsZero())
	assert.Equal(t, model.Resources{}, f.ledger.Snapshot("alice").Used)
	assert.Len(t, f.failed, 1)
	assert.Empty(t, f.completed)

	// The store still holds the pre-outage record; only the next successful
	// write re-syncs it.
	stored, loadErr := store.Load(context.Background(), "p1")
	assert.Nil(t, loadErr)
	assert.Equal(t, model.StateRunning, stored.State)
}

func TestService_CompletionPromotesQueued(t *testing.T) {
	applier := effect.ApplierFunc(func(_ context.Context, _ *model.Effect) error { return nil })
	f, svc := newFixture(applier, Config{})

	p := f.runAtFull(t, "p1")
	_ = p

	waiting := &model.Process{ID: "p2", Player: "alice", Type: model.TypeBruteforce, Demand: model.Resources{CPU: 60}}
	assert.Nil(t, f.registry.Create(context.Background(), waiting))
	state, err := f.admission.Admit(context.Background(), waiting)
	assert.Nil(t, err)
	assert.Equal(t, model.StateQueued, state)

	assert.Nil(t, svc.Resolve(context.Background(), "alice", "p1"))
	assert.Len(t, f.promoted, 1)
	assert.Equal(t, "p2", f.promoted[0].ID)
	assert.Equal(t, model.StateRunning, waiting.State)
}
