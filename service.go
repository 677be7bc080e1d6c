package hexsim

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/hexsim/hexsim/internal/clock"
	"github.com/hexsim/hexsim/internal/idgen"
	"github.com/hexsim/hexsim/internal/keyed"
	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/progress"
	"github.com/hexsim/hexsim/service/admission"
	"github.com/hexsim/hexsim/service/balance"
	"github.com/hexsim/hexsim/service/dao"
	processmem "github.com/hexsim/hexsim/service/dao/process/memory"
	"github.com/hexsim/hexsim/service/effect"
	"github.com/hexsim/hexsim/service/event"
	"github.com/hexsim/hexsim/service/ledger"
	"github.com/hexsim/hexsim/service/messaging"
	"github.com/hexsim/hexsim/service/metrics"
	"github.com/hexsim/hexsim/service/registry"
	"github.com/hexsim/hexsim/service/resolver"
	"github.com/hexsim/hexsim/service/scheduler"
	"github.com/hexsim/hexsim/service/target"
	"github.com/hexsim/hexsim/tracing"
)

// Service is the process execution engine facade. It wires the resource
// ledger, process registry, admission controller, scheduler and completion
// resolver together and exposes the player-facing operations.
type Service struct {
	config *Config

	locks      *keyed.Mutex
	ledger     *ledger.Service
	registry   *registry.Service
	admission  *admission.Service
	scheduler  *scheduler.Service
	resolver   *resolver.Service
	balance    *balance.Service
	balanceCtx admission.ContextFunc
	targets    target.Resolver
	effects    *effect.Registry
	applier    effect.Applier
	events     *event.Service
	metrics    *metrics.Metrics
	tracker    *progress.Tracker
	processDAO dao.Service[string, model.Process]
}

// New creates an engine. Without options it runs fully in memory: memory
// process store, built-in balance table, accept-all target resolver and a
// logging no-op effect applier.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:  DefaultConfig(),
		locks:   keyed.New(),
		tracker: progress.NewTracker(),
	}
	for _, option := range options {
		option(s)
	}
	if err := s.config.Validate(); err != nil {
		return nil, err
	}
	if s.processDAO == nil {
		s.processDAO = processmem.New()
	}
	if s.balance == nil {
		s.balance = balance.Default()
	}
	if s.targets == nil {
		s.targets = target.NewStaticResolver()
	}
	if s.effects == nil {
		s.effects = effect.NewRegistry()
	}
	if s.applier == nil {
		s.applier = effect.ApplierFunc(func(_ context.Context, e *model.Effect) error {
			log.Printf("effect applied: %s on %s for player %s", e.Kind, e.Target, e.Player)
			return nil
		})
	}
	if s.events == nil {
		events, err := event.New(messaging.VendorMemory)
		if err != nil {
			return nil, err
		}
		s.events = events
	}

	s.ledger = ledger.New()
	s.registry = registry.New(s.processDAO)
	s.admission = admission.New(s.ledger, s.registry, s.balance, s.balanceCtx)
	s.resolver = resolver.New(s.config.Resolver, s.registry, s.ledger, s.admission,
		s.effects, s.applier, s.locks, resolver.Hooks{
			Completed: s.onCompleted,
			Failed:    s.onFailed,
			Promoted:  s.onPromoted,
		})
	s.scheduler = scheduler.New(s.config.Scheduler, s.registry, s.locks, scheduler.Hooks{
		Resolve: func(player, id string) {
			go func() {
				if err := s.resolver.Resolve(context.Background(), player, id); err != nil {
					log.Printf("engine: resolution of process %s failed: %v", id, err)
				}
			}()
		},
		Expire: func(player, id string) {
			if err := s.FailProcess(context.Background(), player, id); err != nil {
				log.Printf("engine: failed to expire process %s: %v", id, err)
			}
		},
		Progress: func(p *model.Process) { s.publishUpdate(p) },
	})

	s.tracker.OnChange(s.metrics.Observe)
	return s, nil
}

// Start launches the scheduler loop. It returns when the context is
// cancelled or Shutdown is called.
func (s *Service) Start(ctx context.Context) error {
	return s.scheduler.Start(ctx)
}

// Shutdown stops the scheduler loop.
func (s *Service) Shutdown() {
	s.scheduler.Shutdown()
}

// SetCapacity applies an external hardware change for a player and promotes
// queued work that the new capacity can satisfy.
func (s *Service) SetCapacity(ctx context.Context, player string, capacity model.Resources) {
	s.locks.Lock(player)
	s.ledger.SetCapacity(player, capacity)
	promoted := clonePromoted(s.admission.Reevaluate(ctx, player))
	s.locks.Unlock(player)
	for _, p := range promoted {
		s.onPromoted(p)
	}
}

// StartProcess admits a new operation for the player. The returned clone is
// in state Running with an ETA set, or Queued awaiting capacity. A demand
// that exceeds the player's total capacity on any dimension is rejected with
// model.ErrInsufficientResources and no process is created.
func (s *Service) StartProcess(ctx context.Context, player string, processType model.Type, targetRef string, priority model.Priority) (p *model.Process, err error) {
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("engine.StartProcess %s", processType), "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	if !processType.Valid() {
		return nil, fmt.Errorf("unknown process type %q", processType)
	}
	demand, err := s.balance.Demand(processType)
	if err != nil {
		return nil, err
	}
	if err = s.targets.Resolve(ctx, targetRef); err != nil {
		return nil, err
	}
	if priority == 0 {
		priority = model.PriorityNormal
	}

	s.locks.Lock(player)
	if err = s.admission.Runnable(player, demand); err != nil {
		s.locks.Unlock(player)
		return nil, err
	}
	proc := &model.Process{
		ID:          idgen.New(),
		Player:      player,
		Type:        processType,
		Target:      targetRef,
		Priority:    priority,
		Demand:      demand,
		Cancellable: s.balance.Cancellable(processType),
	}
	if err = s.registry.Create(ctx, proc); err != nil {
		s.locks.Unlock(player)
		return nil, err
	}
	state, err := s.admission.Admit(ctx, proc)
	if err != nil {
		// Admission could not be persisted; undo the creation so the caller
		// sees no process at all.
		if discardErr := s.registry.Discard(ctx, proc); discardErr != nil {
			log.Printf("engine: failed to discard process %s: %v", proc.ID, discardErr)
		}
		s.locks.Unlock(player)
		return nil, err
	}
	clone := proc.Clone()
	s.locks.Unlock(player)

	switch state {
	case model.StateRunning:
		s.scheduler.Schedule(clone)
		s.tracker.Update(player, progress.Delta{Running: 1})
		s.metrics.Admitted(string(processType))
	case model.StateQueued:
		s.tracker.Update(player, progress.Delta{Queued: 1})
		s.metrics.Queued()
	}
	s.publishUpdate(clone)
	return clone, nil
}

// CancelProcess stops a Queued, Running or Paused process, discarding its
// pending completion effect. A process whose resolution has begun can no
// longer be cancelled; one that already finished reports a lost race.
func (s *Service) CancelProcess(ctx context.Context, player, id string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "engine.CancelProcess", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	s.locks.Lock(player)
	p := s.registry.Lookup(player, id)
	if p == nil {
		s.locks.Unlock(player)
		return model.ErrProcessNotFound
	}
	if p.State.Terminal() {
		s.locks.Unlock(player)
		return fmt.Errorf("process already %s: %w", p.State, model.ErrConcurrencyConflict)
	}
	if p.Resolving {
		s.locks.Unlock(player)
		return fmt.Errorf("completion resolution in flight: %w", model.ErrInvalidStateTransition)
	}
	if p.State == model.StateRunning && !p.Cancellable {
		s.locks.Unlock(player)
		return model.ErrNotCancellable
	}

	prior := p.State
	if prior == model.StateQueued {
		s.admission.Remove(player, id)
	}
	allocated := p.Allocated
	now := clock.Now()
	err = s.registry.Transition(ctx, p, model.StateCancelled, func(next *model.Process) {
		next.Progress = next.ProgressAt(now)
		if next.State == model.StateRunning && next.StartedAt != nil {
			next.Elapsed += now.Sub(*next.StartedAt)
		}
		next.Allocated = model.Resources{}
		if !next.Type.SupportsCheckpoint() {
			next.Checkpoint = nil
		}
	})
	if err != nil {
		s.locks.Unlock(player)
		return err
	}
	var promoted []*model.Process
	if prior == model.StateRunning {
		s.ledger.Release(player, allocated)
		promoted = clonePromoted(s.admission.Reevaluate(ctx, player))
	}
	clone := p.Clone()
	s.locks.Unlock(player)

	s.scheduler.Wake()
	for _, q := range promoted {
		s.onPromoted(q)
	}
	delta := progress.Delta{Cancelled: 1}
	switch prior {
	case model.StateQueued:
		delta.Queued = -1
	case model.StateRunning:
		delta.Running = -1
	case model.StatePaused:
		delta.Paused = -1
	}
	s.tracker.Update(player, delta)
	s.metrics.Cancelled()
	s.publishUpdate(clone)
	return nil
}

// PauseProcess suspends a Running process, releasing its allocation while
// preserving accumulated progress and checkpoint.
func (s *Service) PauseProcess(ctx context.Context, player, id string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "engine.PauseProcess", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	s.locks.Lock(player)
	p := s.registry.Lookup(player, id)
	if p == nil {
		s.locks.Unlock(player)
		return model.ErrProcessNotFound
	}
	if p.Resolving {
		s.locks.Unlock(player)
		return fmt.Errorf("completion resolution in flight: %w", model.ErrInvalidStateTransition)
	}
	if p.State != model.StateRunning {
		s.locks.Unlock(player)
		return fmt.Errorf("%s -> %s: %w", p.State, model.StatePaused, model.ErrInvalidStateTransition)
	}
	allocated := p.Allocated
	now := clock.Now()
	err = s.registry.Transition(ctx, p, model.StatePaused, func(next *model.Process) {
		next.Progress = next.ProgressAt(now)
		if next.StartedAt != nil {
			next.Elapsed += now.Sub(*next.StartedAt)
		}
		next.Allocated = model.Resources{}
	})
	if err != nil {
		s.locks.Unlock(player)
		return err
	}
	s.ledger.Release(player, allocated)
	promoted := clonePromoted(s.admission.Reevaluate(ctx, player))
	clone := p.Clone()
	s.locks.Unlock(player)

	s.scheduler.Wake()
	for _, q := range promoted {
		s.onPromoted(q)
	}
	s.tracker.Update(player, progress.Delta{Running: -1, Paused: 1})
	s.publishUpdate(clone)
	return nil
}

// ResumeProcess re-reserves resources for a Paused process. When free
// capacity is insufficient the process stays Paused and
// model.ErrInsufficientResources is returned.
func (s *Service) ResumeProcess(ctx context.Context, player, id string) (err error) {
	ctx, span := tracing.StartSpan(ctx, "engine.ResumeProcess", "INTERNAL")
	defer func() { tracing.EndSpan(span, err) }()

	s.locks.Lock(player)
	p := s.registry.Lookup(player, id)
	if p == nil {
		s.locks.Unlock(player)
		return model.ErrProcessNotFound
	}
	if p.State != model.StatePaused {
		s.locks.Unlock(player)
		return fmt.Errorf("%s -> %s: %w", p.State, model.StateRunning, model.ErrInvalidStateTransition)
	}
	if err = s.admission.Resume(ctx, p); err != nil {
		s.locks.Unlock(player)
		return err
	}
	clone := p.Clone()
	s.locks.Unlock(player)

	s.scheduler.Schedule(clone)
	s.tracker.Update(player, progress.Delta{Paused: -1, Running: 1})
	s.publishUpdate(clone)
	return nil
}

// FailProcess force-fails an active process: target permanently invalid or
// lifetime deadline exceeded. Resources are released and queued work is
// re-evaluated exactly as for cancellation.
func (s *Service) FailProcess(ctx context.Context, player, id string) error {
	s.locks.Lock(player)
	p := s.registry.Lookup(player, id)
	if p == nil {
		s.locks.Unlock(player)
		return model.ErrProcessNotFound
	}
	if p.State.Terminal() || p.Resolving {
		s.locks.Unlock(player)
		return nil
	}
	prior := p.State
	if prior == model.StateQueued {
		s.admission.Remove(player, id)
	}
	allocated := p.Allocated
	now := clock.Now()
	err := s.registry.Transition(ctx, p, model.StateFailed, func(next *model.Process) {
		next.Progress = next.ProgressAt(now)
		next.Allocated = model.Resources{}
	})
	if err != nil {
		s.locks.Unlock(player)
		return err
	}
	var promoted []*model.Process
	if prior == model.StateRunning {
		s.ledger.Release(player, allocated)
		promoted = clonePromoted(s.admission.Reevaluate(ctx, player))
	}
	clone := p.Clone()
	s.locks.Unlock(player)

	s.scheduler.Wake()
	for _, q := range promoted {
		s.onPromoted(q)
	}
	delta := progress.Delta{Failed: 1}
	switch prior {
	case model.StateQueued:
		delta.Queued = -1
	case model.StateRunning:
		delta.Running = -1
	case model.StatePaused:
		delta.Paused = -1
	}
	s.tracker.Update(player, delta)
	s.metrics.Failed()
	s.publishUpdate(clone)
	return nil
}

// FailTarget force-fails every active process aimed at a target that became
// permanently invalid.
func (s *Service) FailTarget(ctx context.Context, targetRef string) {
	for _, p := range s.registry.ListAll(model.StateQueued, model.StateRunning, model.StatePaused) {
		if p.Target != targetRef {
			continue
		}
		if err := s.FailProcess(ctx, p.Player, p.ID); err != nil {
			log.Printf("engine: failed to fail process %s for target %s: %v", p.ID, targetRef, err)
		}
	}
}

// Checkpoint records opaque partial-work state for an active process whose
// type supports it, so pause and cancel can preserve work already done.
func (s *Service) Checkpoint(ctx context.Context, player, id string, payload []byte) error {
	s.locks.Lock(player)
	defer s.locks.Unlock(player)
	p := s.registry.Lookup(player, id)
	if p == nil {
		return model.ErrProcessNotFound
	}
	if p.State.Terminal() {
		return fmt.Errorf("process already %s: %w", p.State, model.ErrConcurrencyConflict)
	}
	if !p.Type.SupportsCheckpoint() {
		return fmt.Errorf("process type %s does not support checkpoints", p.Type)
	}
	return s.registry.Apply(ctx, p, func(next *model.Process) {
		next.Checkpoint = append([]byte(nil), payload...)
	})
}

// ListProcesses returns clones of the player's processes, optionally
// filtered by state.
func (s *Service) ListProcesses(ctx context.Context, player string, states ...model.State) []*model.Process {
	return s.registry.List(ctx, player, states...)
}

// GetProcess returns a clone of one process or model.ErrProcessNotFound.
func (s *Service) GetProcess(ctx context.Context, player, id string) (*model.Process, error) {
	return s.registry.Get(ctx, player, id)
}

// GetResourceUsage returns capacity, used and free per dimension.
func (s *Service) GetResourceUsage(_ context.Context, player string) ledger.Snapshot {
	return s.ledger.Snapshot(player)
}

// Counters returns the player's aggregated process counters.
func (s *Service) Counters(player string) progress.Counters {
	return s.tracker.Snapshot(player)
}

// Events exposes the engine's notification fan-out for downstream
// subscribers (websocket hub, UI).
func (s *Service) Events() *event.Service {
	return s.events
}

// Restore loads persisted processes back into the engine after a restart.
// Running processes resume from their accumulated progress with downtime
// excluded; queued processes rejoin the wait queue in their original order.
func (s *Service) Restore(ctx context.Context) error {
	records, err := s.processDAO.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list persisted processes: %w", err)
	}
	for _, p := range records {
		s.locks.Lock(p.Player)
		// Refresh the record before Adopt publishes it to the read paths.
		if p.State == model.StateRunning {
			p.Resolving = false
			if reserveErr := s.ledger.Reserve(p.Player, p.Allocated); reserveErr != nil {
				log.Printf("engine: cannot re-reserve for process %s: %v", p.ID, reserveErr)
			}
			now := clock.Now()
			// Downtime is excluded: resume from the last recorded progress.
			p.Elapsed = time.Duration(p.Progress * float64(p.Duration))
			at := now
			p.StartedAt = &at
			eta := p.ETAAt(now)
			p.ETA = &eta
			if saveErr := s.registry.Save(ctx, p); saveErr != nil {
				log.Printf("engine: failed to refresh restored process %s: %v", p.ID, saveErr)
			}
		}
		s.registry.Adopt(p)
		switch p.State {
		case model.StateRunning:
			s.scheduler.Schedule(p.Clone())
			s.tracker.Update(p.Player, progress.Delta{Running: 1})
		case model.StateQueued:
			s.admission.Enqueue(p)
			s.tracker.Update(p.Player, progress.Delta{Queued: 1})
		case model.StatePaused:
			s.tracker.Update(p.Player, progress.Delta{Paused: 1})
		}
		s.locks.Unlock(p.Player)
	}
	return nil
}

// onPromoted is invoked with a clone of each process the admission
// controller moved from Queued to Running.
func (s *Service) onPromoted(p *model.Process) {
	s.scheduler.Schedule(p)
	s.tracker.Update(p.Player, progress.Delta{Queued: -1, Running: 1})
	s.metrics.Promoted()
	s.publishUpdate(p)
}

func (s *Service) onCompleted(p *model.Process) {
	s.tracker.Update(p.Player, progress.Delta{Running: -1, Completed: 1})
	s.metrics.Completed(string(p.Type))
	s.publishUpdate(p)
	s.publishCompleted(p)
}

func (s *Service) onFailed(p *model.Process) {
	s.tracker.Update(p.Player, progress.Delta{Running: -1, Failed: 1})
	s.metrics.Failed()
	s.publishUpdate(p)
}

func (s *Service) publishUpdate(p *model.Process) {
	publisher, err := event.PublisherOf[event.ProcessUpdate](s.events)
	if err != nil {
		return
	}
	eCtx := &event.Context{ProcessID: p.ID, Player: p.Player, EventType: event.TypeProcessUpdate}
	update := event.ProcessUpdate{ProcessID: p.ID, Player: p.Player, State: p.State, Progress: p.Progress}
	if err = publisher.Publish(context.Background(), event.NewEvent(eCtx, update)); err != nil {
		log.Printf("engine: failed to publish process update: %v", err)
	}
}

func (s *Service) publishCompleted(p *model.Process) {
	publisher, err := event.PublisherOf[event.ProcessCompleted](s.events)
	if err != nil {
		return
	}
	eCtx := &event.Context{ProcessID: p.ID, Player: p.Player, EventType: event.TypeProcessCompleted}
	completed := event.ProcessCompleted{ProcessID: p.ID, Player: p.Player}
	if err = publisher.Publish(context.Background(), event.NewEvent(eCtx, completed)); err != nil {
		log.Printf("engine: failed to publish process completion: %v", err)
	}
}

func clonePromoted(promoted []*model.Process) []*model.Process {
	out := make([]*model.Process, 0, len(promoted))
	for _, p := range promoted {
		out = append(out, p.Clone())
	}
	return out
}
