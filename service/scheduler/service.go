package scheduler

import (
	"container/heap"
	"context"
	"log"
	"sync"
	"time"

	"github.com/hexsim/hexsim/internal/clock"
	"github.com/hexsim/hexsim/internal/keyed"
	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/registry"
)

// Config represents scheduler configuration.
type Config struct {
	// SweepInterval is how often the lifetime-deadline sweep runs.
	SweepInterval time.Duration

	// MaxLifetime force-fails any non-terminal process older than this.
	// Zero disables the deadline.
	MaxLifetime time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{SweepInterval: 30 * time.Second}
}

// Hooks connects the scheduler to the rest of the engine without import
// cycles. All hooks are invoked outside any player critical section.
type Hooks struct {
	// Resolve is called exactly once per process the scheduler hands off at
	// 1.0 progress, after the process has been marked resolving.
	Resolve func(player, id string)

	// Expire is called for processes that exceeded the maximum lifetime.
	Expire func(player, id string)

	// Progress is called with a clone after each progress advancement.
	Progress func(p *model.Process)
}

// Service advances time-based progress for Running processes and fires
// completions without per-process polling: it sleeps until the earliest
// projected completion across all players and re-arms on every allocation
// change.
type Service struct {
	config   Config
	registry *registry.Service
	locks    *keyed.Mutex
	hooks    Hooks

	mu   sync.Mutex
	heap etaHeap

	wake       chan struct{}
	shutdownCh chan struct{}
	once       sync.Once
}

func New(config Config, registrySvc *registry.Service, locks *keyed.Mutex, hooks Hooks) *Service {
	if config.SweepInterval <= 0 {
		config.SweepInterval = DefaultConfig().SweepInterval
	}
	return &Service{
		config:     config,
		registry:   registrySvc,
		locks:      locks,
		hooks:      hooks,
		wake:       make(chan struct{}, 1),
		shutdownCh: make(chan struct{}),
	}
}

// Schedule registers (or refreshes) the completion projection for a Running
// process and wakes the dispatch loop. Stale projections left behind by
// earlier schedules are discarded on pop.
func (s *Service) Schedule(p *model.Process) {
	if p.ETA == nil {
		return
	}
	s.mu.Lock()
	heap.Push(&s.heap, &entry{at: *p.ETA, player: p.Player, id: p.ID})
	s.mu.Unlock()
	s.Wake()
}

// Wake forces the dispatch loop to recompute its next wake-up time. Called
// after any event that invalidates an ETA (pause, cancellation, capacity
// change).
func (s *Service) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start runs the dispatch loop until the context is cancelled or Shutdown
// is called.
func (s *Service) Start(ctx context.Context) error {
	sweep := time.NewTicker(s.config.SweepInterval)
	defer sweep.Stop()

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if wait, ok := s.nextWait(); ok {
			timer.Reset(wait)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-s.wake:
			// Re-arm with the new nearest ETA.
		case <-timer.C:
			s.dispatchDue(ctx)
		case <-sweep.C:
			s.sweepDeadlines()
		}
	}
}

// Shutdown stops the dispatch loop.
func (s *Service) Shutdown() {
	s.once.Do(func() { close(s.shutdownCh) })
}

// nextWait returns how long to sleep until the nearest projection.
func (s *Service) nextWait() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	head := s.heap.peek()
	if head == nil {
		return 0, false
	}
	wait := head.at.Sub(clock.Now())
	if wait < 0 {
		wait = 0
	}
	return wait, true
}

// dispatchDue pops every projection whose time has passed and advances the
// affected processes. A process that genuinely reached 1.0 is pinned there,
// marked resolving and handed off exactly once; one whose ETA moved (pause,
// drift) is re-inserted with a corrected projection.
func (s *Service) dispatchDue(ctx context.Context) {
	now := clock.Now()
	for {
		s.mu.Lock()
		head := s.heap.peek()
		if head == nil || head.at.After(now) {
			s.mu.Unlock()
			return
		}
		heap.Pop(&s.heap)
		s.mu.Unlock()
		s.advance(ctx, head.player, head.id)
	}
}

func (s *Service) advance(ctx context.Context, player, id string) {
	s.locks.Lock(player)
	p := s.registry.Lookup(player, id)
	if p == nil || p.State != model.StateRunning || p.Resolving {
		// Stale projection: the process paused, finished or was cancelled
		// since this entry was scheduled.
		s.locks.Unlock(player)
		return
	}
	now := clock.Now()
	progress := p.ProgressAt(now)

	if progress >= 1 {
		err := s.registry.Apply(ctx, p, func(next *model.Process) {
			next.Progress = 1
			next.Resolving = true
		})
		if err != nil {
			// The record stays un-pinned; retry shortly.
			s.locks.Unlock(player)
			log.Printf("scheduler: failed to pin process %s at completion: %v", id, err)
			s.mu.Lock()
			heap.Push(&s.heap, &entry{at: now.Add(time.Second), player: player, id: id})
			s.mu.Unlock()
			s.Wake()
			return
		}
		s.locks.Unlock(player)
		if s.hooks.Resolve != nil {
			s.hooks.Resolve(player, id)
		}
		return
	}

	eta := p.ETAAt(now)
	if err := s.registry.Apply(ctx, p, func(next *model.Process) {
		next.Progress = progress
		next.ETA = &eta
	}); err != nil {
		log.Printf("scheduler: failed to save progress for process %s: %v", id, err)
	}
	clone := p.Clone()
	s.locks.Unlock(player)

	s.mu.Lock()
	heap.Push(&s.heap, &entry{at: eta, player: player, id: id})
	s.mu.Unlock()
	s.Wake()

	if s.hooks.Progress != nil {
		s.hooks.Progress(clone)
	}
}

// sweepDeadlines force-fails processes that exceeded the maximum lifetime,
// covering both Running processes stuck behind failing resolution and Queued
// processes starved of capacity.
func (s *Service) sweepDeadlines() {
	if s.config.MaxLifetime <= 0 || s.hooks.Expire == nil {
		return
	}
	cutoff := clock.Now().Add(-s.config.MaxLifetime)
	for _, p := range s.registry.ListAll(model.StateQueued, model.StateRunning, model.StatePaused) {
		if p.CreatedAt.Before(cutoff) {
			s.hooks.Expire(p.Player, p.ID)
		}
	}
}
