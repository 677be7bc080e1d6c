package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/hexsim/hexsim/internal/keyed"
	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/admission"
	"github.com/hexsim/hexsim/service/effect"
	"github.com/hexsim/hexsim/service/ledger"
	"github.com/hexsim/hexsim/service/registry"
)

// Config represents resolver configuration.
type Config struct {
	// MaxRetries bounds applier attempts before the process is forced to
	// Failed.
	MaxRetries int

	// RetryDelay is the initial backoff delay.
	RetryDelay time.Duration

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration

	// Multiplier grows the delay between attempts.
	Multiplier float64
}

// DefaultConfig returns the default resolver configuration.
func DefaultConfig() Config {
	return Config{
		MaxRetries: 5,
		RetryDelay: time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2,
	}
}

// Hooks let the engine react to terminal outcomes without import cycles.
// All hooks receive clones and run outside any player critical section.
type Hooks struct {
	Completed func(p *model.Process)
	Failed    func(p *model.Process)
	Promoted  func(p *model.Process)
}

// Service applies the completion effect of each finished process exactly
// once. The external mutator call happens outside the player lock while the
// process stays Running with progress pinned at 1.0; its allocation is not
// released until the effect is durably applied, preventing premature
// resource reuse.
type Service struct {
	config    Config
	registry  *registry.Service
	ledger    *ledger.Service
	admission *admission.Service
	effects   *effect.Registry
	applier   effect.Applier
	locks     *keyed.Mutex
	hooks     Hooks

	mu       sync.Mutex
	inflight map[string]bool
}

func New(config Config, registrySvc *registry.Service, ledgerSvc *ledger.Service, admissionSvc *admission.Service,
	effects *effect.Registry, applier effect.Applier, locks *keyed.Mutex, hooks Hooks) *Service {
	if config.MaxRetries <= 0 {
		config.MaxRetries = DefaultConfig().MaxRetries
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = DefaultConfig().RetryDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultConfig().MaxDelay
	}
	if config.Multiplier <= 1 {
		config.Multiplier = DefaultConfig().Multiplier
	}
	return &Service{
		config:    config,
		registry:  registrySvc,
		ledger:    ledgerSvc,
		admission: admissionSvc,
		effects:   effects,
		applier:   applier,
		locks:     locks,
		hooks:     hooks,
		inflight:  map[string]bool{},
	}
}

// Resolve drives a process that reached 1.0 progress to Completed. It is
// idempotent: duplicated completion signals for the same process result in a
// single effect application; once the registry shows Completed every further
// invocation no-ops.
func (s *Service) Resolve(ctx context.Context, player, id string) error {
	s.mu.Lock()
	if s.inflight[id] {
		s.mu.Unlock()
		return nil
	}
	s.inflight[id] = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
	}()

	e, ok, err := s.pin(ctx, player, id)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	delay := s.config.RetryDelay
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		applyErr := s.applier.Apply(ctx, e)
		if applyErr == nil {
			return s.finalize(ctx, player, id, model.StateCompleted)
		}
		if errors.Is(applyErr, effect.ErrFatal) {
			log.Printf("resolver: fatal effect for process %s: %v", id, applyErr)
			return s.finalize(ctx, player, id, model.StateFailed)
		}
		log.Printf("resolver: retryable effect failure for process %s (attempt %d): %v", id, attempt+1, applyErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * s.config.Multiplier)
		if delay > s.config.MaxDelay {
			delay = s.config.MaxDelay
		}
	}
	return s.finalize(ctx, player, id, model.StateFailed)
}

// pin verifies the process is still Running at 1.0 progress, marks it
// resolving and builds its effect descriptor, all inside the player's
// critical section.
func (s *Service) pin(ctx context.Context, player, id string) (*model.Effect, bool, error) {
	s.locks.Lock(player)
	defer s.locks.Unlock(player)

	p := s.registry.Lookup(player, id)
	if p == nil || p.State.Terminal() {
		// Already resolved, cancelled or failed: nothing to do.
		return nil, false, nil
	}
	if p.State != model.StateRunning || p.Progress < 1 {
		return nil, false, nil
	}
	if !p.Resolving {
		if err := s.registry.Apply(ctx, p, func(next *model.Process) {
			next.Resolving = true
		}); err != nil {
			return nil, false, err
		}
	}
	e, err := s.effects.Build(p)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build effect for process %s: %w", id, err)
	}
	return e, true, nil
}

// finalize drives the pinned process to a terminal state. The terminal write
// retries under the same capped backoff as the effect application: the
// Resolving pin guarantees the effect cannot be re-applied while the store
// recovers. When the retry budget runs out the process is forced to Failed in
// memory with its allocation released, so a persistence outage cannot strand
// a pinned process holding resources forever.
func (s *Service) finalize(ctx context.Context, player, id string, to model.State) error {
	delay := s.config.RetryDelay
	var err error
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * s.config.Multiplier)
			if delay > s.config.MaxDelay {
				delay = s.config.MaxDelay
			}
		}
		if err = s.record(ctx, player, id, to); err == nil {
			return nil
		}
		log.Printf("resolver: failed to record %s outcome for process %s (attempt %d): %v", to, id, attempt+1, err)
	}
	s.abandon(player, id)
	return err
}

// record performs a single terminal-transition attempt, releasing the
// allocation and promoting queued work on success.
func (s *Service) record(ctx context.Context, player, id string, to model.State) error {
	s.locks.Lock(player)
	p := s.registry.Lookup(player, id)
	if p == nil || p.State.Terminal() {
		s.locks.Unlock(player)
		return nil
	}
	allocated := p.Allocated
	err := s.registry.Transition(ctx, p, to, func(next *model.Process) {
		next.Allocated = model.Resources{}
		if to == model.StateCompleted {
			next.Progress = 1
		}
	})
	if err != nil {
		// The effect is applied but the transition did not persist; keep the
		// allocation and the resolving pin until the caller retries.
		s.locks.Unlock(player)
		return err
	}
	s.ledger.Release(player, allocated)
	var promoted []*model.Process
	for _, q := range s.admission.Reevaluate(ctx, player) {
		promoted = append(promoted, q.Clone())
	}
	outcome := p.Clone()
	s.locks.Unlock(player)

	for _, q := range promoted {
		if s.hooks.Promoted != nil {
			s.hooks.Promoted(q)
		}
	}
	switch to {
	case model.StateCompleted:
		if s.hooks.Completed != nil {
			s.hooks.Completed(outcome)
		}
	case model.StateFailed:
		if s.hooks.Failed != nil {
			s.hooks.Failed(outcome)
		}
	}
	return nil
}

// abandon gives up on persisting the terminal write and forces the process
// to Failed in memory so its allocation is freed and the record stops being
// pinned. The scheduler never re-hands a terminal process, so the applied
// effect stays applied exactly once for this engine run.
func (s *Service) abandon(player, id string) {
	s.locks.Lock(player)
	p := s.registry.Lookup(player, id)
	if p == nil || p.State.Terminal() {
		s.locks.Unlock(player)
		return
	}
	allocated := p.Allocated
	s.registry.Force(p, model.StateFailed, func(next *model.Process) {
		next.Allocated = model.Resources{}
	})
	s.ledger.Release(player, allocated)
	var promoted []*model.Process
	for _, q := range s.admission.Reevaluate(context.Background(), player) {
		promoted = append(promoted, q.Clone())
	}
	outcome := p.Clone()
	s.locks.Unlock(player)

	for _, q := range promoted {
		if s.hooks.Promoted != nil {
			s.hooks.Promoted(q)
		}
	}
	if s.hooks.Failed != nil {
		s.hooks.Failed(outcome)
	}
}
