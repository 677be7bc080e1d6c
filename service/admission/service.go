package admission

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hexsim/hexsim/internal/clock"
	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/balance"
	"github.com/hexsim/hexsim/service/ledger"
	"github.com/hexsim/hexsim/service/registry"
)

// ContextFunc supplies the balance context (player skill, target defense)
// for a process about to start running.
type ContextFunc func(p *model.Process) balance.Context

// Service decides whether a process receives an allocation now or must
// wait. All methods that touch a player's processes are called inside that
// player's critical section; the internal mutex only guards the queue map.
type Service struct {
	ledger   *ledger.Service
	registry *registry.Service
	balance  *balance.Service
	bctx     ContextFunc

	mu     sync.Mutex
	queues map[string]*playerQueue
	seq    uint64
}

func New(ledgerSvc *ledger.Service, registrySvc *registry.Service, balanceSvc *balance.Service, bctx ContextFunc) *Service {
	if bctx == nil {
		bctx = func(*model.Process) balance.Context { return balance.Context{} }
	}
	return &Service{
		ledger:   ledgerSvc,
		registry: registrySvc,
		balance:  balanceSvc,
		bctx:     bctx,
		queues:   map[string]*playerQueue{},
	}
}

func (s *Service) queue(player string) *playerQueue {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[player]
	if !ok {
		q = &playerQueue{}
		s.queues[player] = q
	}
	return q
}

// Runnable rejects a demand that could never be satisfied: any single
// dimension exceeding the player's total capacity. Demands that merely
// exceed current free capacity are admissible and will queue.
func (s *Service) Runnable(player string, demand model.Resources) error {
	if !demand.Fits(s.ledger.Capacity(player)) {
		return fmt.Errorf("demand exceeds total capacity: %w", model.ErrInsufficientResources)
	}
	return nil
}

// Admit attempts to start a Queued process. On a successful reservation the
// process transitions to Running with its allocation, duration and ETA set;
// otherwise it is enqueued in priority order and stays Queued.
func (s *Service) Admit(ctx context.Context, p *model.Process) (model.State, error) {
	err := s.start(ctx, p)
	if err == nil {
		return model.StateRunning, nil
	}
	if !errors.Is(err, model.ErrInsufficientResources) {
		return p.State, err
	}
	s.enqueue(p)
	return model.StateQueued, nil
}

// Resume re-reserves resources for a Paused process, preserving accumulated
// progress. Unlike admission there is no queueing: when free capacity is
// insufficient the process stays Paused and the caller gets
// model.ErrInsufficientResources.
func (s *Service) Resume(ctx context.Context, p *model.Process) error {
	return s.start(ctx, p)
}

// start reserves and transitions p (Queued or Paused) to Running.
func (s *Service) start(ctx context.Context, p *model.Process) error {
	if err := s.ledger.Reserve(p.Player, p.Demand); err != nil {
		return model.ErrInsufficientResources
	}
	now := clock.Now()
	err := s.registry.Transition(ctx, p, model.StateRunning, func(next *model.Process) {
		next.Allocated = next.Demand
		if next.Duration == 0 {
			next.Duration = s.balance.Duration(next.Type, next.Demand, s.bctx(next))
		}
		eta := now.Add(next.RemainingAt(now))
		next.ETA = &eta
	})
	if err != nil {
		// Persistence refused the transition; the reservation must not leak.
		s.ledger.Release(p.Player, p.Demand)
		return err
	}
	return nil
}

func (s *Service) enqueue(p *model.Process) {
	q := s.queue(p.Player)
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()
	heap.Push(q, &item{process: p, seq: seq})
}

// Enqueue places an already-Queued process on the wait queue without an
// admission attempt. Used when restoring engine state from the store.
func (s *Service) Enqueue(p *model.Process) {
	s.enqueue(p)
}

// Reevaluate walks the player's queue in priority order after capacity has
// been freed, admitting head-of-queue processes for as long as they fit.
// This is a deliberate greedy policy, not optimal bin-packing: a large
// high-priority head blocks smaller processes behind it, which keeps
// promotion order deterministic and starvation-free.
func (s *Service) Reevaluate(ctx context.Context, player string) []*model.Process {
	q := s.queue(player)
	var promoted []*model.Process
	for q.Len() > 0 {
		head := q.items[0].process
		if err := s.start(ctx, head); err != nil {
			break
		}
		heap.Pop(q)
		promoted = append(promoted, head)
	}
	return promoted
}

// Remove drops a Queued process from the wait queue, reporting whether it
// was present.
func (s *Service) Remove(player, processID string) bool {
	return s.queue(player).remove(processID)
}

// QueueDepth returns the number of processes waiting for the player.
func (s *Service) QueueDepth(player string) int {
	return s.queue(player).Len()
}
