package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/hexsim/hexsim/internal/clock"
	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/dao"
)

// Service is the single source of truth for process state. Every mutation is
// written through to the backing store before the in-memory record changes;
// a failed write aborts the mutation and leaves the prior state
// authoritative.
//
// Callers mutate a given player's processes only inside that player's
// critical section, and only through Transition, Apply or Force: those
// install the mutated record under the internal write lock, so read paths
// cloning under the read lock never observe a half-written record.
type Service struct {
	store dao.Service[string, model.Process]

	mu       sync.RWMutex
	byID     map[string]*model.Process
	byPlayer map[string]map[string]*model.Process
}

func New(store dao.Service[string, model.Process]) *Service {
	return &Service{
		store:    store,
		byID:     map[string]*model.Process{},
		byPlayer: map[string]map[string]*model.Process{},
	}
}

// Create persists and indexes a new process in Queued state.
func (s *Service) Create(ctx context.Context, p *model.Process) error {
	now := clock.Now()
	p.State = model.StateQueued
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := s.store.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to persist process %s: %w", p.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = p
	players := s.byPlayer[p.Player]
	if players == nil {
		players = map[string]*model.Process{}
		s.byPlayer[p.Player] = players
	}
	players[p.ID] = p
	return nil
}

// Adopt indexes an already-persisted process without writing it back, used
// when restoring engine state from the store.
func (s *Service) Adopt(p *model.Process) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[p.ID] = p
	players := s.byPlayer[p.Player]
	if players == nil {
		players = map[string]*model.Process{}
		s.byPlayer[p.Player] = players
	}
	players[p.ID] = p
}

// Discard removes a process from the store and indexes. Used to undo a
// creation whose admission could not be persisted.
func (s *Service) Discard(ctx context.Context, p *model.Process) error {
	s.mu.Lock()
	delete(s.byID, p.ID)
	if players := s.byPlayer[p.Player]; players != nil {
		delete(players, p.ID)
	}
	s.mu.Unlock()
	return s.store.Delete(ctx, p.ID)
}

// Lookup returns the live record for id, owned by player, or nil. The
// returned pointer must only be mutated inside the player's critical
// section.
func (s *Service) Lookup(player, id string) *model.Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p := s.byID[id]
	if p == nil || p.Player != player {
		return nil
	}
	return p
}

// Get returns a clone of the process, or model.ErrProcessNotFound.
func (s *Service) Get(_ context.Context, player, id string) (*model.Process, error) {
	p := s.Lookup(player, id)
	if p == nil {
		return nil, model.ErrProcessNotFound
	}
	return p.Clone(), nil
}

// List returns clones of the player's processes, optionally narrowed to the
// supplied states, ordered by creation time.
func (s *Service) List(_ context.Context, player string, states ...model.State) []*model.Process {
	s.mu.RLock()
	var out []*model.Process
	for _, p := range s.byPlayer[player] {
		if len(states) > 0 && !stateIn(p.State, states) {
			continue
		}
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ListAll returns clones of processes in the supplied states across all
// players. Used by background sweeps; per-player ordering is not defined.
func (s *Service) ListAll(states ...model.State) []*model.Process {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Process
	for _, p := range s.byID {
		if len(states) > 0 && !stateIn(p.State, states) {
			continue
		}
		out = append(out, p.Clone())
	}
	return out
}

// Transition validates the state change against the state machine, applies
// the optional mutations together with the new state to a copy, persists the
// copy and only then updates the live record. Terminal transitions stamp
// FinishedAt and drop the ETA.
func (s *Service) Transition(ctx context.Context, p *model.Process, to model.State, mutate ...func(*model.Process)) error {
	if !p.State.CanTransition(to) {
		return fmt.Errorf("%s -> %s: %w", p.State, to, model.ErrInvalidStateTransition)
	}
	now := clock.Now()
	next := p.Clone()
	for _, m := range mutate {
		m(next)
	}
	next.State = to
	next.UpdatedAt = now
	switch to {
	case model.StateRunning:
		at := now
		next.StartedAt = &at
	case model.StatePaused:
		next.StartedAt = nil
		next.ETA = nil
	}
	if to.Terminal() {
		at := now
		next.FinishedAt = &at
		next.StartedAt = nil
		next.ETA = nil
		next.Resolving = false
	}
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to persist transition of %s to %s: %w", p.ID, to, err)
	}
	s.install(p, next)
	return nil
}

// Apply persists non-transition mutations (progress, checkpoint, resolving
// flag) and only then installs them on the live record. A failed write
// leaves the record untouched.
func (s *Service) Apply(ctx context.Context, p *model.Process, mutate func(*model.Process)) error {
	next := p.Clone()
	mutate(next)
	next.UpdatedAt = clock.Now()
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to persist process %s: %w", p.ID, err)
	}
	s.install(p, next)
	return nil
}

// Force moves the live record to a terminal state without the write-through
// step. Last resort for an outcome that is already decided but whose
// persistence keeps failing; the store disagrees until the next restart.
func (s *Service) Force(p *model.Process, to model.State, mutate ...func(*model.Process)) {
	now := clock.Now()
	next := p.Clone()
	for _, m := range mutate {
		m(next)
	}
	next.State = to
	next.UpdatedAt = now
	at := now
	next.FinishedAt = &at
	next.StartedAt = nil
	next.ETA = nil
	next.Resolving = false
	s.install(p, next)
}

// Save persists the record as-is. Only for records not yet published through
// Create or Adopt; a published record must be mutated through Apply.
func (s *Service) Save(ctx context.Context, p *model.Process) error {
	p.UpdatedAt = clock.Now()
	if err := s.store.Save(ctx, p); err != nil {
		return fmt.Errorf("failed to persist process %s: %w", p.ID, err)
	}
	return nil
}

// install swaps the mutated copy into the live record under the index write
// lock, excluding concurrent read-path clones.
func (s *Service) install(p, next *model.Process) {
	s.mu.Lock()
	*p = *next
	s.mu.Unlock()
}

func stateIn(state model.State, states []model.State) bool {
	for _, candidate := range states {
		if state == candidate {
			return true
		}
	}
	return false
}
