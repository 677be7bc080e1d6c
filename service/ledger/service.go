package ledger

import (
	"sync"

	"github.com/hexsim/hexsim/model"
)

// Snapshot is a read-only view of one player's resource account.
type Snapshot struct {
	Capacity model.Resources `json:"capacity"`
	Used     model.Resources `json:"used"`
	Free     model.Resources `json:"free"`
}

type account struct {
	mu       sync.Mutex
	capacity model.Resources
	used     model.Resources
}

// Service tracks per-player capacity and current usage for all four
// resource dimensions. Reservation is atomic per player: either every
// requested dimension succeeds or nothing is reserved.
type Service struct {
	mu       sync.RWMutex
	accounts map[string]*account
}

func New() *Service {
	return &Service{accounts: map[string]*account{}}
}

func (s *Service) account(player string) *account {
	s.mu.RLock()
	acc, ok := s.accounts[player]
	s.mu.RUnlock()
	if ok {
		return acc
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok = s.accounts[player]; ok {
		return acc
	}
	acc = &account{}
	s.accounts[player] = acc
	return acc
}

// SetCapacity applies an external hardware change. A reduction below current
// usage is accepted without evicting running processes; new admissions simply
// see zero free capacity on the affected dimensions until usage drains.
func (s *Service) SetCapacity(player string, capacity model.Resources) {
	acc := s.account(player)
	acc.mu.Lock()
	acc.capacity = capacity
	acc.mu.Unlock()
}

// Capacity returns the player's total capacity.
func (s *Service) Capacity(player string) model.Resources {
	acc := s.account(player)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.capacity
}

// Reserve attempts an all-or-nothing reservation of demand against the
// player's free capacity. It returns model.ErrInsufficientResources when any
// dimension cannot be satisfied; in that case nothing is reserved.
func (s *Service) Reserve(player string, demand model.Resources) error {
	acc := s.account(player)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	if !acc.used.Add(demand).Fits(acc.capacity) {
		return model.ErrInsufficientResources
	}
	acc.used = acc.used.Add(demand)
	return nil
}

// Release returns a previously reserved amount to the player's free pool.
// Releasing more than is used clamps at zero rather than corrupting the
// account.
func (s *Service) Release(player string, amount model.Resources) {
	acc := s.account(player)
	acc.mu.Lock()
	acc.used = acc.used.Sub(amount)
	acc.mu.Unlock()
}

// Snapshot returns capacity, used and free per dimension for the player.
func (s *Service) Snapshot(player string) Snapshot {
	acc := s.account(player)
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return Snapshot{
		Capacity: acc.capacity,
		Used:     acc.used,
		Free:     acc.capacity.Sub(acc.used),
	}
}
