package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hexsim/hexsim/model"
)

func TestService_ReserveAllOrNothing(t *testing.T) {
	svc := New()
	svc.SetCapacity("alice", model.Resources{CPU: 100, RAM: 512, HDD: 50, Net: 50})

	err := svc.Reserve("alice", model.Resources{CPU: 60, RAM: 256, HDD: 10, Net: 10})
	assert.Nil(t, err)

	// CPU would fit but RAM would not; nothing may be reserved.
	before := svc.Snapshot("alice")
	err = svc.Reserve("alice", model.Resources{CPU: 10, RAM: 300})
	assert.ErrorIs(t, err, model.ErrInsufficientResources)
	assert.Equal(t, before, svc.Snapshot("alice"))

	// Exact fit on the remaining free capacity succeeds.
	err = svc.Reserve("alice", model.Resources{CPU: 40, RAM: 256, HDD: 40, Net: 40})
	assert.Nil(t, err)
	assert.Equal(t, model.Resources{}, svc.Snapshot("alice").Free)
}

func TestService_ReleaseClamps(t *testing.T) {
	svc := New()
	svc.SetCapacity("alice", model.Resources{CPU: 100})
	assert.Nil(t, svc.Reserve("alice", model.Resources{CPU: 30}))

	svc.Release("alice", model.Resources{CPU: 50})
	snapshot := svc.Snapshot("alice")
	assert.Equal(t, model.Resources{}, snapshot.Used)
	assert.Equal(t, model.Resources{CPU: 100}, snapshot.Free)
}

func TestService_CapacityReductionBelowUsage(t *testing.T) {
	svc := New()
	svc.SetCapacity("alice", model.Resources{CPU: 100})
	assert.Nil(t, svc.Reserve("alice", model.Resources{CPU: 80}))

	// Shrinking below current usage is accepted; nothing is evicted and free
	// capacity clamps at zero.
	svc.SetCapacity("alice", model.Resources{CPU: 50})
	snapshot := svc.Snapshot("alice")
	assert.Equal(t, model.Resources{CPU: 80}, snapshot.Used)
	assert.Equal(t, model.Resources{}, snapshot.Free)
	assert.ErrorIs(t, svc.Reserve("alice", model.Resources{CPU: 1}), model.ErrInsufficientResources)

	// Usage drains as processes finish; admissions resume once free again.
	svc.Release("alice", model.Resources{CPU: 80})
	assert.Nil(t, svc.Reserve("alice", model.Resources{CPU: 50}))
}

func TestService_PlayersAreIndependent(t *testing.T) {
	svc := New()
	svc.SetCapacity("alice", model.Resources{CPU: 10})
	svc.SetCapacity("bob", model.Resources{CPU: 10})

	assert.Nil(t, svc.Reserve("alice", model.Resources{CPU: 10}))
	assert.Nil(t, svc.Reserve("bob", model.Resources{CPU: 10}))
}

func TestService_ConcurrentReserveNeverOversubscribes(t *testing.T) {
	svc := New()
	svc.SetCapacity("alice", model.Resources{CPU: 100})

	var wg sync.WaitGroup
	granted := make(chan struct{}, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if svc.Reserve("alice", model.Resources{CPU: 60}) == nil {
				granted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(granted)

	count := 0
	for range granted {
		count++
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, model.Resources{CPU: 60}, svc.Snapshot("alice").Used)
}
