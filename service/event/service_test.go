package event

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/messaging"
)

func TestService_TypedPublishSubscribe(t *testing.T) {
	svc, err := New(messaging.VendorMemory)
	assert.Nil(t, err)

	var mu sync.Mutex
	var received []*Event[ProcessUpdate]
	err = SetListenerOf(svc, func(e *Event[ProcessUpdate]) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	})
	assert.Nil(t, err)

	publisher, err := PublisherOf[ProcessUpdate](svc)
	assert.Nil(t, err)

	eCtx := &Context{ProcessID: "p1", Player: "alice", EventType: TypeProcessUpdate}
	update := ProcessUpdate{ProcessID: "p1", Player: "alice", State: model.StateRunning, Progress: 0.5}
	assert.Nil(t, publisher.Publish(context.Background(), NewEvent(eCtx, update)))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		count := len(received)
		mu.Unlock()
		if count > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, received, 1)
	assert.Equal(t, "p1", received[0].Context.ProcessID)
	assert.Equal(t, model.StateRunning, received[0].Data.State)
}

func TestService_AnyListenerMirrorsTypedEvents(t *testing.T) {
	svc, err := New(messaging.VendorMemory)
	assert.Nil(t, err)

	var mu sync.Mutex
	var types []string
	svc.SetListener(func(e *Event[any]) {
		mu.Lock()
		types = append(types, e.Context.EventType)
		mu.Unlock()
	})

	updates, err := PublisherOf[ProcessUpdate](svc)
	assert.Nil(t, err)
	completions, err := PublisherOf[ProcessCompleted](svc)
	assert.Nil(t, err)

	ctx := context.Background()
	assert.Nil(t, updates.Publish(ctx, NewEvent(&Context{EventType: TypeProcessUpdate}, ProcessUpdate{})))
	assert.Nil(t, completions.Publish(ctx, NewEvent(&Context{EventType: TypeProcessCompleted}, ProcessCompleted{})))

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		count := len(types)
		mu.Unlock()
		if count == 2 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, types, 2)
	assert.Contains(t, types, TypeProcessUpdate)
	assert.Contains(t, types, TypeProcessCompleted)
}

func TestNew_UnsupportedVendor(t *testing.T) {
	_, err := New(messaging.Vendor("bogus"))
	assert.NotNil(t, err)
}
