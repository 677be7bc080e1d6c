package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type payload struct {
	Value int
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx := context.Background()

	assert.Nil(t, queue.Publish(ctx, &payload{Value: 42}))
	assert.Equal(t, 1, queue.Size())

	msg, err := queue.Consume(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 42, msg.T().Value)
	assert.Nil(t, msg.Ack())
	// Double acknowledgement is rejected.
	assert.NotNil(t, msg.Ack())
}

func TestQueue_ConsumeHonoursContext(t *testing.T) {
	queue := NewQueue[payload](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := queue.Consume(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestQueue_NackRetriesThenDrops(t *testing.T) {
	queue := NewQueue[payload](Config{MaxRetries: 2, RetryDelay: time.Millisecond, QueueBuffer: 10})
	ctx := context.Background()

	assert.Nil(t, queue.Publish(ctx, &payload{Value: 7}))
	for i := 0; i < 3; i++ {
		consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
		msg, err := queue.Consume(consumeCtx)
		cancel()
		assert.Nil(t, err)
		assert.Nil(t, msg.Nack(fmt.Errorf("handler failed")))
	}

	// Retries are exhausted; the message must not reappear.
	consumeCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_, err := queue.Consume(consumeCtx)
	assert.NotNil(t, err)
}
