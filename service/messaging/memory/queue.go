package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hexsim/hexsim/internal/idgen"
	"github.com/hexsim/hexsim/service/messaging"
)

// Config for the in-memory queue implementation.
type Config struct {
	// MaxRetries bounds redeliveries of a Nacked message; past the budget
	// the message is dropped.
	MaxRetries  int
	RetryDelay  time.Duration
	QueueBuffer int
}

// DefaultConfig returns a standard configuration for the memory queue.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		QueueBuffer: 100,
	}
}

// Message implements messaging.Message for the in-memory queue.
type Message[T any] struct {
	id       string
	payload  T
	queue    *Queue[T]
	attempts int

	mu      sync.Mutex
	settled bool
}

// T returns the message payload.
func (m *Message[T]) T() *T {
	return &m.payload
}

// Ack acknowledges the message as processed successfully.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return fmt.Errorf("message already settled")
	}
	m.settled = true
	return nil
}

// Nack reports a processing failure. Under the retry budget the message is
// redelivered after the retry delay; past it the message is dropped, since
// event delivery is fire-and-forget.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settled {
		return fmt.Errorf("message already settled")
	}
	m.settled = true
	if m.attempts >= m.queue.config.MaxRetries {
		return nil
	}
	redelivery := &Message[T]{
		id:       m.id,
		payload:  m.payload,
		queue:    m.queue,
		attempts: m.attempts + 1,
	}
	go func() {
		time.Sleep(m.queue.config.RetryDelay)
		m.queue.messages <- redelivery
	}()
	return nil
}

// Queue implements an in-memory messaging.Queue.
type Queue[T any] struct {
	messages chan *Message[T]
	config   Config
}

// NewQueue creates a new in-memory queue.
func NewQueue[T any](config Config) *Queue[T] {
	if config.QueueBuffer <= 0 {
		config.QueueBuffer = DefaultConfig().QueueBuffer
	}
	return &Queue[T]{
		messages: make(chan *Message[T], config.QueueBuffer),
		config:   config,
	}
}

// Publish adds a new item to the queue.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	msg := &Message[T]{
		id:      idgen.New(),
		payload: *t,
		queue:   q,
	}
	select {
	case q.messages <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume retrieves a single item from the queue.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	select {
	case msg := <-q.messages:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Size returns the current number of messages in the queue.
func (q *Queue[T]) Size() int {
	return len(q.messages)
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
