package fs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/option"

	"github.com/hexsim/hexsim/internal/idgen"
	"github.com/hexsim/hexsim/service/messaging"
)

// Config holds configuration for the filesystem queue.
type Config struct {
	BasePath     string
	MaxRetries   int
	PollInterval time.Duration
}

// DefaultConfig returns a default filesystem queue configuration.
func DefaultConfig() Config {
	return Config{
		BasePath:     "/tmp/hexsim/queue",
		MaxRetries:   3,
		PollInterval: 100 * time.Millisecond,
	}
}

// Message implements messaging.Message for the filesystem queue.
type Message[T any] struct {
	ID        string    `json:"id"`
	Data      T         `json:"data"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Retries   int       `json:"retries"`

	queue     *Queue[T]
	processed bool
	mu        sync.Mutex
}

// T returns the message payload.
func (m *Message[T]) T() *T {
	return &m.Data
}

// Ack removes the message from the processing directory.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	return m.queue.fs.Delete(context.Background(), m.queue.processingPath(m.ID))
}

// Nack requeues the message, or moves it to the failed directory once the
// retry budget is spent.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	if err != nil {
		m.Error = err.Error()
	}
	m.Retries++

	ctx := context.Background()
	_ = m.queue.fs.Delete(ctx, m.queue.processingPath(m.ID))
	if m.Retries > m.queue.config.MaxRetries {
		return m.queue.write(ctx, m.queue.failedPath(m.ID), m)
	}
	return m.queue.write(ctx, m.queue.pendingPath(m.ID), m)
}

// Queue implements a filesystem-backed messaging.Queue. Pending messages are
// JSON files under pending/; consumption moves them to processing/ so that a
// crashed consumer leaves an inspectable trail.
type Queue[T any] struct {
	fs     afs.Service
	config Config
	mu     sync.Mutex
}

// NewQueue creates a filesystem-backed queue rooted at config.BasePath.
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("base path cannot be empty")
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	return &Queue[T]{fs: fs, config: config}, nil
}

// Publish writes a new pending message.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	msg := &Message[T]{
		ID:        idgen.New(),
		Data:      *t,
		CreatedAt: time.Now(),
	}
	return q.write(ctx, q.pendingPath(msg.ID), msg)
}

// Consume claims the oldest pending message, polling until one appears or
// the context is cancelled.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	for {
		msg, err := q.claim(ctx)
		if err != nil {
			return nil, err
		}
		if msg != nil {
			return msg, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.config.PollInterval):
		}
	}
}

func (q *Queue[T]) claim(ctx context.Context) (*Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	pendingDir := path.Join(q.config.BasePath, "pending")
	objects, err := q.fs.List(ctx, pendingDir, option.NewRecursive(false))
	if err != nil {
		// The directory may not exist until the first publish.
		return nil, nil
	}
	var names []string
	for _, object := range objects {
		if object.IsDir() || !strings.HasSuffix(object.Name(), ".json") {
			continue
		}
		names = append(names, object.Name())
	}
	if len(names) == 0 {
		return nil, nil
	}
	sort.Strings(names)

	location := path.Join(pendingDir, names[0])
	data, err := q.fs.DownloadWithURL(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("failed to read message %s: %w", location, err)
	}
	msg := &Message[T]{queue: q}
	if err = json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", location, err)
	}
	if err = q.write(ctx, q.processingPath(msg.ID), msg); err != nil {
		return nil, err
	}
	if err = q.fs.Delete(ctx, location); err != nil {
		return nil, fmt.Errorf("failed to claim message %s: %w", location, err)
	}
	return msg, nil
}

func (q *Queue[T]) write(ctx context.Context, location string, msg *Message[T]) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message %s: %w", msg.ID, err)
	}
	if err = q.fs.Upload(ctx, location, file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write message %s: %w", location, err)
	}
	return nil
}

func (q *Queue[T]) pendingPath(id string) string {
	return path.Join(q.config.BasePath, "pending", id+".json")
}

func (q *Queue[T]) processingPath(id string) string {
	return path.Join(q.config.BasePath, "processing", id+".json")
}

func (q *Queue[T]) failedPath(id string) string {
	return path.Join(q.config.BasePath, "failed", id+".json")
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
