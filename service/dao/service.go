package dao

import (
	"context"
)

// Service abstracts persistence of engine records. The engine treats Save as
// a synchronous dependency for state transitions and completions, and
// tolerates eventual consistency for read-only listings.
type Service[K comparable, T any] interface {
	Save(ctx context.Context, t *T) error

	Load(ctx context.Context, id K) (*T, error)

	Delete(ctx context.Context, id K) error

	List(ctx context.Context, parameters ...*Parameter) ([]*T, error)
}
