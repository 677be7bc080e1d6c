package target

import (
	"context"
	"sync"

	"github.com/hexsim/hexsim/model"
)

// Resolver validates target references. The engine consults it at admission
// time and when force-failing processes whose target became permanently
// invalid; everything else about targets is an external concern.
type Resolver interface {
	// Resolve returns nil when the target is valid, or
	// model.ErrTargetInvalid when it cannot be resolved.
	Resolve(ctx context.Context, target string) error
}

// StaticResolver accepts every target except those explicitly invalidated.
// It is the default wiring for tests and the demo command.
type StaticResolver struct {
	mu      sync.RWMutex
	invalid map[string]bool
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{invalid: map[string]bool{}}
}

// Invalidate marks a target as permanently unresolvable.
func (r *StaticResolver) Invalidate(target string) {
	r.mu.Lock()
	r.invalid[target] = true
	r.mu.Unlock()
}

func (r *StaticResolver) Resolve(_ context.Context, target string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if target == "" || r.invalid[target] {
		return model.ErrTargetInvalid
	}
	return nil
}
