package effect

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"

	"github.com/viant/x"

	"github.com/hexsim/hexsim/internal/clock"
	"github.com/hexsim/hexsim/model"
)

// ErrFatal marks an applier failure that must not be retried; the resolver
// force-fails the process instead of backing off. Wrap with fmt.Errorf + %w
// to attach detail.
var ErrFatal = errors.New("effect: fatal")

// Applier is the external game-state mutator invoked by the completion
// resolver, exactly once per process lifetime. Any non-fatal error is
// treated as retryable.
type Applier interface {
	Apply(ctx context.Context, e *model.Effect) error
}

// ApplierFunc adapts a plain function to the Applier interface.
type ApplierFunc func(ctx context.Context, e *model.Effect) error

func (f ApplierFunc) Apply(ctx context.Context, e *model.Effect) error { return f(ctx, e) }

// Builder produces the payload a finished process of one type contributes to
// its effect descriptor.
type Builder func(p *model.Process) (interface{}, error)

// Registry maps process types to effect payload builders, and keeps a type
// registry so consumers can decode payloads back into Go values by kind.
type Registry struct {
	types    *x.Registry
	builders map[model.Type]Builder
}

// NewRegistry creates a registry pre-populated with the built-in payload
// types for every process type the engine knows.
func NewRegistry() *Registry {
	r := &Registry{
		types:    x.NewRegistry(),
		builders: map[model.Type]Builder{},
	}
	r.RegisterPayload(model.TypeFileUpload, TransferPayload{}, transferBuilder)
	r.RegisterPayload(model.TypeFileDownload, TransferPayload{}, transferBuilder)
	r.RegisterPayload(model.TypeBruteforce, AccessPayload{}, accessBuilder)
	r.RegisterPayload(model.TypeOverflow, AccessPayload{}, accessBuilder)
	r.RegisterPayload(model.TypeInstallVirus, InstallPayload{}, installBuilder)
	r.RegisterPayload(model.TypeVirusCollect, CollectPayload{}, collectBuilder)
	r.RegisterPayload(model.TypeBankReveal, AccessPayload{}, accessBuilder)
	r.RegisterPayload(model.TypeWireTransfer, WirePayload{}, wireBuilder)
	r.RegisterPayload(model.TypeLogForger, ForgePayload{}, forgeBuilder)
	return r
}

// RegisterPayload binds a payload prototype and builder to a process type,
// replacing any previous binding.
func (r *Registry) RegisterPayload(t model.Type, prototype interface{}, builder Builder) {
	r.types.Register(x.NewType(reflect.TypeOf(prototype), x.WithName(string(t))))
	r.builders[t] = builder
}

// PayloadType returns the registered Go type for an effect kind, or nil.
func (r *Registry) PayloadType(kind string) reflect.Type {
	if registered := r.types.Lookup(kind); registered != nil {
		return registered.Type
	}
	return nil
}

// Build assembles the effect descriptor for a process that reached 1.0
// progress.
func (r *Registry) Build(p *model.Process) (*model.Effect, error) {
	e := &model.Effect{
		ProcessID: p.ID,
		Player:    p.Player,
		Kind:      string(p.Type),
		Target:    p.Target,
		CreatedAt: clock.Now(),
	}
	builder, ok := r.builders[p.Type]
	if !ok {
		return e, nil
	}
	payload, err := builder(p)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		e.Payload = data
	}
	return e, nil
}

// Decode unmarshals an effect payload into its registered Go type.
func (r *Registry) Decode(e *model.Effect) (interface{}, error) {
	rType := r.PayloadType(e.Kind)
	if rType == nil || len(e.Payload) == 0 {
		return nil, nil
	}
	value := reflect.New(rType).Interface()
	if err := json.Unmarshal(e.Payload, value); err != nil {
		return nil, err
	}
	return value, nil
}
