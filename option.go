package hexsim

import (
	"github.com/hexsim/hexsim/model"
	"github.com/hexsim/hexsim/service/admission"
	"github.com/hexsim/hexsim/service/balance"
	"github.com/hexsim/hexsim/service/dao"
	"github.com/hexsim/hexsim/service/effect"
	"github.com/hexsim/hexsim/service/event"
	"github.com/hexsim/hexsim/service/metrics"
	"github.com/hexsim/hexsim/service/target"
	"github.com/hexsim/hexsim/tracing"
)

// Option customises engine construction.
type Option func(s *Service)

// WithConfig replaces the default engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithProcessDAO sets the persistence backend for process records.
func WithProcessDAO(store dao.Service[string, model.Process]) Option {
	return func(s *Service) { s.processDAO = store }
}

// WithBalance injects the game-balance service (demand table + duration
// formula).
func WithBalance(svc *balance.Service) Option {
	return func(s *Service) { s.balance = svc }
}

// WithBalanceContext sets the function supplying player/target attributes
// to the duration formula.
func WithBalanceContext(fn admission.ContextFunc) Option {
	return func(s *Service) { s.balanceCtx = fn }
}

// WithTargetResolver sets the external target resolution collaborator.
func WithTargetResolver(resolver target.Resolver) Option {
	return func(s *Service) { s.targets = resolver }
}

// WithEffectApplier sets the external game-state mutator driven by the
// completion resolver.
func WithEffectApplier(applier effect.Applier) Option {
	return func(s *Service) { s.applier = applier }
}

// WithEffectRegistry replaces the built-in effect payload registry.
func WithEffectRegistry(registry *effect.Registry) Option {
	return func(s *Service) { s.effects = registry }
}

// WithEventService sets the notification fan-out service.
func WithEventService(svc *event.Service) Option {
	return func(s *Service) { s.events = svc }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracing configures OpenTelemetry tracing for the engine. If outputFile
// is empty the stdout exporter is used. Safe to call multiple times; the
// first successful initialisation wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}
