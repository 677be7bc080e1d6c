package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/hexsim/hexsim/model"
)

// Entry carries the externally configured balance data for one process
// type: declared demand per dimension, the base duration and the scaling
// weights applied by the duration formula.
type Entry struct {
	BaseSeconds   float64         `yaml:"baseSeconds" json:"baseSeconds"`
	MinSeconds    float64         `yaml:"minSeconds" json:"minSeconds"`
	Demand        model.Resources `yaml:"demand" json:"demand"`
	Cancellable   *bool           `yaml:"cancellable" json:"cancellable"`
	DefenseWeight float64         `yaml:"defenseWeight" json:"defenseWeight"`
	SkillWeight   float64         `yaml:"skillWeight" json:"skillWeight"`
}

// Context supplies the player/target attributes the duration formula scales
// by. It is assembled by the caller; the engine itself holds no game-balance
// state.
type Context struct {
	PlayerLevel   int
	TargetDefense int
}

// Config is the serialisable balance table, keyed by process type.
type Config struct {
	Types map[model.Type]Entry `yaml:"types" json:"types"`
}

// Service exposes the balance table as the pure functions the engine
// consumes: a demand table, a cancellable flag and the duration formula.
type Service struct {
	table map[model.Type]Entry
}

// New creates a balance service from an explicit config.
func New(config *Config) (*Service, error) {
	if config == nil || len(config.Types) == 0 {
		return nil, fmt.Errorf("balance config is empty")
	}
	for t := range config.Types {
		if !t.Valid() {
			return nil, fmt.Errorf("unknown process type in balance config: %s", t)
		}
	}
	return &Service{table: config.Types}, nil
}

// Load reads a YAML balance table from the supplied afs URL.
func Load(ctx context.Context, fs afs.Service, URL string) (*Service, error) {
	data, err := fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load balance config %s: %w", URL, err)
	}
	config := &Config{}
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse balance config %s: %w", URL, err)
	}
	return New(config)
}

// Demand returns the declared per-dimension demand for the process type.
func (s *Service) Demand(t model.Type) (model.Resources, error) {
	entry, ok := s.table[t]
	if !ok {
		return model.Resources{}, fmt.Errorf("no balance entry for process type %s", t)
	}
	return entry.Demand, nil
}

// Cancellable reports whether a running process of this type may be
// interrupted. Types absent from the table default to cancellable.
func (s *Service) Cancellable(t model.Type) bool {
	entry, ok := s.table[t]
	if !ok || entry.Cancellable == nil {
		return true
	}
	return *entry.Cancellable
}

// Duration computes the total running time a process needs. The formula is
// pure: base seconds scaled up by target defense and down by player skill,
// clamped at the entry's minimum.
func (s *Service) Duration(t model.Type, demand model.Resources, bctx Context) time.Duration {
	entry, ok := s.table[t]
	if !ok {
		return 0
	}
	seconds := entry.BaseSeconds
	seconds *= 1 + entry.DefenseWeight*float64(bctx.TargetDefense)
	seconds /= 1 + entry.SkillWeight*float64(bctx.PlayerLevel)
	if seconds < entry.MinSeconds {
		seconds = entry.MinSeconds
	}
	if seconds <= 0 {
		seconds = 1
	}
	return time.Duration(seconds * float64(time.Second))
}

// Default returns a balance table with conservative values for every known
// process type. Intended for tests and the demo command; production deploys
// load their tuned table via Load.
func Default() *Service {
	no := false
	entry := func(base float64, demand model.Resources) Entry {
		return Entry{BaseSeconds: base, MinSeconds: 1, Demand: demand, DefenseWeight: 0.1, SkillWeight: 0.05}
	}
	table := map[model.Type]Entry{
		model.TypeFileUpload:   entry(60, model.Resources{CPU: 5, RAM: 64, HDD: 40, Net: 50}),
		model.TypeFileDownload: entry(60, model.Resources{CPU: 5, RAM: 64, HDD: 40, Net: 50}),
		model.TypeBruteforce:   entry(300, model.Resources{CPU: 60, RAM: 128, HDD: 5, Net: 10}),
		model.TypeOverflow:     entry(180, model.Resources{CPU: 45, RAM: 256, HDD: 5, Net: 10}),
		model.TypeInstallVirus: entry(120, model.Resources{CPU: 20, RAM: 96, HDD: 15, Net: 20}),
		model.TypeVirusCollect: entry(90, model.Resources{CPU: 10, RAM: 64, HDD: 10, Net: 30}),
		model.TypeBankReveal:   entry(240, model.Resources{CPU: 50, RAM: 128, HDD: 5, Net: 15}),
		model.TypeLogForger:    entry(45, model.Resources{CPU: 15, RAM: 64, HDD: 20, Net: 5}),
	}
	wire := entry(150, model.Resources{CPU: 30, RAM: 128, HDD: 5, Net: 25})
	wire.Cancellable = &no
	table[model.TypeWireTransfer] = wire
	return &Service{table: table}
}
