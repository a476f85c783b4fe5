// Package pool implements the session scheduler: a bounded-concurrency
// admission path in front of a set of named, pre-loaded models. It
// generalizes the teacher's internal/manager package (Manager/Instance,
// queue_admission.go's FIFO-then-single-slot admission, evict.go's
// LRU sweep, events.go's publisher) from one HTTP-facing model instance
// per id to the acquire/release/with_session session-handle API spec.md
// §4.1 describes, with a real cross-model global permit instead of the
// teacher's implicit single active instance.
package pool

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"llmhostd/internal/session"
	"llmhostd/internal/tokenizer"
	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"
)

// Config bounds the pool's admission behavior.
type Config struct {
	// MaxConcurrent is the global semaphore capacity shared by every
	// model (spec.md §4.1's max_concurrent).
	MaxConcurrent int64 `json:"max_concurrent,omitempty" yaml:"max_concurrent,omitempty" toml:"max_concurrent,omitempty"`
	// MaxLoadedModels bounds how many models may have a live instance
	// at once; 0 means unlimited. Exceeding it evicts the least
	// recently used idle instance first, per internal/manager/evict.go.
	MaxLoadedModels int `json:"max_loaded_models,omitempty" yaml:"max_loaded_models,omitempty" toml:"max_loaded_models,omitempty"`
	// AdmissionQueueDepth bounds how many callers may wait for a
	// model's per-model slot at once; additional callers fail fast
	// with errs.Busy rather than queueing indefinitely.
	AdmissionQueueDepth int `json:"admission_queue_depth,omitempty" yaml:"admission_queue_depth,omitempty" toml:"admission_queue_depth,omitempty"`
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 8
	}
	if c.AdmissionQueueDepth <= 0 {
		c.AdmissionQueueDepth = 64
	}
	return c
}

// Manager owns the named model registry, the global admission permit,
// and one instance per model that has ever been acquired.
type Manager struct {
	mu        sync.RWMutex
	cfg       Config
	models    map[string]types.Model
	instances map[string]*instance
	global    *semaphore.Weighted
	registry  *session.Registry
	publisher EventPublisher
	tries     map[string]*tokenizer.Trie
}

// instance is the live state for one named model: its admission queue
// (queue_admission.go's queueCh, sized to the pool's AdmissionQueueDepth)
// and a free-list of started sessions sized to the model's configured
// parallelism instead of a fixed single slot.
type instance struct {
	model    types.Model
	state    types.InstanceState
	lastUsed time.Time
	queueCh  chan struct{}
	idle     chan session.Session
	mu       sync.Mutex
	started  int
}

func New(models []types.Model, cfg Config, publisher EventPublisher) *Manager {
	cfg = cfg.withDefaults()
	reg := make(map[string]types.Model, len(models))
	for _, m := range models {
		reg[m.Key] = m.WithDefaults()
	}
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	return &Manager{
		cfg:       cfg,
		models:    reg,
		instances: make(map[string]*instance),
		global:    semaphore.NewWeighted(cfg.MaxConcurrent),
		registry:  session.NewRegistry(),
		publisher: publisher,
		tries:     make(map[string]*tokenizer.Trie),
	}
}

// ListModels returns a shallow, order-independent copy of the registry.
func (m *Manager) ListModels() []types.Model {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.Model, 0, len(m.models))
	for _, mdl := range m.models {
		out = append(out, mdl)
	}
	return out
}

func (m *Manager) modelByKey(key string) (types.Model, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mdl, ok := m.models[key]
	return mdl, ok
}

// Trie returns the cached vocabulary trie for a model, building it (via
// a throwaway session) on first use.
func (m *Manager) Trie(ctx context.Context, modelKey string) (*tokenizer.Trie, error) {
	m.mu.RLock()
	t, ok := m.tries[modelKey]
	m.mu.RUnlock()
	if ok {
		return t, nil
	}

	mdl, ok := m.modelByKey(modelKey)
	if !ok {
		return nil, errs.UnknownModel(modelKey)
	}
	adapter := m.registry.Resolve(mdl.Architecture)
	sess, err := adapter.Start(ctx, mdl)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	built := tokenizer.BuildTrie(sess.Tokenizer())
	m.mu.Lock()
	m.tries[modelKey] = built
	m.mu.Unlock()
	return built, nil
}
