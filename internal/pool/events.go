package pool

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Event is a pool lifecycle notification, unchanged in shape from the
// teacher's manager.Event (events.go): a name, the model it concerns,
// and free-form fields.
type Event struct {
	Name     string
	ModelKey string
	Fields   map[string]any
}

// EventPublisher receives pool events. Implementations must not block or
// panic, matching the teacher's events.go contract.
type EventPublisher interface {
	Publish(Event)
}

// NoopPublisher drops every event; it is the default when the caller
// supplies none.
type NoopPublisher struct{}

func (NoopPublisher) Publish(Event) {}

// MemoryPublisher records events in-memory, grounded on
// internal/manager/eventpub_memory.go, for use in tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// PrometheusPublisher counts pool events by name and model, the added
// production counterpart to MemoryPublisher.
type PrometheusPublisher struct {
	counter *prometheus.CounterVec
}

func NewPrometheusPublisher(reg prometheus.Registerer) *PrometheusPublisher {
	c := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "llmhostd",
		Subsystem: "pool",
		Name:      "events_total",
		Help:      "Pool lifecycle events by name and model.",
	}, []string{"event", "model"})
	reg.MustRegister(c)
	return &PrometheusPublisher{counter: c}
}

func (p *PrometheusPublisher) Publish(e Event) {
	p.counter.WithLabelValues(e.Name, e.ModelKey).Inc()
}

// MultiPublisher fans one event out to several publishers, e.g. metrics
// plus an in-memory recorder under test.
type MultiPublisher []EventPublisher

func (m MultiPublisher) Publish(e Event) {
	for _, p := range m {
		p.Publish(e)
	}
}
