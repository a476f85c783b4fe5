package pool

import "llmhostd/pkg/types"

// evictLRULocked drops the least-recently-used instance that currently
// has no queued or in-flight work, generalizing
// internal/manager/evict.go's single-budgetMB sweep to the
// MaxLoadedModels instance-count budget described in SPEC_FULL.md §4.1.
// Callers must hold m.mu.
func (m *Manager) evictLRULocked() {
	var lru *instance
	for _, inst := range m.instances {
		if len(inst.queueCh) > 0 {
			continue // active or queued work; never evict mid-use
		}
		if lru == nil || inst.lastUsed.Before(lru.lastUsed) {
			lru = inst
		}
	}
	if lru == nil {
		return // every instance is busy; exceed the budget rather than disrupt work
	}

	lru.mu.Lock()
	lru.state = types.InstanceDraining
	close(lru.idle)
	for s := range lru.idle {
		s.Close()
	}
	lru.mu.Unlock()

	delete(m.instances, lru.model.Key)
	m.publisher.Publish(Event{Name: "evict", ModelKey: lru.model.Key})
}
