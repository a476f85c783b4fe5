package pool

import "llmhostd/pkg/types"

// Instances reports a point-in-time view of every loaded model
// instance, mirroring internal/manager/status_report.go's Status().
func (m *Manager) Instances() []types.InstanceStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]types.InstanceStatus, 0, len(m.instances))
	for _, inst := range m.instances {
		inst.mu.Lock()
		out = append(out, types.InstanceStatus{
			ModelKey:      inst.model.Key,
			State:         string(inst.state),
			LastUsedUnix:  inst.lastUsed.Unix(),
			QueueLen:      len(inst.queueCh),
			Inflight:      inst.started - len(inst.idle),
			MaxQueueDepth: cap(inst.queueCh),
		})
		inst.mu.Unlock()
	}
	return out
}
