package pool

import (
	"context"
	"time"

	"llmhostd/internal/session"
	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"
)

// SessionHandle is a non-clonable, non-shared lease on one model's
// inference session, per spec.md §4.1. Callers must call Release (or go
// through WithSession) on every exit path; it holds no exported fields
// so nothing outside this package can duplicate the lease.
type SessionHandle struct {
	mgr      *Manager
	inst     *instance
	sess     session.Session
	released bool
	poisoned bool
}

func (h *SessionHandle) Session() session.Session { return h.sess }

// Release is a convenience wrapper equivalent to mgr.Release(h).
func (h *SessionHandle) Release() { h.mgr.Release(h) }

// Poison marks the underlying session as unfit for reuse; Release will
// close and discard it instead of returning it to the instance's idle
// pool.
func (h *SessionHandle) Poison() { h.poisoned = true }

// Acquire blocks until a global permit and a free session for modelKey
// are both available, per spec.md §4.1's acquire operation. The
// returned handle must be released by the caller.
func (m *Manager) Acquire(ctx context.Context, modelKey string) (*SessionHandle, error) {
	mdl, ok := m.modelByKey(modelKey)
	if !ok {
		return nil, errs.UnknownModel(modelKey)
	}

	if err := m.global.Acquire(ctx, 1); err != nil {
		return nil, mapAdmissionErr(err)
	}
	releaseGlobal := true
	defer func() {
		if releaseGlobal {
			m.global.Release(1)
		}
	}()

	inst, err := m.ensureInstance(mdl)
	if err != nil {
		return nil, err
	}

	select {
	case inst.queueCh <- struct{}{}:
	default:
		return nil, errs.Busy(modelKey)
	}
	releaseQueue := true
	defer func() {
		if releaseQueue {
			<-inst.queueCh
		}
	}()

	sess, err := inst.take(ctx, m.registry.Resolve(mdl.Architecture))
	if err != nil {
		return nil, err
	}

	inst.mu.Lock()
	inst.lastUsed = time.Now()
	inst.state = types.InstanceReady
	inst.mu.Unlock()

	m.publisher.Publish(Event{Name: "acquire", ModelKey: modelKey})
	releaseGlobal, releaseQueue = false, false
	return &SessionHandle{mgr: m, inst: inst, sess: sess}, nil
}

// Release returns a session handle's session to its instance's idle
// pool (or discards it if poisoned) and frees the queue slot and global
// permit it held.
func (m *Manager) Release(h *SessionHandle) {
	if h == nil || h.released {
		return
	}
	h.released = true
	if h.poisoned {
		h.sess.Close()
		// Free the discarded session's slot so take can start a new one.
		h.inst.mu.Lock()
		h.inst.started--
		h.inst.mu.Unlock()
	} else {
		select {
		case h.inst.idle <- h.sess:
		default:
			h.sess.Close()
		}
	}
	<-h.inst.queueCh
	m.global.Release(1)
	m.publisher.Publish(Event{Name: "release", ModelKey: h.inst.model.Key})
}

// WithSession runs fn against a scoped acquisition, guaranteeing
// release on every exit path (normal return, error, cancellation).
func (m *Manager) WithSession(ctx context.Context, modelKey string, fn func(*SessionHandle) error) error {
	h, err := m.Acquire(ctx, modelKey)
	if err != nil {
		return err
	}
	defer m.Release(h)
	return fn(h)
}

func mapAdmissionErr(err error) error {
	if err == nil {
		return nil
	}
	if err == context.DeadlineExceeded {
		return errs.Busy("admission deadline exceeded")
	}
	return errs.Cancelled()
}

// ensureInstance returns the instance for mdl, creating its admission
// channels on first use and evicting LRU idle instances first if the
// pool is over MaxLoadedModels.
func (m *Manager) ensureInstance(mdl types.Model) (*instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if inst, ok := m.instances[mdl.Key]; ok {
		return inst, nil
	}

	if m.cfg.MaxLoadedModels > 0 && len(m.instances) >= m.cfg.MaxLoadedModels {
		m.evictLRULocked()
	}

	inst := &instance{
		model:    mdl,
		state:    types.InstanceLoading,
		lastUsed: time.Now(),
		queueCh:  make(chan struct{}, m.cfg.AdmissionQueueDepth),
		idle:     make(chan session.Session, mdl.Sessions),
	}
	m.instances[mdl.Key] = inst
	m.publisher.Publish(Event{Name: "load", ModelKey: mdl.Key})
	return inst, nil
}

// take returns an idle session if one is available, otherwise starts a
// new one up to the instance's configured parallelism, otherwise blocks
// for one to be released.
func (inst *instance) take(ctx context.Context, adapter session.Adapter) (session.Session, error) {
	select {
	case s := <-inst.idle:
		return resetIdle(s)
	default:
	}

	inst.mu.Lock()
	if inst.started < inst.model.Sessions {
		inst.started++
		inst.mu.Unlock()
		s, err := adapter.Start(ctx, inst.model)
		if err != nil {
			inst.mu.Lock()
			inst.started--
			inst.mu.Unlock()
			return nil, errs.ModelLoadFailed(inst.model.Key, err.Error())
		}
		return s, nil
	}
	inst.mu.Unlock()

	select {
	case s := <-inst.idle:
		return resetIdle(s)
	case <-ctx.Done():
		return nil, mapAdmissionErr(ctx.Err())
	}
}

// resetIdle clears a reused idle session's history before handing it to
// a new caller, enforcing spec.md §4.1's "every completion request
// starts from a clean context" invariant — sessions recycled through
// the idle free-list would otherwise still carry the previous caller's
// prompt and generated text.
func resetIdle(s session.Session) (session.Session, error) {
	if err := s.Reset(); err != nil {
		s.Close()
		return nil, errs.Internal("reset recycled session: %v", err)
	}
	return s, nil
}
