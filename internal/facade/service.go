// Package facade exposes the daemon's operations as one narrow
// interface the transport layer depends on, generalizing the teacher's
// internal/httpapi.Service (ListModels/Status/Infer/Ready) across the
// three subsystems: the session pool, the task runner, and the memory
// engine.
package facade

import (
	"context"

	"llmhostd/internal/memory"
	"llmhostd/internal/pool"
	"llmhostd/internal/task"
	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"
)

// Service is the single entry point a transport layer would be built
// against; cmd/llmhostd and cmd/llmctl each construct one in-process.
type Service struct {
	pool   *pool.Manager
	tasks  *task.Runner
	memory *memory.Engine

	startedAt int64
}

func New(p *pool.Manager, tasks *task.Runner, mem *memory.Engine, startedAtUnix int64) *Service {
	return &Service{pool: p, tasks: tasks, memory: mem, startedAt: startedAtUnix}
}

func (s *Service) ListModels() []types.Model { return s.pool.ListModels() }

func (s *Service) ListTasks() map[string]types.TaskStats { return s.tasks.Stats() }

func (s *Service) ListMemories() []types.Memory { return s.memory.ListMemories() }

// Stats reports the daemon-wide snapshot the teacher's Status()
// endpoint returns, generalized to cover task counters alongside
// instance state.
func (s *Service) Stats() types.BackendStats {
	return types.BackendStats{
		Instances: s.pool.Instances(),
		Tasks:     s.tasks.Stats(),
	}
}

// Ready reports whether the daemon can currently accept requests. Every
// subsystem here is always ready once constructed — unlike the
// teacher's single-model load gate, nothing here blocks startup on a
// model load, since models load lazily on first acquire.
func (s *Service) Ready() bool { return s.pool != nil && s.tasks != nil }

func (s *Service) Complete(ctx context.Context, taskName, prompt string, overrides *types.Overrides) (types.CompletionResult, error) {
	return s.tasks.Complete(ctx, taskName, prompt, overrides)
}

func (s *Service) Stream(ctx context.Context, taskName, prompt string, overrides *types.Overrides, onToken func(string) error) (types.CompletionResult, error) {
	return s.tasks.Stream(ctx, taskName, prompt, overrides, onToken)
}

func (s *Service) OpenChat(ctx context.Context, taskName string) (*task.ChatSession, error) {
	return s.tasks.OpenChat(ctx, taskName)
}

func (s *Service) ChatTurn(ctx context.Context, sessionID, userText string, overrides *types.Overrides, onToken func(string) error) (types.CompletionResult, error) {
	return s.tasks.ChatTurn(ctx, sessionID, userText, overrides, onToken)
}

func (s *Service) CloseChat(sessionID string) { s.tasks.CloseChat(sessionID) }

func (s *Service) Embed(ctx context.Context, taskName, text string) ([]float32, error) {
	return s.tasks.Embed(ctx, taskName, text)
}

func (s *Service) Recall(ctx context.Context, memoryKey, query string, n int) ([]types.ScoredChunk, error) {
	return s.memory.Recall(ctx, memoryKey, query, n)
}

// Remember is the façade's remember(memory, mime, bytes, wait) -> ()
// operation: the embedding is always computed internally, against the
// memory's own configured model, never supplied by the caller.
func (s *Service) Remember(ctx context.Context, memoryKey, mime string, data []byte, wait bool) error {
	return s.memory.Remember(ctx, memoryKey, mime, data, wait)
}

func (s *Service) Forget(ctx context.Context, memoryKey string) error {
	return s.memory.Forget(ctx, memoryKey)
}

// HTTPError lets an error carry the HTTP status the transport layer
// should respond with, mirroring the teacher's internal/httpapi.HTTPError.
type HTTPError interface {
	error
	StatusCode() int
}

type statusError struct {
	error
	code int
}

func (e statusError) StatusCode() int { return e.code }

// StatusOf maps one of pkg/errs's typed errors to the HTTP status the
// transport layer should respond with, generalizing the teacher's
// manager.IsModelNotFound/IsTooBusy switch in internal/httpapi/server.go
// across the full error taxonomy.
func StatusOf(err error) HTTPError {
	switch {
	case errs.IsUnknownModel(err), errs.IsUnknownTask(err), errs.IsUnknownMemory(err):
		return statusError{err, 404}
	case errs.IsBusy(err):
		return statusError{err, 429}
	case errs.IsConfigInvalid(err), errs.IsPrivateTokenInInput(err), errs.IsEmbeddingDimensionMismatch(err):
		return statusError{err, 400}
	case errs.IsTimeout(err):
		return statusError{err, 504}
	case errs.IsCancelled(err):
		return statusError{err, 499}
	case errs.IsExternalStoreUnavailable(err):
		return statusError{err, 503}
	default:
		return statusError{err, 500}
	}
}
