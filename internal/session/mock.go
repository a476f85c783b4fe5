package session

import (
	"context"
	"hash/fnv"
	"sync"

	"llmhostd/internal/tokenizer"
	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"
)

// MockAdapter starts sessions backed by tokenizer.ByteVocab and a
// deterministic pseudo-sampler. It never touches a real model file and
// is the default used by tests and by cmd/llmhostd when a model's
// architecture is "mock" — the CGO-free path the teacher's llama stub
// leaves open when the real runtime isn't built in.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Start(_ context.Context, model types.Model) (Session, error) {
	limit := model.ContextSize
	if limit <= 0 {
		limit = 512
	}
	return &mockSession{
		vocab:    tokenizer.NewByteVocab(),
		limit:    limit,
		modelKey: model.Key,
	}, nil
}

// mockSession is a tiny deterministic stand-in for a real inference
// context: it "samples" by walking the fed prompt text back out one
// byte at a time, wrapping to a fixed completion once the prompt is
// exhausted. This is enough to exercise the pool, task runner, and
// biaser end to end without a compiled model.
type mockSession struct {
	mu       sync.Mutex
	vocab    *tokenizer.ByteVocab
	limit    int
	modelKey string
	used     int
	pending  []tokenizer.ID
	cursor   int
}

var mockCompletion = []byte(" Generated by the local model pool.")

func (s *mockSession) Feed(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.vocab.Encode(text)
	s.used += len(ids)
	s.pending = append(s.pending, ids...)
	return nil
}

func (s *mockSession) SampleNext(_ context.Context, bias types.BiasMap) (tokenizer.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.used >= s.limit {
		return 0, errs.ContextFull(s.modelKey)
	}

	id := s.nextCandidate()
	if bias != nil {
		if b, ok := bias[int32(id)]; !ok || b == types.Forbidden {
			// Fall back to the lowest allowed id in the map, so the
			// choice does not depend on map iteration order.
			found := false
			for candidate, allowedBias := range bias {
				if allowedBias != types.Forbidden && (!found || tokenizer.ID(candidate) < id) {
					id = tokenizer.ID(candidate)
					found = true
				}
			}
		}
	}
	s.used++
	return id, nil
}

// nextCandidate advances through the pending prompt echo, then a fixed
// tail completion, then the end-of-text token forever.
func (s *mockSession) nextCandidate() tokenizer.ID {
	if s.cursor < len(s.pending) {
		id := s.pending[s.cursor]
		s.cursor++
		return id
	}
	tailIdx := s.cursor - len(s.pending)
	if tailIdx < len(mockCompletion) {
		s.cursor++
		return tokenizer.ID(mockCompletion[tailIdx])
	}
	return s.vocab.EOTToken()
}

func (s *mockSession) Decode(id tokenizer.ID) []byte { return s.vocab.DecodeToken(id) }

func (s *mockSession) Tokenizer() tokenizer.View { return s.vocab }

func (s *mockSession) ContextUsed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.used
}

func (s *mockSession) ContextLimit() int { return s.limit }

func (s *mockSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.used = 0
	s.pending = nil
	s.cursor = 0
	return nil
}

// Embed hashes text into a small deterministic vector so memory-engine
// tests get stable, reproducible similarity behavior without a real
// embedding model.
func (s *mockSession) Embed(_ context.Context, text string) ([]float32, error) {
	const dims = 32
	out := make([]float32, dims)
	h := fnv.New64a()
	for i := 0; i < dims; i++ {
		h.Reset()
		h.Write([]byte{byte(i)})
		h.Write([]byte(text))
		sum := h.Sum64()
		out[i] = float32(sum%1000) / 1000.0
	}
	return out, nil
}

func (s *mockSession) Close() error { return nil }
