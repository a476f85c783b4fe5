//go:build !llama_cgo

package session

import (
	"context"

	"llmhostd/internal/tokenizer"
	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"
)

// llamaBuilt is false in default, CGO-free builds.
var llamaBuilt = false

// LlamaAdapter is a stub that satisfies Adapter but refuses to start a
// session without the llama_cgo build tag, keeping default builds and CI
// free of the go-llama.cpp CGO dependency. The real adapter lives in
// llama_adapter.go.
type LlamaAdapter struct{}

func NewLlamaAdapter() Adapter { return &LlamaAdapter{} }

func (a *LlamaAdapter) Start(_ context.Context, model types.Model) (Session, error) {
	return nil, errs.ModelLoadFailed(model.Key, "llama support not built (missing llama_cgo build tag)")
}

// llamaStubSession only exists so the stub build has a Session type to
// point to in doc comments; Start never returns one.
type llamaStubSession struct{}

func (s *llamaStubSession) Feed(context.Context, string) error { return nil }

func (s *llamaStubSession) SampleNext(context.Context, types.BiasMap) (tokenizer.ID, error) {
	return 0, errs.Internal("llama support not built")
}

func (s *llamaStubSession) Decode(tokenizer.ID) []byte { return nil }

func (s *llamaStubSession) Tokenizer() tokenizer.View { return nil }

func (s *llamaStubSession) ContextUsed() int { return 0 }

func (s *llamaStubSession) ContextLimit() int { return 0 }

func (s *llamaStubSession) Reset() error { return nil }

func (s *llamaStubSession) Embed(context.Context, string) ([]float32, error) {
	return nil, errs.Internal("llama support not built")
}

func (s *llamaStubSession) Close() error { return nil }
