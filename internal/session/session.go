// Package session abstracts the underlying LLM execution engine behind
// the narrow interface the core needs from it: feed prompt text, sample
// the next token (optionally under a bias map), decode, and inspect
// context usage. Tokenization, prompt feeding, and sampling themselves
// are the external collaborator's job (spec.md §1); this package only
// defines the boundary and provides two implementations of it, exactly
// as the teacher splits a CGO-backed adapter from a stub behind a build
// tag (internal/manager/adapter_llama.go / adapter_llama_stub.go).
package session

import (
	"context"

	"llmhostd/internal/tokenizer"
	"llmhostd/pkg/types"
)

// Session is a live, single-threaded inference context for one model.
// It is never safe to use concurrently; the pool guarantees exclusive
// access by handing out non-clonable handles (see internal/pool).
type Session interface {
	// Feed advances the session's state with prompt text, without
	// sampling. Used for prelude/prefix/postfix/bias-prompt feeding.
	Feed(ctx context.Context, text string) error

	// SampleNext produces one token. When bias is non-nil, ids absent
	// from the map are forbidden; ids present are additively biased
	// (types.Forbidden meaning never). A nil bias samples freely under
	// the session's configured sampler chain.
	SampleNext(ctx context.Context, bias types.BiasMap) (tokenizer.ID, error)

	// Decode renders a token id back to its UTF-8 (possibly partial)
	// bytes, matching the tokenizer view's DecodeToken.
	Decode(id tokenizer.ID) []byte

	// Tokenizer exposes the read-only vocabulary view for this session's
	// model, for the biaser's trie/automaton intersection.
	Tokenizer() tokenizer.View

	// ContextUsed and ContextLimit report the session's consumed and
	// maximum token budget, enforcing the §3 invariant that a session's
	// consumed count never exceeds its model's context length.
	ContextUsed() int
	ContextLimit() int

	// Reset clears the session's history, used between completion
	// requests that always start from a clean context (spec.md §4.1).
	Reset() error

	// Embed computes a fixed-dimension embedding vector for text,
	// independent of the session's generation context.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the session.
	Close() error
}

// Adapter starts sessions against a concrete model file. One Adapter
// implementation exists per supported LLM runtime.
type Adapter interface {
	Start(ctx context.Context, model types.Model) (Session, error)
}
