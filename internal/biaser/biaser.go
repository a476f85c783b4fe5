// Package biaser computes, at every sampling step, which tokens a model
// may legally emit next to stay inside a JSON Schema, by intersecting a
// byte-level grammar automaton (value.go) with a tokenizer.Trie in a
// single parallel descent instead of re-scanning the whole vocabulary
// per step the way the original implementation's bias() function did.
package biaser

import (
	"llmhostd/internal/tokenizer"
	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"
)

// ResultKind classifies the admissible-token computation's outcome.
type ResultKind int

const (
	// All means every token in the vocabulary is admissible — used by
	// NullBiaser during free (unconstrained) generation.
	All ResultKind = iota
	// Only means exactly the listed tokens are admissible.
	Only
	// None means generation must stop: no token, including end-of-text,
	// is admissible. A caller reaching this state has a bug upstream,
	// since Admissible reports errs.BiaserStuck instead of ever
	// returning None by itself.
	None
)

// Result is what Admissible reports for one sampling step.
type Result struct {
	Kind   ResultKind
	Tokens []tokenizer.ID
}

// Biaser narrows a session's next-token choice to whatever keeps the
// generation inside its grammar. Advance commits a sampled token to the
// automaton's state.
type Biaser interface {
	Admissible() (Result, error)
	Advance(id tokenizer.ID) error
}

// NullBiaser imposes no constraint, used for tasks without a biaser
// schema and for the free-generation phase of a two-phase completion.
type NullBiaser struct{}

func (NullBiaser) Admissible() (Result, error) { return Result{Kind: All}, nil }
func (NullBiaser) Advance(tokenizer.ID) error   { return nil }

// JSONBiaser drives generation of one JSON value conforming to a schema.
type JSONBiaser struct {
	vocab tokenizer.View
	trie  *tokenizer.Trie
	state value
	done  bool
}

// NewJSONBiaser constructs a biaser for schema against the given model's
// tokenizer view. Building the trie is the caller's responsibility
// (cached once per model in the pool) since it is the same for every
// task run against that model. compact disables whitespace admission
// between structural tokens, matching the schema's Compact flag.
func NewJSONBiaser(schema *types.BiaserSchema, vocab tokenizer.View, trie *tokenizer.Trie, compact bool) *JSONBiaser {
	return &JSONBiaser{vocab: vocab, trie: trie, state: newTopLevelValue(schema, compact)}
}

func (b *JSONBiaser) Admissible() (Result, error) {
	if b.done {
		return Result{Kind: Only, Tokens: []tokenizer.ID{b.vocab.EOTToken()}}, nil
	}

	var tokens []tokenizer.ID
	collectAdmissible(b.trie.Root(), b.state, &tokens)
	if b.state.canEnd() {
		tokens = append(tokens, b.vocab.EOTToken())
	}
	if len(tokens) == 0 {
		return Result{}, errs.BiaserStuck("no admissible token for current grammar state")
	}
	return Result{Kind: Only, Tokens: tokens}, nil
}

func (b *JSONBiaser) Advance(id tokenizer.ID) error {
	if b.done {
		return errs.BiaserStuck("advance called after grammar already complete")
	}
	if id == b.vocab.EOTToken() {
		if !b.state.canEnd() {
			return errs.BiaserStuck("end-of-text advanced while grammar incomplete")
		}
		b.done = true
		return nil
	}
	for _, raw := range b.vocab.DecodeToken(id) {
		next, ok := b.state.step(raw)
		if !ok {
			return errs.Internal("biaser: token %d rejected mid-advance after admissibility check", id)
		}
		b.state = next
	}
	return nil
}

func collectAdmissible(node *tokenizer.TrieNode, st value, out *[]tokenizer.ID) {
	*out = append(*out, node.Tokens()...)
	for _, b := range node.Children() {
		child := node.Child(b)
		if child == nil {
			continue
		}
		next, ok := st.step(b)
		if !ok {
			continue
		}
		collectAdmissible(child, next, out)
	}
}
