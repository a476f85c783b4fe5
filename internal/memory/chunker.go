// Package memory implements the memory engine: chunking ingested text,
// embedding it through a model session, storing it in a pluggable
// vector store, and answering recall queries for the task runner.
package memory

import (
	"strings"

	"llmhostd/pkg/types"
)

// chunk splits text into pieces no larger than maxTokens (approximated
// by whitespace-separated word count, since chunking runs before any
// particular model's tokenizer is in scope), generalizing
// poly-backend/src/memory/mod.rs's hierarchically_chunk from a
// token-id slice to raw text: try separators in priority order, and
// whichever one actually occurs in the text wins the split — every
// occurrence becomes a chunk boundary, the separator itself is
// dropped, and pieces are never merged back together. A piece that is
// still too large after that is recursed into with the remaining
// separators. Once separators run out, fall back to a fixed-size word
// split.
func chunk(text string, separators []string, maxTokens int) []string {
	if text == "" {
		return nil
	}

	if len(separators) == 0 {
		return splitByWordCount(text, maxTokens)
	}

	sep := separators[0]
	rest := separators[1:]
	parts := strings.Split(text, sep)
	if len(parts) <= 1 {
		// sep does not occur in text at all; it contributes no
		// boundary, so defer to the next separator untouched.
		return chunk(text, rest, maxTokens)
	}

	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		if len(strings.Fields(trimmed)) > maxTokens {
			out = append(out, chunk(trimmed, rest, maxTokens)...)
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func splitByWordCount(text string, maxTokens int) []string {
	words := strings.Fields(text)
	var out []string
	for i := 0; i < len(words); i += maxTokens {
		end := i + maxTokens
		if end > len(words) {
			end = len(words)
		}
		out = append(out, strings.Join(words[i:end], " "))
	}
	return out
}

// Chunk applies a memory's configured separators and token budget to
// ingested text, trimming whitespace and dropping empty pieces.
func Chunk(mem types.Memory, text string) []string {
	mem = mem.WithDefaults()
	raw := chunk(text, mem.ChunkSeparators, mem.ChunkMaxTokens)
	out := make([]string, 0, len(raw))
	for _, c := range raw {
		trimmed := strings.TrimSpace(c)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
