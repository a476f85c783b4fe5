package memory

import (
	"context"
	"math"

	"llmhostd/pkg/types"
)

// Store is a pluggable vector-store backend for one memory: upsert
// chunks with their embeddings, query by embedding similarity, and
// clear everything. Mirrors poly-backend/src/memory/mod.rs's Memory
// trait (store/get/clear), generalized to batch upserts and scored
// results instead of bare strings.
type Store interface {
	Upsert(ctx context.Context, chunks []types.Chunk) error
	Query(ctx context.Context, embedding []float32, topN int) ([]types.ScoredChunk, error)
	Clear(ctx context.Context) error
	Close() error
}

// cosineSimilarity mirrors the embedding package's CosineSimilarity,
// operating on float32 vectors directly to avoid a conversion pass over
// every candidate during a brute-force scan.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
