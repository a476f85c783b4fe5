package memory

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"llmhostd/internal/pool"
	"llmhostd/pkg/types"
)

func newTestEngine(t *testing.T, mem types.Memory) *Engine {
	t.Helper()
	p := pool.New([]types.Model{{Key: "embedder", Architecture: "mock", Sessions: 1}}, pool.Config{}, nil)
	mem.EmbeddingModelKey = "embedder"
	mem.Store.IndexPath = filepath.Join(t.TempDir(), "memory.db")
	// No separator here actually occurs in these short test phrases, so
	// each Remember call lands as exactly one chunk (see chunker.go: a
	// configured separator only splits when it occurs in the text).
	mem.ChunkSeparators = []string{"\n\n"}
	mem.ChunkMaxTokens = 1000
	e, err := New(p, []types.Memory{mem}, zerolog.Nop())
	require.NoError(t, err)
	return e
}

// Remembering the same bytes twice must collapse to the same chunk id
// and not grow the store, since chunkID is deterministic over the
// memory and the chunk text.
func TestEngine_Remember_IsIdempotent(t *testing.T) {
	e := newTestEngine(t, types.Memory{Name: "notes", Dimensions: 32})
	ctx := context.Background()

	require.NoError(t, e.Remember(ctx, "notes", "text/plain", []byte("the quick brown fox"), true))
	require.NoError(t, e.Remember(ctx, "notes", "text/plain", []byte("the quick brown fox"), true))

	results, err := e.Recall(ctx, "notes", "the quick brown fox", 10)
	require.NoError(t, err)
	assert.Len(t, results, 1, "remembering identical text twice must not duplicate the chunk")
}

// Recall must rank a chunk whose text exactly matches the query above
// an unrelated chunk, since the mock embedder's hash-based vectors give
// identical text a cosine similarity of 1.0 against itself.
func TestEngine_Recall_RanksExactMatchFirst(t *testing.T) {
	e := newTestEngine(t, types.Memory{Name: "notes", Dimensions: 32})
	ctx := context.Background()

	require.NoError(t, e.Remember(ctx, "notes", "text/plain", []byte("paris is the capital of france"), true))
	require.NoError(t, e.Remember(ctx, "notes", "text/plain", []byte("bananas are a good source of potassium"), true))

	results, err := e.Recall(ctx, "notes", "paris is the capital of france", 2)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "paris is the capital of france", results[0].Payload)

	// Monotonicity: repeating the same recall call must not reorder the
	// result, since nothing about the store changed between calls.
	again, err := e.Recall(ctx, "notes", "paris is the capital of france", 2)
	require.NoError(t, err)
	require.NotEmpty(t, again)
	assert.Equal(t, results[0].Payload, again[0].Payload)
}

func TestEngine_Forget_ClearsEveryChunk(t *testing.T) {
	e := newTestEngine(t, types.Memory{Name: "notes", Dimensions: 32})
	ctx := context.Background()

	require.NoError(t, e.Remember(ctx, "notes", "text/plain", []byte("something worth remembering"), true))
	require.NoError(t, e.Forget(ctx, "notes"))

	results, err := e.Recall(ctx, "notes", "something worth remembering", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// fakeStore lets the first Upsert call through and fails every one
// after it, so ingest's partial-failure behavior can be driven
// deterministically without needing a real embedding failure.
type fakeStore struct {
	mu     sync.Mutex
	calls  int
	stored []types.Chunk
}

func (s *fakeStore) Upsert(_ context.Context, chunks []types.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.calls == 1 {
		s.stored = append(s.stored, chunks...)
		return nil
	}
	return errors.New("boom")
}

func (s *fakeStore) Query(context.Context, []float32, int) ([]types.ScoredChunk, error) { return nil, nil }

func (s *fakeStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored = nil
	return nil
}

func (s *fakeStore) Close() error { return nil }

// A failure partway through ingesting a multi-chunk document must not
// discard chunks that already finished embedding and upserting before
// the failure — only the failing chunk (and whatever else was still in
// flight) is lost, everything already committed stays.
func TestEngine_Ingest_KeepsChunksUpsertedBeforeAFailure(t *testing.T) {
	p := pool.New([]types.Model{{Key: "embedder", Architecture: "mock", Sessions: 1}}, pool.Config{}, nil)
	store := &fakeStore{}
	mem := types.Memory{
		Name:              "docs",
		EmbeddingModelKey: "embedder",
		Dimensions:        32,
		ChunkSeparators:   []string{" "},
		ChunkMaxTokens:    1,
	}
	e := &Engine{
		pool:      p,
		memories:  map[string]types.Memory{"docs": mem},
		stores:    map[string]Store{"docs": store},
		extractor: PDFExtractor{},
		logger:    zerolog.Nop(),
	}

	err := e.Remember(context.Background(), "docs", "text/plain",
		[]byte("one two three four five six seven eight"), true)

	require.Error(t, err, "a failing chunk must still surface its error to the caller")
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.NotEmpty(t, store.stored, "chunks that upserted before the failure must remain in the store")
}
