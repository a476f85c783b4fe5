package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"llmhostd/internal/pool"
	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"
)

// pdfMIME is the only MIME type that gets routed through an extractor
// rather than treated as UTF-8 text directly, per the ingestion
// pipeline's mime dispatch.
const pdfMIME = "application/pdf"

// chunkNamespace is the fixed UUIDv5 namespace every chunk id is derived
// from, so the same memory key and chunk text always yield the same id and
// re-ingestion is a no-op overwrite rather than a duplicate, per
// spec.md's idempotent-ingestion invariant.
var chunkNamespace = uuid.MustParse("d29f6a4e-5b79-4e2b-9c0a-7f3a6e2d8b41")

// Engine owns every configured memory's store and drives recall,
// remembering, and document ingestion against it, embedding through
// the pool the way poly-backend's session.rs calls out to its
// embedding model.
type Engine struct {
	mu        sync.RWMutex
	pool      *pool.Manager
	memories  map[string]types.Memory
	stores    map[string]Store
	extractor DocumentExtractor
	logger    zerolog.Logger
}

func New(p *pool.Manager, memories []types.Memory, logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		pool:      p,
		memories:  make(map[string]types.Memory, len(memories)),
		stores:    make(map[string]Store, len(memories)),
		extractor: PDFExtractor{},
		logger:    logger,
	}
	for _, m := range memories {
		m = m.WithDefaults()
		store, err := openStore(m, logger)
		if err != nil {
			return nil, err
		}
		e.memories[m.Name] = m
		e.stores[m.Name] = store
	}
	return e, nil
}

func openStore(m types.Memory, logger zerolog.Logger) (Store, error) {
	switch m.Store.Kind {
	case types.StoreExternal:
		return NewExternalStore(m.Store.URL, m.Store.Collection), nil
	default:
		path := m.Store.IndexPath
		if path == "" {
			path = "memory_" + m.Name + ".db"
		}
		return NewSQLiteStore(path, logger)
	}
}

func (e *Engine) memoryByKey(key string) (types.Memory, Store, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.memories[key]
	if !ok {
		return types.Memory{}, nil, errs.UnknownMemory(key)
	}
	return m, e.stores[key], nil
}

// ListMemories reports every configured memory, for the façade's
// list_memories operation.
func (e *Engine) ListMemories() []types.Memory {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]types.Memory, 0, len(e.memories))
	for _, m := range e.memories {
		out = append(out, m)
	}
	return out
}

// Recall embeds query through memoryKey's own embedding model and
// returns the n most similar stored chunks, satisfying spec.md's
// recall(memory, prompt, n) -> [String].
func (e *Engine) Recall(ctx context.Context, memoryKey, query string, n int) ([]types.ScoredChunk, error) {
	mem, store, err := e.memoryByKey(memoryKey)
	if err != nil {
		return nil, err
	}
	emb, err := e.embed(ctx, mem.EmbeddingModelKey, query)
	if err != nil {
		return nil, err
	}
	if len(emb) != mem.Dimensions && mem.Dimensions > 0 {
		return nil, errs.EmbeddingDimensionMismatch(mem.Dimensions, len(emb))
	}
	return store.Query(ctx, emb, n)
}

// Remember extracts text from data (PDF extraction for
// application/pdf, UTF-8 passthrough for everything else), chunks it
// per the memory's policy, embeds every chunk concurrently through the
// memory's own embedding model, and upserts the results — spec.md's
// remember(memory, mime, bytes, wait) -> (). When wait is false,
// ingestion runs in the background against a detached context and
// Remember returns as soon as memoryKey is confirmed to exist.
func (e *Engine) Remember(ctx context.Context, memoryKey, mime string, data []byte, wait bool) error {
	mem, store, err := e.memoryByKey(memoryKey)
	if err != nil {
		return err
	}

	run := func(ctx context.Context) error {
		text, err := e.extractText(mime, data)
		if err != nil {
			return err
		}
		return e.ingest(ctx, mem, store, memoryKey, text)
	}

	if wait {
		return run(ctx)
	}

	go func() {
		if err := run(context.Background()); err != nil {
			e.logger.Error().Err(err).Str("memory", memoryKey).Msg("background ingestion failed")
		}
	}()
	return nil
}

func (e *Engine) extractText(mime string, data []byte) (string, error) {
	if mime == pdfMIME {
		return e.extractor.ExtractText(mime, data)
	}
	return string(data), nil
}

// ingest chunks already-extracted text and embeds+upserts each chunk
// independently and concurrently, so a failure partway through a batch
// (one bad embedding call, a cancelled context) leaves every chunk
// that already finished in the store rather than discarding the whole
// batch — the first error still propagates to the caller.
func (e *Engine) ingest(ctx context.Context, mem types.Memory, store Store, memoryKey, text string) error {
	pieces := Chunk(mem, text)
	if len(pieces) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, piece := range pieces {
		piece := piece
		g.Go(func() error {
			emb, err := e.embed(gctx, mem.EmbeddingModelKey, piece)
			if err != nil {
				return err
			}
			chunk := types.Chunk{
				ID:        chunkID(memoryKey, piece),
				Text:      piece,
				Embedding: emb,
			}
			return store.Upsert(gctx, []types.Chunk{chunk})
		})
	}
	return g.Wait()
}

// Forget clears every chunk stored for a memory.
func (e *Engine) Forget(ctx context.Context, memoryKey string) error {
	_, store, err := e.memoryByKey(memoryKey)
	if err != nil {
		return err
	}
	return store.Clear(ctx)
}

func (e *Engine) embed(ctx context.Context, modelKey, text string) ([]float32, error) {
	var vec []float32
	err := e.pool.WithSession(ctx, modelKey, func(h *pool.SessionHandle) error {
		v, err := h.Session().Embed(ctx, text)
		if err != nil {
			return err
		}
		vec = v
		return nil
	})
	return vec, err
}

func chunkID(memoryKey, text string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(memoryKey+"\x00"+text)).String()
}
