package memory

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore is the in_process vector-store backend: chunks and their
// embeddings live in a local SQLite file, queried by a brute-force
// cosine scan. Grounded on rcliao-agent-memory/internal/store/sqlite.go's
// migration and connection setup, generalized from markdown chunks to
// embedded vector chunks.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) the database at path and
// applies embedded goose migrations.
func NewSQLiteStore(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.StoreIO("create memory db directory: %v", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)")
	if err != nil {
		return nil, errs.StoreIO("open memory db: %v", err)
	}

	goose.SetBaseFS(migrations)
	goose.SetLogger(&gooseLogger{logger: logger})
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, errs.StoreIO("set goose dialect: %v", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		db.Close()
		return nil, errs.StoreIO("migrate memory db: %v", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, chunks []types.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.StoreIO("begin upsert: %v", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range chunks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chunks (id, source_document_id, text, embedding, created_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET text = excluded.text, embedding = excluded.embedding`,
			c.ID, c.SourceDocumentID, c.Text, encodeEmbedding(c.Embedding), now)
		if err != nil {
			return errs.StoreIO("upsert chunk %s: %v", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.StoreIO("commit upsert: %v", err)
	}
	return nil
}

// Query brute-force-scans every stored chunk and returns the topN by
// cosine similarity, descending. Fine for the in_process scale this
// backend targets; callers needing more should configure an external
// store instead.
func (s *SQLiteStore) Query(ctx context.Context, embedding []float32, topN int) ([]types.ScoredChunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, text, embedding FROM chunks`)
	if err != nil {
		return nil, errs.StoreIO("query chunks: %v", err)
	}
	defer rows.Close()

	var scored []types.ScoredChunk
	for rows.Next() {
		var id, text string
		var raw []byte
		if err := rows.Scan(&id, &text, &raw); err != nil {
			return nil, errs.StoreIO("scan chunk: %v", err)
		}
		score := cosineSimilarity(embedding, decodeEmbedding(raw))
		scored = append(scored, types.ScoredChunk{ID: id, Score: score, Payload: text})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.StoreIO("iterate chunks: %v", err)
	}

	topKByScore(scored)
	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return errs.StoreIO("clear chunks: %v", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

// topKByScore sorts in place, highest score first.
func topKByScore(scored []types.ScoredChunk) {
	for i := 1; i < len(scored); i++ {
		for j := i; j > 0 && scored[j].Score > scored[j-1].Score; j-- {
			scored[j], scored[j-1] = scored[j-1], scored[j]
		}
	}
}

// encodeEmbedding/decodeEmbedding pack a float32 vector into a compact
// little-endian BLOB. No vector serialization library appears anywhere
// in the retrieved corpus, and gob/JSON would both cost far more space
// and CPU than this fixed-width encoding for a hot query-path column,
// so this one column is the deliberate standard-library exception
// recorded in DESIGN.md.
func encodeEmbedding(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
