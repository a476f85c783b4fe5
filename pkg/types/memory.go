package types

// MemoryStoreKind selects a memory's vector-store backend.
type MemoryStoreKind string

const (
	StoreInProcess MemoryStoreKind = "in_process"
	StoreExternal  MemoryStoreKind = "external"
)

// MemoryStoreConfig configures one of the two store backends spec.md
// names. Exactly one of the two blocks below applies, selected by Kind.
type MemoryStoreConfig struct {
	Kind MemoryStoreKind `json:"kind" yaml:"kind" toml:"kind"`

	// in_process
	IndexPath string `json:"index_path,omitempty" yaml:"index_path,omitempty" toml:"index_path,omitempty"`

	// external
	URL        string `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty"`
	Collection string `json:"collection,omitempty" yaml:"collection,omitempty" toml:"collection,omitempty"`
}

// Memory is a named vector store plus its embedding model and chunking
// policy.
type Memory struct {
	Name string `json:"name" yaml:"name,omitempty" toml:"name,omitempty"`

	EmbeddingModelKey string `json:"embedding_model" yaml:"embedding_model" toml:"embedding_model"`
	Dimensions        int    `json:"dimensions" yaml:"dimensions" toml:"dimensions"`

	Store MemoryStoreConfig `json:"store" yaml:"store" toml:"store"`

	ChunkSeparators []string `json:"chunk_separators,omitempty" yaml:"chunk_separators,omitempty" toml:"chunk_separators,omitempty"`
	ChunkMaxTokens  int      `json:"chunk_max_tokens,omitempty" yaml:"chunk_max_tokens,omitempty" toml:"chunk_max_tokens,omitempty"`
}

// WithDefaults mirrors poly-backend/src/config.rs's chunk defaults.
func (m Memory) WithDefaults() Memory {
	if len(m.ChunkSeparators) == 0 {
		m.ChunkSeparators = []string{"\n\n", "\n", ". ", " "}
	}
	if m.ChunkMaxTokens <= 0 {
		m.ChunkMaxTokens = 255
	}
	return m
}

// Chunk is a fragment of ingested text with its embedding and a
// deterministic id (UUIDv5 over the memory name and the chunk text).
type Chunk struct {
	ID               string    `json:"id"`
	SourceDocumentID string    `json:"source_document_id,omitempty"`
	Text             string    `json:"text"`
	Embedding        []float32 `json:"embedding,omitempty"`
}

// ScoredChunk is a query result: a stored chunk's payload plus its
// similarity score, in descending-score order.
type ScoredChunk struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	Payload string  `json:"payload"`
}
