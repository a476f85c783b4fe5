package types

// BiaserSchema describes a JSON Schema fragment the biaser compiles into
// an automaton. Only the fragments spec.md names are supported; Type
// selects which of the optional fields apply.
type BiaserSchema struct {
	Type string `json:"type" yaml:"type" toml:"type"`

	// number
	Min         *float64 `json:"min,omitempty" yaml:"min,omitempty" toml:"min,omitempty"`
	Max         *float64 `json:"max,omitempty" yaml:"max,omitempty" toml:"max,omitempty"`
	MaxDecimals *int     `json:"max_decimals,omitempty" yaml:"max_decimals,omitempty" toml:"max_decimals,omitempty"`

	// string
	MaxLength *int     `json:"max_length,omitempty" yaml:"max_length,omitempty" toml:"max_length,omitempty"`
	Enum      []string `json:"enum,omitempty" yaml:"enum,omitempty" toml:"enum,omitempty"`

	// array
	Items    *BiaserSchema `json:"items,omitempty" yaml:"items,omitempty" toml:"items,omitempty"`
	MinItems *int          `json:"min_items,omitempty" yaml:"min_items,omitempty" toml:"min_items,omitempty"`
	MaxItems *int          `json:"max_items,omitempty" yaml:"max_items,omitempty" toml:"max_items,omitempty"`

	// object
	Properties map[string]*BiaserSchema `json:"properties,omitempty" yaml:"properties,omitempty" toml:"properties,omitempty"`
	Required   []string                 `json:"required,omitempty" yaml:"required,omitempty" toml:"required,omitempty"`

	// Compact disables whitespace admission between structural tokens.
	Compact bool `json:"compact,omitempty" yaml:"compact,omitempty" toml:"compact,omitempty"`
}

// TaskMemorization binds a task to a memory for retrieval-augmented
// prompting and/or prompt storage.
type TaskMemorization struct {
	MemoryKey    string `json:"memory" yaml:"memory" toml:"memory"`
	RetrieveN    int    `json:"retrieve_n,omitempty" yaml:"retrieve_n,omitempty" toml:"retrieve_n,omitempty"`
	StorePrompts bool   `json:"store_prompts,omitempty" yaml:"store_prompts,omitempty" toml:"store_prompts,omitempty"`
}

// Task is a named generation recipe bound to one model.
type Task struct {
	Name string `json:"name" yaml:"name,omitempty" toml:"name,omitempty"`

	ModelKey string `json:"model" yaml:"model" toml:"model"`

	Prelude string `json:"prelude,omitempty" yaml:"prelude,omitempty" toml:"prelude,omitempty"`
	Prefix  string `json:"prefix,omitempty" yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	Postfix string `json:"postfix,omitempty" yaml:"postfix,omitempty" toml:"postfix,omitempty"`

	StopSequences  []string `json:"stop_sequences,omitempty" yaml:"stop_sequences,omitempty" toml:"stop_sequences,omitempty"`
	PrivateTokens  []string `json:"private_tokens,omitempty" yaml:"private_tokens,omitempty" toml:"private_tokens,omitempty"`

	MaxTokens     int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" toml:"max_tokens,omitempty"`
	ContextBudget int `json:"context_budget,omitempty" yaml:"context_budget,omitempty" toml:"context_budget,omitempty"`

	Sampler *SamplerChain `json:"sampler,omitempty" yaml:"sampler,omitempty" toml:"sampler,omitempty"`

	Biaser     *BiaserSchema `json:"biaser,omitempty" yaml:"biaser,omitempty" toml:"biaser,omitempty"`
	BiasPrompt string        `json:"bias_prompt,omitempty" yaml:"bias_prompt,omitempty" toml:"bias_prompt,omitempty"`

	Memorization *TaskMemorization `json:"memorization,omitempty" yaml:"memorization,omitempty" toml:"memorization,omitempty"`
}

// StopReason enumerates why generation terminated.
type StopReason string

const (
	StopEndOfText     StopReason = "end_of_text"
	StopSequence      StopReason = "stop_sequence"
	StopMaxTokens     StopReason = "max_tokens"
	StopContextFull   StopReason = "context_full"
	StopCancelled     StopReason = "cancelled"
	StopTimeout       StopReason = "timeout"
	StopBiaserStuck   StopReason = "biaser_stuck"
)

// RequestKind selects which of the façade's generation operations a
// task runner invocation performs.
type RequestKind string

const (
	KindCompletion RequestKind = "completion"
	KindStream     RequestKind = "stream"
	KindChat       RequestKind = "chat"
	KindEmbedding  RequestKind = "embedding"
)

// Overrides carries per-request overrides to a task's defaults.
type Overrides struct {
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Sampler     *SamplerChain `json:"sampler,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
}

// CompletionResult is returned by a completion or a finished chat turn.
type CompletionResult struct {
	Text   string     `json:"text"`
	Reason StopReason `json:"reason"`
}
