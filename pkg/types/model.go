// Package types holds the data model shared across the pool, biaser,
// memory, and task-runner packages: models, tasks, memories, chunks, and
// the request/response shapes the façade exposes.
package types

// SamplerChain holds the generation-time sampling knobs applied when no
// biaser forces a single continuation. Mirrors the teacher's task sampler
// fields (top_k/top_p/temperature/repeat_penalty).
type SamplerChain struct {
	TopK                     int     `json:"top_k,omitempty" yaml:"top_k,omitempty" toml:"top_k,omitempty"`
	TopP                     float32 `json:"top_p,omitempty" yaml:"top_p,omitempty" toml:"top_p,omitempty"`
	Temperature              float32 `json:"temperature,omitempty" yaml:"temperature,omitempty" toml:"temperature,omitempty"`
	RepeatPenalty            float32 `json:"repeat_penalty,omitempty" yaml:"repeat_penalty,omitempty" toml:"repeat_penalty,omitempty"`
	RepetitionPenaltyLastN   int     `json:"repetition_penalty_last_n,omitempty" yaml:"repetition_penalty_last_n,omitempty" toml:"repetition_penalty_last_n,omitempty"`
}

// DefaultSamplerChain mirrors the original implementation's defaults.
func DefaultSamplerChain() SamplerChain {
	return SamplerChain{
		TopK:                   40,
		TopP:                   0.95,
		Temperature:            0.80,
		RepeatPenalty:          1.30,
		RepetitionPenaltyLastN: 512,
	}
}

// Model is a stable, named, pre-loaded LLM. Immutable once loaded.
type Model struct {
	Key string `json:"key" yaml:"key,omitempty" toml:"key,omitempty"`

	Architecture string `json:"architecture" yaml:"architecture" toml:"architecture"`

	// Path is the on-disk model file location. URL and CacheDir are
	// carried in the config only: no code here downloads a model, so a
	// model whose file at Path is absent fails to load.
	Path    string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	URL     string `json:"url,omitempty" yaml:"url,omitempty" toml:"url,omitempty"`
	CacheDir string `json:"cache_dir,omitempty" yaml:"cache_dir,omitempty" toml:"cache_dir,omitempty"`

	LoraAdapters []string `json:"lora_adapters,omitempty" yaml:"lora_adapters,omitempty" toml:"lora_adapters,omitempty"`

	UseGPU bool `json:"use_gpu,omitempty" yaml:"use_gpu,omitempty" toml:"use_gpu,omitempty"`

	ContextSize int `json:"context_size,omitempty" yaml:"context_size,omitempty" toml:"context_size,omitempty"`

	// Sessions bounds the number of parallel sessions the pool may keep
	// open for this model (the "per-model" concurrency level).
	Sessions int `json:"sessions,omitempty" yaml:"sessions,omitempty" toml:"sessions,omitempty"`

	ThreadsPerSession int `json:"threads_per_session,omitempty" yaml:"threads_per_session,omitempty" toml:"threads_per_session,omitempty"`
	BatchSize         int `json:"batch_size,omitempty" yaml:"batch_size,omitempty" toml:"batch_size,omitempty"`

	DefaultSampler SamplerChain `json:"default_sampler,omitempty" yaml:"default_sampler,omitempty" toml:"default_sampler,omitempty"`
}

// WithDefaults fills zero-valued tunables with the teacher/original's
// defaults, leaving explicitly configured values untouched.
func (m Model) WithDefaults() Model {
	if m.ContextSize <= 0 {
		m.ContextSize = 512
	}
	if m.Sessions <= 0 {
		m.Sessions = 1
	}
	if m.ThreadsPerSession <= 0 {
		m.ThreadsPerSession = 8
	}
	if m.BatchSize <= 0 {
		m.BatchSize = 8
	}
	if m.DefaultSampler == (SamplerChain{}) {
		m.DefaultSampler = DefaultSamplerChain()
	}
	return m
}
