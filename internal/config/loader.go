// Package config loads the declarative document that names every
// model, task, and memory the daemon serves, generalizing
// internal/config/loader.go's single flat Config into the multi-model,
// multi-task, multi-memory document spec.md describes, still dispatched
// on file extension across the same three formats.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"llmhostd/internal/pool"
	"llmhostd/pkg/errs"
	"llmhostd/pkg/types"
)

// Document is the full declarative configuration: every model, task,
// and memory the daemon serves, plus the pool's admission bounds.
type Document struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	Pool pool.Config `json:"pool" yaml:"pool" toml:"pool"`

	Models   []types.Model  `json:"models" yaml:"models" toml:"models"`
	Tasks    []types.Task   `json:"tasks" yaml:"tasks" toml:"tasks"`
	Memories []types.Memory `json:"memories" yaml:"memories" toml:"memories"`
}

// Overrides are environment-variable overlays applied after the
// document loads, via github.com/caarlos0/env, mirroring the flavor of
// override the teacher's cmd/modeld flag/env precedence implements.
type Overrides struct {
	Addr string `env:"LLMHOSTD_ADDR"`
}

// Load reads doc from path (dispatching on extension, same three
// formats internal/config/loader.go supports), applies a .env file
// alongside it if present, and overlays LLMHOSTD_* environment
// variables on top.
func Load(path string) (Document, error) {
	var doc Document
	if path == "" {
		return doc, errs.ConfigInvalid("empty config path")
	}

	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	b, err := os.ReadFile(path)
	if err != nil {
		return doc, errs.ConfigInvalid("read %s: %v", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &doc); err != nil {
			return doc, errs.ConfigInvalid("parse %s: %v", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &doc); err != nil {
			return doc, errs.ConfigInvalid("parse %s: %v", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &doc); err != nil {
			return doc, errs.ConfigInvalid("parse %s: %v", path, err)
		}
	default:
		return doc, errs.ConfigInvalid("unsupported config extension: %s", ext)
	}

	var ov Overrides
	if err := env.Parse(&ov); err != nil {
		return doc, errs.ConfigInvalid("parse environment overrides: %v", err)
	}
	if ov.Addr != "" {
		doc.Addr = ov.Addr
	}

	if err := doc.Validate(); err != nil {
		return doc, err
	}
	return doc, nil
}

// Validate checks every task and memory references a model key that
// was actually declared, catching the most common authoring mistake
// before the daemon starts serving.
func (d Document) Validate() error {
	models := make(map[string]bool, len(d.Models))
	for _, m := range d.Models {
		if m.Key == "" {
			return errs.ConfigInvalid("model entry missing key")
		}
		models[m.Key] = true
	}
	for _, t := range d.Tasks {
		if t.Name == "" {
			return errs.ConfigInvalid("task entry missing name")
		}
		if !models[t.ModelKey] {
			return errs.ConfigInvalid("task %q references unknown model %q", t.Name, t.ModelKey)
		}
	}
	for _, m := range d.Memories {
		if m.Name == "" {
			return errs.ConfigInvalid("memory entry missing name")
		}
		if m.EmbeddingModelKey != "" && !models[m.EmbeddingModelKey] {
			return errs.ConfigInvalid("memory %q references unknown model %q", m.Name, m.EmbeddingModelKey)
		}
	}
	return nil
}
