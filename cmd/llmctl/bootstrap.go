package main

import (
	"github.com/rs/zerolog"

	"llmhostd/internal/config"
	"llmhostd/internal/facade"
	"llmhostd/internal/memory"
	"llmhostd/internal/pool"
	"llmhostd/internal/task"
)

// openService loads the config document at path and wires a fresh
// façade over it, mirroring main.go's daemon wiring so the two binaries
// never drift apart.
func openService(path string) (*facade.Service, error) {
	doc, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	logger := zerolog.Nop()
	p := pool.New(doc.Models, doc.Pool, nil)
	mem, err := memory.New(p, doc.Memories, logger)
	if err != nil {
		return nil, err
	}
	runner := task.New(p, doc.Tasks, mem)
	return facade.New(p, runner, mem, 0), nil
}
