// Command llmhostd is the serving daemon: it loads the declarative
// config document, wires the session pool, task runner, and memory
// engine into a façade, and logs periodic stats snapshots until told to
// stop. Models load lazily on first acquire; none is preloaded here.
// Grounded on the teacher's cmd/modeld/main.go flag/signal handling,
// minus the HTTP listener the transport non-goal excludes — a
// transport would sit in front of facade.Service, but building one is
// out of scope here.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"llmhostd/internal/config"
	"llmhostd/internal/facade"
	"llmhostd/internal/memory"
	"llmhostd/internal/pool"
	"llmhostd/internal/task"
)

func main() {
	defaultConfig := os.Getenv("LLMHOSTD_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "llmhostd.yaml"
	}
	configPath := flag.String("config", defaultConfig, "path to the daemon's config document (yaml/json/toml)")
	statsInterval := flag.Duration("stats-interval", 30*time.Second, "how often to log a stats snapshot")
	flag.Parse()

	logger := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("component", "llmhostd").Logger()

	doc, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *configPath).Msg("load config")
	}

	publisher := pool.MultiPublisher{pool.NewPrometheusPublisher(prometheus.DefaultRegisterer)}
	p := pool.New(doc.Models, doc.Pool, publisher)

	mem, err := memory.New(p, doc.Memories, logger.With().Str("component", "memory").Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("init memory engine")
	}

	runner := task.New(p, doc.Tasks, mem)
	svc := facade.New(p, runner, mem, time.Now().Unix())

	logger.Info().
		Int("models", len(doc.Models)).
		Int("tasks", len(doc.Tasks)).
		Int("memories", len(doc.Memories)).
		Msg("llmhostd ready")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticker := time.NewTicker(*statsInterval)
	defer ticker.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-stop:
			logger.Info().Msg("shutting down")
			return
		case <-ticker.C:
			logStats(logger, svc)
		case <-ctx.Done():
			return
		}
	}
}

func logStats(logger zerolog.Logger, svc *facade.Service) {
	stats := svc.Stats()
	logger.Info().
		Int("instances", len(stats.Instances)).
		Int("tasks_tracked", len(stats.Tasks)).
		Msg("stats snapshot")
}
