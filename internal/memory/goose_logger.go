package memory

import "github.com/rs/zerolog"

// gooseLogger adapts zerolog to goose.Logger, the way
// pkg/log/goose.go adapts it for its own embedded migrations.
type gooseLogger struct {
	logger zerolog.Logger
}

func (g *gooseLogger) Fatalf(format string, v ...interface{}) { g.logger.Fatal().Msgf(format, v...) }
func (g *gooseLogger) Printf(format string, v ...interface{}) { g.logger.Debug().Msgf(format, v...) }
