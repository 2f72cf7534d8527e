// Package logx configures the process-wide zerolog console writer and
// provides small helpers for the structured stage-boundary fields every
// pipeline stage logs (cluster_id, stage, duration_ms).
package logx

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console-writer logger at the given level, RFC3339
// timestamps, writing to stderr so stdout stays free for machine-readable
// command output.
func New(level zerolog.Level) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Stage returns a child logger scoped to one cluster and pipeline stage,
// and a done func that logs duration_ms when called.
func Stage(l zerolog.Logger, clusterID, stage string) (zerolog.Logger, func()) {
	scoped := l.With().Str("cluster_id", clusterID).Str("stage", stage).Logger()
	start := time.Now()
	scoped.Debug().Msg("stage start")
	return scoped, func() {
		scoped.Info().Int64("duration_ms", time.Since(start).Milliseconds()).Msg("stage done")
	}
}
