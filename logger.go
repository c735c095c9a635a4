package imm

import (
	"log/slog"
	"os"
	"time"
)

// Logger wraps slog.Logger with sampler-specific helpers so every run logs
// the same field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a Logger with the given handler.
// If handler is nil, a text handler on stderr at info level is used.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{Logger: slog.New(handler)}
}

// NewJSONLogger creates a Logger that writes JSON records to stderr.
func NewJSONLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NewTextLogger creates a Logger that writes human-readable records to stderr.
func NewTextLogger(level slog.Level) *Logger {
	return NewLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// NoopLogger discards all output.
func NoopLogger() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// WithSampler tags every record with the sampler and its seed.
func (l *Logger) WithSampler(kind SamplerKind, seed uint64) *Logger {
	return &Logger{Logger: l.Logger.With("sampler", string(kind), "seed", seed)}
}

// WithChain tags every record with a chain index.
func (l *Logger) WithChain(chain int) *Logger {
	return &Logger{Logger: l.Logger.With("chain", chain)}
}

// LogRunStart logs the shape of an inference run.
func (l *Logger) LogRunStart(n, dim int, process ProcessKind, mixture MixtureKind, maxIter, warmup int) {
	l.Info("inference started",
		"observations", n,
		"dimension", dim,
		"process", string(process),
		"mixture", string(mixture),
		"max_iter", maxIter,
		"warmup", warmup,
	)
}

// LogIteration logs one completed sweep.
func (l *Logger) LogIteration(iter, clusters int, d time.Duration) {
	l.Debug("iteration completed",
		"iteration", iter,
		"clusters", clusters,
		"duration", d,
	)
}

// LogMove logs a split or merge proposal.
func (l *Logger) LogMove(kind MoveKind, i, j int, logRatio float64, accepted bool) {
	l.Debug("move proposed",
		"move", string(kind),
		"i", i,
		"j", j,
		"log_ratio", logRatio,
		"accepted", accepted,
	)
}

// LogRunDone logs the outcome of an inference run.
func (l *Logger) LogRunDone(iter, samples int, d time.Duration, err error) {
	if err != nil {
		l.Error("inference failed",
			"iteration", iter,
			"error", err,
		)
		return
	}
	l.Info("inference completed",
		"samples", samples,
		"duration", d,
	)
}
