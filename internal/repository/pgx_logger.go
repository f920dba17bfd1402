package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
)

// slowQuery promotes a traced query to warn regardless of its pgx level.
const slowQuery = 500 * time.Millisecond

var pgxLevels = map[tracelog.LogLevel]zerolog.Level{
	tracelog.LogLevelTrace: zerolog.TraceLevel,
	tracelog.LogLevelDebug: zerolog.DebugLevel,
	tracelog.LogLevelInfo:  zerolog.InfoLevel,
	tracelog.LogLevelWarn:  zerolog.WarnLevel,
	tracelog.LogLevelError: zerolog.ErrorLevel,
}

// pgxLogger feeds pgx tracing into zerolog. Long polls re-run Count and
// Slice many times per request, so statements only show up at trace level
// unless they are slow or failed.
type pgxLogger struct {
	logger zerolog.Logger
}

func newPgxLogger(logger zerolog.Logger) *pgxLogger {
	return &pgxLogger{logger: logger.With().Str("component", "pgx").Logger()}
}

func (l *pgxLogger) Log(_ context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	if level == tracelog.LogLevelNone {
		return
	}
	zl, ok := pgxLevels[level]
	if !ok {
		zl = zerolog.InfoLevel
	}
	took, _ := data["time"].(time.Duration)
	if took > slowQuery && zl < zerolog.WarnLevel {
		zl = zerolog.WarnLevel
	}

	event := l.logger.WithLevel(zl)
	if took > 0 {
		event = event.Dur("took", took)
		delete(data, "time")
	}
	if sql, ok := data["sql"].(string); ok {
		if zl == zerolog.TraceLevel || zl >= zerolog.WarnLevel {
			event = event.Str("sql", sql)
		}
		delete(data, "sql")
	}
	// Payloads can be large; keep only how many args were bound.
	if args, ok := data["args"].([]any); ok {
		event = event.Int("arg_count", len(args))
		delete(data, "args")
	}
	if len(data) > 0 {
		event = event.Fields(data)
	}
	event.Msg(msg)
}
