package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"

	"github.com/Lingaraj-Patil/farm-yield/utils/log"
)

type LogAdapter struct {
	l log.Logger
}

func NewLogAdapter(l log.Logger) *LogAdapter {
	return &LogAdapter{l: l}
}

func (l *LogAdapter) Log(ctx context.Context, level pgx.LogLevel, msg string, data map[string]interface{}) {
	args := make([]interface{}, 0)
	for key, value := range data {
		if value != nil {
			args = append(args, key, value)
		}
	}

	logger := l.l
	switch level {
	case pgx.LogLevelTrace:
		logger.Trace(msg, args...)
	case pgx.LogLevelDebug:
		logger.Debug(msg, args...)
	case pgx.LogLevelInfo:
		logger.Info(msg, args...)
	case pgx.LogLevelWarn:
		logger.Warn(msg, args...)
	case pgx.LogLevelError:
		logger.Error(msg, args...)
	default:
		logger.Error(msg, "INVALID_PGX_LOG_LEVEL", level)
	}
}
