package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/packdrop-backend/pkg/logger"
)

// QueryLogger routes gorm output into the service logger. Only failed
// statements and statements slower than the threshold are reported; a missing
// row is not a failure.
type QueryLogger struct {
	logg      *logger.Logger
	slow      time.Duration
	level     gormlogger.LogLevel
	sqlLength int
}

func NewQueryLogger(logg *logger.Logger, slow time.Duration) *QueryLogger {
	if logg == nil {
		logg = logger.Nop()
	}
	return &QueryLogger{logg: logg, slow: slow, level: gormlogger.Warn, sqlLength: 512}
}

func (q *QueryLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *q
	cp.level = level
	return &cp
}

func (q *QueryLogger) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Info(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *QueryLogger) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *QueryLogger) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Error(ctx, fmt.Sprintf(msg, args...), nil)
	}
}

func (q *QueryLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	slow := q.slow > 0 && elapsed > q.slow
	if !failed && !slow {
		return
	}

	stmt, rows := fc()
	if len(stmt) > q.sqlLength {
		stmt = stmt[:q.sqlLength] + "..."
	}
	ctx = q.logg.WithFields(ctx, map[string]any{
		"sql":        stmt,
		"rows":       rows,
		"elapsed_ms": elapsed.Milliseconds(),
	})
	switch {
	case failed && q.level >= gormlogger.Error:
		q.logg.Error(ctx, "db.query_failed", err)
	case slow && q.level >= gormlogger.Warn:
		q.logg.Warn(ctx, "db.query_slow")
	}
}
