package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const slowQuery = 200 * time.Millisecond

// queryLog routes gorm's own logging into the service logger. Only failed and
// slow statements are reported; record-not-found is a normal outcome here.
type queryLog struct {
	logg  *logger.Logger
	level gormlogger.LogLevel
}

func newQueryLog(logg *logger.Logger) gormlogger.Interface {
	return &queryLog{logg: logg, level: gormlogger.Warn}
}

func (q *queryLog) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *q
	clone.level = level
	return &clone
}

func (q *queryLog) Info(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Info {
		q.logg.Debug(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLog) Warn(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Warn {
		q.logg.Warn(ctx, fmt.Sprintf(msg, args...))
	}
}

func (q *queryLog) Error(ctx context.Context, msg string, args ...any) {
	if q.level >= gormlogger.Error {
		q.logg.Error(ctx, fmt.Sprintf(msg, args...), nil)
	}
}

func (q *queryLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if q.level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gorm.ErrRecordNotFound)
	if !failed && elapsed < slowQuery {
		return
	}
	sql, rows := fc()
	fields := map[string]any{"sql": sql, "rows": rows, "elapsed_ms": elapsed.Milliseconds()}
	logCtx := q.logg.WithFields(ctx, fields)
	if failed {
		if q.level >= gormlogger.Error {
			q.logg.Error(logCtx, "query failed", err)
		}
		return
	}
	if q.level >= gormlogger.Warn {
		q.logg.Warn(logCtx, "slow query")
	}
}
