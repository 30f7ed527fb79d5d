package database

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-hclog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const slowQueryThreshold = 300 * time.Millisecond

type gormLogger struct {
	logger hclog.Logger
	level  logger.LogLevel
}

// NewGormLogger routes gorm logging through hclog.
func NewGormLogger(log hclog.Logger) logger.Interface {
	return &gormLogger{
		logger: log,
		level:  logger.Warn,
	}
}

func (g *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	return &gormLogger{
		logger: g.logger,
		level:  level,
	}
}

func (g *gormLogger) Info(ctx context.Context, msg string, data ...any) {
	if g.level >= logger.Info {
		g.logger.Info(msg, "data", data)
	}
}

func (g *gormLogger) Warn(ctx context.Context, msg string, data ...any) {
	if g.level >= logger.Warn {
		g.logger.Warn(msg, "data", data)
	}
}

func (g *gormLogger) Error(ctx context.Context, msg string, data ...any) {
	if g.level >= logger.Error {
		g.logger.Error(msg, "data", data)
	}
}

func (g *gormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && g.level >= logger.Error:
		sql, rows := fc()
		g.logger.Error("query failed", "error", err, "elapsed", elapsed, "rows", rows, "sql", sql)
	case elapsed > slowQueryThreshold && g.level >= logger.Warn:
		sql, rows := fc()
		g.logger.Warn("slow query", "elapsed", elapsed, "rows", rows, "sql", sql)
	case g.level >= logger.Info:
		sql, rows := fc()
		g.logger.Debug("query", "elapsed", elapsed, "rows", rows, "sql", sql)
	}
}
