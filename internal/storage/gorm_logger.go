package storage

import (
	"context"
	"errors"
	"time"

	"github.com/BetterCallFirewall/ssti-master/internal/logger"
	"gorm.io/gorm"
	glog "gorm.io/gorm/logger"
)

// GormLogger forwards GORM output to the application logger
type GormLogger struct {
	log      logger.Logger
	LogLevel glog.LogLevel
}

var _ glog.Interface = (*GormLogger)(nil)

func NewGormLogger(l logger.Logger) *GormLogger {
	return &GormLogger{
		log:      l,
		LogLevel: glog.Warn,
	}
}

func (l *GormLogger) LogMode(level glog.LogLevel) glog.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *GormLogger) Info(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= glog.Info {
		l.log.Info(msg, "data", data)
	}
}

func (l *GormLogger) Warn(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= glog.Warn {
		l.log.Warn(msg, "data", data)
	}
}

func (l *GormLogger) Error(_ context.Context, msg string, data ...any) {
	if l.LogLevel >= glog.Error {
		l.log.Error(msg, "data", data)
	}
}

// Trace logs failed and slow statements
func (l *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= glog.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()
	fields := []any{
		"sql", sql,
		"rows", rows,
		"time_ms", float64(elapsed.Nanoseconds()) / 1e6,
	}

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.LogLevel >= glog.Error:
		l.log.Err(err, "🗄️ SQL error", fields...)
	case elapsed > time.Second && l.LogLevel >= glog.Warn:
		l.log.Warn("🐢 Slow SQL", fields...)
	case l.LogLevel == glog.Info:
		l.log.Debug("SQL", fields...)
	}
}
