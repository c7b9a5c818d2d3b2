package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/BetterCallFirewall/ssti-master/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging contract every component receives.
// fields are alternating key/value pairs.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	Err(err error, msg string, fields ...any)
}

// ZeroLogger is the zerolog-backed Logger
type ZeroLogger struct {
	logger zerolog.Logger
}

var _ Logger = (*ZeroLogger)(nil)

// New builds a logger from the log section of the config
func New(cfg config.LogConfig) *ZeroLogger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	writers := make([]io.Writer, 0, len(cfg.Writer))
	for _, writer := range cfg.Writer {
		switch writer {
		case "console":
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
		case "file":
			writers = append(writers, &lumberjack.Logger{
				Filename:   logPath(cfg.File),
				MaxSize:    10,
				MaxAge:     30,
				MaxBackups: 3,
				LocalTime:  true,
			})
		}
	}

	if len(writers) == 0 {
		return Nop()
	}

	zerolog.TimeFieldFormat = "2006-01-02 15:04:05"
	l := zerolog.New(io.MultiWriter(writers...)).
		With().
		Timestamp().
		Logger().
		Level(level)

	return &ZeroLogger{logger: l}
}

// NewWithWriter is used by tests that want to inspect output
func NewWithWriter(w io.Writer) *ZeroLogger {
	return &ZeroLogger{logger: zerolog.New(w).Level(zerolog.DebugLevel)}
}

// Nop создает пустой логгер
func Nop() *ZeroLogger { return &ZeroLogger{logger: zerolog.Nop()} }

func (z *ZeroLogger) Debug(msg string, fields ...any) {
	z.logger.Debug().Fields(fields).Msg(msg)
}

func (z *ZeroLogger) Info(msg string, fields ...any) {
	z.logger.Info().Fields(fields).Msg(msg)
}

func (z *ZeroLogger) Warn(msg string, fields ...any) {
	z.logger.Warn().Fields(fields).Msg(msg)
}

func (z *ZeroLogger) Error(msg string, fields ...any) {
	z.logger.Error().Fields(fields).Msg(msg)
}

func (z *ZeroLogger) Err(err error, msg string, fields ...any) {
	z.logger.Err(err).Fields(fields).Msg(msg)
}

// logPath returns the configured file or a default under the user cache dir
func logPath(file string) string {
	if file != "" {
		return file
	}
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "ssti-master", "ssti-master.log")
}
