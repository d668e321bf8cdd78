package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the key/value logging interface used across the service.
// Fields are passed as alternating key, value pairs.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)
	With(fields ...any) Logger
	Sync() error
}

// Config contains logger settings.
type Config struct {
	Level    string `mapstructure:"level" validate:"required,oneof=debug info warn error fatal"`
	Encoding string `mapstructure:"encoding" validate:"required,oneof=json console"`
}

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// New builds a zap-backed Logger from the given config.
func New(cfg *Config) (Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         cfg.Encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	log, err := zapConfig.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return &zapLogger{sugar: log.Sugar()}, nil
}

// NewDefault returns a console debug logger for development and tests.
func NewDefault() Logger {
	log, err := New(&Config{Level: "debug", Encoding: "console"})
	if err != nil {
		panic(err)
	}
	return log
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &zapLogger{sugar: zap.NewNop().Sugar()}
}

func (l *zapLogger) Debug(msg string, fields ...any) { l.sugar.Debugw(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...any)  { l.sugar.Infow(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...any)  { l.sugar.Warnw(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...any) { l.sugar.Errorw(msg, fields...) }

func (l *zapLogger) With(fields ...any) Logger {
	return &zapLogger{sugar: l.sugar.With(fields...)}
}

func (l *zapLogger) Sync() error {
	return l.sugar.Sync()
}
