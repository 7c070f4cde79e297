package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects where process logs go.
type Config struct {
	Level   string `mapstructure:"level" yaml:"level"`
	File    string `mapstructure:"file" yaml:"file"`
	Console bool   `mapstructure:"console" yaml:"console"`
	JSON    bool   `mapstructure:"json" yaml:"json"`
}

var (
	backendMu sync.RWMutex
	backend   = zap.NewNop()
)

// Configure installs the process-wide zap backend. Loggers created before the
// call keep their previous core. The returned func flushes buffered entries.
func Configure(cfg Config) (func() error, error) {
	level := zapcore.InfoLevel
	if raw := strings.TrimSpace(cfg.Level); raw != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(raw))); err != nil {
			return nil, err
		}
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "message"
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var cores []zapcore.Core
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotator), level))
	}
	if cfg.Console {
		var encoder zapcore.Encoder
		if cfg.JSON {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), level))
	}

	logger := zap.NewNop()
	if len(cores) > 0 {
		logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	}

	backendMu.Lock()
	backend = logger
	backendMu.Unlock()
	return logger.Sync, nil
}

// FromZap adapts an existing zap logger, mostly for tests using zaptest/observer.
func FromZap(logger *zap.Logger, component string) Logger {
	if logger == nil {
		return Nop()
	}
	return sugaredLogger{s: logger.With(zap.String("component", component)).Sugar()}
}

func newSugared(component string) Logger {
	backendMu.RLock()
	base := backend
	backendMu.RUnlock()
	return sugaredLogger{s: base.With(zap.String("component", component)).Sugar()}
}

type sugaredLogger struct {
	s *zap.SugaredLogger
}

func (l sugaredLogger) Debug(format string, args ...any) { l.s.Debugf(format, args...) }
func (l sugaredLogger) Info(format string, args ...any)  { l.s.Infof(format, args...) }
func (l sugaredLogger) Warn(format string, args ...any)  { l.s.Warnf(format, args...) }
func (l sugaredLogger) Error(format string, args ...any) { l.s.Errorf(format, args...) }
