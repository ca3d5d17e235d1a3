package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const envProduction = "production"

// New creates the structured logger for the given environment.
func New(env string) (*zap.Logger, error) {
	config := buildConfig(env)

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}

	return logger.With(zap.String("service", "book-store")), nil
}

// NewWithDefaults creates a logger from SERVER_ENV, falling back to a plain
// production logger if the configured one cannot be built.
func NewWithDefaults() *zap.Logger {
	env := os.Getenv("SERVER_ENV")
	if env == "" {
		env = "development"
	}

	logger, err := New(env)
	if err != nil {
		logger, _ = zap.NewProduction()
	}

	return logger
}

// NewForWriter builds a logger with the same encoding as New but writing to ws.
func NewForWriter(env string, ws zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	config := buildConfig(env)

	var encoder zapcore.Encoder
	if config.Encoding == "json" {
		encoder = zapcore.NewJSONEncoder(config.EncoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(config.EncoderConfig)
	}

	return zap.New(zapcore.NewCore(encoder, ws, level), zap.AddStacktrace(zapcore.ErrorLevel))
}

// Component returns a child logger for a named subsystem (worker, relay, ...).
func Component(l *zap.Logger, name string) *zap.Logger {
	return l.Named(name).With(zap.String("component", name))
}

func buildConfig(env string) zap.Config {
	var config zap.Config

	if env == envProduction {
		config = zap.NewProductionConfig()
		config.Encoding = "json"
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if env == envProduction {
		config.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	}

	// Containers collect stdout.
	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}

	return config
}
