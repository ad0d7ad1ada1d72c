// Package logger builds the zap logger shared by every gigboard command
// and the structured fields attached to its entries.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	encodingConsole = "console"
	encodingJSON    = "json"

	// Entries read as the step a command is on.
	messageKey = "step"
)

// New returns a logger writing to stdout. asJSON switches from console to json
// encoding, debug lowers the level from info to debug.
func New(asJSON bool, debug bool) (*zap.Logger, error) {
	cfg := zap.Config{
		Encoding:         encodingConsole,
		Level:            zap.NewAtomicLevelAt(zapcore.InfoLevel),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
		EncoderConfig:    encoderConfig(),
	}

	if asJSON {
		cfg.Encoding = encodingJSON
	}
	if debug {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}

	return cfg.Build()
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:   messageKey,
		LevelKey:     "level",
		TimeKey:      "time",
		CallerKey:    "caller",
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeTime:   zapcore.RFC3339TimeEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
}
