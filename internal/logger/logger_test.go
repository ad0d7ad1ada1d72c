package logger

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		json, debug bool
		want        zapcore.Level
	}{
		{json: false, debug: false, want: zapcore.InfoLevel},
		{json: true, debug: true, want: zapcore.DebugLevel},
	}

	for _, tt := range tests {
		l, err := New(tt.json, tt.debug)
		if err != nil {
			t.Fatalf("New(%v, %v): %v", tt.json, tt.debug, err)
		}
		if !l.Core().Enabled(tt.want) || l.Core().Enabled(tt.want-1) {
			t.Fatalf("New(%v, %v): expected minimum level %v", tt.json, tt.debug, tt.want)
		}
	}
}

func TestEncoderConfig(t *testing.T) {
	cfg := encoderConfig()
	if cfg.MessageKey != "step" || cfg.TimeKey != "time" || cfg.LevelKey != "level" {
		t.Fatalf("unexpected encoder keys: %+v", cfg)
	}
}
