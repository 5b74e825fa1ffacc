package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		verbose, debug bool
		want           zapcore.Level
	}{
		{false, false, zapcore.WarnLevel},
		{true, false, zapcore.InfoLevel},
		{false, true, zapcore.DebugLevel},
		{true, true, zapcore.DebugLevel},
	}
	for _, tt := range tests {
		if got := Level(tt.verbose, tt.debug); got != tt.want {
			t.Errorf("Level(%v, %v) = %v, want %v", tt.verbose, tt.debug, got, tt.want)
		}
	}
}

func TestNewRespectsLevel(t *testing.T) {
	log := New(false, false)
	if log.Core().Enabled(zapcore.InfoLevel) {
		t.Error("info should be hidden without --verbose")
	}
	if !log.Core().Enabled(zapcore.WarnLevel) {
		t.Error("warnings should always be shown")
	}
	if !New(false, true).Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug should be enabled with --debug")
	}
}
