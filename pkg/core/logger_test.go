package core

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewDefaultLogger(t *testing.T) {
	logger := NewDefaultLogger()

	if logger == nil {
		t.Error("NewDefaultLogger() should not return nil")
	}

	// Test that logger methods don't panic
	logger.Error("test error")
	logger.Errorf("test error: %s", "message")
	logger.Warn("test warning")
	logger.Warnf("test warning: %s", "message")
	logger.Info("test info")
	logger.Infof("test info: %s", "message")
	logger.Debug("test debug")
	logger.Debugf("test debug: %s", "message")
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	if _, err := NewLogger(LoggerConfig{Level: "loud", Encoding: "json"}); err == nil {
		t.Error("NewLogger() with invalid level should fail")
	}
}

func TestNewLogger_Console(t *testing.T) {
	logger, err := NewLogger(LoggerConfig{Level: "debug", Encoding: "console"})
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	logger.Debugf("console %d", 1)
}

func TestZapLogger_WritesLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	logger := NewZapLogger(zap.New(core))

	logger.Warnf("subscriber %s dropped", "a")
	logger.Debug("registered")
	With(logger, "stream", "ws-1").Errorf("lane panic: %v", "boom")

	entries := logs.All()
	if len(entries) != 3 {
		t.Fatalf("logged %d entries, want 3", len(entries))
	}
	if entries[0].Message != "subscriber a dropped" || entries[0].Level != zap.WarnLevel {
		t.Errorf("entry[0] = %q at %v, want warn 'subscriber a dropped'", entries[0].Message, entries[0].Level)
	}
	if got := entries[2].ContextMap()["stream"]; got != "ws-1" {
		t.Errorf("entry[2] stream field = %v, want ws-1", got)
	}
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	logger.Error("discarded")
	if With(logger, "k", "v") == nil {
		t.Error("With() should not return nil")
	}
}
