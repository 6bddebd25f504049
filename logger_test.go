package frame

import (
	"bytes"
	"log/slog"
	"testing"
)

func TestLoggerDefaultsToSilent(t *testing.T) {
	SetLogger(nil)
	if Logger() == nil {
		t.Fatalf("Logger() should never return nil")
	}
	// Default logger discards everything regardless of level.
	Logger().Error("should not panic or block")
}

func TestSetLoggerReplacesActiveLogger(t *testing.T) {
	defer SetLogger(nil)

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	SetLogger(l)

	if Logger() != l {
		t.Fatalf("Logger() should return the logger passed to SetLogger")
	}

	Logger().Info("hello")
	if buf.Len() == 0 {
		t.Fatalf("expected the configured logger to actually receive the record")
	}
}

func TestSetLoggerNilRestoresSilence(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	SetLogger(nil)

	Logger().Info("should be discarded")
	if buf.Len() != 0 {
		t.Fatalf("expected no output after resetting to nil, got %q", buf.String())
	}
}
