package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsoleHandlerFormatsComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	NewComponentLogger(logger, "delta").Info("patched manifest", Int("entries", 3))

	line := buf.String()
	if !strings.Contains(line, "delta: patched manifest") {
		t.Errorf("missing component prefix: %q", line)
	}
	if !strings.Contains(line, "entries=3") {
		t.Errorf("missing attribute: %q", line)
	}
}

func TestJSONHandlerEmitsLowercaseLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Warn("cache entry stale", String("fingerprint", "abc"))

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected lowercase level in %q", out)
	}
	if !strings.Contains(out, `"fingerprint":"abc"`) {
		t.Errorf("expected fingerprint attr in %q", out)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "error", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("should be dropped")
	if buf.Len() != 0 {
		t.Errorf("info line emitted despite error level: %q", buf.String())
	}

	logger.Error("kept")
	if buf.Len() == 0 {
		t.Error("error line was not emitted")
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
