package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestNew_WritesJSONAtLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelWarn)

	logger.Info("dropped")
	logger.Warn("kept", "resource_id", "res-1")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "kept" || entry["resource_id"] != "res-1" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelInfo,
		"debug":   slog.LevelDebug,
		" INFO ":  slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for input, want := range cases {
		got, err := ParseLevel(input)
		if err != nil {
			t.Fatalf("ParseLevel(%q) returned error: %v", input, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
	if _, err := ParseLevel("verbose"); err == nil {
		t.Fatalf("expected unknown level to fail")
	}
}

func TestContextLogger(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no logger on a bare context")
	}
	if ctx := With(context.Background(), "k", "v"); FromContext(ctx) != nil {
		t.Fatalf("expected With to leave a bare context untouched")
	}

	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), New(&buf, slog.LevelInfo))
	ctx = With(ctx, "request_id", "req-1")
	FromContext(ctx).Info("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	if entry["request_id"] != "req-1" {
		t.Fatalf("expected request_id attribute, got %v", entry)
	}
}

func TestScoped(t *testing.T) {
	var fallback bytes.Buffer
	Scoped(context.Background(), New(&fallback, slog.LevelInfo), "service", "ReportService", "", "window", "day").Info("built")

	var entry map[string]any
	if err := json.Unmarshal(fallback.Bytes(), &entry); err != nil {
		t.Fatalf("invalid JSON %q: %v", fallback.String(), err)
	}
	if entry["service"] != "ReportService" || entry["window"] != "day" {
		t.Fatalf("unexpected attributes: %v", entry)
	}
	if _, ok := entry["operation"]; ok {
		t.Fatalf("empty operation should be omitted: %v", entry)
	}

	if OrDefault(nil) != slog.Default() {
		t.Fatalf("expected slog.Default for a nil logger")
	}
}
