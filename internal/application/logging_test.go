package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/example/resource-scheduler/internal/logging"
)

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	custom := slog.New(slog.NewTextHandler(io.Discard, nil))
	if got := defaultLogger(custom); got != custom {
		t.Fatalf("expected custom logger to be returned")
	}

	if got := defaultLogger(nil); got != slog.Default() {
		t.Fatalf("expected default logger when none provided")
	}
}

func TestServiceLoggerPrefersContextLogger(t *testing.T) {
	t.Parallel()

	var ctxBuf, baseBuf bytes.Buffer
	ctxLogger := slog.New(slog.NewTextHandler(&ctxBuf, nil))
	base := slog.New(slog.NewTextHandler(&baseBuf, nil))

	ctx := logging.ContextWithLogger(context.Background(), ctxLogger)
	serviceLogger(ctx, base, "EventService", "CreateEvent", "event_id", "evt-1").Info("hello")

	if baseBuf.Len() != 0 {
		t.Fatalf("expected base logger to stay silent, got %q", baseBuf.String())
	}
	out := ctxBuf.String()
	for _, want := range []string{"service=EventService", "operation=CreateEvent", "event_id=evt-1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	cases := map[string]error{
		"":             nil,
		"unauthorized": ErrUnauthorized,
		"not_found":    &NotFoundError{Entity: EntityEvent, ID: "evt-1"},
		"conflict":     fmt.Errorf("batch: %w", &ConflictError{ResourceID: "res-1"}),
		"validation":   &ValidationError{FieldErrors: map[string]string{"title": "required"}},
		"unexpected":   errors.New("boom"),
	}

	for want, err := range cases {
		if got := ErrorKind(err); got != want {
			t.Errorf("ErrorKind(%v) = %q, want %q", err, got, want)
		}
	}
}
