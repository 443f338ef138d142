package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/example/resource-scheduler/internal/application"
	"github.com/example/resource-scheduler/internal/logging"
)

// APIKeyVerifier checks a presented API key.
type APIKeyVerifier interface {
	Verify(key string) error
}

// RequireAPIKey rejects mutating requests that do not carry a valid
// `Authorization: Bearer <key>` header. GET, HEAD and OPTIONS pass through. A
// nil verifier disables the check.
func RequireAPIKey(verifier APIKeyVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			key := extractBearerToken(r)
			if key == "" {
				w.Header().Set("WWW-Authenticate", "Bearer")
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingAPIKey)
				return
			}

			if err := verifier.Verify(key); err != nil {
				if errors.Is(err, application.ErrUnauthorized) {
					w.Header().Set("WWW-Authenticate", "Bearer")
					responder.writeError(r.Context(), w, http.StatusUnauthorized, errAPIKeyRejected)
					return
				}
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "api key verification failed", "error", err)
				responder.writeError(r.Context(), w, http.StatusInternalServerError, errAPIKeyValidation)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

// RequestLogger attaches a request scoped logger to the context and logs the
// start and completion of every request. An incoming X-Request-ID header is
// reused; otherwise a process local sequence number is assigned.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
			if id == "" {
				id = strconv.FormatUint(counter.Add(1), 10)
			}
			w.Header().Set("X-Request-ID", id)

			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(recorder, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "status", recorder.status, "duration", time.Since(start))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(status int) {
	if !s.wroteHeader {
		s.status = status
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
