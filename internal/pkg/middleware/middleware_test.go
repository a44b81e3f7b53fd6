package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"slidecast/internal/pkg/logger"
)

func TestRequestID(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Context().Value(logger.RequestIDKey)
		if reqID == nil || reqID == "" {
			t.Error("expected request ID in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generates new request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		reqID := rec.Header().Get(RequestIDHeader)
		if reqID == "" {
			t.Error("expected X-Request-ID header to be set")
		}
		if len(reqID) != 32 { // hex encoded 16 bytes
			t.Errorf("expected request ID length 32, got %d", len(reqID))
		}
	})

	t.Run("preserves existing request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "existing-id-123")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		reqID := rec.Header().Get(RequestIDHeader)
		if reqID != "existing-id-123" {
			t.Errorf("expected preserved request ID 'existing-id-123', got %s", reqID)
		}
	})
}

func TestLogging(t *testing.T) {
	var logBuf bytes.Buffer
	log := logger.New(logger.Config{
		Level:  "info",
		Format: "json",
		Output: &logBuf,
	})

	handler := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("hello"))
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	logOutput := logBuf.String()

	if !strings.Contains(logOutput, "request completed") {
		t.Errorf("expected 'request completed' in log, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "GET") {
		t.Errorf("expected method in log, got: %s", logOutput)
	}
	if !strings.Contains(logOutput, "/test") {
		t.Errorf("expected path in log, got: %s", logOutput)
	}
}

func TestLoggingStatusLevels(t *testing.T) {
	tests := []struct {
		name   string
		status int
		level  string
	}{
		{"2xx logs info", http.StatusOK, `"level":"INFO"`},
		{"4xx logs warn", http.StatusBadRequest, `"level":"WARN"`},
		{"5xx logs error", http.StatusInternalServerError, `"level":"ERROR"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			log := logger.New(logger.Config{
				Level:  "info",
				Format: "json",
				Output: &logBuf,
			})

			handler := Logging(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest("GET", "/test", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if !strings.Contains(logBuf.String(), tt.level) {
				t.Errorf("expected %s in log, got: %s", tt.level, logBuf.String())
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var logBuf bytes.Buffer
	log := logger.New(logger.Config{
		Level:  "info",
		Format: "json",
		Output: &logBuf,
	})

	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "INTERNAL_ERROR") {
		t.Errorf("expected error envelope, got: %s", rec.Body.String())
	}
	if !strings.Contains(logBuf.String(), "panic recovered") {
		t.Errorf("expected panic log, got: %s", logBuf.String())
	}
}

func TestResponseWriterCapturesSize(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := wrapResponseWriter(rec)

	_, _ = rw.Write([]byte("hello"))
	_, _ = rw.Write([]byte(" world"))

	if rw.size != 11 {
		t.Errorf("expected size 11, got %d", rw.size)
	}
	if rw.status != http.StatusOK {
		t.Errorf("expected implicit 200, got %d", rw.status)
	}
}

func TestResponseWriterIgnoresDoubleWriteHeader(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := wrapResponseWriter(rec)

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK)

	if rw.status != http.StatusTeapot {
		t.Errorf("expected first status to win, got %d", rw.status)
	}
}
