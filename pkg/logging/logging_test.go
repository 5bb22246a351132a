package logging

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCompactHandlerFormat(t *testing.T) {
	var buf bytes.Buffer
	h := NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	log := slog.New(h).WithGroup("board").With("patientID", "0123456789abcdef")

	log.Info("node added", "name", "Ana María", "level", 2)

	line := buf.String()
	for _, want := range []string{"[INFO]", "board: node added", "patientID=01234567", `name="Ana María"`, "level=2"} {
		if !strings.Contains(line, want) {
			t.Errorf("output %q missing %q", line, want)
		}
	}
}

func TestCompactHandlerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	h := NewCompactHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})
	slog.New(h).Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("expected info to be filtered, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		verbose int
		want    slog.Level
		wantErr bool
	}{
		{"", 0, slog.LevelInfo, false},
		{"", 1, slog.LevelDebug, false},
		{"", 3, LevelTrace, false},
		{"WARN", 0, slog.LevelWarn, false},
		{"error", 2, slog.LevelError, false},
		{"loud", 0, slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.name, tt.verbose)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q, %d) error = %v", tt.name, tt.verbose, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q, %d) = %v, want %v", tt.name, tt.verbose, got, tt.want)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	var seen string
	h := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/board", nil)
	req.Header.Set("X-Request-ID", "fixed-request-id")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "fixed-request-id" {
		t.Errorf("handler saw request id %q", seen)
	}
	if rec.Header().Get("X-Request-ID") != "fixed-request-id" {
		t.Errorf("response header = %q", rec.Header().Get("X-Request-ID"))
	}
	if !strings.Contains(buf.String(), "request rejected") {
		t.Errorf("expected 4xx to be logged as rejected, got %q", buf.String())
	}
}
