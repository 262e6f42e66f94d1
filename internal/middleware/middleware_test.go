package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"signal_relay/internal/telemetry"
)

func TestRequestLogger_AttachesRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := telemetry.NewLogger(telemetry.LogConfig{Level: "info", Format: "json", Output: &buf})

	var innerHasLogger bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		telemetry.L(r.Context()).Info("inside")
		innerHasLogger = true
		w.WriteHeader(http.StatusTeapot)
	})

	seed := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(telemetry.WithLogger(r.Context(), base)))
		})
	}
	handler := seed(chimw.RequestID(RequestLogger(inner)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if !innerHasLogger {
		t.Fatal("inner handler was not called")
	}

	dec := json.NewDecoder(&buf)
	var lines []map[string]any
	for dec.More() {
		var line map[string]any
		if err := dec.Decode(&line); err != nil {
			t.Fatalf("decoding log line: %v", err)
		}
		lines = append(lines, line)
	}
	if len(lines) != 2 {
		t.Fatalf("got %d log lines, want 2", len(lines))
	}
	for _, line := range lines {
		if line["request_id"] == nil || line["request_id"] == "" {
			t.Errorf("log line missing request_id: %v", line)
		}
	}
	if got := lines[1]["status"]; got != float64(http.StatusTeapot) {
		t.Errorf("status = %v, want %d", got, http.StatusTeapot)
	}
}

func TestInstrument_RecordsRoutePattern(t *testing.T) {
	m := telemetry.NewMetrics()

	r := chi.NewRouter()
	r.Use(Instrument(m))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 3; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
	}

	if got := testutil.CollectAndCount(m.RequestDuration); got != 1 {
		t.Errorf("histogram series = %d, want 1", got)
	}
}

func TestInstrument_NilMetrics(t *testing.T) {
	called := false
	handler := Instrument(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !called {
		t.Error("inner handler was not called")
	}
}
