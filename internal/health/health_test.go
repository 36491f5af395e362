package health

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeSource struct {
	ready bool
}

func (f *fakeSource) Ready() bool { return f.ready }
func (f *fakeSource) Stats() any  { return map[string]int{"active_sessions": 3} }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	s := NewServer(":0", &fakeSource{}, quietLogger())
	rec := get(t, s.Handler(), "/health")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("/health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestReady(t *testing.T) {
	source := &fakeSource{}
	s := NewServer(":0", source, quietLogger())

	if rec := get(t, s.Handler(), "/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/ready before ready = %d", rec.Code)
	}
	source.ready = true
	if rec := get(t, s.Handler(), "/ready"); rec.Code != http.StatusOK {
		t.Errorf("/ready = %d", rec.Code)
	}
}

func TestStats(t *testing.T) {
	s := NewServer(":0", SourceFuncs{
		ReadyFunc: func() bool { return true },
		StatsFunc: func() any { return map[string]int{"active_sessions": 3} },
	}, quietLogger())

	rec := get(t, s.Handler(), "/stats")
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var got map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding /stats: %v", err)
	}
	if got["active_sessions"] != 3 {
		t.Errorf("/stats = %v", got)
	}
}

func TestStartStop(t *testing.T) {
	s := NewServer("127.0.0.1:0", &fakeSource{ready: true}, quietLogger())
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	resp, err := http.Get("http://" + s.Addr().String() + "/ready")
	if err != nil {
		t.Fatalf("GET /ready: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/ready = %d", resp.StatusCode)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
}
