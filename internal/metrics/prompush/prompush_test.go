package prompush

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"gridetl/internal/metrics"
)

func TestNewBackend_RequiresURL(t *testing.T) {
	if _, err := NewBackend("job", ""); err == nil {
		t.Fatalf("NewBackend with empty url: err=nil, want error")
	}
}

func TestFlush_PushesRecordedMetrics(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		path = r.URL.Path
		body = string(raw)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b, err := NewBackend("import_opsd", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend err=%v", err)
	}

	b.IncCounter(metrics.RecordsTotal, 3, metrics.Labels{"kind": "load"})
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	b.ObserveHistogram(metrics.StepDuration, 0.2, metrics.Labels{"step": "batch", "status": "ok"})
	// ignored
	b.IncCounter("not_registered", 1, nil)
	b.IncCounter(metrics.RecordsTotal, -1, metrics.Labels{"kind": "load"})

	if err := b.Flush(); err != nil {
		t.Fatalf("Flush err=%v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if !strings.Contains(path, "/metrics/job/import_opsd") {
		t.Fatalf("push path=%q, want job grouping", path)
	}
	if body == "" {
		t.Fatalf("push body empty")
	}
}

func TestFlush_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b, err := NewBackend("", srv.URL)
	if err != nil {
		t.Fatalf("NewBackend err=%v", err)
	}
	b.IncCounter(metrics.BatchesTotal, 1, nil)
	if err := b.Flush(); err == nil {
		t.Fatalf("Flush err=nil, want error on 500")
	}
}
