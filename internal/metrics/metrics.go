// Package metrics is the backend-neutral metrics facade used by the importers
// and the report pipeline.
//
// Core code only calls the package-level helpers. A concrete backend
// (Pushgateway, Datadog) is selected once at process start with SetBackend;
// until then every call goes to a no-op backend.
package metrics

import (
	"sync"
	"time"
)

// Labels is a small set of metric dimensions, e.g. {"step": "extract"}.
type Labels map[string]string

// Backend receives metric observations.
//
// Implementations must be safe for concurrent use: importer batches and report
// workers record metrics from different goroutines.
type Backend interface {
	IncCounter(name string, delta float64, labels Labels)
	ObserveHistogram(name string, value float64, labels Labels)
	Flush() error
}

// Metric names shared by every backend.
const (
	StepTotal       = "etl_step_total"
	StepDuration    = "etl_step_duration_seconds"
	RecordsTotal    = "etl_records_total"
	BatchesTotal    = "etl_batches_total"
	ReportsTotal    = "etl_reports_total"
	UploadsTotal    = "etl_uploads_total"
	ImportErrsTotal = "etl_import_errors_total"
)

type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend swaps the process-wide backend. A nil backend restores the no-op.
func SetBackend(b Backend) {
	mu.Lock()
	defer mu.Unlock()
	if b == nil {
		backend = nopBackend{}
		return
	}
	backend = b
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// IncCounter adds delta to a counter on the active backend.
func IncCounter(name string, delta float64, labels Labels) {
	current().IncCounter(name, delta, labels)
}

// ObserveHistogram records one sample on the active backend.
func ObserveHistogram(name string, value float64, labels Labels) {
	current().ObserveHistogram(name, value, labels)
}

// Flush pushes buffered observations, if the backend buffers.
func Flush() error {
	return current().Flush()
}

// RecordStep counts one finished step and its duration under the given status
// ("ok" or "error").
func RecordStep(step, status string, elapsed time.Duration) {
	l := Labels{"step": step, "status": status}
	IncCounter(StepTotal, 1, l)
	ObserveHistogram(StepDuration, elapsed.Seconds(), l)
}

// StatusOf maps an error to the status label used by RecordStep.
func StatusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
