package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingBackend struct {
	mu       sync.Mutex
	counters map[string]float64
	samples  map[string][]float64
	flushes  int
}

func newRecording() *recordingBackend {
	return &recordingBackend{counters: map[string]float64{}, samples: map[string][]float64{}}
}

func (r *recordingBackend) IncCounter(name string, delta float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name+"|"+labels["step"]+"|"+labels["status"]] += delta
}

func (r *recordingBackend) ObserveHistogram(name string, value float64, labels Labels) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := name + "|" + labels["step"] + "|" + labels["status"]
	r.samples[k] = append(r.samples[k], value)
}

func (r *recordingBackend) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushes++
	return nil
}

func TestSetBackend_NilRestoresNop(t *testing.T) {
	rb := newRecording()
	SetBackend(rb)
	SetBackend(nil)
	t.Cleanup(func() { SetBackend(nil) })

	IncCounter(BatchesTotal, 1, nil)
	if err := Flush(); err != nil {
		t.Fatalf("Flush on nop=%v, want nil", err)
	}
	if rb.flushes != 0 || len(rb.counters) != 0 {
		t.Fatalf("recording backend received calls after SetBackend(nil)")
	}
}

func TestRecordStep(t *testing.T) {
	rb := newRecording()
	SetBackend(rb)
	t.Cleanup(func() { SetBackend(nil) })

	RecordStep("extract", StatusOf(nil), 1500*time.Millisecond)
	RecordStep("extract", StatusOf(errors.New("x")), time.Second)

	if got := rb.counters[StepTotal+"|extract|ok"]; got != 1 {
		t.Fatalf("ok count=%v, want 1", got)
	}
	if got := rb.counters[StepTotal+"|extract|error"]; got != 1 {
		t.Fatalf("error count=%v, want 1", got)
	}
	if got := rb.samples[StepDuration+"|extract|ok"]; len(got) != 1 || got[0] != 1.5 {
		t.Fatalf("duration samples=%v, want [1.5]", got)
	}
}
