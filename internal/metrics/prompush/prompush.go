// Package prompush implements metrics.Backend on a private Prometheus
// registry that is pushed to a Pushgateway on Flush.
//
// Batch commands are short-lived, so scraping is not an option; the pushed
// group is keyed by job name.
package prompush

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"gridetl/internal/metrics"
)

// labelNames fixes the label set per metric; Prometheus rejects a vector whose
// label names change between observations.
var labelNames = map[string][]string{
	metrics.StepTotal:       {"step", "status"},
	metrics.StepDuration:    {"step", "status"},
	metrics.RecordsTotal:    {"kind"},
	metrics.BatchesTotal:    nil,
	metrics.ReportsTotal:    {"profile", "status"},
	metrics.UploadsTotal:    {"target", "status"},
	metrics.ImportErrsTotal: {"source"},
}

var help = map[string]string{
	metrics.StepTotal:       "Finished pipeline steps by status.",
	metrics.StepDuration:    "Pipeline step duration in seconds.",
	metrics.RecordsTotal:    "Normalized records built, by kind.",
	metrics.BatchesTotal:    "Import batches processed.",
	metrics.ReportsTotal:    "Report generations by profile and terminal status.",
	metrics.UploadsTotal:    "Report uploads by target and status.",
	metrics.ImportErrsTotal: "Rows or cells rejected during import.",
}

type Backend struct {
	pusher     *push.Pusher
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
}

// NewBackend registers the known metric vectors and prepares a pusher for
// gatewayURL under the given job name.
func NewBackend(job, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: empty gateway url")
	}
	if job == "" {
		job = "gridetl"
	}

	reg := prometheus.NewRegistry()
	b := &Backend{
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}

	names := make([]string, 0, len(labelNames))
	for n := range labelNames {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, name := range names {
		if name == metrics.StepDuration {
			h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    name,
				Help:    help[name],
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 10),
			}, labelNames[name])
			if err := reg.Register(h); err != nil {
				return nil, fmt.Errorf("prompush: register %s: %w", name, err)
			}
			b.histograms[name] = h
			continue
		}
		c := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help[name]}, labelNames[name])
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
		b.counters[name] = c
	}

	b.pusher = push.New(gatewayURL, job).Gatherer(reg)
	return b, nil
}

func values(name string, l metrics.Labels) []string {
	names := labelNames[name]
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = l[n]
	}
	return out
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	c, ok := b.counters[name]
	if !ok || delta <= 0 {
		return
	}
	if m, err := c.GetMetricWithLabelValues(values(name, labels)...); err == nil {
		m.Add(delta)
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	h, ok := b.histograms[name]
	if !ok || value < 0 {
		return
	}
	if m, err := h.GetMetricWithLabelValues(values(name, labels)...); err == nil {
		m.Observe(value)
	}
}

// Flush replaces the job's metric group on the gateway.
func (b *Backend) Flush() error {
	if err := b.pusher.Push(); err != nil {
		return fmt.Errorf("prompush: push: %w", err)
	}
	return nil
}

var _ metrics.Backend = (*Backend)(nil)
