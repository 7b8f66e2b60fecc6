// Package datadog implements a Datadog backend for internal/metrics.
//
// Observations are buffered in memory and submitted on a ticker (default once
// per minute) and once more on Close, so long imports produce a time series
// instead of a single spike at exit.
//
// Flush snapshots and resets the buffers under the lock, then submits outside
// it. Buffers are reset even when submission fails.
package datadog

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gridetl/internal/metrics"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"
)

// Options controls Datadog backend configuration.
type Options struct {
	// JobName becomes tag "job:<name>" on every metric. Defaults to "gridetl".
	JobName string

	// Tags are extra Datadog tags, e.g. []string{"env:prod"}.
	Tags []string

	// FlushEvery defaults to 60 seconds when <= 0.
	FlushEvery time.Duration

	// test seams
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter metricsSubmitter
}

// metricsSubmitter is the slice of *datadogV2.MetricsApi the backend uses,
// so tests can capture payloads without HTTP.
type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api metricsSubmitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags  []string
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu  sync.Mutex
	buf buffer
}

// buffer holds one collection window. Keys are tag lists joined by tagSep.
type buffer struct {
	steps     map[string]float64   // step, status
	records   map[string]float64   // kind
	batches   float64              //
	reports   map[string]float64   // profile, status
	uploads   map[string]float64   // target, status
	importErr map[string]float64   // source
	durations map[string][]float64 // step, status
}

func newBuffer() buffer {
	return buffer{
		steps:     make(map[string]float64),
		records:   make(map[string]float64),
		reports:   make(map[string]float64),
		uploads:   make(map[string]float64),
		importErr: make(map[string]float64),
		durations: make(map[string][]float64),
	}
}

func (b buffer) isEmpty() bool {
	return len(b.steps) == 0 &&
		len(b.records) == 0 &&
		b.batches == 0 &&
		len(b.reports) == 0 &&
		len(b.uploads) == 0 &&
		len(b.importErr) == 0 &&
		len(b.durations) == 0
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

// NewBackend constructs a Datadog backend and starts its flush loop.
// Credentials come from DD_API_KEY / DD_SITE as read by the official client.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "gridetl"
	}
	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "job:"+job)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	submitter := opts.submitter
	if submitter == nil {
		client := dd.NewAPIClient(dd.NewConfiguration())
		submitter = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        submitter,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,
		buf:        newBuffer(),
	}
	go b.loop()
	return b, nil
}

func (b *Backend) loop() {
	defer close(b.doneCh)
	t := b.newTicker(b.flushEvery)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and performs a final Flush. Call once.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

const tagSep = "\x00"

func key(parts ...string) string { return strings.Join(parts, tagSep) }

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.StepTotal:
		b.buf.steps[key(labels["step"], labels["status"])] += delta
	case metrics.RecordsTotal:
		if kind := labels["kind"]; kind != "" {
			b.buf.records[kind] += delta
		}
	case metrics.BatchesTotal:
		b.buf.batches += delta
	case metrics.ReportsTotal:
		b.buf.reports[key(orUnknown(labels["profile"]), orUnknown(labels["status"]))] += delta
	case metrics.UploadsTotal:
		b.buf.uploads[key(orUnknown(labels["target"]), orUnknown(labels["status"]))] += delta
	case metrics.ImportErrsTotal:
		b.buf.importErr[orUnknown(labels["source"])] += delta
	}
}

// ObserveHistogram implements metrics.Backend. Only step durations are kept.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 || name != metrics.StepDuration {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	k := key(labels["step"], labels["status"])
	b.buf.durations[k] = append(b.buf.durations[k], value)
}

func (b *Backend) snapshotAndReset() buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf
	b.buf = newBuffer()
	return s
}

// Flush submits buffered metrics. It returns nil without submitting when the
// window is empty.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}
	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	if err != nil {
		return fmt.Errorf("datadog submit: %w", err)
	}
	return nil
}

// buildSeries is pure: it turns a snapshot into Datadog series at nowUnix.
func (b *Backend) buildSeries(s buffer, nowUnix int64) []datadogV2.MetricSeries {
	series := make([]datadogV2.MetricSeries, 0, 16)

	counts := func(metric string, m map[string]float64, tagNames ...string) {
		for k, v := range m {
			if v == 0 {
				continue
			}
			series = append(series, countSeries(metric, v, withTags(b.baseTags, tagPairs(tagNames, k)...), nowUnix))
		}
	}

	counts("gridetl.step.total", s.steps, "step", "status")
	counts("gridetl.records.total", s.records, "kind")
	counts("gridetl.reports.total", s.reports, "profile", "status")
	counts("gridetl.uploads.total", s.uploads, "target", "status")
	counts("gridetl.import.errors.total", s.importErr, "source")

	if s.batches != 0 {
		series = append(series, countSeries("gridetl.batches.total", s.batches, b.baseTags, nowUnix))
	}
	for k, samples := range s.durations {
		tags := withTags(b.baseTags, tagPairs([]string{"step", "status"}, k)...)
		series = append(series, percentileSeries("gridetl.step.duration_seconds", samples, tags, nowUnix)...)
	}
	return series
}

// tagPairs zips tag names with the tagSep-joined values in k.
func tagPairs(names []string, k string) []string {
	vals := strings.SplitN(k, tagSep, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		v := "unknown"
		if i < len(vals) {
			v = vals[i]
		}
		out[i] = n + ":" + v
	}
	return out
}

func percentileSeries(prefix string, samples []float64, tags []string, nowUnix int64) []datadogV2.MetricSeries {
	if len(samples) == 0 {
		return nil
	}
	cp := append([]float64(nil), samples...)
	sort.Float64s(cp)
	return []datadogV2.MetricSeries{
		gaugeSeries(prefix+".p50", percentileNearestRank(cp, 0.50), tags, nowUnix),
		gaugeSeries(prefix+".p95", percentileNearestRank(cp, 0.95), tags, nowUnix),
		gaugeSeries(prefix+".max", cp[len(cp)-1], tags, nowUnix),
		gaugeSeries(prefix+".samples", float64(len(cp)), tags, nowUnix),
	}
}

func countSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
		Points: []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)}},
		Tags:   tags,
	}
}

func gaugeSeries(metric string, value float64, tags []string, nowUnix int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
		Points: []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)}},
		Tags:   tags,
	}
}

func withTags(base []string, extras ...string) []string {
	out := make([]string, 0, len(base)+len(extras))
	out = append(out, base...)
	return append(out, extras...)
}

func percentileNearestRank(s []float64, p float64) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return s[0]
	}
	if p >= 1 {
		return s[n-1]
	}
	idx := int(p*float64(n-1) + 0.5)
	if idx >= n {
		idx = n - 1
	}
	return s[idx]
}

// ParseTagsCSV parses comma-separated tags like "env:prod,service:gridetl".
func ParseTagsCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var _ metrics.Backend = (*Backend)(nil)
