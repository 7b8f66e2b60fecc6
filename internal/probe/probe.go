// Package probe samples the start of an OPSD export and reports how its
// header would be classified by an import, without touching storage.
//
// Only a bounded prefix is read (local path, file:// or http(s)://), so wide
// multi-gigabyte exports can be inspected quickly.
package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gridetl/internal/columns"
	"gridetl/internal/parser/csv"
	"gridetl/internal/transformer"
)

// DefaultMaxBytes is the sample size; OPSD headers alone can exceed 20KB.
const DefaultMaxBytes = 256 << 10

// Options control sampling.
type Options struct {
	// URL is a local path, file:// URL or http(s):// URL.
	URL string
	// MaxBytes to sample from the start of the file.
	MaxBytes int
	// AllowInsecureTLS skips certificate verification for HTTP sources.
	AllowInsecureTLS bool
	// Countries restricts the weather mapping; empty admits all.
	Countries []string
}

// BucketCount is the number of columns in one bucket.
type BucketCount struct {
	Bucket columns.Bucket
	Count  int
}

// Report is the outcome of a probe.
type Report struct {
	Source  string
	Columns int
	Buckets []BucketCount
	Index   columns.Index
	Weather []columns.WeatherColumns
	HasUTC  bool
	HasCET  bool
	// SampleRows counts complete data rows in the sample; First and Last are
	// their utc_timestamp range when parseable.
	SampleRows  int
	First, Last time.Time
	Truncated   bool
}

// PeekFn fetches the first n bytes of url.
type PeekFn func(ctx context.Context, url string, n int, insecure bool) ([]byte, error)

// peekFn is overridden in tests.
var peekFn PeekFn = peek

func peek(ctx context.Context, url string, n int, insecure bool) ([]byte, error) {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return peekHTTP(ctx, url, n, insecure)
	}
	f, err := os.Open(strings.TrimPrefix(url, "file://"))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, int64(n)))
}

func peekHTTP(ctx context.Context, url string, n int, insecure bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", n-1))
	client := &http.Client{Transport: &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}, //nolint:gosec // opt-in flag
	}}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, int64(n)))
}

// Probe samples opt.URL and classifies its header.
func Probe(ctx context.Context, opt Options) (Report, error) {
	if opt.MaxBytes <= 0 {
		opt.MaxBytes = DefaultMaxBytes
	}
	r := Report{Source: opt.URL}
	sample, err := peekFn(ctx, opt.URL, opt.MaxBytes, opt.AllowInsecureTLS)
	if err != nil {
		return r, fmt.Errorf("probe: read sample: %w", err)
	}
	if len(sample) >= opt.MaxBytes {
		// drop the partial last line
		r.Truncated = true
		if i := bytes.LastIndexByte(sample, '\n'); i >= 0 {
			sample = sample[:i+1]
		}
	}

	stream, err := csv.Open(io.NopCloser(bytes.NewReader(sample)), csv.DefaultOptions())
	if err != nil {
		return r, fmt.Errorf("probe: %w", err)
	}
	header := stream.Header()
	r.Columns = len(header)
	r.HasUTC = stream.Has("utc_timestamp")
	r.HasCET = stream.Has("cet_cest_timestamp")

	m := columns.Classify(header)
	for _, b := range columns.Buckets {
		r.Buckets = append(r.Buckets, BucketCount{Bucket: b, Count: len(m[b])})
	}
	r.Index = columns.IndexByEntity(m)
	if columns.HasWeatherColumns(header) {
		r.Weather = columns.ClassifyWeather(header, opt.Countries)
	}

	if err := r.scanTimestamps(ctx, stream); err != nil {
		return r, err
	}
	return r, nil
}

func (r *Report) scanTimestamps(ctx context.Context, stream *csv.Stream) error {
	rows := make(chan *transformer.Row, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- stream.StreamRows(ctx, []string{"utc_timestamp"}, rows, nil)
		close(rows)
	}()
	for row := range rows {
		r.SampleRows++
		if s := row.String(0); s != "" {
			if t, err := transformer.ParseTimestamp(s); err == nil {
				if r.First.IsZero() || t.Before(r.First) {
					r.First = t
				}
				if t.After(r.Last) {
					r.Last = t
				}
			}
		}
		row.Free()
	}
	if err := <-errCh; err != nil {
		return fmt.Errorf("probe: %w", err)
	}
	return nil
}
