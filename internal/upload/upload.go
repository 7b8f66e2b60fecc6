// Package upload stores rendered reports: S3 first, the local media
// directory when the bucket is not configured or unreachable.
package upload

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/rs/zerolog"

	"gridetl/internal/config"
	"gridetl/internal/logging"
	"gridetl/internal/metrics"
)

// ErrNotConfigured means the S3 settings are incomplete.
var ErrNotConfigured = errors.New("upload: object store not configured")

// ReportDir is the directory under the bucket prefix and the media root
// that holds profile reports.
const ReportDir = "analytics/data-profiles"

// Targets reported in Result.Target.
const (
	TargetS3    = "s3"
	TargetLocal = "local"
)

// Result describes a stored report.
type Result struct {
	URL    string
	Target string
	Key    string // object key or file path
	Size   int64
}

// SizeMB is the stored size in megabytes.
func (r Result) SizeMB() float64 { return float64(r.Size) / (1024 * 1024) }

// Uploader stores one report body under filename.
type Uploader interface {
	Upload(ctx context.Context, filename string, body []byte) (Result, error)
}

// Local writes reports below the media root.
type Local struct {
	Root string
	URL  string
}

func NewLocal(cfg config.MediaConfig) *Local {
	return &Local{Root: cfg.Root, URL: cfg.URL}
}

// Upload writes body to <root>/analytics/data-profiles/<filename> through a
// temporary file and returns <url>analytics/data-profiles/<filename>.
func (l *Local) Upload(ctx context.Context, filename string, body []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	dir := filepath.Join(l.Root, filepath.FromSlash(ReportDir))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("upload: local: %w", err)
	}
	dst := filepath.Join(dir, filename)
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return Result{}, fmt.Errorf("upload: local: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return Result{}, fmt.Errorf("upload: local: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Result{}, fmt.Errorf("upload: local: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return Result{}, fmt.Errorf("upload: local: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return Result{}, fmt.Errorf("upload: local: %w", err)
	}

	base := l.URL
	if base == "" {
		base = "/"
	} else if base[len(base)-1] != '/' {
		base += "/"
	}
	return Result{
		URL:    base + path.Join(ReportDir, filename),
		Target: TargetLocal,
		Key:    dst,
		Size:   int64(len(body)),
	}, nil
}

// Fallback tries the primary uploader through a circuit breaker and falls
// back to the secondary on any primary failure. Only both failing is an
// error.
type Fallback struct {
	primary   Uploader
	secondary Uploader
	cb        *gobreaker.CircuitBreaker[Result]
	log       zerolog.Logger
}

// NewFallback wires primary (may be nil) and secondary. After
// FailureThreshold consecutive primary failures the breaker opens and
// uploads go straight to the secondary until OpenTimeout passes.
func NewFallback(primary, secondary Uploader, bc config.BreakerConfig) *Fallback {
	log := logging.For("upload")
	cb := gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
		Name:        "s3-upload",
		MaxRequests: 1,
		Timeout:     bc.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("breaker state changed")
		},
	})
	return &Fallback{primary: primary, secondary: secondary, cb: cb, log: log}
}

// Upload implements Uploader.
func (f *Fallback) Upload(ctx context.Context, filename string, body []byte) (Result, error) {
	var primaryErr error
	if f.primary != nil {
		start := time.Now()
		res, err := f.cb.Execute(func() (Result, error) {
			return f.primary.Upload(ctx, filename, body)
		})
		metrics.IncCounter(metrics.UploadsTotal, 1, metrics.Labels{"target": TargetS3, "status": metrics.StatusOf(err)})
		if err == nil {
			f.log.Info().Str("url", res.URL).Dur("elapsed", time.Since(start)).Msg("report uploaded")
			return res, nil
		}
		primaryErr = err
		f.log.Warn().Err(err).Msg("primary upload failed, using local storage")
	} else {
		primaryErr = ErrNotConfigured
	}

	res, err := f.secondary.Upload(ctx, filename, body)
	metrics.IncCounter(metrics.UploadsTotal, 1, metrics.Labels{"target": TargetLocal, "status": metrics.StatusOf(err)})
	if err != nil {
		return Result{}, errors.Join(primaryErr, err)
	}
	f.log.Info().Str("path", res.Key).Msg("report saved locally")
	return res, nil
}

// State reports the breaker state ("closed", "half-open", "open").
func (f *Fallback) State() string { return f.cb.State().String() }
