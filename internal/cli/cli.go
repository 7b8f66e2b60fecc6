// Package cli holds the bootstrap shared by the gridetl commands: config,
// logging, metrics backend, storage and report upload wiring.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"gridetl/internal/config"
	"gridetl/internal/logging"
	"gridetl/internal/metrics"
	"gridetl/internal/metrics/datadog"
	"gridetl/internal/metrics/prompush"
	"gridetl/internal/storage"
	"gridetl/internal/store"
	"gridetl/internal/transformer"
	"gridetl/internal/upload"

	// every backend is registered; config picks one.
	_ "gridetl/internal/storage/all"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitFatal = 1
	ExitUsage = 2
)

// Deps are the external seams of a command.
type Deps struct {
	Stdout io.Writer
	Stderr io.Writer

	// LoadConfig defaults to config.Load.
	LoadConfig func() (*config.Config, error)
	Now        func() time.Time
}

// OS returns Deps wired to the process.
func OS() Deps {
	return Deps{Stdout: os.Stdout, Stderr: os.Stderr, LoadConfig: config.Load, Now: time.Now}
}

func (d Deps) withDefaults() Deps {
	if d.Stdout == nil {
		d.Stdout = io.Discard
	}
	if d.Stderr == nil {
		d.Stderr = io.Discard
	}
	if d.LoadConfig == nil {
		d.LoadConfig = config.Load
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return d
}

// Env is a configured command run. Close releases everything it opened.
type Env struct {
	Deps
	Config *config.Config

	closers []func()
}

// Setup loads the configuration and initializes logging and metrics for the
// named command.
func Setup(ctx context.Context, name string, d Deps) (*Env, error) {
	d = d.withDefaults()
	cfg, err := d.LoadConfig()
	if err != nil {
		return nil, err
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: d.Stderr})
	e := &Env{Deps: d, Config: cfg}
	e.setupMetrics(ctx, name)
	return e, nil
}

// setupMetrics installs the configured backend. A backend that fails to
// start leaves metrics disabled rather than failing the command.
func (e *Env) setupMetrics(ctx context.Context, name string) {
	mc := e.Config.Metrics
	log := logging.For("metrics")
	job := mc.Job
	if job == "" {
		job = "gridetl"
	}
	job += "_" + name

	switch mc.Backend {
	case "pushgateway":
		b, err := prompush.NewBackend(job, mc.PushgatewayURL)
		if err != nil {
			log.Warn().Err(err).Msg("push gateway backend unavailable, metrics disabled")
			return
		}
		metrics.SetBackend(b)
		e.closers = append(e.closers, func() {
			if err := metrics.Flush(); err != nil {
				log.Warn().Err(err).Msg("metrics flush failed")
			}
		})
	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{
			JobName:    job,
			Tags:       datadog.ParseTagsCSV(mc.Tags),
			FlushEvery: mc.FlushEvery,
		})
		if err != nil {
			log.Warn().Err(err).Msg("datadog backend unavailable, metrics disabled")
			return
		}
		metrics.SetBackend(b)
		e.closers = append(e.closers, func() {
			if err := b.Close(); err != nil {
				log.Warn().Err(err).Msg("datadog close failed")
			}
		})
	default:
		log.Debug().Str("backend", mc.Backend).Msg("metrics disabled")
	}
}

// OpenStore connects to the configured database and creates missing tables.
func (e *Env) OpenStore(ctx context.Context) (*store.Store, error) {
	repo, err := storage.New(ctx, storage.Config{Kind: e.Config.Storage.Kind, DSN: e.Config.Storage.DSN})
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", e.Config.Storage.Kind, err)
	}
	e.closers = append(e.closers, repo.Close)
	s := store.New(repo)
	if err := s.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Uploader is the S3 uploader with local fallback. Without S3 settings
// reports go straight to local media storage.
func (e *Env) Uploader(ctx context.Context) (upload.Uploader, error) {
	local := upload.NewLocal(e.Config.Media)
	s3, err := upload.NewS3(ctx, e.Config.S3)
	switch {
	case errors.Is(err, upload.ErrNotConfigured):
		log := logging.For("upload")
		log.Warn().Str("root", local.Root).Msg("s3 not configured, saving reports locally")
		return upload.NewFallback(nil, local, e.Config.Breaker), nil
	case err != nil:
		return nil, err
	}
	return upload.NewFallback(s3, local, e.Config.Breaker), nil
}

// Close runs the cleanup of everything opened, newest first.
func (e *Env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
}

// Fatal prints err on stderr and returns ExitFatal.
func (e *Env) Fatal(err error) int {
	return Fatal(e.Stderr, err)
}

func Fatal(w io.Writer, err error) int {
	fmt.Fprintf(w, "error: %v\n", err)
	return ExitFatal
}

// Parse parses args with flags allowed before and after positional
// arguments and returns the positionals.
func Parse(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

// DateFlag parses an optional YYYY-MM-DD flag value as midnight UTC.
func DateFlag(name, v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := transformer.ParseDate(v)
	if err != nil {
		return nil, fmt.Errorf("-%s: %w", name, err)
	}
	return &t, nil
}
