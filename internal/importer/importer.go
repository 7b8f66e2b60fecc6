// Package importer loads OPSD style wide CSV exports into the energy tables.
//
// A run streams the source, keeps the rows inside the requested window and
// groups them into consecutive batches. Every batch is turned into load,
// generation, price or weather records and written in a single transaction
// with ignore-on-conflict inserts, so re-importing a file is harmless. A dry
// run executes the same classification and record building without writing.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"gridetl/internal/logging"
	"gridetl/internal/metrics"
	"gridetl/internal/model"
	"gridetl/internal/parser/csv"
	"gridetl/internal/storage"
	"gridetl/internal/store"
	"gridetl/internal/transformer"
)

// DefaultBatchSize is used when Options.BatchSize is zero.
const DefaultBatchSize = 1000

// Timestamp columns every OPSD export carries.
const (
	ColUTC = "utc_timestamp"
	ColCET = "cet_cest_timestamp"
)

var (
	// ErrMissingColumn is returned before any write when a required
	// timestamp column is absent from the header.
	ErrMissingColumn = errors.New("importer: missing required column")
	// ErrNoWeatherColumns rejects a weather file without temperature or
	// radiation series.
	ErrNoWeatherColumns = errors.New("importer: no weather columns found")
	ErrNoStore          = errors.New("importer: no store configured")
)

// maxLoggedCellErrors caps the per-run warnings for unparseable cells.
const maxLoggedCellErrors = 5

// Options controls one run.
type Options struct {
	BatchSize int
	// Start and End bound utc_timestamp inclusively; nil leaves a side open.
	Start, End *time.Time
	DryRun     bool
	// FileName is recorded in the import log.
	FileName string
	// Countries restricts a weather import; empty admits every country.
	Countries []string
}

func (o Options) validate() (Options, error) {
	if o.BatchSize < 0 {
		return o, fmt.Errorf("importer: batch size must be positive, got %d", o.BatchSize)
	}
	if o.BatchSize == 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Start != nil && o.End != nil && o.End.Before(*o.Start) {
		return o, fmt.Errorf("importer: end %s before start %s", o.End.Format(time.DateOnly), o.Start.Format(time.DateOnly))
	}
	return o, nil
}

func (o Options) inWindow(t time.Time) bool {
	if o.Start != nil && t.Before(*o.Start) {
		return false
	}
	if o.End != nil && t.After(*o.End) {
		return false
	}
	return true
}

// Stats summarizes a run. Load, Generation, Price and Weather count built
// records and are identical for dry and real runs; Inserted counts rows the
// database actually accepted.
type Stats struct {
	Load       int64
	Generation int64
	Price      int64
	Weather    int64
	Errors     int64
	Inserted   int64
	Rows       int64 // rows inside the window
	Skipped    int64 // rows outside the window
	Batches    int
	First      time.Time
	Last       time.Time
}

// Records is the number of records built across all domains.
func (s Stats) Records() int64 { return s.Load + s.Generation + s.Price + s.Weather }

// batch collects the records built from one group of rows.
type batch struct {
	loads   []model.Load
	gens    []model.Generation
	prices  []model.Price
	weather []model.Weather
}

// plan turns a projected row into records. V[0] holds the parsed UTC
// timestamp and, when zoned() is true, V[1] the parsed local timestamp.
type plan interface {
	columns() []string
	zoned() bool
	build(r *transformer.Row, b *batch, c *cells)
}

// Importer runs imports of one source kind.
type Importer struct {
	source  string
	store   *store.Store
	newPlan func(header []string, opt Options) (plan, error)
	log     zerolog.Logger
	now     func() time.Time
}

// NewOPSD returns an importer for load, generation and price exports. s may
// be nil when only dry runs are made.
func NewOPSD(s *store.Store) *Importer {
	return &Importer{source: model.SourceOPSD, store: s, newPlan: newOPSDPlan, log: logging.For("importer"), now: time.Now}
}

// NewWeather returns an importer for OPSD weather exports.
func NewWeather(s *store.Store) *Importer {
	return &Importer{source: model.SourceWeather, store: s, newPlan: newWeatherPlan, log: logging.For("importer"), now: time.Now}
}

// Source is the import log source name ("opsd" or "weather").
func (im *Importer) Source() string { return im.source }

// cells parses numeric cells, counting failures.
type cells struct {
	errs *atomic.Int64
	log  zerolog.Logger
}

func (c *cells) num(r *transformer.Row, i int) *float64 {
	if i < 0 {
		return nil
	}
	f, ok, err := transformer.ParseFloat(r.V[i])
	if err != nil {
		if n := c.errs.Add(1); n <= maxLoggedCellErrors {
			c.log.Warn().Int("line", r.Line).Err(err).Msg("cell ignored")
		}
		return nil
	}
	if !ok {
		return nil
	}
	return &f
}

// Run imports src. Fatal problems with the source (unreadable, no header,
// missing timestamp column) are returned before anything is written. A
// failing batch aborts the run; batches committed before it stay.
func (im *Importer) Run(ctx context.Context, src io.Reader, opt Options) (Stats, error) {
	var st Stats
	opt, err := opt.validate()
	if err != nil {
		return st, err
	}
	if !opt.DryRun && im.store == nil {
		return st, ErrNoStore
	}

	rc, ok := src.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(src)
	}
	stream, err := csv.Open(rc, csv.DefaultOptions())
	if err != nil {
		return st, fmt.Errorf("%s import: %w", im.source, err)
	}
	pl, err := im.newPlan(stream.Header(), opt)
	if err != nil {
		_ = stream.Close()
		return st, err
	}

	start := time.Now()
	st, err = im.run(ctx, stream, pl, opt)
	metrics.RecordStep("import_"+im.source, metrics.StatusOf(err), time.Since(start))
	if st.Errors > 0 {
		metrics.IncCounter(metrics.ImportErrsTotal, float64(st.Errors), metrics.Labels{"source": im.source})
	}

	if !opt.DryRun {
		im.writeLog(ctx, st, opt, err)
	}
	if err != nil {
		return st, err
	}

	im.log.Info().
		Str("source", im.source).
		Bool("dry_run", opt.DryRun).
		Int64("rows", st.Rows).
		Int("batches", st.Batches).
		Int64("load", st.Load).
		Int64("generation", st.Generation).
		Int64("price", st.Price).
		Int64("weather", st.Weather).
		Int64("inserted", st.Inserted).
		Int64("errors", st.Errors).
		Dur("elapsed", time.Since(start)).
		Msg("import finished")
	return st, nil
}

type window struct {
	rows, skipped int64
	first, last   time.Time
}

func (im *Importer) run(ctx context.Context, stream *csv.Stream, pl plan, opt Options) (Stats, error) {
	var st Stats
	var errs atomic.Int64
	c := &cells{errs: &errs, log: im.log}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	rowCh := make(chan *transformer.Row, 256)
	batchCh := make(chan []*transformer.Row, 2)
	streamErr := make(chan error, 1)

	go func() {
		streamErr <- stream.StreamRows(ctx, pl.columns(), rowCh, func(line int, err error) {
			if n := errs.Add(1); n <= maxLoggedCellErrors {
				im.log.Warn().Int("line", line).Err(err).Msg("record skipped")
			}
		})
		close(rowCh)
	}()

	// Producer: parse timestamps, apply the window, group rows into batches.
	// Ownership of every row in a sent batch moves to the consumer.
	winCh := make(chan window, 1)
	go func() {
		defer close(batchCh)
		var w window
		defer func() { winCh <- w }()

		pending := make([]*transformer.Row, 0, opt.BatchSize)
		for r := range rowCh {
			if !parseTimes(r, pl.zoned()) {
				if n := errs.Add(1); n <= maxLoggedCellErrors {
					im.log.Warn().Int("line", r.Line).Msg("row with unparseable timestamp skipped")
				}
				r.Free()
				continue
			}
			ts := r.V[0].(time.Time)
			if !opt.inWindow(ts) {
				w.skipped++
				r.Free()
				continue
			}
			w.rows++
			if w.first.IsZero() || ts.Before(w.first) {
				w.first = ts
			}
			if ts.After(w.last) {
				w.last = ts
			}
			pending = append(pending, r)
			if len(pending) == opt.BatchSize {
				select {
				case batchCh <- pending:
				case <-ctx.Done():
					for _, p := range pending {
						p.Drop()
					}
					return
				}
				pending = make([]*transformer.Row, 0, opt.BatchSize)
			}
		}
		if len(pending) > 0 {
			select {
			case batchCh <- pending:
			case <-ctx.Done():
				for _, p := range pending {
					p.Drop()
				}
			}
		}
	}()

	var runErr error
	var done int64
	for rows := range batchCh {
		if runErr != nil {
			for _, r := range rows {
				r.Free()
			}
			continue
		}
		b := &batch{}
		for _, r := range rows {
			pl.build(r, b, c)
			r.Free()
		}
		from := done
		done += int64(len(rows))

		inserted, err := im.flush(ctx, b, opt.DryRun)
		if err != nil {
			runErr = fmt.Errorf("%s import: batch %d-%d: %w", im.source, from, done, err)
			cancel(runErr)
			continue
		}
		st.Batches++
		st.Inserted += inserted
		st.add(b)
		metrics.IncCounter(metrics.BatchesTotal, 1, metrics.Labels{"source": im.source})
		im.log.Debug().
			Int64("from", from).
			Int64("to", done).
			Int("records", b.len()).
			Int64("inserted", inserted).
			Msg("batch done")
	}

	w := <-winCh
	st.Rows, st.Skipped, st.First, st.Last = w.rows, w.skipped, w.first, w.last
	st.Errors = errs.Load()
	sErr := <-streamErr

	if runErr != nil {
		return st, runErr
	}
	if sErr != nil {
		if cause := context.Cause(ctx); cause != nil && errors.Is(sErr, context.Canceled) {
			return st, cause
		}
		return st, fmt.Errorf("%s import: %w", im.source, sErr)
	}
	for kind, n := range map[string]int64{"load": st.Load, "generation": st.Generation, "price": st.Price, "weather": st.Weather} {
		if n > 0 {
			metrics.IncCounter(metrics.RecordsTotal, float64(n), metrics.Labels{"source": im.source, "kind": kind})
		}
	}
	return st, nil
}

// parseTimes replaces the raw timestamp cells with time.Time values.
func parseTimes(r *transformer.Row, zoned bool) bool {
	utc, err := transformer.ParseTimestamp(r.String(0))
	if err != nil {
		return false
	}
	r.V[0] = utc
	if zoned {
		local, err := transformer.ParseZoned(r.String(1))
		if err != nil {
			return false
		}
		r.V[1] = local
	}
	return true
}

func (b *batch) len() int {
	return len(b.loads) + len(b.gens) + len(b.prices) + len(b.weather)
}

func (s *Stats) add(b *batch) {
	s.Load += int64(len(b.loads))
	s.Generation += int64(len(b.gens))
	s.Price += int64(len(b.prices))
	s.Weather += int64(len(b.weather))
}

// flush writes one batch in a single transaction and returns the number of
// rows inserted.
func (im *Importer) flush(ctx context.Context, b *batch, dryRun bool) (int64, error) {
	if dryRun || b.len() == 0 {
		return 0, nil
	}
	now := im.now().UTC()
	var inserted int64
	err := storage.WithTx(ctx, im.store.Repository(), func(tx storage.Tx) error {
		steps := []func() (int64, error){
			func() (int64, error) { return store.InsertLoads(ctx, tx, b.loads, now) },
			func() (int64, error) { return store.InsertGenerations(ctx, tx, b.gens, now) },
			func() (int64, error) { return store.InsertPrices(ctx, tx, b.prices, now) },
			func() (int64, error) { return store.InsertWeather(ctx, tx, b.weather, now) },
		}
		for _, step := range steps {
			n, err := step()
			if err != nil {
				return err
			}
			inserted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// writeLog records the run in the import log. A failure here is logged, not
// returned: the data is already committed.
func (im *Importer) writeLog(ctx context.Context, st Stats, opt Options, runErr error) {
	first, last := st.First, st.Last
	if first.IsZero() {
		first = im.now().UTC()
		last = first
	}
	l := model.ImportLog{
		Source:          im.source,
		DataStartDate:   first,
		DataEndDate:     last,
		RecordsImported: st.Records(),
		RecordsFailed:   st.Errors,
		FileName:        opt.FileName,
		Success:         runErr == nil && st.Errors == 0,
	}
	if runErr != nil {
		l.ErrorLog = runErr.Error()
	}
	// The run context may already be cancelled by the failure being logged.
	ctx = context.WithoutCancel(ctx)
	if _, err := im.store.WriteImportLog(ctx, l); err != nil {
		im.log.Error().Err(err).Msg("write import log")
	}
}
