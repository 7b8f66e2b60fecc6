package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"gridetl/internal/features"
	"gridetl/internal/frame"
	"gridetl/internal/logging"
	"gridetl/internal/metrics"
	"gridetl/internal/model"
	"gridetl/internal/report/profiling"
	"gridetl/internal/store"
	"gridetl/internal/upload"
)

// Outcome is the end state of one request.
type Outcome struct {
	LogID    int64
	ReportID int64
	Status   model.GenerationStatus
	URL      string
	Target   string
	Records  int
	Err      error
}

// Pipeline runs report requests against a store.
type Pipeline struct {
	store     *store.Store
	generator profiling.Generator
	uploader  upload.Uploader
	now       func() time.Time
	log       zerolog.Logger
}

func NewPipeline(s *store.Store, g profiling.Generator, u upload.Uploader) *Pipeline {
	return &Pipeline{store: s, generator: g, uploader: u, now: time.Now, log: logging.For("report")}
}

// FileName is the report file name for a report generated at t.
func FileName(t time.Time) string {
	return fmt.Sprintf("energy_profile_%s_%s.html", t.UTC().Format("20060102_150405"), uuid.NewString()[:8])
}

// Enqueue validates r, resolves its window and records a queued Generation
// Log.
func (p *Pipeline) Enqueue(ctx context.Context, r *Request) (model.GenerationLog, error) {
	r.Countries = append([]string(nil), r.Countries...)
	if err := r.Validate(); err != nil {
		return model.GenerationLog{}, err
	}
	now := p.now()
	start, end, err := r.window(ctx, p.store, now)
	if err != nil {
		return model.GenerationLog{}, err
	}
	l := r.newLog(start, end, now)
	if l.ID, err = p.store.CreateGenerationLog(ctx, l); err != nil {
		return model.GenerationLog{}, err
	}
	p.log.Info().Int64("log_id", l.ID).Str("profile", l.ReportType).
		Str("countries", model.CountriesDisplay(l.Countries)).
		Time("start", start).Time("end", end).Msg("report queued")
	return l, nil
}

// Generate enqueues r and runs it to completion.
func (p *Pipeline) Generate(ctx context.Context, r Request) (Outcome, error) {
	l, err := p.Enqueue(ctx, &r)
	if err != nil {
		return Outcome{Status: model.StatusFailed, Err: err}, err
	}
	return p.Run(ctx, l, r)
}

// Run drives a queued log through every stage. Any failure moves the log to
// failed with the error text and is also returned.
func (p *Pipeline) Run(ctx context.Context, l model.GenerationLog, r Request) (Outcome, error) {
	t := &tracker{p: p, log: l, begin: time.Now()}
	out := Outcome{LogID: l.ID}

	var (
		ex     extraction
		merged *frame.Frame
		html   []byte
		qm     []model.QualityMetric
		res    upload.Result
	)
	stages := []struct {
		status model.GenerationStatus
		secs   **float64
		run    func() error
	}{
		{model.StatusExtracting, &t.log.ExtractionSeconds, func() (err error) {
			ex, err = extract(ctx, p.store, l.Countries, l.StartDate, l.EndDate, r.sampleCap())
			return err
		}},
		{model.StatusMerging, &t.log.MergeSeconds, func() error {
			merged = features.AddFeatures(merge(ex))
			return nil
		}},
		{model.StatusGenerating, &t.log.GenerationSeconds, func() (err error) {
			html, err = p.generator.Generate(ctx, merged, r.profile().Settings())
			if err != nil {
				return fmt.Errorf("generate profile: %w", err)
			}
			sum, err := profiling.Summarize(html)
			if err != nil {
				return fmt.Errorf("check profile: %w", err)
			}
			if sum.Rows != merged.Len() {
				return fmt.Errorf("check profile: %d rows rendered, %d merged", sum.Rows, merged.Len())
			}
			qm = QualityMetrics(merged)
			return nil
		}},
		{model.StatusUploading, &t.log.UploadSeconds, func() (err error) {
			if res, err = p.uploader.Upload(ctx, FileName(p.now()), html); err != nil {
				return err
			}
			out.ReportID, err = p.store.SaveReport(ctx, model.ProfilingReport{
				ReportURL:   res.URL,
				Countries:   l.Countries,
				StartDate:   l.StartDate,
				EndDate:     l.EndDate,
				RecordCount: int64(merged.Len()),
				ReportType:  l.ReportType,
				GeneratedBy: l.RequestedBy,
				Status:      model.ReportCompleted,
				FileSizeMB:  model.Float(res.SizeMB()),
			}, qm)
			return err
		}},
	}

	err := func() (err error) {
		defer func() {
			if v := recover(); v != nil {
				err = fmt.Errorf("panic: %v", v)
			}
		}()
		for _, s := range stages {
			if err := t.stage(ctx, s.status, s.secs, s.run); err != nil {
				return err
			}
		}
		return nil
	}()

	var reportID *int64
	if err == nil {
		reportID = &out.ReportID
	}
	if ferr := t.finish(ctx, reportID, err); ferr != nil {
		err = errors.Join(err, ferr)
	}
	out.Status = t.log.Status
	out.Err = err
	if err == nil {
		out.URL = res.URL
		out.Target = res.Target
		out.Records = merged.Len()
	}
	metrics.IncCounter(metrics.ReportsTotal, 1, metrics.Labels{"profile": l.ReportType, "status": string(out.Status)})

	ev := p.log.Info()
	if err != nil {
		ev = p.log.Error().Err(err)
	}
	ev.Int64("log_id", l.ID).Str("status", string(out.Status)).Int("extracted", ex.records()).
		Str("url", out.URL).Str("duration", t.log.DurationDisplay()).Msg("report finished")
	return out, err
}

// tracker persists the Generation Log as a request moves through stages.
type tracker struct {
	p     *Pipeline
	log   model.GenerationLog
	begin time.Time
}

func (t *tracker) advance(ctx context.Context, to model.GenerationStatus) error {
	if err := Transition(t.log.Status, to); err != nil {
		return err
	}
	prev := t.log
	t.log.Status = to
	if to == model.StatusExtracting {
		now := t.p.now().UTC()
		t.log.StartedAt = &now
	}
	if err := t.p.store.UpdateGenerationLog(ctx, t.log); err != nil {
		t.log = prev
		return fmt.Errorf("update generation log: %w", err)
	}
	return nil
}

// stage enters status, runs fn and stores its elapsed seconds in *secs.
func (t *tracker) stage(ctx context.Context, status model.GenerationStatus, secs **float64, fn func() error) error {
	if err := t.advance(ctx, status); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	elapsed := time.Since(start)
	*secs = model.Float(elapsed.Seconds())
	metrics.RecordStep("report_"+string(status), metrics.StatusOf(err), elapsed)
	return err
}

// finish moves the log to completed, or to failed when cause is set. The
// write ignores cancellation of ctx so the terminal state is always stored.
func (t *tracker) finish(ctx context.Context, reportID *int64, cause error) error {
	to := model.StatusCompleted
	if cause != nil {
		to = model.StatusFailed
	}
	if err := Transition(t.log.Status, to); err != nil {
		return err
	}
	now := t.p.now().UTC()
	t.log.Status = to
	t.log.CompletedAt = &now
	t.log.TotalSeconds = model.Float(time.Since(t.begin).Seconds())
	t.log.ReportID = reportID
	if cause != nil {
		t.log.ErrorMessage = cause.Error()
	}
	if err := t.p.store.UpdateGenerationLog(context.WithoutCancel(ctx), t.log); err != nil {
		return fmt.Errorf("update generation log: %w", err)
	}
	return nil
}

// Poll reads the current state of a Generation Log.
func (p *Pipeline) Poll(ctx context.Context, id int64) (model.GenerationLog, error) {
	return p.store.GenerationLog(ctx, id)
}
