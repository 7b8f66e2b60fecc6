package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"gridetl/internal/model"
)

// DefaultSampleCap bounds the number of load rows profiled.
const DefaultSampleCap = 50000

// DefaultWindow is the look-back used when no start date is given.
const DefaultWindow = 30 * 24 * time.Hour

// Request describes one report. Nil Start or End are resolved against the
// stored data when the request is enqueued.
type Request struct {
	Countries   []string `validate:"dive,required,max=10"`
	Profile     Profile  `validate:"omitempty,oneof=minimal full explorative"`
	SampleCap   int      `validate:"gte=0"`
	RequestedBy string   `validate:"max=150"`

	Start, End *time.Time
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the request fields and normalizes country codes to upper
// case.
func (r *Request) Validate() error {
	for i, c := range r.Countries {
		r.Countries[i] = strings.ToUpper(strings.TrimSpace(c))
	}
	if err := validate.Struct(r); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			msgs := make([]string, 0, len(ve))
			for _, fe := range ve {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("report: invalid request: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("report: invalid request: %w", err)
	}
	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return errors.New("report: invalid request: end before start")
	}
	return nil
}

func (r Request) profile() Profile {
	if r.Profile == "" {
		return Minimal
	}
	return r.Profile
}

func (r Request) sampleCap() int {
	if r.SampleCap <= 0 {
		return DefaultSampleCap
	}
	return r.SampleCap
}

type latestLoader interface {
	LatestLoadTimestamp(ctx context.Context) (time.Time, bool, error)
}

// window resolves the analysis period: end defaults to the newest load
// timestamp (now when there is no data) and start to end minus 30 days.
func (r Request) window(ctx context.Context, s latestLoader, now time.Time) (start, end time.Time, err error) {
	switch {
	case r.End != nil:
		end = r.End.UTC()
	default:
		latest, ok, err := s.LatestLoadTimestamp(ctx)
		if err != nil {
			return start, end, fmt.Errorf("latest load timestamp: %w", err)
		}
		end = now.UTC()
		if ok {
			end = latest.UTC()
		}
	}
	if r.Start != nil {
		start = r.Start.UTC()
	} else {
		start = end.Add(-DefaultWindow)
	}
	return start, end, nil
}

// newLog is the queued Generation Log of r over [start, end].
func (r Request) newLog(start, end, now time.Time) model.GenerationLog {
	return model.GenerationLog{
		RequestedBy: r.RequestedBy,
		RequestedAt: now.UTC(),
		Countries:   append([]string(nil), r.Countries...),
		StartDate:   start,
		EndDate:     end,
		ReportType:  string(r.profile()),
		Status:      model.StatusQueued,
	}
}
