// Package forecasting evaluates stored forecasts against their actuals and
// records the result as a model performance metric.
package forecasting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"gridetl/internal/logging"
	"gridetl/internal/metrics"
	"gridetl/internal/model"
)

// ErrNoForecasts means the period holds no forecast with a known actual.
var ErrNoForecasts = errors.New("forecasting: no evaluated forecasts in period")

// DefaultPeriodDays is the evaluation look-back.
const DefaultPeriodDays = 30

// Scores are the error statistics of a set of forecasts.
type Scores struct {
	MAE   float64
	RMSE  float64
	MAPE  float64 // percent, over forecasts with a non-zero actual
	Count int
}

// Evaluate scores the forecasts that have an actual value; the others are
// skipped.
func Evaluate(fs []model.EnergyForecast) Scores {
	var s Scores
	var absSum, sqSum, pctSum float64
	pctN := 0
	for _, f := range fs {
		if f.ActualValue == nil {
			continue
		}
		diff := f.PredictedValue - *f.ActualValue
		absSum += math.Abs(diff)
		sqSum += diff * diff
		if *f.ActualValue != 0 {
			pctSum += math.Abs(diff / *f.ActualValue)
			pctN++
		}
		s.Count++
	}
	if s.Count == 0 {
		return s
	}
	n := float64(s.Count)
	s.MAE = absSum / n
	s.RMSE = math.Sqrt(sqSum / n)
	if pctN > 0 {
		s.MAPE = pctSum / float64(pctN) * 100
	}
	return s
}

// Store is the storage the Evaluator needs.
type Store interface {
	ForecastModel(ctx context.Context, id int64) (model.ForecastModel, error)
	EvaluatedForecasts(ctx context.Context, modelID int64, from, to time.Time) ([]model.EnergyForecast, error)
	InsertPerformance(ctx context.Context, m model.ModelPerformanceMetric) (bool, error)
}

// Evaluator writes performance metrics for forecast models.
type Evaluator struct {
	store Store
	log   zerolog.Logger
}

func NewEvaluator(s Store) *Evaluator {
	return &Evaluator{store: s, log: logging.For("forecasting")}
}

// Result is one evaluation run.
type Result struct {
	Metric  model.ModelPerformanceMetric
	Written bool // false when a metric for the same model and date existed
}

// Run scores the forecasts of modelID whose target falls in the periodDays
// days up to and including date, and records a ModelPerformanceMetric dated
// date. An existing metric for the same (model, date) is kept.
func (e *Evaluator) Run(ctx context.Context, modelID int64, date time.Time, periodDays int) (res Result, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep("evaluate_forecasts", metrics.StatusOf(err), time.Since(start)) }()

	if periodDays <= 0 {
		periodDays = DefaultPeriodDays
	}
	m, err := e.store.ForecastModel(ctx, modelID)
	if err != nil {
		return res, fmt.Errorf("forecasting: model %d: %w", modelID, err)
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	from := day.AddDate(0, 0, -periodDays)
	to := day.AddDate(0, 0, 1).Add(-time.Second)

	fs, err := e.store.EvaluatedForecasts(ctx, modelID, from, to)
	if err != nil {
		return res, err
	}
	sc := Evaluate(fs)
	if sc.Count == 0 {
		return res, fmt.Errorf("%w: model %d, %s to %s", ErrNoForecasts, modelID, from.Format(time.DateOnly), day.Format(time.DateOnly))
	}

	res.Metric = model.ModelPerformanceMetric{
		ModelID:              modelID,
		EvaluationDate:       day,
		EvaluationPeriodDays: int64(periodDays),
		MAE:                  sc.MAE,
		RMSE:                 sc.RMSE,
		MAPE:                 sc.MAPE,
		ForecastCount:        int64(sc.Count),
	}
	if res.Written, err = e.store.InsertPerformance(ctx, res.Metric); err != nil {
		return res, fmt.Errorf("forecasting: record performance: %w", err)
	}
	e.log.Info().Str("model", m.Name).Int64("model_id", modelID).Time("date", day).
		Int("forecasts", sc.Count).Float64("mae", sc.MAE).Float64("rmse", sc.RMSE).Float64("mape", sc.MAPE).
		Bool("written", res.Written).Msg("model evaluated")
	return res, nil
}
