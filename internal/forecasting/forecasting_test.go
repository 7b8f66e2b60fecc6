package forecasting_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridetl/internal/forecasting"
	"gridetl/internal/model"
	"gridetl/internal/storage"
	_ "gridetl/internal/storage/sqlite"
	"gridetl/internal/store"
)

func forecast(target time.Time, predicted float64, actual *float64) model.EnergyForecast {
	return model.EnergyForecast{CountryCode: "DE", ForecastTimestamp: target.Add(-24 * time.Hour),
		TargetTimestamp: target, PredictedValue: predicted, ActualValue: actual, HorizonHours: 24}
}

func TestEvaluate(t *testing.T) {
	t0 := time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC)
	s := forecasting.Evaluate([]model.EnergyForecast{
		forecast(t0, 110, model.Float(100)),
		forecast(t0.Add(time.Hour), 90, model.Float(100)),
		forecast(t0.Add(2*time.Hour), 3, model.Float(0)),
		forecast(t0.Add(3*time.Hour), 50, nil),
	})
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 23.0/3, s.MAE, 1e-9)
	assert.InDelta(t, math.Sqrt(209.0/3), s.RMSE, 1e-9)
	assert.InDelta(t, 10.0, s.MAPE, 1e-9, "zero actuals are left out of MAPE")

	assert.Equal(t, forecasting.Scores{}, forecasting.Evaluate(nil))
}

func TestEvaluator_Run(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: "file:" + filepath.Join(t.TempDir(), "fc.db")})
	require.NoError(t, err)
	t.Cleanup(repo.Close)
	s := store.New(repo)
	require.NoError(t, s.Migrate(ctx))

	day := time.Date(2022, 3, 31, 0, 0, 0, 0, time.UTC)
	id, err := s.CreateForecastModel(ctx, model.ForecastModel{
		Name: "de-load", ModelType: "arima", CountryCode: "DE", TargetVariable: "actual_load_mw",
		TrainingStartDate: day.AddDate(-1, 0, 0), TrainingEndDate: day.AddDate(0, -1, 0), IsActive: true,
	})
	require.NoError(t, err)

	fs := []model.EnergyForecast{
		forecast(day.Add(12*time.Hour), 105, model.Float(100)),
		forecast(day.AddDate(0, 0, -10), 80, model.Float(100)),
		forecast(day.AddDate(0, 0, -40), 0, model.Float(100)), // outside the period
		forecast(day.AddDate(0, 0, -5), 70, nil),
	}
	for i := range fs {
		fs[i].ModelID = id
	}
	_, err = s.InsertForecasts(ctx, fs)
	require.NoError(t, err)

	e := forecasting.NewEvaluator(s)
	res, err := e.Run(ctx, id, day.Add(15*time.Hour), 30)
	require.NoError(t, err)
	assert.True(t, res.Written)
	assert.Equal(t, int64(2), res.Metric.ForecastCount)
	assert.InDelta(t, 12.5, res.Metric.MAE, 1e-9)
	assert.InDelta(t, 12.5, res.Metric.MAPE, 1e-9)
	assert.True(t, res.Metric.EvaluationDate.Equal(day))

	again, err := e.Run(ctx, id, day, 30)
	require.NoError(t, err)
	assert.False(t, again.Written)

	perf, err := s.Performance(ctx, id)
	require.NoError(t, err)
	require.Len(t, perf, 1)
	assert.Equal(t, int64(30), perf[0].EvaluationPeriodDays)

	_, err = e.Run(ctx, id, day.AddDate(1, 0, 0), 30)
	assert.ErrorIs(t, err, forecasting.ErrNoForecasts)

	_, err = e.Run(ctx, id+100, day, 30)
	assert.Error(t, err)
}
