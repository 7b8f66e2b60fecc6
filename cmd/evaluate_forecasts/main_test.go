package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridetl/internal/cli"
	"gridetl/internal/config"
	"gridetl/internal/model"
	"gridetl/internal/storage"
	"gridetl/internal/store"
)

var day = time.Date(2022, 3, 31, 0, 0, 0, 0, time.UTC)

func setup(t *testing.T) (cli.Deps, *bytes.Buffer, *bytes.Buffer, int64) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "eval.db")
	ctx := context.Background()
	repo, err := storage.New(ctx, storage.Config{Kind: "sqlite", DSN: dsn})
	require.NoError(t, err)
	defer repo.Close()
	s := store.New(repo)
	require.NoError(t, s.Migrate(ctx))

	id, err := s.CreateForecastModel(ctx, model.ForecastModel{
		Name: "de-load", ModelType: "prophet", CountryCode: "DE", TargetVariable: "actual_load_mw",
		TrainingStartDate: day.AddDate(-1, 0, 0), TrainingEndDate: day.AddDate(0, -1, 0), IsActive: true,
	})
	require.NoError(t, err)
	_, err = s.InsertForecasts(ctx, []model.EnergyForecast{
		{ModelID: id, CountryCode: "DE", ForecastTimestamp: day.AddDate(0, 0, -2), TargetTimestamp: day.AddDate(0, 0, -1),
			PredictedValue: 90, ActualValue: model.Float(100), HorizonHours: 24},
		{ModelID: id, CountryCode: "DE", ForecastTimestamp: day.AddDate(0, 0, -1), TargetTimestamp: day,
			PredictedValue: 220, ActualValue: model.Float(200), HorizonHours: 24},
	})
	require.NoError(t, err)

	var stdout, stderr bytes.Buffer
	return cli.Deps{
		Stdout: &stdout,
		Stderr: &stderr,
		Now:    func() time.Time { return day.Add(8 * time.Hour) },
		LoadConfig: func() (*config.Config, error) {
			cfg := config.Default()
			cfg.Storage.DSN = dsn
			cfg.Log.Level = "error"
			return cfg, nil
		},
	}, &stdout, &stderr, id
}

func TestRun_ScoresModel(t *testing.T) {
	d, stdout, stderr, id := setup(t)
	args := []string{"-model-id", itoa(id)}

	require.Equal(t, cli.ExitOK, run(context.Background(), args, d), stderr.String())
	assert.Contains(t, stdout.String(), "Model 1 on 2022-03-31 (30 days, 2 forecasts)")
	assert.Contains(t, stdout.String(), "MAE:  15.00")
	assert.Contains(t, stdout.String(), "MAPE: 10.00%")

	stdout.Reset()
	require.Equal(t, cli.ExitOK, run(context.Background(), args, d))
	assert.Contains(t, stdout.String(), "already exists")
}

func TestRun_NoForecastsInPeriod(t *testing.T) {
	d, stdout, _, id := setup(t)

	code := run(context.Background(), []string{"-model-id", itoa(id), "-date", "2021-01-01", "-period-days", "7"}, d)
	assert.Equal(t, cli.ExitOK, code)
	assert.Contains(t, stdout.String(), "No forecasts with actual values for model 1 in the 7 days up to 2021-01-01")
}

func TestRun_Usage(t *testing.T) {
	d, _, stderr, _ := setup(t)
	ctx := context.Background()

	assert.Equal(t, cli.ExitUsage, run(ctx, nil, d))
	assert.Contains(t, stderr.String(), "missing -model-id")
	assert.Equal(t, cli.ExitFatal, run(ctx, []string{"-model-id", "1", "-date", "31.03.2022"}, d))
	assert.Equal(t, cli.ExitFatal, run(ctx, []string{"-model-id", "99"}, d), "unknown model")
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
