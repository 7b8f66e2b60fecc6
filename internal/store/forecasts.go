package store

import (
	"context"
	"fmt"
	"time"

	"gridetl/internal/model"
	"gridetl/internal/storage"
)

var modelColumns = []string{
	"id", "name", "model_type", "country_code", "target_variable", "parameters", "feature_columns",
	"training_start_date", "training_end_date", "training_samples", "mae", "rmse", "mape", "r2_score",
	"version", "is_active", "model_file_path", "created_at",
}

// CreateForecastModel stores m and returns its id.
func (s *Store) CreateForecastModel(ctx context.Context, m model.ForecastModel) (int64, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	if m.Version == "" {
		m.Version = "1.0"
	}
	var id int64
	err := storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		var err error
		id, err = tx.InsertReturningID(ctx, TableModel, "id", modelColumns[1:], []any{
			m.Name, m.ModelType, m.CountryCode, m.TargetVariable, optString(m.Parameters), optString(m.FeatureColumns),
			m.TrainingStartDate, m.TrainingEndDate, nullable(m.TrainingSamples), nullable(m.MAE), nullable(m.RMSE),
			nullable(m.MAPE), nullable(m.R2Score), m.Version, m.IsActive, optString(m.ModelFilePath), m.CreatedAt,
		})
		return err
	})
	return id, err
}

// ForecastModel reads one model by id.
func (s *Store) ForecastModel(ctx context.Context, id int64) (model.ForecastModel, error) {
	r, err := storage.GetByID(ctx, s.repo, TableModel, "id", id, modelColumns)
	if err != nil {
		return model.ForecastModel{}, err
	}
	return model.ForecastModel{
		ID: asInt(r[0]), Name: asString(r[1]), ModelType: asString(r[2]), CountryCode: asString(r[3]),
		TargetVariable: asString(r[4]), Parameters: asString(r[5]), FeatureColumns: asString(r[6]),
		TrainingStartDate: asTime(r[7]), TrainingEndDate: asTime(r[8]), TrainingSamples: asOptInt(r[9]),
		MAE: asFloat(r[10]), RMSE: asFloat(r[11]), MAPE: asFloat(r[12]), R2Score: asFloat(r[13]),
		Version: asString(r[14]), IsActive: asBool(r[15]), ModelFilePath: asString(r[16]), CreatedAt: asTime(r[17]),
	}, nil
}

var forecastColumns = []string{
	"id", "model_id", "country_code", "forecast_timestamp", "target_timestamp", "predicted_value",
	"confidence_lower", "confidence_upper", "actual_value", "horizon_hours",
}

// InsertForecasts writes forecasts, skipping (model, target) pairs that exist.
func (s *Store) InsertForecasts(ctx context.Context, fs []model.EnergyForecast) (int64, error) {
	if len(fs) == 0 {
		return 0, nil
	}
	now := s.now().UTC()
	rows := make([][]any, len(fs))
	for i, f := range fs {
		rows[i] = []any{f.ModelID, f.CountryCode, f.ForecastTimestamp, f.TargetTimestamp, f.PredictedValue,
			nullable(f.ConfidenceLower), nullable(f.ConfidenceUpper), nullable(f.ActualValue), f.HorizonHours, now}
	}
	var n int64
	err := storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		var err error
		n, err = tx.InsertRows(ctx, TableForecast, append(forecastColumns[1:len(forecastColumns):len(forecastColumns)], "created_at"), rows,
			[]string{"model_id", "target_timestamp"})
		return err
	})
	return n, err
}

// EvaluatedForecasts returns the forecasts of modelID with a known actual
// whose target falls in [from, to].
func (s *Store) EvaluatedForecasts(ctx context.Context, modelID int64, from, to time.Time) ([]model.EnergyForecast, error) {
	res, err := s.repo.Select(ctx, storage.Query{
		Table:      TableForecast,
		Columns:    forecastColumns,
		Eq:         []storage.Cond{{Column: "model_id", Value: modelID}},
		TimeColumn: "target_timestamp",
		From:       &from,
		To:         &to,
		NotNull:    []string{"actual_value"},
		OrderBy:    "target_timestamp",
	})
	if err != nil {
		return nil, fmt.Errorf("select forecasts: %w", err)
	}
	out := make([]model.EnergyForecast, 0, len(res.Rows))
	for _, r := range res.Rows {
		f := model.EnergyForecast{
			ID: asInt(r[0]), ModelID: asInt(r[1]), CountryCode: asString(r[2]),
			ForecastTimestamp: asTime(r[3]), TargetTimestamp: asTime(r[4]),
			ConfidenceLower: asFloat(r[6]), ConfidenceUpper: asFloat(r[7]), ActualValue: asFloat(r[8]),
			HorizonHours: asInt(r[9]),
		}
		if v := asFloat(r[5]); v != nil {
			f.PredictedValue = *v
		}
		out = append(out, f)
	}
	return out, nil
}

// InsertPerformance writes m unless a metric for (model, date) exists.
// It reports whether a row was written.
func (s *Store) InsertPerformance(ctx context.Context, m model.ModelPerformanceMetric) (bool, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	var n int64
	err := storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		var err error
		n, err = tx.InsertRows(ctx, TablePerformance,
			[]string{"model_id", "evaluation_date", "evaluation_period_days", "mae", "rmse", "mape", "forecast_count", "created_at"},
			[][]any{{m.ModelID, m.EvaluationDate, m.EvaluationPeriodDays, m.MAE, m.RMSE, m.MAPE, m.ForecastCount, m.CreatedAt}},
			PerformanceKey)
		return err
	})
	return n > 0, err
}

// Performance lists the evaluations of a model, newest date first.
func (s *Store) Performance(ctx context.Context, modelID int64) ([]model.ModelPerformanceMetric, error) {
	res, err := s.repo.Select(ctx, storage.Query{
		Table:   TablePerformance,
		Columns: []string{"id", "model_id", "evaluation_date", "evaluation_period_days", "mae", "rmse", "mape", "forecast_count", "created_at"},
		Eq:      []storage.Cond{{Column: "model_id", Value: modelID}},
		OrderBy: "evaluation_date",
		Desc:    true,
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.ModelPerformanceMetric, 0, len(res.Rows))
	for _, r := range res.Rows {
		m := model.ModelPerformanceMetric{
			ID: asInt(r[0]), ModelID: asInt(r[1]), EvaluationDate: asTime(r[2]),
			EvaluationPeriodDays: asInt(r[3]), ForecastCount: asInt(r[7]), CreatedAt: asTime(r[8]),
		}
		for i, dst := range []*float64{&m.MAE, &m.RMSE, &m.MAPE} {
			if v := asFloat(r[4+i]); v != nil {
				*dst = *v
			}
		}
		out = append(out, m)
	}
	return out, nil
}
