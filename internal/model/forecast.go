package model

import (
	"math"
	"time"
)

// Model types accepted for ForecastModel.ModelType.
var ModelTypes = []string{"linear_regression", "random_forest", "neural_network", "arima", "prophet", "ensemble"}

// ForecastModel is the metadata of a trained forecasting model.
type ForecastModel struct {
	ID                int64
	Name              string
	ModelType         string
	CountryCode       string
	TargetVariable    string
	Parameters        string // JSON
	FeatureColumns    string // JSON
	TrainingStartDate time.Time
	TrainingEndDate   time.Time
	TrainingSamples   *int64
	MAE, RMSE, MAPE   *float64
	R2Score           *float64
	Version           string
	IsActive          bool
	ModelFilePath     string
	CreatedAt         time.Time
}

// EnergyForecast is one prediction; ActualValue is filled in later.
type EnergyForecast struct {
	ID                int64
	ModelID           int64
	CountryCode       string
	ForecastTimestamp time.Time
	TargetTimestamp   time.Time
	PredictedValue    float64
	ConfidenceLower   *float64
	ConfidenceUpper   *float64
	ActualValue       *float64
	HorizonHours      int64
}

// Error is |predicted - actual|, or nil before the actual is known.
func (f EnergyForecast) Error() *float64 {
	if f.ActualValue == nil {
		return nil
	}
	return Float(math.Abs(f.PredictedValue - *f.ActualValue))
}

// AccuracyPercent is max(0, 100 - |err|/actual*100); nil for an unknown or
// zero actual.
func (f EnergyForecast) AccuracyPercent() *float64 {
	if f.ActualValue == nil || *f.ActualValue == 0 {
		return nil
	}
	pct := math.Abs(f.PredictedValue-*f.ActualValue) / *f.ActualValue * 100
	return Float(math.Max(0, 100-pct))
}

// ModelPerformanceMetric is one evaluation of a model over a period.
type ModelPerformanceMetric struct {
	ID                   int64
	ModelID              int64
	EvaluationDate       time.Time
	EvaluationPeriodDays int64
	MAE                  float64
	RMSE                 float64
	MAPE                 float64
	ForecastCount        int64
	CreatedAt            time.Time
}
