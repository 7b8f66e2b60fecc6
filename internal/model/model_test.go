package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapacityFactor(t *testing.T) {
	tests := []struct {
		name     string
		gen, cap *float64
		want     *float64
	}{
		{"both present", Float(50), Float(200), Float(0.25)},
		{"nil capacity", Float(50), nil, nil},
		{"zero capacity", Float(50), Float(0), nil},
		{"negative capacity", Float(50), Float(-1), nil},
		{"nil generation", nil, Float(10), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CapacityFactor(tt.gen, tt.cap)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestForecastErrorAndAccuracy(t *testing.T) {
	f := EnergyForecast{PredictedValue: 110}
	assert.Nil(t, f.Error())
	assert.Nil(t, f.AccuracyPercent())

	f.ActualValue = Float(100)
	assert.InDelta(t, 10.0, *f.Error(), 1e-9)
	assert.InDelta(t, 90.0, *f.AccuracyPercent(), 1e-9)

	f.PredictedValue = 400
	assert.Equal(t, 0.0, *f.AccuracyPercent(), "accuracy floors at zero")

	f.ActualValue = Float(0)
	assert.Nil(t, f.AccuracyPercent())
}

func TestGenerationStatusTerminal(t *testing.T) {
	for _, s := range []GenerationStatus{StatusQueued, StatusExtracting, StatusMerging, StatusGenerating, StatusUploading} {
		assert.False(t, s.Terminal(), s)
	}
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
}

func TestDisplays(t *testing.T) {
	assert.Equal(t, "All Countries", CountriesDisplay(nil))
	assert.Equal(t, "DE, FR", CountriesDisplay([]string{"DE", "FR"}))
	assert.Equal(t, []string{"DE", "FR"}, SplitCountries(" DE, ,FR "))
	assert.Nil(t, SplitCountries(""))

	var l GenerationLog
	assert.Equal(t, "Unknown", l.DurationDisplay())
	l.TotalSeconds = Float(12.34)
	assert.Equal(t, "12.3 seconds", l.DurationDisplay())
	l.TotalSeconds = Float(150)
	assert.Equal(t, "2.5 minutes", l.DurationDisplay())

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := ProfilingReport{StartDate: start, EndDate: start.AddDate(0, 0, 30)}
	assert.Equal(t, 30, r.AnalysisPeriodDays())
}
