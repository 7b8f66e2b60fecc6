// Package features derives calendar, load forecast and renewable share
// columns on a merged energy frame.
package features

import (
	"strings"
	"time"

	"gridetl/internal/frame"
)

// Derived column names.
const (
	Hour                    = "hour"
	DayOfWeek               = "day_of_week"
	Month                   = "month"
	IsWeekend               = "is_weekend"
	ForecastErrorMW         = "forecast_error_mw"
	ForecastErrorPct        = "forecast_error_pct"
	TotalRenewableMW        = "total_renewable_mw"
	RenewablePenetrationPct = "renewable_penetration_pct"
)

// Input columns the load and renewable features depend on.
const (
	ActualLoad     = "actual_load_mw"
	ForecastLoad   = "forecast_load_mw"
	GenerationPart = "actual_generation_mw"
)

// AddFeatures adds the derived columns to f and returns it. Columns whose
// inputs are missing are simply not added; it never fails.
func AddFeatures(f *frame.Frame) *frame.Frame {
	if f == nil || f.Len() == 0 {
		return f
	}
	n := f.Len()

	hour := f.AddColumn(Hour, frame.Int)
	dow := f.AddColumn(DayOfWeek, frame.Int)
	month := f.AddColumn(Month, frame.Int)
	weekend := f.AddColumn(IsWeekend, frame.Bool)
	for i, t := range f.Time {
		hour.Set(i, float64(t.Hour()))
		d := mondayFirst(t.Weekday())
		dow.Set(i, float64(d))
		month.Set(i, float64(t.Month()))
		weekend.Set(i, boolf(d >= 5))
	}

	actual := f.Column(ActualLoad)
	if forecast := f.Column(ForecastLoad); actual != nil && forecast != nil {
		errMW := f.AddColumn(ForecastErrorMW, frame.Float)
		errPct := f.AddColumn(ForecastErrorPct, frame.Float)
		for i := 0; i < n; i++ {
			a, aok := actual.At(i)
			fc, fok := forecast.At(i)
			if aok && fok {
				errMW.Set(i, a-fc)
			}
			e, eok := errMW.At(i)
			errPct.Set(i, pct(e, eok, a, aok))
		}
	}

	var gens []*frame.Column
	for _, c := range f.Columns() {
		if c.Numeric() && strings.Contains(c.Name, GenerationPart) {
			gens = append(gens, c)
		}
	}
	if len(gens) > 0 {
		total := f.AddColumn(TotalRenewableMW, frame.Float)
		for i := 0; i < n; i++ {
			var sum float64
			for _, g := range gens {
				if v, ok := g.At(i); ok {
					sum += v
				}
			}
			total.Set(i, sum)
		}
		if actual != nil {
			pen := f.AddColumn(RenewablePenetrationPct, frame.Float)
			for i := 0; i < n; i++ {
				a, aok := actual.At(i)
				t, _ := total.At(i)
				pen.Set(i, pct(t, true, a, aok))
			}
		}
	}
	return f
}

// pct is num/den*100 with zero for a missing operand or a zero denominator.
func pct(num float64, numOK bool, den float64, denOK bool) float64 {
	if !numOK || !denOK || den == 0 {
		return 0
	}
	return num / den * 100
}

// mondayFirst maps time.Weekday (Sunday=0) to Monday=0 .. Sunday=6.
func mondayFirst(d time.Weekday) int {
	return (int(d) + 6) % 7
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
