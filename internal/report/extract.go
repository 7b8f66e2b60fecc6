package report

import (
	"context"
	"errors"
	"sort"
	"time"

	"gridetl/internal/features"
	"gridetl/internal/frame"
	"gridetl/internal/model"
	"gridetl/internal/store"
)

// ErrNoData means the request matched no load rows.
var ErrNoData = errors.New("no data found for the specified criteria")

// Merged column names besides the pivoted generation columns.
const (
	ColTemperature = "temperature_celsius"
	ColIrradiance  = "solar_irradiance_wm2"
	ColHumidity    = "humidity_percent"
	ColWindSpeed   = "wind_speed_ms"
	ColPressure    = "pressure_hpa"
	ColPrice       = "day_ahead_price"
	ColCurrency    = "currency"
)

// Generation metrics pivoted to "<type>_<metric>" columns.
var generationMetrics = []string{features.GenerationPart, "capacity_mw", "capacity_factor"}

// extraction is the raw data of one request.
type extraction struct {
	loads   []model.Load
	gens    []model.Generation
	weather []model.Weather
	prices  []model.Price
}

func (e extraction) records() int {
	return len(e.loads) + len(e.gens) + len(e.weather) + len(e.prices)
}

type energyReader interface {
	Loads(ctx context.Context, f store.Filter) ([]model.Load, error)
	Generations(ctx context.Context, f store.Filter) ([]model.Generation, error)
	Weather(ctx context.Context, f store.Filter) ([]model.Weather, error)
	Prices(ctx context.Context, f store.Filter) ([]model.Price, error)
}

// extract reads the four domains over [start, end]. Only load is sampled.
func extract(ctx context.Context, s energyReader, countries []string, start, end time.Time, sampleCap int) (extraction, error) {
	var ex extraction
	f := store.Filter{Countries: countries, From: &start, To: &end}

	sampled := f
	sampled.Sample = sampleCap
	loads, err := s.Loads(ctx, sampled)
	if err != nil {
		return ex, err
	}
	if len(loads) == 0 {
		return ex, ErrNoData
	}
	// random samples come back unordered
	sort.SliceStable(loads, func(i, j int) bool {
		if !loads[i].UTCTimestamp.Equal(loads[j].UTCTimestamp) {
			return loads[i].UTCTimestamp.Before(loads[j].UTCTimestamp)
		}
		return loads[i].CountryCode < loads[j].CountryCode
	})
	ex.loads = loads

	if ex.gens, err = s.Generations(ctx, f); err != nil {
		return ex, err
	}
	if ex.weather, err = s.Weather(ctx, f); err != nil {
		return ex, err
	}
	if ex.prices, err = s.Prices(ctx, f); err != nil {
		return ex, err
	}
	return ex, nil
}

// merge builds the wide frame: one row per load observation with the
// generation, weather and price columns left-joined on (timestamp, country).
func merge(ex extraction) *frame.Frame {
	f := loadFrame(ex.loads)
	frame.LeftJoin(f, generationFrame(ex.gens))
	frame.LeftJoin(f, weatherFrame(ex.weather))
	frame.LeftJoin(f, priceFrame(ex.prices))
	return f
}

func loadFrame(loads []model.Load) *frame.Frame {
	f := frame.New()
	actual := f.AddColumn(features.ActualLoad, frame.Float)
	forecast := f.AddColumn(features.ForecastLoad, frame.Float)
	for _, l := range loads {
		i := f.Append(l.UTCTimestamp, l.CountryCode)
		actual.SetPtr(i, l.ActualLoadMW)
		forecast.SetPtr(i, l.ForecastLoadMW)
	}
	return f
}

func generationFrame(gens []model.Generation) *frame.Frame {
	if len(gens) == 0 {
		return nil
	}
	rows := make([]frame.Long, len(gens))
	for i, g := range gens {
		rows[i] = frame.Long{
			Time:     g.UTCTimestamp,
			Country:  g.CountryCode,
			Category: g.GenerationType,
			Values:   []*float64{g.ActualGenerationMW, g.CapacityMW, g.CapacityFactor},
		}
	}
	return frame.Pivot(rows, generationMetrics)
}

func weatherFrame(ws []model.Weather) *frame.Frame {
	if len(ws) == 0 {
		return nil
	}
	f := frame.New()
	temp := f.AddColumn(ColTemperature, frame.Float)
	irr := f.AddColumn(ColIrradiance, frame.Float)
	hum := f.AddColumn(ColHumidity, frame.Float)
	wind := f.AddColumn(ColWindSpeed, frame.Float)
	pres := f.AddColumn(ColPressure, frame.Float)
	for _, w := range ws {
		i := f.Append(w.Timestamp, w.CountryCode)
		temp.SetPtr(i, w.TemperatureCelsius)
		irr.SetPtr(i, w.SolarIrradianceWM2)
		hum.SetPtr(i, w.HumidityPercent)
		wind.SetPtr(i, w.WindSpeedMS)
		pres.SetPtr(i, w.PressureHPA)
	}
	return f
}

func priceFrame(ps []model.Price) *frame.Frame {
	if len(ps) == 0 {
		return nil
	}
	f := frame.New()
	price := f.AddColumn(ColPrice, frame.Float)
	cur := f.AddColumn(ColCurrency, frame.Text)
	for _, p := range ps {
		i := f.Append(p.UTCTimestamp, p.CountryCode)
		price.SetPtr(i, p.DayAheadPrice)
		if p.Currency != "" {
			cur.SetText(i, p.Currency)
		}
	}
	return f
}
