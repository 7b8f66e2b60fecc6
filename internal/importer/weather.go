package importer

import (
	"fmt"
	"slices"
	"time"

	"gridetl/internal/columns"
	"gridetl/internal/logging"
	"gridetl/internal/model"
	"gridetl/internal/transformer"
)

type countryCols struct {
	country                      string
	location                     string
	temperature, direct, diffuse int
}

type weatherPlan struct {
	cols      []string
	countries []countryCols
}

func newWeatherPlan(header []string, opt Options) (plan, error) {
	if !slices.Contains(header, ColUTC) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColUTC)
	}
	if !columns.HasWeatherColumns(header) {
		return nil, ErrNoWeatherColumns
	}

	p := &weatherPlan{cols: []string{ColUTC}}
	add := func(name string) int {
		if name == "" {
			return -1
		}
		p.cols = append(p.cols, name)
		return len(p.cols) - 1
	}
	found := columns.ClassifyWeather(header, opt.Countries)
	for _, w := range found {
		p.countries = append(p.countries, countryCols{
			country:     w.Country,
			location:    model.AverageLocation(w.Country),
			temperature: add(w.Temperature),
			direct:      add(w.RadiationDirect),
			diffuse:     add(w.RadiationDiffuse),
		})
	}
	if len(found) == 0 {
		log := logging.For("importer")
		log.Warn().Strs("countries", opt.Countries).Msg("no weather series match the country filter")
	}
	return p, nil
}

func (p *weatherPlan) columns() []string { return p.cols }
func (p *weatherPlan) zoned() bool       { return false }

func (p *weatherPlan) build(r *transformer.Row, b *batch, c *cells) {
	ts := r.V[0].(time.Time)
	for _, cc := range p.countries {
		temp := c.num(r, cc.temperature)
		irr := irradiance(c.num(r, cc.direct), c.num(r, cc.diffuse))
		if temp == nil && irr == nil {
			continue
		}
		b.weather = append(b.weather, model.Weather{
			Timestamp:          ts,
			Location:           cc.location,
			CountryCode:        cc.country,
			TemperatureCelsius: temp,
			SolarIrradianceWM2: irr,
		})
	}
}

// irradiance is the total horizontal irradiance: direct plus diffuse when
// both are known, whichever is known otherwise.
func irradiance(direct, diffuse *float64) *float64 {
	switch {
	case direct != nil && diffuse != nil:
		v := *direct + *diffuse
		return &v
	case direct != nil:
		return direct
	default:
		return diffuse
	}
}
