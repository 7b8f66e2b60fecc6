package importer

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/currency"

	"gridetl/internal/columns"
	"gridetl/internal/model"
	"gridetl/internal/transformer"
)

type genCols struct {
	kind     string
	col      int
	capacity int
}

type priceCols struct {
	col      int
	zone     string
	currency string
}

type entityCols struct {
	entity           string
	actual, forecast int
	gens             []genCols
	prices           []priceCols
}

type opsdPlan struct {
	cols     []string
	entities []entityCols
}

func newOPSDPlan(header []string, _ Options) (plan, error) {
	var utc, cet bool
	rest := make([]string, 0, len(header))
	for _, h := range header {
		switch h {
		case ColUTC:
			utc = true
		case ColCET:
			cet = true
		default:
			rest = append(rest, h)
		}
	}
	if !utc {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColUTC)
	}
	if !cet {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColCET)
	}

	ix := columns.IndexByEntity(columns.Classify(rest))
	p := &opsdPlan{cols: append([]string{ColUTC, ColCET}, ix.Columns()...)}
	pos := make(map[string]int, len(p.cols))
	for i, c := range p.cols {
		pos[c] = i
	}
	at := func(name string) int {
		if name == "" {
			return -1
		}
		return pos[name]
	}

	for _, e := range ix.Entities {
		ec := entityCols{entity: e.Entity, actual: at(e.LoadActual), forecast: at(e.LoadForecast)}
		for _, g := range e.Generation {
			ec.gens = append(ec.gens, genCols{kind: g.Type, col: at(g.Column), capacity: at(g.Capacity)})
		}
		for _, name := range e.Price {
			ec.prices = append(ec.prices, priceCols{
				col:      at(name),
				zone:     strings.TrimSuffix(name, "_price_day_ahead"),
				currency: currencyOf(e.Entity),
			})
		}
		p.entities = append(p.entities, ec)
	}
	return p, nil
}

// currencyOf returns the price currency of an entity: pound sterling for
// the GB zones, euro everywhere else.
func currencyOf(entity string) string {
	if strings.HasPrefix(entity, "GB") {
		return currency.GBP.String()
	}
	return currency.EUR.String()
}

func (p *opsdPlan) columns() []string { return p.cols }
func (p *opsdPlan) zoned() bool       { return true }

func (p *opsdPlan) build(r *transformer.Row, b *batch, c *cells) {
	utc := r.V[0].(time.Time)
	cet := r.V[1].(time.Time)

	for _, e := range p.entities {
		if e.actual >= 0 || e.forecast >= 0 {
			actual, forecast := c.num(r, e.actual), c.num(r, e.forecast)
			if actual != nil || forecast != nil {
				b.loads = append(b.loads, model.Load{
					CountryCode:    e.entity,
					UTCTimestamp:   utc,
					CETTimestamp:   cet,
					ActualLoadMW:   actual,
					ForecastLoadMW: forecast,
				})
			}
		}

		for _, g := range e.gens {
			gen := c.num(r, g.col)
			if gen == nil {
				continue
			}
			capacity := c.num(r, g.capacity)
			b.gens = append(b.gens, model.Generation{
				CountryCode:        e.entity,
				UTCTimestamp:       utc,
				CETTimestamp:       cet,
				GenerationType:     g.kind,
				ActualGenerationMW: gen,
				CapacityMW:         capacity,
				CapacityFactor:     model.CapacityFactor(gen, capacity),
			})
		}

		for _, pc := range e.prices {
			price := c.num(r, pc.col)
			if price == nil {
				continue
			}
			b.prices = append(b.prices, model.Price{
				CountryCode:   e.entity,
				UTCTimestamp:  utc,
				CETTimestamp:  cet,
				DayAheadPrice: price,
				Currency:      pc.currency,
				BiddingZone:   pc.zone,
			})
		}
	}
}
