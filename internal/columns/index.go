package columns

import "strings"

// generationTypes maps a generation metric fragment to a generation type.
// Order matters: the first fragment contained in the column name wins.
var generationTypes = []struct {
	fragment string
	kind     string
}{
	{"solar_generation_actual", "solar"},
	{"wind_onshore_generation_actual", "wind_onshore"},
	{"wind_offshore_generation_actual", "wind_offshore"},
	{"wind_generation_actual", "wind_total"},
}

// GenerationType returns the generation type encoded in a column name, or ""
// when the column is not one of the tracked renewable series.
func GenerationType(column string) string {
	for _, g := range generationTypes {
		if strings.Contains(column, g.fragment) {
			return g.kind
		}
	}
	return ""
}

// CapacityPartner returns the capacity column name paired with a generation
// column: "DE_solar_generation_actual" -> "DE_solar_capacity".
func CapacityPartner(generationColumn string) string {
	return strings.ReplaceAll(generationColumn, "generation_actual", "capacity")
}

// GenerationColumn is a generation series and its optional capacity partner.
type GenerationColumn struct {
	Column   string
	Type     string
	Capacity string // "" when the file has no matching capacity column
}

// EntityColumns groups the columns relevant to one entity.
type EntityColumns struct {
	Entity       string
	LoadActual   string
	LoadForecast string
	Generation   []GenerationColumn
	Price        []string
}

// HasLoad reports whether the entity has any load column.
func (e EntityColumns) HasLoad() bool { return e.LoadActual != "" || e.LoadForecast != "" }

// Index is the per-entity view of a Mapping, computed once per import run.
type Index struct {
	// Entities in first-seen header order.
	Entities []EntityColumns
}

// IndexByEntity pre-indexes load, generation and price columns per entity.
//
// When an entity has several actual (or forecast) load columns, the last one in
// header order is used. Generation columns with no known type are dropped.
func IndexByEntity(m Mapping) Index {
	pos := map[string]int{}
	var out []EntityColumns

	get := func(entity string) *EntityColumns {
		i, ok := pos[entity]
		if !ok {
			i = len(out)
			pos[entity] = i
			out = append(out, EntityColumns{Entity: entity})
		}
		return &out[i]
	}

	capacity := make(map[string]bool, len(m[Capacity]))
	for _, d := range m[Capacity] {
		capacity[d.Name] = true
	}

	for _, d := range m[Load] {
		e := get(d.Entity)
		switch {
		case strings.Contains(d.Name, "load_actual"):
			e.LoadActual = d.Name
		case strings.Contains(d.Name, "load_forecast"):
			e.LoadForecast = d.Name
		}
	}
	for _, d := range m[Generation] {
		kind := GenerationType(d.Name)
		if kind == "" {
			continue
		}
		gc := GenerationColumn{Column: d.Name, Type: kind}
		if p := CapacityPartner(d.Name); capacity[p] {
			gc.Capacity = p
		}
		e := get(d.Entity)
		e.Generation = append(e.Generation, gc)
	}
	for _, d := range m[Price] {
		e := get(d.Entity)
		e.Price = append(e.Price, d.Name)
	}
	return Index{Entities: out}
}

// Columns returns every column name referenced by the index, deduplicated, in
// a stable order. Importers use it to project only what they need from a row.
func (ix Index) Columns() []string {
	seen := map[string]bool{}
	var out []string
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	for _, e := range ix.Entities {
		add(e.LoadActual)
		add(e.LoadForecast)
		for _, g := range e.Generation {
			add(g.Column)
			add(g.Capacity)
		}
		for _, p := range e.Price {
			add(p)
		}
	}
	return out
}
