package columns

import "strings"

// Weather variable names, matched exactly against the text after the entity.
const (
	WeatherTemperature      = "temperature"
	WeatherRadiationDirect  = "radiation_direct_horizontal"
	WeatherRadiationDiffuse = "radiation_diffuse_horizontal"
)

// WeatherColumns holds the weather series available for one country.
type WeatherColumns struct {
	Country          string // upper-cased entity
	Temperature      string
	RadiationDirect  string
	RadiationDiffuse string
}

func (w WeatherColumns) empty() bool {
	return w.Temperature == "" && w.RadiationDirect == "" && w.RadiationDiffuse == ""
}

// HasWeatherColumns reports whether any header looks like a temperature or
// radiation series. A weather file without one is rejected before import.
func HasWeatherColumns(names []string) bool {
	for _, n := range names {
		if strings.Contains(n, "_temperature") || strings.Contains(n, "_radiation_") {
			return true
		}
	}
	return false
}

// ClassifyWeather maps weather columns per country in first-seen order.
//
// countries is an optional allow-list (case-insensitive); nil or empty admits
// every country. Countries with none of the tracked variables are omitted.
func ClassifyWeather(names []string, countries []string) []WeatherColumns {
	var allow map[string]bool
	if len(countries) > 0 {
		allow = make(map[string]bool, len(countries))
		for _, c := range countries {
			if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
				allow[c] = true
			}
		}
	}

	pos := map[string]int{}
	var out []WeatherColumns
	for _, name := range names {
		entity, variable, ok := Split(name)
		if !ok {
			continue
		}
		country := strings.ToUpper(entity)
		if allow != nil && !allow[country] {
			continue
		}
		i, seen := pos[country]
		if !seen {
			i = len(out)
			pos[country] = i
			out = append(out, WeatherColumns{Country: country})
		}
		switch variable {
		case WeatherTemperature:
			out[i].Temperature = name
		case WeatherRadiationDirect:
			out[i].RadiationDirect = name
		case WeatherRadiationDiffuse:
			out[i].RadiationDiffuse = name
		}
	}

	kept := out[:0]
	for _, w := range out {
		if !w.empty() {
			kept = append(kept, w)
		}
	}
	return kept
}

// ParseCountries splits a comma-separated country list, trimming and
// upper-casing entries and dropping blanks.
func ParseCountries(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToUpper(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
