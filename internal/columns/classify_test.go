package columns

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketOf(t *testing.T) {
	tests := []struct {
		name string
		want Bucket
	}{
		{"DE_load_actual_entsoe_transparency", Load},
		{"DE_load_forecast_entsoe_transparency", Load},
		{"DE_solar_generation_actual", Generation},
		{"DE_wind_onshore_generation_actual", Generation},
		{"DE_solar_capacity", Capacity},
		{"DE_solar_profile", Ignored},
		{"GB_GBN_price_day_ahead", Price},
		{"utc_timestamp", Ignored},
		{"cet_cest_timestamp", Ignored},
		{"nounderscore", Ignored},
		{"_load_actual", Ignored},
		{"DE_", Ignored},
		{"", Ignored},
		// priority: load beats capacity, generation beats capacity
		{"DE_load_actual_capacity", Load},
		{"DE_solar_generation_actual_capacity", Generation},
		{"DE_capacity_price_day_ahead", Capacity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := BucketOf(tc.name); got != tc.want {
				t.Fatalf("BucketOf(%q)=%q, want %q", tc.name, got, tc.want)
			}
		})
	}
}

func TestClassify_PartitionsInput(t *testing.T) {
	in := []string{
		"utc_timestamp",
		"cet_cest_timestamp",
		"AT_load_actual_entsoe_transparency",
		"AT_load_forecast_entsoe_transparency",
		"AT_price_day_ahead",
		"DE_LU_load_actual_entsoe_transparency",
		"DE_solar_capacity",
		"DE_solar_generation_actual",
		"DE_solar_profile",
		"GB_GBN_price_day_ahead",
		"weird",
	}
	m := Classify(in)

	require.Equal(t, len(in), m.Count(), "every column lands in exactly one bucket")

	seen := map[string]int{}
	for _, b := range Buckets {
		for _, d := range m[b] {
			seen[d.Name]++
		}
	}
	for _, name := range in {
		assert.Equal(t, 1, seen[name], "column %q", name)
	}

	assert.Equal(t, []string{
		"AT_load_actual_entsoe_transparency",
		"AT_load_forecast_entsoe_transparency",
		"DE_LU_load_actual_entsoe_transparency",
	}, m.Names(Load))
	assert.Equal(t, []string{"DE_solar_generation_actual"}, m.Names(Generation))
	assert.Equal(t, []string{"DE_solar_capacity"}, m.Names(Capacity))
	assert.Equal(t, []string{"AT_price_day_ahead", "GB_GBN_price_day_ahead"}, m.Names(Price))
	assert.Equal(t, []string{"utc_timestamp", "cet_cest_timestamp", "DE_solar_profile", "weird"}, m.Names(Ignored))
}

func TestClassify_EntityIsBeforeFirstSeparator(t *testing.T) {
	m := Classify([]string{"DE_LU_load_actual_entsoe_transparency"})
	require.Len(t, m[Load], 1)
	d := m[Load][0]
	assert.Equal(t, "DE", d.Entity)
	assert.Equal(t, "LU_load_actual_entsoe_transparency", d.Metric)
}

func TestClassify_EmptyAndDeterministic(t *testing.T) {
	empty := Classify(nil)
	assert.Equal(t, 0, empty.Count())
	for _, b := range Buckets {
		_, ok := empty[b]
		assert.True(t, ok, "bucket %q present", b)
	}

	in := []string{"FR_load_actual_x", "FR_price_day_ahead", "x"}
	if a, b := Classify(in), Classify(in); !reflect.DeepEqual(a, b) {
		t.Fatalf("Classify not deterministic: %v vs %v", a, b)
	}
}

func TestGenerationType(t *testing.T) {
	tests := map[string]string{
		"DE_solar_generation_actual":         "solar",
		"DE_wind_onshore_generation_actual":  "wind_onshore",
		"DE_wind_offshore_generation_actual": "wind_offshore",
		"DE_wind_generation_actual":          "wind_total",
		"DE_hydro_generation_actual":         "",
	}
	for in, want := range tests {
		if got := GenerationType(in); got != want {
			t.Fatalf("GenerationType(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestIndexByEntity(t *testing.T) {
	m := Classify([]string{
		"utc_timestamp",
		"DE_load_actual_entsoe_transparency",
		"DE_load_forecast_entsoe_transparency",
		"DE_solar_capacity",
		"DE_solar_generation_actual",
		"DE_wind_generation_actual",
		"DE_hydro_generation_actual",
		"FR_load_actual_entsoe_transparency",
		"FR_load_actual_entsoe_power_statistics",
		"GB_GBN_price_day_ahead",
	})
	ix := IndexByEntity(m)

	require.Len(t, ix.Entities, 3)

	de := ix.Entities[0]
	assert.Equal(t, "DE", de.Entity)
	assert.Equal(t, "DE_load_actual_entsoe_transparency", de.LoadActual)
	assert.Equal(t, "DE_load_forecast_entsoe_transparency", de.LoadForecast)
	assert.Equal(t, []GenerationColumn{
		{Column: "DE_solar_generation_actual", Type: "solar", Capacity: "DE_solar_capacity"},
		{Column: "DE_wind_generation_actual", Type: "wind_total"},
	}, de.Generation)

	fr := ix.Entities[1]
	assert.Equal(t, "FR_load_actual_entsoe_power_statistics", fr.LoadActual, "last actual column wins")
	assert.True(t, fr.HasLoad())

	gb := ix.Entities[2]
	assert.Equal(t, []string{"GB_GBN_price_day_ahead"}, gb.Price)
	assert.False(t, gb.HasLoad())

	assert.NotContains(t, ix.Columns(), "DE_hydro_generation_actual")
	assert.Contains(t, ix.Columns(), "DE_solar_capacity")
}

func TestClassifyWeather(t *testing.T) {
	names := []string{
		"utc_timestamp",
		"de_temperature",
		"DE_radiation_direct_horizontal",
		"DE_radiation_diffuse_horizontal",
		"FR_temperature",
		"FR_windspeed_10m",
		"AT_windspeed_10m",
	}

	all := ClassifyWeather(names, nil)
	require.Len(t, all, 2, "AT has no tracked variables")
	assert.Equal(t, WeatherColumns{
		Country:          "DE",
		Temperature:      "de_temperature",
		RadiationDirect:  "DE_radiation_direct_horizontal",
		RadiationDiffuse: "DE_radiation_diffuse_horizontal",
	}, all[0])
	assert.Equal(t, "FR", all[1].Country)

	onlyFR := ClassifyWeather(names, []string{" fr "})
	require.Len(t, onlyFR, 1)
	assert.Equal(t, "FR_temperature", onlyFR[0].Temperature)

	assert.True(t, HasWeatherColumns(names))
	assert.False(t, HasWeatherColumns([]string{"utc_timestamp", "DE_windspeed_10m"}))
}

func TestParseCountries(t *testing.T) {
	assert.Nil(t, ParseCountries(""))
	assert.Nil(t, ParseCountries("  "))
	assert.Equal(t, []string{"DE", "FR"}, ParseCountries("de, FR,,"))
}
