package frame

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f64(v float64) *float64 { return &v }

var t0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func TestPivot_FirstNonNullWins(t *testing.T) {
	rows := []Long{
		{Time: t0, Country: "DE", Category: "solar", Values: []*float64{f64(10), nil}},
		{Time: t0, Country: "DE", Category: "solar", Values: []*float64{f64(99), f64(100)}},
		{Time: t0, Country: "DE", Category: "wind_onshore", Values: []*float64{f64(5), f64(50)}},
		{Time: t0.Add(-time.Hour), Country: "FR", Category: "solar", Values: []*float64{f64(1), nil}},
	}
	f := Pivot(rows, []string{"actual_generation_mw", "capacity_mw"})

	require.Equal(t, 2, f.Len())
	assert.Equal(t, "FR", f.Country[0], "rows sorted by time")
	assert.Equal(t, []string{
		"timestamp", "country_code",
		"solar_actual_generation_mw", "wind_onshore_actual_generation_mw",
		"solar_capacity_mw", "wind_onshore_capacity_mw",
	}, f.Names())

	v, ok := f.Column("solar_actual_generation_mw").At(1)
	assert.True(t, ok)
	assert.Equal(t, 10.0, v)
	v, ok = f.Column("solar_capacity_mw").At(1)
	assert.True(t, ok)
	assert.Equal(t, 100.0, v)
	_, ok = f.Column("wind_onshore_capacity_mw").At(0)
	assert.False(t, ok)
}

func TestLeftJoin_KeepsEveryLeftRowAndFirstMatch(t *testing.T) {
	left := New()
	load := left.AddColumn("actual_load_mw", Float)
	for i, c := range []string{"DE", "FR", "DE"} {
		r := left.Append(t0.Add(time.Duration(i/2)*time.Hour), c)
		load.Set(r, float64(100*(i+1)))
	}

	right := New()
	temp := right.AddColumn("temperature_celsius", Float)
	cur := right.AddColumn("currency", Text)
	r := right.Append(t0, "DE")
	temp.Set(r, 3)
	cur.SetText(r, "EUR")
	r = right.Append(t0, "DE")
	temp.Set(r, 4)
	r = right.Append(t0, "IT")
	temp.Set(r, 9)

	out := LeftJoin(left, right)
	require.Equal(t, 3, out.Len())

	tc := out.Column("temperature_celsius")
	v, ok := tc.At(0)
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
	_, ok = tc.At(1)
	assert.False(t, ok, "FR has no match")
	_, ok = tc.At(2)
	assert.False(t, ok, "DE at t0+1h has no match")
	assert.Equal(t, "EUR", out.Column("currency").Str[0])
	assert.Equal(t, 2, tc.Nulls())
}

func TestLeftJoin_NameCollision(t *testing.T) {
	left := New()
	left.AddColumn("x", Float).Set(left.Append(t0, "DE"), 1)
	right := New()
	right.AddColumn("x", Float).Set(right.Append(t0, "DE"), 2)

	out := LeftJoin(left, right)
	v, _ := out.Column("x").At(0)
	assert.Equal(t, 1.0, v)
	v, _ = out.Column("x_right").At(0)
	assert.Equal(t, 2.0, v)
}

func TestLeftJoin_EmptyRight(t *testing.T) {
	left := New()
	left.Append(t0, "DE")
	assert.Same(t, left, LeftJoin(left, New()))
	assert.Same(t, left, LeftJoin(left, nil))
}

func TestAppendGrowsColumns(t *testing.T) {
	f := New()
	c := f.AddColumn("a", Float)
	f.Append(t0, "DE")
	assert.Equal(t, 1, c.Len())
	assert.Same(t, c, f.AddColumn("a", Int))
	assert.True(t, f.Has("timestamp"))
	assert.False(t, f.Has("b"))
}
