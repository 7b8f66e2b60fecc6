package profiling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridetl/internal/frame"
)

var t0 = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func sample() *frame.Frame {
	f := frame.New()
	load := f.AddColumn("actual_load_mw", frame.Float)
	temp := f.AddColumn("temperature_celsius", frame.Float)
	cur := f.AddColumn("currency", frame.Text)
	for i := 0; i < 6; i++ {
		r := f.Append(t0.Add(time.Duration(i)*time.Hour), "DE")
		load.Set(r, float64(1000+i*10))
		if i%2 == 0 {
			temp.Set(r, float64(i))
		}
		cur.SetText(r, "EUR")
	}
	f.Append(t0, "DE") // duplicate key, all nulls
	return f
}

func TestDescribe(t *testing.T) {
	c := &frame.Column{Name: "x", Kind: frame.Float,
		Num:   []float64{1, 2, 3, 4, -1, 0},
		Valid: []bool{true, true, true, true, true, false}}
	v := Describe(c)
	assert.Equal(t, 5, v.Count)
	assert.Equal(t, 1, v.Missing)
	assert.Equal(t, 1, v.Negatives)
	assert.Equal(t, 0, v.Zeros)
	assert.Equal(t, -1.0, v.Min)
	assert.Equal(t, 4.0, v.Max)
	assert.Equal(t, 2.0, v.Median)
	assert.InDelta(t, 1.8, v.Mean, 1e-9)
	assert.InDelta(t, 100.0/6, v.MissingPct(), 1e-9)

	txt := &frame.Column{Name: "c", Kind: frame.Text, Str: []string{"a", "b", "a", ""}, Valid: []bool{true, true, true, false}}
	tv := Describe(txt)
	assert.Equal(t, "a", tv.Top)
	assert.Equal(t, 2, tv.TopFreq)
	assert.Equal(t, 2, tv.Distinct)
}

func TestPearson(t *testing.T) {
	a := &frame.Column{Kind: frame.Float, Num: []float64{1, 2, 3, 4}, Valid: []bool{true, true, true, true}}
	b := &frame.Column{Kind: frame.Float, Num: []float64{2, 4, 6, 0}, Valid: []bool{true, true, true, false}}
	r, ok := Pearson(a, b)
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-9)

	constant := &frame.Column{Kind: frame.Float, Num: []float64{5, 5, 5, 5}, Valid: []bool{true, true, true, true}}
	_, ok = Pearson(a, constant)
	assert.False(t, ok)
}

func TestGenerateAndSummarize(t *testing.T) {
	g := NewHTML()
	out, err := g.Generate(context.Background(), sample(), Settings{
		Title:              "Energy Data Profile - Explorative",
		Explorative:        true,
		InteractionTargets: []string{"actual_load_mw", "temperature_celsius", "missing_column"},
		MissingBar:         true,
		DuplicatesHead:     10,
		SampleHead:         2,
		SampleTail:         2,
	})
	require.NoError(t, err)

	s, err := Summarize(out)
	require.NoError(t, err)
	assert.Equal(t, "Energy Data Profile - Explorative", s.Title)
	assert.Equal(t, 7, s.Rows)
	assert.Equal(t, []string{"actual_load_mw", "temperature_celsius", "currency"}, s.Variables)
	for _, sec := range []string{"overview", "variables", "interactions", "correlations", "missing", "duplicates", "sample"} {
		assert.True(t, s.Has(sec), sec)
	}
	assert.Contains(t, s.Alerts, "1 rows repeat a (timestamp, country_code) key")
	assert.Contains(t, s.Alerts, "currency has a constant value")
}

func TestGenerate_MinimalOmitsOptionalSections(t *testing.T) {
	out, err := NewHTML().Generate(context.Background(), sample(), Settings{Title: "min", MissingBar: true, SampleHead: 5, SampleTail: 5})
	require.NoError(t, err)
	s, err := Summarize(out)
	require.NoError(t, err)
	assert.False(t, s.Has("correlations"))
	assert.False(t, s.Has("interactions"))
	assert.False(t, s.Has("duplicates"))
	assert.True(t, s.Has("missing"))
}

func TestGenerate_EmptyFrame(t *testing.T) {
	out, err := NewHTML().Generate(context.Background(), frame.New(), Settings{})
	require.NoError(t, err)
	s, err := Summarize(out)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Rows)
	assert.Equal(t, "Data Profile", s.Title)
	assert.Empty(t, s.Variables)
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewHTML().Generate(ctx, sample(), Settings{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSummarize_RejectsNonProfile(t *testing.T) {
	_, err := Summarize([]byte("<html><body><p>nothing</p></body></html>"))
	assert.Error(t, err)
}
