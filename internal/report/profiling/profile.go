// Package profiling renders a self-contained HTML data profile of a frame
// and inspects rendered profiles.
package profiling

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"gridetl/internal/frame"
)

// Settings selects what a profile contains.
type Settings struct {
	Title              string
	Explorative        bool
	Correlations       bool
	InteractionTargets []string
	MissingBar         bool
	MissingMatrix      bool
	MissingHeatmap     bool
	DuplicatesHead     int
	SampleHead         int
	SampleTail         int
}

// Generator renders a profile of f.
type Generator interface {
	Generate(ctx context.Context, f *frame.Frame, s Settings) ([]byte, error)
}

// Thresholds for alerts.
const (
	highMissingPct  = 20.0
	highCorrelation = 0.9
	maxCorrColumns  = 40
	matrixRows      = 100
)

// HTML is the built-in Generator.
type HTML struct {
	now func() time.Time
}

func NewHTML() *HTML { return &HTML{now: time.Now} }

type corrMatrix struct {
	Names []string
	Rows  [][]corrCell
}

type corrCell struct {
	R  float64
	OK bool
}

type interaction struct {
	Target, Other string
	R             float64
}

type page struct {
	Settings
	GeneratedAt  time.Time
	Rows         int
	Columns      int
	MissingCells int
	MissingPct   float64
	Duplicates   int
	Variables    []Variable
	Alerts       []string
	Corr         *corrMatrix
	Nullity      *corrMatrix
	Interactions []interaction
	Header       []string
	Matrix       [][]bool
	DupRows      [][]string
	Head, Tail   [][]string
}

// Generate builds the profile. It fails only on cancellation or a template
// error; an empty frame yields a profile with no variables.
func (g *HTML) Generate(ctx context.Context, f *frame.Frame, s Settings) ([]byte, error) {
	if s.Title == "" {
		s.Title = "Data Profile"
	}
	p := page{Settings: s, GeneratedAt: g.now().UTC(), Rows: f.Len(), Columns: len(f.Names()), Header: f.Names()}

	for _, c := range f.Columns() {
		v := Describe(c)
		p.Variables = append(p.Variables, v)
		p.MissingCells += v.Missing
		if v.MissingPct() > highMissingPct {
			p.Alerts = append(p.Alerts, fmt.Sprintf("%s has %.1f%% missing values", v.Name, v.MissingPct()))
		}
		if v.Count > 0 && v.Distinct == 1 {
			p.Alerts = append(p.Alerts, fmt.Sprintf("%s has a constant value", v.Name))
		}
	}
	if cells := p.Rows * p.Columns; cells > 0 {
		p.MissingPct = float64(p.MissingCells) / float64(cells) * 100
	}

	var dupIdx []int
	p.Duplicates, dupIdx = DuplicateKeys(f, s.DuplicatesHead)
	if p.Duplicates > 0 {
		p.Alerts = append(p.Alerts, fmt.Sprintf("%d rows repeat a (timestamp, country_code) key", p.Duplicates))
	}
	for _, i := range dupIdx {
		p.DupRows = append(p.DupRows, rowStrings(f, i))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	numeric := numericColumns(f)
	if s.Correlations || s.Explorative {
		p.Corr = correlate(numeric)
		for i, a := range p.Corr.Names {
			for j := i + 1; j < len(p.Corr.Names); j++ {
				if c := p.Corr.Rows[i][j]; c.OK && math.Abs(c.R) >= highCorrelation {
					p.Alerts = append(p.Alerts, fmt.Sprintf("%s is highly correlated with %s (r=%.2f)", a, p.Corr.Names[j], c.R))
				}
			}
		}
	}
	for _, target := range s.InteractionTargets {
		tc := f.Column(target)
		if tc == nil || !tc.Numeric() {
			continue
		}
		for _, c := range numeric {
			if c.Name == target {
				continue
			}
			if r, ok := Pearson(tc, c); ok {
				p.Interactions = append(p.Interactions, interaction{Target: target, Other: c.Name, R: r})
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.MissingMatrix || s.Explorative {
		for i := 0; i < f.Len() && i < matrixRows; i++ {
			row := make([]bool, len(f.Columns()))
			for ci, c := range f.Columns() {
				row[ci] = !c.Valid[i]
			}
			p.Matrix = append(p.Matrix, row)
		}
	}
	if s.MissingHeatmap || s.Explorative {
		p.Nullity = nullity(f)
	}

	for i := 0; i < s.SampleHead && i < f.Len(); i++ {
		p.Head = append(p.Head, rowStrings(f, i))
	}
	for i := max(f.Len()-s.SampleTail, s.SampleHead, 0); i < f.Len(); i++ {
		p.Tail = append(p.Tail, rowStrings(f, i))
	}

	var buf bytes.Buffer
	if err := pageTmpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("profiling: render: %w", err)
	}
	return buf.Bytes(), nil
}

func numericColumns(f *frame.Frame) []*frame.Column {
	var out []*frame.Column
	for _, c := range f.Columns() {
		if c.Kind == frame.Float || c.Kind == frame.Int {
			out = append(out, c)
		}
	}
	if len(out) > maxCorrColumns {
		out = out[:maxCorrColumns]
	}
	return out
}

func correlate(cols []*frame.Column) *corrMatrix {
	m := &corrMatrix{Rows: make([][]corrCell, len(cols))}
	for i, a := range cols {
		m.Names = append(m.Names, a.Name)
		m.Rows[i] = make([]corrCell, len(cols))
		for j, b := range cols {
			if i == j {
				m.Rows[i][j] = corrCell{R: 1, OK: true}
				continue
			}
			if j < i {
				m.Rows[i][j] = m.Rows[j][i]
				continue
			}
			r, ok := Pearson(a, b)
			m.Rows[i][j] = corrCell{R: r, OK: ok}
		}
	}
	return m
}

// nullity correlates the missing-value indicators of columns that have
// at least one null.
func nullity(f *frame.Frame) *corrMatrix {
	var ind []*frame.Column
	for _, c := range f.Columns() {
		if c.Nulls() == 0 {
			continue
		}
		nc := &frame.Column{Name: c.Name, Kind: frame.Int, Num: make([]float64, c.Len()), Valid: make([]bool, c.Len())}
		for i, ok := range c.Valid {
			if !ok {
				nc.Num[i] = 1
			}
			nc.Valid[i] = true
		}
		ind = append(ind, nc)
	}
	if len(ind) > maxCorrColumns {
		ind = ind[:maxCorrColumns]
	}
	return correlate(ind)
}

func rowStrings(f *frame.Frame, i int) []string {
	out := make([]string, 0, len(f.Columns())+2)
	out = append(out, f.Time[i].Format(time.RFC3339), f.Country[i])
	for _, c := range f.Columns() {
		out = append(out, cellString(c, i))
	}
	return out
}

func cellString(c *frame.Column, i int) string {
	if !c.Valid[i] {
		return ""
	}
	switch c.Kind {
	case frame.Text:
		return c.Str[i]
	case frame.Bool:
		return strconv.FormatBool(c.Num[i] != 0)
	case frame.Int:
		return strconv.FormatInt(int64(c.Num[i]), 10)
	default:
		return strconv.FormatFloat(c.Num[i], 'g', 6, 64)
	}
}

// printf formats with English digit grouping.
func printf(format string, v any) string {
	return message.NewPrinter(language.English).Sprintf(format, v)
}

var funcs = template.FuncMap{
	"num": func(v float64) string { return printf("%.2f", v) },
	"int": func(v int) string { return printf("%d", v) },
	"pct": func(v float64) string { return printf("%.1f%%", v) },
	"corr": func(c corrCell) string {
		if !c.OK {
			return ""
		}
		return strconv.FormatFloat(c.R, 'f', 2, 64)
	},
	"shade": func(c corrCell) template.CSS {
		if !c.OK {
			return "background:#eee"
		}
		a := math.Abs(c.R)
		if c.R < 0 {
			return template.CSS(fmt.Sprintf("background:rgba(200,60,60,%.2f)", a))
		}
		return template.CSS(fmt.Sprintf("background:rgba(60,90,200,%.2f)", a))
	},
	"width": func(v float64) template.CSS { return template.CSS(fmt.Sprintf("width:%.1f%%", 100-v)) },
	"date":  func(t time.Time) string { return t.Format("2006-01-02 15:04:05 MST") },
}

var pageTmpl = template.Must(template.New("profile").Funcs(funcs).Parse(pageHTML))

const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body{font-family:sans-serif;margin:2em;color:#222}
table{border-collapse:collapse;font-size:13px}
td,th{border:1px solid #ccc;padding:3px 6px;text-align:right}
th{background:#f4f4f4}
.bar{background:#4a78c8;height:12px}
.null{background:#c84a4a}
.alert li{color:#a33}
</style>
</head>
<body>
<h1 id="title">{{.Title}}</h1>
<p class="generated">Generated {{date .GeneratedAt}}</p>

<section id="overview" data-section="overview">
<h2>Overview</h2>
<table>
<tr><th>Rows</th><td class="rows">{{int .Rows}}</td></tr>
<tr><th>Columns</th><td class="columns">{{int .Columns}}</td></tr>
<tr><th>Missing cells</th><td>{{int .MissingCells}} ({{pct .MissingPct}})</td></tr>
<tr><th>Duplicate keys</th><td>{{int .Duplicates}}</td></tr>
</table>
{{if .Alerts}}<h3>Alerts</h3>
<ul class="alert">{{range .Alerts}}<li>{{.}}</li>{{end}}</ul>{{end}}
</section>

<section id="variables" data-section="variables">
<h2>Variables</h2>
{{range .Variables}}<div class="variable" data-name="{{.Name}}">
<h3>{{.Name}} <small>{{.Kind}}</small></h3>
<table>
<tr><th>Count</th><td>{{int .Count}}</td><th>Missing</th><td>{{int .Missing}} ({{pct .MissingPct}})</td><th>Distinct</th><td>{{int .Distinct}}</td></tr>
{{if .Numeric}}<tr><th>Mean</th><td>{{num .Mean}}</td><th>Std</th><td>{{num .Std}}</td><th>Zeros</th><td>{{int .Zeros}}</td></tr>
<tr><th>Min</th><td>{{num .Min}}</td><th>Median</th><td>{{num .Median}}</td><th>Max</th><td>{{num .Max}}</td></tr>
<tr><th>25%</th><td>{{num .P25}}</td><th>75%</th><td>{{num .P75}}</td><th>Negative</th><td>{{int .Negatives}}</td></tr>
{{else}}<tr><th>Top</th><td colspan="3">{{.Top}}</td><th>Freq</th><td>{{int .TopFreq}}</td></tr>{{end}}
</table>
</div>
{{end}}</section>

{{if .Interactions}}<section id="interactions" data-section="interactions">
<h2>Interactions</h2>
<table>
<tr><th>Target</th><th>Variable</th><th>r</th></tr>
{{range .Interactions}}<tr><td>{{.Target}}</td><td>{{.Other}}</td><td>{{printf "%.3f" .R}}</td></tr>
{{end}}</table>
</section>{{end}}

{{with .Corr}}<section id="correlations" data-section="correlations">
<h2>Correlations</h2>
<table>
<tr><th></th>{{range .Names}}<th>{{.}}</th>{{end}}</tr>
{{range $i, $row := .Rows}}<tr><th>{{index $.Corr.Names $i}}</th>{{range $row}}<td style="{{shade .}}">{{corr .}}</td>{{end}}</tr>
{{end}}</table>
</section>{{end}}

{{if or .MissingBar .Matrix .Nullity}}<section id="missing" data-section="missing">
<h2>Missing values</h2>
{{if .MissingBar}}<h3>Count</h3>
<table class="missing-bar">
{{range .Variables}}<tr><th>{{.Name}}</th><td style="width:300px;text-align:left"><div class="bar" style="{{width .MissingPct}}"></div></td><td>{{int .Count}}</td></tr>
{{end}}</table>{{end}}
{{if .Matrix}}<h3>Matrix</h3>
<table class="missing-matrix">
{{range .Matrix}}<tr>{{range .}}<td{{if .}} class="null"{{end}}></td>{{end}}</tr>
{{end}}</table>{{end}}
{{with .Nullity}}<h3>Heatmap</h3>
<table class="missing-heatmap">
<tr><th></th>{{range .Names}}<th>{{.}}</th>{{end}}</tr>
{{range $i, $row := .Rows}}<tr><th>{{index $.Nullity.Names $i}}</th>{{range $row}}<td style="{{shade .}}">{{corr .}}</td>{{end}}</tr>
{{end}}</table>{{end}}
</section>{{end}}

{{if .DupRows}}<section id="duplicates" data-section="duplicates">
<h2>Duplicate rows</h2>
<table>
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{range .DupRows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
</section>{{end}}

{{if or .Head .Tail}}<section id="sample" data-section="sample">
<h2>Sample</h2>
<table>
<tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr>
{{range .Head}}<tr class="head">{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}{{range .Tail}}<tr class="tail">{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
</section>{{end}}
</body>
</html>
`
