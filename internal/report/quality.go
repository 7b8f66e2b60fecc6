package report

import (
	"strings"

	"gridetl/internal/features"
	"gridetl/internal/frame"
	"gridetl/internal/model"
	"gridetl/internal/report/profiling"
)

// Quality metric categories.
const (
	CategoryCompleteness = "completeness"
	CategoryConsistency  = "consistency"
	CategoryValidity     = "validity"
	CategoryVolume       = "volume"
)

// MergedTable is the table name recorded on metrics of the merged frame.
const MergedTable = "merged_energy_data"

const (
	columnCompleteness  = 90.0
	overallCompleteness = 95.0
)

// QualityMetrics measures f: completeness per column and overall, repeated
// (timestamp, country) keys, negative loads, capacity factors outside [0, 1]
// and row volume.
func QualityMetrics(f *frame.Frame) []model.QualityMetric {
	var out []model.QualityMetric
	add := func(name, category, column, unit string, value float64, threshold *float64, within bool) {
		out = append(out, model.QualityMetric{
			Name: name, Category: category, Value: value, Unit: unit,
			TableName: MergedTable, ColumnName: column,
			Threshold: threshold, WithinThreshold: within,
		})
	}
	atMost := func(name, category, column string, v float64) {
		add(name, category, column, "count", v, model.Float(0), v == 0)
	}

	rows := f.Len()
	var cells, nulls int
	for _, c := range f.Columns() {
		n := c.Nulls()
		cells += c.Len()
		nulls += n
		pct := completeness(c.Len(), n)
		add("completeness", CategoryCompleteness, c.Name, "percent", pct, model.Float(columnCompleteness), pct >= columnCompleteness)
	}
	overall := completeness(cells, nulls)
	add("overall_completeness", CategoryCompleteness, "", "percent", overall, model.Float(overallCompleteness), overall >= overallCompleteness)

	dups, _ := profiling.DuplicateKeys(f, 0)
	atMost("duplicate_keys", CategoryConsistency, "", float64(dups))

	if c := f.Column(features.ActualLoad); c != nil {
		atMost("negative_values", CategoryValidity, c.Name, float64(count(c, func(v float64) bool { return v < 0 })))
	}
	for _, c := range f.Columns() {
		if !strings.HasSuffix(c.Name, "_capacity_factor") {
			continue
		}
		atMost("out_of_range", CategoryValidity, c.Name, float64(count(c, func(v float64) bool { return v < 0 || v > 1 })))
	}

	add("row_count", CategoryVolume, "", "count", float64(rows), nil, rows > 0)
	add("column_count", CategoryVolume, "", "count", float64(len(f.Columns())), nil, true)
	return out
}

func completeness(total, nulls int) float64 {
	if total == 0 {
		return 100
	}
	return float64(total-nulls) / float64(total) * 100
}

func count(c *frame.Column, pred func(float64) bool) int {
	n := 0
	for i := 0; i < c.Len(); i++ {
		if v, ok := c.At(i); ok && pred(v) {
			n++
		}
	}
	return n
}
