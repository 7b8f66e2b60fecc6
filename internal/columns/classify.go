// Package columns classifies OPSD-style wide CSV headers.
//
// A column name has the form COUNTRY_metric_detail, e.g.
// "DE_load_actual_entsoe_transparency" or "GB_GBN_price_day_ahead". The entity
// is everything before the first underscore; the remainder is matched against
// ordered substring rules to pick a bucket.
package columns

import "strings"

// Bucket is the domain a column belongs to.
type Bucket string

const (
	Load       Bucket = "load"
	Generation Bucket = "generation"
	Capacity   Bucket = "capacity"
	Price      Bucket = "price"
	Ignored    Bucket = "ignored"
)

// Buckets lists every bucket in rule order, Ignored last.
var Buckets = []Bucket{Load, Generation, Capacity, Price, Ignored}

// Descriptor is one classified column.
type Descriptor struct {
	Name   string // full header, as given
	Entity string // text before the first '_'
	Metric string // text after the first '_'
}

// Mapping is bucket -> descriptors in input order. Every input column appears
// in exactly one bucket.
type Mapping map[Bucket][]Descriptor

// rule order is significant: first match wins.
var rules = []struct {
	needles []string
	bucket  Bucket
}{
	{needles: []string{"load_actual", "load_forecast"}, bucket: Load},
	{needles: []string{"generation_actual"}, bucket: Generation},
	{needles: []string{"capacity"}, bucket: Capacity},
	{needles: []string{"price_day_ahead"}, bucket: Price},
}

// Split separates a column name at the first underscore. ok is false when
// there is no separator or either side is empty.
func Split(name string) (entity, metric string, ok bool) {
	entity, metric, found := strings.Cut(name, "_")
	if !found || entity == "" || metric == "" {
		return "", "", false
	}
	return entity, metric, true
}

// BucketOf returns the bucket for a single column name.
func BucketOf(name string) Bucket {
	_, metric, ok := Split(name)
	if !ok {
		return Ignored
	}
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(metric, n) {
				return r.bucket
			}
		}
	}
	return Ignored
}

// Classify partitions names into buckets. It never fails; unrecognized or
// malformed names land in Ignored. Order within a bucket follows input order.
func Classify(names []string) Mapping {
	m := make(Mapping, len(Buckets))
	for _, b := range Buckets {
		m[b] = nil
	}
	for _, name := range names {
		b := BucketOf(name)
		d := Descriptor{Name: name}
		if e, metric, ok := Split(name); ok {
			d.Entity, d.Metric = e, metric
		}
		m[b] = append(m[b], d)
	}
	return m
}

// Count returns the number of classified columns across all buckets.
func (m Mapping) Count() int {
	n := 0
	for _, ds := range m {
		n += len(ds)
	}
	return n
}

// Names returns the column names in bucket b.
func (m Mapping) Names(b Bucket) []string {
	out := make([]string, 0, len(m[b]))
	for _, d := range m[b] {
		out = append(out, d.Name)
	}
	return out
}
