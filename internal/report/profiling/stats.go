package profiling

import (
	"math"
	"sort"

	"gridetl/internal/frame"
)

// Variable describes one column of the profiled frame.
type Variable struct {
	Name     string
	Kind     string
	Count    int
	Missing  int
	Distinct int

	// Numeric kinds only.
	Mean, Std, Min, Max float64
	P25, Median, P75    float64
	Zeros, Negatives    int

	// Text and bool kinds.
	Top     string
	TopFreq int
}

// MissingPct is the share of null cells in percent.
func (v Variable) MissingPct() float64 {
	total := v.Count + v.Missing
	if total == 0 {
		return 0
	}
	return float64(v.Missing) / float64(total) * 100
}

// Numeric reports whether numeric statistics were computed.
func (v Variable) Numeric() bool { return v.Kind == "float" || v.Kind == "int" }

// Describe computes the statistics of one column.
func Describe(c *frame.Column) Variable {
	v := Variable{Name: c.Name, Kind: c.Kind.String()}
	if c.Kind == frame.Text {
		freq := map[string]int{}
		for i, ok := range c.Valid {
			if !ok {
				v.Missing++
				continue
			}
			v.Count++
			freq[c.Str[i]]++
		}
		v.Distinct = len(freq)
		v.Top, v.TopFreq = mode(freq)
		return v
	}

	vals := make([]float64, 0, c.Len())
	for i := range c.Valid {
		x, ok := c.At(i)
		if !ok {
			v.Missing++
			continue
		}
		vals = append(vals, x)
	}
	v.Count = len(vals)
	if c.Kind == frame.Bool {
		freq := map[string]int{}
		for _, x := range vals {
			if x != 0 {
				freq["true"]++
			} else {
				freq["false"]++
			}
		}
		v.Distinct = len(freq)
		v.Top, v.TopFreq = mode(freq)
		return v
	}
	if len(vals) == 0 {
		return v
	}

	sort.Float64s(vals)
	distinct := 1
	var sum float64
	for i, x := range vals {
		sum += x
		if x == 0 {
			v.Zeros++
		}
		if x < 0 {
			v.Negatives++
		}
		if i > 0 && x != vals[i-1] {
			distinct++
		}
	}
	v.Distinct = distinct
	v.Mean = sum / float64(len(vals))
	v.Min, v.Max = vals[0], vals[len(vals)-1]
	v.P25, v.Median, v.P75 = quantile(vals, 0.25), quantile(vals, 0.5), quantile(vals, 0.75)
	if len(vals) > 1 {
		var ss float64
		for _, x := range vals {
			d := x - v.Mean
			ss += d * d
		}
		v.Std = math.Sqrt(ss / float64(len(vals)-1))
	}
	return v
}

// quantile interpolates linearly between closest ranks of sorted values.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// mode returns the most frequent value; ties go to the smallest value.
func mode(freq map[string]int) (string, int) {
	var top string
	best := 0
	for k, n := range freq {
		if n > best || (n == best && k < top) {
			top, best = k, n
		}
	}
	return top, best
}

// Pearson returns the correlation of the rows where both columns are set.
// ok is false with fewer than two such rows or a constant column.
func Pearson(a, b *frame.Column) (r float64, ok bool) {
	var n, sa, sb, saa, sbb, sab float64
	for i := 0; i < a.Len() && i < b.Len(); i++ {
		x, xok := a.At(i)
		y, yok := b.At(i)
		if !xok || !yok {
			continue
		}
		n++
		sa += x
		sb += y
		saa += x * x
		sbb += y * y
		sab += x * y
	}
	if n < 2 {
		return 0, false
	}
	cov := sab - sa*sb/n
	va := saa - sa*sa/n
	vb := sbb - sb*sb/n
	if va <= 0 || vb <= 0 {
		return 0, false
	}
	r = cov / math.Sqrt(va*vb)
	return math.Max(-1, math.Min(1, r)), true
}

// DuplicateKeys counts rows whose (timestamp, country_code) appeared on an
// earlier row and returns the indexes of the first limit duplicates.
func DuplicateKeys(f *frame.Frame, limit int) (count int, head []int) {
	seen := make(map[frame.Key]bool, f.Len())
	for i := 0; i < f.Len(); i++ {
		k := f.Key(i)
		if seen[k] {
			count++
			if len(head) < limit {
				head = append(head, i)
			}
			continue
		}
		seen[k] = true
	}
	return count, head
}
