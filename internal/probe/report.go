package probe

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// WriteText renders r for a terminal.
func (r Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "source:\t%s\n", r.Source)
	fmt.Fprintf(tw, "columns:\t%d\n", r.Columns)
	fmt.Fprintf(tw, "utc_timestamp:\t%s\n", yesNo(r.HasUTC))
	fmt.Fprintf(tw, "cet_cest_timestamp:\t%s\n", yesNo(r.HasCET))
	rows := fmt.Sprintf("%d", r.SampleRows)
	if r.Truncated {
		rows += " (sample truncated)"
	}
	fmt.Fprintf(tw, "sampled rows:\t%s\n", rows)
	if !r.First.IsZero() {
		fmt.Fprintf(tw, "sampled period:\t%s to %s\n", r.First.Format("2006-01-02 15:04"), r.Last.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "bucket\tcolumns")
	for _, b := range r.Buckets {
		fmt.Fprintf(tw, "%s\t%d\n", b.Bucket, b.Count)
	}

	if len(r.Index.Entities) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "entity\tload actual\tload forecast\tgeneration\tprice")
		for _, e := range r.Index.Entities {
			var gens []string
			for _, g := range e.Generation {
				s := g.Type
				if g.Capacity != "" {
					s += "+cap"
				}
				gens = append(gens, s)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", e.Entity, dash(e.LoadActual), dash(e.LoadForecast),
				dash(strings.Join(gens, ",")), len(e.Price))
		}
	}

	if len(r.Weather) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "country\ttemperature\tradiation direct\tradiation diffuse")
		for _, wc := range r.Weather {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", wc.Country, dash(wc.Temperature), dash(wc.RadiationDirect), dash(wc.RadiationDiffuse))
		}
	}
	return tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "missing"
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
