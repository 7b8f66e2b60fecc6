package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"gridetl/internal/columns"
	"gridetl/internal/importer"
	"gridetl/internal/model"
	"gridetl/internal/store"
)

// ImportKind selects the importer an import command runs.
type ImportKind int

const (
	ImportOPSD ImportKind = iota
	ImportWeather
)

// Import is the body of the import_opsd and import_weather commands:
//
//	<name> [-batch-size N] [-start-date D] [-end-date D] [-dry-run] [-countries C,C] <csv>
//
// A dry run never opens the database.
func Import(ctx context.Context, name string, kind ImportKind, args []string, d Deps) int {
	d = d.withDefaults()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(d.Stderr)
	batch := fs.Int("batch-size", importer.DefaultBatchSize, "rows per transaction")
	startF := fs.String("start-date", "", "first day to import (YYYY-MM-DD, UTC)")
	endF := fs.String("end-date", "", "last timestamp to import (YYYY-MM-DD, midnight UTC, inclusive)")
	dry := fs.Bool("dry-run", false, "parse and count without writing")
	var countriesF *string
	if kind == ImportWeather {
		countriesF = fs.String("countries", "", "comma-separated country codes to import (default all)")
	}

	pos, err := Parse(fs, args)
	if err != nil {
		return ExitUsage
	}
	if len(pos) != 1 {
		fmt.Fprintf(d.Stderr, "usage: %s [flags] <csv_file>\n", name)
		fs.PrintDefaults()
		return ExitUsage
	}
	if *batch <= 0 {
		fmt.Fprintf(d.Stderr, "-batch-size must be a positive integer, got %d\n", *batch)
		return ExitUsage
	}
	path := pos[0]

	opt := importer.Options{BatchSize: *batch, DryRun: *dry, FileName: filepath.Base(path)}
	if opt.Start, err = DateFlag("start-date", *startF); err != nil {
		return Fatal(d.Stderr, err)
	}
	if opt.End, err = DateFlag("end-date", *endF); err != nil {
		return Fatal(d.Stderr, err)
	}
	if countriesF != nil {
		opt.Countries = columns.ParseCountries(*countriesF)
	}

	f, err := os.Open(path)
	if err != nil {
		return Fatal(d.Stderr, fmt.Errorf("file not found: %w", err))
	}
	defer f.Close()

	env, err := Setup(ctx, name, d)
	if err != nil {
		return Fatal(d.Stderr, err)
	}
	defer env.Close()

	var s *store.Store
	if !opt.DryRun {
		if s, err = env.OpenStore(ctx); err != nil {
			return env.Fatal(err)
		}
	}
	im := importer.NewOPSD(s)
	if kind == ImportWeather {
		im = importer.NewWeather(s)
	}

	st, err := im.Run(ctx, f, opt)
	if err != nil {
		return env.Fatal(fmt.Errorf("import failed: %w", err))
	}
	printStats(env, im.Source(), st, opt.DryRun)
	return ExitOK
}

func printStats(env *Env, source string, st importer.Stats, dry bool) {
	p := message.NewPrinter(language.English)
	w := env.Stdout
	if dry {
		p.Fprintf(w, "DRY RUN: no data was written\n")
	}
	p.Fprintf(w, "%s import: %d rows in %d batches (%d outside the date range)\n", source, st.Rows, st.Batches, st.Skipped)
	if !st.First.IsZero() {
		p.Fprintf(w, "  period:     %s to %s\n", st.First.Format("2006-01-02 15:04"), st.Last.Format("2006-01-02 15:04"))
	}
	if source == model.SourceWeather {
		p.Fprintf(w, "  weather:    %d\n", st.Weather)
	} else {
		p.Fprintf(w, "  load:       %d\n", st.Load)
		p.Fprintf(w, "  generation: %d\n", st.Generation)
		p.Fprintf(w, "  price:      %d\n", st.Price)
	}
	p.Fprintf(w, "  errors:     %d\n", st.Errors)
	if !dry {
		p.Fprintf(w, "  inserted:   %d (existing rows skipped)\n", st.Inserted)
	}
}
