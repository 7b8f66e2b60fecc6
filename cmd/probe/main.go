// Command probe prints how an OPSD export would be classified by the
// importers: bucket counts, per-entity load, generation and price columns,
// and the weather mapping. It reads only a bounded prefix of the input and
// never opens the database.
//
//	probe [-bytes N] [-countries DE,FR] [-json] <path-or-url>
//
// The input may also be given with -url. Local paths, file:// and http(s)://
// URLs are accepted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gridetl/internal/columns"
	"gridetl/internal/probe"
)

func main() {
	var (
		// flagURL is the path or URL of the export; a positional argument
		// works too.
		flagURL = flag.String("url", "", "path or URL of the CSV export")

		// flagBytes bounds the sample. OPSD headers are wide, so the default
		// is generous.
		flagBytes = flag.Int("bytes", probe.DefaultMaxBytes, "number of bytes to sample from the start of the file")

		flagCountries     = flag.String("countries", "", "comma-separated countries for the weather mapping (default all)")
		flagAllowInsecure = flag.Bool("allow-insecure", false, "skip TLS verification for https sources")
		flagJSON          = flag.Bool("json", false, "print the report as JSON")
	)
	flag.Parse()

	url := strings.TrimSpace(*flagURL)
	if url == "" && flag.NArg() > 0 {
		url = flag.Arg(0)
	}
	if url == "" {
		fmt.Fprintln(os.Stderr, "missing input: pass a path or -url")
		flag.Usage()
		os.Exit(2)
	}

	// Sampling should be quick; fail rather than hang on a slow source.
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	rep, err := probe.Probe(ctx, probe.Options{
		URL:              url,
		MaxBytes:         *flagBytes,
		AllowInsecureTLS: *flagAllowInsecure,
		Countries:        columns.ParseCountries(*flagCountries),
	})
	if err != nil {
		log.Fatalf("probe: %v", err)
	}

	if *flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			log.Fatalf("encode: %v", err)
		}
		return
	}
	if err := rep.WriteText(os.Stdout); err != nil {
		log.Fatalf("write: %v", err)
	}
	if !rep.HasUTC {
		fmt.Fprintln(os.Stderr, "warning: no utc_timestamp column; an import would fail")
	}
}
