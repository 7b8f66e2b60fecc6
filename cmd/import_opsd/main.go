// Command import_opsd loads an OPSD time series CSV (load, renewable
// generation, capacity, day-ahead price) into the energy tables.
//
//	import_opsd [-batch-size 1000] [-start-date YYYY-MM-DD] [-end-date YYYY-MM-DD] [-dry-run] <csv_file>
package main

import (
	"context"
	"os"

	"gridetl/internal/cli"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], cli.OS()))
}

func run(ctx context.Context, args []string, d cli.Deps) int {
	return cli.Import(ctx, "import_opsd", cli.ImportOPSD, args, d)
}
