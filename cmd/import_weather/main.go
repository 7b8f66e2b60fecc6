// Command import_weather loads an OPSD weather CSV (country temperature and
// irradiance series) into the weather table.
//
//	import_weather [-batch-size 1000] [-start-date D] [-end-date D] [-countries DE,FR] [-dry-run] <csv_file>
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
	return cli.Import(ctx, "import_weather", cli.ImportWeather, args, d)
}
