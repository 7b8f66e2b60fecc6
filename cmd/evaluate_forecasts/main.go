// Command evaluate_forecasts scores a forecast model against the actuals
// stored with its forecasts and records a performance metric.
//
//	evaluate_forecasts -model-id N [-date YYYY-MM-DD] [-period-days 30]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"gridetl/internal/cli"
	"gridetl/internal/forecasting"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], cli.OS()))
}

func run(ctx context.Context, args []string, d cli.Deps) int {
	fs := flag.NewFlagSet("evaluate_forecasts", flag.ContinueOnError)
	if d.Stderr != nil {
		fs.SetOutput(d.Stderr)
	}
	modelID := fs.Int64("model-id", 0, "forecast model id (required)")
	dateF := fs.String("date", "", "evaluation date (YYYY-MM-DD, default today UTC)")
	period := fs.Int("period-days", forecasting.DefaultPeriodDays, "days of forecasts to score, ending on -date")
	if err := fs.Parse(args); err != nil {
		return cli.ExitUsage
	}
	if *modelID <= 0 {
		fmt.Fprintln(fs.Output(), "missing -model-id")
		fs.PrintDefaults()
		return cli.ExitUsage
	}
	date, err := cli.DateFlag("date", *dateF)
	if err != nil {
		return cli.Fatal(fs.Output(), err)
	}

	env, err := cli.Setup(ctx, "evaluate_forecasts", d)
	if err != nil {
		return cli.Fatal(fs.Output(), err)
	}
	defer env.Close()
	if date == nil {
		now := env.Now().UTC()
		date = &now
	}

	s, err := env.OpenStore(ctx)
	if err != nil {
		return env.Fatal(err)
	}
	res, err := forecasting.NewEvaluator(s).Run(ctx, *modelID, *date, *period)
	if errors.Is(err, forecasting.ErrNoForecasts) {
		fmt.Fprintf(env.Stdout, "No forecasts with actual values for model %d in the %d days up to %s\n",
			*modelID, *period, date.Format("2006-01-02"))
		return cli.ExitOK
	}
	if err != nil {
		return env.Fatal(err)
	}

	p := message.NewPrinter(language.English)
	m := res.Metric
	p.Fprintf(env.Stdout, "Model %d on %s (%d days, %d forecasts)\n", m.ModelID, m.EvaluationDate.Format("2006-01-02"),
		m.EvaluationPeriodDays, m.ForecastCount)
	p.Fprintf(env.Stdout, "  MAE:  %.2f\n  RMSE: %.2f\n  MAPE: %.2f%%\n", m.MAE, m.RMSE, m.MAPE)
	if !res.Written {
		p.Fprintf(env.Stdout, "  a metric for this date already exists; kept the stored one\n")
	}
	return cli.ExitOK
}
