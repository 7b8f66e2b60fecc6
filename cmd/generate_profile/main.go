// Command generate_profile builds a data profiling report over the stored
// energy data, uploads it and records its metadata.
//
// By default the request runs in the foreground. With -async it goes through
// the report worker pool; the command prints the Generation Log id at once
// and then waits for the worker to finish.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"gridetl/internal/cli"
	"gridetl/internal/columns"
	"gridetl/internal/report"
	"gridetl/internal/report/profiling"
)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], cli.OS()))
}

func run(ctx context.Context, args []string, d cli.Deps) int {
	fs := flag.NewFlagSet("generate_profile", flag.ContinueOnError)
	if d.Stderr != nil {
		fs.SetOutput(d.Stderr)
	}
	countries := fs.String("countries", "", "comma-separated country codes (default all)")
	startF := fs.String("start-date", "", "start of the analysis period (YYYY-MM-DD, default end minus 30 days)")
	endF := fs.String("end-date", "", "end of the analysis period (YYYY-MM-DD, default latest load data)")
	profileF := fs.String("report-type", string(report.Minimal), "minimal, full or explorative")
	sample := fs.Int("sample-size", report.DefaultSampleCap, "maximum number of load rows to profile")
	requestedBy := fs.String("requested-by", os.Getenv("USER"), "recorded on the generation log")
	async := fs.Bool("async", false, "run through the report worker pool")

	pos, err := cli.Parse(fs, args)
	if err != nil {
		return cli.ExitUsage
	}
	if len(pos) != 0 {
		fmt.Fprintf(fs.Output(), "unexpected arguments: %v\n", pos)
		return cli.ExitUsage
	}

	req := report.Request{
		Countries:   columns.ParseCountries(*countries),
		SampleCap:   *sample,
		RequestedBy: *requestedBy,
	}
	if req.Profile, err = report.ParseProfile(*profileF); err != nil {
		return cli.Fatal(fs.Output(), err)
	}
	if req.Start, err = cli.DateFlag("start-date", *startF); err != nil {
		return cli.Fatal(fs.Output(), err)
	}
	if req.End, err = cli.DateFlag("end-date", *endF); err != nil {
		return cli.Fatal(fs.Output(), err)
	}

	env, err := cli.Setup(ctx, "generate_profile", d)
	if err != nil {
		return cli.Fatal(fs.Output(), err)
	}
	defer env.Close()

	s, err := env.OpenStore(ctx)
	if err != nil {
		return env.Fatal(err)
	}
	up, err := env.Uploader(ctx)
	if err != nil {
		return env.Fatal(err)
	}
	p := report.NewPipeline(s, profiling.NewHTML(), up)

	var out report.Outcome
	if *async {
		out, err = runAsync(ctx, env, p, req)
	} else {
		out, err = p.Generate(ctx, req)
	}
	if err != nil {
		return env.Fatal(fmt.Errorf("profiling failed: %w", err))
	}

	pr := message.NewPrinter(language.English)
	pr.Fprintf(env.Stdout, "Profiling report generated successfully: %s\n", out.URL)
	pr.Fprintf(env.Stdout, "  generation log: %d\n  report:         %d\n  records:        %d\n  stored:         %s\n",
		out.LogID, out.ReportID, out.Records, out.Target)
	return cli.ExitOK
}

func runAsync(ctx context.Context, env *cli.Env, p *report.Pipeline, req report.Request) (report.Outcome, error) {
	pool := report.NewPool(p, env.Config.Report)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go pool.Serve(ctx)

	tk, err := pool.Submit(ctx, req)
	if err != nil {
		return report.Outcome{}, err
	}
	fmt.Fprintf(env.Stdout, "Queued report generation (log %d)\n", tk.ID)
	out := <-tk.Done
	return out, out.Err
}
