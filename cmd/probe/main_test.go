package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestHelperProcess runs main in a child test binary so exit codes and
// output can be observed. Arguments follow a literal "--".
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	args := []string{os.Args[0]}
	for i, a := range os.Args {
		if a == "--" {
			args = append(args, os.Args[i+1:]...)
			break
		}
	}
	os.Args = args

	main()
	os.Exit(0)
}

// runCmd runs the probe command with args and captures its output.
func runCmd(t *testing.T, args ...string) (stdout, stderr string, exitCode int) {
	t.Helper()

	cmd := exec.Command(os.Args[0], append([]string{"-test.run=TestHelperProcess", "--"}, args...)...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	var out, errOut bytes.Buffer
	cmd.Stdout, cmd.Stderr = &out, &errOut

	err := cmd.Run()
	var ee *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &ee):
		exitCode = ee.ExitCode()
	default:
		t.Fatalf("run helper: %v", err)
	}
	return out.String(), errOut.String(), exitCode
}

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "opsd.csv")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

const sample = "utc_timestamp,cet_cest_timestamp,DE_load_actual_entsoe_transparency,DE_wind_onshore_generation_actual,DE_wind_onshore_capacity,FR_price_day_ahead\n" +
	"2019-12-31T23:00:00Z,2020-01-01T00:00:00+0100,41000,9000,50000,30.1\n"

func TestMain_TextReport(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := runCmd(t, writeCSV(t, sample))
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d\nstderr:\n%s\nstdout:\n%s", code, stderr, stdout)
	}
	for _, want := range []string{"columns:", "load", "wind_onshore+cap", "DE_load_actual_entsoe_transparency", "FR"} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("expected %q in stdout, got:\n%s", want, stdout)
		}
	}
	if strings.Contains(stderr, "warning") {
		t.Fatalf("unexpected warning:\n%s", stderr)
	}
}

func TestMain_JSONReport(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := runCmd(t, "-json", "-url", writeCSV(t, sample))
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d\nstderr:\n%s", code, stderr)
	}
	var v struct {
		Columns    int
		SampleRows int
		Buckets    []struct {
			Bucket string
			Count  int
		}
	}
	if err := json.Unmarshal([]byte(stdout), &v); err != nil {
		t.Fatalf("stdout is not valid JSON: %v\nstdout:\n%s", err, stdout)
	}
	if v.Columns != 6 || v.SampleRows != 1 || len(v.Buckets) != 5 {
		t.Fatalf("got %+v", v)
	}
}

func TestMain_MissingTimestampWarns(t *testing.T) {
	t.Parallel()

	_, stderr, code := runCmd(t, writeCSV(t, "DE_temperature\n1.5\n"))
	if code != 0 {
		t.Fatalf("expected exit code 0, got %d", code)
	}
	if !strings.Contains(stderr, "no utc_timestamp column") {
		t.Fatalf("expected warning on stderr, got:\n%s", stderr)
	}
}

func TestMain_MissingInput_ExitsWith2(t *testing.T) {
	t.Parallel()

	stdout, stderr, code := runCmd(t /* no args */)
	if code != 2 {
		t.Fatalf("expected exit code 2, got %d\nstderr:\n%s\nstdout:\n%s", code, stderr, stdout)
	}
	if !strings.Contains(stderr, "missing input") {
		t.Fatalf("expected missing input message on stderr, got:\n%s", stderr)
	}
}

func TestMain_UnreadableFile_Exits1(t *testing.T) {
	t.Parallel()

	_, stderr, code := runCmd(t, filepath.Join(t.TempDir(), "nope.csv"))
	if code != 1 {
		t.Fatalf("expected exit code 1, got %d\nstderr:\n%s", code, stderr)
	}
}
