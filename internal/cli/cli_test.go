package cli

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridetl/internal/config"
	"gridetl/internal/upload"
)

const opsdCSV = "utc_timestamp,cet_cest_timestamp,DE_load_actual_entsoe_transparency,DE_solar_generation_actual,DE_solar_capacity\n" +
	"2020-01-01T00:00:00Z,2020-01-01T01:00:00+0100,41000,0,48000\n" +
	"2020-01-01T01:00:00Z,2020-01-01T02:00:00+0100,40000,0,48000\n"

func testDeps(t *testing.T) (Deps, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	var stdout, stderr bytes.Buffer
	return Deps{
		Stdout: &stdout,
		Stderr: &stderr,
		LoadConfig: func() (*config.Config, error) {
			cfg := config.Default()
			cfg.Storage.DSN = "file:" + filepath.Join(dir, "cli.db")
			cfg.Media.Root = filepath.Join(dir, "media")
			cfg.Log.Level = "error"
			return cfg, nil
		},
	}, &stdout, &stderr
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "time_series_60min.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParse_Interspersed(t *testing.T) {
	fs := flag.NewFlagSet("x", flag.ContinueOnError)
	dry := fs.Bool("dry-run", false, "")
	n := fs.Int("batch-size", 0, "")

	pos, err := Parse(fs, []string{"a.csv", "-dry-run", "-batch-size", "5", "b.csv"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv", "b.csv"}, pos)
	assert.True(t, *dry)
	assert.Equal(t, 5, *n)

	fs = flag.NewFlagSet("x", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	_, err = Parse(fs, []string{"-nope"})
	assert.Error(t, err)
}

func TestDateFlag(t *testing.T) {
	got, err := DateFlag("start-date", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = DateFlag("start-date", "2020-02-29")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 2, 29, 0, 0, 0, 0, time.UTC), *got)

	_, err = DateFlag("end-date", "29/02/2020")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-end-date")
}

func TestImport_DryRunNeedsNoDatabase(t *testing.T) {
	d, stdout, _ := testDeps(t)
	d.LoadConfig = func() (*config.Config, error) {
		cfg := config.Default()
		cfg.Storage.DSN = "file:" + filepath.Join(t.TempDir(), "missing", "dir", "x.db")
		return cfg, nil
	}

	code := Import(context.Background(), "import_opsd", ImportOPSD, []string{writeFile(t, opsdCSV), "-dry-run"}, d)
	require.Equal(t, ExitOK, code)
	assert.Contains(t, stdout.String(), "DRY RUN")
	assert.Contains(t, stdout.String(), "load:       2")
	assert.NotContains(t, stdout.String(), "inserted")
}

func TestImport_WritesRows(t *testing.T) {
	d, stdout, stderr := testDeps(t)
	path := writeFile(t, opsdCSV)

	require.Equal(t, ExitOK, Import(context.Background(), "import_opsd", ImportOPSD, []string{path}, d), stderr.String())
	assert.Contains(t, stdout.String(), "load:       2")
	assert.Contains(t, stdout.String(), "period:     2020-01-01 00:00 to 2020-01-01 01:00")

	stdout.Reset()
	require.Equal(t, ExitOK, Import(context.Background(), "import_opsd", ImportOPSD, []string{path}, d), stderr.String())
	assert.Contains(t, stdout.String(), "inserted:   0", "a second import inserts nothing")
}

func TestImport_Usage(t *testing.T) {
	d, _, stderr := testDeps(t)
	ctx := context.Background()

	assert.Equal(t, ExitUsage, Import(ctx, "import_opsd", ImportOPSD, nil, d))
	assert.Contains(t, stderr.String(), "usage: import_opsd")
	assert.Equal(t, ExitUsage, Import(ctx, "import_opsd", ImportOPSD, []string{"-countries", "DE", "x.csv"}, d),
		"countries is a weather-only flag")
	assert.Equal(t, ExitUsage, Import(ctx, "import_opsd", ImportOPSD, []string{"-batch-size", "0", "x.csv"}, d))
	assert.Equal(t, ExitUsage, Import(ctx, "import_opsd", ImportOPSD, []string{"-batch-size", "-5", "x.csv"}, d))
	assert.Contains(t, stderr.String(), "-batch-size must be a positive integer")
	assert.Equal(t, ExitFatal, Import(ctx, "import_opsd", ImportOPSD, []string{"-start-date", "yesterday", "x.csv"}, d))
	assert.Equal(t, ExitFatal, Import(ctx, "import_weather", ImportWeather, []string{filepath.Join(t.TempDir(), "none.csv")}, d))
	assert.Contains(t, stderr.String(), "file not found")
}

func TestSetup_ConfigError(t *testing.T) {
	d, _, _ := testDeps(t)
	d.LoadConfig = func() (*config.Config, error) { return nil, errors.New("bad config") }
	_, err := Setup(context.Background(), "x", d)
	assert.EqualError(t, err, "bad config")
}

func TestEnv_UploaderWithoutS3SavesLocally(t *testing.T) {
	d, _, _ := testDeps(t)
	env, err := Setup(context.Background(), "x", d)
	require.NoError(t, err)
	defer env.Close()

	up, err := env.Uploader(context.Background())
	require.NoError(t, err)
	res, err := up.Upload(context.Background(), "r.html", []byte("<html></html>"))
	require.NoError(t, err)
	assert.Equal(t, upload.TargetLocal, res.Target)
	assert.FileExists(t, filepath.Join(env.Config.Media.Root, "analytics", "data-profiles", "r.html"))
}
