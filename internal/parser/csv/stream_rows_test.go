package csv

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"gridetl/internal/transformer"
)

func open(t *testing.T, data string) *Stream {
	t.Helper()
	s, err := Open(io.NopCloser(strings.NewReader(data)), DefaultOptions())
	if err != nil {
		t.Fatalf("Open err=%v", err)
	}
	return s
}

func collect(t *testing.T, s *Stream, cols []string) ([][]any, []int) {
	t.Helper()
	out := make(chan *transformer.Row, 16)
	errc := make(chan error, 1)
	var errLines []int
	go func() {
		errc <- s.StreamRows(context.Background(), cols, out, func(line int, err error) {
			errLines = append(errLines, line)
		})
		close(out)
	}()

	var rows [][]any
	for r := range out {
		rows = append(rows, append([]any(nil), r.V...))
		r.Free()
	}
	if err := <-errc; err != nil {
		t.Fatalf("StreamRows err=%v", err)
	}
	return rows, errLines
}

func TestOpen_NormalizesHeader(t *testing.T) {
	s := open(t, "\uFEFFutc_timestamp, DE_load_actual_entsoe_transparency ,FR_price_day_ahead\n")
	want := []string{"utc_timestamp", "DE_load_actual_entsoe_transparency", "FR_price_day_ahead"}
	got := s.Header()
	if len(got) != len(want) {
		t.Fatalf("Header()=%v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Header()[%d]=%q, want %q", i, got[i], want[i])
		}
	}
	if !s.Has("utc_timestamp") || s.Has("cet_cest_timestamp") {
		t.Fatalf("Has() mismatch")
	}
	_ = s.Close()
}

func TestOpen_Empty(t *testing.T) {
	_, err := Open(io.NopCloser(strings.NewReader("")), DefaultOptions())
	if !errors.Is(err, ErrNoHeader) {
		t.Fatalf("Open(empty) err=%v, want ErrNoHeader", err)
	}
}

func TestStreamRows_ProjectsColumns(t *testing.T) {
	s := open(t, "utc_timestamp,A_load_actual,B_price_day_ahead\n"+
		"2020-01-01T00:00:00Z, 100 ,\n"+
		"2020-01-01T01:00:00Z,,55.5\n")

	rows, errLines := collect(t, s, []string{"B_price_day_ahead", "utc_timestamp", "missing"})
	if len(errLines) != 0 {
		t.Fatalf("unexpected parse errors at %v", errLines)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(rows))
	}
	if rows[0][0] != nil || rows[0][1] != "2020-01-01T00:00:00Z" || rows[0][2] != nil {
		t.Fatalf("row0=%v", rows[0])
	}
	if rows[1][0] != "55.5" {
		t.Fatalf("row1 price=%v, want 55.5", rows[1][0])
	}
}

func TestStreamRows_SkipsMalformedRecord(t *testing.T) {
	s := open(t, "utc_timestamp,A_load_actual\n"+
		"2020-01-01T00:00:00Z,1\n"+
		"2020-01-01T01:00:00Z,\"bad\"quote\n"+
		"2020-01-01T02:00:00Z,3\n")

	rows, errLines := collect(t, s, []string{"A_load_actual"})
	if len(rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(rows))
	}
	if len(errLines) != 1 || errLines[0] != 3 {
		t.Fatalf("errLines=%v, want [3]", errLines)
	}
}

func TestStreamRows_Cancel(t *testing.T) {
	s := open(t, "a_load_actual\n1\n2\n3\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := make(chan *transformer.Row)
	if err := s.StreamRows(ctx, []string{"a_load_actual"}, out, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("StreamRows err=%v, want context.Canceled", err)
	}
}
