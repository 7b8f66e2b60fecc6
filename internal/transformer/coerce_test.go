package transformer

import (
	"testing"
	"time"
)

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    float64
		wantOK  bool
		wantErr bool
	}{
		{name: "nil", in: nil},
		{name: "empty", in: ""},
		{name: "nan_text", in: "NaN"},
		{name: "na", in: " NA "},
		{name: "int_text", in: "42", want: 42, wantOK: true},
		{name: "float_text", in: " 41.5 ", want: 41.5, wantOK: true},
		{name: "negative", in: "-3.25", want: -3.25, wantOK: true},
		{name: "float64", in: 1.5, want: 1.5, wantOK: true},
		{name: "int64", in: int64(7), want: 7, wantOK: true},
		{name: "garbage", in: "12abc", wantErr: true},
		{name: "unsupported_type", in: true, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok, err := ParseFloat(tc.in)
			if (err != nil) != tc.wantErr {
				t.Fatalf("ParseFloat(%v) err=%v, wantErr=%v", tc.in, err, tc.wantErr)
			}
			if ok != tc.wantOK || got != tc.want {
				t.Fatalf("ParseFloat(%v)=(%v,%v), want (%v,%v)", tc.in, got, ok, tc.want, tc.wantOK)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2020-01-01T00:00:00Z",
		"2020-01-01T01:00:00+0100",
		"2020-01-01T01:00:00+01:00",
		"2020-01-01 00:00:00",
		"2020-01-01T00:00:00",
		"2020-01-01",
	} {
		got, err := ParseTimestamp(in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q) err=%v", in, err)
		}
		if !got.Equal(want) || got.Location() != time.UTC {
			t.Fatalf("ParseTimestamp(%q)=%v, want %v UTC", in, got, want)
		}
	}

	for _, bad := range []string{"", "yesterday", "2020-13-01"} {
		if _, err := ParseTimestamp(bad); err == nil {
			t.Fatalf("ParseTimestamp(%q) err=nil, want error", bad)
		}
	}
}

func TestParseZoned_KeepsOffset(t *testing.T) {
	got, err := ParseZoned("2020-01-01T01:00:00+0100")
	if err != nil {
		t.Fatalf("ParseZoned err=%v", err)
	}
	if _, off := got.Zone(); off != 3600 {
		t.Fatalf("offset=%d, want 3600", off)
	}
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2020-03-04")
	if err != nil {
		t.Fatalf("ParseDate err=%v", err)
	}
	if !got.Equal(time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("ParseDate=%v", got)
	}
	if _, err := ParseDate("04/03/2020"); err == nil {
		t.Fatalf("ParseDate(bad) err=nil, want error")
	}
}

func TestRowPool(t *testing.T) {
	r := GetRow(3)
	r.V[0] = "x"
	r.Line = 9
	r.Free()

	r2 := GetRow(2)
	if len(r2.V) != 2 || r2.Line != 0 {
		t.Fatalf("GetRow after Free: len=%d line=%d, want 2 and 0", len(r2.V), r2.Line)
	}
	for i, v := range r2.V {
		if v != nil {
			t.Fatalf("V[%d]=%v, want nil", i, v)
		}
	}
	if r2.String(5) != "" {
		t.Fatalf("String out of range should be empty")
	}
	r2.Drop()
	if r2.V != nil {
		t.Fatalf("Drop left V non-nil")
	}
}
