// Package csv streams wide CSV exports into pooled transformer rows.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"gridetl/internal/transformer"
)

// ErrNoHeader is returned when the source has no header record.
var ErrNoHeader = errors.New("csv: missing header")

// Options controls CSV dialect handling.
type Options struct {
	Comma      rune // default ','
	LazyQuotes bool
	TrimSpace  bool
}

// DefaultOptions matches OPSD exports.
func DefaultOptions() Options {
	return Options{Comma: ',', TrimSpace: true}
}

// Stream is an open CSV source whose header has been read.
type Stream struct {
	src    io.ReadCloser
	cr     *csv.Reader
	opt    Options
	header []string
	index  map[string]int
	line   int
}

// Open reads and normalizes the header (UTF-8 BOM stripped, cells trimmed).
// The returned Stream owns src; StreamRows or Close releases it.
func Open(src io.ReadCloser, opt Options) (*Stream, error) {
	if opt.Comma == 0 {
		opt.Comma = ','
	}
	cr := csv.NewReader(src)
	cr.Comma = opt.Comma
	cr.LazyQuotes = opt.LazyQuotes
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	s := &Stream{src: src, cr: cr, opt: opt}

	hdr, err := s.read()
	if err == io.EOF {
		_ = src.Close()
		return nil, ErrNoHeader
	}
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("csv: read header: %w", err)
	}

	s.header = make([]string, len(hdr))
	s.index = make(map[string]int, len(hdr))
	for i, h := range hdr {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		s.header[i] = h
		if _, dup := s.index[h]; !dup {
			s.index[h] = i
		}
	}
	if len(s.header) == 0 || (len(s.header) == 1 && s.header[0] == "") {
		_ = src.Close()
		return nil, ErrNoHeader
	}
	return s, nil
}

func (s *Stream) read() ([]string, error) {
	s.line++
	return s.cr.Read()
}

// Header returns the normalized header names in file order.
func (s *Stream) Header() []string { return s.header }

// Has reports whether the header contains name.
func (s *Stream) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Close releases the source without streaming.
func (s *Stream) Close() error { return s.src.Close() }

// StreamRows sends one pooled Row per record to out, with V aligned to
// columns. Columns missing from the header yield nil cells. Malformed records
// are reported through onErr and skipped.
//
// On ctx cancellation the in-flight row is dropped, not re-pooled.
func (s *Stream) StreamRows(
	ctx context.Context,
	columns []string,
	out chan<- *transformer.Row,
	onErr func(line int, err error),
) error {
	defer s.src.Close()

	colIx := make([]int, len(columns))
	for t, c := range columns {
		if si, ok := s.index[c]; ok {
			colIx[t] = si
		} else {
			colIx[t] = -1
		}
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		rec, err := s.read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				if onErr != nil {
					onErr(s.line, fmt.Errorf("csv read: %w", err))
				}
				continue
			}
			return fmt.Errorf("csv read line %d: %w", s.line, err)
		}

		row := transformer.GetRow(len(columns))
		row.Line = s.line
		for t, si := range colIx {
			if si < 0 || si >= len(rec) {
				continue
			}
			v := rec[si]
			if s.opt.TrimSpace {
				v = strings.TrimSpace(v)
			}
			if v != "" {
				row.V[t] = v
			}
		}

		select {
		case out <- row:
		case <-ctx.Done():
			row.Drop()
			return ctx.Err()
		}
	}
}
