package storage

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

type fakeTx struct {
	committed, rolledBack bool
	commitErr             error
}

func (t *fakeTx) InsertRows(context.Context, string, []string, [][]any, []string) (int64, error) {
	return 0, nil
}
func (t *fakeTx) InsertReturningID(context.Context, string, string, []string, []any) (int64, error) {
	return 1, nil
}
func (t *fakeTx) Update(context.Context, string, string, int64, []string, []any) error { return nil }
func (t *fakeTx) Commit(context.Context) error {
	t.committed = true
	return t.commitErr
}
func (t *fakeTx) Rollback(context.Context) error {
	t.rolledBack = true
	return nil
}

type fakeRepo struct {
	tx  *fakeTx
	res *Result
}

func (r *fakeRepo) Close()                                          {}
func (r *fakeRepo) EnsureTables(context.Context, []TableSpec) error { return nil }
func (r *fakeRepo) Begin(context.Context) (Tx, error)               { return r.tx, nil }
func (r *fakeRepo) Select(context.Context, Query) (*Result, error)  { return r.res, nil }

func TestRegisterAndNew(t *testing.T) {
	Register("fake-test", func(ctx context.Context, cfg Config) (Repository, error) {
		return &fakeRepo{}, nil
	})

	if _, err := New(context.Background(), Config{Kind: "fake-test"}); err != nil {
		t.Fatalf("New(fake-test) err=%v", err)
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatalf("New(empty kind) err=nil, want error")
	}
	if _, err := New(context.Background(), Config{Kind: "nope"}); !errors.Is(err, ErrUnsupportedKind) {
		t.Fatalf("New(nope) err=%v, want ErrUnsupportedKind", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatalf("duplicate Register did not panic")
		}
	}()
	Register("fake-test", func(ctx context.Context, cfg Config) (Repository, error) { return nil, nil })
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	ok := &fakeRepo{tx: &fakeTx{}}
	if err := WithTx(ctx, ok, func(Tx) error { return nil }); err != nil {
		t.Fatalf("WithTx ok err=%v", err)
	}
	if !ok.tx.committed || ok.tx.rolledBack {
		t.Fatalf("ok path: committed=%v rolledBack=%v", ok.tx.committed, ok.tx.rolledBack)
	}

	boom := errors.New("boom")
	failing := &fakeRepo{tx: &fakeTx{}}
	if err := WithTx(ctx, failing, func(Tx) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("WithTx err=%v, want boom", err)
	}
	if failing.tx.committed || !failing.tx.rolledBack {
		t.Fatalf("fn error path: committed=%v rolledBack=%v", failing.tx.committed, failing.tx.rolledBack)
	}

	commitFail := &fakeRepo{tx: &fakeTx{commitErr: boom}}
	if err := WithTx(ctx, commitFail, func(Tx) error { return nil }); !errors.Is(err, boom) {
		t.Fatalf("WithTx commit err=%v, want boom", err)
	}
}

func TestGetByID_NotFound(t *testing.T) {
	repo := &fakeRepo{res: &Result{Columns: []string{"id"}}}
	_, err := GetByID(context.Background(), repo, "t", "id", 5, []string{"id"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetByID err=%v, want ErrNotFound", err)
	}
}

func TestTableSpecValidate(t *testing.T) {
	good := TableSpec{
		Name: "load_data",
		Columns: []ColumnSpec{
			{Name: "id", Type: TypeID},
			{Name: "country_code", Type: TypeText, Size: 10},
			{Name: "utc_timestamp", Type: TypeTime},
		},
		Unique: [][]string{{"country_code", "utc_timestamp"}},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate(good) err=%v", err)
	}
	if good.PrimaryKey() != "id" {
		t.Fatalf("PrimaryKey()=%q, want id", good.PrimaryKey())
	}

	bad := good
	bad.Unique = [][]string{{"missing"}}
	if err := bad.Validate(); err == nil {
		t.Fatalf("Validate(unknown key column) err=nil")
	}

	bad = good
	bad.Columns = append(append([]ColumnSpec{}, good.Columns...), ColumnSpec{Name: "x", Type: "blob"})
	if err := bad.Validate(); err == nil {
		t.Fatalf("Validate(unknown type) err=nil")
	}
}

func TestDedupeRows(t *testing.T) {
	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"country_code", "utc_timestamp", "v"}
	rows := [][]any{
		{"DE", ts, 1.0},
		{"DE", ts.In(time.FixedZone("CET", 3600)), 2.0}, // same instant
		{"FR", ts, 3.0},
	}
	got, err := DedupeRows(cols, rows, []string{"country_code", "utc_timestamp"})
	if err != nil {
		t.Fatalf("DedupeRows err=%v", err)
	}
	if len(got) != 2 || got[0][2] != 1.0 || got[1][0] != "FR" {
		t.Fatalf("DedupeRows=%v, want first DE and FR", got)
	}

	if _, err := DedupeRows(cols, rows, []string{"nope"}); err == nil {
		t.Fatalf("DedupeRows(unknown col) err=nil")
	}
}

func TestChunkRows(t *testing.T) {
	rows := [][]any{{1}, {2}, {3}, {4}, {5}}
	got := ChunkRows(rows, 2)
	if len(got) != 3 || len(got[2]) != 1 {
		t.Fatalf("ChunkRows sizes=%d, want 3 chunks", len(got))
	}
	if ChunkRows(nil, 2) != nil {
		t.Fatalf("ChunkRows(nil) should be nil")
	}
	if one := ChunkRows(rows, 0); len(one) != 1 {
		t.Fatalf("ChunkRows(size 0)=%d chunks, want 1", len(one))
	}
}

func TestDecode(t *testing.T) {
	ts := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		typ  ColumnType
		in   any
		want any
	}{
		{TypeTime, FormatTextTime(ts), ts},
		{TypeTime, ts.In(time.FixedZone("X", 7200)), ts},
		{TypeFloat, int64(3), 3.0},
		{TypeFloat, []byte("2.5"), 2.5},
		{TypeInt, int32(9), int64(9)},
		{TypeBool, int64(1), true},
		{TypeText, []byte("DE"), "DE"},
		{TypeText, nil, nil},
		{"", int64(4), int64(4)},
	}
	for _, tc := range tests {
		got, err := Decode(tc.typ, tc.in)
		if err != nil {
			t.Fatalf("Decode(%s,%v) err=%v", tc.typ, tc.in, err)
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("Decode(%s,%v)=%#v, want %#v", tc.typ, tc.in, got, tc.want)
		}
	}
	if _, err := Decode(TypeTime, "not a time"); err == nil {
		t.Fatalf("Decode(bad time) err=nil")
	}
}
