package postgres

import (
	"strings"
	"testing"
	"time"

	"gridetl/internal/storage"
	"gridetl/internal/storage/sqlstore"
)

func TestBuildInsertSQL_OnConflictDoNothing(t *testing.T) {
	t.Parallel()

	ts := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	sql, args := buildInsertSQL("generation_data",
		[]string{"country_code", "utc_timestamp", "generation_type"},
		[][]any{{"DE", ts, "solar"}, {"DE", ts, "wind"}},
		[]string{"country_code", "utc_timestamp", "generation_type"},
	)

	want := `INSERT INTO "generation_data" ("country_code", "utc_timestamp", "generation_type") VALUES ($1, $2, $3), ($4, $5, $6) ON CONFLICT ("country_code", "utc_timestamp", "generation_type") DO NOTHING`
	if sql != want {
		t.Fatalf("sql mismatch\n got: %s\nwant: %s", sql, want)
	}
	if len(args) != 6 || args[5] != "wind" {
		t.Fatalf("args=%v", args)
	}
}

func TestBuildInsertSQL_NoConflict(t *testing.T) {
	t.Parallel()

	sql, _ := buildInsertSQL("t", []string{"a"}, [][]any{{1}}, nil)
	if strings.Contains(sql, "ON CONFLICT") {
		t.Fatalf("unexpected ON CONFLICT: %s", sql)
	}
}

func TestCreateTable(t *testing.T) {
	t.Parallel()

	spec := storage.TableSpec{
		Name: "analytics.price_data",
		Columns: []storage.ColumnSpec{
			{Name: "id", Type: storage.TypeID},
			{Name: "bidding_zone", Type: storage.TypeText, Size: 20},
			{Name: "utc_timestamp", Type: storage.TypeTime},
			{Name: "price", Type: storage.TypeFloat, Nullable: true},
		},
		Unique:  [][]string{{"bidding_zone", "utc_timestamp"}},
		Indexes: [][]string{{"utc_timestamp"}},
	}
	stmts, err := Dialect{}.CreateTable(spec)
	if err != nil {
		t.Fatalf("CreateTable: %v", err)
	}
	if len(stmts) != 3 {
		t.Fatalf("got %d statements, want schema+table+index", len(stmts))
	}
	if stmts[0] != `CREATE SCHEMA IF NOT EXISTS "analytics";` {
		t.Fatalf("schema stmt=%q", stmts[0])
	}
	for _, frag := range []string{
		`CREATE TABLE IF NOT EXISTS "analytics"."price_data"`,
		`"id" BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY`,
		`"bidding_zone" VARCHAR(20) NOT NULL`,
		`"utc_timestamp" TIMESTAMPTZ NOT NULL`,
		`"price" DOUBLE PRECISION,`,
		`UNIQUE ("bidding_zone", "utc_timestamp")`,
	} {
		if !strings.Contains(stmts[1], frag) {
			t.Fatalf("table DDL missing %q:\n%s", frag, stmts[1])
		}
	}
	if !strings.HasPrefix(stmts[2], "CREATE INDEX IF NOT EXISTS") {
		t.Fatalf("index stmt=%q", stmts[2])
	}
}

func TestBuildSelect(t *testing.T) {
	t.Parallel()

	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	sql, args, err := sqlstore.BuildSelect(Dialect{}, storage.Query{
		Table:      "load_data",
		Columns:    []string{"country_code", "load_actual"},
		InColumn:   "country_code",
		In:         []any{"DE", "FR"},
		TimeColumn: "utc_timestamp",
		From:       &from,
		To:         &to,
		NotNull:    []string{"load_actual"},
		Random:     true,
		Limit:      10,
	})
	if err != nil {
		t.Fatalf("BuildSelect: %v", err)
	}
	want := `SELECT "country_code", "load_actual" FROM "load_data" WHERE "country_code" IN ($1, $2) AND "utc_timestamp" >= $3 AND "utc_timestamp" <= $4 AND "load_actual" IS NOT NULL ORDER BY random() LIMIT 10`
	if sql != want {
		t.Fatalf("sql mismatch\n got: %s\nwant: %s", sql, want)
	}
	if len(args) != 4 {
		t.Fatalf("args=%v", args)
	}
}

func TestBuildUpdate(t *testing.T) {
	t.Parallel()

	sql, args, err := sqlstore.BuildUpdate(Dialect{}, "generation_log", "id", 7,
		[]string{"status", "error_message"}, []any{"failed", "boom"})
	if err != nil {
		t.Fatalf("BuildUpdate: %v", err)
	}
	want := `UPDATE "generation_log" SET "status" = $1, "error_message" = $2 WHERE "id" = $3`
	if sql != want {
		t.Fatalf("sql=%s", sql)
	}
	if args[2] != int64(7) {
		t.Fatalf("id arg=%v", args[2])
	}

	if _, _, err := sqlstore.BuildUpdate(Dialect{}, "t", "id", 1, []string{"a"}, nil); err == nil {
		t.Fatalf("mismatched update err=nil")
	}
}
