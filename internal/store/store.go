// Package store maps the model types onto storage tables.
package store

import (
	"context"
	"fmt"
	"time"

	"gridetl/internal/model"
	"gridetl/internal/storage"
)

// Store is typed access to the energy, report and forecast tables.
type Store struct {
	repo storage.Repository
	now  func() time.Time
}

func New(repo storage.Repository) *Store {
	return &Store{repo: repo, now: time.Now}
}

// Repository returns the backing repository.
func (s *Store) Repository() storage.Repository { return s.repo }

// Migrate creates every table and index that does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	return s.repo.EnsureTables(ctx, Tables())
}

// Filter selects energy rows by country and inclusive time window.
type Filter struct {
	Countries []string
	From, To  *time.Time
	// Sample caps the row count with a random sample; 0 means all rows.
	Sample int
}

func (f Filter) query(table, timeCol string, cols []string) storage.Query {
	q := storage.Query{
		Table:      table,
		Columns:    cols,
		TimeColumn: timeCol,
		From:       f.From,
		To:         f.To,
		OrderBy:    timeCol,
	}
	if len(f.Countries) > 0 {
		q.InColumn = "country_code"
		for _, c := range f.Countries {
			q.In = append(q.In, c)
		}
	}
	if f.Sample > 0 {
		q.Random = true
		q.Limit = f.Sample
	}
	return q
}

// nullable unwraps optional values for binding.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func optString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func asFloat(v any) *float64 {
	if f, ok := v.(float64); ok {
		return &f
	}
	return nil
}

func asInt(v any) int64 {
	i, _ := v.(int64)
	return i
}

func asOptInt(v any) *int64 {
	if i, ok := v.(int64); ok {
		return &i
	}
	return nil
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asTime(v any) time.Time {
	t, _ := v.(time.Time)
	return t
}

func asOptTime(v any) *time.Time {
	if t, ok := v.(time.Time); ok {
		return &t
	}
	return nil
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

// InsertLoads writes recs inside tx, skipping rows whose natural key already
// exists. It returns the number of rows actually written. The other Insert
// functions behave the same for their tables.
func InsertLoads(ctx context.Context, tx storage.Tx, recs []model.Load, now time.Time) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	cols := []string{"country_code", "utc_timestamp", "cet_cest_timestamp", "actual_load_mw", "forecast_load_mw", "created_at"}
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{r.CountryCode, r.UTCTimestamp, r.CETTimestamp, nullable(r.ActualLoadMW), nullable(r.ForecastLoadMW), now}
	}
	return tx.InsertRows(ctx, TableLoad, cols, rows, LoadKey)
}

func InsertGenerations(ctx context.Context, tx storage.Tx, recs []model.Generation, now time.Time) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	cols := []string{"country_code", "utc_timestamp", "cet_cest_timestamp", "generation_type", "actual_generation_mw", "capacity_mw", "capacity_factor", "created_at"}
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{r.CountryCode, r.UTCTimestamp, r.CETTimestamp, r.GenerationType,
			nullable(r.ActualGenerationMW), nullable(r.CapacityMW), nullable(r.CapacityFactor), now}
	}
	return tx.InsertRows(ctx, TableGeneration, cols, rows, GenerationKey)
}

func InsertPrices(ctx context.Context, tx storage.Tx, recs []model.Price, now time.Time) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	cols := []string{"country_code", "utc_timestamp", "cet_cest_timestamp", "day_ahead_price", "currency", "bidding_zone", "created_at"}
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{r.CountryCode, r.UTCTimestamp, r.CETTimestamp, nullable(r.DayAheadPrice), r.Currency, optString(r.BiddingZone), now}
	}
	return tx.InsertRows(ctx, TablePrice, cols, rows, PriceKey)
}

func InsertWeather(ctx context.Context, tx storage.Tx, recs []model.Weather, now time.Time) (int64, error) {
	if len(recs) == 0 {
		return 0, nil
	}
	cols := []string{"timestamp", "location", "country_code", "temperature_celsius", "humidity_percent", "wind_speed_ms",
		"cloud_cover_percent", "solar_irradiance_wm2", "pressure_hpa", "created_at"}
	rows := make([][]any, len(recs))
	for i, r := range recs {
		rows[i] = []any{r.Timestamp, r.Location, r.CountryCode, nullable(r.TemperatureCelsius), nullable(r.HumidityPercent),
			nullable(r.WindSpeedMS), nullable(r.CloudCoverPercent), nullable(r.SolarIrradianceWM2), nullable(r.PressureHPA), now}
	}
	return tx.InsertRows(ctx, TableWeather, cols, rows, WeatherKey)
}

// WriteImportLog stores l and returns its id.
func (s *Store) WriteImportLog(ctx context.Context, l model.ImportLog) (int64, error) {
	if l.ImportTimestamp.IsZero() {
		l.ImportTimestamp = s.now().UTC()
	}
	var id int64
	err := storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		var err error
		id, err = tx.InsertReturningID(ctx, TableImportLog, "id",
			[]string{"source", "import_timestamp", "data_start_date", "data_end_date", "records_imported", "records_failed", "file_name", "success", "error_log"},
			[]any{l.Source, l.ImportTimestamp, l.DataStartDate, l.DataEndDate, l.RecordsImported, l.RecordsFailed, optString(l.FileName), l.Success, optString(l.ErrorLog)},
		)
		return err
	})
	return id, err
}

// ImportLogs returns the most recent import logs first.
func (s *Store) ImportLogs(ctx context.Context, limit int) ([]model.ImportLog, error) {
	cols := []string{"id", "source", "import_timestamp", "data_start_date", "data_end_date", "records_imported", "records_failed", "file_name", "success", "error_log"}
	res, err := s.repo.Select(ctx, storage.Query{Table: TableImportLog, Columns: cols, OrderBy: "id", Desc: true, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]model.ImportLog, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, model.ImportLog{
			ID: asInt(r[0]), Source: asString(r[1]), ImportTimestamp: asTime(r[2]),
			DataStartDate: asTime(r[3]), DataEndDate: asTime(r[4]),
			RecordsImported: asInt(r[5]), RecordsFailed: asInt(r[6]),
			FileName: asString(r[7]), Success: asBool(r[8]), ErrorLog: asString(r[9]),
		})
	}
	return out, nil
}

// Loads reads load rows; with f.Sample set the rows are a random sample.
func (s *Store) Loads(ctx context.Context, f Filter) ([]model.Load, error) {
	cols := []string{"country_code", "utc_timestamp", "cet_cest_timestamp", "actual_load_mw", "forecast_load_mw"}
	res, err := s.repo.Select(ctx, f.query(TableLoad, "utc_timestamp", cols))
	if err != nil {
		return nil, fmt.Errorf("select load: %w", err)
	}
	out := make([]model.Load, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, model.Load{
			CountryCode: asString(r[0]), UTCTimestamp: asTime(r[1]), CETTimestamp: asTime(r[2]),
			ActualLoadMW: asFloat(r[3]), ForecastLoadMW: asFloat(r[4]),
		})
	}
	return out, nil
}

func (s *Store) Generations(ctx context.Context, f Filter) ([]model.Generation, error) {
	cols := []string{"country_code", "utc_timestamp", "cet_cest_timestamp", "generation_type", "actual_generation_mw", "capacity_mw", "capacity_factor"}
	res, err := s.repo.Select(ctx, f.query(TableGeneration, "utc_timestamp", cols))
	if err != nil {
		return nil, fmt.Errorf("select generation: %w", err)
	}
	out := make([]model.Generation, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, model.Generation{
			CountryCode: asString(r[0]), UTCTimestamp: asTime(r[1]), CETTimestamp: asTime(r[2]),
			GenerationType: asString(r[3]), ActualGenerationMW: asFloat(r[4]),
			CapacityMW: asFloat(r[5]), CapacityFactor: asFloat(r[6]),
		})
	}
	return out, nil
}

func (s *Store) Prices(ctx context.Context, f Filter) ([]model.Price, error) {
	cols := []string{"country_code", "utc_timestamp", "cet_cest_timestamp", "day_ahead_price", "currency", "bidding_zone"}
	res, err := s.repo.Select(ctx, f.query(TablePrice, "utc_timestamp", cols))
	if err != nil {
		return nil, fmt.Errorf("select price: %w", err)
	}
	out := make([]model.Price, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, model.Price{
			CountryCode: asString(r[0]), UTCTimestamp: asTime(r[1]), CETTimestamp: asTime(r[2]),
			DayAheadPrice: asFloat(r[3]), Currency: asString(r[4]), BiddingZone: asString(r[5]),
		})
	}
	return out, nil
}

func (s *Store) Weather(ctx context.Context, f Filter) ([]model.Weather, error) {
	cols := []string{"timestamp", "location", "country_code", "temperature_celsius", "humidity_percent", "wind_speed_ms",
		"cloud_cover_percent", "solar_irradiance_wm2", "pressure_hpa"}
	res, err := s.repo.Select(ctx, f.query(TableWeather, "timestamp", cols))
	if err != nil {
		return nil, fmt.Errorf("select weather: %w", err)
	}
	out := make([]model.Weather, 0, len(res.Rows))
	for _, r := range res.Rows {
		out = append(out, model.Weather{
			Timestamp: asTime(r[0]), Location: asString(r[1]), CountryCode: asString(r[2]),
			TemperatureCelsius: asFloat(r[3]), HumidityPercent: asFloat(r[4]), WindSpeedMS: asFloat(r[5]),
			CloudCoverPercent: asFloat(r[6]), SolarIrradianceWM2: asFloat(r[7]), PressureHPA: asFloat(r[8]),
		})
	}
	return out, nil
}

// LatestLoadTimestamp returns the newest load timestamp; ok is false when
// the table is empty.
func (s *Store) LatestLoadTimestamp(ctx context.Context) (t time.Time, ok bool, err error) {
	res, err := s.repo.Select(ctx, storage.Query{
		Table: TableLoad, Columns: []string{"utc_timestamp"}, OrderBy: "utc_timestamp", Desc: true, Limit: 1,
	})
	if err != nil {
		return time.Time{}, false, err
	}
	if len(res.Rows) == 0 {
		return time.Time{}, false, nil
	}
	return asTime(res.Rows[0][0]), true, nil
}

// Count returns the number of rows in table.
func (s *Store) Count(ctx context.Context, table string) (int, error) {
	res, err := s.repo.Select(ctx, storage.Query{Table: table, Columns: []string{"id"}})
	if err != nil {
		return 0, err
	}
	return len(res.Rows), nil
}
