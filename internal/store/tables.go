package store

import "gridetl/internal/storage"

// Table names.
const (
	TableLoad        = "load_data"
	TableGeneration  = "renewable_generation"
	TablePrice       = "energy_price"
	TableWeather     = "weather_data"
	TableImportLog   = "data_import_log"
	TableReport      = "data_profiling_report"
	TableQuality     = "data_quality_metric"
	TableGenLog      = "report_generation_log"
	TableModel       = "forecast_model"
	TableForecast    = "energy_forecast"
	TablePerformance = "model_performance_metric"
)

// Natural keys used for ignore-on-conflict inserts.
var (
	LoadKey        = []string{"country_code", "utc_timestamp"}
	GenerationKey  = []string{"country_code", "utc_timestamp", "generation_type"}
	PriceKey       = []string{"country_code", "utc_timestamp"}
	WeatherKey     = []string{"country_code", "location", "timestamp"}
	PerformanceKey = []string{"model_id", "evaluation_date"}
)

func id() storage.ColumnSpec { return storage.ColumnSpec{Name: "id", Type: storage.TypeID} }

func text(name string, size int) storage.ColumnSpec {
	return storage.ColumnSpec{Name: name, Type: storage.TypeText, Size: size}
}

func optText(name string, size int) storage.ColumnSpec {
	return storage.ColumnSpec{Name: name, Type: storage.TypeText, Size: size, Nullable: true}
}

func ts(name string) storage.ColumnSpec {
	return storage.ColumnSpec{Name: name, Type: storage.TypeTime}
}

func optTS(name string) storage.ColumnSpec {
	return storage.ColumnSpec{Name: name, Type: storage.TypeTime, Nullable: true}
}

func num(name string) storage.ColumnSpec {
	return storage.ColumnSpec{Name: name, Type: storage.TypeFloat}
}

func optNum(name string) storage.ColumnSpec {
	return storage.ColumnSpec{Name: name, Type: storage.TypeFloat, Nullable: true}
}

func integer(name string) storage.ColumnSpec {
	return storage.ColumnSpec{Name: name, Type: storage.TypeInt}
}

func optInt(name string) storage.ColumnSpec {
	return storage.ColumnSpec{Name: name, Type: storage.TypeInt, Nullable: true}
}

func flag(name string) storage.ColumnSpec {
	return storage.ColumnSpec{Name: name, Type: storage.TypeBool}
}

// Tables returns every table the application owns.
func Tables() []storage.TableSpec {
	return []storage.TableSpec{
		{
			Name: TableLoad,
			Columns: []storage.ColumnSpec{
				id(), ts("utc_timestamp"), ts("cet_cest_timestamp"), text("country_code", 10),
				optNum("actual_load_mw"), optNum("forecast_load_mw"), ts("created_at"),
			},
			Unique:  [][]string{LoadKey},
			Indexes: [][]string{{"utc_timestamp"}},
		},
		{
			Name: TableGeneration,
			Columns: []storage.ColumnSpec{
				id(), ts("utc_timestamp"), ts("cet_cest_timestamp"), text("country_code", 10),
				text("generation_type", 20), optNum("actual_generation_mw"), optNum("capacity_mw"),
				optNum("capacity_factor"), ts("created_at"),
			},
			Unique:  [][]string{GenerationKey},
			Indexes: [][]string{{"utc_timestamp"}},
		},
		{
			Name: TablePrice,
			Columns: []storage.ColumnSpec{
				id(), ts("utc_timestamp"), ts("cet_cest_timestamp"), text("country_code", 10),
				optNum("day_ahead_price"), text("currency", 3), optText("bidding_zone", 20), ts("created_at"),
			},
			Unique:  [][]string{PriceKey},
			Indexes: [][]string{{"utc_timestamp"}},
		},
		{
			Name: TableWeather,
			Columns: []storage.ColumnSpec{
				id(), ts("timestamp"), text("location", 100), text("country_code", 10),
				optNum("temperature_celsius"), optNum("humidity_percent"), optNum("wind_speed_ms"),
				optNum("cloud_cover_percent"), optNum("solar_irradiance_wm2"), optNum("pressure_hpa"),
				ts("created_at"),
			},
			Unique:  [][]string{WeatherKey},
			Indexes: [][]string{{"country_code", "timestamp"}},
		},
		{
			Name: TableImportLog,
			Columns: []storage.ColumnSpec{
				id(), text("source", 20), ts("import_timestamp"), ts("data_start_date"), ts("data_end_date"),
				integer("records_imported"), integer("records_failed"), optText("file_name", 255),
				flag("success"), optText("error_log", 0),
			},
		},
		{
			Name: TableReport,
			Columns: []storage.ColumnSpec{
				id(), text("report_url", 500), optText("countries", 0), ts("start_date"), ts("end_date"),
				integer("record_count"), text("report_type", 20), ts("generated_at"),
				optText("generated_by", 150), text("status", 20), optNum("file_size_mb"),
			},
			Indexes: [][]string{{"generated_at"}},
		},
		{
			Name: TableQuality,
			Columns: []storage.ColumnSpec{
				id(), integer("report_id"), text("metric_name", 100), text("metric_category", 50),
				num("metric_value"), optText("metric_unit", 20), text("table_name", 100),
				text("column_name", 100), optNum("threshold_value"), flag("is_within_threshold"),
				ts("created_at"),
			},
			Unique: [][]string{{"report_id", "metric_name", "table_name", "column_name"}},
		},
		{
			Name: TableGenLog,
			Columns: []storage.ColumnSpec{
				id(), optText("requested_by", 150), ts("requested_at"), optText("countries_requested", 0),
				ts("start_date_requested"), ts("end_date_requested"), text("report_type_requested", 20),
				optTS("started_at"), optTS("completed_at"), text("status", 20), optInt("report_id"),
				optText("error_message", 0), optNum("data_extraction_seconds"), optNum("merge_seconds"),
				optNum("report_generation_seconds"), optNum("upload_seconds"), optNum("total_seconds"),
			},
			Indexes: [][]string{{"requested_at"}},
		},
		{
			Name: TableModel,
			Columns: []storage.ColumnSpec{
				id(), text("name", 100), text("model_type", 20), text("country_code", 10),
				text("target_variable", 50), optText("parameters", 0), optText("feature_columns", 0),
				ts("training_start_date"), ts("training_end_date"), optInt("training_samples"),
				optNum("mae"), optNum("rmse"), optNum("mape"), optNum("r2_score"),
				text("version", 20), flag("is_active"), optText("model_file_path", 255), ts("created_at"),
			},
			Unique: [][]string{{"name"}},
		},
		{
			Name: TableForecast,
			Columns: []storage.ColumnSpec{
				id(), integer("model_id"), text("country_code", 10), ts("forecast_timestamp"),
				ts("target_timestamp"), num("predicted_value"), optNum("confidence_lower"),
				optNum("confidence_upper"), optNum("actual_value"), integer("horizon_hours"),
				ts("created_at"),
			},
			Unique:  [][]string{{"model_id", "target_timestamp"}},
			Indexes: [][]string{{"country_code", "target_timestamp"}, {"forecast_timestamp"}},
		},
		{
			Name: TablePerformance,
			Columns: []storage.ColumnSpec{
				id(), integer("model_id"), ts("evaluation_date"), integer("evaluation_period_days"),
				num("mae"), num("rmse"), num("mape"), integer("forecast_count"), ts("created_at"),
			},
			Unique: [][]string{PerformanceKey},
		},
	}
}
