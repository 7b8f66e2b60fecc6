package store

import (
	"context"
	"fmt"

	"gridetl/internal/model"
	"gridetl/internal/storage"
)

var genLogColumns = []string{
	"id", "requested_by", "requested_at", "countries_requested", "start_date_requested", "end_date_requested",
	"report_type_requested", "started_at", "completed_at", "status", "report_id", "error_message",
	"data_extraction_seconds", "merge_seconds", "report_generation_seconds", "upload_seconds", "total_seconds",
}

// CreateGenerationLog inserts l and returns its id.
func (s *Store) CreateGenerationLog(ctx context.Context, l model.GenerationLog) (int64, error) {
	if l.RequestedAt.IsZero() {
		l.RequestedAt = s.now().UTC()
	}
	vals := genLogValues(l)
	var id int64
	err := storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		var err error
		id, err = tx.InsertReturningID(ctx, TableGenLog, "id", genLogColumns[1:], vals)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create generation log: %w", err)
	}
	return id, nil
}

// UpdateGenerationLog overwrites every mutable field of l.
func (s *Store) UpdateGenerationLog(ctx context.Context, l model.GenerationLog) error {
	return storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		return tx.Update(ctx, TableGenLog, "id", l.ID, genLogColumns[1:], genLogValues(l))
	})
}

func genLogValues(l model.GenerationLog) []any {
	return []any{
		optString(l.RequestedBy), l.RequestedAt, optString(model.JoinCountries(l.Countries)),
		l.StartDate, l.EndDate, l.ReportType, nullable(l.StartedAt), nullable(l.CompletedAt),
		string(l.Status), nullable(l.ReportID), optString(l.ErrorMessage),
		nullable(l.ExtractionSeconds), nullable(l.MergeSeconds), nullable(l.GenerationSeconds),
		nullable(l.UploadSeconds), nullable(l.TotalSeconds),
	}
}

// GenerationLog reads one log by id.
func (s *Store) GenerationLog(ctx context.Context, id int64) (model.GenerationLog, error) {
	r, err := storage.GetByID(ctx, s.repo, TableGenLog, "id", id, genLogColumns)
	if err != nil {
		return model.GenerationLog{}, err
	}
	return model.GenerationLog{
		ID: asInt(r[0]), RequestedBy: asString(r[1]), RequestedAt: asTime(r[2]),
		Countries: model.SplitCountries(asString(r[3])), StartDate: asTime(r[4]), EndDate: asTime(r[5]),
		ReportType: asString(r[6]), StartedAt: asOptTime(r[7]), CompletedAt: asOptTime(r[8]),
		Status: model.GenerationStatus(asString(r[9])), ReportID: asOptInt(r[10]), ErrorMessage: asString(r[11]),
		ExtractionSeconds: asFloat(r[12]), MergeSeconds: asFloat(r[13]), GenerationSeconds: asFloat(r[14]),
		UploadSeconds: asFloat(r[15]), TotalSeconds: asFloat(r[16]),
	}, nil
}

var reportColumns = []string{
	"id", "report_url", "countries", "start_date", "end_date", "record_count", "report_type",
	"generated_at", "generated_by", "status", "file_size_mb",
}

var qualityColumns = []string{
	"id", "report_id", "metric_name", "metric_category", "metric_value", "metric_unit",
	"table_name", "column_name", "threshold_value", "is_within_threshold", "created_at",
}

// SaveReport writes the report record and its quality metrics in one
// transaction and returns the report id.
func (s *Store) SaveReport(ctx context.Context, r model.ProfilingReport, metrics []model.QualityMetric) (int64, error) {
	now := s.now().UTC()
	if r.GeneratedAt.IsZero() {
		r.GeneratedAt = now
	}
	var id int64
	err := storage.WithTx(ctx, s.repo, func(tx storage.Tx) error {
		var err error
		id, err = tx.InsertReturningID(ctx, TableReport, "id", reportColumns[1:], []any{
			r.ReportURL, optString(model.JoinCountries(r.Countries)), r.StartDate, r.EndDate, r.RecordCount,
			r.ReportType, r.GeneratedAt, optString(r.GeneratedBy), r.Status, nullable(r.FileSizeMB),
		})
		if err != nil {
			return err
		}
		if len(metrics) == 0 {
			return nil
		}
		rows := make([][]any, len(metrics))
		for i, m := range metrics {
			rows[i] = []any{id, m.Name, m.Category, m.Value, optString(m.Unit), m.TableName, m.ColumnName,
				nullable(m.Threshold), m.WithinThreshold, now}
		}
		_, err = tx.InsertRows(ctx, TableQuality, qualityColumns[1:], rows,
			[]string{"report_id", "metric_name", "table_name", "column_name"})
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("save report: %w", err)
	}
	return id, nil
}

// Report reads one report record.
func (s *Store) Report(ctx context.Context, id int64) (model.ProfilingReport, error) {
	r, err := storage.GetByID(ctx, s.repo, TableReport, "id", id, reportColumns)
	if err != nil {
		return model.ProfilingReport{}, err
	}
	return model.ProfilingReport{
		ID: asInt(r[0]), ReportURL: asString(r[1]), Countries: model.SplitCountries(asString(r[2])),
		StartDate: asTime(r[3]), EndDate: asTime(r[4]), RecordCount: asInt(r[5]), ReportType: asString(r[6]),
		GeneratedAt: asTime(r[7]), GeneratedBy: asString(r[8]), Status: asString(r[9]), FileSizeMB: asFloat(r[10]),
	}, nil
}

// QualityMetrics lists the metrics of a report ordered by id.
func (s *Store) QualityMetrics(ctx context.Context, reportID int64) ([]model.QualityMetric, error) {
	res, err := s.repo.Select(ctx, storage.Query{
		Table: TableQuality, Columns: qualityColumns,
		Eq: []storage.Cond{{Column: "report_id", Value: reportID}}, OrderBy: "id",
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.QualityMetric, 0, len(res.Rows))
	for _, r := range res.Rows {
		m := model.QualityMetric{
			ID: asInt(r[0]), ReportID: asInt(r[1]), Name: asString(r[2]), Category: asString(r[3]),
			Unit: asString(r[5]), TableName: asString(r[6]), ColumnName: asString(r[7]),
			Threshold: asFloat(r[8]), WithinThreshold: asBool(r[9]), CreatedAt: asTime(r[10]),
		}
		if v := asFloat(r[4]); v != nil {
			m.Value = *v
		}
		out = append(out, m)
	}
	return out, nil
}
