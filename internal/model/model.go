// Package model defines the normalized records written by the importers and
// the report, quality and forecast entities.
//
// Nullable numeric fields are *float64; nil means absent.
package model

import (
	"strconv"
	"strings"
	"time"
)

// Load is one (country, hour) load observation.
type Load struct {
	CountryCode    string
	UTCTimestamp   time.Time
	CETTimestamp   time.Time
	ActualLoadMW   *float64
	ForecastLoadMW *float64
}

// Generation types.
const (
	Solar        = "solar"
	WindOnshore  = "wind_onshore"
	WindOffshore = "wind_offshore"
	WindTotal    = "wind_total"
)

// Generation is one (country, hour, type) renewable generation observation.
type Generation struct {
	CountryCode        string
	UTCTimestamp       time.Time
	CETTimestamp       time.Time
	GenerationType     string
	ActualGenerationMW *float64
	CapacityMW         *float64
	CapacityFactor     *float64
}

// CapacityFactor returns gen/cap when both are present and cap is strictly
// positive, nil otherwise.
func CapacityFactor(gen, capacity *float64) *float64 {
	if gen == nil || capacity == nil || *capacity <= 0 {
		return nil
	}
	v := *gen / *capacity
	return &v
}

// Price is one (bidding zone, hour) day-ahead price.
type Price struct {
	CountryCode   string
	UTCTimestamp  time.Time
	CETTimestamp  time.Time
	DayAheadPrice *float64
	Currency      string
	BiddingZone   string
}

// Weather is one (country, location, hour) observation.
type Weather struct {
	Timestamp          time.Time
	Location           string
	CountryCode        string
	TemperatureCelsius *float64
	HumidityPercent    *float64
	WindSpeedMS        *float64
	CloudCoverPercent  *float64
	SolarIrradianceWM2 *float64
	PressureHPA        *float64
}

// AverageLocation is the location label for country-wide weather series.
func AverageLocation(country string) string {
	return country + " Average"
}

// Import sources.
const (
	SourceOPSD    = "opsd"
	SourceWeather = "weather"
)

// ImportLog records one non-dry-run import.
type ImportLog struct {
	ID              int64
	Source          string
	ImportTimestamp time.Time
	DataStartDate   time.Time
	DataEndDate     time.Time
	RecordsImported int64
	RecordsFailed   int64
	FileName        string
	Success         bool
	ErrorLog        string
}

// Report statuses stored on ProfilingReport.
const (
	ReportGenerating = "generating"
	ReportCompleted  = "completed"
	ReportFailed     = "failed"
)

// ProfilingReport is the metadata of one generated report.
type ProfilingReport struct {
	ID          int64
	ReportURL   string
	Countries   []string
	StartDate   time.Time
	EndDate     time.Time
	RecordCount int64
	ReportType  string
	GeneratedAt time.Time
	GeneratedBy string
	Status      string
	FileSizeMB  *float64
}

// AnalysisPeriodDays is the whole number of days between start and end.
func (r ProfilingReport) AnalysisPeriodDays() int {
	return int(r.EndDate.Sub(r.StartDate).Hours() / 24)
}

// CountriesDisplay renders the country filter for humans.
func (r ProfilingReport) CountriesDisplay() string {
	return CountriesDisplay(r.Countries)
}

// CountriesDisplay renders a country filter; empty means all countries.
func CountriesDisplay(cs []string) string {
	if len(cs) == 0 {
		return "All Countries"
	}
	return strings.Join(cs, ", ")
}

// QualityMetric is one data quality measurement attached to a report.
type QualityMetric struct {
	ID              int64
	ReportID        int64
	Name            string
	Category        string
	Value           float64
	Unit            string
	TableName       string
	ColumnName      string
	Threshold       *float64
	WithinThreshold bool
	CreatedAt       time.Time
}

// GenerationStatus is the lifecycle state of a report request.
type GenerationStatus string

const (
	StatusQueued     GenerationStatus = "queued"
	StatusExtracting GenerationStatus = "extracting"
	StatusMerging    GenerationStatus = "merging"
	StatusGenerating GenerationStatus = "generating"
	StatusUploading  GenerationStatus = "uploading"
	StatusCompleted  GenerationStatus = "completed"
	StatusFailed     GenerationStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s GenerationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// GenerationLog tracks one report request.
type GenerationLog struct {
	ID                int64
	RequestedBy       string
	RequestedAt       time.Time
	Countries         []string
	StartDate         time.Time
	EndDate           time.Time
	ReportType        string
	StartedAt         *time.Time
	CompletedAt       *time.Time
	Status            GenerationStatus
	ReportID          *int64
	ErrorMessage      string
	ExtractionSeconds *float64
	MergeSeconds      *float64
	GenerationSeconds *float64
	UploadSeconds     *float64
	TotalSeconds      *float64
}

// DurationDisplay renders TotalSeconds for humans.
func (l GenerationLog) DurationDisplay() string {
	if l.TotalSeconds == nil || *l.TotalSeconds == 0 {
		return "Unknown"
	}
	if *l.TotalSeconds < 60 {
		return formatOne(*l.TotalSeconds) + " seconds"
	}
	return formatOne(*l.TotalSeconds/60) + " minutes"
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// JoinCountries and SplitCountries convert the stored comma form.
func JoinCountries(cs []string) string { return strings.Join(cs, ",") }

func SplitCountries(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func formatOne(v float64) string { return strconv.FormatFloat(v, 'f', 1, 64) }
