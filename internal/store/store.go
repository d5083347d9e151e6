package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/insightforge/market-intel/internal/model"
)

// ReportFilter specifies criteria for listing reports.
type ReportFilter struct {
	Status model.ReportStatus `json:"status,omitempty"`
	Limit  int                `json:"limit,omitempty"`
	Offset int                `json:"offset,omitempty"`
}

// Store defines the persistence interface for the report pipeline.
// Regenerating a report replaces its derived rows wholesale, so repeated
// runs for the same report identity are idempotent.
type Store interface {
	// Reports
	CreateReport(ctx context.Context, input model.ReportInput) (*model.Report, error)
	GetReport(ctx context.Context, reportID string) (*model.Report, error)
	ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error)
	UpdateReportStatus(ctx context.Context, reportID string, status model.ReportStatus, message string) error
	SaveDocument(ctx context.Context, reportID string, doc model.ReportDocument, metadata map[string]any) error

	// Derived rows (sources, insights, citations). insights[i] belongs to
	// sources[i]; the call replaces all prior derived rows for the report.
	ReplaceDerived(ctx context.Context, reportID string, sources []model.Source, insights []model.Insight, citations []model.Citation) error
	GetSources(ctx context.Context, reportID string) ([]model.Source, error)
	GetInsights(ctx context.Context, reportID string) ([]model.Insight, error)
	GetCitations(ctx context.Context, reportID string) ([]model.Citation, error)
	GetDocument(ctx context.Context, reportID string) (*model.ReportDocument, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open builds a Store for the configured driver. Anything other than
// "postgres" falls back to SQLite.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	if driver == "postgres" {
		return NewPostgres(ctx, dsn)
	}
	return NewSQLite(dsn)
}

// Pool is the subset of pgxpool.Pool the Postgres store uses. pgxmock
// pools satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}
