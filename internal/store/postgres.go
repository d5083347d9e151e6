package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/insightforge/market-intel/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS reports (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	input            JSONB NOT NULL,
	status           TEXT NOT NULL DEFAULT 'queued',
	progress_message TEXT NOT NULL DEFAULT '',
	markdown         TEXT,
	visuals          JSONB,
	metadata         JSONB,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sources (
	id              TEXT PRIMARY KEY,
	report_id       TEXT NOT NULL REFERENCES reports(id),
	title           TEXT NOT NULL,
	url             TEXT NOT NULL,
	domain          TEXT NOT NULL DEFAULT '',
	published_at    TEXT NOT NULL DEFAULT '',
	raw_text        TEXT NOT NULL DEFAULT '',
	cleaned_text    TEXT NOT NULL DEFAULT '',
	relevance_score DOUBLE PRECISION NOT NULL DEFAULT 0,
	sections        JSONB NOT NULL DEFAULT '[]',
	position        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS insights (
	id        TEXT PRIMARY KEY,
	report_id TEXT NOT NULL REFERENCES reports(id),
	source_id TEXT NOT NULL,
	payload   JSONB NOT NULL,
	position  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS citations (
	report_id TEXT NOT NULL REFERENCES reports(id),
	source_id TEXT NOT NULL,
	idx       INTEGER NOT NULL,
	label     TEXT NOT NULL,
	url       TEXT NOT NULL,
	PRIMARY KEY (report_id, idx)
);

CREATE INDEX IF NOT EXISTS idx_reports_status ON reports(status);
CREATE INDEX IF NOT EXISTS idx_sources_report_id ON sources(report_id);
CREATE INDEX IF NOT EXISTS idx_insights_report_id ON insights(report_id);
CREATE INDEX IF NOT EXISTS idx_citations_report_id ON citations(report_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) CreateReport(ctx context.Context, input model.ReportInput) (*model.Report, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal input")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO reports (id, input, status, progress_message, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, inputJSON, string(model.ReportStatusQueued), "Queued", now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert report")
	}

	return &model.Report{
		ID:              id,
		Input:           input,
		Status:          model.ReportStatusQueued,
		ProgressMessage: "Queued",
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (s *PostgresStore) GetReport(ctx context.Context, reportID string) (*model.Report, error) {
	var r model.Report
	var inputJSON []byte
	var markdown *string
	var metadataJSON *[]byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, input, status, progress_message, markdown, metadata, created_at, updated_at FROM reports WHERE id = $1`,
		reportID,
	).Scan(&r.ID, &inputJSON, &r.Status, &r.ProgressMessage, &markdown, &metadataJSON, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", reportID)
	}

	if err := json.Unmarshal(inputJSON, &r.Input); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal input")
	}
	if markdown != nil {
		r.Markdown = *markdown
	}
	if metadataJSON != nil {
		if err := json.Unmarshal(*metadataJSON, &r.Metadata); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal metadata")
		}
	}
	return &r, nil
}

func (s *PostgresStore) ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error) {
	query := `SELECT id, input, status, progress_message, markdown, metadata, created_at, updated_at FROM reports WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list reports")
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		var r model.Report
		var inputJSON []byte
		var markdown *string
		var metadataJSON *[]byte

		if err := rows.Scan(&r.ID, &inputJSON, &r.Status, &r.ProgressMessage, &markdown, &metadataJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan report")
		}
		if err := json.Unmarshal(inputJSON, &r.Input); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal input")
		}
		if markdown != nil {
			r.Markdown = *markdown
		}
		if metadataJSON != nil {
			if err := json.Unmarshal(*metadataJSON, &r.Metadata); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal metadata")
			}
		}
		reports = append(reports, r)
	}
	return reports, eris.Wrap(rows.Err(), "postgres: list reports iterate")
}

func (s *PostgresStore) UpdateReportStatus(ctx context.Context, reportID string, status model.ReportStatus, message string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE reports SET status = $1, progress_message = $2, updated_at = $3 WHERE id = $4`,
		string(status), message, time.Now().UTC(), reportID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update report status %s", reportID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("report not found: %s", reportID)
	}
	return nil
}

func (s *PostgresStore) SaveDocument(ctx context.Context, reportID string, doc model.ReportDocument, metadata map[string]any) error {
	visualsJSON, err := json.Marshal(doc.Visuals)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal visuals")
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal metadata")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE reports SET markdown = $1, visuals = $2, metadata = $3, updated_at = $4 WHERE id = $5`,
		doc.Markdown, visualsJSON, metadataJSON, time.Now().UTC(), reportID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: save document %s", reportID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("report not found: %s", reportID)
	}
	return nil
}

func (s *PostgresStore) ReplaceDerived(ctx context.Context, reportID string, sources []model.Source, insights []model.Insight, citations []model.Citation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"citations", "insights", "sources"} {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE report_id = $1`, reportID); err != nil {
			return eris.Wrapf(err, "postgres: clear %s", table)
		}
	}

	for i, src := range sources {
		sectionsJSON, err := json.Marshal(src.Sections)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal sections")
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO sources (id, report_id, title, url, domain, published_at, raw_text, cleaned_text, relevance_score, sections, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			src.ID, reportID, src.Title, src.URL, src.Domain, src.PublishedAt,
			src.RawText, src.CleanedText, src.RelevanceScore, sectionsJSON, i,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert source %s", src.URL)
		}
	}

	for i, ins := range insights {
		payload, err := json.Marshal(ins)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal insight")
		}
		sourceID := ""
		if i < len(sources) {
			sourceID = sources[i].ID
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO insights (id, report_id, source_id, payload, position) VALUES ($1, $2, $3, $4, $5)`,
			uuid.New().String(), reportID, sourceID, payload, i,
		)
		if err != nil {
			return eris.Wrap(err, "postgres: insert insight")
		}
	}

	for _, cit := range citations {
		_, err = tx.Exec(ctx,
			`INSERT INTO citations (report_id, source_id, idx, label, url) VALUES ($1, $2, $3, $4, $5)`,
			reportID, cit.SourceID, cit.Index, cit.Label, cit.URL,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert citation %d", cit.Index)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit derived rows")
}

func (s *PostgresStore) GetSources(ctx context.Context, reportID string) ([]model.Source, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, report_id, title, url, domain, published_at, raw_text, cleaned_text, relevance_score, sections
		 FROM sources WHERE report_id = $1 ORDER BY position`,
		reportID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get sources")
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		var src model.Source
		var sectionsJSON []byte
		if err := rows.Scan(&src.ID, &src.ReportID, &src.Title, &src.URL, &src.Domain, &src.PublishedAt,
			&src.RawText, &src.CleanedText, &src.RelevanceScore, &sectionsJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan source")
		}
		if err := json.Unmarshal(sectionsJSON, &src.Sections); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal sections")
		}
		sources = append(sources, src)
	}
	return sources, eris.Wrap(rows.Err(), "postgres: get sources iterate")
}

func (s *PostgresStore) GetInsights(ctx context.Context, reportID string) ([]model.Insight, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM insights WHERE report_id = $1 ORDER BY position`,
		reportID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get insights")
	}
	defer rows.Close()

	var insights []model.Insight
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan insight")
		}
		var ins model.Insight
		if err := json.Unmarshal(payload, &ins); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal insight")
		}
		insights = append(insights, ins)
	}
	return insights, eris.Wrap(rows.Err(), "postgres: get insights iterate")
}

func (s *PostgresStore) GetCitations(ctx context.Context, reportID string) ([]model.Citation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT report_id, source_id, idx, label, url FROM citations WHERE report_id = $1 ORDER BY idx`,
		reportID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get citations")
	}
	defer rows.Close()

	var citations []model.Citation
	for rows.Next() {
		var cit model.Citation
		if err := rows.Scan(&cit.ReportID, &cit.SourceID, &cit.Index, &cit.Label, &cit.URL); err != nil {
			return nil, eris.Wrap(err, "postgres: scan citation")
		}
		citations = append(citations, cit)
	}
	return citations, eris.Wrap(rows.Err(), "postgres: get citations iterate")
}

func (s *PostgresStore) GetDocument(ctx context.Context, reportID string) (*model.ReportDocument, error) {
	var markdown *string
	var visualsJSON *[]byte

	err := s.pool.QueryRow(ctx,
		`SELECT markdown, visuals FROM reports WHERE id = $1`,
		reportID,
	).Scan(&markdown, &visualsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("report not found: %s", reportID)
		}
		return nil, eris.Wrap(err, "postgres: get document")
	}
	if markdown == nil {
		return nil, eris.Errorf("report has no document: %s", reportID)
	}

	doc := &model.ReportDocument{Markdown: *markdown}
	if visualsJSON != nil {
		if err := json.Unmarshal(*visualsJSON, &doc.Visuals); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal visuals")
		}
	}
	return doc, nil
}
