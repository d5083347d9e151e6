package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/insightforge/market-intel/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS reports (
	id               TEXT PRIMARY KEY,
	input            TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'queued',
	progress_message TEXT NOT NULL DEFAULT '',
	markdown         TEXT,
	visuals          TEXT,
	metadata         TEXT,
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
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
	relevance_score REAL NOT NULL DEFAULT 0,
	sections        TEXT NOT NULL DEFAULT '[]',
	position        INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS insights (
	id        TEXT PRIMARY KEY,
	report_id TEXT NOT NULL REFERENCES reports(id),
	source_id TEXT NOT NULL,
	payload   TEXT NOT NULL,
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

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateReport(ctx context.Context, input model.ReportInput) (*model.Report, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal input")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, input, status, progress_message, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(inputJSON), string(model.ReportStatusQueued), "Queued", now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert report")
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

func (s *SQLiteStore) GetReport(ctx context.Context, reportID string) (*model.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, input, status, progress_message, markdown, metadata, created_at, updated_at FROM reports WHERE id = ?`,
		reportID,
	)
	return scanReport(row)
}

func (s *SQLiteStore) ListReports(ctx context.Context, filter ReportFilter) ([]model.Report, error) {
	query := `SELECT id, input, status, progress_message, markdown, metadata, created_at, updated_at FROM reports WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list reports")
	}
	defer rows.Close()

	var reports []model.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, *r)
	}
	return reports, eris.Wrap(rows.Err(), "sqlite: list reports iterate")
}

func (s *SQLiteStore) UpdateReportStatus(ctx context.Context, reportID string, status model.ReportStatus, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reports SET status = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		string(status), message, time.Now().UTC(), reportID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update report status %s", reportID)
	}
	return checkRowsAffected(res, "report", reportID)
}

func (s *SQLiteStore) SaveDocument(ctx context.Context, reportID string, doc model.ReportDocument, metadata map[string]any) error {
	visualsJSON, err := json.Marshal(doc.Visuals)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal visuals")
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal metadata")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE reports SET markdown = ?, visuals = ?, metadata = ?, updated_at = ? WHERE id = ?`,
		doc.Markdown, string(visualsJSON), string(metadataJSON), time.Now().UTC(), reportID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: save document %s", reportID)
	}
	return checkRowsAffected(res, "report", reportID)
}

func (s *SQLiteStore) ReplaceDerived(ctx context.Context, reportID string, sources []model.Source, insights []model.Insight, citations []model.Citation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	for _, table := range []string{"citations", "insights", "sources"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE report_id = ?`, reportID); err != nil {
			return eris.Wrapf(err, "sqlite: clear %s", table)
		}
	}

	for i, src := range sources {
		sectionsJSON, err := json.Marshal(src.Sections)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal sections")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sources (id, report_id, title, url, domain, published_at, raw_text, cleaned_text, relevance_score, sections, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			src.ID, reportID, src.Title, src.URL, src.Domain, src.PublishedAt,
			src.RawText, src.CleanedText, src.RelevanceScore, string(sectionsJSON), i,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert source %s", src.URL)
		}
	}

	for i, ins := range insights {
		payload, err := json.Marshal(ins)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal insight")
		}
		sourceID := ""
		if i < len(sources) {
			sourceID = sources[i].ID
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO insights (id, report_id, source_id, payload, position) VALUES (?, ?, ?, ?, ?)`,
			uuid.New().String(), reportID, sourceID, string(payload), i,
		)
		if err != nil {
			return eris.Wrap(err, "sqlite: insert insight")
		}
	}

	for _, cit := range citations {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO citations (report_id, source_id, idx, label, url) VALUES (?, ?, ?, ?, ?)`,
			reportID, cit.SourceID, cit.Index, cit.Label, cit.URL,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert citation %d", cit.Index)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit derived rows")
}

func (s *SQLiteStore) GetSources(ctx context.Context, reportID string) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, report_id, title, url, domain, published_at, raw_text, cleaned_text, relevance_score, sections
		 FROM sources WHERE report_id = ? ORDER BY position`,
		reportID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get sources")
	}
	defer rows.Close()

	var sources []model.Source
	for rows.Next() {
		var src model.Source
		var sectionsJSON string
		if err := rows.Scan(&src.ID, &src.ReportID, &src.Title, &src.URL, &src.Domain, &src.PublishedAt,
			&src.RawText, &src.CleanedText, &src.RelevanceScore, &sectionsJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan source")
		}
		if err := json.Unmarshal([]byte(sectionsJSON), &src.Sections); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal sections")
		}
		sources = append(sources, src)
	}
	return sources, eris.Wrap(rows.Err(), "sqlite: get sources iterate")
}

func (s *SQLiteStore) GetInsights(ctx context.Context, reportID string) ([]model.Insight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM insights WHERE report_id = ? ORDER BY position`,
		reportID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get insights")
	}
	defer rows.Close()

	var insights []model.Insight
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan insight")
		}
		var ins model.Insight
		if err := json.Unmarshal([]byte(payload), &ins); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal insight")
		}
		insights = append(insights, ins)
	}
	return insights, eris.Wrap(rows.Err(), "sqlite: get insights iterate")
}

func (s *SQLiteStore) GetCitations(ctx context.Context, reportID string) ([]model.Citation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT report_id, source_id, idx, label, url FROM citations WHERE report_id = ? ORDER BY idx`,
		reportID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get citations")
	}
	defer rows.Close()

	var citations []model.Citation
	for rows.Next() {
		var cit model.Citation
		if err := rows.Scan(&cit.ReportID, &cit.SourceID, &cit.Index, &cit.Label, &cit.URL); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan citation")
		}
		citations = append(citations, cit)
	}
	return citations, eris.Wrap(rows.Err(), "sqlite: get citations iterate")
}

func (s *SQLiteStore) GetDocument(ctx context.Context, reportID string) (*model.ReportDocument, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT markdown, visuals FROM reports WHERE id = ?`,
		reportID,
	)

	var markdown, visualsJSON sql.NullString
	err := row.Scan(&markdown, &visualsJSON)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("report not found: %s", reportID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get document")
	}
	if !markdown.Valid {
		return nil, eris.Errorf("report has no document: %s", reportID)
	}

	doc := &model.ReportDocument{Markdown: markdown.String}
	if visualsJSON.Valid {
		if err := json.Unmarshal([]byte(visualsJSON.String), &doc.Visuals); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal visuals")
		}
	}
	return doc, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanReport(row scannable) (*model.Report, error) {
	var r model.Report
	var inputJSON string
	var markdown, metadataJSON sql.NullString

	err := row.Scan(&r.ID, &inputJSON, &r.Status, &r.ProgressMessage, &markdown, &metadataJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("report not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan report")
	}

	if err := json.Unmarshal([]byte(inputJSON), &r.Input); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal input")
	}
	if markdown.Valid {
		r.Markdown = markdown.String
	}
	if metadataJSON.Valid {
		if err := json.Unmarshal([]byte(metadataJSON.String), &r.Metadata); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal metadata")
		}
	}
	return &r, nil
}
