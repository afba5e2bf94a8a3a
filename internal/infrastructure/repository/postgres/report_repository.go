package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/jagawarga-anonymizer/internal/core/domain"
)

const defaultCallTimeout = 5 * time.Second

// ReportRepository stores sanitized reports. Identity and timestamps are assigned by the database.
type ReportRepository struct {
	db          *sql.DB
	callTimeout time.Duration
}

func NewReportRepository(db *sql.DB, callTimeout time.Duration) *ReportRepository {
	if callTimeout <= 0 {
		callTimeout = defaultCallTimeout
	}
	return &ReportRepository{db: db, callTimeout: callTimeout}
}

func OpenDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxIdleTime(20 * time.Second)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the reports table when it is missing. Deployments that
// manage migrations elsewhere turn this off.
func (r *ReportRepository) EnsureSchema(ctx context.Context) error {
	const query = `
CREATE TABLE IF NOT EXISTS reports (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	category TEXT NOT NULL,
	content TEXT NOT NULL,
	location TEXT,
	privacy_level TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'submitted',
	authority_department TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_reports_department_status ON reports(authority_department, status);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at DESC);
`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	return nil
}

func (r *ReportRepository) Insert(ctx context.Context, report domain.SanitizedReport) (*domain.PersistedReport, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	status := report.Status
	if status == "" {
		status = domain.StatusSubmitted
	}

	row := r.db.QueryRowContext(ctx, `
INSERT INTO reports (category, content, location, privacy_level, status, authority_department)
VALUES ($1,$2,$3,$4,$5,$6)
RETURNING id, category, status, created_at
`,
		report.Category, report.Content, nullString(report.Location), string(report.PrivacyLevel),
		string(status), report.AuthorityDepartment,
	)

	var out domain.PersistedReport
	var storedStatus string
	if err := row.Scan(&out.ID, &out.Category, &storedStatus, &out.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	out.Status = domain.ReportStatus(storedStatus)
	return &out, nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*domain.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	row := r.db.QueryRowContext(ctx, `
SELECT id, category, content, location, privacy_level, status, authority_department, created_at, updated_at
FROM reports
WHERE id = $1
`, id)

	var report domain.Report
	var location sql.NullString
	var privacy, status string
	err := row.Scan(
		&report.ID, &report.Category, &report.Content, &location, &privacy, &status,
		&report.AuthorityDepartment, &report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrReportNotFound, "get report", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	report.Location = location.String
	report.PrivacyLevel = domain.PrivacyLevel(privacy)
	report.Status = domain.ReportStatus(status)
	if !report.Status.Valid() {
		return nil, fmt.Errorf("scan report %s: unknown status %q", id, status)
	}
	return &report, nil
}

// Check pings the pool for the health endpoint.
func (r *ReportRepository) Check(ctx context.Context) error {
	if r == nil || r.db == nil {
		return errors.New("database handle is not initialized")
	}
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
