package mysql

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"effort-dashboard/internal/domain"
)

// Source implements the time-log, company and category ports by reading the
// internal time-tracking MySQL database. All access is read-only.
type Source struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSource opens a MySQL connection using the provided DSN.
// Example DSN: user:pass@tcp(host:3306)/timetrack?parseTime=true
func NewSource(ctx context.Context, dsn string, log *slog.Logger) (*Source, error) {
	if dsn == "" {
		return nil, errors.New("mysql: DSN is required")
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	// Conservative pool defaults; can be adjusted via env later.
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	c, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(c); err != nil {
		db.Close()
		return nil, err
	}
	return &Source{db: db, log: log}, nil
}

// ListTimeLogs returns entries whose date falls in [from, to] inclusive.
// The legacy numeric category columns are read in probe order and flattened
// into CategoryAliases here, so nothing downstream touches raw row shapes.
func (s *Source) ListTimeLogs(ctx context.Context, from, to time.Time) ([]domain.TimeLogEntry, error) {
	const q = `
SELECT id, log_date, start_time, end_time, duration_hours,
       user_id, user_email, user_name,
       category, category_id, task_category_id, work_type_id, activity_id,
       company_id, reference_number
FROM time_logs
WHERE log_date BETWEEN ? AND ?
ORDER BY log_date, id;`

	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.TimeLogEntry
	for rows.Next() {
		var (
			e                 domain.TimeLogEntry
			start, end        sql.NullTime
			duration          sql.NullFloat64
			email, name       sql.NullString
			category, ref     sql.NullString
			catID, taskCatID  sql.NullInt64
			workTypeID, actID sql.NullInt64
			companyID         sql.NullInt64
		)
		if err := rows.Scan(
			&e.ID, &e.Date, &start, &end, &duration,
			&e.UserID, &email, &name,
			&category, &catID, &taskCatID, &workTypeID, &actID,
			&companyID, &ref,
		); err != nil {
			return nil, err
		}
		if start.Valid {
			e.Start = start.Time
		}
		if end.Valid {
			e.End = end.Time
		}
		e.StoredHours = duration.Float64
		e.UserEmail = email.String
		e.UserName = name.String
		e.Category = category.String
		e.RefNumber = ref.String
		if companyID.Valid {
			id := companyID.Int64
			e.CompanyID = &id
		}
		for _, alias := range []sql.NullInt64{catID, taskCatID, workTypeID, actID} {
			if alias.Valid && alias.Int64 > 0 {
				e.CategoryAliases = append(e.CategoryAliases, alias.Int64)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.log.Debug("mysql source listed time logs", slog.Int("count", len(out)))
	return out, nil
}

// ListCompanies returns the canonical company records.
func (s *Source) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM companies ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Company
	for rows.Next() {
		var c domain.Company
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCategories returns category definitions. Soft-deleted rows (deleted
// flag non-null and non-zero) are filtered in SQL.
func (s *Source) ListCategories(ctx context.Context) ([]domain.CategoryDefinition, error) {
	const q = `SELECT id, name, deleted FROM categories WHERE deleted IS NULL OR deleted = 0 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CategoryDefinition
	for rows.Next() {
		var (
			d       domain.CategoryDefinition
			deleted sql.NullInt64
		)
		if err := rows.Scan(&d.ID, &d.Name, &deleted); err != nil {
			return nil, err
		}
		d.Deleted = deleted.Valid && deleted.Int64 != 0
		out = append(out, d)
	}
	return out, rows.Err()
}

// Close closes the underlying DB. Not wired via interface to keep ports minimal.
func (s *Source) Close() error { return s.db.Close() }
