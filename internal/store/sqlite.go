package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/nhle/card-statements/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// CreateRun records the start of a run.
func (s *SQLiteStore) CreateRun(ctx context.Context, summary *model.RunSummary) error {
	if summary.RunID == "" {
		summary.RunID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, days_searched)
		VALUES (?, ?, ?)`,
		summary.RunID, summary.DownloadTimestamp.UTC(), summary.DaysSearched,
	)
	if err != nil {
		return fmt.Errorf("creating run %s: %w", summary.RunID, err)
	}

	return nil
}

// FinishRun stores the final counts of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, summary *model.RunSummary) error {
	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET
			finished_at = ?,
			emails_found = ?,
			pdfs_downloaded = ?,
			records_extracted = ?,
			records_rejected = ?,
			parse_failures = ?,
			fetch_failures = ?
		WHERE id = ?`,
		finished.UTC(),
		summary.TotalEmailsFound,
		summary.TotalPDFsDownloaded,
		summary.RecordsExtracted,
		summary.RecordsRejected,
		summary.ParseFailures,
		summary.FetchFailures,
		summary.RunID,
	)
	if err != nil {
		return fmt.Errorf("finishing run %s: %w", summary.RunID, err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finishing run %s: run not found", summary.RunID)
	}

	return nil
}

// GetRuns returns the most recent runs, newest first.
func (s *SQLiteStore) GetRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT * FROM runs ORDER BY started_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, query); err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	return runs, nil
}

// RecordDownloads stores the metadata of every file saved during a run.
func (s *SQLiteStore) RecordDownloads(
	ctx context.Context,
	runID string,
	files []model.DownloadedFile,
) error {
	if len(files) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO downloads (
			id, run_id, file_name, path, bank,
			subject, sender, email_date, size, downloaded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PreparexContext(ctx, query)
	if err != nil {
		return fmt.Errorf("preparing download insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range files {
		_, err := stmt.ExecContext(ctx,
			uuid.New().String(), runID, f.Filename, f.Path, string(f.Bank),
			f.Subject, f.Sender, f.Date, f.Size, f.DownloadTimestamp.UTC(),
		)
		if err != nil {
			return fmt.Errorf("recording download %s: %w", f.Filename, err)
		}
	}

	return tx.Commit()
}

// InsertStatements appends records to the fact table, adding any missing
// dim_date rows in the same transaction.
func (s *SQLiteStore) InsertStatements(
	ctx context.Context,
	records []model.ExtractedRecord,
) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	dateStmt, err := tx.PreparexContext(ctx, `
		INSERT OR IGNORE INTO dim_date (
			date_key, date, day, month, month_name, quarter, year
		) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing dim_date insert: %w", err)
	}
	defer dateStmt.Close()

	factStmt, err := tx.PreparexContext(ctx, `
		INSERT INTO statements (
			id, run_id, statement_date, date_key, month, year,
			bank, product, amount, amount_minor,
			due_date, file_name, processed_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement insert: %w", err)
	}
	defer factStmt.Close()

	for _, r := range records {
		if r.ID == "" {
			r.ID = uuid.New().String()
		}

		d, err := time.Parse(model.DateLayout, r.Date)
		if err != nil {
			return fmt.Errorf("statement %s: parsing date %q: %w", r.ID, r.Date, err)
		}
		key := dateKey(d)

		_, err = dateStmt.ExecContext(ctx,
			key, r.Date, d.Day(), int(d.Month()), d.Month().String(),
			(int(d.Month())-1)/3+1, d.Year(),
		)
		if err != nil {
			return fmt.Errorf("adding dim_date %d: %w", key, err)
		}

		_, err = factStmt.ExecContext(ctx,
			r.ID, r.RunID, r.Date, key, r.Month, r.Year,
			string(r.Bank), model.ProductCreditCard,
			r.Amount.String(), minorUnits(r.Amount),
			r.DueDate, r.FileName, r.ProcessedTime.UTC(),
		)
		if err != nil {
			return fmt.Errorf("inserting statement %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// GetStatements retrieves fact rows matching the filter, ordered by
// statement date.
func (s *SQLiteStore) GetStatements(
	ctx context.Context,
	filter StatementFilter,
) ([]model.ExtractedRecord, error) {
	var conditions []string
	var args []interface{}

	if filter.Bank != nil {
		conditions = append(conditions, "bank = ?")
		args = append(args, string(*filter.Bank))
	}
	if filter.Year != nil {
		conditions = append(conditions, "year = ?")
		args = append(args, *filter.Year)
	}
	if filter.RunID != nil {
		conditions = append(conditions, "run_id = ?")
		args = append(args, *filter.RunID)
	}

	query := `SELECT id, run_id, statement_date, month, year, bank,
		amount, due_date, file_name, processed_time FROM statements`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY date_key %s, processed_time %s", direction, direction)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying statements: %w", err)
	}
	defer rows.Close()

	var records []model.ExtractedRecord
	for rows.Next() {
		r, err := scanStatement(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// scanStatement scans a fact row from a sqlx.Rows result set.
func scanStatement(rows *sqlx.Rows) (model.ExtractedRecord, error) {
	var (
		r      model.ExtractedRecord
		bank   string
		amount string
	)

	err := rows.Scan(
		&r.ID, &r.RunID, &r.Date, &r.Month, &r.Year, &bank,
		&amount, &r.DueDate, &r.FileName, &r.ProcessedTime,
	)
	if err != nil {
		return model.ExtractedRecord{}, fmt.Errorf("scanning statement row: %w", err)
	}

	r.Bank = model.Bank(bank)
	r.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return model.ExtractedRecord{}, fmt.Errorf("parsing stored amount %q: %w", amount, err)
	}

	return r, nil
}

// dateKey returns the yyyymmdd surrogate key of dim_date.
func dateKey(t time.Time) int {
	return t.Year()*10000 + int(t.Month())*100 + t.Day()
}

// minorUnits converts an amount to paise.
func minorUnits(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}
