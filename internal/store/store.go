package store

import (
	"context"
	"time"

	"github.com/nhle/card-statements/internal/model"
)

// StatementFilter controls filtering and ordering for fact table queries.
type StatementFilter struct {
	Bank     *model.Bank
	Year     *int
	RunID    *string
	SortDesc bool
	Limit    int
	Offset   int
}

// Run is one recorded invocation.
type Run struct {
	ID               string     `db:"id"`
	StartedAt        time.Time  `db:"started_at"`
	FinishedAt       *time.Time `db:"finished_at"`
	DaysSearched     int        `db:"days_searched"`
	EmailsFound      int        `db:"emails_found"`
	PDFsDownloaded   int        `db:"pdfs_downloaded"`
	RecordsExtracted int        `db:"records_extracted"`
	RecordsRejected  int        `db:"records_rejected"`
	ParseFailures    int        `db:"parse_failures"`
	FetchFailures    int        `db:"fetch_failures"`
}

// Store defines the persistence interface for runs, downloads and the
// statement fact table. Rows are only ever appended.
type Store interface {
	// === Runs ===

	CreateRun(ctx context.Context, summary *model.RunSummary) error
	FinishRun(ctx context.Context, summary *model.RunSummary) error
	GetRuns(ctx context.Context, limit int) ([]Run, error)

	// === Downloads ===

	RecordDownloads(ctx context.Context, runID string, files []model.DownloadedFile) error

	// === Fact table ===

	InsertStatements(ctx context.Context, records []model.ExtractedRecord) error
	GetStatements(ctx context.Context, filter StatementFilter) ([]model.ExtractedRecord, error)

	Close() error
}
