package model

import "time"

// BankBreakdown aggregates the downloads for one bank.
type BankBreakdown struct {
	Count     int      `json:"count"`
	TotalSize int64    `json:"total_size"`
	Files     []string `json:"files"`
}

// Skip records one item that was excluded from a run and why.
type Skip struct {
	Stage  string `json:"stage"`
	Item   string `json:"item"`
	Reason string `json:"reason"`
}

// RunSummary aggregates the outcome of one invocation. It is written once,
// at the end of the run.
type RunSummary struct {
	RunID               string                 `json:"run_id"`
	TotalEmailsFound    int                    `json:"total_emails_found"`
	TotalPDFsDownloaded int                    `json:"total_pdfs_downloaded"`
	RecordsExtracted    int                    `json:"records_extracted"`
	RecordsRejected     int                    `json:"records_rejected"`
	ParseFailures       int                    `json:"parse_failures"`
	FetchFailures       int                    `json:"fetch_failures"`
	DownloadTimestamp   time.Time              `json:"download_timestamp"`
	FinishedAt          time.Time              `json:"finished_at"`
	DaysSearched        int                    `json:"days_searched"`
	PDFFiles            []DownloadedFile       `json:"pdf_files"`
	BankBreakdown       map[Bank]BankBreakdown `json:"bank_breakdown"`
	Skipped             []Skip                 `json:"skipped,omitempty"`

	// Records holds the accepted records; they live in the store, not in
	// the JSON summary.
	Records []ExtractedRecord `json:"-"`
}

// NewRunSummary returns an empty summary stamped with start.
func NewRunSummary(runID string, daysBack int, start time.Time) *RunSummary {
	return &RunSummary{
		RunID:             runID,
		DownloadTimestamp: start,
		DaysSearched:      daysBack,
		PDFFiles:          []DownloadedFile{},
		BankBreakdown:     map[Bank]BankBreakdown{},
	}
}

// AddDownload appends f to the file list and updates the bank breakdown.
func (s *RunSummary) AddDownload(f DownloadedFile) {
	s.PDFFiles = append(s.PDFFiles, f)
	s.TotalPDFsDownloaded++

	b := s.BankBreakdown[f.Bank]
	b.Count++
	b.TotalSize += f.Size
	b.Files = append(b.Files, f.Filename)
	s.BankBreakdown[f.Bank] = b
}

// AddSkip records an excluded item.
func (s *RunSummary) AddSkip(stage, item, reason string) {
	s.Skipped = append(s.Skipped, Skip{Stage: stage, Item: item, Reason: reason})
}
