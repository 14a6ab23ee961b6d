package export

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/nhle/card-statements/internal/model"
)

// SummaryFileName is the run summary written into the download folder.
const SummaryFileName = "download_summary.json"

// FileRow is one downloaded file in the per-run files CSV.
type FileRow struct {
	Filename          string `csv:"filename"`
	Path              string `csv:"file_path"`
	Bank              string `csv:"bank"`
	Subject           string `csv:"subject"`
	Sender            string `csv:"sender"`
	Date              string `csv:"date"`
	Size              int64  `csv:"size"`
	DownloadTimestamp string `csv:"download_timestamp"`
}

// FileRows converts downloaded files into CSV rows.
func FileRows(files []model.DownloadedFile) []FileRow {
	rows := make([]FileRow, len(files))
	for i, f := range files {
		rows[i] = FileRow{
			Filename:          f.Filename,
			Path:              f.Path,
			Bank:              string(f.Bank),
			Subject:           f.Subject,
			Sender:            f.Sender,
			Date:              f.Date,
			Size:              f.Size,
			DownloadTimestamp: f.DownloadTimestamp.UTC().Format(time.RFC3339),
		}
	}
	return rows
}

// WriteSummary writes summary as indented JSON to <dir>/download_summary.json.
// Under <dir>/summaries/ it also writes a timestamped copy and
// files_summary_{ts}.csv listing the downloaded files. It returns the
// primary path.
func WriteSummary(dir string, summary *model.RunSummary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling run summary: %w", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "summaries"), 0o755); err != nil {
		return "", fmt.Errorf("creating summary directory: %w", err)
	}

	path := filepath.Join(dir, SummaryFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	stamp := summary.DownloadTimestamp.Format("20060102_150405")
	archived := filepath.Join(dir, "summaries", "download_summary_"+stamp+".json")
	if err := os.WriteFile(archived, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", archived, err)
	}

	filesCSV := filepath.Join(dir, "summaries", "files_summary_"+stamp+".csv")
	if err := writeFilesCSV(filesCSV, summary.PDFFiles); err != nil {
		return "", err
	}

	return path, nil
}

func writeFilesCSV(path string, files []model.DownloadedFile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	rows := FileRows(files)
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("writing csv %s: %w", path, err)
	}

	return f.Close()
}

// ReadSummary loads a summary written by WriteSummary.
func ReadSummary(path string) (*model.RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var s model.RunSummary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, nil
}
