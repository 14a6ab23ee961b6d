package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/card-statements/internal/model"
	"github.com/nhle/card-statements/internal/store"
	"github.com/nhle/card-statements/internal/testutil"
)

func newRun(t *testing.T, s store.Store) *model.RunSummary {
	t.Helper()
	summary := model.NewRunSummary("", 30, time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC))
	require.NoError(t, s.CreateRun(context.Background(), summary))
	require.NotEmpty(t, summary.RunID)
	return summary
}

func record(runID string, bank model.Bank, date, amount string) model.ExtractedRecord {
	d, _ := time.Parse(model.DateLayout, date)
	return model.ExtractedRecord{
		RunID:         runID,
		Date:          date,
		Month:         d.Month().String(),
		Year:          d.Year(),
		Bank:          bank,
		Amount:        decimal.RequireFromString(amount),
		DueDate:       d.AddDate(0, 0, 20).Format(model.DateLayout),
		FileName:      string(bank) + "_statement.pdf",
		ProcessedTime: time.Date(2024, 3, 20, 9, 5, 0, 0, time.UTC),
	}
}

func TestInsertAndGetStatements(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	run := newRun(t, s)

	records := []model.ExtractedRecord{
		record(run.RunID, model.BankIDFC, "15/03/2024", "8910.00"),
		record(run.RunID, model.BankHDFC, "01/02/2024", "12345.67"),
		record(run.RunID, model.BankHDFC, "01/03/2023", "50"),
	}
	require.NoError(t, s.InsertStatements(ctx, records))

	got, err := s.GetStatements(ctx, store.StatementFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "01/03/2023", got[0].Date)
	assert.Equal(t, "01/02/2024", got[1].Date)
	assert.Equal(t, "15/03/2024", got[2].Date)
	assert.True(t, got[1].Amount.Equal(decimal.RequireFromString("12345.67")))
	assert.Equal(t, model.BankHDFC, got[1].Bank)
	assert.Equal(t, "February", got[1].Month)
	assert.Equal(t, 2024, got[1].Year)
	assert.Equal(t, run.RunID, got[1].RunID)
	assert.NotEmpty(t, got[1].ID)
	assert.True(t, got[1].ProcessedTime.Equal(time.Date(2024, 3, 20, 9, 5, 0, 0, time.UTC)))

	hdfc := model.BankHDFC
	onlyHDFC, err := s.GetStatements(ctx, store.StatementFilter{Bank: &hdfc, SortDesc: true})
	require.NoError(t, err)
	require.Len(t, onlyHDFC, 2)
	assert.Equal(t, "01/02/2024", onlyHDFC[0].Date)

	year := 2023
	in2023, err := s.GetStatements(ctx, store.StatementFilter{Year: &year})
	require.NoError(t, err)
	assert.Len(t, in2023, 1)

	limited, err := s.GetStatements(ctx, store.StatementFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "01/02/2024", limited[0].Date)
}

func TestInsertStatements_RejectsBadDate(t *testing.T) {
	s := testutil.NewTestStore(t)
	run := newRun(t, s)

	r := record(run.RunID, model.BankHDFC, "15/03/2024", "100")
	r.Date = "2024-03-15"

	err := s.InsertStatements(context.Background(), []model.ExtractedRecord{r})
	assert.Error(t, err)

	got, err := s.GetStatements(context.Background(), store.StatementFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestInsertStatements_RequiresRun(t *testing.T) {
	s := testutil.NewTestStore(t)

	err := s.InsertStatements(context.Background(), []model.ExtractedRecord{
		record("missing-run", model.BankHDFC, "15/03/2024", "100"),
	})
	assert.Error(t, err)
}

func TestRuns(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	run := newRun(t, s)

	runs, err := s.GetRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Nil(t, runs[0].FinishedAt)
	assert.Equal(t, 30, runs[0].DaysSearched)

	run.TotalEmailsFound = 4
	run.TotalPDFsDownloaded = 3
	run.RecordsExtracted = 2
	run.RecordsRejected = 1
	run.ParseFailures = 1
	run.FinishedAt = time.Date(2024, 3, 20, 9, 10, 0, 0, time.UTC)
	require.NoError(t, s.FinishRun(ctx, run))

	runs, err = s.GetRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.NotNil(t, runs[0].FinishedAt)
	assert.Equal(t, 4, runs[0].EmailsFound)
	assert.Equal(t, 3, runs[0].PDFsDownloaded)
	assert.Equal(t, 2, runs[0].RecordsExtracted)
	assert.Equal(t, 1, runs[0].RecordsRejected)
	assert.Equal(t, 1, runs[0].ParseFailures)

	assert.Error(t, s.FinishRun(ctx, &model.RunSummary{RunID: "nope"}))
}

func TestRecordDownloads(t *testing.T) {
	ctx := context.Background()
	s := testutil.NewTestStore(t)
	run := newRun(t, s)

	files := []model.DownloadedFile{
		{Filename: "HDFC_a.pdf", Path: "/tmp/HDFC_a.pdf", Bank: model.BankHDFC, Size: 2048, DownloadTimestamp: time.Now()},
		{Filename: "IDFC_b.pdf", Path: "/tmp/IDFC_b.pdf", Bank: model.BankIDFC, Size: 4096, DownloadTimestamp: time.Now()},
	}
	require.NoError(t, s.RecordDownloads(ctx, run.RunID, files))
	require.NoError(t, s.RecordDownloads(ctx, run.RunID, nil))

	assert.Error(t, s.RecordDownloads(ctx, "missing-run", files))
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := t.TempDir() + "/statements.db"

	s1, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}
