package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRunSummary_AddDownload(t *testing.T) {
	s := NewRunSummary("run-1", 30, time.Now())

	s.AddDownload(DownloadedFile{Filename: "HDFC_a.pdf", Bank: BankHDFC, Size: 2048})
	s.AddDownload(DownloadedFile{Filename: "HDFC_b.pdf", Bank: BankHDFC, Size: 4096})
	s.AddDownload(DownloadedFile{Filename: "IDFC_a.pdf", Bank: BankIDFC, Size: 1500})

	assert.Equal(t, 3, s.TotalPDFsDownloaded)
	assert.Len(t, s.PDFFiles, 3)
	assert.Equal(t, BankBreakdown{
		Count:     2,
		TotalSize: 6144,
		Files:     []string{"HDFC_a.pdf", "HDFC_b.pdf"},
	}, s.BankBreakdown[BankHDFC])
	assert.Equal(t, 1, s.BankBreakdown[BankIDFC].Count)
}

func TestRunSummary_AddSkip(t *testing.T) {
	s := NewRunSummary("run-1", 30, time.Now())
	s.AddSkip("parse", "x.pdf", "no library could open the document")

	assert.Equal(t, []Skip{{
		Stage:  "parse",
		Item:   "x.pdf",
		Reason: "no library could open the document",
	}}, s.Skipped)
}
