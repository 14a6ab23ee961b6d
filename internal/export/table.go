// Package export writes the run summary and tabular extracts of the
// statement fact table for downstream reporting tools.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"github.com/nhle/card-statements/internal/model"
)

const factSheet = "statements"

// Row is one fact table row in extract form.
type Row struct {
	ID            string `csv:"id"`
	Date          string `csv:"date"`
	Month         string `csv:"month"`
	Year          int    `csv:"year"`
	Bank          string `csv:"bank"`
	Product       string `csv:"product"`
	Amount        string `csv:"amount"`
	DueDate       string `csv:"due_date"`
	FileName      string `csv:"file_name"`
	ProcessedTime string `csv:"processed_time"`
}

var header = []string{
	"id", "date", "month", "year", "bank", "product",
	"amount", "due_date", "file_name", "processed_time",
}

// Rows converts records into extract rows.
func Rows(records []model.ExtractedRecord) []Row {
	rows := make([]Row, len(records))
	for i, r := range records {
		rows[i] = Row{
			ID:            r.ID,
			Date:          r.Date,
			Month:         r.Month,
			Year:          r.Year,
			Bank:          string(r.Bank),
			Product:       model.ProductCreditCard,
			Amount:        r.Amount.StringFixed(2),
			DueDate:       r.DueDate,
			FileName:      r.FileName,
			ProcessedTime: r.ProcessedTime.UTC().Format(time.RFC3339),
		}
	}
	return rows
}

// WriteCSV writes records to path as CSV with a header row.
func WriteCSV(path string, records []model.ExtractedRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	rows := Rows(records)
	if err := gocsv.MarshalFile(&rows, f); err != nil {
		return fmt.Errorf("writing csv %s: %w", path, err)
	}

	return f.Close()
}

// WriteXLSX writes records to path as a workbook with a "statements"
// sheet. Amounts are written as numbers so the BI tool can aggregate them.
func WriteXLSX(path string, records []model.ExtractedRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", factSheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	headerRow := make([]interface{}, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := f.SetSheetRow(factSheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, r := range Rows(records) {
		amount, _ := records[i].Amount.Float64()
		row := []interface{}{
			r.ID, r.Date, r.Month, r.Year, r.Bank, r.Product,
			amount, r.DueDate, r.FileName, r.ProcessedTime,
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("locating row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(factSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}

	return nil
}
