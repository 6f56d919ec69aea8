// backend/src/ingest/writer.go
package ingest

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/username/hdbfolio/backend/src/models"
)

// WriteResaleCSV writes the combined dataset with exactly the canonical
// column list, UTF-8, header row first. The file is fully replaced per run.
func WriteResaleCSV(path string, records []models.ResaleRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating combined resale file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.ResaleColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec.CSVRow()); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteCompletionCSV writes the cleaned completion-status dataset.
func WriteCompletionCSV(path string, records []models.CompletionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating completion-status file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(models.CompletionColumns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(rec.CSVRow()); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
