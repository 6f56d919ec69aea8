// backend/src/importer/importer.go

// Package importer loads the processed CSV outputs into sqlite. Each import
// fully replaces the previous contents of its table, so repeated pipeline
// runs stay deterministic.
package importer

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"os"

	"github.com/username/hdbfolio/backend/src/logger"
	"github.com/username/hdbfolio/backend/src/models"
)

const logChunkSize = 50000

// ImportResaleCSV reads the combined resale dataset and bulk-inserts it into
// resale_prices inside one transaction. Returns the number of rows imported.
func ImportResaleCSV(db *sql.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening combined resale file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("reading combined resale header: %w", err)
	}
	idx := indexHeader(header)

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM resale_prices"); err != nil {
		return 0, fmt.Errorf("clearing resale_prices: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO resale_prices (month, town, flat_type, block, street_name, storey_range, floor_area_sqm, flat_model, lease_commence_date, resale_price, remaining_lease_years) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	imported := 0
	for {
		row, err := reader.Read()
		if err != nil {
			break
		}
		cell := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		month := models.ParseYearMonth(cell("month"))
		town := cell("town")
		flatType := cell("flat_type")
		price := models.ParseNullFloat(cell("resale_price"))
		area := models.ParseNullFloat(cell("floor_area_sqm"))
		// The reconciler guarantees these invariants; rows from a stale or
		// hand-edited file that violate them are dropped rather than imported.
		if !month.Valid || town == "" || flatType == "" || !price.Valid || !area.Valid {
			continue
		}

		commence := models.ParseNullFloat(cell("lease_commence_date"))
		remaining := models.ParseNullFloat(cell("remaining_lease_years"))

		_, err = stmt.Exec(
			month.String(), town, flatType,
			cell("block"), cell("street_name"), cell("storey_range"),
			area.Float64, cell("flat_model"),
			nullableInt(commence), price.Float64, nullableFloat(remaining),
		)
		if err != nil {
			return 0, fmt.Errorf("inserting resale row: %w", err)
		}
		imported++
		if imported%logChunkSize == 0 {
			logger.L.Info("Resale import progress", "rows", imported)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing resale import: %w", err)
	}
	logger.L.Info("Resale prices import completed", "rows", imported)
	return imported, nil
}

// ImportCompletionCSV reads the cleaned completion-status dataset and
// bulk-inserts it into completion_status, replacing prior contents.
func ImportCompletionCSV(db *sql.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening completion-status file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("reading completion-status header: %w", err)
	}
	idx := indexHeader(header)

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM completion_status"); err != nil {
		return 0, fmt.Errorf("clearing completion_status: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO completion_status (financial_year, town_or_estate, status, no_of_units) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	imported := 0
	for {
		row, err := reader.Read()
		if err != nil {
			break
		}
		cell := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(row) {
				return ""
			}
			return row[i]
		}

		year := models.ParseNullFloat(cell("financial_year"))
		town := cell("town_or_estate")
		status := cell("status")
		if !year.Valid || town == "" || status == "" {
			continue
		}
		units := models.ParseNullFloat(cell("no_of_units"))
		if !units.Valid {
			units = models.FloatFrom(0)
		}

		if _, err := stmt.Exec(int64(year.Float64), town, status, int64(units.Float64)); err != nil {
			return 0, fmt.Errorf("inserting completion row: %w", err)
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing completion import: %w", err)
	}
	logger.L.Info("Completion status import completed", "rows", imported)
	return imported, nil
}

func indexHeader(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		if _, exists := idx[h]; !exists {
			idx[h] = i
		}
	}
	return idx
}

func nullableInt(n models.NullFloat) interface{} {
	if !n.Valid {
		return nil
	}
	return int64(n.Float64)
}

func nullableFloat(n models.NullFloat) interface{} {
	if !n.Valid {
		return nil
	}
	return n.Float64
}
