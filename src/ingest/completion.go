// backend/src/ingest/completion.go
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/username/hdbfolio/backend/src/logger"
	"github.com/username/hdbfolio/backend/src/models"
)

// CompletionReconciler cleans the single-source completion-status dataset.
// No lease parsing is involved; it standardizes headers, coerces the numeric
// columns and drops rows missing the critical fields.
type CompletionReconciler struct {
	opener SourceOpener
	source models.SourceDescriptor
}

func NewCompletionReconciler(opener SourceOpener, source models.SourceDescriptor) *CompletionReconciler {
	return &CompletionReconciler{opener: opener, source: source}
}

func (c *CompletionReconciler) Run(ctx context.Context) ([]models.CompletionRecord, error) {
	rc, err := c.opener.Open(ctx, c.source)
	if err != nil {
		return nil, fmt.Errorf("acquiring completion source: %w", err)
	}
	defer rc.Close()

	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read all CSV records: %w", err)
	}

	idx := columnIndex(header)
	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	records := make([]models.CompletionRecord, 0, len(rows))
	for _, row := range rows {
		rec := models.CompletionRecord{
			FinancialYear: models.ParseNullFloat(cell(row, "financial_year")),
			TownOrEstate:  cell(row, "town_or_estate"),
			Status:        cell(row, "status"),
			NoOfUnits:     models.ParseNullFloat(cell(row, "no_of_units")),
		}
		// A missing unit count means zero units, an explicit value rather
		// than a dropped row.
		if !rec.NoOfUnits.Valid {
			rec.NoOfUnits = models.FloatFrom(0)
		}
		if !rec.FinancialYear.Valid || rec.TownOrEstate == "" || rec.Status == "" {
			continue
		}
		records = append(records, rec)
	}

	logger.L.Info("Completion-status dataset cleaned", "file", c.source.Filename, "rowsIn", len(rows), "rowsOut", len(records))
	return records, nil
}
