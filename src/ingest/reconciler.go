// backend/src/ingest/reconciler.go

// Package ingest unifies the heterogeneous data.gov.sg CSV exports into the
// canonical resale schema. Each source is standardized and typed on its own,
// then all sources are concatenated and filtered for physical validity.
package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/username/hdbfolio/backend/src/lease"
	"github.com/username/hdbfolio/backend/src/logger"
	"github.com/username/hdbfolio/backend/src/models"
)

// ErrNoUsableSources is returned when every source failed to download or
// parse. The caller skips the combined-output step and carries on.
var ErrNoUsableSources = errors.New("no source produced usable data")

// SourceOpener acquires the raw CSV for a source descriptor. The downloader
// implements it with local-file reuse; tests implement it in memory.
type SourceOpener interface {
	Open(ctx context.Context, src models.SourceDescriptor) (io.ReadCloser, error)
}

// ResaleReconciler produces one canonical combined dataset from the resale
// source list. Sources are processed sequentially in list order.
type ResaleReconciler struct {
	opener  SourceOpener
	sources []models.SourceDescriptor
}

func NewResaleReconciler(opener SourceOpener, sources []models.SourceDescriptor) *ResaleReconciler {
	return &ResaleReconciler{opener: opener, sources: sources}
}

// Run acquires, standardizes and unifies every source, then applies the
// global validity filters. A failing source is skipped with a diagnostic;
// only the all-sources-failed case surfaces as ErrNoUsableSources.
func (r *ResaleReconciler) Run(ctx context.Context) ([]models.ResaleRecord, error) {
	var combined []models.ResaleRecord
	usable := 0

	for _, src := range r.sources {
		records, err := r.processSource(ctx, src)
		if err != nil {
			logger.L.Warn("Skipping resale source", "file", src.Filename, "resourceID", src.ResourceID, "error", err)
			continue
		}
		logger.L.Info("Resale source standardized", "file", src.Filename, "rows", len(records))
		combined = append(combined, records...)
		usable++
	}

	if usable == 0 {
		return nil, ErrNoUsableSources
	}

	filtered := finalizeResale(combined)
	logger.L.Info("Combined resale dataset finalized", "sources", usable, "rowsIn", len(combined), "rowsOut", len(filtered))
	return filtered, nil
}

func (r *ResaleReconciler) processSource(ctx context.Context, src models.SourceDescriptor) ([]models.ResaleRecord, error) {
	rc, err := r.opener.Open(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("acquiring source: %w", err)
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

	return standardizeSource(src, header, rows), nil
}

// standardizeSource aligns one raw source to the canonical schema: headers
// are remapped, month and numeric columns are coerced (unparsable cells
// become missing markers, never errors), and remaining_lease_years is either
// parsed from the staged text column or derived from the transaction date and
// lease commencement year. Columns the source lacks stay as missing markers
// so every source shares the identical column set.
func standardizeSource(src models.SourceDescriptor, header []string, rows [][]string) []models.ResaleRecord {
	idx := columnIndex(header)
	cell := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	_, hasMonth := idx["month"]
	if !hasMonth {
		logger.L.Warn("Column 'month' not found in source, filling with missing markers", "file", src.Filename)
	}
	_, hasCommence := idx["lease_commence_date"]
	_, hasLeaseText := idx[stagingLeaseColumn]

	records := make([]models.ResaleRecord, 0, len(rows))
	for _, row := range rows {
		rec := models.ResaleRecord{
			Month:             models.ParseYearMonth(cell(row, "month")),
			Town:              cell(row, "town"),
			FlatType:          cell(row, "flat_type"),
			Block:             cell(row, "block"),
			StreetName:        cell(row, "street_name"),
			StoreyRange:       cell(row, "storey_range"),
			FloorAreaSQM:      models.ParseNullFloat(cell(row, "floor_area_sqm")),
			FlatModel:         cell(row, "flat_model"),
			LeaseCommenceDate: models.ParseNullFloat(cell(row, "lease_commence_date")),
			ResalePrice:       models.ParseNullFloat(cell(row, "resale_price")),
		}

		switch {
		case src.HasRemainingLeaseStr && hasLeaseText:
			if years, ok := lease.Parse(cell(row, stagingLeaseColumn)); ok {
				rec.RemainingLeaseYears = models.FloatFrom(years)
			}
		case hasMonth && hasCommence:
			// Derived from a fixed 99-year total term minus the flat's age at
			// sale. Only rows with both dates present receive a value.
			if rec.Month.Valid && rec.LeaseCommenceDate.Valid {
				ageAtSale := float64(rec.Month.Year()) + float64(rec.Month.Month()-1)/12.0 - rec.LeaseCommenceDate.Float64
				rec.RemainingLeaseYears = models.FloatFrom(99.0 - ageAtSale)
			}
		}

		records = append(records, rec)
	}
	return records
}

// finalizeResale applies the global validity filters to the concatenated
// dataset, in order: drop rows missing any critical field, keep strictly
// positive price and area, keep remaining lease inside [0, 99]. A missing
// remaining lease fails the inclusive-range test and is dropped here, not
// earlier.
func finalizeResale(records []models.ResaleRecord) []models.ResaleRecord {
	out := make([]models.ResaleRecord, 0, len(records))
	for _, r := range records {
		if !r.ResalePrice.Valid || !r.FloorAreaSQM.Valid || !r.Month.Valid || r.Town == "" || r.FlatType == "" {
			continue
		}
		if r.ResalePrice.Float64 <= 0 || r.FloorAreaSQM.Float64 <= 0 {
			continue
		}
		if !r.RemainingLeaseYears.Valid || r.RemainingLeaseYears.Float64 < 0 || r.RemainingLeaseYears.Float64 > 99 {
			continue
		}
		out = append(out, r)
	}
	return out
}
