// backend/src/models/resale.go
package models

import (
	"strconv"
	"time"
)

// ResaleColumns is the canonical column list every source is aligned to before
// concatenation. Order matters: the combined CSV is written in this order and
// downstream readers rely on it.
var ResaleColumns = []string{
	"month", "town", "flat_type", "block", "street_name", "storey_range",
	"floor_area_sqm", "flat_model", "lease_commence_date", "resale_price",
	"remaining_lease_years",
}

// ResaleRecord is the unified representation of one resale transaction.
// Each source reconciler populates as many fields as its file carries; fields
// the source does not have stay as missing markers (invalid NullFloat /
// invalid YearMonth / empty string) so that all sources share one schema.
type ResaleRecord struct {
	Month               YearMonth `json:"month"`
	Town                string    `json:"town"`
	FlatType            string    `json:"flat_type"`
	Block               string    `json:"block"`
	StreetName          string    `json:"street_name"`
	StoreyRange         string    `json:"storey_range"`
	FloorAreaSQM        NullFloat `json:"floor_area_sqm"`
	FlatModel           string    `json:"flat_model"`
	LeaseCommenceDate   NullFloat `json:"lease_commence_date"`
	ResalePrice         NullFloat `json:"resale_price"`
	RemainingLeaseYears NullFloat `json:"remaining_lease_years"`
}

// CSVRow renders the record in ResaleColumns order. Missing markers become
// empty cells, matching what the downstream importer treats as null.
func (r ResaleRecord) CSVRow() []string {
	return []string{
		r.Month.String(),
		r.Town,
		r.FlatType,
		r.Block,
		r.StreetName,
		r.StoreyRange,
		r.FloorAreaSQM.String(),
		r.FlatModel,
		r.LeaseCommenceDate.String(),
		r.ResalePrice.String(),
		r.RemainingLeaseYears.String(),
	}
}

// CompletionColumns is the canonical column list for the completion-status dataset.
var CompletionColumns = []string{"financial_year", "town_or_estate", "status", "no_of_units"}

// CompletionRecord is one row of the HDB completion-status dataset.
type CompletionRecord struct {
	FinancialYear NullFloat `json:"financial_year"`
	TownOrEstate  string    `json:"town_or_estate"`
	Status        string    `json:"status"`
	NoOfUnits     NullFloat `json:"no_of_units"`
}

func (c CompletionRecord) CSVRow() []string {
	return []string{
		c.FinancialYear.String(),
		c.TownOrEstate,
		c.Status,
		c.NoOfUnits.String(),
	}
}

// SourceDescriptor identifies one raw dataset on data.gov.sg and its capabilities.
type SourceDescriptor struct {
	ResourceID           string `json:"resource_id"`
	Filename             string `json:"filename"`
	HasRemainingLeaseStr bool   `json:"has_remaining_lease_str"`
}

// NullFloat is the missing-value marker for numeric cells. Distinct from zero:
// an unparsable or absent cell is Valid=false, a genuine "0" is Valid=true.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

func FloatFrom(f float64) NullFloat {
	return NullFloat{Float64: f, Valid: true}
}

// ParseNullFloat coerces a raw cell to a numeric value, yielding the missing
// marker instead of an error for anything unparsable.
func ParseNullFloat(s string) NullFloat {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return NullFloat{}
	}
	return NullFloat{Float64: f, Valid: true}
}

func (n NullFloat) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float64, 'f', -1, 64)
}

// YearMonth is a calendar month with an explicit missing marker.
type YearMonth struct {
	Time  time.Time
	Valid bool
}

const yearMonthLayout = "2006-01"

// ParseYearMonth parses "YYYY-MM" cells, yielding the missing marker for
// anything else.
func ParseYearMonth(s string) YearMonth {
	t, err := time.Parse(yearMonthLayout, s)
	if err != nil {
		return YearMonth{}
	}
	return YearMonth{Time: t, Valid: true}
}

func (m YearMonth) String() string {
	if !m.Valid {
		return ""
	}
	return m.Time.Format(yearMonthLayout)
}

// Year and Month are only meaningful when Valid.
func (m YearMonth) Year() int  { return m.Time.Year() }
func (m YearMonth) Month() int { return int(m.Time.Month()) }
