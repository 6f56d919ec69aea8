// backend/src/ingest/sources.go
package ingest

import "github.com/username/hdbfolio/backend/src/models"

// DefaultResaleSources lists the five data.gov.sg resale-price exports in
// processing order. Only the two newest exports carry a textual remaining
// lease column; the older three derive it from the transaction date and the
// lease commencement year.
var DefaultResaleSources = []models.SourceDescriptor{
	{ResourceID: "d_ebc5ab87086db484f88045b47411ebc5", Filename: "resale-flat-prices-1990-1999.csv", HasRemainingLeaseStr: false},
	{ResourceID: "d_43f493c6c50d54243cc1eab0df142d6a", Filename: "resale-flat-prices-2000-feb2012.csv", HasRemainingLeaseStr: false},
	{ResourceID: "d_2d5ff9ea31397b66239f245f57751537", Filename: "resale-flat-prices-mar2012-dec2014.csv", HasRemainingLeaseStr: false},
	{ResourceID: "d_ea9ed51da2787afaf8e51f827c304208", Filename: "resale-flat-prices-jan2015-dec2016.csv", HasRemainingLeaseStr: true},
	{ResourceID: "d_8b84c4ee58e3cfc0ece0d773c8ca6abc", Filename: "resale-flat-prices-jan2017-onwards.csv", HasRemainingLeaseStr: true},
}

// CompletionStatusSource is the single-source BTO completion dataset.
var CompletionStatusSource = models.SourceDescriptor{
	ResourceID: "d_9bbcd0c9b0351c7f41c9bfdcdc746668",
	Filename:   "completion-status-hdb-units.csv",
}
