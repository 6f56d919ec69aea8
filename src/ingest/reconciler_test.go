// backend/src/ingest/reconciler_test.go
package ingest

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/hdbfolio/backend/src/models"
)

// mapOpener serves in-memory CSV bodies keyed by resource ID.
type mapOpener map[string]string

func (m mapOpener) Open(_ context.Context, src models.SourceDescriptor) (io.ReadCloser, error) {
	body, ok := m[src.ResourceID]
	if !ok {
		return nil, errors.New("source unavailable")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestResaleReconcilerParsesProvidedLeaseText(t *testing.T) {
	opener := mapOpener{
		"with-lease": "month,town,flat_type,block,street_name,storey_range,floor_area_sqm,flat_model,lease_commence_date,remaining_lease,resale_price\n" +
			"2017-03,ANG MO KIO,3 ROOM,172,ANG MO KIO AVE 4,07 TO 09,60,New Generation,1986,61 years 04 months,262000\n" +
			"2019-06,BEDOK,4 ROOM,123,BEDOK NTH RD,10 TO 12,92,Model A,1980,60,410000\n",
	}
	sources := []models.SourceDescriptor{
		{ResourceID: "with-lease", Filename: "recent.csv", HasRemainingLeaseStr: true},
	}

	records, err := NewResaleReconciler(opener, sources).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, "2017-03", first.Month.String())
	assert.Equal(t, "ANG MO KIO", first.Town)
	assert.Equal(t, "3 ROOM", first.FlatType)
	require.True(t, first.RemainingLeaseYears.Valid)
	assert.InDelta(t, 61.0+4.0/12.0, first.RemainingLeaseYears.Float64, 1e-9)

	second := records[1]
	require.True(t, second.RemainingLeaseYears.Valid)
	assert.Equal(t, 60.0, second.RemainingLeaseYears.Float64)
}

func TestResaleReconcilerDerivesLeaseFromDates(t *testing.T) {
	opener := mapOpener{
		"legacy": "month,town,flat_type,block,street_name,storey_range,floor_area_sqm,flat_model,lease_commence_date,resale_price\n" +
			"1990-01,ANG MO KIO,3 ROOM,170,ANG MO KIO AVE 4,04 TO 06,61,NEW GENERATION,1980,42000\n" +
			"1990-07,BEDOK,4 ROOM,101,BEDOK NTH AVE 4,07 TO 09,92,MODEL A,1980,88000\n",
	}
	sources := []models.SourceDescriptor{
		{ResourceID: "legacy", Filename: "legacy.csv"},
	}

	records, err := NewResaleReconciler(opener, sources).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	// January 1990, commenced 1980: age 10.0, remaining 89.0.
	require.True(t, records[0].RemainingLeaseYears.Valid)
	assert.InDelta(t, 89.0, records[0].RemainingLeaseYears.Float64, 1e-9)

	// July 1990: age 10.5, remaining 88.5.
	require.True(t, records[1].RemainingLeaseYears.Valid)
	assert.InDelta(t, 88.5, records[1].RemainingLeaseYears.Float64, 1e-9)
}

func TestResaleReconcilerLeaseTextWinsOverDerivation(t *testing.T) {
	// When a source carries the lease text column, the provided value is used
	// even though both dates would allow derivation.
	opener := mapOpener{
		"both": "month,town,flat_type,block,street_name,storey_range,floor_area_sqm,flat_model,lease_commence_date,remaining_lease,resale_price\n" +
			"2017-01,YISHUN,5 ROOM,200,YISHUN AVE 1,01 TO 03,110,Improved,1990,70 years,500000\n",
	}
	sources := []models.SourceDescriptor{
		{ResourceID: "both", Filename: "both.csv", HasRemainingLeaseStr: true},
	}

	records, err := NewResaleReconciler(opener, sources).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 70.0, records[0].RemainingLeaseYears.Float64)
}

func TestResaleReconcilerUnparsableCellsBecomeMissingAndDrop(t *testing.T) {
	opener := mapOpener{
		"messy": "month,town,flat_type,block,street_name,storey_range,floor_area_sqm,flat_model,lease_commence_date,remaining_lease,resale_price\n" +
			// Unparsable lease text: remaining lease stays missing, row dropped.
			"2017-01,YISHUN,5 ROOM,200,YISHUN AVE 1,01 TO 03,110,Improved,1990,not a lease,500000\n" +
			// Unparsable price: row dropped.
			"2017-02,YISHUN,5 ROOM,200,YISHUN AVE 1,01 TO 03,110,Improved,1990,70 years,abc\n" +
			// Fully valid row survives.
			"2017-03,YISHUN,5 ROOM,200,YISHUN AVE 1,01 TO 03,110,Improved,1990,70 years,500000\n",
	}
	sources := []models.SourceDescriptor{
		{ResourceID: "messy", Filename: "messy.csv", HasRemainingLeaseStr: true},
	}

	records, err := NewResaleReconciler(opener, sources).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "2017-03", records[0].Month.String())
}

func TestResaleReconcilerValidityFilters(t *testing.T) {
	opener := mapOpener{
		"filters": "month,town,flat_type,block,street_name,storey_range,floor_area_sqm,flat_model,lease_commence_date,remaining_lease,resale_price\n" +
			"2017-01,YISHUN,5 ROOM,200,Y AVE,01 TO 03,110,Improved,1990,70 years,0\n" + // non-positive price
			"2017-01,YISHUN,5 ROOM,200,Y AVE,01 TO 03,0,Improved,1990,70 years,500000\n" + // non-positive area
			"2017-01,YISHUN,5 ROOM,200,Y AVE,01 TO 03,110,Improved,1990,100 years,500000\n" + // lease > 99
			"2017-01,,5 ROOM,200,Y AVE,01 TO 03,110,Improved,1990,70 years,500000\n" + // missing town
			"bad-month,YISHUN,5 ROOM,200,Y AVE,01 TO 03,110,Improved,1990,70 years,500000\n" + // invalid month
			"2017-01,YISHUN,5 ROOM,200,Y AVE,01 TO 03,110,Improved,1990,0 months,500000\n", // lease exactly 0 is kept
	}
	sources := []models.SourceDescriptor{
		{ResourceID: "filters", Filename: "filters.csv", HasRemainingLeaseStr: true},
	}

	records, err := NewResaleReconciler(opener, sources).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 0.0, records[0].RemainingLeaseYears.Float64)
}

func TestResaleReconcilerSkipsFailedSource(t *testing.T) {
	opener := mapOpener{
		"ok": "month,town,flat_type,block,street_name,storey_range,floor_area_sqm,flat_model,lease_commence_date,resale_price\n" +
			"1995-05,CLEMENTI,4 ROOM,301,CLEMENTI AVE 2,04 TO 06,84,MODEL A,1981,120000\n",
	}
	sources := []models.SourceDescriptor{
		{ResourceID: "gone", Filename: "gone.csv"},
		{ResourceID: "ok", Filename: "ok.csv"},
	}

	records, err := NewResaleReconciler(opener, sources).Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestResaleReconcilerAllSourcesFail(t *testing.T) {
	sources := []models.SourceDescriptor{
		{ResourceID: "gone-1", Filename: "a.csv"},
		{ResourceID: "gone-2", Filename: "b.csv"},
	}

	records, err := NewResaleReconciler(mapOpener{}, sources).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoUsableSources)
	assert.Nil(t, records)
}

func TestResaleReconcilerMissingColumnsStayMissing(t *testing.T) {
	// A source without lease_commence_date can never derive a remaining lease,
	// so every row is dropped by the range filter rather than erroring.
	opener := mapOpener{
		"sparse": "month,town,flat_type,resale_price,floor_area_sqm\n" +
			"2000-01,BISHAN,4 ROOM,250000,100\n",
	}
	sources := []models.SourceDescriptor{
		{ResourceID: "sparse", Filename: "sparse.csv"},
	}

	records, err := NewResaleReconciler(opener, sources).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
