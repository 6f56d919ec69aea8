// backend/src/services/predict_service_test.go
package services

import (
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/hdbfolio/backend/src/predictor"
)

func predictTestModel() *predictor.Model {
	return &predictor.Model{
		Intercept:               50000,
		CoefFloorAreaSQM:        3000,
		CoefRemainingLeaseYears: 1500,
		CoefStoreyMid:           2000,
		TownEffects:             map[string]float64{"BISHAN": 50000},
		FlatTypeEffects:         map[string]float64{},
		FlatModelEffects:        map[string]float64{},
	}
}

func TestPredictServiceScoresAndCaches(t *testing.T) {
	c := cache.New(time.Minute, time.Minute)
	svc := NewPredictService(predictTestModel(), c)

	lease := 63.0
	features := predictor.Features{
		Town:                "BISHAN",
		FlatType:            "4 ROOM",
		StoreyRange:         "07 TO 09",
		FloorAreaSQM:        92,
		FlatModel:           "Model A",
		LeaseCommenceDate:   1990,
		RemainingLeaseYears: &lease,
	}

	price, err := svc.Predict(features)
	require.NoError(t, err)
	// 50000 + 3000*92 + 1500*63 + 2000*8 + 50000
	assert.InDelta(t, 50000+276000+94500+16000+50000, price, 1e-9)

	assert.Equal(t, 1, c.ItemCount())
	again, err := svc.Predict(features)
	require.NoError(t, err)
	assert.Equal(t, price, again)
	assert.Equal(t, 1, c.ItemCount())
}

func TestPredictServiceWrapsModelErrors(t *testing.T) {
	svc := NewPredictService(predictTestModel(), cache.New(time.Minute, time.Minute))

	_, err := svc.Predict(predictor.Features{StoreyRange: "penthouse", FloorAreaSQM: 90})
	assert.ErrorIs(t, err, ErrPredictionFailed)
}
