// backend/src/predictor/predictor.go

// Package predictor scores resale prices from property attributes using a
// pre-trained model artifact. Training happens offline; this package only
// loads the exported artifact and evaluates it.
package predictor

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/username/hdbfolio/backend/src/logger"
)

// Features are the property attributes the model scores.
// RemainingLeaseYears is optional; when nil it is imputed from the lease
// commencement year against a 99-year total term.
type Features struct {
	Town                string   `json:"town"`
	FlatType            string   `json:"flat_type"`
	StoreyRange         string   `json:"storey_range"`
	FloorAreaSQM        float64  `json:"floor_area_sqm"`
	FlatModel           string   `json:"flat_model"`
	LeaseCommenceDate   int      `json:"lease_commence_date"`
	RemainingLeaseYears *float64 `json:"remaining_lease_years,omitempty"`
}

// Model is the exported artifact: an intercept, per-feature coefficients and
// categorical effect tables keyed by upper-cased category values.
type Model struct {
	Intercept               float64            `json:"intercept"`
	CoefFloorAreaSQM        float64            `json:"coef_floor_area_sqm"`
	CoefRemainingLeaseYears float64            `json:"coef_remaining_lease_years"`
	CoefStoreyMid           float64            `json:"coef_storey_mid"`
	TownEffects             map[string]float64 `json:"town_effects"`
	FlatTypeEffects         map[string]float64 `json:"flat_type_effects"`
	FlatModelEffects        map[string]float64 `json:"flat_model_effects"`
}

// LoadModel loads the model artifact from the specified file path.
// This should be called once from main.go after config is loaded.
func LoadModel(filePath string) (*Model, error) {
	logger.L.Info("Loading resale price model artifact", "path", filePath)
	file, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading model artifact '%s': %w", filePath, err)
	}

	var m Model
	if err := json.Unmarshal(file, &m); err != nil {
		return nil, fmt.Errorf("error unmarshalling model artifact from '%s': %w", filePath, err)
	}
	logger.L.Info("Model artifact loaded successfully",
		"path", filePath,
		"towns", len(m.TownEffects),
		"flatTypes", len(m.FlatTypeEffects),
		"flatModels", len(m.FlatModelEffects))
	return &m, nil
}

// Predict scores the resale price for the given property attributes.
func (m *Model) Predict(f Features) (float64, error) {
	if f.FloorAreaSQM <= 0 {
		return 0, fmt.Errorf("floor_area_sqm must be positive, got %v", f.FloorAreaSQM)
	}

	storeyMid, err := storeyMidpoint(f.StoreyRange)
	if err != nil {
		return 0, err
	}

	remaining := 0.0
	if f.RemainingLeaseYears != nil {
		remaining = *f.RemainingLeaseYears
	} else {
		remaining = 99.0 - float64(time.Now().Year()-f.LeaseCommenceDate)
	}

	price := m.Intercept +
		m.CoefFloorAreaSQM*f.FloorAreaSQM +
		m.CoefRemainingLeaseYears*remaining +
		m.CoefStoreyMid*storeyMid +
		m.categoryEffect(m.TownEffects, f.Town, "town") +
		m.categoryEffect(m.FlatTypeEffects, f.FlatType, "flat_type") +
		m.categoryEffect(m.FlatModelEffects, f.FlatModel, "flat_model")

	if price < 0 {
		price = 0
	}
	return price, nil
}

func (m *Model) categoryEffect(effects map[string]float64, value, name string) float64 {
	key := strings.ToUpper(strings.TrimSpace(value))
	if effect, ok := effects[key]; ok {
		return effect
	}
	logger.L.Debug("Category not seen in training, using zero effect", "feature", name, "value", key)
	return 0
}

// storeyMidpoint converts a "NN TO NN" storey range to its midpoint.
func storeyMidpoint(storeyRange string) (float64, error) {
	parts := strings.Split(strings.ToUpper(storeyRange), " TO ")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid storey_range %q, expected \"NN TO NN\"", storeyRange)
	}
	low, errLow := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	high, errHigh := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLow != nil || errHigh != nil {
		return 0, fmt.Errorf("invalid storey_range %q, expected \"NN TO NN\"", storeyRange)
	}
	return (low + high) / 2, nil
}
