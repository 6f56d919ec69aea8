// backend/src/services/predict_service.go
package services

import (
	"fmt"

	"github.com/patrickmn/go-cache"

	"github.com/username/hdbfolio/backend/src/logger"
	"github.com/username/hdbfolio/backend/src/predictor"
	"github.com/username/hdbfolio/backend/src/utils"
)

const ckPrediction = "prediction_%s_%s_%s_%s_%v_%d_%v"

type predictServiceImpl struct {
	model           *predictor.Model
	predictionCache *cache.Cache
}

func NewPredictService(model *predictor.Model, predictionCache *cache.Cache) PredictService {
	return &predictServiceImpl{model: model, predictionCache: predictionCache}
}

func (s *predictServiceImpl) Predict(features predictor.Features) (float64, error) {
	remaining := "none"
	if features.RemainingLeaseYears != nil {
		remaining = fmt.Sprintf("%.4f", *features.RemainingLeaseYears)
	}
	cacheKey := fmt.Sprintf(ckPrediction,
		features.Town, features.FlatType, features.StoreyRange, features.FlatModel,
		features.FloorAreaSQM, features.LeaseCommenceDate, remaining)

	if cached, found := s.predictionCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for prediction", "town", features.Town, "flatType", features.FlatType)
		return cached.(float64), nil
	}

	price, err := s.model.Predict(features)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPredictionFailed, err)
	}
	price = utils.RoundFloat(price, 2)
	logger.L.Info("Predicted resale price", "town", features.Town, "flatType", features.FlatType, "price", price)

	s.predictionCache.Set(cacheKey, price, DefaultCacheExpiration)
	return price, nil
}
