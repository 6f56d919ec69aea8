// backend/src/handlers/predict_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/username/hdbfolio/backend/src/logger"
	"github.com/username/hdbfolio/backend/src/predictor"
	"github.com/username/hdbfolio/backend/src/services"
	"github.com/username/hdbfolio/backend/src/utils"
)

type PredictHandler struct {
	predictService services.PredictService
}

func NewPredictHandler(service services.PredictService) *PredictHandler {
	return &PredictHandler{predictService: service}
}

// HandlePredict scores a resale price for the posted property attributes.
func (h *PredictHandler) HandlePredict(w http.ResponseWriter, r *http.Request) {
	var features predictor.Features
	if err := json.NewDecoder(r.Body).Decode(&features); err != nil {
		logger.L.Warn("Failed to decode predict request body", "error", err)
		utils.SendJSONError(w, "Invalid JSON request body", http.StatusBadRequest)
		return
	}
	if features.Town == "" || features.FlatType == "" {
		utils.SendJSONError(w, "town and flat_type are required", http.StatusBadRequest)
		return
	}

	logger.L.Info("Predict endpoint called", "town", features.Town, "flatType", features.FlatType)

	price, err := h.predictService.Predict(features)
	if err != nil {
		if errors.Is(err, services.ErrPredictionFailed) {
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		} else {
			logger.L.Error("Internal error during prediction", "error", err)
			utils.SendJSONError(w, "An internal error occurred while predicting the price.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	response := map[string]interface{}{
		"predicted_price": price,
		"property":        features,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.L.Error("Error encoding JSON response for prediction", "error", err)
	}
}
