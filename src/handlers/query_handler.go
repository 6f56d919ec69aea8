// backend/src/handlers/query_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/username/hdbfolio/backend/src/logger"
	"github.com/username/hdbfolio/backend/src/services"
	"github.com/username/hdbfolio/backend/src/utils"
)

type QueryHandler struct {
	queryService services.QueryService
	askService   services.AskService
}

func NewQueryHandler(queryService services.QueryService, askService services.AskService) *QueryHandler {
	return &QueryHandler{queryService: queryService, askService: askService}
}

type questionRequest struct {
	Question string `json:"question"`
}

// HandleQuery translates a natural-language question to SQL, runs it and
// returns data, SQL and explanation.
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		utils.SendJSONError(w, "A non-empty 'question' field is required", http.StatusBadRequest)
		return
	}
	logger.L.Info("Query endpoint called", "question", req.Question)

	result, err := h.queryService.Query(r.Context(), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUnsafeQuery):
			utils.SendJSONError(w, "The generated query was rejected as unsafe. Try rephrasing the question.", http.StatusUnprocessableEntity)
		case errors.Is(err, services.ErrQueryGenerationFailed), errors.Is(err, services.ErrQueryExecutionFailed):
			logger.L.Error("Query pipeline failed", "question", req.Question, "error", err)
			utils.SendJSONError(w, err.Error(), http.StatusInternalServerError)
		default:
			logger.L.Error("Internal error in query endpoint", "question", req.Question, "error", err)
			utils.SendJSONError(w, "An internal error occurred while answering the question.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding JSON response for query result", "error", err)
	}
}

// HandleAsk runs the LLM tool-calling loop and streams each step to the
// client as server-sent events.
func (h *QueryHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
		utils.SendJSONError(w, "A non-empty 'question' field is required", http.StatusBadRequest)
		return
	}
	logger.L.Info("Ask endpoint called", "question", req.Question)

	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.SendJSONError(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emit := func(event services.AskEvent) error {
		payload, err := json.Marshal(event)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	if err := h.askService.Ask(r.Context(), req.Question, emit); err != nil {
		logger.L.Error("Ask loop failed", "question", req.Question, "error", err)
		// Headers are already out; report the failure as a final event.
		if payload, marshalErr := json.Marshal(map[string]string{"error": err.Error()}); marshalErr == nil {
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
