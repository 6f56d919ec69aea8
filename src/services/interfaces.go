package services

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/username/hdbfolio/backend/src/predictor"
)

var (
	ErrQueryGenerationFailed = errors.New("query generation failed")
	ErrQueryExecutionFailed  = errors.New("query execution failed")
	ErrUnsafeQuery           = errors.New("only read-only queries are allowed")
	ErrPredictionFailed      = errors.New("prediction failed")
)

// QueryResult is the answer to a natural-language database question.
type QueryResult struct {
	Data        []map[string]interface{} `json:"data"`
	SQL         string                   `json:"sql"`
	Explanation string                   `json:"explanation"`
}

// QueryService translates a natural-language question to SQL, executes it and
// explains it.
type QueryService interface {
	Query(ctx context.Context, question string) (*QueryResult, error)
}

// PredictService scores a resale price for a set of property attributes.
type PredictService interface {
	Predict(features predictor.Features) (float64, error)
}

// AskEvent is one step of the tool-calling conversation, streamed to the
// client as it happens.
type AskEvent struct {
	Type     string          `json:"type"`
	Content  string          `json:"content,omitempty"`
	Name     string          `json:"name,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
	Response interface{}     `json:"response,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// AskService runs the LLM tool-calling loop for an open-ended question,
// emitting events through the callback until the model produces its final
// answer.
type AskService interface {
	Ask(ctx context.Context, question string, emit func(AskEvent) error) error
}
