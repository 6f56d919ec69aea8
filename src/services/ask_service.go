// backend/src/services/ask_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/username/hdbfolio/backend/src/llm"
	"github.com/username/hdbfolio/backend/src/logger"
	"github.com/username/hdbfolio/backend/src/predictor"
)

// maxToolIterations bounds the conversation loop so a model that keeps
// calling tools cannot spin forever.
const maxToolIterations = 10

// Event types emitted during an ask conversation.
const (
	EventStart            = "start"
	EventAssistantMessage = "assistant_message"
	EventToolCall         = "tool_call"
	EventToolResponse     = "tool_response"
	EventEnd              = "end"
)

const (
	toolQueryDatabase = "query_database"
	toolPredictPrice  = "predict_price"
)

var askTools = []llm.Tool{
	{
		Name: toolQueryDatabase,
		Description: `Query the database with SQL to get information about HDB properties and prices.
This function has access to:
- resale price data from 1990 to 2025
- BTO completion status data split by town/estate/year

You can use this function to answer questions about HDB properties and prices, such as:
- Which HDB estates have the lowest number of BTO units completed in the past decade?
- What is the median price of HDB flats in different flat types?`,
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"natural_query": {
					"type": "string",
					"description": "Natural language query about HDB data"
				}
			},
			"required": ["natural_query"]
		}`),
	},
	{
		Name: toolPredictPrice,
		Description: `Predict the resale price for a given HDB property.
This function uses a pre-trained model to predict the resale price for a given HDB property.
The model was trained on resale price data from 1990 to 2025.
Impute missing values for the function parameters (ie features) using reasonable defaults.
For example, if the storey_range is not provided, use the median storey range for the given flat_type.`,
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"town": {"type": "string"},
				"flat_type": {"type": "string"},
				"storey_range": {"type": "string"},
				"floor_area_sqm": {"type": "number"},
				"flat_model": {"type": "string"},
				"lease_commence_date": {"type": "integer"},
				"remaining_lease_years": {"type": "number"}
			},
			"required": ["town", "flat_type", "storey_range", "floor_area_sqm", "flat_model", "lease_commence_date", "remaining_lease_years"]
		}`),
	},
}

type askServiceImpl struct {
	llmClient      *llm.Client
	queryService   QueryService
	predictService PredictService
	model          string
	maxTokens      int
}

func NewAskService(llmClient *llm.Client, queryService QueryService, predictService PredictService, model string, maxTokens int) AskService {
	return &askServiceImpl{
		llmClient:      llmClient,
		queryService:   queryService,
		predictService: predictService,
		model:          model,
		maxTokens:      maxTokens,
	}
}

// Ask drives the tool-calling loop: the model is given the question plus the
// tool definitions and called repeatedly; tool_use blocks are executed and
// their results fed back as tool_result blocks until the model finishes. Tool
// failures become tool_result payloads the model can react to; they never
// abort the conversation.
func (s *askServiceImpl) Ask(ctx context.Context, question string, emit func(AskEvent) error) error {
	messages := []llm.Message{
		llm.UserMessage("Use the tools provided to answer the user's question. " + question),
	}

	if err := emit(AskEvent{Type: EventStart}); err != nil {
		return err
	}

	for iteration := 1; iteration <= maxToolIterations; iteration++ {
		resp, err := s.llmClient.CreateMessage(ctx, llm.Request{
			Model:       s.model,
			MaxTokens:   s.maxTokens,
			Temperature: 0.1,
			Messages:    messages,
			Tools:       askTools,
		})
		if err != nil {
			return fmt.Errorf("LLM call failed on iteration %d: %w", iteration, err)
		}
		logger.L.Debug("LLM response received", "iteration", iteration, "blocks", len(resp.Content), "stopReason", resp.StopReason)

		hasToolCall := false
		var assistantBlocks []llm.ContentBlock
		var toolResults []llm.ContentBlock

		for _, block := range resp.Content {
			switch block.Type {
			case llm.BlockText:
				if block.Text == "" {
					continue
				}
				if err := emit(AskEvent{Type: EventAssistantMessage, Content: block.Text}); err != nil {
					return err
				}
				assistantBlocks = append(assistantBlocks, block)

			case llm.BlockToolUse:
				hasToolCall = true
				if err := emit(AskEvent{Type: EventToolCall, Name: block.Name, Input: block.Input}); err != nil {
					return err
				}

				toolResponse := s.runTool(ctx, block.Name, block.Input)
				if err := emit(AskEvent{Type: EventToolResponse, Name: block.Name, Response: toolResponse}); err != nil {
					return err
				}

				resultPayload, err := json.Marshal(toolResponse)
				if err != nil {
					resultPayload = []byte(`{"error": "failed to serialize tool response"}`)
				}
				assistantBlocks = append(assistantBlocks, block)
				toolResults = append(toolResults, llm.ToolResultBlock(block.ID, string(resultPayload)))
			}
		}

		if len(assistantBlocks) > 0 {
			messages = append(messages, llm.Message{Role: "assistant", Content: assistantBlocks})
		}
		if len(toolResults) > 0 {
			messages = append(messages, llm.Message{Role: "user", Content: toolResults})
		}

		if !hasToolCall {
			return emit(AskEvent{Type: EventEnd})
		}
	}

	return emit(AskEvent{Type: EventEnd, Message: "Max iterations reached"})
}

// runTool executes one tool call. Errors are folded into the response payload
// so the model sees what went wrong.
func (s *askServiceImpl) runTool(ctx context.Context, name string, input json.RawMessage) interface{} {
	switch name {
	case toolQueryDatabase:
		var args struct {
			NaturalQuery string `json:"natural_query"`
		}
		if err := json.Unmarshal(input, &args); err != nil {
			return toolError(fmt.Sprintf("invalid %s input: %v", name, err),
				"The tool input could not be parsed. Please check the arguments and try again.")
		}
		result, err := s.queryService.Query(ctx, args.NaturalQuery)
		if err != nil {
			logger.L.Error("Tool query_database failed", "query", args.NaturalQuery, "error", err)
			return toolError(fmt.Sprintf("Error executing database query: %v", err),
				"There was an issue executing your database query. Please check your question and try again.")
		}
		return result

	case toolPredictPrice:
		var features predictor.Features
		if err := json.Unmarshal(input, &features); err != nil {
			return toolError(fmt.Sprintf("invalid %s input: %v", name, err),
				"The tool input could not be parsed. Please check the arguments and try again.")
		}
		price, err := s.predictService.Predict(features)
		if err != nil {
			logger.L.Error("Tool predict_price failed", "town", features.Town, "error", err)
			return toolError(fmt.Sprintf("Error predicting property price: %v", err),
				"There was an issue predicting the property price. Please check the input parameters and try again.")
		}
		return map[string]interface{}{"predicted_price": price}

	default:
		return toolError(fmt.Sprintf("unknown tool: %s", name), "The requested tool does not exist.")
	}
}

func toolError(message, details string) map[string]interface{} {
	return map[string]interface{}{
		"error":   message,
		"success": false,
		"details": details,
	}
}
