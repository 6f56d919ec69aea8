// backend/src/services/query_service.go
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/hdbfolio/backend/src/llm"
	"github.com/username/hdbfolio/backend/src/logger"
)

const (
	ckQueryResult = "query_result_%s"

	DefaultCacheExpiration = 15 * time.Minute
	CacheCleanupInterval   = 30 * time.Minute

	sqlGenMaxTokens = 1000
)

// tablesSchema is the fixed schema description handed to the model for SQL
// generation.
const tablesSchema = `
Table: resale_prices
- id (INTEGER, primary key)
- month (TEXT, "YYYY-MM"): Month of resale transaction
- town (TEXT): Town/region of the flat (e.g., ANG MO KIO, BEDOK)
- flat_type (TEXT): Type of flat (e.g., 3 ROOM, 4 ROOM)
- block (TEXT): Block number
- street_name (TEXT): Street name
- storey_range (TEXT): Range of floors (e.g., 01 TO 03, 10 TO 12)
- floor_area_sqm (REAL): Floor area in square meters
- flat_model (TEXT): Model of the flat (e.g., IMPROVED, NEW GENERATION)
- lease_commence_date (INTEGER): Year the lease commenced
- resale_price (REAL): Price of the flat in Singapore dollars
- remaining_lease_years (REAL): Years of lease remaining

Table: completion_status
- id (INTEGER, primary key)
- financial_year (INTEGER): Financial year of completion
- town_or_estate (TEXT): Town or estate name
- status (TEXT): Status of completion
- no_of_units (INTEGER): Number of units completed
`

type queryServiceImpl struct {
	llmClient  *llm.Client
	db         *sql.DB
	model      string
	queryCache *cache.Cache
}

func NewQueryService(llmClient *llm.Client, db *sql.DB, model string, queryCache *cache.Cache) QueryService {
	return &queryServiceImpl{
		llmClient:  llmClient,
		db:         db,
		model:      model,
		queryCache: queryCache,
	}
}

func (s *queryServiceImpl) Query(ctx context.Context, question string) (*QueryResult, error) {
	cacheKey := fmt.Sprintf(ckQueryResult, question)
	if cached, found := s.queryCache.Get(cacheKey); found {
		logger.L.Debug("Cache hit for query", "question", question)
		return cached.(*QueryResult), nil
	}

	sqlQuery, explanation, err := s.generateSQL(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryGenerationFailed, err)
	}
	logger.L.Info("Generated SQL query", "question", question, "sql", sqlQuery)

	data, err := s.executeSQL(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	logger.L.Info("Query executed", "rows", len(data))

	result := &QueryResult{Data: data, SQL: sqlQuery, Explanation: explanation}
	s.queryCache.Set(cacheKey, result, DefaultCacheExpiration)
	return result, nil
}

func (s *queryServiceImpl) generateSQL(ctx context.Context, question string) (string, string, error) {
	prompt := fmt.Sprintf(`You are a SQL query generator. Your task is to convert a natural language question into a SQL query that can be run on a SQLite database.

Here is the database schema:
%s

Natural language question: %s

Please return ONLY a JSON object with the following fields:
1. "sql": The SQL query to run
2. "explanation": A brief explanation of what the query does in natural language

Make sure the SQL query is valid SQLite syntax and uses the correct table and column names as specified in the schema.
Use appropriate joins, aggregations, filters, and sorting to answer the question effectively.`, tablesSchema, question)

	resp, err := s.llmClient.CreateMessage(ctx, llm.Request{
		Model:       s.model,
		MaxTokens:   sqlGenMaxTokens,
		Temperature: 0.1,
		Messages:    []llm.Message{llm.UserMessage(prompt)},
	})
	if err != nil {
		return "", "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == llm.BlockText {
			text.WriteString(block.Text)
		}
	}

	var generated struct {
		SQL         string `json:"sql"`
		Explanation string `json:"explanation"`
	}
	if err := unmarshalJSONObject(text.String(), &generated); err != nil {
		return "", "", fmt.Errorf("model response did not contain a JSON object: %w", err)
	}
	if strings.TrimSpace(generated.SQL) == "" {
		return "", "", fmt.Errorf("model response did not contain a sql field")
	}
	return generated.SQL, generated.Explanation, nil
}

// executeSQL runs a read-only query and renders the rows as column-keyed maps.
func (s *queryServiceImpl) executeSQL(ctx context.Context, sqlQuery string) ([]map[string]interface{}, error) {
	if !isReadOnlyQuery(sqlQuery) {
		logger.L.Warn("Rejected generated SQL as non-read-only", "sql", sqlQuery)
		return nil, ErrUnsafeQuery
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}

	data := make([]map[string]interface{}, 0)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryExecutionFailed, err)
	}
	return data, nil
}

// isReadOnlyQuery permits only SELECT statements (optionally prefixed by a
// WITH clause). Generated SQL is never trusted with writes.
func isReadOnlyQuery(sqlQuery string) bool {
	q := strings.ToLower(strings.TrimSpace(sqlQuery))
	if !(strings.HasPrefix(q, "select") || strings.HasPrefix(q, "with")) {
		return false
	}
	// A semicolon may terminate the statement but not chain another.
	if i := strings.Index(q, ";"); i >= 0 && strings.TrimSpace(q[i+1:]) != "" {
		return false
	}
	return true
}

// unmarshalJSONObject extracts the outermost JSON object from model output
// that may carry prose or code fences around it.
func unmarshalJSONObject(text string, v interface{}) error {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return fmt.Errorf("no JSON object found")
	}
	return json.Unmarshal([]byte(text[start:end+1]), v)
}
