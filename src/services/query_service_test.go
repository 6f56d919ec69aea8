// backend/src/services/query_service_test.go
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/username/hdbfolio/backend/src/llm"
)

func TestIsReadOnlyQuery(t *testing.T) {
	tests := []struct {
		sql  string
		want bool
	}{
		{"SELECT * FROM resale_prices", true},
		{"  select town from resale_prices  ", true},
		{"WITH t AS (SELECT 1) SELECT * FROM t", true},
		{"SELECT 1;", true},
		{"DELETE FROM resale_prices", false},
		{"UPDATE resale_prices SET town = 'X'", false},
		{"DROP TABLE resale_prices", false},
		{"INSERT INTO resale_prices VALUES (1)", false},
		{"SELECT 1; DELETE FROM resale_prices", false},
		{"PRAGMA table_info(resale_prices)", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isReadOnlyQuery(tt.sql), "sql: %q", tt.sql)
	}
}

func TestUnmarshalJSONObject(t *testing.T) {
	var out struct {
		SQL string `json:"sql"`
	}

	require.NoError(t, unmarshalJSONObject(`{"sql": "SELECT 1"}`, &out))
	assert.Equal(t, "SELECT 1", out.SQL)

	require.NoError(t, unmarshalJSONObject("Here is the query:\n```json\n{\"sql\": \"SELECT 2\"}\n```\nHope that helps!", &out))
	assert.Equal(t, "SELECT 2", out.SQL)

	assert.Error(t, unmarshalJSONObject("no json here", &out))
	assert.Error(t, unmarshalJSONObject("{broken", &out))
}

func newQueryTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "query_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE resale_prices (town TEXT, resale_price REAL)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO resale_prices VALUES ('ANG MO KIO', 400000), ('BEDOK', 450000)`)
	require.NoError(t, err)
	return db
}

// newLLMStub serves a text-only Messages API response with the given body and
// counts calls.
func newLLMStub(t *testing.T, text string, calls *int32) *llm.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		resp := llm.Response{Content: []llm.ContentBlock{llm.TextBlock(text)}, StopReason: "end_turn"}
		payload, err := json.Marshal(resp)
		require.NoError(t, err)
		w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return llm.NewClient(srv.URL, "test-key", 5*time.Second)
}

func TestQueryGeneratesExecutesAndCaches(t *testing.T) {
	var calls int32
	client := newLLMStub(t,
		`{"sql": "SELECT town, resale_price FROM resale_prices ORDER BY resale_price", "explanation": "Lists all transactions by price."}`,
		&calls)
	svc := NewQueryService(client, newQueryTestDB(t), "test-model", cache.New(time.Minute, time.Minute))

	result, err := svc.Query(context.Background(), "list transactions by price")
	require.NoError(t, err)
	require.Len(t, result.Data, 2)
	assert.Equal(t, "ANG MO KIO", result.Data[0]["town"])
	assert.Equal(t, "Lists all transactions by price.", result.Explanation)
	assert.Contains(t, result.SQL, "SELECT")

	// Second identical question is served from cache without another LLM call.
	again, err := svc.Query(context.Background(), "list transactions by price")
	require.NoError(t, err)
	assert.Equal(t, result, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestQueryRejectsUnsafeSQL(t *testing.T) {
	var calls int32
	client := newLLMStub(t, `{"sql": "DELETE FROM resale_prices", "explanation": "removes everything"}`, &calls)
	svc := NewQueryService(client, newQueryTestDB(t), "test-model", cache.New(time.Minute, time.Minute))

	_, err := svc.Query(context.Background(), "wipe the data")
	assert.ErrorIs(t, err, ErrUnsafeQuery)
}

func TestQueryGenerationFailure(t *testing.T) {
	var calls int32
	client := newLLMStub(t, "I could not come up with a query, sorry.", &calls)
	svc := NewQueryService(client, newQueryTestDB(t), "test-model", cache.New(time.Minute, time.Minute))

	_, err := svc.Query(context.Background(), "something unanswerable")
	assert.ErrorIs(t, err, ErrQueryGenerationFailed)
}

func TestQueryExecutionFailure(t *testing.T) {
	var calls int32
	client := newLLMStub(t, `{"sql": "SELECT nope FROM missing_table", "explanation": "bad"}`, &calls)
	svc := NewQueryService(client, newQueryTestDB(t), "test-model", cache.New(time.Minute, time.Minute))

	_, err := svc.Query(context.Background(), "query a missing table")
	assert.ErrorIs(t, err, ErrQueryExecutionFailed)
}

