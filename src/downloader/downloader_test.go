// backend/src/downloader/downloader_test.go
package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/username/hdbfolio/backend/src/models"
)

const testCSV = "month,town\n2017-01,ANG MO KIO\n"

// newTestServer serves both the initiate-download endpoint and the CSV itself.
func newTestServer(t *testing.T, initiateStatus int, initiateBody string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/v1/public/api/datasets/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(initiateStatus)
		if initiateBody == "" {
			fmt.Fprintf(w, `{"code":0,"data":{"url":"%s/file.csv"}}`, srv.URL)
			return
		}
		io.WriteString(w, initiateBody)
	})
	mux.HandleFunc("/file.csv", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, testCSV)
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchDownloadsAndSaves(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, "")
	rawDir := t.TempDir()
	client := NewClient(srv.URL, rawDir, 5*time.Second, 100)

	src := models.SourceDescriptor{ResourceID: "d_test", Filename: "test.csv"}
	path, err := client.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(rawDir, "test.csv"), path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testCSV, string(content))
}

func TestFetchReusesLocalFile(t *testing.T) {
	rawDir := t.TempDir()
	existing := filepath.Join(rawDir, "test.csv")
	require.NoError(t, os.WriteFile(existing, []byte("local copy"), 0o644))

	// No server: any network attempt would fail, proving reuse.
	client := NewClient("http://127.0.0.1:0", rawDir, time.Second, 100)
	src := models.SourceDescriptor{ResourceID: "d_test", Filename: "test.csv"}

	path, err := client.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, existing, path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "local copy", string(content))
}

func TestFetchInitiateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusNotFound, `{"code":24,"errorMsg":"dataset not found"}`},
		{"api error code", http.StatusOK, `{"code":24,"errorMsg":"not downloadable"}`},
		{"missing url", http.StatusOK, `{"code":0,"data":{"message":"still processing"}}`},
		{"malformed json", http.StatusOK, `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, tt.body)
			client := NewClient(srv.URL, t.TempDir(), 5*time.Second, 100)

			src := models.SourceDescriptor{ResourceID: "d_test", Filename: "test.csv"}
			_, err := client.Fetch(context.Background(), src)
			assert.Error(t, err)
		})
	}
}

func TestOpenReturnsReadableFile(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, "")
	client := NewClient(srv.URL, t.TempDir(), 5*time.Second, 100)

	src := models.SourceDescriptor{ResourceID: "d_test", Filename: "test.csv"}
	rc, err := client.Open(context.Background(), src)
	require.NoError(t, err)
	defer rc.Close()

	content, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, testCSV, string(content))
}

func TestDecodeContent(t *testing.T) {
	assert.Equal(t, "plain utf-8", decodeContent([]byte("plain utf-8")))

	// 0xE9 is é in ISO-8859-1 and invalid as a standalone UTF-8 byte.
	assert.Equal(t, "café", decodeContent([]byte{'c', 'a', 'f', 0xE9}))
}
