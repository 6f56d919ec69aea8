// backend/src/downloader/downloader.go

// Package downloader acquires the raw data.gov.sg CSV exports. Acquisition is
// best-effort and retry-free: a failure is reported to the caller, which skips
// the source. Already-materialized local files are reused, so re-running the
// pipeline is a no-op for acquisition.
package downloader

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"github.com/username/hdbfolio/backend/src/logger"
	"github.com/username/hdbfolio/backend/src/models"
)

const initiateDownloadPathTemplate = "/v1/public/api/datasets/%s/initiate-download"

// Client talks to the data.gov.sg initiate-download API. Outbound requests
// are throttled with a client-side limiter to stay polite to the API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	rawDir     string
}

func NewClient(baseURL, rawDir string, timeout time.Duration, requestsPerSec float64) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		baseURL:    strings.TrimRight(baseURL, "/"),
		rawDir:     rawDir,
	}
}

// initiateResponse is the envelope returned by the initiate-download API.
type initiateResponse struct {
	Code int `json:"code"`
	Data struct {
		URL     string `json:"url"`
		Message string `json:"message"`
	} `json:"data"`
	ErrorMsg string `json:"errorMsg"`
}

// Fetch ensures the raw CSV for src exists locally and returns its path.
// An existing local copy short-circuits the download.
func (c *Client) Fetch(ctx context.Context, src models.SourceDescriptor) (string, error) {
	path := filepath.Join(c.rawDir, src.Filename)
	if _, err := os.Stat(path); err == nil {
		logger.L.Info("Raw data file already exists, skipping download", "file", src.Filename)
		return path, nil
	}

	csvURL, err := c.initiateDownload(ctx, src)
	if err != nil {
		return "", err
	}

	content, err := c.downloadCSV(ctx, csvURL)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", src.Filename, err)
	}

	if err := os.MkdirAll(c.rawDir, 0o755); err != nil {
		return "", fmt.Errorf("creating raw data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("saving %s: %w", src.Filename, err)
	}

	logger.L.Info("Downloaded and saved raw data file", "file", src.Filename, "bytes", len(content))
	return path, nil
}

// Open implements ingest.SourceOpener.
func (c *Client) Open(ctx context.Context, src models.SourceDescriptor) (io.ReadCloser, error) {
	path, err := c.Fetch(ctx, src)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (c *Client) initiateDownload(ctx context.Context, src models.SourceDescriptor) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	initiateURL := c.baseURL + fmt.Sprintf(initiateDownloadPathTemplate, src.ResourceID)
	logger.L.Info("Initiating download", "file", src.Filename, "resourceID", src.ResourceID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, initiateURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("initiate-download request for %s: %w", src.Filename, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading initiate-download response for %s: %w", src.Filename, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("initiate-download for %s returned status %d: %s", src.Filename, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var initiate initiateResponse
	if err := json.Unmarshal(body, &initiate); err != nil {
		return "", fmt.Errorf("parsing initiate-download response for %s: %w", src.Filename, err)
	}
	if initiate.Code != 0 || initiate.Data.URL == "" {
		return "", fmt.Errorf("no download URL for %s (code=%d, message=%q, error=%q)",
			src.Filename, initiate.Code, initiate.Data.Message, initiate.ErrorMsg)
	}
	return initiate.Data.URL, nil
}

func (c *Client) downloadCSV(ctx context.Context, csvURL string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, csvURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("CSV download returned status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return decodeContent(raw), nil
}

// decodeContent returns the body as UTF-8 text, falling back to an
// ISO-8859-1 interpretation for the older exports.
func decodeContent(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	logger.L.Warn("Raw content is not valid UTF-8, decoding as ISO-8859-1")
	var b strings.Builder
	b.Grow(len(raw))
	for _, c := range raw {
		b.WriteRune(rune(c))
	}
	return b.String()
}
