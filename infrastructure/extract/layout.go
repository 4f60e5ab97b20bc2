package extract

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// layoutAPIVersion is the Document Intelligence REST API version spoken by
// the client.
const layoutAPIVersion = "2024-02-29-preview"

// LayoutClient analyzes documents through a Document Intelligence-compatible
// layout endpoint: submit the document, then poll the returned operation
// until it settles. The client is optional; ingestion works without one,
// just with no table recognition.
type LayoutClient struct {
	endpoint     string
	apiKey       string
	httpClient   *http.Client
	pollInterval time.Duration
}

// NewLayoutClient creates a layout analysis client. Endpoint and key are
// required; the poll interval defaults to 2 seconds.
func NewLayoutClient(endpoint, apiKey string, timeout, pollInterval time.Duration) (*LayoutClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("layout endpoint is required")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("layout API key is required")
	}
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	return &LayoutClient{
		endpoint:     endpoint,
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: timeout},
		pollInterval: pollInterval,
	}, nil
}

// layoutResult is the subset of the analyze result the ingestion pipeline
// consumes: text lines per page and cell grids per table.
type layoutResult struct {
	Pages  []layoutPage  `json:"pages"`
	Tables []layoutTable `json:"tables"`
}

type layoutPage struct {
	Lines []layoutLine `json:"lines"`
}

type layoutLine struct {
	Content string `json:"content"`
}

type layoutTable struct {
	RowCount    int          `json:"rowCount"`
	ColumnCount int          `json:"columnCount"`
	Cells       []layoutCell `json:"cells"`
}

type layoutCell struct {
	RowIndex    int    `json:"rowIndex"`
	ColumnIndex int    `json:"columnIndex"`
	Content     string `json:"content"`
}

// Grid materializes the table's cells into a dense row-major grid.
func (t layoutTable) Grid() [][]string {
	grid := make([][]string, t.RowCount)
	for i := range grid {
		grid[i] = make([]string, t.ColumnCount)
	}
	for _, cell := range t.Cells {
		if cell.RowIndex < t.RowCount && cell.ColumnIndex < t.ColumnCount {
			grid[cell.RowIndex][cell.ColumnIndex] = cell.Content
		}
	}
	return grid
}

type analyzeRequest struct {
	Base64Source string `json:"base64Source"`
}

type operationResponse struct {
	Status        string        `json:"status"`
	Error         *layoutError  `json:"error,omitempty"`
	AnalyzeResult *layoutResult `json:"analyzeResult,omitempty"`
}

type layoutError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Analyze submits the document for layout analysis and polls the operation
// to completion, bounded by ctx.
func (c *LayoutClient) Analyze(ctx context.Context, blob []byte) (*layoutResult, error) {
	operationURL, err := c.beginAnalyze(ctx, blob)
	if err != nil {
		return nil, err
	}
	return c.pollOperation(ctx, operationURL)
}

// beginAnalyze starts the analysis and returns the operation URL to poll.
func (c *LayoutClient) beginAnalyze(ctx context.Context, blob []byte) (string, error) {
	payload, err := json.Marshal(analyzeRequest{
		Base64Source: base64.StdEncoding.EncodeToString(blob),
	})
	if err != nil {
		return "", fmt.Errorf("encoding analyze request: %w", err)
	}

	url := fmt.Sprintf(
		"%s/documentintelligence/documentModels/prebuilt-layout:analyze?api-version=%s",
		c.endpoint, layoutAPIVersion,
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building analyze request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("analyze request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return "", fmt.Errorf("analyze returned status %d: %s", resp.StatusCode, string(body))
	}

	operationURL := resp.Header.Get("Operation-Location")
	if operationURL == "" {
		return "", fmt.Errorf("analyze response missing Operation-Location header")
	}
	return operationURL, nil
}

// pollOperation polls the operation URL until it succeeds, fails, or ctx
// expires.
func (c *LayoutClient) pollOperation(ctx context.Context, operationURL string) (*layoutResult, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		op, err := c.fetchOperation(ctx, operationURL)
		if err != nil {
			return nil, err
		}

		switch op.Status {
		case "succeeded":
			if op.AnalyzeResult == nil {
				return nil, fmt.Errorf("analysis succeeded without a result")
			}
			return op.AnalyzeResult, nil
		case "failed":
			if op.Error != nil {
				return nil, fmt.Errorf("analysis failed: %s: %s", op.Error.Code, op.Error.Message)
			}
			return nil, fmt.Errorf("analysis failed")
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for analysis: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *LayoutClient) fetchOperation(ctx context.Context, operationURL string) (*operationResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, operationURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building poll request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		return nil, fmt.Errorf("poll returned status %d: %s", resp.StatusCode, string(body))
	}

	var op operationResponse
	if err := json.NewDecoder(resp.Body).Decode(&op); err != nil {
		return nil, fmt.Errorf("decoding poll response: %w", err)
	}
	return &op, nil
}
