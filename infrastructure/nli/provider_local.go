package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
)

func init() {
	RegisterProviderFactory("local", ports.VariantLocal, newLocalProvider)
}

// localProvider implements CoreClassifier against a self-hosted inference
// server that speaks the same zero-shot wire format as the hosted API.
// It requires a BaseURL and sends no authentication.
type localProvider struct {
	BaseProvider
	httpClient      *http.Client
	baseURL         string
	errorClassifier *ErrorClassifier
}

// newLocalProvider creates a backend for a local inference server.
func newLocalProvider(config ClientConfig) (CoreClassifier, error) {
	if config.BaseURL == "" {
		return nil, ErrEmptyBaseURL
	}

	baseURL, err := ValidateBaseURL(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}

	model := config.Model
	if model == "" {
		model = HuggingFaceDefaultModel
	}

	return &localProvider{
		BaseProvider:    BaseProvider{model: model},
		httpClient:      &http.Client{Timeout: ValidateTimeout(config.Timeout)},
		baseURL:         baseURL,
		errorClassifier: &ErrorClassifier{Provider: "local"},
	}, nil
}

// DoClassify posts a zero-shot classification request to the local server.
func (p *localProvider) DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	reqBody := zeroShotRequest{
		Inputs:     input,
		Parameters: zeroShotParams{CandidateLabels: labels},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", p.baseURL, p.GetModel())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, p.handleTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.errorClassifier.ClassifyHTTPError(resp.StatusCode, string(body), nil)
	}

	var parsed zeroShotResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return zipScores(parsed, labels)
}

// Ready probes the server's health endpoint. Minimal deployments that do
// not expose one are probed with a small classification instead.
func (p *localProvider) Ready(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("building health request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return p.handleTransportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		_, err := p.DoClassify(ctx, "warmup probe", []string{"ready", "not ready"})
		return err
	default:
		return p.errorClassifier.ClassifyHTTPError(resp.StatusCode, "health check failed", nil)
	}
}

func (p *localProvider) handleTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}
	return NewProviderError("local", ErrorTypeNetwork, 0, "request failed", err)
}
