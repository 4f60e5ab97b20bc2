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

const (
	// HuggingFaceDefaultModel is the zero-shot entailment model used when
	// none is configured.
	HuggingFaceDefaultModel = "facebook/bart-large-mnli"

	// huggingFaceInferenceURL is the hosted Inference API endpoint.
	huggingFaceInferenceURL = "https://api-inference.huggingface.co"
)

func init() {
	RegisterProviderFactory("huggingface", ports.VariantHosted, newHuggingFaceProvider)
}

// huggingFaceProvider implements CoreClassifier against the hosted Hugging
// Face Inference API. It speaks the zero-shot classification wire format
// and maps the API's model-loading responses onto retryable errors.
type huggingFaceProvider struct {
	BaseProvider
	httpClient      *http.Client
	apiKey          string
	baseURL         string
	errorClassifier *ErrorClassifier
}

// newHuggingFaceProvider creates a hosted Inference API backend. The API key
// is required; the base URL defaults to the public inference endpoint.
func newHuggingFaceProvider(config ClientConfig) (CoreClassifier, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = HuggingFaceDefaultModel
	}

	baseURL := huggingFaceInferenceURL
	if config.BaseURL != "" {
		validated, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		baseURL = validated
	}

	return &huggingFaceProvider{
		BaseProvider:    BaseProvider{model: model},
		httpClient:      &http.Client{Timeout: ValidateTimeout(config.Timeout)},
		apiKey:          config.APIKey,
		baseURL:         baseURL,
		errorClassifier: &ErrorClassifier{Provider: "huggingface"},
	}, nil
}

// DoClassify posts a zero-shot classification request and zips the response
// into per-label scores.
func (p *huggingFaceProvider) DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	return p.classify(ctx, input, labels, false)
}

// Ready issues a minimal classification with wait_for_model enabled so the
// Inference API holds the request until the model is resident. Success means
// subsequent classifications will not pay the cold-start penalty.
func (p *huggingFaceProvider) Ready(ctx context.Context) error {
	_, err := p.classify(ctx, "warmup probe", []string{"ready", "not ready"}, true)
	return err
}

func (p *huggingFaceProvider) classify(ctx context.Context, input string, labels []string, waitForModel bool) (map[string]float64, error) {
	reqBody := zeroShotRequest{
		Inputs:     input,
		Parameters: zeroShotParams{CandidateLabels: labels},
		Options:    &zeroShotOptions{WaitForModel: waitForModel, UseCache: true},
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
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
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
		return nil, p.handleAPIError(resp.StatusCode, body)
	}

	if len(body) == 0 {
		return nil, ErrEmptyResponse
	}

	var parsed zeroShotResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		// Some deployments wrap the result in a single-element array.
		var batch []zeroShotResponse
		if arrErr := json.Unmarshal(body, &batch); arrErr != nil || len(batch) == 0 {
			return nil, fmt.Errorf("decoding response: %w", err)
		}
		parsed = batch[0]
	}

	return zipScores(parsed, labels)
}

// handleAPIError decodes the Inference API error body and classifies it.
// A 503 with an estimated_time hint means the model is still loading.
func (p *huggingFaceProvider) handleAPIError(statusCode int, body []byte) error {
	var apiErr apiErrorResponse
	message := string(body)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error != "" {
		message = apiErr.Error
		if apiErr.EstimatedTime > 0 {
			message = fmt.Sprintf("%s (estimated %.0fs)", apiErr.Error, apiErr.EstimatedTime)
		}
	}
	return p.errorClassifier.ClassifyHTTPError(statusCode, message, nil)
}

func (p *huggingFaceProvider) handleTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}
	return NewProviderError("huggingface", ErrorTypeNetwork, 0, "request failed", err)
}
