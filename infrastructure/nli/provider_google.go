package nli

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
)

// GoogleDefaultModel is the model used for prompt-based scoring when none
// is configured.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterProviderFactory("google", ports.VariantHosted, newGoogleProvider)
}

// googleProvider implements CoreClassifier by asking a Gemini model to
// score the candidate statements against the evidence.
type googleProvider struct {
	BaseProvider
	client          *genai.Client
	errorClassifier *ErrorClassifier
}

// newGoogleProvider creates a prompt-based scoring backend on Google's
// Gemini API.
func newGoogleProvider(config ClientConfig) (CoreClassifier, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          client,
		errorClassifier: &ErrorClassifier{Provider: "google"},
	}, nil
}

// DoClassify sends the scoring prompt and parses the JSON score object from
// the generated content.
func (p *googleProvider) DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(buildScoringPrompt(input, labels), genai.RoleUser),
	}
	genConfig := &genai.GenerateContentConfig{
		MaxOutputTokens: scoringMaxTokens,
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.GetModel(), contents, genConfig)
	if err != nil {
		return nil, p.handleError(err)
	}

	content := resp.Text()
	if content == "" {
		return nil, ErrEmptyResponse
	}

	return parseScoredResponse(content, labels)
}

// Ready issues a one-token generation to verify authentication and model
// access.
func (p *googleProvider) Ready(ctx context.Context) error {
	contents := []*genai.Content{genai.NewContentFromText("ping", genai.RoleUser)}
	_, err := p.client.Models.GenerateContent(ctx, p.GetModel(), contents, &genai.GenerateContentConfig{
		MaxOutputTokens: 1,
	})
	if err != nil {
		return p.handleError(err)
	}
	return nil
}

// handleError provides structured error handling for Google API responses.
func (p *googleProvider) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.Code, message, err)
	}

	return NewProviderError("google", ErrorTypeUnknown, 0, "request failed", err)
}
