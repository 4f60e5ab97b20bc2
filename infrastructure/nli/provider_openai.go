package nli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
)

const (
	// OpenAIDefaultModel is the model used for prompt-based scoring when
	// none is configured.
	OpenAIDefaultModel = "gpt-4o-mini"

	// scoringMaxTokens bounds the completion; the expected response is a
	// small JSON object of label probabilities.
	scoringMaxTokens = 256
)

func init() {
	RegisterProviderFactory("openai", ports.VariantHosted, newOpenAIProvider)
}

// openAIProvider implements CoreClassifier by asking an OpenAI chat model to
// score the candidate statements against the evidence. It is a fallback for
// deployments without access to a dedicated entailment model.
type openAIProvider struct {
	BaseProvider
	client          *openai.Client
	errorClassifier *ErrorClassifier
}

// newOpenAIProvider creates a prompt-based scoring backend on OpenAI.
func newOpenAIProvider(config ClientConfig) (CoreClassifier, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)

	if config.BaseURL != "" {
		validatedURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		clientConfig.BaseURL = validatedURL
	}

	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{
			Timeout: ValidateTimeout(config.Timeout),
		}
	}

	return &openAIProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          openai.NewClientWithConfig(clientConfig),
		errorClassifier: &ErrorClassifier{Provider: "openai"},
	}, nil
}

// DoClassify sends the scoring prompt and parses the JSON score object from
// the completion.
func (p *openAIProvider) DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	req := openai.ChatCompletionRequest{
		Model: p.GetModel(),
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildScoringPrompt(input, labels),
			},
		},
		MaxTokens: scoringMaxTokens,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, p.handleError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	return parseScoredResponse(resp.Choices[0].Message.Content, labels)
}

// Ready verifies authentication and connectivity by listing models, which
// is the cheapest authenticated call the API offers.
func (p *openAIProvider) Ready(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return p.handleError(err)
	}
	return nil
}

// handleError classifies and wraps errors from the OpenAI API.
func (p *openAIProvider) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = "unknown error"
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.HTTPStatusCode, message, err)
	}

	return NewProviderError("openai", ErrorTypeUnknown, 0, "request failed", err)
}
