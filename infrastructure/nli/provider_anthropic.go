package nli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
)

// AnthropicDefaultModel is the model used for prompt-based scoring when
// none is configured.
const AnthropicDefaultModel = "claude-3-5-haiku-20241022"

func init() {
	RegisterProviderFactory("anthropic", ports.VariantHosted, newAnthropicProvider)
}

// anthropicProvider implements CoreClassifier by asking a Claude model to
// score the candidate statements against the evidence.
type anthropicProvider struct {
	BaseProvider
	client          anthropic.Client
	errorClassifier *ErrorClassifier
}

// newAnthropicProvider creates a prompt-based scoring backend on Anthropic.
func newAnthropicProvider(config ClientConfig) (CoreClassifier, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		validatedURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		opts = append(opts, option.WithBaseURL(validatedURL))
	}

	return &anthropicProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          anthropic.NewClient(opts...),
		errorClassifier: &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// DoClassify sends the scoring prompt and parses the JSON score object from
// the message response.
func (p *anthropicProvider) DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.GetModel()),
		MaxTokens: scoringMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(buildScoringPrompt(input, labels))),
		},
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, p.handleError(err)
	}

	var responseText strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			responseText.WriteString(content.Text)
		}
	}

	if responseText.Len() == 0 {
		return nil, ErrEmptyResponse
	}

	return parseScoredResponse(responseText.String(), labels)
}

// Ready issues a one-token message to verify authentication and model
// access; the Messages API is the only surface the scoring path uses.
func (p *anthropicProvider) Ready(ctx context.Context) error {
	_, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.GetModel()),
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return p.handleError(err)
	}
	return nil
}

// handleError classifies and wraps errors from the Anthropic API.
func (p *anthropicProvider) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return p.errorClassifier.ClassifyHTTPError(apiErr.StatusCode, "request rejected", err)
	}

	return NewProviderError("anthropic", ErrorTypeUnknown, 0, "request failed", err)
}
