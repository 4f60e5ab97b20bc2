// Package nli provides a unified interface for zero-shot entailment
// classification across hosted and self-hosted model backends, with built-in
// support for rate limiting, circuit breaking, retries, metrics, and tracing.
//
// The package abstracts multiple backends (Hugging Face Inference API, a
// local inference server, and prompt-based scoring through OpenAI, Anthropic,
// or Google models) behind a common interface while adding operational
// cross-cutting concerns through a middleware pattern. The verification
// engine consumes the resulting client without knowing which backend is
// answering.
//
// Architecture:
//   - Core client implementation with middleware chain composition
//   - Backend implementations abstracted through the CoreClassifier interface
//   - Pluggable middleware for rate limiting, circuit breaking, retries,
//     timeouts, metrics, and tracing
//   - Registry system for multi-backend configuration from the environment
//
// Basic usage:
//
//	client, err := nli.NewClient("huggingface", nli.ClientConfig{
//	    APIKey: os.Getenv("HF_API_TOKEN"),
//	    Model:  "facebook/bart-large-mnli",
//	})
//	scores, err := client.Classify(ctx, evidence, labels)
//
// With middleware:
//
//	client, err := nli.NewClient("huggingface", nli.ClientConfig{
//	    APIKey: os.Getenv("HF_API_TOKEN"),
//	    Model:  "facebook/bart-large-mnli",
//	    Middleware: []nli.Middleware{
//	        nli.RateLimitMiddleware(5, 10),
//	        nli.CircuitBreakerMiddleware(5, 30*time.Second),
//	        nli.RetryMiddleware(2, 500*time.Millisecond, 5*time.Second),
//	    },
//	})
package nli

import (
	"context"
	"fmt"
	"time"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
)

// CoreClassifier defines the minimal interface that classification backends
// must implement. It abstracts the scoring call and the readiness probe so
// the middleware system can wrap any conforming implementation.
type CoreClassifier interface {
	// DoClassify scores the input text against each candidate label and
	// returns a probability per label. Implementations must return a score
	// for every requested label or an error.
	DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error)

	// Ready probes the backend for availability. For hosted backends this
	// typically issues a small classification with model-warming enabled;
	// for local servers it hits the health endpoint. A nil return means the
	// backend can serve classification requests.
	Ready(ctx context.Context) error

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model for subsequent requests.
	SetModel(model string)
}

// ClientConfig holds all configuration options for creating a classification
// client.
type ClientConfig struct {
	// APIKey authenticates requests to hosted backends. The local backend
	// ignores it.
	APIKey string

	// Model specifies which model scores the entailment. Zero-shot backends
	// take a Hugging Face model id; prompt-based backends take the
	// provider's model name.
	Model string

	// BaseURL overrides the default endpoint for the backend. Required for
	// the local backend, optional elsewhere.
	BaseURL string

	// Timeout bounds individual requests. Zero means no timeout.
	Timeout time.Duration

	// Middleware is applied in the order specified, first entry outermost.
	Middleware []Middleware
}

// Middleware wraps a CoreClassifier to add cross-cutting functionality such
// as rate limiting or circuit breaking without modifying backend logic.
type Middleware func(CoreClassifier) CoreClassifier

// Client implements the ports.EntailmentClient interface on top of a
// middleware-wrapped backend.
type Client struct {
	core    CoreClassifier
	variant string
}

var _ ports.EntailmentClient = (*Client)(nil)

// NewClient creates a classification client for the named backend,
// assembling the middleware chain and validating configuration.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	entry, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := entry.factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	// Apply middleware in reverse order so the first middleware is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core, variant: entry.variant}, nil
}

// Warmup probes the backend until it is ready to classify, subject to ctx.
func (c *Client) Warmup(ctx context.Context) error {
	return c.core.Ready(ctx)
}

// Classify scores the input against the candidate labels.
func (c *Client) Classify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("at least one candidate label is required")
	}
	return c.core.DoClassify(ctx, input, labels)
}

// GetModel returns the model name from the underlying backend.
func (c *Client) GetModel() string { return c.core.GetModel() }

// Variant reports whether this client is backed by a hosted or a local
// model deployment.
func (c *Client) Variant() string { return c.variant }

// ProviderFactory creates a CoreClassifier implementation from configuration.
type ProviderFactory func(ClientConfig) (CoreClassifier, error)

type providerEntry struct {
	factory ProviderFactory
	variant string
}

// Provider factory registry for extensibility. Backends register themselves
// at init time together with their deployment variant.
var providerFactories = map[string]providerEntry{}

// RegisterProviderFactory registers a backend factory under a provider name.
// The variant must be ports.VariantHosted or ports.VariantLocal and is
// reported through Client.Variant for every client built from this factory.
func RegisterProviderFactory(providerType, variant string, factory ProviderFactory) {
	providerFactories[providerType] = providerEntry{factory: factory, variant: variant}
}
