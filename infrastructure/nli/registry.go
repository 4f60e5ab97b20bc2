// This file implements the Registry system that enables centralized
// configuration, automatic backend initialization, and dynamic client
// management across multiple classification backends simultaneously.
//
// The Registry supports:
//   - Environment-based backend initialization with API key fallback chains
//   - Default configuration inheritance across backends
//   - Dynamic client registration and retrieval
//   - Backend-specific configuration overrides
//   - Model-based client routing (provider/model format)
package nli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
)

// Registry provides multi-backend management for classification clients.
// It enables centralized configuration, automatic initialization, and
// dynamic management of multiple backends with shared default settings.
type Registry struct {
	// providers maps backend names to their configuration
	providers map[string]ProviderConfig
	// clients maps "provider/model" keys to their respective clients.
	// Each client handles its own rate limiting and circuit breaking.
	clients map[string]ports.EntailmentClient
	// defaultProvider specifies the fallback backend when no provider is named.
	defaultProvider string
	// defaultMiddleware specifies middleware applied to all backends unless overridden
	defaultMiddleware []Middleware
	// defaultTimeout sets the default request timeout for all backends
	defaultTimeout time.Duration
	// mu provides thread-safe access to the registry.
	mu sync.RWMutex
}

// ProviderConfig holds backend-specific configuration, overriding registry
// defaults for individual backends.
type ProviderConfig struct {
	// Type specifies the backend implementation type
	// (huggingface, local, openai, anthropic, google).
	Type string
	// EnvVars lists environment variable names checked in order for the
	// API key. An empty list means the backend needs no key.
	EnvVars []string
	// DefaultModel specifies the model to use when none is requested.
	DefaultModel string
	// BaseURL overrides the default endpoint for the backend.
	BaseURL string
	// Middleware specifies backend-specific middleware.
	Middleware []Middleware
}

// RegistryConfig holds configuration for the backend registry, defining
// defaults applied to all backends unless overridden.
type RegistryConfig struct {
	// Providers defines the available backends and their configurations
	Providers map[string]ProviderConfig
	// DefaultProvider specifies which backend to use when none is named.
	DefaultProvider string
	// DefaultTimeout sets the default request timeout for all backends.
	DefaultTimeout time.Duration
	// DefaultMiddleware specifies default middleware applied to all backends.
	DefaultMiddleware []Middleware
}

// DefaultProviders provides standard backend configurations. Applications
// can use this as a starting point and override specific settings.
var DefaultProviders = map[string]ProviderConfig{
	"huggingface": {
		Type:         "huggingface",
		EnvVars:      []string{"HF_API_TOKEN", "HUGGINGFACE_API_TOKEN"},
		DefaultModel: HuggingFaceDefaultModel,
	},
	"local": {
		Type:         "local",
		DefaultModel: HuggingFaceDefaultModel,
		BaseURL:      "http://localhost:8089",
	},
	"openai": {
		Type:         "openai",
		EnvVars:      []string{"OPENAI_API_KEY"},
		DefaultModel: OpenAIDefaultModel,
	},
	"anthropic": {
		Type:         "anthropic",
		EnvVars:      []string{"ANTHROPIC_API_KEY"},
		DefaultModel: AnthropicDefaultModel,
	},
	"google": {
		Type:         "google",
		EnvVars:      []string{"GOOGLE_API_KEY"},
		DefaultModel: GoogleDefaultModel,
	},
}

// NewRegistry creates a backend registry. The registry manages multiple
// classification backends with shared default settings and lazily built,
// cached clients.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.DefaultProvider == "" {
		return nil, fmt.Errorf("default provider cannot be empty")
	}

	if _, exists := config.Providers[config.DefaultProvider]; !exists {
		return nil, fmt.Errorf("default provider %q not found in providers configuration", config.DefaultProvider)
	}

	return &Registry{
		providers:         config.Providers,
		clients:           make(map[string]ports.EntailmentClient),
		defaultProvider:   config.DefaultProvider,
		defaultMiddleware: config.DefaultMiddleware,
		defaultTimeout:    config.DefaultTimeout,
	}, nil
}

// GetDefaultClient returns a client for the default backend with its
// default model.
func (r *Registry) GetDefaultClient() (ports.EntailmentClient, error) {
	providerConfig, exists := r.providers[r.defaultProvider]
	if !exists {
		return nil, fmt.Errorf("default provider %q not found in configuration", r.defaultProvider)
	}

	return r.GetClient(r.defaultProvider + "/" + providerConfig.DefaultModel)
}

// GetClient retrieves a client by backend name or model string.
// Supports multiple formats:
//   - "provider": Returns a client for the backend with its default model
//   - "provider/model": Returns a client for the backend and model
//
// Clients are created lazily on first request and cached for reuse.
func (r *Registry) GetClient(spec string) (ports.EntailmentClient, error) {
	if spec == "" {
		return nil, fmt.Errorf("provider specification cannot be empty; use GetDefaultClient() for default provider")
	}

	provider, model := r.parseSpec(spec)

	key := r.buildCacheKey(provider, model)

	r.mu.RLock()
	if client, exists := r.clients[key]; exists {
		r.mu.RUnlock()
		return client, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, exists := r.clients[key]; exists {
		return client, nil
	}

	client, err := r.createClient(provider, model)
	if err != nil {
		return nil, err
	}

	r.clients[key] = client
	return client, nil
}

// RegisterClient registers a client with the registry using custom
// configuration, inheriting registry defaults.
func (r *Registry) RegisterClient(name string, config ClientConfig) error {
	if name == "" {
		return fmt.Errorf("client name cannot be empty")
	}

	provider, model := r.parseSpec(name)
	if provider == "" {
		provider = name
		model = config.Model
	}

	providerConfig, exists := r.providers[provider]
	if !exists {
		return fmt.Errorf("unknown provider %q", provider)
	}

	client, err := r.createClientWithConfig(providerConfig.Type, config)
	if err != nil {
		return fmt.Errorf("failed to create client %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.buildCacheKey(provider, model)
	r.clients[key] = client
	return nil
}

// parseSpec extracts backend name and model from a specification string.
// Supports formats:
//   - "provider" -> (provider, defaultModel)
//   - "provider/model" -> (provider, model)
//
// Hugging Face model ids contain a slash themselves, so only the first
// separator splits the spec.
func (r *Registry) parseSpec(spec string) (provider, model string) {
	parts := strings.SplitN(spec, "/", 2)
	provider = parts[0]

	if len(parts) > 1 {
		model = parts[1]
	} else if providerConfig, ok := r.providers[provider]; ok {
		model = providerConfig.DefaultModel
	}

	return
}

// buildCacheKey creates a consistent cache key from backend and model.
func (r *Registry) buildCacheKey(provider, model string) string {
	if model == "" {
		return provider
	}
	return provider + "/" + model
}

// lookupAPIKey resolves the backend's API key from its environment variable
// chain, returning the first non-empty value.
func lookupAPIKey(envVars []string) string {
	for _, envVar := range envVars {
		if key := os.Getenv(envVar); key != "" {
			return key
		}
	}
	return ""
}

// createClient creates a new client instance for the given backend and
// model, handling environment variable loading and configuration merging.
func (r *Registry) createClient(provider, model string) (ports.EntailmentClient, error) {
	providerConfig, exists := r.providers[provider]
	if !exists {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	apiKey := lookupAPIKey(providerConfig.EnvVars)
	if apiKey == "" && len(providerConfig.EnvVars) > 0 {
		return nil, fmt.Errorf("none of %v set for provider %q", providerConfig.EnvVars, provider)
	}

	config := ClientConfig{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: providerConfig.BaseURL,
		Timeout: r.defaultTimeout,
	}

	config.Middleware = append([]Middleware{}, r.defaultMiddleware...)
	config.Middleware = append(config.Middleware, providerConfig.Middleware...)

	return NewClient(providerConfig.Type, config)
}

// createClientWithConfig creates a client with explicit configuration.
// Used by RegisterClient for custom client registration.
func (r *Registry) createClientWithConfig(providerType string, config ClientConfig) (ports.EntailmentClient, error) {
	if config.Timeout == 0 {
		config.Timeout = r.defaultTimeout
	}

	middleware := append([]Middleware{}, r.defaultMiddleware...)
	config.Middleware = append(middleware, config.Middleware...)

	return NewClient(providerType, config)
}

// InitializeProviders eagerly builds clients for every backend whose
// environment is configured. Backends without keys are skipped unless they
// are the default, in which case initialization fails.
func (r *Registry) InitializeProviders() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	foundDefault := false

	for providerName, providerConfig := range r.providers {
		apiKey := lookupAPIKey(providerConfig.EnvVars)
		if apiKey == "" && len(providerConfig.EnvVars) > 0 {
			if r.defaultProvider == providerName {
				return fmt.Errorf("none of %v set for default provider %q",
					providerConfig.EnvVars, providerName)
			}
			continue
		}

		if providerName == r.defaultProvider {
			foundDefault = true
		}

		config := ClientConfig{
			APIKey:     apiKey,
			Model:      providerConfig.DefaultModel,
			BaseURL:    providerConfig.BaseURL,
			Timeout:    r.defaultTimeout,
			Middleware: append(append([]Middleware{}, r.defaultMiddleware...), providerConfig.Middleware...),
		}

		client, err := NewClient(providerConfig.Type, config)
		if err != nil {
			return fmt.Errorf("failed to create %s client: %w", providerName, err)
		}

		key := r.buildCacheKey(providerName, providerConfig.DefaultModel)
		r.clients[key] = client
	}

	if !foundDefault {
		return fmt.Errorf("default provider %q not available after initialization", r.defaultProvider)
	}

	return nil
}

// GetRegisteredProviders returns the names of all backends with at least
// one cached client. Useful for validation and debugging.
func (r *Registry) GetRegisteredProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providerSet := make(map[string]bool)
	for key := range r.clients {
		provider, _ := r.parseSpec(key)
		if provider != "" {
			providerSet[provider] = true
		}
	}

	providers := make([]string, 0, len(providerSet))
	for provider := range providerSet {
		providers = append(providers, provider)
	}
	return providers
}

// UpdateDefaultMiddleware appends middleware applied to all subsequently
// created clients. Existing clients are unaffected.
func (r *Registry) UpdateDefaultMiddleware(middleware ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultMiddleware = append(r.defaultMiddleware, middleware...)
}

// SetDefaultTimeout sets the timeout applied to all subsequently created
// clients. Existing clients are unaffected.
func (r *Registry) SetDefaultTimeout(timeout time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaultTimeout = timeout
}
