// Package config loads, defaults, and validates the service configuration.
//
// Configuration is read from a YAML file, then overlaid with environment
// variables following the QUALITYAPI_SECTION_FIELD naming convention, and
// finally validated. Environment variables always win over file values.
package config

import "time"

// Config is the root configuration structure for the verification service.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and CORS settings.
	Server ServerConfig `yaml:"server"`

	// Engine contains verification engine configuration: the per-document
	// time budget, the model load bound, and the aggregation gates.
	Engine EngineConfig `yaml:"engine"`

	// Model contains classification backend configuration: which provider
	// answers entailment queries and how requests to it are shaped.
	Model ModelConfig `yaml:"model"`

	// Extract contains document ingestion configuration for the optional
	// layout analysis endpoint and its polling behavior.
	Extract ExtractConfig `yaml:"extract"`

	// Standards contains the standards registry location and watch mode.
	Standards StandardsConfig `yaml:"standards"`

	// Storage contains the audit store location and retention policy.
	Storage StorageConfig `yaml:"storage"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port".
	// Default: "0.0.0.0:8000"
	ListenAddress string `yaml:"listen_address" validate:"required"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including uploaded document bodies.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout" validate:"gte=0"`

	// WriteTimeout is the maximum duration before timing out response
	// writes. It must exceed the engine verify timeout or long
	// verifications are truncated mid-response.
	// Default: 60s
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// IdleTimeout is the maximum time to wait for the next request on a
	// kept-alive connection.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout" validate:"gte=0"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`

	// MaxHeaderBytes caps the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes" validate:"gte=0"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS configuration for browser clients.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted. Unset means
	// enabled.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// AllowedOrigins lists origins allowed to call the API. Use ["*"] to
	// allow all origins.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods lists the HTTP methods allowed in CORS requests.
	// Default: ["GET", "POST", "DELETE", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders lists the request headers allowed in CORS requests.
	// Default: ["Authorization", "Content-Type", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// IsEnabled reports whether CORS is on, treating an unset flag as enabled.
func (c CORSConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// EngineConfig contains the verification engine's budgets and gates.
type EngineConfig struct {
	// VerifyTimeout bounds one full verification pass over a document's
	// parameters. The engine stops between parameters once exceeded and
	// returns a partial result.
	// Default: 45s
	VerifyTimeout time.Duration `yaml:"verify_timeout" validate:"gt=0"`

	// ModelLoadTimeout bounds the background model warmup. If the model is
	// not ready within this window the engine falls back to rule-based
	// verification for the rest of the process lifetime.
	// Default: 60s
	ModelLoadTimeout time.Duration `yaml:"model_load_timeout" validate:"gt=0"`

	// MinParameters is the minimum number of checked parameters for a
	// document verdict; below it the document fails coverage.
	// Default: 4
	MinParameters int `yaml:"min_parameters" validate:"gte=1"`

	// ComplianceThreshold is the compliant-parameter ratio at or above
	// which the document passes.
	// Default: 0.60
	ComplianceThreshold float64 `yaml:"compliance_threshold" validate:"gte=0,lte=1"`
}

// ModelConfig contains configuration for the entailment backend.
type ModelConfig struct {
	// Provider selects the classification backend.
	// Options: "huggingface", "local", "openai", "anthropic", "google"
	// Default: "huggingface"
	Provider string `yaml:"provider" validate:"required,oneof=huggingface local openai anthropic google"`

	// ModelID names the model the backend scores with. Zero-shot backends
	// take a Hugging Face model id; prompt-based backends take the
	// provider's model name.
	// Default: "facebook/bart-large-mnli"
	ModelID string `yaml:"model_id" validate:"required"`

	// APIKey authenticates requests to hosted backends. Leave empty to
	// resolve it from the provider's environment variable chain
	// (HF_API_TOKEN then HUGGINGFACE_API_TOKEN for Hugging Face).
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend endpoint. Required for the local
	// backend, optional elsewhere.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`

	// RequestTimeout bounds individual classification requests.
	// Default: 30s
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`

	// MaxRetries is the number of retry attempts for transient failures.
	// Default: 2
	MaxRetries int `yaml:"max_retries" validate:"gte=0,lte=10"`

	// RateLimitRPS is the sustained request rate toward the backend.
	// Zero disables rate limiting.
	// Default: 5
	RateLimitRPS float64 `yaml:"rate_limit_rps" validate:"gte=0"`

	// RateLimitBurst is the token bucket burst size.
	// Default: 10
	RateLimitBurst int `yaml:"rate_limit_burst" validate:"gte=0"`

	// BreakerThreshold is the consecutive-failure count that opens the
	// circuit breaker. Zero disables the breaker.
	// Default: 5
	BreakerThreshold int `yaml:"breaker_threshold" validate:"gte=0"`

	// BreakerCooldown is how long the breaker stays open before probing.
	// Default: 30s
	BreakerCooldown time.Duration `yaml:"breaker_cooldown" validate:"gte=0"`
}

// ExtractConfig contains document ingestion configuration.
type ExtractConfig struct {
	// LayoutEndpoint is the layout analysis service endpoint used for
	// scanned documents. Empty disables layout analysis; ingestion then
	// relies on native text extraction only.
	LayoutEndpoint string `yaml:"layout_endpoint" validate:"omitempty,url"`

	// LayoutKey authenticates requests to the layout endpoint.
	LayoutKey string `yaml:"layout_key"`

	// RequestTimeout bounds individual layout service requests.
	// Default: 30s
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"gt=0"`

	// PollInterval is the delay between polls of an in-progress layout
	// analysis operation.
	// Default: 2s
	PollInterval time.Duration `yaml:"poll_interval" validate:"gt=0"`
}

// StandardsConfig contains the standards registry configuration.
type StandardsConfig struct {
	// FilePath is the JSON file holding quality standard definitions.
	// Default: "data/standards.json"
	FilePath string `yaml:"file_path" validate:"required"`

	// Watch reloads the registry when the standards file changes.
	// Default: false
	Watch bool `yaml:"watch"`
}

// StorageConfig contains the audit store configuration.
type StorageConfig struct {
	// DataDir is the directory for generated artifacts (certificates).
	// Default: "data"
	DataDir string `yaml:"data_dir" validate:"required"`

	// SQLitePath is the file path for the verification audit database.
	// Default: "data/verifications.db"
	SQLitePath string `yaml:"sqlite_path" validate:"required"`

	// RetentionDays is the number of days to retain verification records.
	// Zero keeps records forever.
	// Default: 90
	RetentionDays int `yaml:"retention_days" validate:"gte=0"`

	// RetentionSchedule is a cron expression for the retention sweep.
	// Default: "0 3 * * *" (daily at 3 AM)
	RetentionSchedule string `yaml:"retention_schedule" validate:"omitempty,cron"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics endpoint configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level" validate:"required,oneof=debug info warn error"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format" validate:"required,oneof=json text"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics endpoint configuration.
type MetricsConfig struct {
	// Enabled controls whether the Prometheus endpoint is served. Unset
	// means enabled.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "qualityapi"
	Namespace string `yaml:"namespace"`
}

// IsEnabled reports whether the metrics endpoint is served, treating an
// unset flag as enabled.
func (m MetricsConfig) IsEnabled() bool {
	return m.Enabled == nil || *m.Enabled
}
