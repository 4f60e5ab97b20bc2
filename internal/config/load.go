package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Default returns a configuration with every default applied, for running
// without a configuration file.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	resolveModelAPIKey(cfg)
	return cfg
}

// LoadConfig loads configuration from a YAML file, applies defaults, and
// validates the result. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Variables follow the naming convention
// QUALITYAPI_SECTION_FIELD (e.g. QUALITYAPI_SERVER_LISTEN_ADDRESS) and always
// take precedence over file values.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Resolve the model API key from the provider's variable chain
//  5. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	resolveModelAPIKey(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration against its declared constraints plus
// the cross-section rules the tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}

	// A write timeout inside the verify budget truncates long
	// verifications mid-response.
	if cfg.Server.WriteTimeout > 0 && cfg.Server.WriteTimeout <= cfg.Engine.VerifyTimeout {
		return fmt.Errorf("server.write_timeout (%s) must exceed engine.verify_timeout (%s)",
			cfg.Server.WriteTimeout, cfg.Engine.VerifyTimeout)
	}

	if cfg.Model.Provider == "local" && cfg.Model.BaseURL == "" {
		return fmt.Errorf("model.base_url is required for the local provider")
	}

	return nil
}

// modelKeyEnvVars maps each provider to the environment variables checked,
// in order, when model.api_key is left empty.
var modelKeyEnvVars = map[string][]string{
	"huggingface": {"HF_API_TOKEN", "HUGGINGFACE_API_TOKEN"},
	"openai":      {"OPENAI_API_KEY"},
	"anthropic":   {"ANTHROPIC_API_KEY"},
	"google":      {"GOOGLE_API_KEY"},
}

// resolveModelAPIKey fills Model.APIKey from the provider's environment
// variable chain when the file and overrides left it empty. The local
// backend needs no key.
func resolveModelAPIKey(cfg *Config) {
	if cfg.Model.APIKey != "" {
		return
	}
	for _, envVar := range modelKeyEnvVars[cfg.Model.Provider] {
		if val := os.Getenv(envVar); val != "" {
			cfg.Model.APIKey = val
			return
		}
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Variables use the format QUALITYAPI_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	if val := os.Getenv("QUALITYAPI_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	overrideDuration("QUALITYAPI_SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout)
	overrideDuration("QUALITYAPI_SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout)
	overrideDuration("QUALITYAPI_SERVER_IDLE_TIMEOUT", &cfg.Server.IdleTimeout)
	overrideDuration("QUALITYAPI_SERVER_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	overrideInt("QUALITYAPI_SERVER_MAX_HEADER_BYTES", &cfg.Server.MaxHeaderBytes)
	overrideBoolPtr("QUALITYAPI_SERVER_CORS_ENABLED", &cfg.Server.CORS.Enabled)

	// Engine overrides
	overrideDuration("QUALITYAPI_ENGINE_VERIFY_TIMEOUT", &cfg.Engine.VerifyTimeout)
	overrideDuration("QUALITYAPI_ENGINE_MODEL_LOAD_TIMEOUT", &cfg.Engine.ModelLoadTimeout)
	overrideInt("QUALITYAPI_ENGINE_MIN_PARAMETERS", &cfg.Engine.MinParameters)
	overrideFloat("QUALITYAPI_ENGINE_COMPLIANCE_THRESHOLD", &cfg.Engine.ComplianceThreshold)

	// Model overrides
	if val := os.Getenv("QUALITYAPI_MODEL_PROVIDER"); val != "" {
		cfg.Model.Provider = val
	}
	if val := os.Getenv("QUALITYAPI_MODEL_MODEL_ID"); val != "" {
		cfg.Model.ModelID = val
	}
	if val := os.Getenv("QUALITYAPI_MODEL_API_KEY"); val != "" {
		cfg.Model.APIKey = val
	}
	if val := os.Getenv("QUALITYAPI_MODEL_BASE_URL"); val != "" {
		cfg.Model.BaseURL = val
	}
	overrideDuration("QUALITYAPI_MODEL_REQUEST_TIMEOUT", &cfg.Model.RequestTimeout)
	overrideInt("QUALITYAPI_MODEL_MAX_RETRIES", &cfg.Model.MaxRetries)
	overrideFloat("QUALITYAPI_MODEL_RATE_LIMIT_RPS", &cfg.Model.RateLimitRPS)
	overrideInt("QUALITYAPI_MODEL_RATE_LIMIT_BURST", &cfg.Model.RateLimitBurst)
	overrideInt("QUALITYAPI_MODEL_BREAKER_THRESHOLD", &cfg.Model.BreakerThreshold)
	overrideDuration("QUALITYAPI_MODEL_BREAKER_COOLDOWN", &cfg.Model.BreakerCooldown)

	// Extract overrides
	if val := os.Getenv("QUALITYAPI_EXTRACT_LAYOUT_ENDPOINT"); val != "" {
		cfg.Extract.LayoutEndpoint = val
	}
	if val := os.Getenv("QUALITYAPI_EXTRACT_LAYOUT_KEY"); val != "" {
		cfg.Extract.LayoutKey = val
	}
	overrideDuration("QUALITYAPI_EXTRACT_REQUEST_TIMEOUT", &cfg.Extract.RequestTimeout)
	overrideDuration("QUALITYAPI_EXTRACT_POLL_INTERVAL", &cfg.Extract.PollInterval)

	// Standards overrides
	if val := os.Getenv("QUALITYAPI_STANDARDS_FILE_PATH"); val != "" {
		cfg.Standards.FilePath = val
	}
	overrideBool("QUALITYAPI_STANDARDS_WATCH", &cfg.Standards.Watch)

	// Storage overrides
	if val := os.Getenv("QUALITYAPI_STORAGE_DATA_DIR"); val != "" {
		cfg.Storage.DataDir = val
	}
	if val := os.Getenv("QUALITYAPI_STORAGE_SQLITE_PATH"); val != "" {
		cfg.Storage.SQLitePath = val
	}
	overrideInt("QUALITYAPI_STORAGE_RETENTION_DAYS", &cfg.Storage.RetentionDays)
	if val := os.Getenv("QUALITYAPI_STORAGE_RETENTION_SCHEDULE"); val != "" {
		cfg.Storage.RetentionSchedule = val
	}

	// Telemetry overrides
	if val := os.Getenv("QUALITYAPI_TELEMETRY_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("QUALITYAPI_TELEMETRY_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	overrideBool("QUALITYAPI_TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	overrideBoolPtr("QUALITYAPI_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	if val := os.Getenv("QUALITYAPI_TELEMETRY_METRICS_PATH"); val != "" {
		cfg.Telemetry.Metrics.Path = val
	}
}

func overrideDuration(envVar string, target *time.Duration) {
	if val := os.Getenv(envVar); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*target = d
		}
	}
}

func overrideInt(envVar string, target *int) {
	if val := os.Getenv(envVar); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*target = i
		}
	}
}

func overrideFloat(envVar string, target *float64) {
	if val := os.Getenv(envVar); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*target = f
		}
	}
}

func overrideBool(envVar string, target *bool) {
	if val := os.Getenv(envVar); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*target = b
		}
	}
}

func overrideBoolPtr(envVar string, target **bool) {
	if val := os.Getenv(envVar); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*target = &b
		}
	}
}
