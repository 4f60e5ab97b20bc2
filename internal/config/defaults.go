package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "0.0.0.0:8000"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 60 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// Engine defaults
	DefaultVerifyTimeout       = 45 * time.Second
	DefaultModelLoadTimeout    = 60 * time.Second
	DefaultMinParameters       = 4
	DefaultComplianceThreshold = 0.60

	// Model defaults
	DefaultModelProvider    = "huggingface"
	DefaultModelID          = "facebook/bart-large-mnli"
	DefaultRequestTimeout   = 30 * time.Second
	DefaultMaxRetries       = 2
	DefaultRateLimitRPS     = 5.0
	DefaultRateLimitBurst   = 10
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 30 * time.Second

	// Extract defaults
	DefaultExtractTimeout      = 30 * time.Second
	DefaultExtractPollInterval = 2 * time.Second

	// Standards defaults
	DefaultStandardsPath = "data/standards.json"

	// Storage defaults
	DefaultDataDir           = "data"
	DefaultSQLitePath        = "data/verifications.db"
	DefaultRetentionDays     = 90
	DefaultRetentionSchedule = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = "json"
	DefaultMetricsPath   = "/metrics"
	DefaultNamespace     = "qualityapi"
)

// ApplyDefaults fills zero-valued fields with default values. It is
// idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	applyCORSDefaults(&cfg.Server.CORS)

	// Engine defaults
	if cfg.Engine.VerifyTimeout == 0 {
		cfg.Engine.VerifyTimeout = DefaultVerifyTimeout
	}
	if cfg.Engine.ModelLoadTimeout == 0 {
		cfg.Engine.ModelLoadTimeout = DefaultModelLoadTimeout
	}
	if cfg.Engine.MinParameters == 0 {
		cfg.Engine.MinParameters = DefaultMinParameters
	}
	if cfg.Engine.ComplianceThreshold == 0 {
		cfg.Engine.ComplianceThreshold = DefaultComplianceThreshold
	}

	// Model defaults
	if cfg.Model.Provider == "" {
		cfg.Model.Provider = DefaultModelProvider
	}
	if cfg.Model.ModelID == "" {
		cfg.Model.ModelID = DefaultModelID
	}
	if cfg.Model.RequestTimeout == 0 {
		cfg.Model.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Model.MaxRetries == 0 {
		cfg.Model.MaxRetries = DefaultMaxRetries
	}
	if cfg.Model.RateLimitRPS == 0 {
		cfg.Model.RateLimitRPS = DefaultRateLimitRPS
	}
	if cfg.Model.RateLimitBurst == 0 {
		cfg.Model.RateLimitBurst = DefaultRateLimitBurst
	}
	if cfg.Model.BreakerThreshold == 0 {
		cfg.Model.BreakerThreshold = DefaultBreakerThreshold
	}
	if cfg.Model.BreakerCooldown == 0 {
		cfg.Model.BreakerCooldown = DefaultBreakerCooldown
	}

	// Extract defaults
	if cfg.Extract.RequestTimeout == 0 {
		cfg.Extract.RequestTimeout = DefaultExtractTimeout
	}
	if cfg.Extract.PollInterval == 0 {
		cfg.Extract.PollInterval = DefaultExtractPollInterval
	}

	// Standards defaults
	if cfg.Standards.FilePath == "" {
		cfg.Standards.FilePath = DefaultStandardsPath
	}

	// Storage defaults
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = DefaultDataDir
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = DefaultSQLitePath
	}
	if cfg.Storage.RetentionDays == 0 {
		cfg.Storage.RetentionDays = DefaultRetentionDays
	}
	if cfg.Storage.RetentionSchedule == "" {
		cfg.Storage.RetentionSchedule = DefaultRetentionSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultNamespace
	}
	if cfg.Telemetry.Metrics.Enabled == nil {
		cfg.Telemetry.Metrics.Enabled = boolPtr(true)
	}
}

// applyCORSDefaults applies default values to CORS configuration.
func applyCORSDefaults(cors *CORSConfig) {
	if cors.Enabled == nil {
		cors.Enabled = boolPtr(true)
	}
	if len(cors.AllowedOrigins) == 0 {
		cors.AllowedOrigins = []string{"*"}
	}
	if len(cors.AllowedMethods) == 0 {
		cors.AllowedMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	}
	if len(cors.AllowedHeaders) == 0 {
		cors.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Request-ID"}
	}
}

func boolPtr(b bool) *bool { return &b }
