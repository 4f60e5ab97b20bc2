package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/certify"
	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/extract"
	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/nli"
	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/standards"
	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/telemetry"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/config"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/server"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/store"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/verification"
)

var serveFlags struct {
	listenAddress string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the verification HTTP service",
	Long: `Run the verification HTTP service with the specified configuration.

The service accepts document uploads, verifies them against the configured
standard, records each run in the audit store, and issues certificates for
compliant documents.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&serveFlags.listenAddress, "listen", "l", "", "override listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serveFlags.listenAddress != "" {
		cfg.Server.ListenAddress = serveFlags.listenAddress
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger := telemetry.NewLogger(cfg.Telemetry.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	metrics := telemetry.NewPrometheusMetrics(cfg.Telemetry.Metrics.Namespace, registry)

	vocab := domain.DefaultVocabulary()

	standardsRegistry := standards.NewRegistry(cfg.Standards.FilePath, vocab, logger)
	if cfg.Standards.Watch {
		go func() {
			if err := standardsRegistry.Watch(ctx); err != nil {
				logger.Warn("standard file watch unavailable", "error", err)
			}
		}()
	}

	client := buildEntailmentClient(cfg.Model, metrics, logger)
	classifier := verification.NewClassifier(client, cfg.Engine.ModelLoadTimeout, logger, metrics)

	runStore, err := store.NewSQLiteStore(store.Config{
		Path:    cfg.Storage.SQLitePath,
		WALMode: true,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening run store: %w", err)
	}
	defer runStore.Close()

	certDir := filepath.Join(cfg.Storage.DataDir, "certificates")
	certRegistry, err := certify.NewRegistry(certDir)
	if err != nil {
		return fmt.Errorf("preparing certificates directory: %w", err)
	}
	generator, err := certify.NewGenerator(certDir, "", logger)
	if err != nil {
		return fmt.Errorf("preparing certificate generator: %w", err)
	}

	if cfg.Storage.RetentionSchedule != "" && cfg.Storage.RetentionDays > 0 {
		sweeper := store.NewSweeper(runStore, store.RetentionConfig{
			RetentionDays:   cfg.Storage.RetentionDays,
			Schedule:        cfg.Storage.RetentionSchedule,
			CertificatesDir: certDir,
		}, logger)
		if err := sweeper.Start(ctx); err != nil {
			return fmt.Errorf("starting retention sweeper: %w", err)
		}
		defer sweeper.Stop()
	}

	processor, preview := buildProcessor(cfg, vocab, logger)

	srv, err := server.New(server.Options{
		Config:       cfg,
		Classifier:   classifier,
		Standards:    standardsRegistry,
		Vocabulary:   vocab,
		Extractor:    processor,
		Preview:      preview,
		Certifier:    generator,
		Certificates: certRegistry,
		Store:        runStore,
		Logger:       logger,
		Metrics:      metrics,
		Gatherer:     registry,
	})
	if err != nil {
		return fmt.Errorf("assembling server: %w", err)
	}

	return srv.Start(ctx)
}

// buildEntailmentClient assembles the model client with its middleware
// chain. A construction failure downgrades to rule-based verification
// instead of refusing to start.
func buildEntailmentClient(cfg config.ModelConfig, metrics ports.MetricsCollector, logger *slog.Logger) ports.EntailmentClient {
	middleware := []nli.Middleware{nli.TracingMiddleware("qualityapi")}
	if metrics != nil {
		middleware = append(middleware, nli.MetricsMiddleware(metrics))
	}
	middleware = append(middleware,
		nli.RateLimitMiddleware(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
		nli.CircuitBreakerMiddleware(cfg.BreakerThreshold, cfg.BreakerCooldown),
		nli.RetryMiddleware(cfg.MaxRetries, 500*time.Millisecond, 5*time.Second),
		nli.TimeoutMiddleware(cfg.RequestTimeout),
	)

	client, err := nli.NewClient(cfg.Provider, nli.ClientConfig{
		APIKey:     cfg.APIKey,
		Model:      cfg.ModelID,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.RequestTimeout,
		Middleware: middleware,
	})
	if err != nil {
		logger.Warn("entailment client unavailable, using rule-based verification",
			"provider", cfg.Provider, "error", err)
		return nil
	}
	return client
}

// buildProcessor assembles the ingestion pipeline. Without a layout
// endpoint only native text extraction is available.
func buildProcessor(cfg *config.Config, vocab *domain.ParameterVocabulary, logger *slog.Logger) (*extract.Processor, func(domain.DocumentData) map[string]extract.ParameterPreview) {
	var layout *extract.LayoutClient
	if cfg.Extract.LayoutEndpoint != "" {
		var err error
		layout, err = extract.NewLayoutClient(
			cfg.Extract.LayoutEndpoint, cfg.Extract.LayoutKey,
			cfg.Extract.RequestTimeout, cfg.Extract.PollInterval)
		if err != nil {
			logger.Warn("layout analysis unavailable, native extraction only", "error", err)
		}
	}
	processor := extract.NewProcessor(layout, vocab, logger)
	return processor, processor.Preview
}
