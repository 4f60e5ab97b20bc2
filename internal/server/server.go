// Package server exposes the verification service over HTTP: document
// upload and verification, pre-extracted parameter verification,
// certificate management, audit history, and health/metrics surfaces.
//
// Engines are request-scoped: each verification builds one from the standard
// registry's current spec so a hot-reloaded standard takes effect on the
// next request. The classifier, with its sticky model state, is shared.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/certify"
	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/extract"
	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/standards"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/config"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/verification"
)

// apiVersion is reported on the status surface.
const apiVersion = "1.0"

// Options carries the collaborators the server wires together. Config,
// Classifier, Standards, and Certificates are required. Extractor may be
// nil, which rejects document uploads; Store may be nil, which disables
// audit recording; Gatherer defaults to the prometheus default gatherer.
type Options struct {
	Config       *config.Config
	Classifier   *verification.Classifier
	Standards    *standards.Registry
	Vocabulary   *domain.ParameterVocabulary
	Extractor    ports.DocumentExtractor
	Preview      func(domain.DocumentData) map[string]extract.ParameterPreview
	Certifier    ports.CertificateRenderer
	Certificates *certify.Registry
	Store        ports.RunStore
	Logger       *slog.Logger
	Metrics      ports.MetricsCollector
	Gatherer     prometheus.Gatherer
}

// Server is the HTTP face of the verification service.
type Server struct {
	cfg          *config.Config
	classifier   *verification.Classifier
	standards    *standards.Registry
	vocab        *domain.ParameterVocabulary
	extractor    ports.DocumentExtractor
	preview      func(domain.DocumentData) map[string]extract.ParameterPreview
	certifier    ports.CertificateRenderer
	certificates *certify.Registry
	store        ports.RunStore
	logger       *slog.Logger
	metrics      ports.MetricsCollector
	gatherer     prometheus.Gatherer

	httpServer *http.Server
}

// New assembles a server from its collaborators.
func New(opts Options) (*Server, error) {
	if opts.Config == nil {
		return nil, errors.New("config is required")
	}
	if opts.Classifier == nil {
		return nil, errors.New("classifier is required")
	}
	if opts.Standards == nil {
		return nil, errors.New("standards registry is required")
	}
	if opts.Certificates == nil {
		return nil, errors.New("certificate registry is required")
	}
	if opts.Vocabulary == nil {
		opts.Vocabulary = domain.DefaultVocabulary()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	return &Server{
		cfg:          opts.Config,
		classifier:   opts.Classifier,
		standards:    opts.Standards,
		vocab:        opts.Vocabulary,
		extractor:    opts.Extractor,
		preview:      opts.Preview,
		certifier:    opts.Certifier,
		certificates: opts.Certificates,
		store:        opts.Store,
		logger:       opts.Logger.With("component", "server"),
		metrics:      opts.Metrics,
		gatherer:     opts.Gatherer,
	}, nil
}

// Handler builds the full route table wrapped in the middleware chain:
// recovery, request ID, logging, CORS, and the per-request timeout.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /verify_document", s.handleVerifyDocument)
	mux.HandleFunc("POST /verify_from_json", s.handleVerifyFromJSON)
	mux.HandleFunc("GET /certificates", s.handleListCertificates)
	mux.HandleFunc("GET /certificates/{name}", s.handleDownloadCertificate)
	mux.HandleFunc("DELETE /certificates/{name}", s.handleDeleteCertificate)
	mux.HandleFunc("GET /verifications", s.handleListVerifications)

	if s.cfg.Telemetry.Metrics.IsEnabled() {
		mux.Handle("GET "+s.cfg.Telemetry.Metrics.Path,
			promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	var handler http.Handler = mux
	handler = timeoutMiddleware(s.cfg.Server.WriteTimeout)(handler)
	handler = corsMiddleware(s.cfg.Server.CORS)(handler)
	handler = loggingMiddleware(s.logger)(handler)
	handler = requestIDMiddleware(handler)
	handler = recoveryMiddleware(s.logger)(handler)
	return handler
}

// Start runs the HTTP server until ctx is cancelled or the listener fails,
// then drains in-flight requests within the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:           s.cfg.Server.ListenAddress,
		Handler:        s.Handler(),
		ReadTimeout:    s.cfg.Server.ReadTimeout,
		WriteTimeout:   s.cfg.Server.WriteTimeout,
		IdleTimeout:    s.cfg.Server.IdleTimeout,
		MaxHeaderBytes: s.cfg.Server.MaxHeaderBytes,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", s.cfg.Server.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errChan:
		return err
	}
}

// engine builds a request-scoped engine over the registry's current
// standard spec.
func (s *Server) engine() (*verification.Engine, error) {
	engineCfg := verification.EngineConfig{
		VerifyTimeout:       s.cfg.Engine.VerifyTimeout,
		MinParameters:       s.cfg.Engine.MinParameters,
		ComplianceThreshold: s.cfg.Engine.ComplianceThreshold,
	}
	return verification.NewEngine(
		s.standards.Current(), s.vocab, s.classifier, engineCfg, s.logger, s.metrics)
}

// recordRun persists an audit record for one verification, logging rather
// than failing when the store is absent or the insert errors.
func (s *Server) recordRun(ctx context.Context, runID, document string, result domain.VerificationResult, elapsed time.Duration) {
	if s.store == nil {
		return
	}
	run := domain.NewVerificationRun(runID, document, result, elapsed)
	if err := s.store.RecordRun(ctx, run); err != nil {
		s.logger.Warn("recording verification run failed",
			"run_id", runID, "document", document, "error", err)
	}
}
