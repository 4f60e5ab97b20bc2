package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/standards"
	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/telemetry"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/config"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/verification"
)

var verifyFlags struct {
	noModel bool
}

var verifyCmd = &cobra.Command{
	Use:   "verify <file.pdf|params.json>",
	Short: "Verify one document or parameter file and print the result",
	Long: `Verify a single input against the configured standard and print the
verification result as JSON on stdout.

A .json input is treated as pre-extracted parameter evidence; anything else
is ingested as a document first.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.Flags().BoolVar(&verifyFlags.noModel, "no-model", false, "skip the entailment model and use rule-based verification")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := loadOrDefault()
	if !verbose {
		cfg.Telemetry.Logging.Level = "error"
	}
	logger := telemetry.NewLogger(cfg.Telemetry.Logging)
	slog.SetDefault(logger)

	vocab := domain.DefaultVocabulary()
	standardsRegistry := standards.NewRegistry(cfg.Standards.FilePath, vocab, logger)

	client := buildVerifyClient(cfg, logger)
	classifier := verification.NewClassifier(client, cfg.Engine.ModelLoadTimeout, logger, nil)

	engine, err := verification.NewEngine(
		standardsRegistry.Current(), vocab, classifier,
		verification.EngineConfig{
			VerifyTimeout:       cfg.Engine.VerifyTimeout,
			MinParameters:       cfg.Engine.MinParameters,
			ComplianceThreshold: cfg.Engine.ComplianceThreshold,
		}, logger, nil)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	path := args[0]
	var result domain.VerificationResult
	if strings.EqualFold(filepath.Ext(path), ".json") {
		result, err = verifyParameterFile(cmd, engine, path)
	} else {
		result, err = verifyDocumentFile(cmd, cfg, vocab, logger, engine, path)
	}
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func verifyParameterFile(cmd *cobra.Command, engine *verification.Engine, path string) (domain.VerificationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.VerificationResult{}, fmt.Errorf("reading %q: %w", path, err)
	}
	extracted := make(map[string]domain.ParameterEvidence)
	if err := json.Unmarshal(data, &extracted); err != nil {
		return domain.VerificationResult{}, fmt.Errorf("parsing parameter JSON %q: %w", path, err)
	}
	return engine.VerifyParameters(cmd.Context(), extracted), nil
}

func verifyDocumentFile(cmd *cobra.Command, cfg *config.Config, vocab *domain.ParameterVocabulary, logger *slog.Logger, engine *verification.Engine, path string) (domain.VerificationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.VerificationResult{}, fmt.Errorf("reading %q: %w", path, err)
	}
	processor, _ := buildProcessor(cfg, vocab, logger)
	doc, err := processor.Extract(cmd.Context(), data)
	if err != nil {
		return domain.VerificationResult{}, fmt.Errorf("extracting %q: %w", path, err)
	}
	return engine.VerifyDocument(cmd.Context(), doc), nil
}

func buildVerifyClient(cfg *config.Config, logger *slog.Logger) ports.EntailmentClient {
	if verifyFlags.noModel {
		return nil
	}
	return buildEntailmentClient(cfg.Model, nil, logger)
}

// loadOrDefault loads the configured file, falling back to defaults when it
// does not exist so one-shot commands work without any setup.
func loadOrDefault() *config.Config {
	if _, err := os.Stat(cfgFile); err != nil {
		return config.Default()
	}
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config %s: %v; using defaults\n", cfgFile, err)
		return config.Default()
	}
	return cfg
}
