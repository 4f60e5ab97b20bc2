package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/standards"
	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/telemetry"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
)

var standardsExtractFlags struct {
	output string
	model  string
}

var standardsCmd = &cobra.Command{
	Use:   "standards",
	Short: "Manage standard specifications",
}

var standardsExtractCmd = &cobra.Command{
	Use:   "extract <text-file>",
	Short: "Build a standard JSON from a standards-document text",
	Long: `Build a standard JSON by posing one extractive question per tracked
parameter to a question-answering model over the given standards-document
text. Parameters the model cannot answer come out empty and can be filled
in by hand.

The QA model needs a Hugging Face API token in HF_API_TOKEN or
HUGGINGFACE_API_TOKEN.`,
	Args: cobra.ExactArgs(1),
	RunE: runStandardsExtract,
}

func init() {
	rootCmd.AddCommand(standardsCmd)
	standardsCmd.AddCommand(standardsExtractCmd)

	standardsExtractCmd.Flags().StringVarP(&standardsExtractFlags.output, "output", "o", "", "output path for the standard JSON (default: config standards path)")
	standardsExtractCmd.Flags().StringVar(&standardsExtractFlags.model, "model", standards.HuggingFaceQADefaultModel, "question-answering model id")
}

func runStandardsExtract(cmd *cobra.Command, args []string) error {
	cfg := loadOrDefault()
	logger := telemetry.NewLogger(cfg.Telemetry.Logging)
	slog.SetDefault(logger)

	text, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %q: %w", args[0], err)
	}

	apiKey := os.Getenv("HF_API_TOKEN")
	if apiKey == "" {
		apiKey = os.Getenv("HUGGINGFACE_API_TOKEN")
	}
	answerer, err := standards.NewHuggingFaceAnswerer(apiKey, standardsExtractFlags.model, "", nil)
	if err != nil {
		return fmt.Errorf("building question answerer: %w", err)
	}

	extractor := standards.NewExtractor(answerer, domain.DefaultVocabulary(), logger)
	spec := extractor.Extract(cmd.Context(), string(text))

	output := standardsExtractFlags.output
	if output == "" {
		output = cfg.Standards.FilePath
	}
	if err := standards.WriteJSON(spec, output); err != nil {
		return fmt.Errorf("writing standard JSON: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d parameter requirements to %s\n", len(spec), output)
	return nil
}
