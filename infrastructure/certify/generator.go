// Package certify renders quality certificates for compliant verification
// results and manages the certificate files on disk.
package certify

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
)

// ErrNotCompliant indicates a certificate was requested for a verification
// result that did not pass. Certificates exist only for compliant documents.
var ErrNotCompliant = errors.New("result is not compliant, no certificate issued")

// Certificate page palette.
var (
	gold     = rgb{218, 165, 32}
	darkBlue = rgb{25, 25, 112}
	gray     = rgb{100, 100, 100}
	green    = rgb{0, 128, 0}
	black    = rgb{0, 0, 0}
)

type rgb struct{ r, g, b int }

// Generator renders one-page PDF certificates into an output directory.
type Generator struct {
	outputDir string
	authority string
	logger    *slog.Logger
}

var _ ports.CertificateRenderer = (*Generator)(nil)

// NewGenerator creates a certificate generator writing into outputDir,
// creating the directory if needed. The authority name appears in the
// signature block; empty defaults to the issuing laboratory's name.
func NewGenerator(outputDir, authority string, logger *slog.Logger) (*Generator, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating certificates directory %q: %w", outputDir, err)
	}
	if authority == "" {
		authority = "Fujairah Research Center"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		outputDir: outputDir,
		authority: authority,
		logger:    logger.With("component", "certify"),
	}, nil
}

// Render writes a certificate for a compliant result and returns the path
// of the generated PDF. The file name follows the
// <document>_Certificate_<YYYYMMDD>.pdf pattern.
func (g *Generator) Render(documentName, standardName string, result domain.VerificationResult) (string, error) {
	if !result.OverallCompliant {
		return "", ErrNotCompliant
	}

	passed := 0
	for _, verdict := range result.ParameterResults {
		if verdict.Compliant {
			passed++
		}
	}
	total := len(result.ParameterResults)

	certID := "CERT-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	issued := time.Now()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetY(30)

	setFont(pdf, "B", 28, gold)
	centered(pdf, 15, "CERTIFICATE OF QUALITY")
	pdf.Ln(8)

	setFont(pdf, "", 14, darkBlue)
	centered(pdf, 10, "This is to certify that")
	pdf.Ln(3)

	setFont(pdf, "B", 18, black)
	centered(pdf, 12, fmt.Sprintf("%q", documentName))
	pdf.Ln(8)

	setFont(pdf, "", 14, green)
	centered(pdf, 10, "HAS SUCCESSFULLY PASSED")
	centered(pdf, 10, "ALL QUALITY VERIFICATION STANDARDS")
	pdf.Ln(12)

	setFont(pdf, "", 12, black)
	centered(pdf, 8, "Standards Applied: "+standardName)
	pdf.Ln(8)

	setFont(pdf, "B", 12, green)
	centered(pdf, 8, fmt.Sprintf("Parameters Verified: %d/%d PASSED", passed, total))
	pdf.Ln(15)

	setFont(pdf, "", 11, gray)
	centered(pdf, 6, "Certificate ID: "+certID)
	centered(pdf, 6, "Issue Date: "+issued.Format("January 2, 2006"))
	centered(pdf, 6, "Valid From: "+issued.Format("January 2, 2006"))
	centered(pdf, 6, "Status: COMPLIANT")
	pdf.Ln(15)

	setFont(pdf, "", 11, black)
	centered(pdf, 6, "Authorized by:")
	pdf.Ln(8)
	setFont(pdf, "B", 11, black)
	centered(pdf, 6, g.authority)

	setFont(pdf, "I", 8, gray)
	centered(pdf, 5, "This certificate confirms compliance with specified quality standards.")

	path := filepath.Join(g.outputDir, certificateFileName(documentName, issued))
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("writing certificate %q: %w", path, err)
	}

	g.logger.Info("certificate generated",
		"document", documentName,
		"certificate_id", certID,
		"path", path,
	)

	return path, nil
}

// certificateFileName builds the on-disk name, dropping the document's
// extension and replacing spaces so the name stays shell-friendly.
func certificateFileName(documentName string, issued time.Time) string {
	base := strings.TrimSuffix(documentName, filepath.Ext(documentName))
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("%s_Certificate_%s.pdf", base, issued.Format("20060102"))
}

func setFont(pdf *fpdf.Fpdf, style string, size float64, color rgb) {
	pdf.SetFont("Arial", style, size)
	pdf.SetTextColor(color.r, color.g, color.b)
}

func centered(pdf *fpdf.Fpdf, height float64, text string) {
	pdf.CellFormat(0, height, text, "", 1, "C", false, 0, "")
}
