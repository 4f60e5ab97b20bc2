// Package extract turns uploaded document bytes into the text-and-tables
// structure the verification engine consumes. Extraction is keyword-driven
// and best-effort: only content mentioning a tracked parameter is kept, and
// the scan stops early once every parameter has been sighted.
package extract

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/ports"
)

// scannedTextThreshold is the first-page character count below which a PDF
// is treated as a scan rather than born-digital content.
const scannedTextThreshold = 100

// Processor implements document ingestion over two paths: a layout
// analysis service when one is configured, and native PDF text extraction
// as the fallback. Tables are only recovered on the layout path.
type Processor struct {
	layout *LayoutClient
	vocab  *domain.ParameterVocabulary
	logger *slog.Logger
}

var _ ports.DocumentExtractor = (*Processor)(nil)

// NewProcessor creates an ingestion processor. The layout client may be nil,
// which disables layout analysis entirely.
func NewProcessor(layout *LayoutClient, vocab *domain.ParameterVocabulary, logger *slog.Logger) *Processor {
	if vocab == nil {
		vocab = domain.DefaultVocabulary()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		layout: layout,
		vocab:  vocab,
		logger: logger.With("component", "extract"),
	}
}

// IsScanned reports whether the document appears to be a scan: fewer than
// 100 characters of extractable text on the first page. Documents that
// cannot be parsed at all are treated as scanned, sending them down the
// layout path where OCR can still recover content.
func (p *Processor) IsScanned(data []byte) bool {
	text, err := firstPageText(data)
	if err != nil {
		return true
	}
	return len(strings.TrimSpace(text)) < scannedTextThreshold
}

// Extract recovers text and tables from the document. The layout path is
// preferred whenever a client is configured; on layout failure or absence,
// born-digital documents fall back to native text extraction. A scanned
// document with no layout service yields ErrNoDocumentText, since there is
// nothing to read natively.
func (p *Processor) Extract(ctx context.Context, data []byte) (domain.DocumentData, error) {
	if len(data) == 0 {
		return domain.DocumentData{}, domain.ErrDocumentEmpty
	}

	if p.layout != nil {
		result, err := p.layout.Analyze(ctx, data)
		if err == nil {
			return p.filterLayoutResult(result), nil
		}
		p.logger.Warn("layout analysis failed, falling back to native extraction",
			"error", err)
	}

	text, err := nativeText(data)
	if err != nil || strings.TrimSpace(text) == "" {
		return domain.DocumentData{}, domain.ErrNoDocumentText
	}

	return domain.DocumentData{
		Text:   p.filterText(text),
		Tables: []domain.Table{},
	}, nil
}

// filterLayoutResult keeps only parameter-relevant lines and tables from a
// layout analysis, stopping early once every parameter has been sighted.
// A line is kept when it first sights a parameter; a table is kept whole
// when any cell sights one.
func (p *Processor) filterLayoutResult(result *layoutResult) domain.DocumentData {
	doc := domain.DocumentData{Tables: []domain.Table{}}
	found := make(map[string]struct{}, p.vocab.Len())

	var sb strings.Builder
pages:
	for _, page := range result.Pages {
		for _, line := range page.Lines {
			lower := strings.ToLower(line.Content)
			for _, param := range p.vocab.Parameters() {
				if _, ok := found[param]; ok {
					continue
				}
				if containsAnyKeyword(lower, p.vocab.Keywords(param)) {
					sb.WriteString(line.Content)
					sb.WriteString("\n")
					found[param] = struct{}{}
				}
			}
			if len(found) == p.vocab.Len() {
				break pages
			}
		}
	}
	doc.Text = sb.String()

	for _, table := range result.Tables {
		keep := false
		for _, cell := range table.Cells {
			lower := strings.ToLower(cell.Content)
			for _, param := range p.vocab.Parameters() {
				if _, ok := found[param]; ok {
					continue
				}
				if containsAnyKeyword(lower, p.vocab.Keywords(param)) {
					keep = true
					found[param] = struct{}{}
				}
			}
		}
		if keep {
			doc.Tables = append(doc.Tables, domain.Table{
				TableID: tableID(len(doc.Tables) + 1),
				Data:    table.Grid(),
			})
		}
		if len(found) == p.vocab.Len() {
			break
		}
	}

	return doc
}

// filterText keeps only the lines of natively extracted text that mention a
// tracked parameter, with the same early stop as the layout path.
func (p *Processor) filterText(text string) string {
	var sb strings.Builder
	found := make(map[string]struct{}, p.vocab.Len())

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		for _, param := range p.vocab.Parameters() {
			if _, ok := found[param]; ok {
				continue
			}
			if containsAnyKeyword(lower, p.vocab.Keywords(param)) {
				sb.WriteString(line)
				sb.WriteString("\n")
				found[param] = struct{}{}
			}
		}
		if len(found) == p.vocab.Len() {
			break
		}
	}
	return sb.String()
}

func containsAnyKeyword(haystack string, keywords []string) bool {
	for _, keyword := range keywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

func tableID(n int) string {
	return "table" + strconv.Itoa(n)
}
