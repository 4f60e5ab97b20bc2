package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// firstPageText extracts the text of a PDF's first page only, used by the
// scanned-document heuristic. Any parse failure returns an error so the
// caller can default to the scanned path.
func firstPageText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	if reader.NumPage() < 1 {
		return "", fmt.Errorf("pdf has no pages")
	}

	page := reader.Page(1)
	if page.V.IsNull() {
		return "", fmt.Errorf("pdf first page unreadable")
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("extracting first page text: %w", err)
	}
	return text, nil
}

// nativeText extracts the full text of a born-digital PDF page by page.
// Pages that fail to parse are skipped; the result is whatever text the
// readable pages yielded.
func nativeText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
