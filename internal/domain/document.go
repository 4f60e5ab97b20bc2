// Package domain defines the core types for quality-document verification:
// the document content model produced by ingestion, the per-parameter
// evidence gathered from it, the verdicts the engine renders, and the
// standard specification those verdicts are judged against.
//
// Types in this package are plain values with no behavior beyond small
// accessors. They carry JSON tags because they cross the service boundary
// unchanged: ingestion output, pre-extracted parameter uploads, and
// verification results all serialize to these shapes.
package domain

import "fmt"

// Table is one table lifted from a source document, preserved as the raw
// cell grid the layout stage produced. Cells are kept as strings; no typing
// or header detection is attempted at this level.
type Table struct {
	// TableID identifies the table within its document, in extraction order.
	TableID string `json:"table_id"`

	// Data holds the cell grid, outer slice rows, inner slice cells.
	// Rows may be ragged; callers must not assume uniform width.
	Data [][]string `json:"data"`
}

// String renders the whole cell grid as a single flat string.
// Evidence collection matches keywords against this coarse form and attaches
// the entire rendered table as evidence, not individual cells.
func (t Table) String() string {
	return fmt.Sprintf("%v", t.Data)
}

// DocumentData is the read-only content of one source document as produced
// by the ingestion collaborator: the full extracted text plus any tables
// recognized by layout analysis. The verification engine never mutates it.
type DocumentData struct {
	// Text is the document's extracted free text.
	Text string `json:"text"`

	// Tables holds recognized tables in document order. May be empty when
	// extraction ran without layout analysis.
	Tables []Table `json:"tables"`
}
