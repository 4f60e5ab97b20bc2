package domain

import "errors"

// Sentinel errors shared across the service layers. The verification engine
// itself is total and never returns these; they belong to the collaborators
// around it (ingestion, certification) and are matched with errors.Is.
var (
	// ErrDocumentEmpty indicates an ingestion request carried no content.
	ErrDocumentEmpty = errors.New("document is empty")

	// ErrNoDocumentText indicates ingestion could not recover any text
	// from a document through any available extraction path.
	ErrNoDocumentText = errors.New("no text could be extracted from document")

	// ErrCertificateNotFound indicates a certificate lookup by name did not
	// match any stored certificate.
	ErrCertificateNotFound = errors.New("certificate not found")
)
