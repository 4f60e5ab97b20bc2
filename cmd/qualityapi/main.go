// Qualityapi verifies honey quality assay documents against a product
// standard and issues compliance certificates.
//
// It serves an HTTP API for document upload, verification, certificate
// management, and audit history, backed by a zero-shot entailment model
// with a deterministic rule fallback.
//
// Usage:
//
//	# Start the service with default configuration
//	qualityapi serve
//
//	# Start with a custom configuration file
//	qualityapi serve --config /etc/qualityapi/config.yaml
//
//	# Verify one document or parameter file from the command line
//	qualityapi verify assay_report.pdf
//	qualityapi verify extracted_params.json
//
//	# Build a standard JSON from a standards-document text
//	qualityapi standards extract gso_standard.txt -o standards/gso_honey_standard.json
//
//	# Show version information
//	qualityapi version
package main

func main() {
	Execute()
}
