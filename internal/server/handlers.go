package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/extract"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
)

// maxUploadBytes bounds one multipart upload held in memory.
const maxUploadBytes = 32 << 20

// verifyConcurrency bounds how many uploaded documents are verified in
// parallel within one request.
const verifyConcurrency = 4

// documentResult is the per-file entry in a verify_document response.
type documentResult struct {
	Document             string                     `json:"document"`
	Status               string                     `json:"status"`
	Details              *domain.VerificationResult `json:"details,omitempty"`
	DocType              string                     `json:"doc_type,omitempty"`
	ProcessingInfo       *processingInfo            `json:"processing_info,omitempty"`
	CertificatePath      string                     `json:"certificate_path,omitempty"`
	CertificateGenerated *bool                      `json:"certificate_generated,omitempty"`
	CertificateError     string                     `json:"certificate_error,omitempty"`
	Error                string                     `json:"error,omitempty"`
}

type processingInfo struct {
	ParameterFile string           `json:"parameter_file,omitempty"`
	ModelInfo     domain.ModelInfo `json:"model_info"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	tokenStatus := "not_available"
	if s.classifier.Hosted() {
		tokenStatus = "available"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":            "Document Verification API is running",
		"status":             "healthy",
		"model_token_status": tokenStatus,
		"standard_file":      s.standards.FilePath(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"api_version":          apiVersion,
		"status":               "healthy",
		"model_provider":       s.cfg.Model.Provider,
		"model_state":          s.classifier.State().String(),
		"model_token":          tokenWord(s.classifier.Hosted()),
		"standard_file_exists": s.standards.Exists(),
		"directories": map[string]bool{
			"data":         dirExists(s.cfg.Storage.DataDir),
			"certificates": dirExists(s.certificates.Dir()),
		},
	}
	if s.store != nil {
		count, err := s.store.Count(r.Context())
		if err != nil {
			status["store"] = "error"
		} else {
			status["store"] = "healthy"
			status["recorded_runs"] = count
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	if !s.standards.Exists() {
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("standard file not found: %s", s.standards.FilePath()))
		return
	}
	if s.extractor == nil {
		writeError(w, http.StatusServiceUnavailable, "document extraction is not configured")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart request")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files uploaded")
		return
	}

	results := make([]documentResult, len(files))
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(verifyConcurrency)
	for i, header := range files {
		g.Go(func() error {
			results[i] = s.verifyOneDocument(ctx, header)
			return nil
		})
	}
	_ = g.Wait()

	writeJSON(w, http.StatusOK, map[string]any{
		"results":         results,
		"processed_count": len(results),
		"api_info": map[string]any{
			"model_token_used": s.classifier.Hosted(),
			"standard_file":    s.standards.FilePath(),
		},
	})
}

// verifyOneDocument runs the full pipeline for one uploaded file. Failures
// come back as an error entry for that file, never as a request failure.
func (s *Server) verifyOneDocument(ctx context.Context, header *multipart.FileHeader) documentResult {
	name := filepath.Base(header.Filename)

	data, err := readUpload(header)
	if err != nil {
		return documentResult{Document: name, Status: "error", Error: err.Error()}
	}

	docType := "Digital"
	if s.extractor.IsScanned(data) {
		docType = "Scanned"
	}

	doc, err := s.extractor.Extract(ctx, data)
	if err != nil {
		return documentResult{Document: name, Status: "error", Error: err.Error()}
	}

	paramFile := s.persistPreview(doc, name)

	engine, err := s.engine()
	if err != nil {
		return documentResult{Document: name, Status: "error", Error: err.Error()}
	}

	start := time.Now()
	result := engine.VerifyDocument(ctx, doc)
	s.recordRun(ctx, uuid.NewString(), name, result, time.Since(start))

	res := documentResult{
		Document: name,
		Status:   statusWord(result.OverallCompliant),
		Details:  &result,
		DocType:  docType,
		ProcessingInfo: &processingInfo{
			ParameterFile: paramFile,
			ModelInfo:     result.ModelInfo,
		},
	}

	if result.OverallCompliant && s.certifier != nil {
		certPath, certErr := s.certifier.Render(name, s.standards.Name(), result)
		if certErr != nil {
			res.CertificateError = certErr.Error()
			res.CertificateGenerated = boolPtr(false)
		} else {
			res.CertificatePath = certPath
			res.CertificateGenerated = boolPtr(true)
		}
	}
	return res
}

// persistPreview writes the per-upload parameter debugging JSON and returns
// its path, or empty when previews are disabled or the write fails.
func (s *Server) persistPreview(doc domain.DocumentData, documentName string) string {
	if s.preview == nil || s.cfg.Storage.DataDir == "" {
		return ""
	}
	base := strings.TrimSuffix(documentName, filepath.Ext(documentName))
	path := filepath.Join(s.cfg.Storage.DataDir, base+"_parameters.json")
	if err := extract.WritePreview(s.preview(doc), path); err != nil {
		s.logger.Warn("persisting parameter preview failed",
			"document", documentName, "error", err)
		return ""
	}
	return path
}

func (s *Server) handleVerifyFromJSON(w http.ResponseWriter, r *http.Request) {
	if !s.standards.Exists() {
		writeError(w, http.StatusInternalServerError,
			fmt.Sprintf("standard file not found: %s", s.standards.FilePath()))
		return
	}

	name, payload, err := readJSONUpload(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Malformed JSON degrades to an empty mapping, which the engine turns
	// into a valid no-parameters result rather than an HTTP failure.
	extracted := make(map[string]domain.ParameterEvidence)
	if err := json.Unmarshal(payload, &extracted); err != nil {
		s.logger.Warn("malformed parameter JSON, verifying empty mapping",
			"document", name, "error", err)
		extracted = map[string]domain.ParameterEvidence{}
	}

	engine, err := s.engine()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	start := time.Now()
	result := engine.VerifyParameters(r.Context(), extracted)
	s.recordRun(r.Context(), uuid.NewString(), name, result, time.Since(start))

	writeJSON(w, http.StatusOK, map[string]any{
		"document": name,
		"status":   statusWord(result.OverallCompliant),
		"details":  result,
		"source":   "json_parameters",
	})
}

// readJSONUpload accepts either a multipart upload with a "file" field or a
// raw JSON body.
func readJSONUpload(r *http.Request) (name string, payload []byte, err error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/") {
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			return "", nil, fmt.Errorf("invalid multipart request")
		}
		files := r.MultipartForm.File["file"]
		if len(files) == 0 {
			return "", nil, fmt.Errorf("no file uploaded")
		}
		payload, err := readUpload(files[0])
		if err != nil {
			return "", nil, err
		}
		return filepath.Base(files[0].Filename), payload, nil
	}

	payload, err = io.ReadAll(io.LimitReader(r.Body, maxUploadBytes))
	if err != nil {
		return "", nil, fmt.Errorf("reading request body: %w", err)
	}
	return "request_body.json", payload, nil
}

func (s *Server) handleListCertificates(w http.ResponseWriter, r *http.Request) {
	certs, err := s.certificates.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing certificates failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"certificates": certs,
		"total_count":  len(certs),
	})
}

func (s *Server) handleDownloadCertificate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	path, err := s.certificates.Path(name)
	if err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("certificate not found: %s", name))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	http.ServeFile(w, r, path)
}

func (s *Server) handleDeleteCertificate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if err := s.certificates.Delete(name); err != nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("certificate not found: %s", name))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Certificate %s deleted successfully", name),
	})
}

func (s *Server) handleListVerifications(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "verification history is not configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	runs, err := s.store.RecentRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing verification runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"verifications": runs,
		"total_count":   len(runs),
	})
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("opening upload %q: %w", header.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("reading upload %q: %w", header.Filename, err)
	}
	return data, nil
}

func statusWord(compliant bool) string {
	if compliant {
		return "passed"
	}
	return "failed"
}

func tokenWord(hosted bool) string {
	if hosted {
		return "available"
	}
	return "not_available"
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func boolPtr(b bool) *bool { return &b }
