package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/certify"
	"github.com/IbtissamEchchaibi19/qualityapi/infrastructure/standards"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/config"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/store"
	"github.com/IbtissamEchchaibi19/qualityapi/internal/verification"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExtractor returns a fixed document for every upload.
type fakeExtractor struct {
	doc     domain.DocumentData
	scanned bool
	err     error
}

func (f *fakeExtractor) IsScanned(data []byte) bool { return f.scanned }

func (f *fakeExtractor) Extract(ctx context.Context, data []byte) (domain.DocumentData, error) {
	if f.err != nil {
		return domain.DocumentData{}, f.err
	}
	return f.doc, nil
}

// compliantDocument mentions four standard parameters, enough to clear the
// minimum-coverage gate with the rule-based classifier's lenient default.
func compliantDocument() domain.DocumentData {
	return domain.DocumentData{
		Text: "Moisture 17.5 %\nHMF 12 mg/kg\nDiastase 10 schade\nFree acidity 30 meq/kg\n",
	}
}

func writeStandardFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gso_honey_standard.json")
	spec := map[string]string{
		"moisture_content":  "maximum 20 %",
		"hMF_content":       "maximum 80 mg/kg",
		"diastase_activity": "minimum 8 schade units",
		"free_acidity":      "maximum 50 meq/kg",
	}
	data, err := json.Marshal(spec)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newTestServer(t *testing.T, mutate func(*Options)) *Server {
	t.Helper()

	cfg := config.Default()
	cfg.Storage.DataDir = t.TempDir()
	cfg.Standards.FilePath = writeStandardFile(t)

	logger := discardLogger()
	registry := standards.NewRegistry(cfg.Standards.FilePath, nil, logger)
	classifier := verification.NewClassifier(nil, time.Millisecond, logger, nil)

	certDir := t.TempDir()
	certRegistry, err := certify.NewRegistry(certDir)
	require.NoError(t, err)
	generator, err := certify.NewGenerator(certDir, "", logger)
	require.NoError(t, err)

	opts := Options{
		Config:       cfg,
		Classifier:   classifier,
		Standards:    registry,
		Extractor:    &fakeExtractor{doc: compliantDocument()},
		Certifier:    generator,
		Certificates: certRegistry,
		Logger:       logger,
		Gatherer:     prometheus.NewRegistry(),
	}
	if mutate != nil {
		mutate(&opts)
	}

	srv, err := New(opts)
	require.NoError(t, err)
	return srv
}

func doRequest(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "not_available", body["model_token_status"])
	assert.NotEmpty(t, body["standard_file"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestStatusEndpoint(t *testing.T) {
	runStore, err := store.NewSQLiteStore(store.Config{
		Path:    filepath.Join(t.TempDir(), "runs.db"),
		WALMode: true,
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { runStore.Close() })

	srv := newTestServer(t, func(o *Options) { o.Store = runStore })

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, apiVersion, body["api_version"])
	assert.Equal(t, true, body["standard_file_exists"])
	assert.Equal(t, "healthy", body["store"])
	assert.Equal(t, "unavailable", body["model_state"])
}

func multipartBody(t *testing.T, field string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := writer.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestVerifyDocumentCompliantGeneratesCertificate(t *testing.T) {
	srv := newTestServer(t, nil)

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"assay_report.pdf": []byte("%PDF-1.4 fake"),
	})
	req := httptest.NewRequest(http.MethodPost, "/verify_document", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody(t, rec)
	assert.EqualValues(t, 1, resp["processed_count"])

	results := resp["results"].([]any)
	require.Len(t, results, 1)
	result := results[0].(map[string]any)
	assert.Equal(t, "assay_report.pdf", result["document"])
	assert.Equal(t, "passed", result["status"])
	assert.Equal(t, "Digital", result["doc_type"])
	assert.Equal(t, true, result["certificate_generated"])
	assert.NotEmpty(t, result["certificate_path"])

	certs, err := srv.certificates.List()
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.True(t, strings.HasSuffix(certs[0].Name, ".pdf"))
}

func TestVerifyDocumentExtractionErrorIsPerFile(t *testing.T) {
	srv := newTestServer(t, func(o *Options) {
		o.Extractor = &fakeExtractor{err: domain.ErrNoDocumentText}
	})

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"broken.pdf": []byte("junk"),
	})
	req := httptest.NewRequest(http.MethodPost, "/verify_document", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	results := decodeBody(t, rec)["results"].([]any)
	require.Len(t, results, 1)
	result := results[0].(map[string]any)
	assert.Equal(t, "error", result["status"])
	assert.Contains(t, result["error"], "no text")
}

func TestVerifyDocumentNoFiles(t *testing.T) {
	srv := newTestServer(t, nil)

	body, contentType := multipartBody(t, "unused", nil)
	req := httptest.NewRequest(http.MethodPost, "/verify_document", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(t, srv, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVerifyDocumentMissingStandardFile(t *testing.T) {
	srv := newTestServer(t, nil)
	require.NoError(t, os.Remove(srv.standards.FilePath()))

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"assay_report.pdf": []byte("%PDF"),
	})
	req := httptest.NewRequest(http.MethodPost, "/verify_document", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(t, srv, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestVerifyFromJSON(t *testing.T) {
	srv := newTestServer(t, nil)

	payload := map[string]domain.ParameterEvidence{
		"moisture_content":  {Sections: []string{"moisture 17.5 %"}},
		"hMF_content":       {Sections: []string{"hmf 12 mg/kg"}},
		"diastase_activity": {Sections: []string{"diastase 10 schade"}},
		"free_acidity":      {Sections: []string{"acidity 30 meq/kg"}},
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/verify_from_json", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")

	rec := doRequest(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "passed", body["status"])
	assert.Equal(t, "json_parameters", body["source"])

	details := body["details"].(map[string]any)
	assert.EqualValues(t, 4, details["parameters_checked"])
}

func TestVerifyFromJSONMalformedDegradesToValidResult(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/verify_from_json",
		strings.NewReader("{not valid json"))
	req.Header.Set("Content-Type", "application/json")

	rec := doRequest(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "failed", body["status"])

	details := body["details"].(map[string]any)
	paramResults := details["parameter_results"].(map[string]any)
	assert.Contains(t, paramResults, domain.SentinelNoParameters)
}

func TestVerifyFromJSONMultipartUpload(t *testing.T) {
	srv := newTestServer(t, nil)

	payload, err := json.Marshal(map[string]domain.ParameterEvidence{
		"moisture_content": {Sections: []string{"moisture 17.5 %"}},
	})
	require.NoError(t, err)

	body, contentType := multipartBody(t, "file", map[string][]byte{
		"params.json": payload,
	})
	req := httptest.NewRequest(http.MethodPost, "/verify_from_json", body)
	req.Header.Set("Content-Type", contentType)

	rec := doRequest(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody(t, rec)
	assert.Equal(t, "params.json", resp["document"])
	// One parameter is below the minimum-coverage gate.
	assert.Equal(t, "failed", resp["status"])
}

func TestCertificateLifecycle(t *testing.T) {
	srv := newTestServer(t, nil)

	result := domain.VerificationResult{
		OverallCompliant:  true,
		ComplianceReason:  "4 out of 4 compliant (100.0%)",
		ParametersChecked: 4,
	}
	_, err := srv.certifier.Render("assay_report.pdf", "gso_honey_standard", result)
	require.NoError(t, err)

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/certificates", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody(t, rec)
	assert.EqualValues(t, 1, list["total_count"])

	name := list["certificates"].([]any)[0].(map[string]any)["name"].(string)

	rec = doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/certificates/"+name, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = doRequest(t, srv, httptest.NewRequest(http.MethodDelete, "/certificates/"+name, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/certificates/"+name, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCertificateTraversalRejected(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/certificates/..%2Fsecrets.pdf", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListVerifications(t *testing.T) {
	runStore, err := store.NewSQLiteStore(store.Config{
		Path:    filepath.Join(t.TempDir(), "runs.db"),
		WALMode: true,
	}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { runStore.Close() })

	srv := newTestServer(t, func(o *Options) { o.Store = runStore })

	body, contentType := multipartBody(t, "files", map[string][]byte{
		"assay_report.pdf": []byte("%PDF"),
	})
	req := httptest.NewRequest(http.MethodPost, "/verify_document", body)
	req.Header.Set("Content-Type", contentType)
	require.Equal(t, http.StatusOK, doRequest(t, srv, req).Code)

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/verifications", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody(t, rec)
	assert.EqualValues(t, 1, resp["total_count"])
	run := resp["verifications"].([]any)[0].(map[string]any)
	assert.Equal(t, "assay_report.pdf", run["document"])
	assert.Equal(t, true, run["overall_compliant"])
}

func TestListVerificationsWithoutStore(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/verifications", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/verify_document", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := doRequest(t, srv, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

func TestRequestIDEchoed(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-chosen-id")
	rec := doRequest(t, srv, req)

	assert.Equal(t, "client-chosen-id", rec.Header().Get(RequestIDHeader))
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := recoveryMiddleware(discardLogger())(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) { panic("boom") }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := newTestServer(t, func(o *Options) { o.Gatherer = reg })

	rec := doRequest(t, srv, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
