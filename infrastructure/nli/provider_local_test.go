package nli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLocalProvider_DoClassify tests a classification round trip against a
// self-hosted inference server, which receives no credentials.
func TestLocalProvider_DoClassify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/models/facebook/bart-large-mnli", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"), "local server should receive no credentials")

		var req zeroShotRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req), "request body should decode")
		assert.Equal(t, "HMF: 12.4 mg/kg", req.Inputs)
		assert.Nil(t, req.Options, "local requests should not carry hosted-API options")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(zeroShotResponse{
			Labels: []string{"compliant", "non-compliant"},
			Scores: []float64{0.88, 0.12},
		})
	}))
	defer server.Close()

	client, err := NewClient("local", ClientConfig{
		Model:   "facebook/bart-large-mnli",
		BaseURL: server.URL,
	})
	require.NoError(t, err, "failed to create client")

	scores, err := client.Classify(context.Background(), "HMF: 12.4 mg/kg",
		[]string{"compliant", "non-compliant"})

	require.NoError(t, err, "classification should succeed")
	assert.InDelta(t, 0.88, scores["compliant"], 1e-9, "compliant score should match")
}

// TestLocalProvider_WarmupUsesHealthEndpoint tests that readiness is probed
// through the server's health endpoint.
func TestLocalProvider_WarmupUsesHealthEndpoint(t *testing.T) {
	var healthChecked bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			healthChecked = true
			w.WriteHeader(http.StatusOK)
			return
		}
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	defer server.Close()

	client, err := NewClient("local", ClientConfig{
		Model:   "facebook/bart-large-mnli",
		BaseURL: server.URL,
	})
	require.NoError(t, err, "failed to create client")

	err = client.Warmup(context.Background())

	require.NoError(t, err, "warmup should succeed")
	assert.True(t, healthChecked, "health endpoint should be probed")
}

// TestLocalProvider_WarmupFallsBackToClassification tests that servers
// without a health endpoint are probed with a small classification.
func TestLocalProvider_WarmupFallsBackToClassification(t *testing.T) {
	var classified bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		var req zeroShotRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req), "request body should decode")
		assert.Equal(t, "warmup probe", req.Inputs, "fallback should use the probe input")
		classified = true

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(zeroShotResponse{
			Labels: []string{"ready", "not ready"},
			Scores: []float64{0.95, 0.05},
		})
	}))
	defer server.Close()

	client, err := NewClient("local", ClientConfig{
		Model:   "facebook/bart-large-mnli",
		BaseURL: server.URL,
	})
	require.NoError(t, err, "failed to create client")

	err = client.Warmup(context.Background())

	require.NoError(t, err, "warmup should fall back to a classification probe")
	assert.True(t, classified, "classification probe should reach the backend")
}

// TestLocalProvider_WarmupReportsServerErrors tests that a failing health
// endpoint surfaces as a classified error.
func TestLocalProvider_WarmupReportsServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, err := NewClient("local", ClientConfig{
		Model:   "facebook/bart-large-mnli",
		BaseURL: server.URL,
	})
	require.NoError(t, err, "failed to create client")

	err = client.Warmup(context.Background())

	require.Error(t, err, "failing health endpoint should surface")

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr), "error should be a ProviderError")
	assert.Equal(t, ErrorTypeServerError, provErr.Type, "should classify as server error")
	assert.Equal(t, "local", provErr.Provider, "provider name should be preserved")
}

// TestLocalProvider_ClassificationErrorsAreClassified tests that HTTP error
// responses from the local server map onto the error taxonomy.
func TestLocalProvider_ClassificationErrorsAreClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("unknown model"))
	}))
	defer server.Close()

	client, err := NewClient("local", ClientConfig{
		Model:   "facebook/bart-large-mnli",
		BaseURL: server.URL,
	})
	require.NoError(t, err, "failed to create client")

	_, err = client.Classify(context.Background(), "evidence", []string{"compliant"})

	require.Error(t, err, "bad request should surface")

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr), "error should be a ProviderError")
	assert.Equal(t, ErrorTypeBadRequest, provErr.Type, "should classify as bad request")
	assert.False(t, provErr.IsRetryable(), "bad requests should not be retried")
}

// TestLocalProvider_Validation tests configuration validation at
// construction time.
func TestLocalProvider_Validation(t *testing.T) {
	_, err := newLocalProvider(ClientConfig{Model: "facebook/bart-large-mnli"})
	assert.ErrorIs(t, err, ErrEmptyBaseURL, "missing base URL should be rejected")

	_, err = newLocalProvider(ClientConfig{
		Model:   "facebook/bart-large-mnli",
		BaseURL: "not a url",
	})
	require.Error(t, err, "malformed base URL should be rejected")
}
