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

// TestHuggingFaceProvider_DoClassify tests a successful zero-shot
// classification round trip, including the wire format of the request.
func TestHuggingFaceProvider_DoClassify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/models/facebook/bart-large-mnli", r.URL.Path)
		assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))

		var req zeroShotRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req), "request body should decode")
		assert.Equal(t, "Moisture content: 17.2%", req.Inputs)
		assert.Equal(t, []string{"compliant", "non-compliant"}, req.Parameters.CandidateLabels)
		require.NotNil(t, req.Options, "options should be sent")
		assert.False(t, req.Options.WaitForModel, "classification should not wait for a cold model")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(zeroShotResponse{
			Sequence: req.Inputs,
			Labels:   []string{"compliant", "non-compliant"},
			Scores:   []float64{0.92, 0.08},
		})
	}))
	defer server.Close()

	client, err := NewClient("huggingface", ClientConfig{
		APIKey:  "test-api-key",
		Model:   "facebook/bart-large-mnli",
		BaseURL: server.URL,
	})
	require.NoError(t, err, "failed to create client")

	scores, err := client.Classify(context.Background(), "Moisture content: 17.2%",
		[]string{"compliant", "non-compliant"})

	require.NoError(t, err, "classification should succeed")
	assert.InDelta(t, 0.92, scores["compliant"], 1e-9, "compliant score should match")
	assert.InDelta(t, 0.08, scores["non-compliant"], 1e-9, "non-compliant score should match")
}

// TestHuggingFaceProvider_ArrayWrappedResponse tests that responses wrapped
// in a single-element array are unwrapped.
func TestHuggingFaceProvider_ArrayWrappedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]zeroShotResponse{{
			Labels: []string{"compliant", "non-compliant"},
			Scores: []float64{0.6, 0.4},
		}})
	}))
	defer server.Close()

	client, err := NewClient("huggingface", ClientConfig{
		APIKey:  "test-api-key",
		Model:   "facebook/bart-large-mnli",
		BaseURL: server.URL,
	})
	require.NoError(t, err, "failed to create client")

	scores, err := client.Classify(context.Background(), "evidence",
		[]string{"compliant", "non-compliant"})

	require.NoError(t, err, "array-wrapped response should parse")
	assert.InDelta(t, 0.6, scores["compliant"], 1e-9, "compliant score should match")
}

// TestHuggingFaceProvider_ModelLoading tests that a 503 with an
// estimated_time hint is classified as a retryable model-loading error.
func TestHuggingFaceProvider_ModelLoading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(apiErrorResponse{
			Error:         "Model facebook/bart-large-mnli is currently loading",
			EstimatedTime: 20.0,
		})
	}))
	defer server.Close()

	client, err := NewClient("huggingface", ClientConfig{
		APIKey:  "test-api-key",
		Model:   "facebook/bart-large-mnli",
		BaseURL: server.URL,
	})
	require.NoError(t, err, "failed to create client")

	_, err = client.Classify(context.Background(), "evidence", []string{"compliant"})

	require.Error(t, err, "loading model should produce an error")

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr), "error should be a ProviderError")
	assert.Equal(t, ErrorTypeModelLoading, provErr.Type, "should classify as model loading")
	assert.True(t, provErr.IsRetryable(), "model loading should be retryable")
	assert.Equal(t, 503, provErr.StatusCode, "status code should be preserved")
	assert.Contains(t, provErr.Message, "estimated 20s", "message should carry the loading estimate")
}

// TestHuggingFaceProvider_AuthenticationFailure tests that a 401 is
// classified as a non-retryable authentication error.
func TestHuggingFaceProvider_AuthenticationFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(apiErrorResponse{Error: "Invalid credentials"})
	}))
	defer server.Close()

	client, err := NewClient("huggingface", ClientConfig{
		APIKey:  "bad-api-key",
		Model:   "facebook/bart-large-mnli",
		BaseURL: server.URL,
	})
	require.NoError(t, err, "failed to create client")

	_, err = client.Classify(context.Background(), "evidence", []string{"compliant"})

	require.Error(t, err, "bad credentials should produce an error")

	var provErr *ProviderError
	require.True(t, errors.As(err, &provErr), "error should be a ProviderError")
	assert.Equal(t, ErrorTypeAuthentication, provErr.Type, "should classify as authentication")
	assert.False(t, provErr.IsRetryable(), "authentication errors should not be retried")
}

// TestHuggingFaceProvider_Warmup tests that the readiness probe issues a
// minimal classification with model waiting enabled.
func TestHuggingFaceProvider_Warmup(t *testing.T) {
	var probed bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req zeroShotRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req), "request body should decode")
		require.NotNil(t, req.Options, "options should be sent")
		assert.True(t, req.Options.WaitForModel, "warmup should wait for the model")
		assert.Equal(t, "warmup probe", req.Inputs, "warmup should use the probe input")
		probed = true

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(zeroShotResponse{
			Labels: []string{"ready", "not ready"},
			Scores: []float64{0.99, 0.01},
		})
	}))
	defer server.Close()

	client, err := NewClient("huggingface", ClientConfig{
		APIKey:  "test-api-key",
		Model:   "facebook/bart-large-mnli",
		BaseURL: server.URL,
	})
	require.NoError(t, err, "failed to create client")

	err = client.Warmup(context.Background())

	require.NoError(t, err, "warmup should succeed")
	assert.True(t, probed, "warmup should reach the backend")
}

// TestHuggingFaceProvider_MissingScores tests that a response missing a
// requested label is rejected.
func TestHuggingFaceProvider_MissingScores(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(zeroShotResponse{
			Labels: []string{"something else"},
			Scores: []float64{1.0},
		})
	}))
	defer server.Close()

	client, err := NewClient("huggingface", ClientConfig{
		APIKey:  "test-api-key",
		Model:   "facebook/bart-large-mnli",
		BaseURL: server.URL,
	})
	require.NoError(t, err, "failed to create client")

	_, err = client.Classify(context.Background(), "evidence", []string{"compliant"})

	require.Error(t, err, "incomplete response should be rejected")
	assert.ErrorIs(t, err, ErrMissingScores, "error should wrap ErrMissingScores")
}

// TestHuggingFaceProvider_EmptyBody tests that an empty 200 response is
// rejected.
func TestHuggingFaceProvider_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient("huggingface", ClientConfig{
		APIKey:  "test-api-key",
		Model:   "facebook/bart-large-mnli",
		BaseURL: server.URL,
	})
	require.NoError(t, err, "failed to create client")

	_, err = client.Classify(context.Background(), "evidence", []string{"compliant"})

	require.Error(t, err, "empty body should be rejected")
	assert.ErrorIs(t, err, ErrEmptyResponse, "error should be ErrEmptyResponse")
}

// TestHuggingFaceProvider_Validation tests configuration validation at
// construction time.
func TestHuggingFaceProvider_Validation(t *testing.T) {
	_, err := newHuggingFaceProvider(ClientConfig{Model: "facebook/bart-large-mnli"})
	assert.ErrorIs(t, err, ErrEmptyAPIKey, "missing API key should be rejected")

	_, err = newHuggingFaceProvider(ClientConfig{
		APIKey:  "test-api-key",
		Model:   "facebook/bart-large-mnli",
		BaseURL: "ftp://example.com",
	})
	require.Error(t, err, "non-http scheme should be rejected")
	assert.Contains(t, err.Error(), "invalid BaseURL", "error should name the problem")
}
