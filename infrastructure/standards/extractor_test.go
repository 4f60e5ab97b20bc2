package standards

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
)

// fakeAnswerer returns canned answers keyed by question, with optional
// per-question failures.
type fakeAnswerer struct {
	answers map[string]string
	failOn  map[string]bool
	calls   int
}

func (f *fakeAnswerer) Answer(_ context.Context, question, _ string) (string, error) {
	f.calls++
	if f.failOn[question] {
		return "", errors.New("model unavailable")
	}
	return f.answers[question], nil
}

func TestExtractor_BuildsSpecFromAnswers(t *testing.T) {
	answerer := &fakeAnswerer{answers: map[string]string{
		extractionQuestions["moisture_content"]:  "not more than 20%",
		extractionQuestions["diastase_activity"]: "at least 8 Schade units",
	}}

	extractor := NewExtractor(answerer, nil, nil)
	spec := extractor.Extract(context.Background(), "standards document text")

	require.Len(t, spec, domain.DefaultVocabulary().Len(),
		"every vocabulary parameter gets an entry")
	text, _ := spec.Requirement("moisture_content")
	assert.Equal(t, "not more than 20%", text)
	text, _ = spec.Requirement("diastase_activity")
	assert.Equal(t, "at least 8 Schade units", text)
	assert.Equal(t, domain.DefaultVocabulary().Len(), answerer.calls)
}

func TestExtractor_FailedQuestionYieldsEmptyRequirement(t *testing.T) {
	answerer := &fakeAnswerer{
		answers: map[string]string{
			extractionQuestions["moisture_content"]: "not more than 20%",
		},
		failOn: map[string]bool{
			extractionQuestions["sucrose_content"]: true,
		},
	}

	extractor := NewExtractor(answerer, nil, nil)
	spec := extractor.Extract(context.Background(), "text")

	text, ok := spec.Requirement("sucrose_content")
	assert.True(t, ok)
	assert.Empty(t, text, "failed questions degrade to empty requirements")
	text, _ = spec.Requirement("moisture_content")
	assert.Equal(t, "not more than 20%", text)
}

func TestWriteJSON_RoundTripsThroughRegistry(t *testing.T) {
	spec := domain.StandardSpec{
		"moisture_content": "Maximum 20%",
		"hMF_content":      "Maximum 80 mg/kg",
	}

	path := filepath.Join(t.TempDir(), "extracted.json")
	require.NoError(t, WriteJSON(spec, path))

	reg := NewRegistry(path, nil, nil)
	loaded := reg.Current()
	require.Len(t, loaded, 2)
	text, _ := loaded.Requirement("moisture_content")
	assert.Equal(t, "Maximum 20%", text)
}

func TestWriteJSON_BadPath(t *testing.T) {
	err := WriteJSON(domain.StandardSpec{}, filepath.Join(t.TempDir(), "missing", "out.json"))
	assert.Error(t, err)
}

func TestHuggingFaceAnswerer_Answer(t *testing.T) {
	var gotAuth string
	var gotBody qaRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(qaResponse{Answer: "20%", Score: 0.93})
	}))
	defer server.Close()

	answerer, err := NewHuggingFaceAnswerer("test-token", "", server.URL, server.Client())
	require.NoError(t, err)

	answer, err := answerer.Answer(context.Background(),
		"What is the maximum allowed moisture content for honey?", "standards text")
	require.NoError(t, err)

	assert.Equal(t, "20%", answer)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "What is the maximum allowed moisture content for honey?", gotBody.Inputs.Question)
	assert.Equal(t, "standards text", gotBody.Inputs.Context)
}

func TestHuggingFaceAnswerer_APIFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	answerer, err := NewHuggingFaceAnswerer("test-token", "", server.URL, server.Client())
	require.NoError(t, err)

	_, err = answerer.Answer(context.Background(), "question", "passage")
	assert.ErrorContains(t, err, "503")
}

func TestNewHuggingFaceAnswerer_RequiresKey(t *testing.T) {
	_, err := NewHuggingFaceAnswerer("", "", "", nil)
	assert.Error(t, err)
}
