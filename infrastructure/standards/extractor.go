package standards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/IbtissamEchchaibi19/qualityapi/internal/domain"
)

// Per-parameter extraction questions posed against a standards document.
// The answers become the requirement texts of a standard spec.
var extractionQuestions = map[string]string{
	"moisture_content":        "What is the maximum allowed moisture content for honey?",
	"hMF_content":             "What is the maximum allowed hydroxymethylfurfural (HMF) content?",
	"diastase_activity":       "What is the minimum diastase activity required?",
	"sucrose_content":         "What is the maximum allowed sucrose content?",
	"free_acidity":            "What is the maximum allowed free acidity?",
	"electrical_conductivity": "What are the requirements for electrical conductivity?",
	"insoluble_solids":        "What are the limits for water insoluble solids?",
	"glucose_fructose":        "What are the requirements for total glucose and fructose content?",
}

// QuestionAnswerer answers one extractive question against a context text.
// Implementations wrap a question-answering model.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question, passage string) (string, error)
}

// Extractor builds a standard specification from the free text of a
// standards document by asking a fixed question per tracked parameter.
type Extractor struct {
	answerer QuestionAnswerer
	vocab    *domain.ParameterVocabulary
	logger   *slog.Logger
}

// NewExtractor creates an extractor over a question-answering backend.
func NewExtractor(answerer QuestionAnswerer, vocab *domain.ParameterVocabulary, logger *slog.Logger) *Extractor {
	if vocab == nil {
		vocab = domain.DefaultVocabulary()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		answerer: answerer,
		vocab:    vocab,
		logger:   logger.With("component", "standards.extractor"),
	}
}

// Extract asks the extraction question for every vocabulary parameter and
// collects the answers into a spec. A failed question yields an empty
// requirement for that parameter rather than failing the whole extraction.
func (e *Extractor) Extract(ctx context.Context, text string) domain.StandardSpec {
	spec := make(domain.StandardSpec, e.vocab.Len())
	for _, param := range e.vocab.Parameters() {
		question, ok := extractionQuestions[param]
		if !ok {
			continue
		}
		answer, err := e.answerer.Answer(ctx, question, text)
		if err != nil {
			e.logger.Warn("extraction question failed",
				"parameter", param, "error", err)
			answer = ""
		}
		spec[param] = answer
	}
	return spec
}

// WriteJSON writes a spec to disk in the flat JSON format the registry
// loads.
func WriteJSON(spec domain.StandardSpec, path string) error {
	data, err := json.MarshalIndent(spec, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding standard spec: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing standard spec %q: %w", path, err)
	}
	return nil
}

// HuggingFaceQADefaultModel is the extractive question-answering model used
// when none is configured.
const HuggingFaceQADefaultModel = "deepset/roberta-base-squad2"

// huggingFaceQAURL is the hosted Inference API endpoint.
const huggingFaceQAURL = "https://api-inference.huggingface.co"

// HuggingFaceAnswerer answers questions through the hosted Inference API's
// question-answering task.
type HuggingFaceAnswerer struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
}

var _ QuestionAnswerer = (*HuggingFaceAnswerer)(nil)

// NewHuggingFaceAnswerer creates a hosted QA backend. The API key is
// required; model and base URL default to the public QA model and endpoint.
func NewHuggingFaceAnswerer(apiKey, model, baseURL string, httpClient *http.Client) (*HuggingFaceAnswerer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = HuggingFaceQADefaultModel
	}
	if baseURL == "" {
		baseURL = huggingFaceQAURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HuggingFaceAnswerer{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    baseURL,
		model:      model,
	}, nil
}

type qaRequest struct {
	Inputs qaInputs `json:"inputs"`
}

type qaInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type qaResponse struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
}

// Answer posts one question-answering request and returns the model's
// extracted answer span.
func (h *HuggingFaceAnswerer) Answer(ctx context.Context, question, passage string) (string, error) {
	payload, err := json.Marshal(qaRequest{Inputs: qaInputs{Question: question, Context: passage}})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", h.baseURL, h.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("qa request returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed qaResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	return parsed.Answer, nil
}
