package nli

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// BaseProvider provides common, thread-safe functionality for all
// classification backends, primarily for managing the model name.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the name of the model currently configured for the
// backend. It is safe for concurrent use.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model name for the backend.
// It is safe for concurrent use.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// zeroShotRequest is the wire format of a zero-shot classification request
// as accepted by the Hugging Face Inference API and compatible local
// servers.
type zeroShotRequest struct {
	Inputs     string           `json:"inputs"`
	Parameters zeroShotParams   `json:"parameters"`
	Options    *zeroShotOptions `json:"options,omitempty"`
}

type zeroShotParams struct {
	CandidateLabels []string `json:"candidate_labels"`
	MultiLabel      bool     `json:"multi_label,omitempty"`
}

type zeroShotOptions struct {
	WaitForModel bool `json:"wait_for_model,omitempty"`
	UseCache     bool `json:"use_cache,omitempty"`
}

// zeroShotResponse is the wire format of a zero-shot classification
// response: parallel label and score arrays ordered by descending score.
type zeroShotResponse struct {
	Sequence string    `json:"sequence"`
	Labels   []string  `json:"labels"`
	Scores   []float64 `json:"scores"`
}

// apiErrorResponse carries the error body of the Hugging Face Inference
// API. EstimatedTime is populated while a cold model is loading.
type apiErrorResponse struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time"`
}

// zipScores pairs the response's label and score arrays into a map and
// verifies that every requested label received a score.
func zipScores(resp zeroShotResponse, requested []string) (map[string]float64, error) {
	if len(resp.Labels) != len(resp.Scores) {
		return nil, fmt.Errorf("%w: %d labels with %d scores", ErrMissingScores, len(resp.Labels), len(resp.Scores))
	}

	scores := make(map[string]float64, len(resp.Labels))
	for i, label := range resp.Labels {
		scores[label] = resp.Scores[i]
	}

	for _, label := range requested {
		if _, ok := scores[label]; !ok {
			return nil, fmt.Errorf("%w: no score for %q", ErrMissingScores, label)
		}
	}

	return scores, nil
}

// buildScoringPrompt renders the instruction prompt used by the
// prompt-based backends. The model is asked to return a bare JSON object so
// the response parses directly into label scores.
func buildScoringPrompt(input string, labels []string) string {
	var sb strings.Builder
	sb.WriteString("You are a compliance verification assistant. ")
	sb.WriteString("Given laboratory evidence from a honey quality report, estimate the probability that each statement is entailed by the evidence.\n\n")
	sb.WriteString("Evidence:\n")
	sb.WriteString(input)
	sb.WriteString("\n\nStatements:\n")
	for _, label := range labels {
		sb.WriteString("- ")
		sb.WriteString(label)
		sb.WriteString("\n")
	}
	sb.WriteString("\nRespond with only a JSON object mapping each statement verbatim to a probability between 0 and 1. The probabilities must sum to 1. No other text.")
	return sb.String()
}

// parseScoredResponse extracts the JSON score object from a model response,
// tolerating surrounding prose and markdown code fences, and verifies that
// every requested label received a score. When the scores do not sum to 1
// they are normalized, preserving their relative weights.
func parseScoredResponse(response string, labels []string) (map[string]float64, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON object in response", ErrMissingScores)
	}

	var scores map[string]float64
	if err := json.Unmarshal([]byte(response[start:end+1]), &scores); err != nil {
		return nil, fmt.Errorf("parsing score response: %w", err)
	}

	total := 0.0
	for _, label := range labels {
		score, ok := scores[label]
		if !ok {
			return nil, fmt.Errorf("%w: no score for %q", ErrMissingScores, label)
		}
		if score < 0 {
			return nil, fmt.Errorf("negative score %.3f for %q", score, label)
		}
		total += score
	}

	if total > 0 {
		for label, score := range scores {
			scores[label] = score / total
		}
	}

	return scores, nil
}
