package nli

import (
	"context"
	"sync"
	"time"
)

// MockCoreClassifier provides a configurable mock implementation of
// CoreClassifier for testing. It allows precise control over response
// behavior, timing, and error conditions to facilitate comprehensive
// middleware testing.
type MockCoreClassifier struct {
	mu sync.Mutex

	// Response configuration
	Scores        map[string]float64
	Error         error
	ReadyError    error
	Model         string
	ResponseDelay time.Duration
	ReadyDelay    time.Duration

	// Behavior flags
	FailUntilAttempt int  // Fail for first N attempts, then succeed
	AlternateErrors  bool // Alternate between success and failure

	// Tracking
	CallCount      int
	ReadyCount     int
	LastInput      string
	LastLabels     []string
	LastContext    context.Context
	Contexts       []context.Context // All contexts received
	CallTimestamps []time.Time
}

// NewMockCoreClassifier creates a new mock with default decisive behavior:
// the first label scores 0.9 and the rest share the remainder.
func NewMockCoreClassifier() *MockCoreClassifier {
	return &MockCoreClassifier{
		Model:          "test-model",
		Contexts:       make([]context.Context, 0),
		CallTimestamps: make([]time.Time, 0),
	}
}

// DoClassify implements the CoreClassifier interface with configurable
// behavior.
func (m *MockCoreClassifier) DoClassify(ctx context.Context, input string, labels []string) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Track the call
	m.CallCount++
	m.LastInput = input
	m.LastLabels = labels
	m.LastContext = ctx
	m.Contexts = append(m.Contexts, ctx)
	m.CallTimestamps = append(m.CallTimestamps, time.Now())

	// Simulate response delay if configured
	if m.ResponseDelay > 0 {
		select {
		case <-time.After(m.ResponseDelay):
			// Normal delay completion
		case <-ctx.Done():
			// Context cancelled during delay
			return nil, ctx.Err()
		}
	}

	// Handle failure behaviors
	if m.FailUntilAttempt > 0 && m.CallCount <= m.FailUntilAttempt {
		if m.Error != nil {
			return nil, m.Error
		}
		return nil, &testError{message: "simulated failure"}
	}

	if m.AlternateErrors && m.CallCount%2 == 0 {
		if m.Error != nil {
			return nil, m.Error
		}
		return nil, &testError{message: "alternating failure"}
	}

	if m.Error != nil {
		return nil, m.Error
	}

	if m.Scores != nil {
		return m.Scores, nil
	}

	// Synthesize a decisive score distribution over the requested labels.
	scores := make(map[string]float64, len(labels))
	for i, label := range labels {
		if i == 0 {
			scores[label] = 0.9
		} else {
			scores[label] = 0.1 / float64(len(labels)-1)
		}
	}
	return scores, nil
}

// Ready implements the CoreClassifier interface, returning the configured
// readiness error.
func (m *MockCoreClassifier) Ready(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadyCount++

	if m.ReadyDelay > 0 {
		select {
		case <-time.After(m.ReadyDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return m.ReadyError
}

// GetModel returns the configured model name.
func (m *MockCoreClassifier) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Model
}

// SetModel updates the model name.
func (m *MockCoreClassifier) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Model = model
}

// Reset clears all tracking data while preserving configuration.
func (m *MockCoreClassifier) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallCount = 0
	m.ReadyCount = 0
	m.LastInput = ""
	m.LastLabels = nil
	m.LastContext = nil
	m.Contexts = make([]context.Context, 0)
	m.CallTimestamps = make([]time.Time, 0)
}

// GetCallCount returns the number of times DoClassify was called.
func (m *MockCoreClassifier) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CallCount
}

// GetTimeBetweenCalls calculates the duration between two recorded calls.
// Returns nil when either index is out of range.
func (m *MockCoreClassifier) GetTimeBetweenCalls(call1, call2 int) *time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if call1 < 0 || call2 < 0 || call1 >= len(m.CallTimestamps) || call2 >= len(m.CallTimestamps) {
		return nil
	}

	duration := m.CallTimestamps[call2].Sub(m.CallTimestamps[call1])
	return &duration
}

// testError provides a simple error type for testing.
type testError struct {
	message string
}

func (e *testError) Error() string {
	return e.message
}
