package nli

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTimeoutMiddleware_SucceedsWithinTimeout tests that the timeout middleware
// allows a request to succeed if it completes within the specified timeout.
func TestTimeoutMiddleware_SucceedsWithinTimeout(t *testing.T) {
	mock := NewMockCoreClassifier()
	mock.ResponseDelay = 10 * time.Millisecond
	timeout := 100 * time.Millisecond
	middleware := TimeoutMiddleware(timeout)
	wrapped := middleware(mock)

	ctx := context.Background()
	scores, err := wrapped.DoClassify(ctx, "test evidence", []string{"compliant", "non-compliant"})

	require.NoError(t, err, "request should succeed within timeout")
	assert.InDelta(t, 0.9, scores["compliant"], 1e-9, "first label score should match")
	assert.Equal(t, 1, mock.GetCallCount(), "should call underlying implementation once")
}

// TestTimeoutMiddleware_FailsWhenExceedingTimeout tests that the timeout middleware
// correctly times out a request that exceeds the specified timeout.
func TestTimeoutMiddleware_FailsWhenExceedingTimeout(t *testing.T) {
	mock := NewMockCoreClassifier()
	mock.ResponseDelay = 200 * time.Millisecond
	timeout := 50 * time.Millisecond
	middleware := TimeoutMiddleware(timeout)
	wrapped := middleware(mock)

	ctx := context.Background()
	start := time.Now()
	_, err := wrapped.DoClassify(ctx, "test evidence", []string{"compliant"})
	duration := time.Since(start)

	require.Error(t, err, "request should timeout")
	assert.True(t, errors.Is(err, context.DeadlineExceeded),
		"error should be deadline exceeded: %v", err)
	assert.Equal(t, 1, mock.GetCallCount(), "should call underlying implementation once")

	assert.Greater(t, duration, timeout, "should timeout after configured duration")
	assert.Less(t, duration, timeout+50*time.Millisecond, "should not wait much longer than timeout")
}

// TestTimeoutMiddleware_RespectsExistingContextTimeout tests that the timeout
// middleware respects a shorter timeout defined in the request's context.
func TestTimeoutMiddleware_RespectsExistingContextTimeout(t *testing.T) {
	mock := NewMockCoreClassifier()
	mock.ResponseDelay = 200 * time.Millisecond
	middlewareTimeout := 300 * time.Millisecond
	middleware := TimeoutMiddleware(middlewareTimeout)
	wrapped := middleware(mock)

	ctxTimeout := 50 * time.Millisecond
	ctx, cancel := context.WithTimeout(context.Background(), ctxTimeout)
	defer cancel()

	start := time.Now()
	_, err := wrapped.DoClassify(ctx, "test evidence", []string{"compliant"})
	duration := time.Since(start)

	require.Error(t, err, "request should timeout")
	assert.True(t, errors.Is(err, context.DeadlineExceeded),
		"error should be deadline exceeded: %v", err)

	assert.Greater(t, duration, ctxTimeout, "should timeout after context duration")
	assert.Less(t, duration, ctxTimeout+50*time.Millisecond, "should not wait much longer than context timeout")
	assert.Less(t, duration, middlewareTimeout, "should timeout before middleware timeout")
}

// TestTimeoutMiddleware_AppliesToWarmup tests that the timeout middleware
// bounds readiness probes the same way it bounds classification calls.
func TestTimeoutMiddleware_AppliesToWarmup(t *testing.T) {
	mock := NewMockCoreClassifier()
	mock.ReadyDelay = 200 * time.Millisecond
	timeout := 50 * time.Millisecond
	middleware := TimeoutMiddleware(timeout)
	wrapped := middleware(mock)

	start := time.Now()
	err := wrapped.Ready(context.Background())
	duration := time.Since(start)

	require.Error(t, err, "probe should timeout")
	assert.True(t, errors.Is(err, context.DeadlineExceeded),
		"error should be deadline exceeded: %v", err)
	assert.Less(t, duration, 150*time.Millisecond, "probe should not run to completion")
}

// TestTimeoutMiddleware_HandlesImmediateError tests that the timeout middleware
// correctly handles an immediate error from the backend without waiting
// for the timeout.
func TestTimeoutMiddleware_HandlesImmediateError(t *testing.T) {
	mock := NewMockCoreClassifier()
	mock.Error = errors.New("immediate error")
	timeout := 100 * time.Millisecond
	middleware := TimeoutMiddleware(timeout)
	wrapped := middleware(mock)

	ctx := context.Background()
	start := time.Now()
	_, err := wrapped.DoClassify(ctx, "test evidence", []string{"compliant"})
	duration := time.Since(start)

	require.Error(t, err, "request should fail")
	assert.Equal(t, "immediate error", err.Error(), "should return original error")
	assert.Equal(t, 1, mock.GetCallCount(), "should call underlying implementation once")

	assert.Less(t, duration, 50*time.Millisecond, "should fail immediately")
}

// TestTimeoutMiddleware_PassesThroughModelMethods tests that the timeout middleware
// correctly passes through calls to the underlying implementation's methods.
func TestTimeoutMiddleware_PassesThroughModelMethods(t *testing.T) {
	mock := NewMockCoreClassifier()
	timeout := 100 * time.Millisecond
	middleware := TimeoutMiddleware(timeout)
	wrapped := middleware(mock)

	assert.Equal(t, "test-model", wrapped.GetModel(), "should pass through GetModel")

	wrapped.SetModel("new-model")
	assert.Equal(t, "new-model", wrapped.GetModel(), "should pass through SetModel")
	assert.Equal(t, "new-model", mock.GetModel(), "should update underlying mock")
}

// TestTimeoutMiddleware_PreservesContextValues tests that the timeout middleware
// preserves context values across the request.
func TestTimeoutMiddleware_PreservesContextValues(t *testing.T) {
	mock := NewMockCoreClassifier()
	timeout := 100 * time.Millisecond
	middleware := TimeoutMiddleware(timeout)
	wrapped := middleware(mock)

	ctx := context.WithValue(context.Background(), testContextKey, "test-value")
	labels := []string{"compliant", "non-compliant"}
	_, err := wrapped.DoClassify(ctx, "test evidence", labels)

	require.NoError(t, err, "request should succeed")
	assert.Equal(t, "test evidence", mock.LastInput, "input should be preserved")
	assert.Equal(t, labels, mock.LastLabels, "labels should be preserved")
	assert.Equal(t, "test-value", mock.LastContext.Value(testContextKey),
		"context value should be preserved")
}

// TestTimeoutMiddleware_HandlesContextCancellation tests that the timeout middleware
// correctly handles context cancellation.
func TestTimeoutMiddleware_HandlesContextCancellation(t *testing.T) {
	mock := NewMockCoreClassifier()
	mock.ResponseDelay = 200 * time.Millisecond
	timeout := 300 * time.Millisecond
	middleware := TimeoutMiddleware(timeout)
	wrapped := middleware(mock)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := wrapped.DoClassify(ctx, "test evidence", []string{"compliant"})
	duration := time.Since(start)

	require.Error(t, err, "request should be cancelled")
	assert.True(t, errors.Is(err, context.Canceled),
		"error should be context cancelled: %v", err)

	assert.Greater(t, duration, 40*time.Millisecond, "should wait for cancellation")
	assert.Less(t, duration, 100*time.Millisecond, "should be cancelled quickly")
}

// TestTimeoutMiddleware_ZeroTimeout tests the behavior of the timeout middleware
// when the timeout is set to zero.
func TestTimeoutMiddleware_ZeroTimeout(t *testing.T) {
	mock := NewMockCoreClassifier()
	mock.ResponseDelay = 10 * time.Millisecond
	timeout := 0 * time.Millisecond
	middleware := TimeoutMiddleware(timeout)
	wrapped := middleware(mock)

	ctx := context.Background()
	_, err := wrapped.DoClassify(ctx, "test evidence", []string{"compliant"})

	require.Error(t, err, "request should timeout immediately")
	assert.True(t, errors.Is(err, context.DeadlineExceeded),
		"error should be deadline exceeded: %v", err)
}

// TestTimeoutMiddleware_MultipleSimultaneousRequests tests that the timeout
// middleware correctly handles multiple simultaneous requests.
func TestTimeoutMiddleware_MultipleSimultaneousRequests(t *testing.T) {
	mock := NewMockCoreClassifier()
	mock.ResponseDelay = 10 * time.Millisecond
	timeout := 200 * time.Millisecond
	middleware := TimeoutMiddleware(timeout)
	wrapped := middleware(mock)

	const numRequests = 3
	errs := make(chan error, numRequests)

	for i := 0; i < numRequests; i++ {
		go func() {
			ctx := context.Background()
			_, err := wrapped.DoClassify(ctx, "test evidence", []string{"compliant"})
			errs <- err
		}()
	}

	for i := 0; i < numRequests; i++ {
		select {
		case err := <-errs:
			assert.NoError(t, err, "request %d should succeed", i)
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("request %d timed out", i)
		}
	}

	assert.Equal(t, numRequests, mock.GetCallCount(), "should handle all requests")
}
