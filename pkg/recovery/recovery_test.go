package recovery

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/logger"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	return NewClassifier(logger.CreateTestLogger(t.TempDir()+"/recovery-test.log", "debug"))
}

func TestClassifyKindTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		kind Kind
	}{
		{errors.New("validation failed: missing entry point"), KindValidation},
		{errors.New("api error: status 500 from provider"), KindAPI},
		{errors.New("rate limit reached, slow down"), KindRateLimit},
		{errors.New("request timed out after 30s"), KindTimeout},
		{errors.New("dial tcp: connection refused"), KindNetwork},
		{errors.New("invalid json at position 14"), KindParsing},
		{errors.New("open /tmp/x: no such file or directory"), KindFileSystem},
		{errors.New("monthly quota exceeded for workspace"), KindQuotaExceeded},
		{errors.New("completely novel failure"), KindUnknown},
		{nil, KindUnknown},
		{fmt.Errorf("wrapped: %w", context.DeadlineExceeded), KindTimeout},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.kind, classifyKind(tc.err), "error %v", tc.err)
	}
}

func TestFirstMatchingCategoryWins(t *testing.T) {
	// Contains both a validation marker and a timeout marker; validation is
	// earlier in the taxonomy.
	err := errors.New("validation failed because the check timed out")
	assert.Equal(t, KindValidation, classifyKind(err))
}

func TestSeverityEscalation(t *testing.T) {
	assert.Equal(t, SeverityCritical, classifySeverity(KindQuotaExceeded, Context{Attempt: 1, MaxAttempts: 5}))
	assert.Equal(t, SeverityCritical, classifySeverity(KindAPI, Context{Attempt: 3, MaxAttempts: 3}))
	assert.Equal(t, SeverityHigh, classifySeverity(KindAPI, Context{Attempt: 1, MaxAttempts: 3}))
	assert.Equal(t, SeverityHigh, classifySeverity(KindParsing, Context{Attempt: 1, MaxAttempts: 3}))
	assert.Equal(t, SeverityMedium, classifySeverity(KindRateLimit, Context{Attempt: 1, MaxAttempts: 3}))
	assert.Equal(t, SeverityMedium, classifySeverity(KindTimeout, Context{Attempt: 1, MaxAttempts: 3}))
	assert.Equal(t, SeverityLow, classifySeverity(KindUnknown, Context{Attempt: 1, MaxAttempts: 3}))
}

func TestBackoffMonotonicAndCapped(t *testing.T) {
	cfg := DefaultRetryConfig()

	previous := time.Duration(0)
	for attempt := 1; attempt <= 12; attempt++ {
		delay := cfg.Backoff(attempt)
		assert.GreaterOrEqual(t, delay, previous, "attempt %d", attempt)
		assert.LessOrEqual(t, delay, cfg.MaxDelay, "attempt %d", attempt)
		previous = delay
	}

	assert.Equal(t, 1000*time.Millisecond, cfg.Backoff(1))
	assert.Equal(t, 2000*time.Millisecond, cfg.Backoff(2))
	assert.Equal(t, 4000*time.Millisecond, cfg.Backoff(3))
	assert.Equal(t, cfg.MaxDelay, cfg.Backoff(100))
}

func TestRateLimitScenario(t *testing.T) {
	c := newTestClassifier(t)

	decision := c.Decide(errors.New("provider said: rate limit exceeded"),
		Context{Step: "generation", Attempt: 1, MaxAttempts: 3}, DefaultRetryConfig())

	assert.Equal(t, KindRateLimit, decision.Analysis.Kind)
	assert.True(t, decision.Retry)
	assert.Equal(t, 1000*time.Millisecond, decision.Delay)
}

func TestNonRetryableKindsNeverRetry(t *testing.T) {
	c := newTestClassifier(t)
	cfg := DefaultRetryConfig()

	for _, err := range []error{
		errors.New("validation failed: no pages"),
		errors.New("quota exceeded for this billing period"),
	} {
		decision := c.Decide(err, Context{Step: "validation", Attempt: 1, MaxAttempts: 5}, cfg)
		assert.False(t, decision.Retry, "error %v", err)
		assert.Zero(t, decision.Delay, "error %v", err)
	}
}

func TestNoRetryWhenAttemptsExhausted(t *testing.T) {
	c := newTestClassifier(t)

	decision := c.Decide(errors.New("request timed out"),
		Context{Step: "generation", Attempt: 3, MaxAttempts: 3}, DefaultRetryConfig())

	assert.False(t, decision.Retry)
	assert.Equal(t, KindTimeout, decision.Analysis.Kind)
}

func TestPolicyRetryableSetRespected(t *testing.T) {
	c := newTestClassifier(t)
	cfg := DefaultRetryConfig()
	cfg.RetryableKinds = []Kind{KindRateLimit}

	decision := c.Decide(errors.New("request timed out"),
		Context{Step: "generation", Attempt: 1, MaxAttempts: 5}, cfg)
	assert.False(t, decision.Retry, "timeout is outside the policy's retryable set")
}

func TestUserMessageAndTechnicalDetailSeparate(t *testing.T) {
	c := newTestClassifier(t)

	secret := "token=abc123 connection refused"
	analysis := c.Analyze(errors.New(secret), Context{Step: "generation", Attempt: 1, MaxAttempts: 3})

	assert.NotContains(t, analysis.UserMessage, "abc123")
	assert.Contains(t, analysis.UserMessage, "generation")
	assert.Contains(t, analysis.TechnicalDetail, "connection refused")
	assert.Contains(t, analysis.TechnicalDetail, "attempt=1/3")
}

func TestDecideNeverPanics(t *testing.T) {
	c := newTestClassifier(t)

	// A nil error plus a hostile context must still produce a decision.
	decision := c.Decide(nil, Context{Attempt: -1, MaxAttempts: 0}, RetryConfig{})
	assert.False(t, decision.Retry)
	require.NotEmpty(t, decision.Analysis.UserMessage)
}
