package recovery

import (
	"fmt"
	"time"
)

// RetryConfig governs backoff and which kinds are worth retrying.
type RetryConfig struct {
	BaseDelay      time.Duration `json:"base_delay"`
	Multiplier     float64       `json:"multiplier"`
	MaxDelay       time.Duration `json:"max_delay"`
	RetryableKinds []Kind        `json:"retryable_kinds"`
}

// DefaultRetryConfig returns the standard policy: exponential backoff from
// 1s, doubling, capped at 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		BaseDelay:  1000 * time.Millisecond,
		Multiplier: 2,
		MaxDelay:   30000 * time.Millisecond,
		RetryableKinds: []Kind{
			KindAPI,
			KindRateLimit,
			KindTimeout,
			KindNetwork,
			KindParsing,
			KindFileSystem,
			KindUnknown,
		},
	}
}

func (cfg RetryConfig) retryable(kind Kind) bool {
	for _, k := range cfg.RetryableKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Backoff computes the delay before the next attempt. The attempt argument
// is 1-indexed: Backoff(1) is the delay after the first failure.
func (cfg RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := float64(cfg.BaseDelay)
	for i := 1; i < attempt; i++ {
		delay *= cfg.Multiplier
		if time.Duration(delay) >= cfg.MaxDelay {
			return cfg.MaxDelay
		}
	}
	if time.Duration(delay) > cfg.MaxDelay {
		return cfg.MaxDelay
	}
	return time.Duration(delay)
}

// Decision is the outcome of classifying a failure against the policy.
type Decision struct {
	Retry    bool          `json:"retry"`
	Delay    time.Duration `json:"delay_ms"`
	Analysis Analysis      `json:"analysis"`
}

// Decide classifies a failure and applies the retry policy. It never
// panics: any internal failure degrades to a no-retry decision with a
// logged warning, so a broken classifier can never take the pipeline down
// with it.
func (c *Classifier) Decide(err error, errCtx Context, cfg RetryConfig) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Warnf("⚠️ Error classification panicked, degrading to no-retry: %v", r)
			decision = Decision{
				Retry: false,
				Analysis: Analysis{
					Kind:            KindUnknown,
					Severity:        SeverityHigh,
					SuggestedAction: "abort",
					UserMessage:     "Something went wrong while recovering from an earlier failure.",
					TechnicalDetail: fmt.Sprintf("classifier panic: %v (original error: %v)", r, err),
				},
			}
		}
	}()

	analysis := c.analyze(err, errCtx, cfg)
	decision = Decision{
		Retry:    analysis.Retryable,
		Analysis: analysis,
	}
	if analysis.Retryable {
		decision.Delay = analysis.SuggestedDelay
	}

	c.logger.Debugf("classified %s failure at step %s (attempt %d/%d): severity=%s retry=%v delay=%s",
		analysis.Kind, errCtx.Step, errCtx.Attempt, errCtx.MaxAttempts, analysis.Severity, decision.Retry, decision.Delay)
	return decision
}
