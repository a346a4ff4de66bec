// Package recovery classifies failures from anywhere in the pipeline and
// decides whether and when to retry. Every internal failure passes through
// the classifier before any retry or abort decision; nothing is retried
// silently at a call site.
package recovery

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
	"time"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
)

// Kind is the failure taxonomy. Classification checks kinds in the order
// they are declared here; the first match wins.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindAPI           Kind = "api"
	KindRateLimit     Kind = "rate-limit"
	KindTimeout       Kind = "timeout"
	KindNetwork       Kind = "network"
	KindParsing       Kind = "parsing"
	KindFileSystem    Kind = "filesystem"
	KindQuotaExceeded Kind = "quota-exceeded"
	KindUnknown       Kind = "unknown"
)

// Severity grades a classified failure.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Context describes where a failure happened. Supplied by the caller at
// the failure site; Attempt is 1-indexed.
type Context struct {
	Step        string            `json:"step"`
	SessionID   string            `json:"session_id,omitempty"`
	Attempt     int               `json:"attempt"`
	MaxAttempts int               `json:"max_attempts"`
	DurationMs  int64             `json:"duration_ms,omitempty"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Analysis is the classified view of one failure. Stateless and recomputed
// per failure; never persisted beyond logging. UserMessage is safe to show
// to an end user; TechnicalDetail belongs in logs only. The two are kept in
// separate fields so they never share a channel.
type Analysis struct {
	Kind            Kind          `json:"kind"`
	Severity        Severity      `json:"severity"`
	Retryable       bool          `json:"retryable"`
	SuggestedDelay  time.Duration `json:"suggested_delay_ms"`
	SuggestedAction string        `json:"suggested_action"`
	UserMessage     string        `json:"user_message"`
	TechnicalDetail string        `json:"technical_detail"`
}

// kindPattern maps message substrings to a taxonomy kind. Patterns are
// checked in taxonomy order (see classifyKind).
type kindPattern struct {
	kind    Kind
	markers []string
}

var kindPatterns = []kindPattern{
	{KindValidation, []string{"validation failed", "invalid artifact", "schema violation", "missing required"}},
	{KindAPI, []string{"api error", "status 500", "status 502", "status 503", "bad gateway", "internal server error", "unauthorized", "status 401", "status 403"}},
	{KindRateLimit, []string{"rate limit", "too many requests", "status 429", "throttl"}},
	{KindTimeout, []string{"timeout", "timed out", "deadline exceeded"}},
	{KindNetwork, []string{"connection refused", "connection reset", "no such host", "network", "dns", "broken pipe", "eof"}},
	{KindParsing, []string{"parse error", "parsing failed", "unexpected token", "invalid json", "unmarshal", "syntax error"}},
	{KindFileSystem, []string{"no such file", "permission denied", "file exists", "disk full", "read-only file system", "is a directory"}},
	{KindQuotaExceeded, []string{"quota exceeded", "quota has been exhausted", "billing", "insufficient credits", "usage limit"}},
}

// Non-retryable kinds are terminal regardless of remaining attempts.
var nonRetryableKinds = map[Kind]bool{
	KindValidation:    true,
	KindQuotaExceeded: true,
}

// Classifier turns raw errors into Analysis values.
type Classifier struct {
	logger utils.ExtendedLogger
}

// NewClassifier creates a classifier.
func NewClassifier(logger utils.ExtendedLogger) *Classifier {
	return &Classifier{logger: logger}
}

// Analyze classifies a failure using the default retry configuration for
// delay suggestions.
func (c *Classifier) Analyze(err error, errCtx Context) Analysis {
	return c.analyze(err, errCtx, DefaultRetryConfig())
}

func (c *Classifier) analyze(err error, errCtx Context, cfg RetryConfig) Analysis {
	kind := classifyKind(err)
	severity := classifySeverity(kind, errCtx)
	retryable := isRetryable(kind, errCtx, cfg)

	analysis := Analysis{
		Kind:            kind,
		Severity:        severity,
		Retryable:       retryable,
		SuggestedAction: suggestedAction(kind, retryable),
		UserMessage:     userMessage(kind, errCtx.Step),
		TechnicalDetail: technicalDetail(err, errCtx),
	}
	if retryable {
		analysis.SuggestedDelay = cfg.Backoff(errCtx.Attempt)
	}
	return analysis
}

// classifyKind walks the taxonomy in declared order, first match wins.
// Typed stdlib errors are a fallback for wrapped errors whose messages
// carry no usable marker.
func classifyKind(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	message := strings.ToLower(err.Error())

	for _, p := range kindPatterns {
		for _, marker := range p.markers {
			if strings.Contains(message, marker) {
				return p.kind
			}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return KindFileSystem
	}

	return KindUnknown
}

// classifySeverity escalates to critical for quota exhaustion and for API
// failures on the final allowed attempt.
func classifySeverity(kind Kind, errCtx Context) Severity {
	if kind == KindQuotaExceeded {
		return SeverityCritical
	}
	if kind == KindAPI && errCtx.MaxAttempts > 0 && errCtx.Attempt >= errCtx.MaxAttempts {
		return SeverityCritical
	}
	switch kind {
	case KindAPI, KindParsing, KindFileSystem:
		return SeverityHigh
	case KindTimeout, KindNetwork, KindRateLimit:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func isRetryable(kind Kind, errCtx Context, cfg RetryConfig) bool {
	if errCtx.Attempt >= errCtx.MaxAttempts {
		return false
	}
	if nonRetryableKinds[kind] {
		return false
	}
	return cfg.retryable(kind)
}

func suggestedAction(kind Kind, retryable bool) string {
	if retryable {
		return "retry-with-backoff"
	}
	switch kind {
	case KindValidation:
		return "repair-artifact"
	case KindQuotaExceeded:
		return "wait-for-quota-reset"
	default:
		return "abort"
	}
}
