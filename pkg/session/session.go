// Package session holds the per-user session record: request history and
// the derived preferences that feed personalization. Sessions are
// single-writer per user; all mutation goes through the Manager.
package session

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/analyzer"
)

// SpeedPreference expresses the user's tolerance for slower, higher-quality
// generation.
type SpeedPreference string

const (
	SpeedBalanced SpeedPreference = "balanced"
	SpeedFast     SpeedPreference = "fast"
	SpeedThorough SpeedPreference = "thorough"
)

// Preferences is the derived state the personalization engine reads. It is
// recomputed incrementally as outcomes are recorded, never from scratch.
type Preferences struct {
	FavoriteTechnologies map[string]bool         `json:"favorite_technologies"`
	FavoriteStyles       map[string]bool         `json:"favorite_styles"`
	ComplexityPreference analyzer.ComplexityTier `json:"complexity_preference"`
	DomainExpertise      map[string]float64      `json:"domain_expertise"`
	FrequentFeatures     map[string]int          `json:"frequent_features"`
	QualityThreshold     float64                 `json:"quality_threshold"`
	SpeedPreference      SpeedPreference         `json:"speed_preference"`
}

// Outcome records how one generation attempt ended.
type Outcome struct {
	Success       bool     `json:"success"`
	Score         *float64 `json:"score,omitempty"`
	DurationMs    int64    `json:"duration_ms"`
	ArtifactCount int      `json:"artifact_count"`
}

// HistoryEntry is one append-only record of a past request. Entries are
// never mutated after creation.
type HistoryEntry struct {
	Timestamp      time.Time         `json:"timestamp"`
	RequestSummary string            `json:"request_summary"`
	Analysis       analyzer.Analysis `json:"analysis"`
	Outcome        Outcome           `json:"outcome"`
}

// Session is one user's long-lived record. One session per user; reads and
// writes happen only on that user's behalf.
type Session struct {
	ID              string         `json:"id"`
	StartedAt       time.Time      `json:"started_at"`
	LastActivityAt  time.Time      `json:"last_activity_at"`
	GenerationCount int            `json:"generation_count"`
	Preferences     Preferences    `json:"preferences"`
	History         []HistoryEntry `json:"history"`
}

// NewSession creates an empty session. A zero id gets a fresh UUID.
func NewSession(id string) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now()
	return &Session{
		ID:             id,
		StartedAt:      now,
		LastActivityAt: now,
		Preferences: Preferences{
			FavoriteTechnologies: make(map[string]bool),
			FavoriteStyles:       make(map[string]bool),
			ComplexityPreference: analyzer.ComplexityMedium,
			DomainExpertise:      make(map[string]float64),
			FrequentFeatures:     make(map[string]int),
			QualityThreshold:     70,
			SpeedPreference:      SpeedBalanced,
		},
	}
}

// SuccessRate returns the fraction of successful history entries, or the
// provided fallback when the history is empty.
func (s *Session) SuccessRate(fallback float64) float64 {
	if len(s.History) == 0 {
		return fallback
	}
	successes := 0
	for _, entry := range s.History {
		if entry.Outcome.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(s.History))
}

// ConsecutiveFailures counts failures at the tail of the history.
func (s *Session) ConsecutiveFailures() int {
	count := 0
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Outcome.Success {
			break
		}
		count++
	}
	return count
}

// ExpertiseFor returns the accumulated expertise for a domain, 0 when the
// domain has never been seen.
func (s *Session) ExpertiseFor(domain string) float64 {
	return s.Preferences.DomainExpertise[domain]
}

// TopFrequentFeatures returns up to n feature tags with count >= minCount,
// most frequent first. Ties break alphabetically so the result is stable.
func (s *Session) TopFrequentFeatures(n, minCount int) []string {
	type featureCount struct {
		tag   string
		count int
	}
	var candidates []featureCount
	for tag, count := range s.Preferences.FrequentFeatures {
		if count >= minCount {
			candidates = append(candidates, featureCount{tag, count})
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].tag < candidates[j].tag
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	result := make([]string, 0, len(candidates))
	for _, c := range candidates {
		result = append(result, c.tag)
	}
	return result
}
