package personalization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/analyzer"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/logger"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/session"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return NewEngine(logger.CreateTestLogger(t.TempDir()+"/engine-test.log", "debug"))
}

func failedEntries(n int) []session.HistoryEntry {
	entries := make([]session.HistoryEntry, n)
	for i := range entries {
		entries[i] = session.HistoryEntry{Outcome: session.Outcome{Success: false}}
	}
	return entries
}

func TestPersonalizeWithoutSession(t *testing.T) {
	e := newTestEngine(t)

	result := e.Personalize("base", analyzer.Analysis{Domain: "blog"}, nil, nil)

	assert.Equal(t, "base", result.BaseTemplate)
	assert.Empty(t, result.Modifications)
	assert.InDelta(t, 1.0, result.Confidence, 0.0001)
	require.Len(t, result.Reasoning, 1)
}

func TestSimplifyArchitectureAfterThreeFailures(t *testing.T) {
	e := newTestEngine(t)
	sess := session.NewSession("u")
	sess.History = failedEntries(3)

	result := e.Personalize("base", analyzer.Analysis{Domain: "blog"}, sess, nil)

	var simplify *Modification
	for i := range result.Modifications {
		if result.Modifications[i].Kind == ChangeArchitecture && result.Modifications[i].Value == "simplified" {
			simplify = &result.Modifications[i]
		}
	}
	require.NotNil(t, simplify, "expected a simplify-architecture modification")
	assert.Equal(t, "architecture", simplify.Target)
}

func TestHigherPriorityModificationsComeFirst(t *testing.T) {
	e := newTestEngine(t)
	sess := session.NewSession("u")
	// Matches simplify-architecture (10) and speed-preference (4).
	sess.History = failedEntries(3)
	sess.Preferences.SpeedPreference = session.SpeedFast

	result := e.Personalize("base", analyzer.Analysis{Domain: "blog", Complexity: analyzer.ComplexityMedium}, sess, nil)

	require.NotEmpty(t, result.Modifications)
	assert.Equal(t, ChangeArchitecture, result.Modifications[0].Kind)
	assert.Equal(t, "simplified", result.Modifications[0].Value)

	// The speed-preference removal must appear after every simplify mod.
	speedIdx, simplifyIdx := -1, -1
	for i, mod := range result.Modifications {
		if mod.Target == "noncritical-polish" {
			speedIdx = i
		}
		if mod.Value == "simplified" {
			simplifyIdx = i
		}
	}
	require.NotEqual(t, -1, speedIdx)
	require.NotEqual(t, -1, simplifyIdx)
	assert.Greater(t, speedIdx, simplifyIdx)
}

func TestMultipleRulesCompound(t *testing.T) {
	e := newTestEngine(t)
	sess := session.NewSession("u")
	sess.History = failedEntries(3)
	sess.Preferences.QualityThreshold = 90

	analysis := analyzer.Analysis{Domain: "blog", Complexity: analyzer.ComplexityMedium}
	result := e.Personalize("base", analysis, sess, nil)

	// Both simplify-architecture and quality-raise contribute; this is not
	// first-match-wins.
	kinds := make(map[ModificationKind]bool)
	for _, mod := range result.Modifications {
		kinds[mod.Kind] = true
	}
	assert.True(t, kinds[ChangeArchitecture])
	assert.True(t, kinds[AddFeature])
	assert.GreaterOrEqual(t, len(result.Reasoning), 2)
}

func TestFrequentFeaturesDynamicRule(t *testing.T) {
	e := newTestEngine(t)
	sess := session.NewSession("u")
	sess.Preferences.FrequentFeatures = map[string]int{
		"authentication": 6,
		"payments":       5,
		"search":         4,
		"dark-mode":      1,
	}

	t.Run("adds top two missing features", func(t *testing.T) {
		analysis := analyzer.Analysis{Domain: "e-commerce", Complexity: analyzer.ComplexityMedium}
		result := e.Personalize("base", analysis, sess, nil)

		var values []string
		for _, mod := range result.Modifications {
			if mod.Target == RuleFrequentFeatures {
				values = append(values, mod.Value)
			}
		}
		assert.Equal(t, []string{"authentication", "payments"}, values)
	})

	t.Run("skips features already requested", func(t *testing.T) {
		analysis := analyzer.Analysis{
			Domain:      "e-commerce",
			Complexity:  analyzer.ComplexityMedium,
			KeyFeatures: []string{"authentication"},
		}
		result := e.Personalize("base", analysis, sess, nil)

		var values []string
		for _, mod := range result.Modifications {
			if mod.Target == RuleFrequentFeatures {
				values = append(values, mod.Value)
			}
		}
		assert.Equal(t, []string{"payments", "search"}, values)
	})

	t.Run("contributes nothing when all qualifying features present", func(t *testing.T) {
		analysis := analyzer.Analysis{
			Domain:      "e-commerce",
			Complexity:  analyzer.ComplexityMedium,
			KeyFeatures: []string{"authentication", "payments", "search"},
		}
		result := e.Personalize("base", analysis, sess, nil)

		for _, mod := range result.Modifications {
			assert.NotEqual(t, RuleFrequentFeatures, mod.Target)
		}
		for _, line := range result.Reasoning {
			assert.NotContains(t, line, RuleFrequentFeatures)
		}
	})
}

func TestExternalRecommendationFoldIn(t *testing.T) {
	e := newTestEngine(t)
	sess := session.NewSession("u")

	recs := []ExternalRecommendation{
		{Kind: "feature", Target: "newsletter", Value: "signup", Confidence: 0.8},
		{Kind: "style", Target: "palette", Value: "muted", Confidence: 0.6}, // at threshold, dropped
		{Kind: "bogus", Target: "x", Value: "y", Confidence: 0.9},          // unknown kind, dropped
	}
	analysis := analyzer.Analysis{Domain: "blog", Complexity: analyzer.ComplexityMedium}
	result := e.Personalize("base", analysis, sess, recs)

	var folded []Modification
	for _, mod := range result.Modifications {
		if mod.Target == "newsletter" || mod.Target == "palette" || mod.Target == "x" {
			folded = append(folded, mod)
		}
	}
	require.Len(t, folded, 1)
	assert.Equal(t, AddFeature, folded[0].Kind)
	assert.Equal(t, "newsletter", folded[0].Target)
}

func TestConfidenceModel(t *testing.T) {
	t.Run("empty history uses default success rate", func(t *testing.T) {
		sess := session.NewSession("u")
		// successRate=0.7, expertise=0, no mods:
		// 0.8 * (0.5 + 0.35) * 0.7 = 0.476
		got := computeConfidence(sess, analyzer.Analysis{Domain: "blog"}, 0)
		assert.InDelta(t, 0.476, got, 0.0001)
	})

	t.Run("modification penalty is capped", func(t *testing.T) {
		// A strong session keeps the capped value above the 0.3 floor so
		// the cap itself is observable: 0.8 * 1.0 * 0.85 = 0.68.
		sess := session.NewSession("u")
		score := 90.0
		for i := 0; i < 10; i++ {
			sess.History = append(sess.History, session.HistoryEntry{
				Outcome: session.Outcome{Success: true, Score: &score},
			})
		}
		sess.Preferences.DomainExpertise["blog"] = 0.5

		light := computeConfidence(sess, analyzer.Analysis{Domain: "blog"}, 2)
		atCap := computeConfidence(sess, analyzer.Analysis{Domain: "blog"}, 4)
		beyond := computeConfidence(sess, analyzer.Analysis{Domain: "blog"}, 40)
		assert.InDelta(t, 0.68-0.2, atCap, 0.0001)
		assert.InDelta(t, atCap, beyond, 0.0001)
		assert.Greater(t, light, atCap)
	})

	t.Run("penalty bottoms out at the floor for weak sessions", func(t *testing.T) {
		// Fresh session: base 0.476, so any penalty beyond 0.176 clamps.
		sess := session.NewSession("u")
		got := computeConfidence(sess, analyzer.Analysis{Domain: "blog"}, 40)
		assert.InDelta(t, minConfidence, got, 0.0001)
	})

	t.Run("clamped to bounds", func(t *testing.T) {
		sess := session.NewSession("u")
		sess.History = failedEntries(10) // successRate 0
		low := computeConfidence(sess, analyzer.Analysis{Domain: "blog"}, 40)
		assert.InDelta(t, minConfidence, low, 0.0001)

		perfect := session.NewSession("p")
		score := 100.0
		for i := 0; i < 10; i++ {
			perfect.History = append(perfect.History, session.HistoryEntry{
				Outcome: session.Outcome{Success: true, Score: &score},
			})
		}
		perfect.Preferences.DomainExpertise["blog"] = 1.0
		high := computeConfidence(perfect, analyzer.Analysis{Domain: "blog"}, 0)
		assert.LessOrEqual(t, high, maxConfidence)
	})
}
