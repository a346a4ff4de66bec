package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/logger"
)

func newTestAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	return New(logger.CreateTestLogger(t.TempDir()+"/analyzer-test.log", "debug"))
}

func TestAnalyzeNeverFailsAndBoundsConfidence(t *testing.T) {
	a := newTestAnalyzer(t)

	inputs := []string{
		"",
		"   ",
		"build me a shop with stripe checkout",
		strings.Repeat("word ", 500),
		"!!!???###",
		"日本語のリクエスト",
	}

	for _, input := range inputs {
		analysis := a.Analyze(input)
		assert.GreaterOrEqual(t, analysis.Confidence, 0.0, "input %q", input)
		assert.LessOrEqual(t, analysis.Confidence, 1.0, "input %q", input)
		assert.NotEmpty(t, analysis.Domain, "input %q", input)
		assert.NotEmpty(t, analysis.Complexity, "input %q", input)
	}
}

func TestAnalyzeDefaultsOnNoMatch(t *testing.T) {
	a := newTestAnalyzer(t)

	analysis := a.Analyze("something entirely unclassifiable")

	assert.Equal(t, "generic", analysis.Domain)
	assert.Equal(t, "generate", analysis.Intent)
	assert.InDelta(t, 0.3, analysis.Confidence, 0.0001)
}

func TestAnalyzeSimpleContactForm(t *testing.T) {
	a := newTestAnalyzer(t)

	analysis := a.Analyze("simple contact form, one page")

	assert.Equal(t, ComplexitySimple, analysis.Complexity)
	assert.NotEqual(t, "enterprise", analysis.Domain)
	assert.Equal(t, "form", analysis.Domain)
	assert.Equal(t, "collect-input", analysis.Intent)
}

func TestAnalyzeDomainMatching(t *testing.T) {
	a := newTestAnalyzer(t)

	cases := []struct {
		text   string
		domain string
		intent string
	}{
		{"an online store selling handmade candles", "e-commerce", "build-storefront"},
		{"internal analytics dashboard with charts", "dashboard", "build-dashboard"},
		{"a blog about travel photography", "blog", "publish-content"},
		{"landing page with a waitlist signup", "landing-page", "launch-landing"},
		{"rest api for inventory management", "api-service", "expose-api"},
	}

	for _, tc := range cases {
		analysis := a.Analyze(tc.text)
		assert.Equal(t, tc.domain, analysis.Domain, "text %q", tc.text)
		assert.Equal(t, tc.intent, analysis.Intent, "text %q", tc.text)
	}
}

func TestAnalyzeHighestWeightWins(t *testing.T) {
	a := newTestAnalyzer(t)

	// Matches both the e-commerce (0.92) and dashboard (0.90) patterns;
	// the e-commerce weight is strictly higher.
	analysis := a.Analyze("store with an admin dashboard")

	assert.Equal(t, "e-commerce", analysis.Domain)
	assert.InDelta(t, 0.92, analysis.Confidence, 0.0001)
}

func TestPatternWeightsAreDistinct(t *testing.T) {
	seen := make(map[float64]string)
	for _, p := range intentPatterns {
		prev, dup := seen[p.weight]
		require.False(t, dup, "weight %.2f shared by %q and %q", p.weight, prev, p.domain)
		seen[p.weight] = p.domain
		assert.LessOrEqual(t, p.weight, maxPatternConfidence)
	}
}

func TestComplexityLengthHeuristics(t *testing.T) {
	a := newTestAnalyzer(t)

	t.Run("word count over 100 forces enterprise", func(t *testing.T) {
		text := strings.Repeat("simple page ", 60)
		analysis := a.Analyze(text)
		assert.Equal(t, ComplexityEnterprise, analysis.Complexity)
	})

	t.Run("enterprise pattern on a short request", func(t *testing.T) {
		analysis := a.Analyze("crm with rbac")
		assert.Equal(t, ComplexityEnterprise, analysis.Complexity)
	})

	t.Run("advanced feature keyword forces complex", func(t *testing.T) {
		analysis := a.Analyze("small site with real-time updates everywhere")
		assert.Equal(t, ComplexityComplex, analysis.Complexity)
	})

	t.Run("simple marker over 20 words stays medium", func(t *testing.T) {
		text := "a simple site " + strings.Repeat("with stuff ", 10)
		analysis := a.Analyze(text)
		assert.Equal(t, ComplexityMedium, analysis.Complexity)
	})
}

func TestAudienceDerivation(t *testing.T) {
	a := newTestAnalyzer(t)

	assert.Equal(t, AudienceEnterprise, a.Analyze("corporate intranet portal").TargetAudience)
	assert.Equal(t, AudienceDeveloper, a.Analyze("sdk docs for developers").TargetAudience)
	assert.Equal(t, AudienceSmallBusiness, a.Analyze("website for my shop").TargetAudience)
	assert.Equal(t, AudiencePersonal, a.Analyze("photo journal").TargetAudience)
}

func TestFeatureAndTechExtraction(t *testing.T) {
	a := newTestAnalyzer(t)

	analysis := a.Analyze("react store with stripe checkout, login, and dark mode, styled with tailwind")

	assert.True(t, analysis.HasFeature("payments"))
	assert.True(t, analysis.HasFeature("authentication"))
	assert.True(t, analysis.HasFeature("dark-mode"))
	assert.False(t, analysis.HasFeature("i18n"))

	byCategory := make(map[string]TechPreference)
	for _, p := range analysis.TechPreferences {
		byCategory[p.Category] = p
	}
	require.Contains(t, byCategory, "framework")
	assert.Equal(t, "react", byCategory["framework"].Value)
	assert.True(t, byCategory["framework"].Explicit)
	require.Contains(t, byCategory, "styling")
	assert.Equal(t, "tailwind", byCategory["styling"].Value)
}

func TestImplicitTechPreference(t *testing.T) {
	a := newTestAnalyzer(t)

	analysis := a.Analyze("a type-safe dashboard")

	var found *TechPreference
	for i := range analysis.TechPreferences {
		if analysis.TechPreferences[i].Category == "language" {
			found = &analysis.TechPreferences[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "typescript", found.Value)
	assert.False(t, found.Explicit)
}

func TestTokenEstimatePositive(t *testing.T) {
	a := newTestAnalyzer(t)

	analysis := a.Analyze("build a blog with comments")
	assert.Greater(t, analysis.TokenEstimate, 0)
}
