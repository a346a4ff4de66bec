// Package analyzer turns free-text generation requests into a structured
// Analysis (intent, domain, complexity tier, audience, features, tech
// preferences).
//
// Complexity is derived from length heuristics independently of the intent
// pattern table, and length wins when the two disagree. That precedence is
// intentional and load-bearing for downstream personalization; do not
// reorder the checks without a product-level review.
package analyzer

import (
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
)

// ComplexityTier buckets a request by how much scaffolding the generated
// artifact needs.
type ComplexityTier string

const (
	ComplexitySimple     ComplexityTier = "simple"
	ComplexityMedium     ComplexityTier = "medium"
	ComplexityComplex    ComplexityTier = "complex"
	ComplexityEnterprise ComplexityTier = "enterprise"
)

// Audience identifies who the artifact is for.
type Audience string

const (
	AudiencePersonal      Audience = "personal"
	AudienceSmallBusiness Audience = "small-business"
	AudienceEnterprise    Audience = "enterprise"
	AudienceDeveloper     Audience = "developer"
)

// TechPreference records one detected technology choice. Explicit is true
// when the technology name itself appears in the request text, false when
// it was inferred from related wording.
type TechPreference struct {
	Category string `json:"category"`
	Value    string `json:"value"`
	Explicit bool   `json:"explicit"`
}

// Analysis is the structured interpretation of one request. It is created
// once per request and never mutated afterwards.
type Analysis struct {
	Intent          string           `json:"intent"`
	Domain          string           `json:"domain"`
	Confidence      float64          `json:"confidence"`
	Complexity      ComplexityTier   `json:"complexity"`
	TargetAudience  Audience         `json:"target_audience"`
	KeyFeatures     []string         `json:"key_features"`
	TechPreferences []TechPreference `json:"tech_preferences"`
	WordCount       int              `json:"word_count"`
	TokenEstimate   int              `json:"token_estimate"`
}

// HasFeature reports whether the analysis detected the given feature tag.
func (a Analysis) HasFeature(feature string) bool {
	for _, f := range a.KeyFeatures {
		if f == feature {
			return true
		}
	}
	return false
}

// Analyzer classifies free-text requests. Safe for concurrent use.
type Analyzer struct {
	logger  utils.ExtendedLogger
	encoder *tiktoken.Tiktoken
}

// New creates an Analyzer. The tiktoken encoding is optional: when it
// cannot be loaded (offline environments), token estimates fall back to a
// word-count heuristic.
func New(logger utils.ExtendedLogger) *Analyzer {
	encoder, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		logger.Warnf("tiktoken encoding unavailable, using word heuristic: %v", err)
		encoder = nil
	}
	return &Analyzer{
		logger:  logger,
		encoder: encoder,
	}
}

const defaultConfidence = 0.3

// Analyze classifies the request text. It is total: it never fails, and on
// no pattern match it returns a generic analysis with confidence 0.3.
func (a *Analyzer) Analyze(text string) Analysis {
	normalized := strings.ToLower(strings.TrimSpace(text))
	words := strings.Fields(normalized)

	analysis := Analysis{
		Intent:        "generate",
		Domain:        "generic",
		Confidence:    defaultConfidence,
		WordCount:     len(words),
		TokenEstimate: a.estimateTokens(text, len(words)),
	}

	// Highest-scoring pattern wins. Weights in the table are distinct, so a
	// strictly-greater comparison cannot tie.
	best := analysis.Confidence
	for _, p := range intentPatterns {
		if !p.pattern.MatchString(normalized) {
			continue
		}
		score := p.weight
		if score > maxPatternConfidence {
			score = maxPatternConfidence
		}
		if score > best {
			best = score
			analysis.Intent = p.intent
			analysis.Domain = p.domain
			analysis.Confidence = score
		}
	}

	analysis.Complexity = deriveComplexity(normalized, len(words))
	analysis.TargetAudience = deriveAudience(normalized)
	analysis.KeyFeatures = extractFeatures(normalized)
	analysis.TechPreferences = extractTechPreferences(normalized)

	a.logger.Debugf("analyzed request: intent=%s domain=%s complexity=%s confidence=%.2f features=%d",
		analysis.Intent, analysis.Domain, analysis.Complexity, analysis.Confidence, len(analysis.KeyFeatures))

	return analysis
}

// estimateTokens measures the prompt with tiktoken when available. The
// estimate feeds the generation token budget, never the complexity tier.
func (a *Analyzer) estimateTokens(text string, wordCount int) int {
	if a.encoder != nil {
		return len(a.encoder.Encode(text, nil, nil))
	}
	return wordCount * 4 / 3
}

// deriveComplexity applies the length heuristics. Checked top-down:
// enterprise, complex, simple, medium. Word count overrides pattern-based
// hints when they disagree.
func deriveComplexity(normalized string, wordCount int) ComplexityTier {
	switch {
	case wordCount > 100 || enterprisePattern.MatchString(normalized):
		return ComplexityEnterprise
	case wordCount > 50 || advancedFeaturePattern.MatchString(normalized):
		return ComplexityComplex
	case simpleMarkerPattern.MatchString(normalized) && wordCount < 20:
		return ComplexitySimple
	default:
		return ComplexityMedium
	}
}

func deriveAudience(normalized string) Audience {
	switch {
	case enterpriseAudiencePattern.MatchString(normalized):
		return AudienceEnterprise
	case developerAudiencePattern.MatchString(normalized):
		return AudienceDeveloper
	case smallBusinessPattern.MatchString(normalized):
		return AudienceSmallBusiness
	default:
		return AudiencePersonal
	}
}

func extractFeatures(normalized string) []string {
	var features []string
	seen := make(map[string]bool)
	for _, fk := range featureKeywords {
		if seen[fk.tag] {
			continue
		}
		for _, keyword := range fk.keywords {
			if strings.Contains(normalized, keyword) {
				features = append(features, fk.tag)
				seen[fk.tag] = true
				break
			}
		}
	}
	return features
}

func extractTechPreferences(normalized string) []TechPreference {
	var prefs []TechPreference
	seen := make(map[string]bool)
	for _, entry := range technologyTable {
		if seen[entry.category] {
			continue
		}
		if strings.Contains(normalized, entry.name) {
			prefs = append(prefs, TechPreference{
				Category: entry.category,
				Value:    entry.name,
				Explicit: true,
			})
			seen[entry.category] = true
			continue
		}
		for _, hint := range entry.hints {
			if strings.Contains(normalized, hint) {
				prefs = append(prefs, TechPreference{
					Category: entry.category,
					Value:    entry.name,
					Explicit: false,
				})
				seen[entry.category] = true
				break
			}
		}
	}
	return prefs
}
