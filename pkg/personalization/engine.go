// Package personalization adjusts generation requests using accumulated
// session history. The rules are data, not control flow: a prioritized
// list of (condition, modifications) structs evaluated generically.
package personalization

import (
	"fmt"
	"sort"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/analyzer"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/session"
)

// Confidence model constants (see computeConfidence).
const (
	baselineConfidence      = 0.8
	defaultSuccessRate      = 0.7
	modificationPenalty     = 0.05
	maxModificationPenalty  = 0.2
	minConfidence           = 0.3
	maxConfidence           = 0.95
	recommendationThreshold = 0.6
)

// Engine evaluates the personalization rule set. Safe for concurrent use;
// rules are fixed at construction.
type Engine struct {
	rules  []Rule
	logger utils.ExtendedLogger
}

// NewEngine creates an engine with the built-in rule set.
func NewEngine(logger utils.ExtendedLogger) *Engine {
	return NewEngineWithRules(defaultRules(), logger)
}

// NewEngineWithRules creates an engine with a custom rule set.
func NewEngineWithRules(rules []Rule, logger utils.ExtendedLogger) *Engine {
	return &Engine{
		rules:  rules,
		logger: logger,
	}
}

// Personalize produces the ordered modification list for one request.
//
// With no session it returns the base template untouched with confidence
// 1.0. Otherwise every matching rule contributes its modifications, sorted
// by descending priority; this compounds rather than first-match-wins.
// External recommendations above the confidence threshold are folded in
// after the rules.
func (e *Engine) Personalize(baseTemplate string, analysis analyzer.Analysis, sess *session.Session, recommendations []ExternalRecommendation) PersonalizedTemplate {
	if sess == nil {
		return PersonalizedTemplate{
			BaseTemplate: baseTemplate,
			Confidence:   1.0,
			Reasoning:    []string{"no session history available; using base template unmodified"},
		}
	}

	matched := make([]Rule, 0, len(e.rules))
	for _, rule := range e.rules {
		if rule.Condition(analysis, sess) {
			matched = append(matched, rule)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})

	var modifications []Modification
	var reasoning []string
	for _, rule := range matched {
		mods := rule.Modifications
		if rule.Name == RuleFrequentFeatures {
			mods = e.dynamicModifications(analysis, sess)
			if len(mods) == 0 {
				// Condition matched but every frequent feature is already
				// requested; the rule contributes nothing.
				continue
			}
		}
		modifications = append(modifications, mods...)
		reasoning = append(reasoning, fmt.Sprintf("rule %s (priority %d) matched", rule.Name, rule.Priority))
	}

	for _, rec := range recommendations {
		if rec.Confidence <= recommendationThreshold {
			continue
		}
		kind, ok := recommendationKindMap[rec.Kind]
		if !ok {
			e.logger.Warnf("ignoring external recommendation with unknown kind %q", rec.Kind)
			continue
		}
		modifications = append(modifications, Modification{
			Kind:   kind,
			Target: rec.Target,
			Value:  rec.Value,
			Reason: fmt.Sprintf("external recommendation (confidence %.2f)", rec.Confidence),
		})
		reasoning = append(reasoning, fmt.Sprintf("folded in external %s recommendation for %s", rec.Kind, rec.Target))
	}

	confidence := computeConfidence(sess, analysis, len(modifications))
	e.logger.Debugf("personalized template: rules=%d modifications=%d confidence=%.2f",
		len(matched), len(modifications), confidence)

	return PersonalizedTemplate{
		BaseTemplate:  baseTemplate,
		Modifications: modifications,
		Confidence:    confidence,
		Reasoning:     reasoning,
	}
}

// dynamicModifications computes the frequent-features rule output at apply
// time: the session's top-N most-used features with enough uses that are
// not already in the request.
func (e *Engine) dynamicModifications(analysis analyzer.Analysis, sess *session.Session) []Modification {
	candidates := sess.TopFrequentFeatures(frequentFeatureTopN+len(analysis.KeyFeatures), frequentFeatureMinCount)

	var mods []Modification
	for _, feature := range candidates {
		if analysis.HasFeature(feature) {
			continue
		}
		mods = append(mods, Modification{
			Kind:   AddFeature,
			Target: RuleFrequentFeatures,
			Value:  feature,
			Reason: fmt.Sprintf("feature %q requested in at least %d past sessions", feature, frequentFeatureMinCount),
		})
		if len(mods) == frequentFeatureTopN {
			break
		}
	}
	return mods
}

// computeConfidence implements the fixed confidence model:
//
//	0.8 × (0.5 + successRate×0.5) × (0.7 + expertise×0.3) − min(0.05×mods, 0.2)
//
// clamped to [0.3, 0.95]. Success rate defaults to 0.7 on empty history.
func computeConfidence(sess *session.Session, analysis analyzer.Analysis, modificationCount int) float64 {
	successRate := sess.SuccessRate(defaultSuccessRate)
	expertise := sess.ExpertiseFor(analysis.Domain)

	penalty := modificationPenalty * float64(modificationCount)
	if penalty > maxModificationPenalty {
		penalty = maxModificationPenalty
	}

	confidence := baselineConfidence * (0.5 + successRate*0.5) * (0.7 + expertise*0.3)
	confidence -= penalty

	if confidence < minConfidence {
		return minConfidence
	}
	if confidence > maxConfidence {
		return maxConfidence
	}
	return confidence
}
