package personalization

import (
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/analyzer"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/session"
)

// Rule is one declarative personalization rule: a predicate over the
// analysis and session, a priority, and the modifications it contributes.
// Rules never mutate the session; only the surrounding engine does, using
// the rule output. Priorities are distinct so application order is total.
type Rule struct {
	Name          string
	Priority      int
	Condition     func(analyzer.Analysis, *session.Session) bool
	Modifications []Modification
}

// RuleFrequentFeatures is the single dynamic rule: its modifications are
// computed at apply time from the session's most-used features (see
// Engine.dynamicModifications).
const RuleFrequentFeatures = "frequent-features"

// Dynamic-rule parameters: top-N most-used features with at least minCount
// uses, skipping features already present in the analysis.
const (
	frequentFeatureTopN     = 2
	frequentFeatureMinCount = 3
)

// defaultRules is the built-in rule set, in declaration order. The engine
// sorts matches by descending priority before applying, so declaration
// order carries no meaning.
func defaultRules() []Rule {
	return []Rule{
		{
			Name:     "simplify-architecture",
			Priority: 10,
			Condition: func(a analyzer.Analysis, s *session.Session) bool {
				return s.ConsecutiveFailures() >= 3
			},
			Modifications: []Modification{
				{
					Kind:   ChangeArchitecture,
					Target: "architecture",
					Value:  "simplified",
					Reason: "three or more consecutive failures; falling back to a simpler architecture",
				},
				{
					Kind:   RemoveComponent,
					Target: "advanced-integrations",
					Value:  "defer",
					Reason: "deferring advanced integrations until generation stabilizes",
				},
			},
		},
		{
			Name:     "favorite-technology",
			Priority: 8,
			Condition: func(a analyzer.Analysis, s *session.Session) bool {
				return len(s.Preferences.FavoriteTechnologies) > 0 && !hasExplicitTech(a)
			},
			Modifications: []Modification{
				{
					Kind:   ModifyStyle,
					Target: "tech-stack",
					Value:  "preferred-stack",
					Reason: "no explicit technology requested; reusing the stack from past sessions",
				},
			},
		},
		{
			Name:     "quality-raise",
			Priority: 7,
			Condition: func(a analyzer.Analysis, s *session.Session) bool {
				return s.Preferences.QualityThreshold >= 85
			},
			Modifications: []Modification{
				{
					Kind:   AddFeature,
					Target: "quality-gates",
					Value:  "strict",
					Reason: "session quality threshold is high; enabling strict quality gates",
				},
			},
		},
		{
			Name:     RuleFrequentFeatures,
			Priority: 6,
			Condition: func(a analyzer.Analysis, s *session.Session) bool {
				return len(s.TopFrequentFeatures(frequentFeatureTopN, frequentFeatureMinCount)) > 0
			},
			// Modifications computed at apply time.
		},
		{
			Name:     "complexity-alignment",
			Priority: 5,
			Condition: func(a analyzer.Analysis, s *session.Session) bool {
				return s.Preferences.ComplexityPreference != a.Complexity
			},
			Modifications: []Modification{
				{
					Kind:   ChangeArchitecture,
					Target: "complexity",
					Value:  "preferred-tier",
					Reason: "request complexity differs from the session's preferred tier",
				},
			},
		},
		{
			Name:     "speed-preference",
			Priority: 4,
			Condition: func(a analyzer.Analysis, s *session.Session) bool {
				return s.Preferences.SpeedPreference == session.SpeedFast
			},
			Modifications: []Modification{
				{
					Kind:   RemoveComponent,
					Target: "noncritical-polish",
					Value:  "defer",
					Reason: "fast generation preferred; deferring non-critical polish",
				},
			},
		},
		{
			Name:     "domain-expertise-styling",
			Priority: 3,
			Condition: func(a analyzer.Analysis, s *session.Session) bool {
				return s.ExpertiseFor(a.Domain) >= 0.6
			},
			Modifications: []Modification{
				{
					Kind:   ModifyStyle,
					Target: "terminology",
					Value:  "expert-level",
					Reason: "high accumulated expertise in this domain; using expert-level terminology",
				},
			},
		},
	}
}

func hasExplicitTech(a analyzer.Analysis) bool {
	for _, pref := range a.TechPreferences {
		if pref.Explicit {
			return true
		}
	}
	return false
}
