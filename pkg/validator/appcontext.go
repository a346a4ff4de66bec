package validator

import (
	"encoding/json"
	"strings"
)

// MaturityLevel is a dependency/script richness proxy for how far along an
// artifact is.
type MaturityLevel string

const (
	MaturityBasic        MaturityLevel = "basic"
	MaturityIntermediate MaturityLevel = "intermediate"
	MaturityAdvanced     MaturityLevel = "advanced"
	MaturityProduction   MaturityLevel = "production"
)

// AppContext is the derived classification of an artifact used to adjust
// validation weighting. It is computed fresh from artifact inspection on
// every call and never persisted; identical artifacts always derive the
// identical context.
type AppContext struct {
	IsTestArtifact      bool          `json:"is_test_artifact"`
	Maturity            MaturityLevel `json:"maturity"`
	DomainType          string        `json:"domain_type"`
	HasAdvancedFeatures bool          `json:"has_advanced_features"`
}

// Weights is the per-dimension weight vector. Every vector the validator
// uses sums to 1.0.
type Weights map[Dimension]float64

// DefaultWeights returns the standard vector.
func DefaultWeights() Weights {
	return Weights{
		DimStructure:     0.25,
		DimCompilation:   0.25,
		DimQuality:       0.20,
		DimFunctionality: 0.15,
		DimPerformance:   0.10,
		DimAccessibility: 0.05,
	}
}

// testArtifactWeights shifts weight toward quality and functionality for
// throwaway/test artifacts, where scaffolding completeness matters less.
func testArtifactWeights() Weights {
	return Weights{
		DimStructure:     0.15,
		DimCompilation:   0.15,
		DimQuality:       0.30,
		DimFunctionality: 0.25,
		DimPerformance:   0.10,
		DimAccessibility: 0.05,
	}
}

// Sum returns the vector total. Exposed for invariant tests.
func (w Weights) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

// WeightsFor is the pure context-to-weights function. Keeping it pure and
// separate is what makes context-dependent scoring testable rather than
// looking like nondeterminism.
func WeightsFor(appCtx AppContext) Weights {
	if appCtx.IsTestArtifact {
		return testArtifactWeights()
	}
	return DefaultWeights()
}

// Advanced-feature bundles grant bounded score bonuses when detected.
var advancedFeatureBundles = []struct {
	name    string
	markers []string
	bonus   float64
}{
	{"authentication", []string{"login", "signin", "auth", "jwt", "session"}, 5},
	{"realtime", []string{"websocket", "socket.io", "eventsource", "sse"}, 5},
	{"internationalization", []string{"i18n", "locale", "translation"}, 3},
	{"state-management", []string{"redux", "zustand", "usereducer", "vuex", "pinia"}, 3},
}

// maxAdvancedBonus caps the total bundle bonus.
const maxAdvancedBonus = 10.0

// testArtifactMarkers flag throwaway artifacts: fixture directories,
// explicit test manifests, placeholder titles.
var testArtifactMarkers = []string{"__fixture__", "test-artifact", "smoke-test"}

// DeriveAppContext inspects the artifact and classifies it. Purely a
// function of file presence and content.
func DeriveAppContext(a *Artifact) AppContext {
	appCtx := AppContext{
		Maturity:   deriveMaturity(a),
		DomainType: deriveDomainType(a),
	}

	for path := range a.Files {
		lower := strings.ToLower(path)
		for _, marker := range testArtifactMarkers {
			if strings.Contains(lower, marker) {
				appCtx.IsTestArtifact = true
			}
		}
	}
	if name := packageName(a); name != "" {
		for _, marker := range testArtifactMarkers {
			if strings.Contains(name, marker) {
				appCtx.IsTestArtifact = true
			}
		}
	}

	appCtx.HasAdvancedFeatures = len(detectAdvancedBundles(a)) > 0
	return appCtx
}

// deriveMaturity grades dependency and script richness in package.json.
func deriveMaturity(a *Artifact) MaturityLevel {
	raw, ok := a.Files["package.json"]
	if !ok {
		return MaturityBasic
	}
	var pkg struct {
		Dependencies    map[string]string `json:"dependencies"`
		DevDependencies map[string]string `json:"devDependencies"`
		Scripts         map[string]string `json:"scripts"`
	}
	if err := json.Unmarshal([]byte(raw), &pkg); err != nil {
		return MaturityBasic
	}

	richness := len(pkg.Dependencies) + len(pkg.DevDependencies) + len(pkg.Scripts)
	_, hasTests := pkg.Scripts["test"]
	_, hasLint := pkg.Scripts["lint"]

	switch {
	case richness >= 15 && hasTests && hasLint:
		return MaturityProduction
	case richness >= 10:
		return MaturityAdvanced
	case richness >= 5:
		return MaturityIntermediate
	default:
		return MaturityBasic
	}
}

func packageName(a *Artifact) string {
	raw, ok := a.Files["package.json"]
	if !ok {
		return ""
	}
	var pkg struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(raw), &pkg); err != nil {
		return ""
	}
	return strings.ToLower(pkg.Name)
}

var domainTypeMarkers = []struct {
	domain  string
	markers []string
}{
	{"e-commerce", []string{"cart", "checkout", "product", "stripe"}},
	{"dashboard", []string{"chart", "dashboard", "widget", "metric"}},
	{"blog", []string{"post", "article", "markdown"}},
	{"form", []string{"form", "input", "submit"}},
}

func deriveDomainType(a *Artifact) string {
	counts := make(map[string]int)
	for path, content := range a.Files {
		haystack := strings.ToLower(path + " " + content)
		for _, dm := range domainTypeMarkers {
			for _, marker := range dm.markers {
				counts[dm.domain] += strings.Count(haystack, marker)
			}
		}
	}
	best, bestCount := "generic", 2 // require more than a stray mention
	for _, dm := range domainTypeMarkers {
		if counts[dm.domain] > bestCount {
			best, bestCount = dm.domain, counts[dm.domain]
		}
	}
	return best
}

// detectAdvancedBundles returns the names of advanced-feature bundles the
// artifact contains.
func detectAdvancedBundles(a *Artifact) []string {
	var detected []string
	for _, bundle := range advancedFeatureBundles {
		found := false
		for _, content := range a.Files {
			lower := strings.ToLower(content)
			for _, marker := range bundle.markers {
				if strings.Contains(lower, marker) {
					found = true
					break
				}
			}
			if found {
				break
			}
		}
		if found {
			detected = append(detected, bundle.name)
		}
	}
	return detected
}

// advancedBonus sums bundle bonuses, bounded by maxAdvancedBonus.
func advancedBonus(detected []string) float64 {
	total := 0.0
	for _, name := range detected {
		for _, bundle := range advancedFeatureBundles {
			if bundle.name == name {
				total += bundle.bonus
			}
		}
	}
	if total > maxAdvancedBonus {
		return maxAdvancedBonus
	}
	return total
}
