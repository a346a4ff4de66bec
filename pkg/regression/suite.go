package regression

import (
	"fmt"
	"sort"
)

// Case is one named scenario in a suite. ExpectedFeatures are marker tags
// that must be detectable in the generated artifact; partial coverage is
// acceptable because generation is probabilistic (see featureCoverageFloor).
type Case struct {
	Name             string   `json:"name"`
	Prompt           string   `json:"prompt"`
	ExpectedDomain   string   `json:"expected_domain"`
	MinScore         float64  `json:"min_score"`
	ExpectedFeatures []string `json:"expected_features"`
}

// featureCoverageFloor is the fraction of expected feature markers that
// must be present for a case to pass.
const featureCoverageFloor = 0.6

// suites are the fixed named batteries. Cases inside a suite run
// sequentially so reports stay deterministic.
var suites = map[string][]Case{
	"smoke": {
		{
			Name:             "storefront-basic",
			Prompt:           "Create an online store with a product catalog and shopping cart",
			ExpectedDomain:   "e-commerce",
			MinScore:         70,
			ExpectedFeatures: []string{"product-catalog", "shopping-cart"},
		},
		{
			Name:             "dashboard-basic",
			Prompt:           "Build an analytics dashboard with charts and metrics",
			ExpectedDomain:   "dashboard",
			MinScore:         70,
			ExpectedFeatures: []string{"charts", "metrics-panel"},
		},
	},
	"domains": {
		{
			Name:             "blog-publishing",
			Prompt:           "Create a blog with article pages and a newsletter signup",
			ExpectedDomain:   "blog",
			MinScore:         70,
			ExpectedFeatures: []string{"article-list", "newsletter-signup"},
		},
		{
			Name:             "portfolio-showcase",
			Prompt:           "Build a portfolio site to showcase design work",
			ExpectedDomain:   "portfolio",
			MinScore:         70,
			ExpectedFeatures: []string{"project-gallery", "about-section"},
		},
		{
			Name:             "booking-flow",
			Prompt:           "Create an appointment booking page for a clinic",
			ExpectedDomain:   "booking",
			MinScore:         70,
			ExpectedFeatures: []string{"calendar", "booking-form"},
		},
		{
			Name:             "contact-form",
			Prompt:           "simple contact form, one page",
			ExpectedDomain:   "form",
			MinScore:         65,
			ExpectedFeatures: []string{"contact-form"},
		},
	},
	"features": {
		{
			Name:             "storefront-rich",
			Prompt:           "Create an online store with search, shopping cart, checkout and an admin area",
			ExpectedDomain:   "e-commerce",
			MinScore:         75,
			ExpectedFeatures: []string{"search", "shopping-cart", "checkout", "admin-panel"},
		},
		{
			Name:             "saas-billing",
			Prompt:           "Build a saas platform with subscription billing and team accounts",
			ExpectedDomain:   "saas",
			MinScore:         75,
			ExpectedFeatures: []string{"billing", "team-accounts", "auth"},
		},
	},
}

// SuiteNames lists the available suites in stable order.
func SuiteNames() []string {
	names := make([]string, 0, len(suites))
	for name := range suites {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SuiteCases returns the cases of a named suite.
func SuiteCases(name string) ([]Case, error) {
	cases, ok := suites[name]
	if !ok {
		return nil, fmt.Errorf("unknown regression suite: %s (available: %v)", name, SuiteNames())
	}
	return cases, nil
}
