package analyzer

import "regexp"

// Pattern confidence is capped below 1.0 so a pattern match is never
// treated as certain.
const maxPatternConfidence = 0.95

// intentPattern maps a request phrasing to an (intent, domain) pair.
// Weights are deliberately distinct across the table: the analyzer picks
// the strictly highest-scoring match, so equal weights would make the
// winner depend on declaration order.
type intentPattern struct {
	pattern *regexp.Regexp
	intent  string
	domain  string
	weight  float64
}

var intentPatterns = []intentPattern{
	{regexp.MustCompile(`\b(shop|store|e-?commerce|sell|marketplace|product catalog)\b`), "build-storefront", "e-commerce", 0.92},
	{regexp.MustCompile(`\b(dashboard|admin panel|analytics|metrics|kpi|reporting)\b`), "build-dashboard", "dashboard", 0.90},
	{regexp.MustCompile(`\b(saas|subscription|multi-?tenant|b2b platform)\b`), "build-saas", "saas", 0.89},
	{regexp.MustCompile(`\b(blog|article|newsletter|cms|content site)\b`), "publish-content", "blog", 0.87},
	{regexp.MustCompile(`\b(landing page|launch page|waitlist|marketing (page|site)|promo)\b`), "launch-landing", "landing-page", 0.85},
	{regexp.MustCompile(`\b(portfolio|showcase|personal (site|website)|resume site)\b`), "showcase-work", "portfolio", 0.83},
	{regexp.MustCompile(`\b(rest api|graphql|api service|backend service|microservice)\b`), "expose-api", "api-service", 0.81},
	{regexp.MustCompile(`\b(contact form|signup form|survey|questionnaire|lead capture)\b`), "collect-input", "form", 0.79},
	{regexp.MustCompile(`\b(docs|documentation (site|portal)|knowledge base|wiki)\b`), "publish-docs", "documentation", 0.77},
	{regexp.MustCompile(`\b(booking|reservation|appointment|scheduling)\b`), "manage-bookings", "booking", 0.75},
}

// Complexity tier heuristics (see deriveComplexity).
var (
	enterprisePattern      = regexp.MustCompile(`\b(enterprise|erp|crm|multi-?tenant|sso|single sign-?on|audit log|compliance|rbac|role-?based)\b`)
	advancedFeaturePattern = regexp.MustCompile(`\b(real-?time|websocket|payment|oauth|internationali[sz]ation|i18n|offline|machine learning|recommendation engine)\b`)
	simpleMarkerPattern    = regexp.MustCompile(`\b(simple|basic|minimal|quick|small|one page|single page)\b`)
)

// Audience heuristics.
var (
	enterpriseAudiencePattern = regexp.MustCompile(`\b(enterprise|corporate|company-?wide|internal teams?|organization)\b`)
	developerAudiencePattern  = regexp.MustCompile(`\b(developers?|sdk|api consumers?|cli|open.?source)\b`)
	smallBusinessPattern      = regexp.MustCompile(`\b(small business|my (business|shop|store|company)|local (business|shop)|freelance)\b`)
)

// featureKeywords maps request wording to canonical feature tags. First
// matching keyword claims the tag; tags are emitted in table order.
var featureKeywords = []struct {
	tag      string
	keywords []string
}{
	{"authentication", []string{"login", "log in", "sign in", "signin", "auth", "register", "account"}},
	{"payments", []string{"payment", "checkout", "stripe", "paypal", "billing", "subscription"}},
	{"search", []string{"search", "filter", "autocomplete"}},
	{"cart", []string{"cart", "basket", "wishlist"}},
	{"admin", []string{"admin", "moderation", "back office", "backoffice"}},
	{"analytics", []string{"analytics", "metrics", "tracking", "statistics"}},
	{"chat", []string{"chat", "messaging", "live support"}},
	{"notifications", []string{"notification", "email alert", "push alert", "reminder"}},
	{"comments", []string{"comment", "review", "rating", "feedback form"}},
	{"dark-mode", []string{"dark mode", "dark theme", "theme toggle"}},
	{"i18n", []string{"i18n", "multilingual", "multi-language", "translation"}},
	{"seo", []string{"seo", "sitemap", "meta tags", "open graph"}},
	{"responsive", []string{"responsive", "mobile friendly", "mobile-first"}},
	{"realtime", []string{"real-time", "realtime", "websocket", "live updates"}},
	{"uploads", []string{"upload", "file attachment", "image gallery", "media library"}},
	{"export", []string{"export", "csv download", "pdf generation"}},
}

// technologyTable maps technology mentions to (category, value) pairs, in
// priority order within each category. An explicit name mention beats a
// hint-based inference.
var technologyTable = []struct {
	category string
	name     string
	hints    []string
}{
	{"framework", "react", []string{"jsx", "hooks"}},
	{"framework", "nextjs", []string{"next.js", "server components", "app router"}},
	{"framework", "vue", []string{"nuxt", "composition api"}},
	{"framework", "svelte", []string{"sveltekit"}},
	{"framework", "angular", nil},
	{"styling", "tailwind", []string{"utility classes", "utility-first"}},
	{"styling", "bootstrap", nil},
	{"styling", "css-modules", []string{"scoped styles", "css modules"}},
	{"database", "postgres", []string{"postgresql", "relational database"}},
	{"database", "mysql", nil},
	{"database", "mongodb", []string{"document database", "nosql"}},
	{"database", "sqlite", []string{"embedded database"}},
	{"language", "typescript", []string{"type-safe", "type safe", "typed"}},
	{"language", "javascript", nil},
	{"hosting", "vercel", nil},
	{"hosting", "netlify", nil},
	{"hosting", "docker", []string{"container", "self-hosted"}},
}
