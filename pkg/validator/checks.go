package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Dimension names one validation axis.
type Dimension string

const (
	DimStructure     Dimension = "structure"
	DimCompilation   Dimension = "compilation"
	DimQuality       Dimension = "quality"
	DimFunctionality Dimension = "functionality"
	DimPerformance   Dimension = "performance"
	DimAccessibility Dimension = "accessibility"
)

// AllDimensions lists every axis in weight-table order.
var AllDimensions = []Dimension{
	DimStructure,
	DimCompilation,
	DimQuality,
	DimFunctionality,
	DimPerformance,
	DimAccessibility,
}

// DimensionResult is one check's 0-100 sub-score plus its findings.
type DimensionResult struct {
	Score    float64  `json:"score"`
	Findings []string `json:"findings,omitempty"`
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Structural completeness file sets. Missing critical files cost three
// times what optional ones do.
var (
	criticalFiles = [][]string{
		{"package.json"},
		{"index.html", "public/index.html", "src/index.html"},
		{"src/main.js", "src/main.ts", "src/main.jsx", "src/main.tsx", "src/index.js", "src/index.ts", "src/index.jsx", "src/index.tsx", "src/App.jsx", "src/App.tsx"},
	}
	optionalFiles = [][]string{
		{"README.md", "readme.md"},
		{".gitignore"},
		{"src/styles.css", "src/index.css", "src/App.css", "styles.css"},
	}
)

const (
	criticalMissPenalty = 30
	optionalMissPenalty = 10
)

// essentialFilesPresent is the rescue signal: every critical file group is
// satisfied.
func essentialFilesPresent(a *Artifact) bool {
	for _, group := range criticalFiles {
		if !a.HasAnyFile(group...) {
			return false
		}
	}
	return true
}

func checkStructure(_ context.Context, a *Artifact) DimensionResult {
	result := DimensionResult{Score: 100}
	for _, group := range criticalFiles {
		if !a.HasAnyFile(group...) {
			result.Score -= criticalMissPenalty
			result.Findings = append(result.Findings, fmt.Sprintf("missing critical file (any of %s)", strings.Join(group, ", ")))
		}
	}
	for _, group := range optionalFiles {
		if !a.HasAnyFile(group...) {
			result.Score -= optionalMissPenalty
			result.Findings = append(result.Findings, fmt.Sprintf("missing optional file (any of %s)", strings.Join(group, ", ")))
		}
	}
	result.Score = clampScore(result.Score)
	return result
}

// localImportPattern matches relative imports in js/ts source.
var localImportPattern = regexp.MustCompile(`(?m)(?:import\s+[^'"]*from\s+|require\()\s*['"](\.{1,2}/[^'"]+)['"]`)

// checkCompilation is a build-success proxy: package.json must parse,
// relative imports must resolve, and brace/paren nesting must balance. An
// artifact with no source files cannot build at all.
func checkCompilation(_ context.Context, a *Artifact) DimensionResult {
	result := DimensionResult{Score: 100}

	sources := a.SourceFiles()
	if len(sources) == 0 {
		return DimensionResult{Score: 0, Findings: []string{"no source files to build"}}
	}

	if raw, ok := a.Files["package.json"]; ok {
		var parsed map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			result.Score -= 40
			result.Findings = append(result.Findings, "package.json is not valid JSON")
		}
	}

	unresolved := 0
	for _, path := range sources {
		content := a.Files[path]
		if !balancedDelimiters(content) {
			result.Score -= 15
			result.Findings = append(result.Findings, fmt.Sprintf("unbalanced braces in %s", path))
		}
		for _, match := range localImportPattern.FindAllStringSubmatch(content, -1) {
			if !resolveImport(a, path, match[1]) {
				unresolved++
				if unresolved <= 5 {
					result.Findings = append(result.Findings, fmt.Sprintf("unresolved import %q in %s", match[1], path))
				}
			}
		}
	}
	result.Score -= float64(10 * unresolved)

	result.Score = clampScore(result.Score)
	return result
}

func balancedDelimiters(content string) bool {
	depth := map[rune]int{}
	pairs := map[rune]rune{'}': '{', ')': '(', ']': '['}
	inString := rune(0)
	escaped := false
	for _, r := range content {
		if escaped {
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		if inString != 0 {
			if r == inString {
				inString = 0
			}
			continue
		}
		switch r {
		case '"', '\'', '`':
			inString = r
		case '{', '(', '[':
			depth[r]++
		case '}', ')', ']':
			depth[pairs[r]]--
			if depth[pairs[r]] < 0 {
				return false
			}
		}
	}
	return depth['{'] == 0 && depth['('] == 0 && depth['['] == 0
}

var importExtensions = []string{"", ".js", ".jsx", ".ts", ".tsx", "/index.js", "/index.jsx", "/index.ts", "/index.tsx", ".css", ".json"}

func resolveImport(a *Artifact, from, target string) bool {
	dir := from
	if idx := strings.LastIndex(from, "/"); idx >= 0 {
		dir = from[:idx]
	} else {
		dir = ""
	}
	joined := normalizePath(dir, target)
	for _, ext := range importExtensions {
		if a.HasFile(joined + ext) {
			return true
		}
	}
	return false
}

// normalizePath resolves ./ and ../ segments against a base directory.
func normalizePath(dir, target string) string {
	parts := []string{}
	if dir != "" {
		parts = strings.Split(dir, "/")
	}
	for _, seg := range strings.Split(target, "/") {
		switch seg {
		case ".", "":
		case "..":
			if len(parts) > 0 {
				parts = parts[:len(parts)-1]
			}
		default:
			parts = append(parts, seg)
		}
	}
	return strings.Join(parts, "/")
}

// Code-quality thresholds.
const (
	maxFunctionLines     = 60
	duplicationThreshold = 0.15
)

var (
	functionStartPattern = regexp.MustCompile(`(?m)^\s*(?:export\s+)?(?:async\s+)?function\s+\w+|^\s*(?:export\s+)?const\s+\w+\s*=\s*(?:async\s*)?\(`)
	branchPattern        = regexp.MustCompile(`\b(if|else|for|while|switch|case|catch)\b|&&|\|\||\?`)
)

// checkQuality scores static code-quality proxies: function length,
// duplicate-line ratio, and branching density normalized by file count.
func checkQuality(_ context.Context, a *Artifact) DimensionResult {
	result := DimensionResult{Score: 100}
	sources := a.SourceFiles()
	if len(sources) == 0 {
		return DimensionResult{Score: 50, Findings: []string{"no source files to assess"}}
	}

	longFunctions := 0
	totalLines := 0
	lineCounts := make(map[string]int)
	totalBranches := 0

	for _, path := range sources {
		content := a.Files[path]
		lines := strings.Split(content, "\n")
		totalLines += len(lines)

		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			if len(trimmed) > 10 {
				lineCounts[trimmed]++
			}
		}

		longFunctions += countLongFunctions(lines)
		totalBranches += len(branchPattern.FindAllString(content, -1))
	}

	if longFunctions > 0 {
		penalty := float64(8 * longFunctions)
		if penalty > 30 {
			penalty = 30
		}
		result.Score -= penalty
		result.Findings = append(result.Findings, fmt.Sprintf("%d function(s) longer than %d lines", longFunctions, maxFunctionLines))
	}

	duplicated := 0
	for _, count := range lineCounts {
		if count > 1 {
			duplicated += count - 1
		}
	}
	if totalLines > 0 {
		ratio := float64(duplicated) / float64(totalLines)
		if ratio > duplicationThreshold {
			result.Score -= 20
			result.Findings = append(result.Findings, fmt.Sprintf("duplicate-line ratio %.0f%% exceeds %.0f%%", ratio*100, duplicationThreshold*100))
		}
	}

	branchesPerFile := float64(totalBranches) / float64(len(sources))
	if branchesPerFile > 40 {
		result.Score -= 15
		result.Findings = append(result.Findings, fmt.Sprintf("high branching density (%.0f branches per file)", branchesPerFile))
	}

	result.Score = clampScore(result.Score)
	return result
}

// countLongFunctions approximates function extents by brace depth from
// each function start line.
func countLongFunctions(lines []string) int {
	count := 0
	for i, line := range lines {
		if !functionStartPattern.MatchString(line) {
			continue
		}
		depth := 0
		started := false
		length := 0
		for j := i; j < len(lines); j++ {
			depth += strings.Count(lines[j], "{") - strings.Count(lines[j], "}")
			if strings.Contains(lines[j], "{") {
				started = true
			}
			length++
			if started && depth <= 0 {
				break
			}
		}
		if length > maxFunctionLines {
			count++
		}
	}
	return count
}

// wellFormedSource requires an export plus some rendered or returned
// output; a stub that compiles but renders nothing does not count.
var renderMarkerPattern = regexp.MustCompile(`return\s*\(|return\s*<|=>\s*\(|=>\s*<|innerHTML|createElement|render\(`)

func wellFormedSource(content string) bool {
	if !strings.Contains(content, "export") && !strings.Contains(content, "module.exports") {
		return false
	}
	return renderMarkerPattern.MatchString(content)
}

// checkFunctionality scores the ratio of well-formed components and pages
// against what the generation step declared.
func checkFunctionality(_ context.Context, a *Artifact) DimensionResult {
	declared := len(a.DeclaredComponents) + len(a.DeclaredPages)
	if declared == 0 {
		return DimensionResult{Score: 70, Findings: []string{"nothing declared; functional completeness unknown"}}
	}

	wellFormed := 0
	var result DimensionResult
	for _, name := range append(append([]string{}, a.DeclaredComponents...), a.DeclaredPages...) {
		path := a.findDeclaredFile(name)
		if path == "" {
			result.Findings = append(result.Findings, fmt.Sprintf("declared %q has no backing file", name))
			continue
		}
		if !wellFormedSource(a.Files[path]) {
			result.Findings = append(result.Findings, fmt.Sprintf("%s exists but does not render anything", path))
			continue
		}
		wellFormed++
	}

	result.Score = clampScore(100 * float64(wellFormed) / float64(declared))
	return result
}

// Performance proxy: total artifact size against a fixed budget. Full
// score at or below budget, linear falloff to zero at four times budget.
const sizeBudgetBytes = 512 * 1024

func checkPerformance(_ context.Context, a *Artifact) DimensionResult {
	total := a.TotalSize()
	result := DimensionResult{}
	switch {
	case total <= sizeBudgetBytes:
		result.Score = 100
	case total >= 4*sizeBudgetBytes:
		result.Score = 0
		result.Findings = append(result.Findings, fmt.Sprintf("artifact is %d bytes, over four times the %d byte budget", total, sizeBudgetBytes))
	default:
		overage := float64(total-sizeBudgetBytes) / float64(3*sizeBudgetBytes)
		result.Score = clampScore(100 * (1 - overage))
		result.Findings = append(result.Findings, fmt.Sprintf("artifact is %d bytes against a %d byte budget", total, sizeBudgetBytes))
	}
	return result
}

// Accessibility violations, weighted by severity. Each severity point
// costs five score points.
var accessibilityChecks = []struct {
	pattern  *regexp.Regexp
	severity int
	finding  string
}{
	{regexp.MustCompile(`<img\b[^>]*>`), 3, "image without alt text"},
	{regexp.MustCompile(`<div\b[^>]*onClick`), 2, "click handler on a non-interactive div"},
	{regexp.MustCompile(`<html\b[^>]*>`), 2, "html element without lang attribute"},
	{regexp.MustCompile(`<input\b[^>]*>`), 2, "input without label or aria attributes"},
	{regexp.MustCompile(`tabindex\s*=\s*["']?[1-9]`), 1, "positive tabindex breaks focus order"},
}

const accessibilityPointPenalty = 5

func checkAccessibility(_ context.Context, a *Artifact) DimensionResult {
	result := DimensionResult{Score: 100}

	markupPaths := make([]string, 0, len(a.Files))
	for path := range a.Files {
		switch {
		case strings.HasSuffix(path, ".html"), strings.HasSuffix(path, ".jsx"), strings.HasSuffix(path, ".tsx"):
			markupPaths = append(markupPaths, path)
		}
	}

	penalty := 0
	for _, path := range markupPaths {
		content := a.Files[path]
		for _, check := range accessibilityChecks {
			for _, match := range check.pattern.FindAllString(content, -1) {
				if violates(check.finding, match) {
					penalty += check.severity * accessibilityPointPenalty
					result.Findings = append(result.Findings, fmt.Sprintf("%s: %s", path, check.finding))
				}
			}
		}
	}

	result.Score = clampScore(result.Score - float64(penalty))
	return result
}

// violates filters pattern hits that actually carry the mitigating
// attribute.
func violates(finding, match string) bool {
	lower := strings.ToLower(match)
	switch finding {
	case "image without alt text":
		return !strings.Contains(lower, "alt=")
	case "html element without lang attribute":
		return !strings.Contains(lower, "lang=")
	case "input without label or aria attributes":
		return !strings.Contains(lower, "aria-") && !strings.Contains(lower, "id=")
	default:
		return true
	}
}
