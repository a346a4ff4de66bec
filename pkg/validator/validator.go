// Package validator scores generated artifacts across six independent
// dimensions and combines them into a weighted overall score. Validation
// is total: whatever happens inside, the caller always gets a result.
package validator

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
)

// ValidationResult is the immutable outcome of one validation call. The
// same artifact under the same context always produces the same scores;
// different contexts may legitimately score the same artifact differently.
type ValidationResult struct {
	OverallScore float64                       `json:"overall_score"`
	Dimensions   map[Dimension]DimensionResult `json:"dimensions"`
	Suggestions  []string                      `json:"suggestions"`
	Rescued      bool                          `json:"rescued,omitempty"`
	DurationMs   int64                         `json:"duration_ms"`
}

// Passed reports whether the overall score clears the given gate.
func (r *ValidationResult) Passed(threshold float64) bool {
	return r.OverallScore >= threshold
}

// Config tunes the validator. Checks are independent; a slow check times
// out and scores zero for its dimension instead of blocking the run.
type Config struct {
	CheckTimeout   time.Duration
	CompileTimeout time.Duration
	MaxConcurrent  int
}

// SetCheckTimeout sets the per-check timeout for non-compile checks.
func (c *Config) SetCheckTimeout(d time.Duration) *Config {
	c.CheckTimeout = d
	return c
}

// SetCompileTimeout sets the compilation-check timeout.
func (c *Config) SetCompileTimeout(d time.Duration) *Config {
	c.CompileTimeout = d
	return c
}

// SetMaxConcurrent bounds the check worker pool.
func (c *Config) SetMaxConcurrent(n int) *Config {
	c.MaxConcurrent = n
	return c
}

// NewConfig returns defaults: 2s per check, 5s for compilation, three
// checks in flight at once.
func NewConfig() *Config {
	return &Config{
		CheckTimeout:   2 * time.Second,
		CompileTimeout: 5 * time.Second,
		MaxConcurrent:  3,
	}
}

// Validator runs the six checks. Safe for concurrent use.
type Validator struct {
	config *Config
	logger utils.ExtendedLogger
}

// New creates a validator.
func New(config *Config, logger utils.ExtendedLogger) *Validator {
	if config == nil {
		config = NewConfig()
	}
	return &Validator{
		config: config,
		logger: logger,
	}
}

type checkFunc func(context.Context, *Artifact) DimensionResult

func (v *Validator) checks() map[Dimension]checkFunc {
	return map[Dimension]checkFunc{
		DimStructure:     checkStructure,
		DimCompilation:   checkCompilation,
		DimQuality:       checkQuality,
		DimFunctionality: checkFunctionality,
		DimPerformance:   checkPerformance,
		DimAccessibility: checkAccessibility,
	}
}

// Validate scores the artifact with the default weight vector.
func (v *Validator) Validate(ctx context.Context, artifact *Artifact) (result *ValidationResult) {
	defer v.recoverToEmergency(&result)
	return v.validate(ctx, artifact, DefaultWeights(), 0, nil)
}

// ValidateWithContext derives an AppContext from the artifact and scores
// with context-adjusted weights and bounded advanced-feature bonuses.
// Returns the derived context alongside the result.
func (v *Validator) ValidateWithContext(ctx context.Context, artifact *Artifact) (result *ValidationResult, appCtx AppContext) {
	defer v.recoverToEmergency(&result)

	appCtx = DeriveAppContext(artifact)
	weights := WeightsFor(appCtx)

	bundles := detectAdvancedBundles(artifact)
	bonus := advancedBonus(bundles)

	var contextSuggestions []string
	if appCtx.IsTestArtifact {
		contextSuggestions = append(contextSuggestions,
			"test artifact detected: structural completeness weighted down, code quality weighted up")
	}
	for _, bundle := range bundles {
		contextSuggestions = append(contextSuggestions,
			fmt.Sprintf("advanced feature bundle detected: %s", bundle))
	}
	if appCtx.Maturity == MaturityBasic {
		contextSuggestions = append(contextSuggestions,
			"artifact has minimal dependencies and scripts; consider adding build and test scripts")
	}

	return v.validate(ctx, artifact, weights, bonus, contextSuggestions), appCtx
}

// validate runs all checks concurrently and combines them. The prefix
// suggestions (context notes) come before check-derived suggestions.
func (v *Validator) validate(ctx context.Context, artifact *Artifact, weights Weights, bonus float64, prefixSuggestions []string) *ValidationResult {
	start := time.Now()
	dimensions := v.runChecks(ctx, artifact)

	result := &ValidationResult{
		Dimensions:  dimensions,
		Suggestions: prefixSuggestions,
	}
	result.OverallScore = combine(dimensions, weights, bonus)

	if result.OverallScore < rescueThreshold {
		v.applyRescues(artifact, result, weights, bonus)
	}

	result.Suggestions = append(result.Suggestions, suggestionsFromDimensions(dimensions)...)
	result.DurationMs = time.Since(start).Milliseconds()

	v.logger.Infof("✅ Validated artifact %s: overall=%.0f (structure=%.0f compilation=%.0f quality=%.0f)",
		artifact.Root, result.OverallScore,
		dimensions[DimStructure].Score, dimensions[DimCompilation].Score, dimensions[DimQuality].Score)
	return result
}

// runChecks executes the six checks through a bounded worker pool. Checks
// share no state and join before scoring; a timed-out or panicked check
// scores zero for its dimension only.
func (v *Validator) runChecks(ctx context.Context, artifact *Artifact) map[Dimension]DimensionResult {
	type outcome struct {
		dim    Dimension
		result DimensionResult
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.config.MaxConcurrent)
	results := make(chan outcome, len(AllDimensions))

	for dim, check := range v.checks() {
		g.Go(func() error {
			timeout := v.config.CheckTimeout
			if dim == DimCompilation {
				timeout = v.config.CompileTimeout
			}
			results <- outcome{dim: dim, result: v.runCheck(gctx, artifact, dim, check, timeout)}
			return nil
		})
	}
	// Checks never return errors; failures become zero scores.
	_ = g.Wait()

	close(results)
	dimensions := make(map[Dimension]DimensionResult, len(AllDimensions))
	for out := range results {
		dimensions[out.dim] = out.result
	}
	return dimensions
}

// runCheck wraps one check with a timeout and panic isolation.
func (v *Validator) runCheck(ctx context.Context, artifact *Artifact, dim Dimension, check checkFunc, timeout time.Duration) DimensionResult {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan DimensionResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				v.logger.Errorf("❌ %s check panicked: %v", dim, r)
				done <- DimensionResult{Score: 0, Findings: []string{fmt.Sprintf("%s check failed internally", dim)}}
			}
		}()
		done <- check(checkCtx, artifact)
	}()

	select {
	case result := <-done:
		return result
	case <-checkCtx.Done():
		v.logger.Warnf("⚠️ %s check timed out after %s", dim, timeout)
		return DimensionResult{Score: 0, Findings: []string{fmt.Sprintf("%s check timed out", dim)}}
	}
}

// combine computes the rounded weighted sum plus any bounded bonus.
func combine(dimensions map[Dimension]DimensionResult, weights Weights, bonus float64) float64 {
	total := 0.0
	for dim, w := range weights {
		total += dimensions[dim].Score * w
	}
	total += bonus
	return clampScore(math.Round(total))
}

func suggestionsFromDimensions(dimensions map[Dimension]DimensionResult) []string {
	var suggestions []string
	for _, dim := range AllDimensions {
		result := dimensions[dim]
		if result.Score >= 70 {
			continue
		}
		for _, finding := range result.Findings {
			suggestions = append(suggestions, fmt.Sprintf("%s: %s", dim, finding))
		}
	}
	return suggestions
}
