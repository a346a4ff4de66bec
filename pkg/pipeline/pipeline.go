package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/observability"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/analyzer"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/events"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/personalization"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/recovery"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/session"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/validator"
)

// Config tunes one pipeline instance.
type Config struct {
	MaxAttempts  int                  `json:"max_attempts"`
	BaseTemplate string               `json:"base_template"`
	Quality      float64              `json:"quality_threshold"`
	Generation   GenerationParams     `json:"generation"`
	Retry        recovery.RetryConfig `json:"retry"`
}

// NewConfig returns the default pipeline configuration.
func NewConfig() *Config {
	return &Config{
		MaxAttempts:  3,
		BaseTemplate: "react-vite-app",
		Quality:      70,
		Generation: GenerationParams{
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   4096,
			TokenBudget: 120000,
		},
		Retry: recovery.DefaultRetryConfig(),
	}
}

// SetMaxAttempts sets the generation attempt cap.
func (c *Config) SetMaxAttempts(n int) *Config {
	c.MaxAttempts = n
	return c
}

// SetBaseTemplate sets the template personalization starts from.
func (c *Config) SetBaseTemplate(template string) *Config {
	c.BaseTemplate = template
	return c
}

// SetQualityThreshold sets the passing score used when no session carries
// its own threshold.
func (c *Config) SetQualityThreshold(threshold float64) *Config {
	c.Quality = threshold
	return c
}

// SetGeneration sets the backend tuning parameters.
func (c *Config) SetGeneration(params GenerationParams) *Config {
	c.Generation = params
	return c
}

// SetRetry sets the retry policy.
func (c *Config) SetRetry(cfg recovery.RetryConfig) *Config {
	c.Retry = cfg
	return c
}

// Pipeline wires the full request path: analyze, personalize, generate,
// validate, and classify-and-retry on failure. One instance serves many
// concurrent requests; per-session ordering is enforced by the session
// manager.
type Pipeline struct {
	config     *Config
	analyzer   *analyzer.Analyzer
	engine     *personalization.Engine
	sessions   *session.Manager
	generator  Generator
	validator  *validator.Validator
	classifier *recovery.Classifier
	tracer     observability.Tracer
	logger     utils.ExtendedLogger
}

// New assembles a pipeline around a generation backend and session store.
func New(config *Config, generator Generator, store session.Store, tracer observability.Tracer, logger utils.ExtendedLogger) *Pipeline {
	if config == nil {
		config = NewConfig()
	}
	if tracer == nil {
		tracer = observability.NoopTracer{}
	}
	return &Pipeline{
		config:     config,
		analyzer:   analyzer.New(logger),
		engine:     personalization.NewEngine(logger),
		sessions:   session.NewManager(store, logger),
		generator:  generator,
		validator:  validator.New(validator.NewConfig(), logger),
		classifier: recovery.NewClassifier(logger),
		tracer:     tracer,
		logger:     logger,
	}
}

// Sessions exposes the session manager for callers that own session
// lifecycle (listing, deletion).
func (p *Pipeline) Sessions() *session.Manager {
	return p.sessions
}

// Analyzer exposes the intent analyzer for standalone analysis calls.
func (p *Pipeline) Analyzer() *analyzer.Analyzer {
	return p.analyzer
}

// Engine exposes the personalization engine.
func (p *Pipeline) Engine() *personalization.Engine {
	return p.engine
}

// Validator exposes the artifact validator for standalone validation calls.
func (p *Pipeline) Validator() *validator.Validator {
	return p.validator
}

// Classifier exposes the error classifier.
func (p *Pipeline) Classifier() *recovery.Classifier {
	return p.classifier
}

// RunRequest is one end-to-end generation request.
type RunRequest struct {
	SessionID       string                                   `json:"session_id,omitempty"`
	Prompt          string                                   `json:"prompt"`
	Recommendations []personalization.ExternalRecommendation `json:"recommendations,omitempty"`
}

// RunResult is the outcome of one pipeline run. On failure it still carries
// whatever stages completed, so callers can inspect partial progress.
type RunResult struct {
	TraceID      observability.TraceID                `json:"trace_id"`
	Analysis     analyzer.Analysis                    `json:"analysis"`
	Template     personalization.PersonalizedTemplate `json:"template"`
	Validation   *validator.ValidationResult          `json:"validation,omitempty"`
	AppContext   validator.AppContext                 `json:"app_context"`
	ArtifactRoot string                               `json:"artifact_root,omitempty"`
	FilesWritten int                                  `json:"files_written"`
	Attempts     int                                  `json:"attempts"`
	Success      bool                                 `json:"success"`
	TokensUsed   int                                  `json:"tokens_used"`
	DurationMs   int64                                `json:"duration_ms"`
}

// Run executes the full pipeline for one request. It returns an error only
// when every allowed attempt failed or the context was cancelled; the
// returned result is non-nil either way.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := time.Now()
	traceID := observability.NewTraceID()
	p.tracer.StartTrace("pipeline-run", traceID)
	defer p.tracer.EndTrace(traceID)

	emit := func(ev *events.Event) {
		p.tracer.EmitEvent(traceID, ev)
	}
	emit(events.NewEvent(events.PipelineStart, events.ComponentPipeline).WithSession(req.SessionID))

	emit(events.NewEvent(events.AnalysisStart, events.ComponentAnalyzer))
	analysis := p.analyzer.Analyze(req.Prompt)
	emit(events.NewEvent(events.AnalysisCompleted, events.ComponentAnalyzer).
		WithData("intent", analysis.Intent).
		WithData("domain", analysis.Domain).
		WithData("confidence", analysis.Confidence))

	var sess *session.Session
	if req.SessionID != "" {
		loaded, err := p.sessions.GetOrCreate(ctx, req.SessionID)
		if err != nil {
			emit(events.NewEvent(events.PipelineError, events.ComponentSession).
				WithSession(req.SessionID).
				WithData("error", err.Error()))
			return nil, fmt.Errorf("failed to load session %s: %w", req.SessionID, err)
		}
		sess = loaded
		emit(events.NewEvent(events.SessionLoaded, events.ComponentSession).
			WithSession(sess.ID).
			WithData("generation_count", sess.GenerationCount))
	}

	emit(events.NewEvent(events.PersonalizationStart, events.ComponentEngine))
	template := p.engine.Personalize(p.config.BaseTemplate, analysis, sess, req.Recommendations)
	emit(events.NewEvent(events.PersonalizationApplied, events.ComponentEngine).
		WithData("modifications", len(template.Modifications)).
		WithData("confidence", template.Confidence))

	prompt := renderPrompt(req.Prompt, analysis, template)
	threshold := p.config.Quality
	if sess != nil {
		threshold = sess.Preferences.QualityThreshold
	}

	result := &RunResult{TraceID: traceID, Analysis: analysis, Template: template}
	var lastFailure recovery.Analysis

	for attempt := 1; attempt <= p.config.MaxAttempts; attempt++ {
		result.Attempts = attempt
		attemptStart := time.Now()
		corr := events.GenerateCorrelationID()
		emit(events.NewEvent(events.GenerationAttempt, events.ComponentGenerator).
			WithStep("generation").
			WithCorrelation(corr).
			WithData("attempt", attempt))
		p.logger.Infof("🔄 Generation attempt %d/%d (session: %s)", attempt, p.config.MaxAttempts, req.SessionID)

		stepErr := p.runAttempt(ctx, prompt, corr, result, emit)
		if stepErr == nil {
			if result.Validation.Passed(threshold) {
				p.finish(ctx, req, analysis, result, start, true, emit)
				emit(events.NewEvent(events.PipelineEnd, events.ComponentPipeline).
					WithData("score", result.Validation.OverallScore).
					WithData("attempts", result.Attempts))
				p.logger.Infof("✅ Pipeline run succeeded with score %.0f (threshold %.0f)", result.Validation.OverallScore, threshold)
				return result, nil
			}
			stepErr = fmt.Errorf("artifact scored %.0f, quality threshold is %.0f", result.Validation.OverallScore, threshold)
		}

		errCtx := recovery.Context{
			Step:        "generation",
			SessionID:   req.SessionID,
			Attempt:     attempt,
			MaxAttempts: p.config.MaxAttempts,
			DurationMs:  time.Since(attemptStart).Milliseconds(),
		}
		decision := p.classifier.Decide(stepErr, errCtx, p.config.Retry)
		lastFailure = decision.Analysis
		emit(events.NewEvent(events.ErrorClassified, events.ComponentRecovery).
			WithData("kind", string(decision.Analysis.Kind)).
			WithData("severity", string(decision.Analysis.Severity)).
			WithData("retryable", decision.Analysis.Retryable))

		if !decision.Retry {
			emit(events.NewEvent(events.RetryAbandoned, events.ComponentRecovery).
				WithData("kind", string(decision.Analysis.Kind)).
				WithData("attempt", attempt))
			p.logger.Warnf("⚠️ Abandoning after attempt %d: %s", attempt, decision.Analysis.UserMessage)
			break
		}

		emit(events.NewEvent(events.RetryScheduled, events.ComponentRecovery).
			WithData("delay_ms", decision.Delay.Milliseconds()))
		p.logger.Infof("🔄 Retrying in %v (kind: %s)", decision.Delay, decision.Analysis.Kind)
		if err := sleepWithContext(ctx, decision.Delay); err != nil {
			p.finish(ctx, req, analysis, result, start, false, emit)
			return result, fmt.Errorf("pipeline cancelled during retry delay: %w", err)
		}
	}

	p.finish(ctx, req, analysis, result, start, false, emit)
	emit(events.NewEvent(events.PipelineError, events.ComponentPipeline).
		WithData("attempts", result.Attempts).
		WithData("kind", string(lastFailure.Kind)))
	p.logger.Errorf("❌ Pipeline run failed after %d attempts: %s", result.Attempts, lastFailure.UserMessage)
	return result, fmt.Errorf("generation failed after %d attempts: %s", result.Attempts, lastFailure.UserMessage)
}

// runAttempt performs one generate-then-validate cycle, updating result in
// place. A nil return means validation produced a score; passing the
// quality threshold is the caller's call. The corr ID links this attempt's
// generation events back to its GenerationAttempt event.
func (p *Pipeline) runAttempt(ctx context.Context, prompt, corr string, result *RunResult, emit func(*events.Event)) error {
	gen, err := p.generator.Generate(ctx, prompt, p.config.Generation)
	if err != nil {
		emit(events.NewEvent(events.GenerationError, events.ComponentGenerator).
			WithStep("generation").
			WithCorrelation(corr).
			WithData("error", err.Error()))
		return err
	}
	emit(events.NewEvent(events.GenerationEnd, events.ComponentGenerator).
		WithStep("generation").
		WithCorrelation(corr).
		WithData("files", gen.FilesWritten).
		WithData("tokens", gen.TokensUsed))
	result.ArtifactRoot = gen.ArtifactRoot
	result.FilesWritten = gen.FilesWritten
	result.TokensUsed += gen.TokensUsed

	artifact, err := validator.LoadArtifact(gen.ArtifactRoot)
	if err != nil {
		return fmt.Errorf("failed to load generated artifact: %w", err)
	}

	valCorr := events.GenerateCorrelationID()
	emit(events.NewEvent(events.ValidationStart, events.ComponentValidator).
		WithStep("validation").
		WithCorrelation(valCorr))
	vres, appCtx := p.validator.ValidateWithContext(ctx, artifact)
	result.Validation = vres
	result.AppContext = appCtx
	if vres.Rescued {
		emit(events.NewEvent(events.ValidationRescued, events.ComponentValidator).
			WithStep("validation").
			WithCorrelation(valCorr).
			WithData("score", vres.OverallScore))
	}
	emit(events.NewEvent(events.ValidationCompleted, events.ComponentValidator).
		WithStep("validation").
		WithCorrelation(valCorr).
		WithData("score", vres.OverallScore))
	return nil
}

// finish records the run outcome into the session, when one is attached.
func (p *Pipeline) finish(ctx context.Context, req RunRequest, analysis analyzer.Analysis, result *RunResult, start time.Time, success bool, emit func(*events.Event)) {
	result.Success = success
	result.DurationMs = time.Since(start).Milliseconds()
	if req.SessionID == "" {
		return
	}

	outcome := session.Outcome{
		Success:       success,
		DurationMs:    result.DurationMs,
		ArtifactCount: result.FilesWritten,
	}
	if result.Validation != nil {
		score := result.Validation.OverallScore
		outcome.Score = &score
	}
	if _, err := p.sessions.RecordOutcome(ctx, req.SessionID, summarize(req.Prompt), analysis, outcome); err != nil {
		p.logger.Warnf("⚠️ Failed to record session outcome: %v", err)
		return
	}
	emit(events.NewEvent(events.SessionUpdated, events.ComponentSession).WithSession(req.SessionID))
}

// renderPrompt folds the analysis and personalization output into the text
// sent to the generation backend.
func renderPrompt(request string, analysis analyzer.Analysis, template personalization.PersonalizedTemplate) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Build a %s %s application for this request:\n%s\n", analysis.Complexity, analysis.Domain, request)
	fmt.Fprintf(&b, "\nBase template: %s\n", template.BaseTemplate)
	if len(template.Modifications) > 0 {
		b.WriteString("Apply these adjustments in order:\n")
		for _, mod := range template.Modifications {
			fmt.Fprintf(&b, "- %s %s: %s (%s)\n", mod.Kind, mod.Target, mod.Value, mod.Reason)
		}
	}
	if len(analysis.KeyFeatures) > 0 {
		fmt.Fprintf(&b, "Required features: %s\n", strings.Join(analysis.KeyFeatures, ", "))
	}
	return b.String()
}

// summarize trims the request text for session history.
func summarize(prompt string) string {
	runes := []rune(strings.TrimSpace(prompt))
	if len(runes) <= 80 {
		return string(runes)
	}
	return string(runes[:77]) + "..."
}

// sleepWithContext waits for the delay while honoring cancellation. The
// context is checked before and after the wait so an aborted request never
// starts another attempt.
func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	return ctx.Err()
}
