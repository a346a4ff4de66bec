package regression

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/observability"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/database"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/events"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/pipeline"
)

// CaseResult records one executed case.
type CaseResult struct {
	Name            string   `json:"name"`
	Passed          bool     `json:"passed"`
	DomainMatch     bool     `json:"domain_match"`
	Domain          string   `json:"domain"`
	Score           float64  `json:"score"`
	FeatureCoverage float64  `json:"feature_coverage"`
	MissingFeatures []string `json:"missing_features,omitempty"`
	DurationMs      int64    `json:"duration_ms"`
	Error           string   `json:"error,omitempty"`
}

// SuiteResult aggregates one suite run.
type SuiteResult struct {
	Suite      string       `json:"suite"`
	Total      int          `json:"total"`
	Passed     int          `json:"passed"`
	Failed     int          `json:"failed"`
	DurationMs int64        `json:"duration_ms"`
	Cases      []CaseResult `json:"cases"`
}

// GeneratorFactory builds the generation backend for one case arena.
type GeneratorFactory func(arena string, expectedFeatures []string) pipeline.Generator

// Runner drives the full pipeline against named scenario batteries. Every
// case gets its own uuid-named arena directory so cases share no state;
// execution is still sequential for deterministic reporting.
type Runner struct {
	baseDir    string
	config     *pipeline.Config
	newBackend GeneratorFactory
	tracer     observability.Tracer
	logger     utils.ExtendedLogger
}

// NewRunner creates a runner with the stub backend and default pipeline
// configuration.
func NewRunner(tracer observability.Tracer, logger utils.ExtendedLogger) *Runner {
	if tracer == nil {
		tracer = observability.NoopTracer{}
	}
	return &Runner{
		baseDir: filepath.Join(os.TempDir(), "regression-arenas"),
		config:  pipeline.NewConfig(),
		newBackend: func(arena string, expectedFeatures []string) pipeline.Generator {
			return pipeline.NewStubGenerator(arena, expectedFeatures...)
		},
		tracer: tracer,
		logger: logger,
	}
}

// SetBaseDir changes where case arenas are created.
func (r *Runner) SetBaseDir(dir string) *Runner {
	r.baseDir = dir
	return r
}

// SetPipelineConfig overrides the per-case pipeline configuration.
func (r *Runner) SetPipelineConfig(config *pipeline.Config) *Runner {
	r.config = config
	return r
}

// SetGeneratorFactory swaps the generation backend, for example to run a
// suite against the real backend instead of the stub.
func (r *Runner) SetGeneratorFactory(factory GeneratorFactory) *Runner {
	r.newBackend = factory
	return r
}

// RunSuite executes a named suite and aggregates its results. Case errors
// are recorded, not propagated: the returned error is reserved for unknown
// suites and cancellation.
func (r *Runner) RunSuite(ctx context.Context, name string) (*SuiteResult, error) {
	cases, err := SuiteCases(name)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	traceID := observability.NewTraceID()
	r.tracer.StartTrace("regression-suite", traceID)
	defer r.tracer.EndTrace(traceID)
	r.tracer.EmitEvent(traceID, events.NewEvent(events.SuiteStart, events.ComponentRunner).
		WithData("suite", name).
		WithData("cases", len(cases)))
	r.logger.Infof("🔄 Running regression suite %s (%d cases)", name, len(cases))

	result := &SuiteResult{Suite: name, Total: len(cases)}
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		caseResult := r.runCase(ctx, c)
		result.Cases = append(result.Cases, caseResult)
		if caseResult.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		r.tracer.EmitEvent(traceID, events.NewEvent(events.CaseCompleted, events.ComponentRunner).
			WithData("case", c.Name).
			WithData("passed", caseResult.Passed).
			WithData("score", caseResult.Score))
	}

	result.DurationMs = time.Since(start).Milliseconds()
	r.tracer.EmitEvent(traceID, events.NewEvent(events.SuiteEnd, events.ComponentRunner).
		WithData("passed", result.Passed).
		WithData("failed", result.Failed))
	if result.Failed == 0 {
		r.logger.Infof("✅ Suite %s passed: %d/%d cases in %dms", name, result.Passed, result.Total, result.DurationMs)
	} else {
		r.logger.Warnf("⚠️ Suite %s: %d/%d cases failed", name, result.Failed, result.Total)
	}
	return result, nil
}

func (r *Runner) runCase(ctx context.Context, c Case) CaseResult {
	start := time.Now()
	out := CaseResult{Name: c.Name}

	arena := filepath.Join(r.baseDir, uuid.NewString())
	if err := os.MkdirAll(arena, 0o755); err != nil {
		out.Error = err.Error()
		out.DurationMs = time.Since(start).Milliseconds()
		return out
	}
	defer os.RemoveAll(arena)

	p := pipeline.New(r.config, r.newBackend(arena, c.ExpectedFeatures), database.NewMemoryStore(), nil, r.logger)
	run, err := p.Run(ctx, pipeline.RunRequest{Prompt: c.Prompt})
	if run != nil {
		out.Domain = run.Analysis.Domain
		out.DomainMatch = run.Analysis.Domain == c.ExpectedDomain
		if run.Validation != nil {
			out.Score = run.Validation.OverallScore
		}
	}
	if err != nil {
		out.Error = err.Error()
	}

	if run != nil && run.ArtifactRoot != "" {
		out.FeatureCoverage, out.MissingFeatures = featureCoverage(run.ArtifactRoot, c.ExpectedFeatures)
	}

	out.Passed = out.Error == "" &&
		out.DomainMatch &&
		out.Score >= c.MinScore &&
		out.FeatureCoverage >= featureCoverageFloor
	out.DurationMs = time.Since(start).Milliseconds()
	return out
}

// featureCoverage reports which expected feature markers appear anywhere in
// the artifact's files.
func featureCoverage(root string, expected []string) (float64, []string) {
	if len(expected) == 0 {
		return 1, nil
	}

	var contents []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil
		}
		contents = append(contents, string(data))
		return nil
	})

	found := 0
	var missing []string
	for _, feature := range expected {
		detected := false
		for _, content := range contents {
			if strings.Contains(content, feature) {
				detected = true
				break
			}
		}
		if detected {
			found++
		} else {
			missing = append(missing, feature)
		}
	}
	return float64(found) / float64(len(expected)), missing
}
