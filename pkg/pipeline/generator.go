package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// GenerationParams carries per-request tuning for the generation backend.
type GenerationParams struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TokenBudget int     `json:"token_budget"`
}

// GenerationResult describes one generation attempt's output on disk.
type GenerationResult struct {
	ArtifactRoot string `json:"artifact_root"`
	FilesWritten int    `json:"files_written"`
	TokensUsed   int    `json:"tokens_used"`
	Model        string `json:"model"`
	DurationMs   int64  `json:"duration_ms"`
}

// Generator is the artifact generation backend. Implementations may be slow
// (seconds) and may fail transiently; every failure is fed through the
// error classifier before the pipeline decides whether to retry.
type Generator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (*GenerationResult, error)
}

// StubGenerator renders a deterministic artifact without any backend call.
// It backs offline runs and the regression suites: the same features always
// produce the same files. FailFirst simulates transient backend failures
// for the first N calls.
type StubGenerator struct {
	Root      string
	Features  []string
	FailFirst int

	// Isolate writes each call into a fresh uuid-named directory under
	// Root instead of Root itself, so one generator can serve many runs.
	Isolate bool

	// One instance serves concurrent HTTP requests, so the call counter
	// must be atomic.
	calls atomic.Int64
}

// NewStubGenerator creates a stub writing into root.
func NewStubGenerator(root string, features ...string) *StubGenerator {
	return &StubGenerator{Root: root, Features: features}
}

// Generate writes the deterministic scaffold into Root.
func (g *StubGenerator) Generate(ctx context.Context, prompt string, params GenerationParams) (*GenerationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	call := g.calls.Add(1)
	if call <= int64(g.FailFirst) {
		return nil, fmt.Errorf("connection reset by generation backend (simulated, call %d)", call)
	}

	start := time.Now()
	root := g.Root
	if g.Isolate {
		root = filepath.Join(g.Root, uuid.NewString())
	}
	written, err := writeScaffold(root, scaffoldName(prompt), g.Features)
	if err != nil {
		return nil, fmt.Errorf("stub generation failed: %w", err)
	}
	return &GenerationResult{
		ArtifactRoot: root,
		FilesWritten: written,
		TokensUsed:   estimatePromptTokens(prompt),
		Model:        "stub",
		DurationMs:   time.Since(start).Milliseconds(),
	}, nil
}

func estimatePromptTokens(prompt string) int {
	// Rough chars/4 heuristic; the analyzer owns the precise count.
	return (len(prompt) + 3) / 4
}
