package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/observability"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/database"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/events"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/logger"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/recovery"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/validator"
)

func testLogger(t *testing.T) utils.ExtendedLogger {
	t.Helper()
	return logger.CreateTestLogger(t.TempDir()+"/pipeline-test.log", "debug")
}

func fastRetry() recovery.RetryConfig {
	cfg := recovery.DefaultRetryConfig()
	cfg.BaseDelay = time.Millisecond
	cfg.MaxDelay = 5 * time.Millisecond
	return cfg
}

type failingGenerator struct {
	err   error
	calls int
}

func (g *failingGenerator) Generate(ctx context.Context, prompt string, params GenerationParams) (*GenerationResult, error) {
	g.calls++
	return nil, g.err
}

func readFileOrFail(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

type captureTracer struct {
	mu     sync.Mutex
	events []*events.Event
}

func (c *captureTracer) StartTrace(name string, traceID observability.TraceID) {}

func (c *captureTracer) EmitEvent(traceID observability.TraceID, ev *events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureTracer) EndTrace(traceID observability.TraceID) {}

func (c *captureTracer) byType(eventType events.EventType) []*events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*events.Event
	for _, ev := range c.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

// brokenArtifactGenerator writes an artifact whose essential files are
// present but whose source cannot build, which is exactly the shape the
// compilation rescue floor exists for.
type brokenArtifactGenerator struct {
	root string
}

func (g *brokenArtifactGenerator) Generate(ctx context.Context, prompt string, params GenerationParams) (*GenerationResult, error) {
	files := map[string]string{
		"package.json": `{"name":"broken"`,
		"index.html":   `<html lang="en"></html>`,
		"src/main.js":  "function a() { { { \nimport x from './missing1';\nimport y from './missing2';\nimport z from './missing3';",
	}
	for rel, content := range files {
		abs := filepath.Join(g.root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			return nil, err
		}
	}
	return &GenerationResult{ArtifactRoot: g.root, FilesWritten: len(files), Model: "stub"}, nil
}

func TestRunSucceedsWithStubGenerator(t *testing.T) {
	arena := t.TempDir()
	gen := NewStubGenerator(arena, "product-catalog", "shopping-cart", "payment")
	store := database.NewMemoryStore()
	p := New(NewConfig(), gen, store, nil, testLogger(t))

	result, err := p.Run(context.Background(), RunRequest{
		SessionID: "user-1",
		Prompt:    "Create an online store with a product catalog, shopping cart and checkout",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Validation)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "e-commerce", result.Analysis.Domain)
	assert.GreaterOrEqual(t, result.Validation.OverallScore, 70.0)
	assert.Equal(t, arena, result.ArtifactRoot)

	sess, err := store.LoadSession(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotNil(t, sess)
	assert.Equal(t, 1, sess.GenerationCount)
	require.Len(t, sess.History, 1)
	assert.True(t, sess.History[0].Outcome.Success)
}

func TestRunRetriesTransientGenerationFailure(t *testing.T) {
	arena := t.TempDir()
	gen := NewStubGenerator(arena, "dashboard")
	gen.FailFirst = 1

	cfg := NewConfig().SetRetry(fastRetry())
	p := New(cfg, gen, database.NewMemoryStore(), nil, testLogger(t))

	result, err := p.Run(context.Background(), RunRequest{Prompt: "Build an analytics dashboard with charts"})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
}

func TestRunAbandonsAfterMaxAttempts(t *testing.T) {
	gen := &failingGenerator{err: errors.New("connection reset by peer")}
	cfg := NewConfig().SetMaxAttempts(2).SetRetry(fastRetry())
	store := database.NewMemoryStore()
	p := New(cfg, gen, store, nil, testLogger(t))

	result, err := p.Run(context.Background(), RunRequest{
		SessionID: "user-2",
		Prompt:    "Create a blog",
	})
	require.Error(t, err)
	require.NotNil(t, result)

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, 2, gen.calls)

	sess, err := store.LoadSession(context.Background(), "user-2")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Len(t, sess.History, 1)
	assert.False(t, sess.History[0].Outcome.Success)
}

func TestRunStopsImmediatelyOnNonRetryableKind(t *testing.T) {
	gen := &failingGenerator{err: errors.New("quota exceeded for project")}
	cfg := NewConfig().SetMaxAttempts(5).SetRetry(fastRetry())
	p := New(cfg, gen, database.NewMemoryStore(), nil, testLogger(t))

	result, err := p.Run(context.Background(), RunRequest{Prompt: "Create a portfolio site"})
	require.Error(t, err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, gen.calls)
}

func TestRunHonorsCancellationDuringRetryDelay(t *testing.T) {
	gen := &failingGenerator{err: errors.New("connection reset by peer")}
	cfg := NewConfig().SetMaxAttempts(3)
	cfg.Retry.BaseDelay = 10 * time.Second
	p := New(cfg, gen, database.NewMemoryStore(), nil, testLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := p.Run(ctx, RunRequest{Prompt: "Create a blog"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled during retry delay")
	assert.Equal(t, 1, gen.calls)
	assert.False(t, result.Success)
}

func TestRunWithoutSessionLeavesStoreUntouched(t *testing.T) {
	arena := t.TempDir()
	gen := NewStubGenerator(arena, "contact-form")
	store := database.NewMemoryStore()
	p := New(NewConfig(), gen, store, nil, testLogger(t))

	result, err := p.Run(context.Background(), RunRequest{Prompt: "simple contact form, one page"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.Template.Confidence)
	assert.Empty(t, result.Template.Modifications)

	ids, err := store.ListSessionIDs(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRenderPromptCarriesModifications(t *testing.T) {
	arena := t.TempDir()
	gen := NewStubGenerator(arena, "inventory")
	p := New(NewConfig(), gen, database.NewMemoryStore(), nil, testLogger(t))

	analysis := p.Analyzer().Analyze("Create an online store with a product catalog")
	template := p.Engine().Personalize("react-vite-app", analysis, nil, nil)
	prompt := renderPrompt("Create an online store with a product catalog", analysis, template)

	assert.Contains(t, prompt, "react-vite-app")
	assert.Contains(t, prompt, "e-commerce")
}

func TestStubGeneratorIsDeterministic(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	_, err := NewStubGenerator(first, "auth", "billing").Generate(context.Background(), "same prompt", GenerationParams{})
	require.NoError(t, err)
	_, err = NewStubGenerator(second, "auth", "billing").Generate(context.Background(), "same prompt", GenerationParams{})
	require.NoError(t, err)

	for _, rel := range []string{"package.json", "src/components/App.jsx", "src/components/Auth.jsx"} {
		a := readFileOrFail(t, first, rel)
		b := readFileOrFail(t, second, rel)
		assert.Equal(t, a, b, "file %s differs between runs", rel)
	}
}

func TestStubGeneratorSharedAcrossGoroutines(t *testing.T) {
	gen := NewStubGenerator(t.TempDir(), "product-catalog")
	gen.Isolate = true
	gen.FailFirst = 3

	const workers = 8
	results := make([]*GenerationResult, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = gen.Generate(context.Background(), "online store", GenerationParams{})
		}(i)
	}
	wg.Wait()

	failures := 0
	roots := make(map[string]bool)
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			failures++
			continue
		}
		require.NotNil(t, results[i])
		assert.False(t, roots[results[i].ArtifactRoot], "artifact roots must not collide")
		roots[results[i].ArtifactRoot] = true
	}
	assert.Equal(t, gen.FailFirst, failures)
}

func TestRunEmitsCorrelatedAttemptEvents(t *testing.T) {
	tracer := &captureTracer{}
	gen := NewStubGenerator(t.TempDir(), "product-catalog")
	p := New(NewConfig(), gen, database.NewMemoryStore(), tracer, testLogger(t))

	_, err := p.Run(context.Background(), RunRequest{Prompt: "Create an online store with a product catalog"})
	require.NoError(t, err)

	attempts := tracer.byType(events.GenerationAttempt)
	ends := tracer.byType(events.GenerationEnd)
	require.Len(t, attempts, 1)
	require.Len(t, ends, 1)
	require.NotEmpty(t, attempts[0].CorrelationID)
	assert.Equal(t, attempts[0].CorrelationID, ends[0].CorrelationID)
	assert.Equal(t, "generation", ends[0].Step)

	starts := tracer.byType(events.ValidationStart)
	completed := tracer.byType(events.ValidationCompleted)
	require.Len(t, starts, 1)
	require.Len(t, completed, 1)
	require.NotEmpty(t, starts[0].CorrelationID)
	assert.Equal(t, starts[0].CorrelationID, completed[0].CorrelationID)
	assert.NotEqual(t, attempts[0].CorrelationID, starts[0].CorrelationID)
	assert.Empty(t, tracer.byType(events.ValidationRescued))
}

func TestRunEmitsValidationRescued(t *testing.T) {
	tracer := &captureTracer{}
	gen := &brokenArtifactGenerator{root: t.TempDir()}
	p := New(NewConfig().SetMaxAttempts(1), gen, database.NewMemoryStore(), tracer, testLogger(t))

	result, err := p.Run(context.Background(), RunRequest{Prompt: "Create an online store"})
	require.Error(t, err)
	require.NotNil(t, result.Validation)
	assert.True(t, result.Validation.Rescued)
	assert.GreaterOrEqual(t, result.Validation.Dimensions[validator.DimCompilation].Score, 40.0)

	rescued := tracer.byType(events.ValidationRescued)
	require.Len(t, rescued, 1)
	completed := tracer.byType(events.ValidationCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, completed[0].CorrelationID, rescued[0].CorrelationID)
}
