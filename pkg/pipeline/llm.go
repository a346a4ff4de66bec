package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
)

// LLMGenerator calls an LLM backend and materializes the structured
// response as files under a fresh per-call directory.
type LLMGenerator struct {
	llm    llms.Model
	outDir string
	logger utils.ExtendedLogger
}

// NewLLMGenerator creates a generator for the given provider writing
// artifacts under outDir. Credentials come from the environment
// (OPENAI_API_KEY or ANTHROPIC_API_KEY).
func NewLLMGenerator(provider, model, outDir string, logger utils.ExtendedLogger) (*LLMGenerator, error) {
	var llm llms.Model
	var err error
	switch provider {
	case "", "openai":
		llm, err = openai.New(openai.WithModel(model))
	case "anthropic":
		llm, err = anthropic.New(anthropic.WithModel(model))
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s LLM: %w", provider, err)
	}
	return &LLMGenerator{llm: llm, outDir: outDir, logger: logger}, nil
}

// Generate asks the backend for a structured artifact and writes it to disk.
func (g *LLMGenerator) Generate(ctx context.Context, prompt string, params GenerationParams) (*GenerationResult, error) {
	start := time.Now()

	schema, err := GeneratedArtifactSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to render artifact schema: %w", err)
	}
	full := fmt.Sprintf("%s\n\nRespond with a single JSON object matching this schema:\n%s", prompt, schema)

	opts := []llms.CallOption{llms.WithTemperature(params.Temperature)}
	if params.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(params.MaxTokens))
	}
	if params.Model != "" {
		opts = append(opts, llms.WithModel(params.Model))
	}

	g.logger.Infof("🔄 Calling generation backend (model: %s, temperature: %.2f)", params.Model, params.Temperature)
	raw, err := llms.GenerateFromSinglePrompt(ctx, g.llm, full, opts...)
	if err != nil {
		return nil, fmt.Errorf("generation backend call failed: %w", err)
	}

	var artifact GeneratedArtifact
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &artifact); err != nil {
		return nil, fmt.Errorf("invalid json from generation backend: %w", err)
	}
	if len(artifact.Files) == 0 {
		return nil, errors.New("generation backend returned an empty file set")
	}

	root := filepath.Join(g.outDir, uuid.NewString())
	written := 0
	for rel, content := range artifact.Files {
		clean := filepath.Clean(filepath.FromSlash(rel))
		if filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
			g.logger.Warnf("⚠️ Skipping unsafe path in generated artifact: %s", rel)
			continue
		}
		abs := filepath.Join(root, clean)
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create artifact directory: %w", err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write artifact file %s: %w", clean, err)
		}
		written++
	}
	if written == 0 {
		return nil, errors.New("generation backend returned no writable files")
	}

	g.logger.Infof("✅ Generation backend produced %d files in %v", written, time.Since(start))
	return &GenerationResult{
		ArtifactRoot: root,
		FilesWritten: written,
		TokensUsed:   estimatePromptTokens(full) + estimatePromptTokens(raw),
		Model:        params.Model,
		DurationMs:   time.Since(start).Milliseconds(),
	}, nil
}

// stripCodeFence removes a surrounding markdown code fence if the backend
// wrapped its JSON in one.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
