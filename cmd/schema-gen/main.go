package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/events"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/pipeline"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/recovery"
	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/validator"
)

func writeSchema(filename string, v any) error {
	r := new(jsonschema.Reflector)
	r.ExpandedStruct = true
	r.DoNotReference = false
	r.RequiredFromJSONSchemaTags = true

	schema := r.Reflect(v)

	// Ensure the output directory exists
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	//nolint:gosec // G304: filename comes from command-line/config, not user input
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file %s: %w", filename, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(schema)
}

func main() {
	fmt.Println("Generating JSON schemas for pipeline contracts...")

	targets := []struct {
		filename string
		value    any
	}{
		{"schemas/generated-artifact.schema.json", pipeline.GeneratedArtifact{}},
		{"schemas/run-result.schema.json", pipeline.RunResult{}},
		{"schemas/pipeline-event.schema.json", events.Event{}},
		{"schemas/validation-result.schema.json", validator.ValidationResult{}},
		{"schemas/retry-decision.schema.json", recovery.Decision{}},
	}

	for _, t := range targets {
		if err := writeSchema(t.filename, t.value); err != nil {
			fmt.Printf("Error generating %s: %v\n", t.filename, err)
			os.Exit(1)
		}
	}

	fmt.Println("✅ Successfully generated schemas:")
	for _, t := range targets {
		fmt.Printf("  - %s\n", t.filename)
	}
}
