package pipeline

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GeneratedArtifact is the structured payload the generation backend must
// return: repo-relative file paths mapped to full file contents.
type GeneratedArtifact struct {
	Files map[string]string `json:"files" jsonschema:"required,description=Repo-relative file path mapped to complete file content"`
	Notes string            `json:"notes,omitempty" jsonschema:"description=Free-form remarks about the generated artifact"`
}

// GeneratedArtifactSchema renders the JSON schema the backend is asked to
// conform to. The schema is embedded into every generation prompt.
func GeneratedArtifactSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.ExpandedStruct = true
	r.DoNotReference = false
	r.RequiredFromJSONSchemaTags = true

	schema := r.Reflect(&GeneratedArtifact{})
	return json.MarshalIndent(schema, "", "  ")
}
