package validator

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Individual files above this size are recorded but not content-scanned.
const maxScannedFileSize = 1 << 20 // 1 MiB

// Artifact is the in-memory view of one generated artifact: every file
// keyed by slash-separated path relative to the root, plus the components
// and pages the generation step declared it would produce.
type Artifact struct {
	Root               string            `json:"root"`
	Files              map[string]string `json:"-"`
	Sizes              map[string]int64  `json:"-"`
	DeclaredComponents []string          `json:"declared_components"`
	DeclaredPages      []string          `json:"declared_pages"`
}

// manifest is the optional artifact.json the generation step writes
// alongside the artifact, declaring what it intended to produce.
type manifest struct {
	Components []string `json:"components"`
	Pages      []string `json:"pages"`
}

// HasFile reports whether the artifact contains the exact path.
func (a *Artifact) HasFile(path string) bool {
	_, ok := a.Files[path]
	return ok
}

// HasAnyFile reports whether any of the paths exist.
func (a *Artifact) HasAnyFile(paths ...string) bool {
	for _, p := range paths {
		if a.HasFile(p) {
			return true
		}
	}
	return false
}

// TotalSize sums every file size in bytes.
func (a *Artifact) TotalSize() int64 {
	var total int64
	for _, size := range a.Sizes {
		total += size
	}
	return total
}

// SourceFiles returns the paths of code files (js/ts/jsx/tsx), sorted for
// deterministic iteration.
func (a *Artifact) SourceFiles() []string {
	var paths []string
	for path := range a.Files {
		switch filepath.Ext(path) {
		case ".js", ".jsx", ".ts", ".tsx":
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// LoadArtifact reads an artifact directory into memory. Oversized files
// keep their size but carry empty content so content scans skip them.
// Declared components/pages come from artifact.json when present and are
// inferred from the directory layout otherwise.
func LoadArtifact(root string) (*Artifact, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat artifact root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("artifact root %s is not a directory", root)
	}

	artifact := &Artifact{
		Root:  root,
		Files: make(map[string]string),
		Sizes: make(map[string]int64),
	}

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "node_modules" || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		fi, err := d.Info()
		if err != nil {
			return err
		}
		artifact.Sizes[rel] = fi.Size()
		if fi.Size() > maxScannedFileSize {
			artifact.Files[rel] = ""
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", rel, err)
		}
		artifact.Files[rel] = string(content)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk artifact: %w", err)
	}

	if raw, ok := artifact.Files["artifact.json"]; ok {
		var m manifest
		if err := json.Unmarshal([]byte(raw), &m); err == nil {
			artifact.DeclaredComponents = m.Components
			artifact.DeclaredPages = m.Pages
		}
	}
	if artifact.DeclaredComponents == nil {
		artifact.DeclaredComponents = inferDeclared(artifact, "components/")
	}
	if artifact.DeclaredPages == nil {
		artifact.DeclaredPages = inferDeclared(artifact, "pages/")
	}

	return artifact, nil
}

// inferDeclared treats every code file under a src/<dir> or <dir> prefix as
// a declaration.
func inferDeclared(a *Artifact, dir string) []string {
	var names []string
	for _, path := range a.SourceFiles() {
		if strings.HasPrefix(path, "src/"+dir) || strings.HasPrefix(path, dir) {
			base := filepath.Base(path)
			names = append(names, strings.TrimSuffix(base, filepath.Ext(base)))
		}
	}
	sort.Strings(names)
	return names
}

// findDeclaredFile locates the file backing a declared component or page
// name, or "" when none exists.
func (a *Artifact) findDeclaredFile(name string) string {
	for _, path := range a.SourceFiles() {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if strings.EqualFold(base, name) {
			return path
		}
	}
	return ""
}
