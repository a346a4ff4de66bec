package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

type featureComponent struct {
	tag  string
	name string
}

// writeScaffold renders the deterministic react-vite scaffold: one component
// per feature tag plus the standard app shell. Same name and features always
// produce byte-identical files.
func writeScaffold(root, name string, features []string) (int, error) {
	var comps []featureComponent
	seen := map[string]bool{"App": true}
	for _, feature := range features {
		comp := pascalCase(feature)
		if comp == "" || seen[comp] {
			continue
		}
		seen[comp] = true
		comps = append(comps, featureComponent{tag: feature, name: comp})
	}

	declared := []string{"App"}
	for _, c := range comps {
		declared = append(declared, c.name)
	}

	files := map[string]string{
		"package.json":           scaffoldPackageJSON(name),
		"index.html":             scaffoldIndexHTML(name),
		".gitignore":             "node_modules\ndist\n",
		"README.md":              fmt.Sprintf("# %s\n\nGenerated artifact.\n", name),
		"src/index.css":          "body {\n  margin: 0;\n  font-family: sans-serif;\n}\n",
		"src/main.jsx":           scaffoldMain(),
		"artifact.json":          scaffoldManifest(declared),
		"src/components/App.jsx": scaffoldApp(comps),
	}
	for _, c := range comps {
		files[path.Join("src", "components", c.name+".jsx")] = scaffoldFeature(c)
	}

	written := 0
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			return written, err
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func scaffoldPackageJSON(name string) string {
	doc := map[string]interface{}{
		"name":    slug(name),
		"private": true,
		"version": "0.1.0",
		"dependencies": map[string]string{
			"react":     "^18.2.0",
			"react-dom": "^18.2.0",
		},
		"scripts": map[string]string{
			"dev":   "vite",
			"build": "vite build",
		},
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	return string(out) + "\n"
}

func scaffoldIndexHTML(name string) string {
	return fmt.Sprintf(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <title>%s</title>
  </head>
  <body>
    <div id="root"></div>
    <script type="module" src="/src/main.jsx"></script>
  </body>
</html>
`, name)
}

func scaffoldMain() string {
	return `import { createRoot } from "react-dom";
import { App } from "./components/App";
import "./index.css";

createRoot(document.getElementById("root")).render(App());
`
}

func scaffoldApp(comps []featureComponent) string {
	var b strings.Builder
	for _, c := range comps {
		fmt.Fprintf(&b, "import { %s } from \"./%s\";\n", c.name, c.name)
	}
	b.WriteString("\nexport function App() {\n  return (\n    <main>\n      <h1>Generated application</h1>\n")
	for _, c := range comps {
		fmt.Fprintf(&b, "      {/* feature: %s */}\n      <%s />\n", c.tag, c.name)
	}
	b.WriteString("    </main>\n  );\n}\n")
	return b.String()
}

func scaffoldFeature(c featureComponent) string {
	return fmt.Sprintf(`// feature: %s
export function %s() {
  return (
    <section data-feature="%s">
      <h2>%s</h2>
    </section>
  );
}
`, c.tag, c.name, c.tag, c.name)
}

func scaffoldManifest(components []string) string {
	doc := map[string]interface{}{
		"components": components,
		"pages":      []string{},
	}
	out, _ := json.MarshalIndent(doc, "", "  ")
	return string(out) + "\n"
}

// scaffoldName derives a short artifact name from the request text.
func scaffoldName(prompt string) string {
	fields := strings.Split(slug(prompt), "-")
	if len(fields) > 4 {
		fields = fields[:4]
	}
	name := strings.Join(fields, "-")
	if name == "" {
		return "generated-app"
	}
	return name
}

func slug(text string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func pascalCase(tag string) string {
	parts := strings.FieldsFunc(strings.ToLower(tag), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	var b strings.Builder
	for _, part := range parts {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
