package validator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/pkg/logger"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	return New(NewConfig(), logger.CreateTestLogger(t.TempDir()+"/validator-test.log", "debug"))
}

// buildArtifact assembles an in-memory artifact from (path, content) pairs.
func buildArtifact(files map[string]string) *Artifact {
	a := &Artifact{
		Root:  "mem://test",
		Files: make(map[string]string, len(files)),
		Sizes: make(map[string]int64, len(files)),
	}
	for path, content := range files {
		a.Files[path] = content
		a.Sizes[path] = int64(len(content))
	}
	return a
}

const appComponent = `export function App() {
	return (
		<main>
			<h1>Hello</h1>
		</main>
	);
}
`

func healthyArtifact() *Artifact {
	a := buildArtifact(map[string]string{
		"package.json":           `{"name":"demo","dependencies":{"react":"18"},"scripts":{"build":"vite build","test":"vitest","lint":"eslint ."}}`,
		"index.html":             `<html lang="en"><body><div id="root"></div></body></html>`,
		"README.md":              "# demo",
		".gitignore":             "node_modules\n",
		"src/index.css":          "body { margin: 0; }",
		"src/main.jsx":           `import { App } from "./components/App";` + "\n" + `render(App);`,
		"src/components/App.jsx": appComponent,
	})
	a.DeclaredComponents = []string{"App"}
	return a
}

func TestValidateHealthyArtifactScoresWell(t *testing.T) {
	v := newTestValidator(t)

	result := v.Validate(context.Background(), healthyArtifact())

	require.NotNil(t, result)
	assert.GreaterOrEqual(t, result.OverallScore, 80.0)
	assert.Len(t, result.Dimensions, 6)
	assert.False(t, result.Rescued, "healthy artifacts never trigger rescue")
}

func TestValidateIdempotent(t *testing.T) {
	v := newTestValidator(t)
	artifact := healthyArtifact()

	first := v.Validate(context.Background(), artifact)
	second := v.Validate(context.Background(), artifact)

	assert.Equal(t, first.OverallScore, second.OverallScore)
	for _, dim := range AllDimensions {
		assert.Equal(t, first.Dimensions[dim].Score, second.Dimensions[dim].Score, "dimension %s", dim)
	}
}

func TestMissingCriticalFilesCapStructure(t *testing.T) {
	v := newTestValidator(t)
	artifact := buildArtifact(map[string]string{
		"notes.txt": "nothing useful",
	})

	result := v.Validate(context.Background(), artifact)

	assert.LessOrEqual(t, result.Dimensions[DimStructure].Score, 40.0,
		"missing every critical file must cap the structure sub-score")
}

func TestWeightVectorsSumToOne(t *testing.T) {
	assert.InDelta(t, 1.0, DefaultWeights().Sum(), 1e-9)
	assert.InDelta(t, 1.0, WeightsFor(AppContext{IsTestArtifact: true}).Sum(), 1e-9)
	assert.InDelta(t, 1.0, WeightsFor(AppContext{}).Sum(), 1e-9)
}

func TestContextSensitivityIsDeterministic(t *testing.T) {
	v := newTestValidator(t)
	artifact := healthyArtifact()
	artifact.Files["package.json"] = `{"name":"smoke-test-demo"}`

	first, appCtx := v.ValidateWithContext(context.Background(), artifact)
	second, _ := v.ValidateWithContext(context.Background(), artifact)

	assert.True(t, appCtx.IsTestArtifact)
	assert.Equal(t, first.OverallScore, second.OverallScore,
		"same artifact and same context must score identically")
}

func TestTestArtifactWeightsDiffer(t *testing.T) {
	production := WeightsFor(AppContext{IsTestArtifact: false})
	test := WeightsFor(AppContext{IsTestArtifact: true})

	assert.Greater(t, test[DimQuality], production[DimQuality])
	assert.Less(t, test[DimStructure], production[DimStructure])
}

func TestAdvancedBundleBonusIsBounded(t *testing.T) {
	bonus := advancedBonus([]string{"authentication", "realtime", "internationalization", "state-management"})
	assert.LessOrEqual(t, bonus, maxAdvancedBonus)
	assert.Greater(t, bonus, 0.0)
}

func TestCompilationRescueFloor(t *testing.T) {
	v := newTestValidator(t)

	// Essential files are present (structure strong) but the source is
	// broken badly enough that the compilation proxy bottoms out.
	artifact := buildArtifact(map[string]string{
		"package.json": `{"name":"broken"`,
		"index.html":   `<html lang="en"></html>`,
		"src/main.js":  "function a() { { { \nimport x from './missing1';\nimport y from './missing2';\nimport z from './missing3';",
	})
	artifact.DeclaredComponents = []string{"App", "Nav", "Footer"}

	result := v.Validate(context.Background(), artifact)

	assert.GreaterOrEqual(t, result.Dimensions[DimCompilation].Score, compilationRescueFloor)
	assert.True(t, result.Rescued, "rescue must be flagged on the result")
	rescueSeen := false
	for _, s := range result.Suggestions {
		if s == "rescue applied: build failed but structure is strong, compilation floor raised to 40" {
			rescueSeen = true
		}
	}
	assert.True(t, rescueSeen, "expected the compilation rescue to be recorded")
}

func TestEmergencyFallbackOnInternalFailure(t *testing.T) {
	v := newTestValidator(t)

	// A nil artifact panics deep inside validation; the validator boundary
	// must still produce the fixed emergency result.
	result := v.Validate(context.Background(), nil)

	require.NotNil(t, result)
	assert.Equal(t, emergencyScore, result.OverallScore)
	assert.NotEmpty(t, result.Suggestions)
	for _, dim := range AllDimensions {
		assert.InDelta(t, emergencyScore, result.Dimensions[dim].Score, 0.0001, "dimension %s", dim)
	}
}

func TestFunctionalityRatio(t *testing.T) {
	artifact := buildArtifact(map[string]string{
		"src/components/Good.jsx": appComponent,
		"src/components/Stub.jsx": "export function Stub() {}",
	})
	artifact.DeclaredComponents = []string{"Good", "Stub", "Missing"}

	result := checkFunctionality(context.Background(), artifact)

	// One of three declared components is well-formed.
	assert.InDelta(t, 100.0/3, result.Score, 0.5)
	assert.Len(t, result.Findings, 2)
}

func TestAccessibilityViolations(t *testing.T) {
	artifact := buildArtifact(map[string]string{
		"index.html": `<html><body><img src="a.png"><input type="text"></body></html>`,
	})

	result := checkAccessibility(context.Background(), artifact)

	assert.Less(t, result.Score, 100.0)
	assert.NotEmpty(t, result.Findings)

	clean := buildArtifact(map[string]string{
		"index.html": `<html lang="en"><body><img src="a.png" alt="logo"><input id="q" aria-label="query"></body></html>`,
	})
	cleanResult := checkAccessibility(context.Background(), clean)
	assert.Equal(t, 100.0, cleanResult.Score)
}

func TestPerformanceBudget(t *testing.T) {
	small := buildArtifact(map[string]string{"src/main.js": "render();"})
	assert.Equal(t, 100.0, checkPerformance(context.Background(), small).Score)

	big := buildArtifact(nil)
	big.Files["blob.js"] = ""
	big.Sizes["blob.js"] = 5 * sizeBudgetBytes
	assert.Equal(t, 0.0, checkPerformance(context.Background(), big).Score)
}

func TestLoadArtifactFromDisk(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "components"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "package.json"), []byte(`{"name":"disk"}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "artifact.json"), []byte(`{"components":["App"],"pages":["Home"]}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "components", "App.jsx"), []byte(appComponent), 0644))

	artifact, err := LoadArtifact(root)
	require.NoError(t, err)

	assert.True(t, artifact.HasFile("package.json"))
	assert.True(t, artifact.HasFile("src/components/App.jsx"))
	assert.Equal(t, []string{"App"}, artifact.DeclaredComponents)
	assert.Equal(t, []string{"Home"}, artifact.DeclaredPages)

	_, err = LoadArtifact(filepath.Join(root, "does-not-exist"))
	assert.Error(t, err)
}
