package indexing

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/stepdex/internal/config"
)

const goStepsSource = "package steps\n\n" +
	"func InitializeScenario(ctx *godog.ScenarioContext) {\n" +
	"\tctx.Step(`^I eat (\\d+) apples$`, iEatApples)\n" +
	"\tctx.Given(\"there are apples\", thereAreApples)\n" +
	"}\n"

const loginFeature = `Feature: Login

  Scenario: Successful login
    Given there are apples
    When I eat 3 apples
`

// writeProject lays out a small project tree and returns its config.
func writeProject(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	write := func(rel, content string) {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}

	write("steps/apples.go", goStepsSource)
	write("features/login.feature", loginFeature)
	write("node_modules/pkg/steps.js", "Given('never scanned', () => {});")
	write("legacy/old.feature", "Feature: Old\n  Scenario: S\n    Given legacy step\n")
	write("README.md", "docs")

	cfg := config.Default(root)
	cfg.ExcludedFragments = []string{"legacy"}
	return cfg
}

func TestStepSourceFiles(t *testing.T) {
	cfg := writeProject(t)
	scanner := NewFileScanner(cfg)

	files, err := scanner.StepSourceFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Join(cfg.Project.Root, "steps", "apples.go"), files[0])
}

func TestFeatureFilesHonorExclusions(t *testing.T) {
	cfg := writeProject(t)
	scanner := NewFileScanner(cfg)

	files, err := scanner.FeatureFiles()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Contains(t, files[0], "login.feature")
}

func TestCollectStepDefinitions(t *testing.T) {
	cfg := writeProject(t)
	scanner := NewFileScanner(cfg)

	defs, err := scanner.CollectStepDefinitions(context.Background())
	require.NoError(t, err)
	require.Len(t, defs, 2)
	// Deterministic (path, line) order regardless of worker scheduling
	assert.Equal(t, `^I eat (\d+) apples$`, defs[0].Text)
	assert.Equal(t, "there are apples", defs[1].Text)
	assert.Less(t, defs[0].Line, defs[1].Line)
}

func TestCollectStepDefinitionsCancellation(t *testing.T) {
	cfg := writeProject(t)
	scanner := NewFileScanner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := scanner.CollectStepDefinitions(ctx)
	// Either the feeder observed cancellation or the tiny corpus finished
	// first; both are acceptable, neither may hang
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestParseFeatures(t *testing.T) {
	cfg := writeProject(t)
	scanner := NewFileScanner(cfg)

	features, err := scanner.ParseFeatures()
	require.NoError(t, err)
	require.Len(t, features, 1)
	assert.Equal(t, "Login", features[0].Name)
	assert.Len(t, features[0].Steps, 2)
}

func TestIncludeGlobs(t *testing.T) {
	cfg := writeProject(t)
	cfg.Include = []string{"steps/**"}
	scanner := NewFileScanner(cfg)

	files, err := scanner.FeatureFiles()
	require.NoError(t, err)
	assert.Empty(t, files, "features/ is outside the include globs")
}

func TestMaxFileSizeSkipsOversized(t *testing.T) {
	cfg := writeProject(t)
	cfg.Scan.MaxFileSize = 8
	scanner := NewFileScanner(cfg)

	files, err := scanner.StepSourceFiles()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestShouldSkipDir(t *testing.T) {
	cfg := writeProject(t)
	scanner := NewFileScanner(cfg)

	assert.True(t, scanner.shouldSkipDir(filepath.Join(cfg.Project.Root, "node_modules")))
	assert.True(t, scanner.shouldSkipDir(filepath.Join(cfg.Project.Root, "legacy")))
	assert.False(t, scanner.shouldSkipDir(filepath.Join(cfg.Project.Root, "steps")))
}
