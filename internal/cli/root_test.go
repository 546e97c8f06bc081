package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridsight-labs/gridsight/internal/cli/config"
)

const testDashboard = `name: Test Board
dataset: data.csv
columns:
  - column: Region
    classification: categorical
    alias: region
  - column: Sales
    classification: numeric
    alias: sales
metrics:
  - id: total_sales
    name: Total Sales
    column: sales
    aggregation: sum
  - id: double
    name: Double
    formula: total_sales * 2
    aggregation: sum
levels:
  - id: L0
    order: 0
    column: Region
`

const testData = `Region,Sales
North,100
North,200
South,50
`

// setupProject scaffolds a project dir and makes it the working
// directory for the test.
func setupProject(t *testing.T, dashboard string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dashboard.yaml"), []byte(dashboard), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.csv"), []byte(testData), 0o644))

	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(old)
		config.ResetConfig()
	})
	config.ResetConfig()
	return dir
}

// runCommand executes the root command with args and returns stdout.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--state", ":memory:"))
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	setupProject(t, testDashboard)
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gridsight v")
}

func TestValidateCommand_Valid(t *testing.T) {
	setupProject(t, testDashboard)
	out, err := runCommand(t, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "2 metrics")
}

func TestValidateCommand_Invalid(t *testing.T) {
	broken := `name: Test Board
dataset: data.csv
columns:
  - column: Sales
    classification: numeric
    alias: sales
metrics:
  - id: bad
    name: Bad
    formula: ghost + 1
    aggregation: sum
`
	setupProject(t, broken)

	out, err := runCommand(t, "validate")
	require.Error(t, err)
	assert.Contains(t, out, "MISSING_BINDING")
}

func TestValidateCommand_JSONOutput(t *testing.T) {
	setupProject(t, testDashboard)
	out, err := runCommand(t, "validate", "--output", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)
}

func TestEvalCommand(t *testing.T) {
	setupProject(t, testDashboard)
	out, err := runCommand(t, "eval", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Sales")
	assert.Contains(t, out, "350")
	assert.Contains(t, out, "700")
}

func TestEvalCommand_Filtered(t *testing.T) {
	setupProject(t, testDashboard)
	out, err := runCommand(t, "eval", "--filter", "L0=South", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "50")
	assert.NotContains(t, out, "350")
}

func TestEvalCommand_BadFilterLevel(t *testing.T) {
	setupProject(t, testDashboard)
	_, err := runCommand(t, "eval", "--filter", "nope=x")
	assert.Error(t, err)
}

func TestDAGCommand(t *testing.T) {
	setupProject(t, testDashboard)
	out, err := runCommand(t, "dag", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "total_sales")
	assert.Contains(t, out, "double")
	assert.Contains(t, out, "level 0")
}

func TestListCommand(t *testing.T) {
	setupProject(t, testDashboard)
	out, err := runCommand(t, "list", "--no-color")
	require.NoError(t, err)
	assert.Contains(t, out, "CLASSIFICATION")
	assert.Contains(t, out, "total_sales * 2")
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		os.Chdir(old)
		config.ResetConfig()
	})
	config.ResetConfig()

	out, err := runCommand(t, "init", "demo")
	require.NoError(t, err)
	assert.Contains(t, out, "dashboard.yaml")
	assert.FileExists(t, filepath.Join(dir, "demo", "gridsight.yaml"))
	assert.FileExists(t, filepath.Join(dir, "demo", "data", "sales.csv"))

	// Scaffolding twice must refuse rather than overwrite.
	_, err = runCommand(t, "init", "demo")
	assert.Error(t, err)
}
