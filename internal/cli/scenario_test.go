package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioDir = "../harness/testdata/scenarios"

func TestScenario_RunsDirectoryOnBothBackends(t *testing.T) {
	out := mustRun(t, "scenario", scenarioDir)
	assert.Contains(t, out, "PASS california [file]\n")
	assert.Contains(t, out, "PASS california [sqlite]\n")
	assert.Contains(t, out, "PASS state_cascade [sqlite]\n")
	assert.Contains(t, out, "8 passed, 0 failed\n")
}

func TestScenario_FilterAndTrace(t *testing.T) {
	out := mustRun(t, "scenario", scenarioDir, "--filter", "amenity_*", "--backend", "file", "--trace")
	assert.Contains(t, out, "PASS amenity_links [file]\n")
	assert.Contains(t, out, "    07 link loft/ghost -> referential\n")
	assert.Contains(t, out, "1 passed, 0 failed\n")
	assert.NotContains(t, out, "california")
}

func TestScenario_JSONReport(t *testing.T) {
	resp, err := runJSON(t, "scenario", filepath.Join(scenarioDir, "close_discards.yaml"), "--backend", "sqlite")
	require.NoError(t, err)
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)

	var report ScenarioReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, 1, report.Passed)
	require.Len(t, report.Runs, 1)
	assert.Equal(t, "close_discards", report.Runs[0].Name)
	assert.Equal(t, BackendSQLite, report.Runs[0].Backend)
	assert.Empty(t, report.Runs[0].Trace)
}

func TestScenario_FailingRunExitsWithFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wrong.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: wrong
description: expects two states after creating one
steps:
  - {op: create, kind: State, as: ca, attrs: {name: California}}
assertions:
  - {type: count, kind: State, count: 2}
`), 0o644))

	out, err := runCLI(t, "scenario", path, "--backend", "file")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "FAIL wrong [file]\n")
	assert.Contains(t, out, "expected 2, got 1")
}

func TestScenario_InvalidInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: bad\n"), 0o644))

	out, err := runCLI(t, "scenario", path)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "invalid scenario")

	_, err = runCLI(t, "scenario", scenarioDir, "--backend", "tape")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = runCLI(t, "scenario", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
