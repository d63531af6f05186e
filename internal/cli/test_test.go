package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const passingFixture = `name: tiny-pass
model:
  name: tiny
  vars:
    - name: fee
      definition: {kind: literal, num: 5, unit: USD}
expect:
  result: pass
  node_order: [fee]
`

const failingFixture = `name: tiny-fail
description: Expects a diagnostic the model never produces.
model:
  name: tiny
  vars:
    - name: fee
      definition: {kind: literal, num: 5, unit: USD}
expect:
  result: error
  stage: typecheck
  code: dimension-mismatch
`

func writeFixtureDir(t *testing.T, fixtures map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range fixtures {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestConformancePassing(t *testing.T) {
	dir := writeFixtureDir(t, map[string]string{"pass.yaml": passingFixture})

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ tiny-pass")
	assert.Contains(t, buf.String(), "1 passed, 0 failed, 1 total")
}

func TestConformanceFailureExitsNonZero(t *testing.T) {
	dir := writeFixtureDir(t, map[string]string{
		"pass.yaml": passingFixture,
		"fail.yaml": failingFixture,
	})

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ tiny-fail")
	assert.Contains(t, buf.String(), "1 passed, 1 failed, 2 total")
}

func TestConformanceFilter(t *testing.T) {
	dir := writeFixtureDir(t, map[string]string{
		"pass.yaml": passingFixture,
		"fail.yaml": failingFixture,
	})

	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{dir, "--filter", "tiny-pass"})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result TestResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Passed)
}

func TestConformanceMissingDirIsCommandError(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"no-such-dir"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
