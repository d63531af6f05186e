package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallylang/tally/internal/ir"
)

func TestCompileValidModel(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "growth.cue")})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, `✓ compiled model "growth"`)
	assert.Contains(t, output, "model_hash")
	assert.Contains(t, output, "completeness:    100%")
}

func TestCompileValidModelJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "growth.cue")})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestCompileOutputFileValidatesAgainstSchema(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "artifact.json")

	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "growth.cue"), "--output", outputFile})

	require.NoError(t, cmd.Execute())

	raw, err := os.ReadFile(outputFile)
	require.NoError(t, err)

	art, err := ir.ValidateJSON(raw)
	require.NoError(t, err)
	assert.Equal(t, "growth", art.ModelName)
	assert.Len(t, art.Nodes, 2)
}

func TestCompileDimensionMismatchFailsWithDiagnostics(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "bad-dimension.cue")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "dimension-mismatch")
}

func TestCompileMissingPathIsCommandError(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewCompileCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"no-such-model.cue"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeNotFound)
}
