package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallylang/tally/internal/engine"
)

func TestRunDeterministic(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "growth.cue"), "--steps", "6"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "✓ growth: success after 6 step(s)")
	assert.Contains(t, output, "mode: deterministic")
}

func TestRunWritesRunArtifact(t *testing.T) {
	outputFile := filepath.Join(t.TempDir(), "run.json")

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "growth.cue"), "--steps", "6", "-o", outputFile})

	require.NoError(t, cmd.Execute())

	raw, err := os.ReadFile(outputFile)
	require.NoError(t, err)
	ra, err := engine.DecodeRunArtifact(raw)
	require.NoError(t, err)
	assert.Equal(t, engine.StatusSuccess, ra.Status)
	assert.Equal(t, 6, ra.StepsCompleted)
	assert.Len(t, ra.Series["mrr"], 6)
}

func TestRunMonteCarloJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{
		filepath.Join("testdata", "growth.cue"),
		"--mode", "monte_carlo", "--runs", "20", "--seed", "42", "--steps", "6",
	})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestRunPersistsToStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tally.db")

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "growth.cue"), "--steps", "6", "--db", dbPath})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "run_id:")

	_, err := os.Stat(dbPath)
	require.NoError(t, err)
}

func TestRunRequiresSteps(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{filepath.Join("testdata", "growth.cue")})

	require.Error(t, cmd.Execute())
}

func TestRunBadModeFails(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "growth.cue"), "--steps", "6", "--mode", "psychic"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeRunFailed)
}
