package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallylang/tally/internal/store"
)

func TestRunsListsStoredRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tally.db")
	runID := storeRun(t, dbPath)

	buf := &bytes.Buffer{}
	cmd := NewRunsCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})

	require.NoError(t, cmd.Execute())

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var runs []store.RunSummary
	require.NoError(t, json.Unmarshal(data, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].ID)
	assert.Equal(t, "deterministic", runs[0].Mode)
}

func TestRunsFilterMismatchIsEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tally.db")
	storeRun(t, dbPath)

	buf := &bytes.Buffer{}
	cmd := NewRunsCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--status", "constraint_failure"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "No runs found.")
}

func TestRunsRejectsBadFilter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tally.db")
	storeRun(t, dbPath)

	buf := &bytes.Buffer{}
	cmd := NewRunsCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--mode", "psychic"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
