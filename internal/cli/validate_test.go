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

func TestValidateValidModel(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "growth.cue")})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ valid")
}

func TestValidateReportsDiagnostics(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "bad-dimension.cue")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status) // the command ran; the model is invalid
	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result ValidationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Diagnostics)
	assert.Equal(t, "dimension-mismatch", string(result.Diagnostics[0].Code))
}

func TestValidateCompletenessThreshold(t *testing.T) {
	// growth.cue has full provenance; an undocumented copy fails a 0.9
	// threshold.
	src := `model: {
	name: "undocumented"
	params: [{
		name: "growth"
		value: {kind: "literal", num: 1.05, unit: "ratio"}
	}]
}`
	path := filepath.Join(t.TempDir(), "undocumented.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{path, "--min-completeness", "0.9"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), "✗ invalid")
}
