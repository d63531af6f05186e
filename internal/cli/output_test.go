package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitErrorCodes(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad path")))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain error")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitCommandError, "inner", nil))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestExitErrorUnwrap(t *testing.T) {
	inner := errors.New("disk full")
	err := WrapExitError(ExitCommandError, "writing artifact", inner)
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "disk full")
}

func TestFormatterJSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}
	require.NoError(t, f.Error(ErrCodeBadModel, "no model struct", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeBadModel, resp.Error.Code)
}

func TestFormatterTextError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, f.Error(ErrCodeNotFound, "gone", nil))
	assert.Equal(t, "Error [E002]: gone\n", buf.String())
}

func TestVerboseLogGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	f.VerboseLog("loaded %d files", 3)
	assert.Empty(t, out.String())
	assert.Equal(t, "loaded 3 files\n", errOut.String())

	f.Verbose = false
	f.VerboseLog("silent")
	assert.Equal(t, "loaded 3 files\n", errOut.String())
}
