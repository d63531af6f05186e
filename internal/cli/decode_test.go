package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFromString(t *testing.T, src string) error {
	t.Helper()
	path := filepath.Join(t.TempDir(), "m.cue")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	_, err := LoadModel(path)
	return err
}

func TestCheckModelRequiresName(t *testing.T) {
	err := loadFromString(t, `model: {params: []}`)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeBadModel, loadErr.Code)
	assert.Contains(t, loadErr.Message, "model requires a name")
}

func TestCheckModelParamNeedsValue(t *testing.T) {
	err := loadFromString(t, `model: {
	name: "m"
	params: [{name: "p"}]
}`)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Message, "params[0]")
	assert.Contains(t, loadErr.Message, "value is required")
}

func TestCheckModelEmptyVarRejected(t *testing.T) {
	err := loadFromString(t, `model: {
	name: "m"
	vars: [{name: "hollow"}]
}`)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Message, "vars[0]")
	assert.Contains(t, loadErr.Message, "definition, a recurrence or initial values")
}

func TestCheckModelBadSeverityHasPosition(t *testing.T) {
	err := loadFromString(t, `model: {
	name: "m"
	vars: [{name: "x", definition: {kind: "literal", num: 1, unit: "USD"}}]
	constraints: [{
		name: "c"
		expr: {kind: "literal", bool: true}
		severity: "catastrophic"
	}]
}`)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Message, "constraints[0].severity")
	assert.Contains(t, loadErr.Message, "m.cue:") // position points into the document
}

func TestCheckModelPolicyNeedsActions(t *testing.T) {
	err := loadFromString(t, `model: {
	name: "m"
	vars: [{name: "x", definition: {kind: "literal", num: 1, unit: "USD"}}]
	policies: [{name: "noop", trigger: {kind: "literal", bool: true}}]
}`)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Contains(t, loadErr.Message, "policies[0]")
	assert.Contains(t, loadErr.Message, "actions is required")
}
