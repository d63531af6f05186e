package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	_ "embed"

	"github.com/Masterminds/semver/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemaJSON is the published IR schema; it is the interoperability
// contract between this compiler and any runtime, so artifacts are
// validated against it on both write and read.
//
//go:embed schema.json
var schemaJSON []byte

const schemaURL = "https://tallylang.org/schemas/ir/v1.json"

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("ir schema: %w", err)
	}
	return c.Compile(schemaURL)
})

// ValidateJSON checks raw artifact JSON against the published schema and
// the schema version compatibility rule, then decodes it. This is the
// single entry point for reading untrusted artifacts.
func ValidateJSON(raw []byte) (*Artifact, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("ir artifact: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("ir artifact does not match schema: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, fmt.Errorf("ir artifact: %w", err)
	}
	if err := CheckSchemaVersion(a.SchemaVersion); err != nil {
		return nil, err
	}
	return &a, nil
}

// MarshalJSON-adjacent helper: Encode serializes the artifact with the
// canonical form used for hashing, so a written file re-hashes to the
// same model_hash it carries.
func (a *Artifact) Encode() ([]byte, error) {
	return CanonicalJSON(a)
}

// CheckSchemaVersion enforces the compatibility rule: consumers accept
// artifacts whose schema version shares this generator's major version.
func CheckSchemaVersion(version string) error {
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("ir schema_version %q: %w", version, err)
	}
	supported := semver.MustParse(SchemaVersion)
	if v.Major() != supported.Major() {
		return fmt.Errorf("ir schema_version %s is incompatible with supported %s (major versions differ)",
			version, SchemaVersion)
	}
	return nil
}
