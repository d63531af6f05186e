package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"golang.org/x/text/unicode/norm"

	"github.com/tallylang/tally/internal/ast"
)

// LoadError classifies a model-loading failure with a stable code.
type LoadError struct {
	Code    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadModel reads a model document from a CUE file or a directory of CUE
// files. The document carries a top-level "model" struct whose fields are
// structured (already parsed) expression trees; the loader decodes them
// into the AST and NFC-normalizes every identifier, so that two source
// texts differing only in Unicode composition hash identically.
func LoadModel(path string) (*ast.Model, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model path not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing model path: %v", err)}
	}

	// Ad-hoc file loading: no cue.mod required. A directory loads every
	// .cue file under it as one instance.
	args := []string{path}
	if info.IsDir() {
		files, err := findCUEFiles(path)
		if err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
		if len(files) == 0 {
			return nil, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", path)}
		}
		args = files
	}

	instances := load.Instances(args, &load.Config{})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := cuecontext.New().BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}

	modelVal := value.LookupPath(cue.ParsePath("model"))
	if !modelVal.Exists() {
		return nil, &LoadError{Code: ErrCodeBadModel, Message: "document has no top-level \"model\" struct"}
	}
	if err := checkModelValue(modelVal); err != nil {
		return nil, &LoadError{Code: ErrCodeBadModel, Message: err.Error()}
	}

	var m ast.Model
	if err := modelVal.Decode(&m); err != nil {
		return nil, &LoadError{Code: ErrCodeBadModel, Message: fmt.Sprintf("decoding model: %v", err)}
	}

	normalizeModel(&m)
	return &m, nil
}

func findCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// normalizeModel rewrites every identifier to NFC. Hashing happens on
// the normalized form, so "café" composed and decomposed are one name.
func normalizeModel(m *ast.Model) {
	m.Name = norm.NFC.String(m.Name)
	for _, p := range m.Params {
		p.Name = norm.NFC.String(p.Name)
		normalizeExpr(p.Value)
		if p.Provenance != nil {
			for i := range p.Provenance.Correlated {
				p.Provenance.Correlated[i].With = norm.NFC.String(p.Provenance.Correlated[i].With)
			}
		}
	}
	for _, v := range m.Vars {
		v.Name = norm.NFC.String(v.Name)
		normalizeExpr(v.Definition)
		normalizeExpr(v.Recurrence)
		for _, init := range v.Initial {
			normalizeExpr(init.Value)
		}
	}
	for _, c := range m.Constraints {
		c.Name = norm.NFC.String(c.Name)
		normalizeExpr(c.Expr)
	}
	for _, pol := range m.Policies {
		pol.Name = norm.NFC.String(pol.Name)
		normalizeExpr(pol.Trigger)
		for _, act := range pol.Actions {
			act.Target = norm.NFC.String(act.Target)
			normalizeExpr(act.Value)
		}
	}
}

func normalizeExpr(e *ast.Expr) {
	if e == nil {
		return
	}
	if e.Name != "" {
		e.Name = norm.NFC.String(e.Name)
	}
	normalizeExpr(e.Left)
	normalizeExpr(e.Right)
	normalizeExpr(e.Operand)
	for _, a := range e.Args {
		normalizeExpr(a)
	}
}
