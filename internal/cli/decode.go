package cli

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/tallylang/tally/internal/ast"
)

// ModelError is a structural problem in a model document, located at its
// CUE source position. Structural checks run before decoding so the user
// sees file:line:col; semantic problems are the type checker's job and
// carry paths instead of positions.
type ModelError struct {
	Field   string // e.g. "vars[2]"
	Message string
	Pos     token.Pos
}

func (e *ModelError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// checkModelValue validates the document's structure against the shape
// LoadModel is about to decode. Fail-fast: the first problem is returned.
func checkModelValue(v cue.Value) error {
	nameVal := v.LookupPath(cue.ParsePath("name"))
	if !nameVal.Exists() {
		return &ModelError{Field: "name", Message: "model requires a name", Pos: v.Pos()}
	}
	if _, err := nameVal.String(); err != nil {
		return &ModelError{Field: "name", Message: "name must be a string", Pos: nameVal.Pos()}
	}

	if err := checkListEntries(v, "params", func(field string, e cue.Value) error {
		if err := requireField(e, field, "name"); err != nil {
			return err
		}
		return requireField(e, field, "value")
	}); err != nil {
		return err
	}

	if err := checkListEntries(v, "vars", func(field string, e cue.Value) error {
		if err := requireField(e, field, "name"); err != nil {
			return err
		}
		if !e.LookupPath(cue.ParsePath("definition")).Exists() &&
			!e.LookupPath(cue.ParsePath("recurrence")).Exists() &&
			!e.LookupPath(cue.ParsePath("initial")).Exists() {
			return &ModelError{
				Field:   field,
				Message: "variable needs a definition, a recurrence or initial values",
				Pos:     e.Pos(),
			}
		}
		return nil
	}); err != nil {
		return err
	}

	if err := checkListEntries(v, "constraints", func(field string, e cue.Value) error {
		for _, f := range []string{"name", "expr", "severity"} {
			if err := requireField(e, field, f); err != nil {
				return err
			}
		}
		sevVal := e.LookupPath(cue.ParsePath("severity"))
		sev, err := sevVal.String()
		if err != nil || (sev != ast.SeverityFatal && sev != ast.SeverityWarning) {
			return &ModelError{
				Field:   field + ".severity",
				Message: fmt.Sprintf("severity must be %q or %q", ast.SeverityFatal, ast.SeverityWarning),
				Pos:     sevVal.Pos(),
			}
		}
		return nil
	}); err != nil {
		return err
	}

	return checkListEntries(v, "policies", func(field string, e cue.Value) error {
		for _, f := range []string{"name", "trigger", "actions"} {
			if err := requireField(e, field, f); err != nil {
				return err
			}
		}
		return nil
	})
}

func checkListEntries(v cue.Value, list string, check func(field string, e cue.Value) error) error {
	listVal := v.LookupPath(cue.ParsePath(list))
	if !listVal.Exists() {
		return nil
	}
	iter, err := listVal.List()
	if err != nil {
		return &ModelError{Field: list, Message: fmt.Sprintf("%s must be a list", list), Pos: listVal.Pos()}
	}
	i := 0
	for iter.Next() {
		field := fmt.Sprintf("%s[%d]", list, i)
		if err := check(field, iter.Value()); err != nil {
			return err
		}
		i++
	}
	return nil
}

func requireField(e cue.Value, parent, name string) error {
	if !e.LookupPath(cue.ParsePath(name)).Exists() {
		return &ModelError{
			Field:   parent,
			Message: fmt.Sprintf("%s is required", name),
			Pos:     e.Pos(),
		}
	}
	return nil
}
