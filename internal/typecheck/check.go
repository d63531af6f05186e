package typecheck

import (
	"fmt"

	"github.com/tallylang/tally/internal/ast"
	"github.com/tallylang/tally/internal/diag"
	"github.com/tallylang/tally/internal/dims"
)

// TypedModel is the checker's output: the (unmutated) AST plus the
// completed environment. Downstream stages read types from Env; the AST
// itself is shared, never copied.
type TypedModel struct {
	Model *ast.Model
	Env   *Env
}

// TypeOf resolves an identifier's type.
func (tm *TypedModel) TypeOf(name string) (Type, bool) {
	return tm.Env.Lookup(name)
}

// Check performs bidirectional type inference over the model against an
// initial environment Γ₀ (nil means empty). It is a pure function of its
// inputs: the AST is not mutated and no global state is touched.
//
// Diagnostics are collected across the whole pass rather than stopping at
// the first failure; the returned TypedModel is nil only when the
// diagnostic list is non-empty.
func Check(m *ast.Model, env0 *Env) (*TypedModel, diag.List) {
	c := &checker{
		env:      NewEnv(),
		params:   make(map[string]bool),
		declared: make(map[string]bool),
	}
	for _, p := range m.Params {
		c.declared[p.Name] = true
	}
	for _, v := range m.Vars {
		c.declared[v.Name] = true
	}
	if env0 != nil {
		for _, name := range env0.Names() {
			t, _ := env0.Lookup(name)
			_ = c.env.Bind(name, t)
		}
	}

	c.bindParams(m)
	c.inferVarTypes(m)

	c.quiet = false
	c.checkModel(m)
	c.checkCausality(m)

	if len(c.diags) > 0 {
		return nil, c.diags
	}
	return &TypedModel{Model: m, Env: c.env}, nil
}

type checker struct {
	env      *Env
	params   map[string]bool
	declared map[string]bool // every param/var name, typed or not
	diags    diag.List
	quiet    bool
}

func (c *checker) errf(code diag.Code, path, format string, args ...any) {
	if c.quiet {
		return
	}
	c.diags = append(c.diags, diag.New(code, path, format, args...))
}

// bindParams declares every parameter in Γ. Runs quiet: the loud pass in
// checkModel re-derives and reports any problems found here.
func (c *checker) bindParams(m *ast.Model) {
	c.quiet = true
	defer func() { c.quiet = false }()

	for _, p := range m.Params {
		c.params[p.Name] = true
		if _, bound := c.env.Lookup(p.Name); bound {
			continue // duplicate declaration, reported loud later
		}
		t, ok := c.synthParamValue(p.Value, "")
		if !ok {
			continue
		}
		_ = c.env.Bind(p.Name, t)
	}
}

// inferVarTypes runs the quiet fixpoint loop assigning Series types to
// variables. A variable's element type comes from its first initial value
// when present, otherwise from synthesizing its definition or recurrence
// once enough of its dependencies are typed. Self-recurrent variables
// without an initial value never converge and are reported loud later.
func (c *checker) inferVarTypes(m *ast.Model) {
	c.quiet = true
	defer func() { c.quiet = false }()

	for pass := 0; pass <= len(m.Vars); pass++ {
		progress := false
		for _, v := range m.Vars {
			if _, bound := c.env.Lookup(v.Name); bound {
				continue
			}
			var src *ast.Expr
			switch {
			case len(v.Initial) > 0:
				src = v.Initial[0].Value
			case v.Definition != nil:
				src = v.Definition
			case v.Recurrence != nil:
				src = v.Recurrence
			default:
				continue
			}
			t, ok := c.synth(src, "")
			if !ok || t.Kind != TypeScalar {
				continue
			}
			_ = c.env.Bind(v.Name, SeriesOf(t.Dim))
			progress = true
		}
		if !progress {
			break
		}
	}
}

// checkModel is the loud pass: every declaration is re-checked against the
// completed environment and all diagnostics are emitted.
func (c *checker) checkModel(m *ast.Model) {
	seen := make(map[string]string)
	for _, p := range m.Params {
		path := "params." + p.Name
		if prev, dup := seen[p.Name]; dup {
			c.errf(diag.CodeTypeMismatch, path, "duplicate declaration of %q (also declared at %s)", p.Name, prev)
			continue
		}
		seen[p.Name] = path
		if p.Value == nil {
			c.errf(diag.CodeTypeMismatch, path, "parameter has no value")
			continue
		}
		c.checkParamValue(p, path+".value")
	}

	for _, v := range m.Vars {
		path := "vars." + v.Name
		if prev, dup := seen[v.Name]; dup {
			c.errf(diag.CodeTypeMismatch, path, "duplicate declaration of %q (also declared at %s)", v.Name, prev)
			continue
		}
		seen[v.Name] = path
		c.checkVar(v, path)
	}

	for _, cons := range m.Constraints {
		path := "constraints." + cons.Name
		if cons.Severity != ast.SeverityFatal && cons.Severity != ast.SeverityWarning {
			c.errf(diag.CodeTypeMismatch, path, "severity must be %q or %q, got %q",
				ast.SeverityFatal, ast.SeverityWarning, cons.Severity)
		}
		if cons.Expr == nil {
			c.errf(diag.CodeTypeMismatch, path, "constraint has no expression")
			continue
		}
		c.check(cons.Expr, Boolean(), path+".expr")
	}

	for _, pol := range m.Policies {
		path := "policies." + pol.Name
		if pol.Trigger == nil {
			c.errf(diag.CodeTypeMismatch, path, "policy has no trigger")
		} else {
			c.check(pol.Trigger, Boolean(), path+".trigger")
		}
		for i, act := range pol.Actions {
			apath := fmt.Sprintf("%s.actions[%d]", path, i)
			target, ok := c.env.Lookup(act.Target)
			if !ok {
				c.errf(diag.CodeUndefined, apath, "policy action targets undefined identifier %q", act.Target)
				continue
			}
			if act.Value == nil {
				c.errf(diag.CodeTypeMismatch, apath, "policy action has no value")
				continue
			}
			c.check(act.Value, target.Elem(), apath+".value")
		}
	}
}

func (c *checker) checkParamValue(p *ast.Parameter, path string) {
	t, ok := c.synthParamValue(p.Value, path)
	if !ok {
		return
	}
	if bound, isBound := c.env.Lookup(p.Name); isBound && !bound.Equal(t) {
		// Γ was seeded with a conflicting type for this identifier.
		c.errf(diag.CodeTypeMismatch, path, "parameter %q has type %s but environment declares %s", p.Name, t, bound)
	}
}

// synthParamValue allows a distribution constructor at the top level of a
// parameter value; everywhere else distributions are rejected.
func (c *checker) synthParamValue(e *ast.Expr, path string) (Type, bool) {
	if e != nil && e.Kind == ast.ExprCall {
		if _, isDist := dims.DistKindFromName(e.Fn); isDist {
			return c.synthDistribution(e, path)
		}
	}
	c.checkParamConstant(e, path)
	return c.synth(e, path)
}

// checkParamConstant rejects variable references inside parameter values.
// Parameters bind once at init, before any step of any series exists, so
// a value may only reference other parameters. Distribution arguments get
// the same treatment in checkDistArgConstant.
func (c *checker) checkParamConstant(e *ast.Expr, path string) {
	if e == nil {
		return
	}
	for _, name := range e.Refs() {
		if c.declared[name] && !c.params[name] {
			c.errf(diag.CodeTypeMismatch, path,
				"parameter values must be constant; %q is a variable", name)
		}
	}
}

func (c *checker) checkVar(v *ast.Variable, path string) {
	if v.Definition != nil && v.Recurrence != nil {
		c.errf(diag.CodeTypeMismatch, path, "variable has both a definition and a recurrence")
		return
	}
	if v.Definition == nil && v.Recurrence == nil && len(v.Initial) == 0 {
		c.errf(diag.CodeTypeMismatch, path, "variable has no definition, recurrence or initial values")
		return
	}

	t, bound := c.env.Lookup(v.Name)
	if !bound {
		// Inference failed; re-synthesize the sources loud so the root
		// cause (ambiguous literal, undefined ref, self-recursion) is
		// what the user sees, with a generic fallback.
		before := len(c.diags)
		if len(v.Initial) > 0 {
			c.synth(v.Initial[0].Value, path+".initial[0]")
		}
		if v.Definition != nil {
			c.synth(v.Definition, path+".definition")
		}
		if v.Recurrence != nil {
			c.synth(v.Recurrence, path+".recurrence")
		}
		if len(c.diags) == before {
			c.errf(diag.CodeAmbiguous, path, "cannot infer type of %q", v.Name)
		}
		return
	}
	elem := t.Elem()

	seenSteps := make(map[int]bool)
	for i, init := range v.Initial {
		ipath := fmt.Sprintf("%s.initial[%d]", path, i)
		if init.Step < 0 {
			c.errf(diag.CodeTypeMismatch, ipath, "initial step must be non-negative, got %d", init.Step)
		}
		if seenSteps[init.Step] {
			c.errf(diag.CodeTypeMismatch, ipath, "duplicate initial value for step %d", init.Step)
		}
		seenSteps[init.Step] = true
		c.check(init.Value, elem, ipath)
	}
	if v.Definition != nil {
		c.check(v.Definition, elem, path+".definition")
	}
	if v.Recurrence != nil {
		c.check(v.Recurrence, elem, path+".recurrence")
	}
}

// synth infers a type bottom-up. Bare numeric literals cannot synthesize:
// the language rejects ambiguous literals rather than defaulting them.
func (c *checker) synth(e *ast.Expr, path string) (Type, bool) {
	if e == nil {
		c.errf(diag.CodeTypeMismatch, path, "missing expression")
		return Type{}, false
	}
	switch e.Kind {
	case ast.ExprLiteral:
		return c.synthLiteral(e, path)
	case ast.ExprRef:
		return c.synthRef(e, path)
	case ast.ExprBinary:
		return c.synthBinary(e, path)
	case ast.ExprUnary:
		return c.synthUnary(e, path)
	case ast.ExprCall:
		return c.synthCall(e, path)
	default:
		c.errf(diag.CodeTypeMismatch, path, "unknown expression kind %q", e.Kind)
		return Type{}, false
	}
}

func (c *checker) synthLiteral(e *ast.Expr, path string) (Type, bool) {
	if e.Bool != nil {
		return Boolean(), true
	}
	if e.Num == nil {
		c.errf(diag.CodeTypeMismatch, path, "literal has neither number nor boolean")
		return Type{}, false
	}
	if e.Unit == "" {
		c.errf(diag.CodeAmbiguous, path,
			"ambiguous literal %v: no unit marker and no expected type from context", *e.Num)
		return Type{}, false
	}
	d, _, err := ParseUnit(e.Unit)
	if err != nil {
		c.errf(diag.CodeTypeMismatch, path, "%v", err)
		return Type{}, false
	}
	return Scalar(d), true
}

func (c *checker) synthRef(e *ast.Expr, path string) (Type, bool) {
	t, ok := c.env.Lookup(e.Name)
	if !ok {
		if c.declared[e.Name] {
			// Declared but never converged in the inference fixpoint:
			// typically a recursive definition with no initial value.
			c.errf(diag.CodeAmbiguous, path,
				"type of %q could not be inferred; give it an initial value or annotate a dependency", e.Name)
		} else {
			c.errf(diag.CodeUndefined, path, "undefined identifier %q", e.Name)
		}
		return Type{}, false
	}
	if e.Index != nil && t.Kind != TypeSeries {
		c.errf(diag.CodeTypeMismatch, path, "%q is not time-indexed (type %s)", e.Name, t)
		return Type{}, false
	}
	// Unindexed series references mean "at the current step"; references
	// to distribution-valued parameters mean "a sample" (or the central
	// value in deterministic mode). Both collapse to the element type.
	return t.Elem(), true
}

func (c *checker) synthBinary(e *ast.Expr, path string) (Type, bool) {
	switch e.Op {
	case "+", "-":
		return c.synthAdditive(e, path)
	case "*", "/":
		return c.synthMultiplicative(e, path)
	case "<", "<=", ">", ">=", "==", "!=":
		if _, ok := c.synthAdditive(e, path); !ok {
			return Type{}, false
		}
		return Boolean(), true
	case "&&", "||":
		okL := c.check(e.Left, Boolean(), path+".left")
		okR := c.check(e.Right, Boolean(), path+".right")
		return Boolean(), okL && okR
	default:
		c.errf(diag.CodeTypeMismatch, path, "unknown operator %q", e.Op)
		return Type{}, false
	}
}

// synthAdditive types + - and comparisons: one operand synthesizes, the
// other is checked against it. When only one side is a bare literal the
// typed side goes first, which is what makes `mrr[t-1] + 500` legal
// without an annotation.
func (c *checker) synthAdditive(e *ast.Expr, path string) (Type, bool) {
	left, right := e.Left, e.Right
	lpath, rpath := path+".left", path+".right"
	if isBareLiteral(left) && !isBareLiteral(right) {
		left, right = right, left
		lpath, rpath = rpath, lpath
	}
	t, ok := c.synth(left, lpath)
	if !ok {
		// Still visit the other side so its own problems are reported.
		c.synth(right, rpath)
		return Type{}, false
	}
	if t.Kind != TypeScalar {
		c.errf(diag.CodeTypeMismatch, lpath, "operator %q requires scalar operands, got %s", e.Op, t)
		return Type{}, false
	}
	if !c.check(right, t, rpath) {
		return Type{}, false
	}
	return t, true
}

func (c *checker) synthMultiplicative(e *ast.Expr, path string) (Type, bool) {
	tl, okL := c.synth(e.Left, path+".left")
	tr, okR := c.synth(e.Right, path+".right")
	if !okL || !okR {
		return Type{}, false
	}
	if tl.Kind != TypeScalar || tr.Kind != TypeScalar {
		c.errf(diag.CodeTypeMismatch, path, "operator %q requires scalar operands, got %s and %s", e.Op, tl, tr)
		return Type{}, false
	}
	var (
		d   dims.Dimension
		err error
	)
	if e.Op == "*" {
		d, err = tl.Dim.Mul(tr.Dim)
	} else {
		d, err = tl.Dim.Div(tr.Dim)
	}
	if err != nil {
		c.errf(diag.CodeDimensionMismatch, path, "%v", err)
		return Type{}, false
	}
	return Scalar(d), true
}

func (c *checker) synthUnary(e *ast.Expr, path string) (Type, bool) {
	switch e.Op {
	case "-":
		t, ok := c.synth(e.Operand, path+".operand")
		if !ok {
			return Type{}, false
		}
		if t.Kind != TypeScalar {
			c.errf(diag.CodeTypeMismatch, path, "unary minus requires a scalar operand, got %s", t)
			return Type{}, false
		}
		return t, true
	case "!":
		ok := c.check(e.Operand, Boolean(), path+".operand")
		return Boolean(), ok
	default:
		c.errf(diag.CodeTypeMismatch, path, "unknown unary operator %q", e.Op)
		return Type{}, false
	}
}

func (c *checker) synthCall(e *ast.Expr, path string) (Type, bool) {
	if _, isDist := dims.DistKindFromName(e.Fn); isDist {
		c.errf(diag.CodeTypeMismatch, path,
			"distribution constructor %s is only allowed as a parameter value", e.Fn)
		return Type{}, false
	}
	switch e.Fn {
	case "min", "max":
		if len(e.Args) < 2 {
			c.errf(diag.CodeTypeMismatch, path, "%s requires at least two arguments", e.Fn)
			return Type{}, false
		}
		t, ok := c.synth(e.Args[0], fmt.Sprintf("%s.args[0]", path))
		if !ok || t.Kind != TypeScalar {
			return Type{}, false
		}
		for i := 1; i < len(e.Args); i++ {
			if !c.check(e.Args[i], t, fmt.Sprintf("%s.args[%d]", path, i)) {
				return Type{}, false
			}
		}
		return t, true
	case "abs":
		if len(e.Args) != 1 {
			c.errf(diag.CodeTypeMismatch, path, "abs requires exactly one argument")
			return Type{}, false
		}
		t, ok := c.synth(e.Args[0], path+".args[0]")
		if !ok || t.Kind != TypeScalar {
			return Type{}, false
		}
		return t, true
	default:
		c.errf(diag.CodeUndefined, path, "unknown function %q", e.Fn)
		return Type{}, false
	}
}

// check verifies e against an expected type. Bare numeric literals adopt
// the expected scalar dimension here, the "checking" direction of the
// bidirectional discipline.
func (c *checker) check(e *ast.Expr, want Type, path string) bool {
	if e == nil {
		c.errf(diag.CodeTypeMismatch, path, "missing expression")
		return false
	}
	if isBareLiteral(e) {
		if want.Kind != TypeScalar {
			c.errf(diag.CodeTypeMismatch, path, "numeric literal where %s expected", want)
			return false
		}
		return true
	}
	got, ok := c.synth(e, path)
	if !ok {
		return false
	}
	if got.Equal(want) {
		return true
	}
	if bothCurrency(got, want) {
		c.errf(diag.CodeCurrencyMismatch, path, "cannot mix %s with %s", got.Dim, want.Dim)
		return false
	}
	if got.Kind == TypeScalar && want.Kind == TypeScalar {
		c.errf(diag.CodeDimensionMismatch, path, "expected %s, got %s", want.Dim, got.Dim)
		return false
	}
	c.errf(diag.CodeTypeMismatch, path, "expected %s, got %s", want, got)
	return false
}

func isBareLiteral(e *ast.Expr) bool {
	return e != nil && e.Kind == ast.ExprLiteral && e.Num != nil && e.Unit == ""
}

// bothCurrency reports whether two scalar types are each a single currency
// atom with differing tags, the case that earns the sharper
// currency-mismatch code instead of the generic dimension mismatch.
func bothCurrency(a, b Type) bool {
	if a.Kind != TypeScalar || b.Kind != TypeScalar {
		return false
	}
	aa, ba := a.Dim.Atoms(), b.Dim.Atoms()
	if len(aa) != 1 || len(ba) != 1 {
		return false
	}
	return aa[0].Base == dims.BaseCurrency && ba[0].Base == dims.BaseCurrency && aa[0].Tag != ba[0].Tag
}
