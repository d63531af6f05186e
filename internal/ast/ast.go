package ast

// Model is the root node produced by an external parser.
type Model struct {
	Name        string        `json:"name" yaml:"name"`
	Params      []*Parameter  `json:"params,omitempty" yaml:"params,omitempty"`
	Vars        []*Variable   `json:"vars,omitempty" yaml:"vars,omitempty"`
	Constraints []*Constraint `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Policies    []*Policy     `json:"policies,omitempty" yaml:"policies,omitempty"`
}

// Parameter is a model input: a literal or distribution constructor plus a
// mandatory provenance record.
type Parameter struct {
	Name       string      `json:"name" yaml:"name"`
	Value      *Expr       `json:"value" yaml:"value"`
	Provenance *Provenance `json:"provenance,omitempty" yaml:"provenance,omitempty"`

	// Src is an opaque source location supplied by the parser, carried
	// through into diagnostics. May be empty.
	Src string `json:"src,omitempty" yaml:"src,omitempty"`
}

// Provenance is the metadata record required on every parameter.
// Confidence is a pointer so that "absent" and "zero" are distinguishable.
type Provenance struct {
	Source     string        `json:"source,omitempty" yaml:"source,omitempty"`
	Method     string        `json:"method,omitempty" yaml:"method,omitempty"`
	Confidence *float64      `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Freshness  string        `json:"freshness,omitempty" yaml:"freshness,omitempty"`
	Owner      string        `json:"owner,omitempty" yaml:"owner,omitempty"`
	Correlated []Correlation `json:"correlated_with,omitempty" yaml:"correlated_with,omitempty"`
	Notes      string        `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Correlation declares a pairwise correlation with another parameter.
type Correlation struct {
	With        string  `json:"with" yaml:"with"`
	Coefficient float64 `json:"coefficient" yaml:"coefficient"`
}

// Variable is a computed quantity. Exactly one of Definition (plain,
// time-invariant) or Recurrence (defined per step t) must be present.
// Initial values seed specific steps before the recurrence takes over.
type Variable struct {
	Name       string          `json:"name" yaml:"name"`
	Definition *Expr           `json:"definition,omitempty" yaml:"definition,omitempty"`
	Recurrence *Expr           `json:"recurrence,omitempty" yaml:"recurrence,omitempty"`
	Initial    []*InitialValue `json:"initial,omitempty" yaml:"initial,omitempty"`
	Src        string          `json:"src,omitempty" yaml:"src,omitempty"`
}

// InitialValue pins a variable's value at one absolute step.
type InitialValue struct {
	Step  int   `json:"step" yaml:"step"`
	Value *Expr `json:"value" yaml:"value"`
}

// Constraint severities.
const (
	SeverityFatal   = "fatal"
	SeverityWarning = "warning"
)

// Constraint is a boolean predicate over simulation state, checked once per
// applicable step.
type Constraint struct {
	Name     string     `json:"name" yaml:"name"`
	Expr     *Expr      `json:"expr" yaml:"expr"`
	Severity string     `json:"severity" yaml:"severity"`
	Scope    *TimeScope `json:"scope,omitempty" yaml:"scope,omitempty"`
	Slack    bool       `json:"slack,omitempty" yaml:"slack,omitempty"`
	Src      string     `json:"src,omitempty" yaml:"src,omitempty"`
}

// TimeScope restricts a constraint to a step range. Nil bounds are open.
type TimeScope struct {
	From *int `json:"from,omitempty" yaml:"from,omitempty"`
	To   *int `json:"to,omitempty" yaml:"to,omitempty"`
}

// Applies reports whether step t falls inside the scope.
func (s *TimeScope) Applies(t int) bool {
	if s == nil {
		return true
	}
	if s.From != nil && t < *s.From {
		return false
	}
	if s.To != nil && t > *s.To {
		return false
	}
	return true
}

// Policy is a trigger/action rule executed once per step, after variable
// evaluation and before constraint checking.
type Policy struct {
	Name    string    `json:"name" yaml:"name"`
	Trigger *Expr     `json:"trigger" yaml:"trigger"`
	Actions []*Action `json:"actions" yaml:"actions"`
	Src     string    `json:"src,omitempty" yaml:"src,omitempty"`
}

// Action overwrites one identifier's value at the current step.
type Action struct {
	Target string `json:"target" yaml:"target"`
	Value  *Expr  `json:"value" yaml:"value"`
}
