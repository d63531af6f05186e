package engine

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/tallylang/tally/internal/ast"
	"github.com/tallylang/tally/internal/dims"
	"github.com/tallylang/tally/internal/ir"
	"github.com/tallylang/tally/internal/stats"
)

// sim is one run in flight: the state σ, the random state ρ, and the
// stochastic parameter bindings. Owned by exactly one goroutine.
type sim struct {
	art       *ir.Artifact
	cfg       Config
	log       *slog.Logger
	replicate int // -1 for deterministic

	st      *evalState
	rng     *rand.Rand
	sampler *sampler

	varNodes []*ir.Node
	initial  map[string]map[int]*ast.Expr
}

// sampler re-draws the stochastic parameters each step: correlated ones
// through the copula in matrix order, the rest independently in node
// order. The draw order is fixed so a given (seed, replicate) always
// consumes the PRNG stream identically.
type sampler struct {
	copula     *stats.Copula
	correlated []string
	indep      []string
	dists      map[string]*dims.Distribution
}

func newSim(art *ir.Artifact, cfg Config, rng *rand.Rand, replicate int) *sim {
	return &sim{
		art:       art,
		cfg:       cfg,
		log:       cfg.logger().With("replicate", replicate),
		replicate: replicate,
		rng:       rng,
		st: &evalState{
			params: make(map[string]dims.Value),
			series: make(map[string]*dims.TimeSeries),
		},
		initial: make(map[string]map[int]*ast.Expr),
	}
}

// init binds parameters and allocates the variable series. Deterministic
// runs bind distributions at their central tendency; Monte Carlo runs
// defer them to the per-step sampler.
func (s *sim) init() error {
	dists := make(map[string]*dims.Distribution)

	for _, n := range s.art.Nodes {
		switch n.Kind {
		case ir.KindParam:
			if isDistConstructor(n.Value) {
				d, err := s.buildDistribution(n.Value, n.Dimension)
				if err != nil {
					return err
				}
				if err := d.Validate(); err != nil {
					return runtimeErr(0, s.replicate, "parameter %q: %v", n.ID, err)
				}
				dists[n.ID] = d
				if s.cfg.Mode == ModeDeterministic {
					central, err := stats.Central(d)
					if err != nil {
						return runtimeErr(0, s.replicate, "parameter %q: %v", n.ID, err)
					}
					s.st.params[n.ID] = dims.Quantity(central, d.Dim)
				}
			} else {
				v, err := s.st.eval(n.Value, 0, s.replicate)
				if err != nil {
					return fmt.Errorf("binding parameter %q: %w", n.ID, err)
				}
				s.st.params[n.ID] = v
			}

		case ir.KindVar:
			dim, err := dims.ParseDimension(n.Dimension)
			if err != nil {
				return runtimeErr(0, s.replicate, "variable %q dimension: %v", n.ID, err)
			}
			s.st.series[n.ID] = dims.NewTimeSeries(dim, s.cfg.Steps)
			byStep := make(map[int]*ast.Expr, len(n.Initial))
			for _, init := range n.Initial {
				byStep[init.Step] = init.Value
			}
			s.initial[n.ID] = byStep
			s.varNodes = append(s.varNodes, n)
		}
	}

	if s.cfg.Mode == ModeMonteCarlo {
		sp := &sampler{dists: dists}
		inCopula := make(map[string]bool)
		if c := s.art.Correlation; c != nil {
			ds := make([]*dims.Distribution, len(c.Order))
			for i, name := range c.Order {
				d, ok := dists[name]
				if !ok {
					return runtimeErr(0, s.replicate,
						"correlation matrix names %q, which is not a stochastic parameter", name)
				}
				ds[i] = d
				inCopula[name] = true
			}
			cop, err := stats.NewCopula(c.Matrix, ds)
			if err != nil {
				return runtimeErr(0, s.replicate, "%v", err)
			}
			sp.copula = cop
			sp.correlated = c.Order
		}
		for _, n := range s.art.Nodes {
			if _, ok := dists[n.ID]; ok && !inCopula[n.ID] {
				sp.indep = append(sp.indep, n.ID)
			}
		}
		s.sampler = sp
	}
	return nil
}

// run executes the step loop: evaluate variables in dependency order,
// then policies in declaration order (later policies observe earlier
// ones' writes), then constraints in declaration order. A fatal
// violation terminates the run, dropping the violating step from the
// preserved results.
func (s *sim) run() (*RunResult, error) {
	res := &RunResult{
		Status:     StatusSuccess,
		Series:     make(map[string][]float64),
		Violations: []Violation{},
		Policies:   []PolicyExecution{},
	}

	for t := 0; t < s.cfg.Steps; t++ {
		if s.sampler != nil {
			if err := s.sampler.draw(s.st, s.rng, t, s.replicate); err != nil {
				return nil, err
			}
		}

		if err := s.evalStep(t); err != nil {
			return nil, err
		}
		if err := s.applyPolicies(t, res); err != nil {
			return nil, err
		}

		fatal, err := s.checkConstraints(t, res)
		if err != nil {
			return nil, err
		}
		if fatal {
			res.Status = StatusConstraintFailure
			res.StepsCompleted = t
			for id, series := range s.st.series {
				series.Truncate(t)
				res.Series[id] = series.Floats()
			}
			return res, nil
		}
	}

	res.StepsCompleted = s.cfg.Steps
	for id, series := range s.st.series {
		res.Series[id] = series.Floats()
	}
	return res, nil
}

func (s *sim) evalStep(t int) error {
	for _, n := range s.varNodes {
		series := s.st.series[n.ID]
		var v dims.Value
		var err error
		// Variable bodies sit in checking position against the series'
		// element dimension, so bare literals adopt it.
		switch {
		case s.initial[n.ID][t] != nil:
			v, err = s.st.evalIn(s.initial[n.ID][t], series.Dim, t, s.replicate)
		case n.Recurrence != nil:
			v, err = s.st.evalIn(n.Recurrence, series.Dim, t, s.replicate)
		case n.Definition != nil:
			v, err = s.st.evalIn(n.Definition, series.Dim, t, s.replicate)
		default:
			return runtimeErr(t, s.replicate, "variable %q has no value for step %d", n.ID, t)
		}
		if err != nil {
			return err
		}
		if !v.Dimension().Equal(series.Dim) {
			return runtimeErr(t, s.replicate,
				"variable %q evaluated to %s, series carries %s", n.ID, v.Dimension(), series.Dim)
		}
		if err := series.Set(t, v.Num); err != nil {
			return runtimeErr(t, s.replicate, "variable %q: %v", n.ID, err)
		}
	}
	return nil
}

func (s *sim) applyPolicies(t int, res *RunResult) error {
	for _, p := range s.art.Policies {
		trig, err := s.st.eval(p.Trigger, t, s.replicate)
		if err != nil {
			return err
		}
		if !trig.Bool {
			continue
		}
		s.log.Debug("policy triggered", "policy", p.Name, "step", t)
		res.Policies = append(res.Policies, PolicyExecution{Name: p.Name, Time: t, Replicate: s.replicateRef()})
		for _, a := range p.Actions {
			// Action values are checked against the target's type, so a
			// bare literal adopts the target's dimension.
			if series, ok := s.st.series[a.Target]; ok {
				v, err := s.st.evalIn(a.Value, series.Dim, t, s.replicate)
				if err != nil {
					return err
				}
				if err := series.Override(t, v.Num); err != nil {
					return runtimeErr(t, s.replicate, "policy %q: %v", p.Name, err)
				}
			} else if cur, ok := s.st.params[a.Target]; ok {
				v, err := s.st.evalIn(a.Value, cur.Dimension(), t, s.replicate)
				if err != nil {
					return err
				}
				s.st.params[a.Target] = v
			} else {
				return runtimeErr(t, s.replicate, "policy %q targets unknown %q", p.Name, a.Target)
			}
		}
	}
	return nil
}

// checkConstraints evaluates applicable constraints in declaration order
// and reports whether a fatal one fired. The first fatal violation
// short-circuits the remaining constraints of the step.
func (s *sim) checkConstraints(t int, res *RunResult) (bool, error) {
	for _, c := range s.art.Constraints {
		if !c.Scope.Applies(t) {
			continue
		}
		v, err := s.st.eval(c.Expr, t, s.replicate)
		if err != nil {
			return false, err
		}
		if v.Bool {
			continue
		}

		viol := Violation{
			Name:      c.Name,
			Severity:  c.Severity,
			Time:      t,
			Message:   fmt.Sprintf("constraint %q violated at step %d", c.Name, t),
			Replicate: s.replicateRef(),
		}
		if c.Slack {
			if slack, ok := s.slack(c.Expr, t); ok {
				viol.Slack = &slack
			}
		}
		res.Violations = append(res.Violations, viol)

		if c.Severity == ast.SeverityFatal {
			s.log.Warn("fatal constraint violated", "constraint", c.Name, "step", t)
			res.FirstFatal = &viol
			return true, nil
		}
		s.log.Warn("constraint violated", "constraint", c.Name, "step", t)
	}
	return false, nil
}

// slack is the violated comparison's overshoot magnitude. It is derived
// on demand, never persisted as state across steps.
func (s *sim) slack(e *ast.Expr, t int) (float64, bool) {
	if e.Kind != ast.ExprBinary {
		return 0, false
	}
	switch e.Op {
	case "<", "<=", ">", ">=", "==", "!=":
	default:
		return 0, false
	}
	l, r, err := s.st.evalOperands(e, t, s.replicate)
	if err != nil {
		return 0, false
	}
	diff, err := l.Sub(r)
	if err != nil {
		return 0, false
	}
	if diff.Num < 0 {
		return -diff.Num, true
	}
	return diff.Num, true
}

func (s *sim) replicateRef() *int {
	if s.replicate < 0 {
		return nil
	}
	r := s.replicate
	return &r
}

// draw re-samples every stochastic parameter for step t and binds the
// results into σ.
func (sp *sampler) draw(st *evalState, rng *rand.Rand, t, replicate int) error {
	if sp.copula != nil {
		vals, err := sp.copula.Draw(rng)
		if err != nil {
			return runtimeErr(t, replicate, "%v", err)
		}
		for i, name := range sp.correlated {
			st.params[name] = dims.Quantity(vals[i], sp.dists[name].Dim)
		}
	}
	for _, name := range sp.indep {
		v, err := stats.DrawOne(sp.dists[name], rng)
		if err != nil {
			return runtimeErr(t, replicate, "parameter %q: %v", name, err)
		}
		st.params[name] = dims.Quantity(v, sp.dists[name].Dim)
	}
	return nil
}

func isDistConstructor(e *ast.Expr) bool {
	if e == nil || e.Kind != ast.ExprCall {
		return false
	}
	_, ok := dims.DistKindFromName(e.Fn)
	return ok
}

// buildDistribution materializes a constructor call. Arguments are
// constants (literals or already-bound parameter references); the
// checker enforced that.
func (s *sim) buildDistribution(e *ast.Expr, dimension string) (*dims.Distribution, error) {
	dim, err := dims.ParseDimension(dimension)
	if err != nil {
		return nil, runtimeErr(0, s.replicate, "distribution dimension: %v", err)
	}
	kind, _ := dims.DistKindFromName(e.Fn)

	if kind == dims.DistMixture {
		if len(e.Args)%2 != 0 {
			return nil, runtimeErr(0, s.replicate, "Mixture takes (weight, component) pairs")
		}
		d := &dims.Distribution{Kind: kind, Dim: dim}
		for i := 0; i < len(e.Args); i += 2 {
			w, err := s.st.eval(e.Args[i], 0, s.replicate)
			if err != nil {
				return nil, err
			}
			comp, err := s.buildDistribution(e.Args[i+1], dimension)
			if err != nil {
				return nil, err
			}
			d.Components = append(d.Components, dims.Weighted{Weight: w.Num, Dist: comp})
		}
		return d, nil
	}

	d := &dims.Distribution{Kind: kind, Dim: dim}
	for _, a := range e.Args {
		v, err := s.st.eval(a, 0, s.replicate)
		if err != nil {
			return nil, err
		}
		d.Params = append(d.Params, v.Num)
	}
	return d, nil
}
