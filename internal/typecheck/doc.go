// Package typecheck implements the bidirectional dimensional type checker.
//
// The checker is a pure function: Check(ast, Γ₀) consumes an AST and an
// initial environment and returns either a typed model or a batch of
// diagnostics. The AST is never mutated and no global state exists.
//
// Bidirectional discipline:
//   - literals with unit markers and identifier references SYNTHESIZE types
//   - additive operands, distribution parameters, initial values and
//     recurrences are CHECKED against an expected type, which is where a
//     bare numeric literal may legally adopt a dimension from context
//   - a bare literal in synthesis position is an ambiguous-type rejection,
//     never a silent default
//
// Diagnostics for one pass are collected, not first-failure: the checker
// is decomposable per node, so a model with five bad expressions reports
// all five. Causality runs as its own pass after typing.
package typecheck
