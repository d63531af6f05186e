// Package ast defines the node-kind contract between the external parser
// and the compiler pipeline.
//
// The surface grammar is out of scope for this module: parsers (the CUE
// loader in internal/cli, the YAML fixtures in internal/harness, or any
// third-party frontend) hand the pipeline an already-structured tree of
// parameter, variable, constraint, policy and expression nodes. Expression
// trees arrive pre-shaped; no string expression is ever parsed here.
//
// The pipeline never mutates an AST. Each stage consumes it and produces a
// new artifact (typed AST, annotated AST, IR).
package ast
