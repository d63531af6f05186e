package engine

import (
	"errors"
	"fmt"
)

// RuntimeError is a numeric or structural failure during evaluation:
// division by zero, an out-of-range inverse-CDF input, invalid
// distribution parameters, a read of an unevaluated step. It aborts the
// affected run or replicate and is reported distinctly from constraint
// violations, which are valid terminal states, not errors.
//
// Step and Replicate pin the failure so it can be reproduced by re-running
// that one replicate's derived seed.
type RuntimeError struct {
	Step      int   // time step at which evaluation failed
	Replicate int   // replicate index; -1 for a deterministic run
	Err       error // underlying cause
}

func (e *RuntimeError) Error() string {
	if e.Replicate < 0 {
		return fmt.Sprintf("runtime error at step %d: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("runtime error at step %d (replicate %d): %v", e.Step, e.Replicate, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// AsRuntimeError unwraps err to a *RuntimeError if one is in the chain.
func AsRuntimeError(err error) (*RuntimeError, bool) {
	var re *RuntimeError
	ok := errors.As(err, &re)
	return re, ok
}

func runtimeErr(step, replicate int, format string, args ...any) error {
	return &RuntimeError{Step: step, Replicate: replicate, Err: fmt.Errorf(format, args...)}
}
