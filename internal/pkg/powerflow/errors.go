package powerflow

import (
	"errors"
	"fmt"
)

// Sentinel causes for a failed Newton-Raphson run.
var (
	ErrMaxIterations    = errors.New("iteration limit reached without convergence")
	ErrSingularJacobian = errors.New("jacobian is numerically singular")
	ErrDiverged         = errors.New("iteration diverged to a non-finite state")
)

// ConvergenceError reports a solve that did not reach the mismatch
// tolerance. It is fatal for a single steady-state call; the transient
// driver recovers from it by holding the previous step's state.
type ConvergenceError struct {
	Iterations    int
	WorstMismatch float64
	Wrapped       error
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("power flow did not converge: %s (iterations=%d, mismatch=%.3e pu)",
		e.Wrapped, e.Iterations, e.WorstMismatch)
}

func (e *ConvergenceError) Unwrap() error { return e.Wrapped }
