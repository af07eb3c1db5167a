/*
driver.go Quasi-static transient simulation: time-domain behavior is
approximated by a dense sequence of independent steady-state solves under a
prescribed load trajectory. There are no swing equations and no
electromechanical dynamics; each sample is an equilibrium point. The
loop is strictly bounded by the discretized step count; a non-converged step
holds the previous step's electrical state and is flagged, never propagated.
*/

package transient

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"gridflow/internal/pkg/powerflow"
	"gridflow/internal/pkg/powernet"
	"gridflow/internal/pkg/ybus"
)

// Step is one sample of the simulated trajectory. Held marks a sample whose
// values repeat the previous step because its own solve did not converge.
type Step struct {
	Index     int               `json:"Index"`
	Time      float64           `json:"Time"`
	Converged bool              `json:"Converged"`
	Held      bool              `json:"Held"`
	Result    *powerflow.Result `json:"Result"`
}

// Series is the complete, fixed-length outcome of a run. It always has
// exactly the number of steps the configuration prescribes.
type Series struct {
	RunID     uuid.UUID `json:"RunID"`
	Config    Config    `json:"Config"`
	Steps     []Step    `json:"Steps"`
	HeldSteps int       `json:"HeldSteps"`
}

// Times returns the simulated time axis.
func (s *Series) Times() []float64 {
	out := make([]float64, len(s.Steps))
	for i, st := range s.Steps {
		out[i] = st.Time
	}
	return out
}

// BusVoltage returns the per-step voltage magnitude of the bus at the given
// bus-order position.
func (s *Series) BusVoltage(busPos int) []float64 {
	out := make([]float64, len(s.Steps))
	for i, st := range s.Steps {
		out[i] = st.Result.Buses[busPos].VmPu
	}
	return out
}

// Run executes the quasi-static loop. The base case must be solvable: it
// seeds the held-state fallback for a failure at the first step. Individual
// step failures are recovered by holding; only configuration problems and a
// failed base case return an error.
func Run(net *powernet.Network, y *ybus.Matrix, cfg Config) (*Series, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(net); err != nil {
		return nil, err
	}

	solver := powerflow.NewSolver()
	seed, err := solver.Solve(net, y, nil)
	if err != nil {
		return nil, err
	}

	n := cfg.steps()
	results := make([]*powerflow.Result, n)
	errs := make([]error, n)

	solveStep := func(i int) {
		t := cfg.timeAt(i, n)
		// Each step gets its own solver and parameter snapshot; nothing
		// mutable is shared between steps.
		results[i], errs[i] = powerflow.NewSolver().Solve(net, y, overridesAt(net, cfg, t))
	}

	if cfg.Workers == 1 {
		for i := 0; i < n; i++ {
			solveStep(i)
		}
	} else {
		var wg sync.WaitGroup
		indices := make(chan int)
		for w := 0; w < cfg.Workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range indices {
					solveStep(i)
				}
			}()
		}
		for i := 0; i < n; i++ {
			indices <- i
		}
		close(indices)
		wg.Wait()
	}

	runID, _ := uuid.NewUUID()
	series := &Series{RunID: runID, Config: cfg, Steps: make([]Step, n)}

	// Resolve held steps in time order so a failure repeats the last known
	// state, cascading through consecutive failures.
	prev := seed
	for i := 0; i < n; i++ {
		step := Step{Index: i, Time: cfg.timeAt(i, n)}
		if errs[i] != nil {
			// Only non-convergence is policy-recoverable; anything else is
			// a caller bug and stops the run.
			var convErr *powerflow.ConvergenceError
			if !errors.As(errs[i], &convErr) {
				return nil, errs[i]
			}
			log.Printf("[Transient] step %d (t=%.3fs) did not converge, holding previous state: %v", i, step.Time, errs[i])
			step.Held = true
			step.Result = prev
			series.HeldSteps++
		} else {
			step.Converged = true
			step.Result = results[i]
			prev = results[i]
		}
		series.Steps[i] = step
	}
	return series, nil
}
