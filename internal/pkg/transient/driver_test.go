package transient

import (
	"errors"
	"math"
	"testing"

	"gotest.tools/v3/assert"

	"gridflow/internal/pkg/powerflow"
	"gridflow/internal/pkg/powernet"
	"gridflow/internal/pkg/ybus"
)

func testNetwork(t *testing.T) (*powernet.Network, *ybus.Matrix) {
	t.Helper()
	net, err := powernet.IEEE9()
	assert.NilError(t, err)
	return net, ybus.Build(net)
}

func shortRun() Config {
	return Config{
		Duration:      1.0,
		TimeStep:      0.02,
		FaultTime:     0.4,
		FaultDuration: 0.2,
		FaultBus:      5,
	}
}

func TestRunShape(t *testing.T) {
	net, y := testNetwork(t)
	cfg := shortRun()

	s, err := Run(net, y, cfg)
	assert.NilError(t, err)

	n := int(cfg.Duration / cfg.TimeStep)
	assert.Equal(t, len(s.Steps), n)
	assert.Equal(t, s.HeldSteps, 0)

	times := s.Times()
	assert.Equal(t, times[0], 0.0)
	assert.Equal(t, times[n-1], cfg.Duration)
	for i, st := range s.Steps {
		assert.Equal(t, st.Index, i)
		assert.Assert(t, st.Converged)
		assert.Assert(t, !st.Held)
		assert.Assert(t, st.Result != nil)
	}
}

func TestFaultDepressesFaultBusVoltage(t *testing.T) {
	net, y := testNetwork(t)
	cfg := shortRun()

	s, err := Run(net, y, cfg)
	assert.NilError(t, err)

	pos, ok := net.BusIndex(cfg.FaultBus)
	assert.Assert(t, ok)
	vm := s.BusVoltage(pos)

	var inMin, outMin = math.Inf(1), math.Inf(1)
	for i, st := range s.Steps {
		if cfg.inFaultWindow(st.Time) {
			inMin = math.Min(inMin, vm[i])
		} else {
			outMin = math.Min(outMin, vm[i])
		}
	}
	assert.Assert(t, !math.IsInf(inMin, 1), "no steps landed in the fault window")
	assert.Assert(t, outMin-inMin > 0.002,
		"fault dip %.4f pu too small (in=%.4f out=%.4f)", outMin-inMin, inMin, outMin)
}

func TestStepMatchesDirectSolve(t *testing.T) {
	net, y := testNetwork(t)
	cfg := shortRun().withDefaults()

	s, err := Run(net, y, cfg)
	assert.NilError(t, err)

	// A pre-fault step must reproduce a standalone solve with the same
	// parameter snapshot.
	st := s.Steps[3]
	assert.Assert(t, !cfg.inFaultWindow(st.Time))

	want, err := powerflow.NewSolver().Solve(net, y, overridesAt(net, cfg, st.Time))
	assert.NilError(t, err)
	for i := range want.Buses {
		assert.Equal(t, st.Result.Buses[i].VmPu, want.Buses[i].VmPu)
		assert.Equal(t, st.Result.Buses[i].VaDeg, want.Buses[i].VaDeg)
	}
}

func TestHeldStepsRepeatPreviousState(t *testing.T) {
	net, y := testNetwork(t)
	cfg := shortRun()
	// A multiplier this large makes the faulted steps infeasible.
	cfg.FaultMultiplier = 1e4

	s, err := Run(net, y, cfg)
	assert.NilError(t, err)

	n := int(cfg.Duration / cfg.TimeStep)
	assert.Equal(t, len(s.Steps), n)
	assert.Assert(t, s.HeldSteps > 0)

	held := 0
	for i, st := range s.Steps {
		if !st.Held {
			assert.Assert(t, st.Converged)
			continue
		}
		held++
		assert.Assert(t, !st.Converged)
		assert.Assert(t, i > 0)
		// The held sample carries the last converged state forward.
		assert.Equal(t, st.Result, s.Steps[i-1].Result)
	}
	assert.Equal(t, held, s.HeldSteps)
}

func TestWorkerCountDoesNotChangeResults(t *testing.T) {
	net, y := testNetwork(t)

	cfg := shortRun()
	serial, err := Run(net, y, cfg)
	assert.NilError(t, err)

	cfg.Workers = 4
	parallel, err := Run(net, y, cfg)
	assert.NilError(t, err)

	assert.Equal(t, len(serial.Steps), len(parallel.Steps))
	for i := range serial.Steps {
		a, b := serial.Steps[i], parallel.Steps[i]
		assert.Equal(t, a.Converged, b.Converged)
		for k := range a.Result.Buses {
			assert.Equal(t, a.Result.Buses[k].VmPu, b.Result.Buses[k].VmPu)
		}
	}
}

func TestBadTimeStep(t *testing.T) {
	net, y := testNetwork(t)
	cfg := shortRun()
	cfg.TimeStep = 0

	_, err := Run(net, y, cfg)
	assert.Assert(t, errors.Is(err, powernet.ErrBadTimeStep))
}

func TestDurationShorterThanStep(t *testing.T) {
	net, y := testNetwork(t)
	cfg := shortRun()
	cfg.Duration = 0.001

	_, err := Run(net, y, cfg)
	assert.Assert(t, errors.Is(err, powernet.ErrBadDuration))
}

func TestUnknownFaultBus(t *testing.T) {
	net, y := testNetwork(t)
	cfg := shortRun()
	cfg.FaultBus = 42

	_, err := Run(net, y, cfg)
	assert.Assert(t, errors.Is(err, powernet.ErrUnknownName))
}

func TestAmbientModulation(t *testing.T) {
	c := Config{AmbientFreqHz: 0.5, AmbientAmp: 0.05}

	assert.Equal(t, c.ambient(0), 1.0)
	// Peak of the half-hertz sine at t = 0.5 s.
	assert.Assert(t, math.Abs(c.ambient(0.5)-1.05) < 1e-12)
	assert.Assert(t, math.Abs(c.ambient(1.5)-0.95) < 1e-12)

	c.AmbientAmp = 0
	assert.Equal(t, c.ambient(0.5), 1.0)
}

func TestAmbientDisabled(t *testing.T) {
	cfg := shortRun()
	cfg.AmbientDisabled = true
	c := cfg.withDefaults()

	assert.Equal(t, c.AmbientAmp, 0.0)
	assert.Equal(t, c.ambient(0.5), 1.0)

	// With no ambient and no fault in sight, the schedule is the base case.
	net, _ := testNetwork(t)
	ov := overridesAt(net, c, 0.1)
	for _, l := range net.Loads() {
		assert.Equal(t, ov.LoadP[l.Name], l.PMW)
	}
}

func TestOverridesAtAppliesFaultOnTopOfAmbient(t *testing.T) {
	net, _ := testNetwork(t)
	cfg := shortRun().withDefaults()

	tIn := cfg.FaultTime + cfg.FaultDuration/2
	ov := overridesAt(net, cfg, tIn)

	factor := cfg.ambient(tIn)
	for _, l := range net.Loads() {
		want := l.PMW * factor
		if l.Bus == cfg.FaultBus {
			want *= cfg.FaultMultiplier
		}
		assert.Assert(t, math.Abs(ov.LoadP[l.Name]-want) < 1e-12,
			"%s: got %.6f want %.6f", l.Name, ov.LoadP[l.Name], want)
	}
	// Reactive power follows the model, not the schedule.
	assert.Equal(t, len(ov.LoadQ), 0)
}
