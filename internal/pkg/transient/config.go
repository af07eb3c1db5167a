package transient

import (
	"gridflow/internal/pkg/powernet"
)

// Defaults for the perturbation schedule. These mirror the reference study
// parameters and are tunable, not physically derived.
const (
	DefaultFaultMultiplier = 3.0
	DefaultAmbientFreqHz   = 0.5
	DefaultAmbientAmp      = 0.05
)

// Config describes a quasi-static run: a dense sequence of independent
// steady-state solves under a prescribed load trajectory. Durations and
// times are in seconds of simulated time.
type Config struct {
	Duration      float64
	TimeStep      float64
	FaultTime     float64
	FaultDuration float64
	// FaultBus is the bus whose loads are scaled during the fault window.
	// A fault bus without attached loads makes the fault a no-op.
	FaultBus int
	// FaultMultiplier scales the faulted bus's active load inside the
	// window. Zero selects the default.
	FaultMultiplier float64
	// AmbientFreqHz and AmbientAmp shape the sinusoidal modulation applied
	// to every load's active power for the whole run. Zero selects the
	// defaults; AmbientDisabled turns the modulation off outright.
	AmbientFreqHz   float64
	AmbientAmp      float64
	AmbientDisabled bool
	// Workers sets how many solves run concurrently. Steps are independent
	// by construction (each gets an immutable parameter snapshot), so any
	// positive count yields identical results.
	Workers int
}

func (c Config) withDefaults() Config {
	if c.FaultMultiplier == 0 {
		c.FaultMultiplier = DefaultFaultMultiplier
	}
	if c.AmbientFreqHz == 0 {
		c.AmbientFreqHz = DefaultAmbientFreqHz
	}
	if c.AmbientAmp == 0 {
		c.AmbientAmp = DefaultAmbientAmp
	}
	if c.AmbientAmp < 0 || c.AmbientDisabled {
		c.AmbientAmp = 0
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c
}

func (c Config) validate(net *powernet.Network) error {
	if c.TimeStep <= 0 {
		return powernet.NewValidationError("transient", "TimeStep", c.TimeStep, powernet.ErrBadTimeStep)
	}
	if c.Duration < c.TimeStep {
		return powernet.NewValidationError("transient", "Duration", c.Duration, powernet.ErrBadDuration)
	}
	if _, ok := net.BusByID(c.FaultBus); !ok {
		return powernet.NewValidationError("transient", "FaultBus", float64(c.FaultBus), powernet.ErrUnknownName)
	}
	return nil
}

// steps returns the number of samples on the discretized axis.
func (c Config) steps() int {
	return int(c.Duration / c.TimeStep)
}

// timeAt spreads n samples evenly over [0, Duration].
func (c Config) timeAt(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return c.Duration * float64(i) / float64(n-1)
}

// inFaultWindow reports whether t falls inside [FaultTime, FaultTime+FaultDuration).
func (c Config) inFaultWindow(t float64) bool {
	return t >= c.FaultTime && t < c.FaultTime+c.FaultDuration
}
