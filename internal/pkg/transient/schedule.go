package transient

import (
	"math"

	"gridflow/internal/pkg/powerflow"
	"gridflow/internal/pkg/powernet"
)

// ambient returns the sinusoidal modulation factor applied to every load's
// active power at time t: 1 + amp·sin(2π·f·t).
func (c Config) ambient(t float64) float64 {
	return 1 + c.AmbientAmp*math.Sin(2*math.Pi*c.AmbientFreqHz*t)
}

// overridesAt builds the immutable load-parameter snapshot for one step.
// Every load's active power is base × fault multiplier × ambient
// modulation; reactive power stays at base. Snapshots share nothing, so
// steps can be solved concurrently.
func overridesAt(net *powernet.Network, c Config, t float64) *powerflow.Overrides {
	factor := c.ambient(t)
	faulted := c.inFaultWindow(t)

	loadP := make(map[string]float64)
	for _, l := range net.Loads() {
		p := l.PMW * factor
		if faulted && l.Bus == c.FaultBus {
			p *= c.FaultMultiplier
		}
		loadP[l.Name] = p
	}
	return &powerflow.Overrides{LoadP: loadP}
}
