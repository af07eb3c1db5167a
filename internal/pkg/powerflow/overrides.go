package powerflow

import (
	"math"

	"gridflow/internal/pkg/powernet"
)

// Overrides substitutes generator and load setpoints for a single solve
// without mutating the model. Entries are keyed by entity name. A nil
// Overrides solves the base case.
type Overrides struct {
	LoadP map[string]float64 // MW
	LoadQ map[string]float64 // MVAr
	GenP  map[string]float64 // MW
	GenV  map[string]float64 // pu
}

// validate rejects overrides that reference unknown entities or carry
// non-finite or out-of-range values, before any solve work starts.
func (o *Overrides) validate(net *powernet.Network) error {
	if o == nil {
		return nil
	}

	loads := make(map[string]bool)
	for _, l := range net.Loads() {
		loads[l.Name] = true
	}
	gens := make(map[string]powernet.Generator)
	for _, g := range net.Generators() {
		gens[g.Name] = g
	}

	for name, v := range o.LoadP {
		if !loads[name] {
			return powernet.NewValidationError(name, "LoadP", v, powernet.ErrUnknownName)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return powernet.NewValidationError(name, "LoadP", v, powernet.ErrNotFinite)
		}
	}
	for name, v := range o.LoadQ {
		if !loads[name] {
			return powernet.NewValidationError(name, "LoadQ", v, powernet.ErrUnknownName)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return powernet.NewValidationError(name, "LoadQ", v, powernet.ErrNotFinite)
		}
	}
	for name, v := range o.GenP {
		g, ok := gens[name]
		if !ok {
			return powernet.NewValidationError(name, "GenP", v, powernet.ErrUnknownName)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return powernet.NewValidationError(name, "GenP", v, powernet.ErrNotFinite)
		}
		if v < g.PMinMW || v > g.PMaxMW {
			return powernet.NewValidationError(name, "GenP", v, powernet.ErrSetpointOutOfRange)
		}
	}
	for name, v := range o.GenV {
		if _, ok := gens[name]; !ok {
			return powernet.NewValidationError(name, "GenV", v, powernet.ErrUnknownName)
		}
		if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return powernet.NewValidationError(name, "GenV", v, powernet.ErrBadVoltageSetpoint)
		}
	}
	return nil
}

// effectiveGenerators applies generator overrides to a copy of the model's
// generator table.
func (o *Overrides) effectiveGenerators(net *powernet.Network) []powernet.Generator {
	gens := net.Generators()
	if o == nil {
		return gens
	}
	for i := range gens {
		if v, ok := o.GenP[gens[i].Name]; ok {
			gens[i].PMW = v
		}
		if v, ok := o.GenV[gens[i].Name]; ok {
			gens[i].VmPu = v
		}
	}
	return gens
}

// effectiveLoads applies load overrides to a copy of the model's load table.
func (o *Overrides) effectiveLoads(net *powernet.Network) []powernet.Load {
	loads := net.Loads()
	if o == nil {
		return loads
	}
	for i := range loads {
		if v, ok := o.LoadP[loads[i].Name]; ok {
			loads[i].PMW = v
		}
		if v, ok := o.LoadQ[loads[i].Name]; ok {
			loads[i].QMVAr = v
		}
	}
	return loads
}
