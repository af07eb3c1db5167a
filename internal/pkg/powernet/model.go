/*
model.go Typed descriptions of the electrical entities that make up a
transmission network: buses, branches (lines and transformers), generators
and loads. All impedances are per-unit on the system MVA base; powers are in
MW and MVAr; voltages are per-unit of each bus's nominal voltage.
*/

package powernet

import "github.com/google/uuid"

// SystemBaseMVA is the apparent power base for all per-unit quantities.
const SystemBaseMVA = 100.0

// BusType classifies how a bus participates in the power-flow problem.
type BusType int

const (
	// PQ buses have fixed injected P and Q; magnitude and angle are solved.
	PQ BusType = iota
	// PV buses have fixed P and voltage magnitude; the angle is solved.
	PV
	// Slack is the angular reference. It absorbs the power mismatch.
	Slack
)

func (t BusType) String() string {
	switch t {
	case PQ:
		return "PQ"
	case PV:
		return "PV"
	case Slack:
		return "Slack"
	}
	return "unknown"
}

// Bus is a single node of the network.
type Bus struct {
	pid       uuid.UUID
	ID        int
	Name      string
	NominalKV float64
	Type      BusType
	// Vm and VaDeg seed the solver. For the slack bus they are held fixed;
	// for PV buses Vm is overridden by the generator setpoint.
	Vm    float64
	VaDeg float64
}

// PID is an accessor for the bus process id, assigned at network construction.
func (b Bus) PID() uuid.UUID { return b.pid }

// Branch is a transmission line or a two-winding transformer between two
// buses. R, X and the total charging susceptance B are per-unit on
// SystemBaseMVA. A zero Tap marks a plain line; transformers carry their
// off-nominal turns ratio in Tap and an optional phase shift in ShiftDeg.
type Branch struct {
	pid       uuid.UUID
	Name      string
	From      int
	To        int
	R         float64
	X         float64
	B         float64
	Tap       float64
	ShiftDeg  float64
	RatingMVA float64
}

// PID is an accessor for the branch process id.
func (b Branch) PID() uuid.UUID { return b.pid }

// IsTransformer reports whether the branch carries a turns ratio.
func (b Branch) IsTransformer() bool { return b.Tap != 0 }

// Generator is a dispatchable machine. The bus it references is promoted to
// PV type unless that bus is the slack.
type Generator struct {
	pid  uuid.UUID
	Name string
	Bus  int
	// PMW is the active power setpoint, bounded by PMinMW and PMaxMW.
	PMW    float64
	VmPu   float64
	PMinMW float64
	PMaxMW float64
}

// PID is an accessor for the generator process id.
func (g Generator) PID() uuid.UUID { return g.pid }

// Load is a fixed PQ demand. Setpoints may be overridden per solve without
// touching the model.
type Load struct {
	pid   uuid.UUID
	Name  string
	Bus   int
	PMW   float64
	QMVAr float64
}

// PID is an accessor for the load process id.
func (l Load) PID() uuid.UUID { return l.pid }
