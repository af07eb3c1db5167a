package powernet

import (
	"math"

	"github.com/google/uuid"
)

// Network is an immutable description of a transmission network. It is
// validated once at construction; a Network that exists is solvable as far
// as structure is concerned. Setpoints vary per solve through overrides,
// never by mutating the model.
type Network struct {
	pid      uuid.UUID
	name     string
	buses    []Bus
	branches []Branch
	gens     []Generator
	loads    []Load
	busIdx   map[int]int // bus ID -> position in buses
	slackIdx int
}

// New validates the given entities and assembles a Network. Structural
// violations return a *ConfigError, physically invalid parameters a
// *ValidationError. Nothing is deferred to solve time.
func New(name string, buses []Bus, branches []Branch, gens []Generator, loads []Load) (*Network, error) {
	if len(buses) == 0 {
		return nil, newConfigError(name, ErrNoBuses)
	}

	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}

	n := &Network{
		pid:      pid,
		name:     name,
		buses:    append([]Bus(nil), buses...),
		branches: append([]Branch(nil), branches...),
		gens:     append([]Generator(nil), gens...),
		loads:    append([]Load(nil), loads...),
		busIdx:   make(map[int]int, len(buses)),
		slackIdx: -1,
	}

	for i := range n.buses {
		b := &n.buses[i]
		if _, dup := n.busIdx[b.ID]; dup {
			return nil, newConfigError(b.Name, ErrDuplicateBus)
		}
		n.busIdx[b.ID] = i
		if b.NominalKV <= 0 {
			return nil, NewValidationError(b.Name, "NominalKV", b.NominalKV, ErrBadNominalVoltage)
		}
		if b.Vm == 0 {
			b.Vm = 1.0 // flat start unless seeded
		}
		if b.Type == Slack {
			if n.slackIdx >= 0 {
				return nil, newConfigError(b.Name, ErrMultipleSlack)
			}
			n.slackIdx = i
		}
		b.pid = mustUUID()
	}
	if n.slackIdx < 0 {
		return nil, newConfigError(name, ErrNoSlack)
	}

	for i := range n.branches {
		br := &n.branches[i]
		if err := n.checkBranch(br); err != nil {
			return nil, err
		}
		br.pid = mustUUID()
	}

	for i := range n.gens {
		g := &n.gens[i]
		if err := n.checkGenerator(g); err != nil {
			return nil, err
		}
		// Promote the generator's bus to PV unless it is the slack.
		at := &n.buses[n.busIdx[g.Bus]]
		if at.Type != Slack {
			at.Type = PV
			at.Vm = g.VmPu
		}
		g.pid = mustUUID()
	}

	for i := range n.loads {
		l := &n.loads[i]
		if _, ok := n.busIdx[l.Bus]; !ok {
			return nil, newConfigError(l.Name, ErrUnknownBus)
		}
		if !finite(l.PMW) || !finite(l.QMVAr) {
			return nil, NewValidationError(l.Name, "PQ", l.PMW, ErrNotFinite)
		}
		l.pid = mustUUID()
	}

	if err := n.checkConnected(); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Network) checkBranch(br *Branch) error {
	if _, ok := n.busIdx[br.From]; !ok {
		return newConfigError(br.Name, ErrUnknownBus)
	}
	if _, ok := n.busIdx[br.To]; !ok {
		return newConfigError(br.Name, ErrUnknownBus)
	}
	if br.From == br.To {
		return newConfigError(br.Name, ErrSelfLoop)
	}
	if br.R == 0 && br.X == 0 {
		return newConfigError(br.Name, ErrZeroImpedance)
	}
	if br.R < 0 {
		return NewValidationError(br.Name, "R", br.R, ErrNegativeResistance)
	}
	if br.RatingMVA <= 0 {
		return NewValidationError(br.Name, "RatingMVA", br.RatingMVA, ErrBadRating)
	}
	if !finite(br.R) || !finite(br.X) || !finite(br.B) {
		return NewValidationError(br.Name, "impedance", br.X, ErrNotFinite)
	}
	return nil
}

func (n *Network) checkGenerator(g *Generator) error {
	if _, ok := n.busIdx[g.Bus]; !ok {
		return newConfigError(g.Name, ErrUnknownBus)
	}
	if g.VmPu <= 0 {
		return NewValidationError(g.Name, "VmPu", g.VmPu, ErrBadVoltageSetpoint)
	}
	if g.PMinMW > g.PMaxMW {
		return NewValidationError(g.Name, "PMinMW", g.PMinMW, ErrBadLimits)
	}
	if g.PMW < g.PMinMW || g.PMW > g.PMaxMW {
		return NewValidationError(g.Name, "PMW", g.PMW, ErrSetpointOutOfRange)
	}
	return nil
}

// checkConnected walks the branch adjacency from the slack bus and requires
// every bus to be reachable. An unreachable bus is an island: its power
// balance would be undetermined by the solver.
func (n *Network) checkConnected() error {
	adjacency := make(map[int][]int, len(n.buses))
	for _, br := range n.branches {
		adjacency[br.From] = append(adjacency[br.From], br.To)
		adjacency[br.To] = append(adjacency[br.To], br.From)
	}

	seen := make(map[int]bool, len(n.buses))
	frontier := []int{n.buses[n.slackIdx].ID}
	seen[n.buses[n.slackIdx].ID] = true
	for len(frontier) > 0 {
		id := frontier[0]
		frontier = frontier[1:]
		for _, next := range adjacency[id] {
			if !seen[next] {
				seen[next] = true
				frontier = append(frontier, next)
			}
		}
	}

	for _, b := range n.buses {
		if !seen[b.ID] {
			return newConfigError(b.Name, ErrIslanded)
		}
	}
	return nil
}

// PID is an accessor for the network process id.
func (n *Network) PID() uuid.UUID { return n.pid }

// Name is an accessor for the network's configured name.
func (n *Network) Name() string { return n.name }

// BusCount returns the number of buses.
func (n *Network) BusCount() int { return len(n.buses) }

// Buses returns a copy of the bus table in declaration order.
func (n *Network) Buses() []Bus { return append([]Bus(nil), n.buses...) }

// Branches returns a copy of the branch table.
func (n *Network) Branches() []Branch { return append([]Branch(nil), n.branches...) }

// Generators returns a copy of the generator table.
func (n *Network) Generators() []Generator { return append([]Generator(nil), n.gens...) }

// Loads returns a copy of the load table.
func (n *Network) Loads() []Load { return append([]Load(nil), n.loads...) }

// Slack returns the slack bus.
func (n *Network) Slack() Bus { return n.buses[n.slackIdx] }

// SlackIndex returns the slack bus's position in bus order.
func (n *Network) SlackIndex() int { return n.slackIdx }

// BusIndex resolves a bus ID to its position in bus order.
func (n *Network) BusIndex(id int) (int, bool) {
	i, ok := n.busIdx[id]
	return i, ok
}

// BusByID resolves a bus ID to its record.
func (n *Network) BusByID(id int) (Bus, bool) {
	i, ok := n.busIdx[id]
	if !ok {
		return Bus{}, false
	}
	return n.buses[i], true
}

// LoadsAt returns the loads attached to the given bus ID.
func (n *Network) LoadsAt(id int) []Load {
	var out []Load
	for _, l := range n.loads {
		if l.Bus == id {
			out = append(out, l)
		}
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func mustUUID() uuid.UUID {
	pid, err := uuid.NewUUID()
	if err != nil {
		return uuid.UUID{}
	}
	return pid
}
