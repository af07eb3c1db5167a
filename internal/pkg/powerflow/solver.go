/*
solver.go Newton-Raphson AC power flow in polar form. The state vector is
the voltage angle at every non-slack bus followed by the voltage magnitude at
every PQ bus. Each iteration builds the full Jacobian of the injection
equations, solves J·dx = mismatch with a dense LU factorization, and applies
the correction. Convergence is the infinity norm of the mismatch vector.
*/

package powerflow

import (
	"math"
	"math/cmplx"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"

	"gridflow/internal/pkg/powernet"
	"gridflow/internal/pkg/ybus"
)

const (
	// DefaultTolerance is the per-unit mismatch bound for convergence.
	DefaultTolerance = 1e-6
	// DefaultMaxIter bounds the Newton-Raphson iteration count.
	DefaultMaxIter = 20
)

// Solver runs Newton-Raphson power-flow solves. The zero value is not
// usable; construct with NewSolver and adjust the exported knobs if needed.
type Solver struct {
	Tolerance float64
	MaxIter   int
}

// NewSolver returns a Solver with default tolerance and iteration bound.
func NewSolver() *Solver {
	return &Solver{Tolerance: DefaultTolerance, MaxIter: DefaultMaxIter}
}

// state is the mutable solve state. It is created fresh for every Solve call
// and never shared, so concurrent solves over the same model are safe.
type state struct {
	vm, va     []float64 // per bus, magnitude pu / angle rad
	pSch, qSch []float64 // scheduled injections, pu
	pCalc      []float64
	qCalc      []float64
	angleVars  []int // bus indices with a free angle (non-slack)
	magVars    []int // bus indices with a free magnitude (PQ)
}

// Solve computes the steady-state operating point for the model under the
// given overrides. The admittance matrix must have been built from the same
// network. Returns *powernet.ValidationError for bad overrides and
// *ConvergenceError when the iteration fails.
func (s *Solver) Solve(net *powernet.Network, y *ybus.Matrix, ov *Overrides) (*Result, error) {
	started := time.Now()
	if err := ov.validate(net); err != nil {
		return nil, err
	}

	gens := ov.effectiveGenerators(net)
	loads := ov.effectiveLoads(net)
	st := newState(net, gens, loads)

	iters, worst, err := s.iterate(st, y)
	if err != nil {
		return nil, err
	}

	res := assemble(net, y, st, gens, loads)
	res.Iterations = iters
	res.Mismatch = worst
	res.Elapsed = time.Since(started)
	return res, nil
}

func newState(net *powernet.Network, gens []powernet.Generator, loads []powernet.Load) *state {
	buses := net.Buses()
	n := len(buses)
	st := &state{
		vm:    make([]float64, n),
		va:    make([]float64, n),
		pSch:  make([]float64, n),
		qSch:  make([]float64, n),
		pCalc: make([]float64, n),
		qCalc: make([]float64, n),
	}

	// Flat start at the slack reference angle; magnitudes from the model.
	refRad := net.Slack().VaDeg * math.Pi / 180
	for i, b := range buses {
		st.vm[i] = b.Vm
		st.va[i] = refRad
		if b.Type != powernet.Slack {
			st.angleVars = append(st.angleVars, i)
		}
		if b.Type == powernet.PQ {
			st.magVars = append(st.magVars, i)
		}
	}

	for _, g := range gens {
		i, _ := net.BusIndex(g.Bus)
		if buses[i].Type != powernet.Slack {
			st.pSch[i] += g.PMW / powernet.SystemBaseMVA
			st.vm[i] = g.VmPu
		}
	}
	for _, l := range loads {
		i, _ := net.BusIndex(l.Bus)
		st.pSch[i] -= l.PMW / powernet.SystemBaseMVA
		st.qSch[i] -= l.QMVAr / powernet.SystemBaseMVA
	}
	return st
}

// iterate runs the Newton-Raphson loop to convergence or failure. It returns
// the iteration count and the final worst mismatch.
func (s *Solver) iterate(st *state, y *ybus.Matrix) (int, float64, error) {
	nVar := len(st.angleVars) + len(st.magVars)

	st.calcInjections(y)
	f, worst := st.mismatch()

	iters := 0
	for worst > s.Tolerance || math.IsNaN(worst) {
		if math.IsNaN(worst) || math.IsInf(worst, 0) {
			return iters, worst, &ConvergenceError{Iterations: iters, WorstMismatch: worst, Wrapped: ErrDiverged}
		}
		if iters >= s.MaxIter {
			return iters, worst, &ConvergenceError{Iterations: iters, WorstMismatch: worst, Wrapped: ErrMaxIterations}
		}

		j := st.jacobian(y)
		var lu mat.LU
		lu.Factorize(j)

		dx := mat.NewVecDense(nVar, nil)
		if err := lu.SolveVecTo(dx, false, mat.NewVecDense(nVar, f)); err != nil {
			return iters, worst, &ConvergenceError{Iterations: iters, WorstMismatch: worst, Wrapped: ErrSingularJacobian}
		}

		for k, i := range st.angleVars {
			st.va[i] += dx.AtVec(k)
		}
		off := len(st.angleVars)
		for k, i := range st.magVars {
			st.vm[i] += dx.AtVec(off + k)
		}

		iters++
		st.calcInjections(y)
		f, worst = st.mismatch()
	}
	return iters, worst, nil
}

// calcInjections evaluates the AC injection equations at the current voltage
// estimate: P_i = V_i Σ V_k (G cos θ_ik + B sin θ_ik), and the reactive
// counterpart.
func (st *state) calcInjections(y *ybus.Matrix) {
	n := len(st.vm)
	for i := 0; i < n; i++ {
		var p, q float64
		for k := 0; k < n; k++ {
			g, b := y.G(i, k), y.B(i, k)
			if g == 0 && b == 0 {
				continue
			}
			d := st.va[i] - st.va[k]
			sin, cos := math.Sincos(d)
			p += st.vm[k] * (g*cos + b*sin)
			q += st.vm[k] * (g*sin - b*cos)
		}
		st.pCalc[i] = st.vm[i] * p
		st.qCalc[i] = st.vm[i] * q
	}
}

// mismatch returns scheduled-minus-calculated injections for the free
// variables and the infinity norm of that vector.
func (st *state) mismatch() ([]float64, float64) {
	f := make([]float64, 0, len(st.angleVars)+len(st.magVars))
	worst := 0.0
	for _, i := range st.angleVars {
		d := st.pSch[i] - st.pCalc[i]
		f = append(f, d)
		if a := math.Abs(d); a > worst {
			worst = a
		}
	}
	for _, i := range st.magVars {
		d := st.qSch[i] - st.qCalc[i]
		f = append(f, d)
		if a := math.Abs(d); a > worst {
			worst = a
		}
	}
	return f, worst
}

// jacobian builds the full Newton-Raphson Jacobian in the standard H/N/M/L
// block layout: rows are P equations for non-slack buses then Q equations
// for PQ buses, columns are angles then magnitudes.
func (st *state) jacobian(y *ybus.Matrix) *mat.Dense {
	nA := len(st.angleVars)
	nM := len(st.magVars)
	j := mat.NewDense(nA+nM, nA+nM, nil)

	for r, i := range st.angleVars {
		for c, k := range st.angleVars {
			if i == k {
				j.Set(r, c, -st.qCalc[i]-y.B(i, i)*st.vm[i]*st.vm[i])
				continue
			}
			d := st.va[i] - st.va[k]
			sin, cos := math.Sincos(d)
			j.Set(r, c, st.vm[i]*st.vm[k]*(y.G(i, k)*sin-y.B(i, k)*cos))
		}
		for c, k := range st.magVars {
			if i == k {
				j.Set(r, nA+c, st.pCalc[i]/st.vm[i]+y.G(i, i)*st.vm[i])
				continue
			}
			d := st.va[i] - st.va[k]
			sin, cos := math.Sincos(d)
			j.Set(r, nA+c, st.vm[i]*(y.G(i, k)*cos+y.B(i, k)*sin))
		}
	}

	for r, i := range st.magVars {
		for c, k := range st.angleVars {
			if i == k {
				j.Set(nA+r, c, st.pCalc[i]-y.G(i, i)*st.vm[i]*st.vm[i])
				continue
			}
			d := st.va[i] - st.va[k]
			sin, cos := math.Sincos(d)
			j.Set(nA+r, c, -st.vm[i]*st.vm[k]*(y.G(i, k)*cos+y.B(i, k)*sin))
		}
		for c, k := range st.magVars {
			if i == k {
				j.Set(nA+r, nA+c, st.qCalc[i]/st.vm[i]-y.B(i, i)*st.vm[i])
				continue
			}
			d := st.va[i] - st.va[k]
			sin, cos := math.Sincos(d)
			j.Set(nA+r, nA+c, st.vm[i]*(y.G(i, k)*sin-y.B(i, k)*cos))
		}
	}
	return j
}

// assemble shapes the converged state into per-entity records, in MW/MVAr
// and degrees.
func assemble(net *powernet.Network, y *ybus.Matrix, st *state, gens []powernet.Generator, loads []powernet.Load) *Result {
	buses := net.Buses()
	base := powernet.SystemBaseMVA

	runID, _ := uuid.NewUUID()
	res := &Result{RunID: runID}

	vc := make([]complex128, len(buses))
	for i := range buses {
		vc[i] = cmplx.Rect(st.vm[i], st.va[i])
	}

	loadP := make(map[int]float64)
	loadQ := make(map[int]float64)
	for _, l := range loads {
		loadP[l.Bus] += l.PMW
		loadQ[l.Bus] += l.QMVAr
		res.Loads = append(res.Loads, LoadResult{Name: l.Name, BusID: l.Bus, PMW: l.PMW, QMVAr: l.QMVAr})
	}

	for i, b := range buses {
		res.Buses = append(res.Buses, BusResult{
			BusID: b.ID,
			Name:  b.Name,
			VmPu:  st.vm[i],
			VaDeg: st.va[i] * 180 / math.Pi,
			PMW:   st.pCalc[i] * base,
			QMVAr: st.qCalc[i] * base,
		})
	}

	for _, br := range net.Branches() {
		f, _ := net.BusIndex(br.From)
		t, _ := net.BusIndex(br.To)
		tp := ybus.BranchTwoPort(br)

		sf := vc[f] * cmplx.Conj(tp.FF*vc[f]+tp.FT*vc[t]) * complex(base, 0)
		stv := vc[t] * cmplx.Conj(tp.TF*vc[f]+tp.TT*vc[t]) * complex(base, 0)

		loading := math.Max(cmplx.Abs(sf), cmplx.Abs(stv)) / br.RatingMVA * 100
		res.Branches = append(res.Branches, BranchResult{
			Name:       br.Name,
			From:       br.From,
			To:         br.To,
			PFromMW:    real(sf),
			QFromMVAr:  imag(sf),
			PToMW:      real(stv),
			QToMVAr:    imag(stv),
			LossMW:     real(sf) + real(stv),
			LossMVAr:   imag(sf) + imag(stv),
			LoadingPct: loading,
		})
	}

	slackIdx := net.SlackIndex()
	slackID := buses[slackIdx].ID
	res.Slack = SlackResult{
		BusID: slackID,
		PMW:   st.pCalc[slackIdx]*base + loadP[slackID],
		QMVAr: st.qCalc[slackIdx]*base + loadQ[slackID],
	}

	gensAt := make(map[int]int)
	for _, g := range gens {
		gensAt[g.Bus]++
	}
	for _, g := range gens {
		i, _ := net.BusIndex(g.Bus)
		if buses[i].Type == powernet.Slack {
			// The slack record already carries this bus's balancing
			// injection; listing the machine again would count it twice.
			continue
		}
		// Machines sharing a bus split the bus's reactive output evenly.
		share := float64(gensAt[g.Bus])
		res.Generators = append(res.Generators, GeneratorResult{
			Name:  g.Name,
			BusID: g.Bus,
			VmPu:  st.vm[i],
			PMW:   g.PMW,
			QMVAr: (st.qCalc[i]*base + loadQ[g.Bus]) / share,
		})
	}

	return res
}
