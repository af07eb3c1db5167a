/*
ybus.go Assembly of the complex bus admittance matrix. Each branch is
reduced to a two-port admittance stamp; transformer taps scale the stamp and
phase shifts rotate it. The matrix is built once per topology and reused
across solves, since only setpoints change between calls.
*/

package ybus

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"gridflow/internal/pkg/powernet"
)

// Matrix is the bus admittance matrix of a network, indexed by bus order.
type Matrix struct {
	n int
	y *mat.CDense
}

// TwoPort holds a branch's admittance seen from its two terminals:
//
//	[ If ]   [ FF FT ][ Vf ]
//	[ It ] = [ TF TT ][ Vt ]
type TwoPort struct {
	FF, FT, TF, TT complex128
}

// BranchTwoPort reduces a branch to its two-port admittance. The tap is on
// the from side; a zero tap is read as a plain line (ratio 1, no shift).
func BranchTwoPort(br powernet.Branch) TwoPort {
	y := 1 / complex(br.R, br.X)
	charge := complex(0, br.B/2)

	ratio := br.Tap
	if ratio == 0 {
		ratio = 1
	}
	shift := br.ShiftDeg * math.Pi / 180
	tap := cmplx.Rect(ratio, shift)

	return TwoPort{
		FF: (y + charge) / complex(ratio*ratio, 0),
		FT: -y / cmplx.Conj(tap),
		TF: -y / tap,
		TT: y + charge,
	}
}

// Build stamps every branch of the network into a fresh admittance matrix.
func Build(net *powernet.Network) *Matrix {
	n := net.BusCount()
	m := &Matrix{n: n, y: mat.NewCDense(n, n, nil)}

	for _, br := range net.Branches() {
		f, _ := net.BusIndex(br.From)
		t, _ := net.BusIndex(br.To)
		tp := BranchTwoPort(br)

		m.add(f, f, tp.FF)
		m.add(f, t, tp.FT)
		m.add(t, f, tp.TF)
		m.add(t, t, tp.TT)
	}
	return m
}

func (m *Matrix) add(i, j int, v complex128) {
	m.y.Set(i, j, m.y.At(i, j)+v)
}

// Size returns the bus count dimension.
func (m *Matrix) Size() int { return m.n }

// At returns the complex admittance entry for a bus index pair.
func (m *Matrix) At(i, j int) complex128 { return m.y.At(i, j) }

// G returns the conductance (real) part of an entry.
func (m *Matrix) G(i, j int) float64 { return real(m.y.At(i, j)) }

// B returns the susceptance (imaginary) part of an entry.
func (m *Matrix) B(i, j int) float64 { return imag(m.y.At(i, j)) }
