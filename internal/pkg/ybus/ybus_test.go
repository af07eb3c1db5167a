package ybus

import (
	"math/cmplx"
	"testing"

	"gotest.tools/v3/assert"

	"gridflow/internal/pkg/powernet"
)

const eps = 1e-12

func approxC(t *testing.T, got, want complex128) {
	t.Helper()
	assert.Assert(t, cmplx.Abs(got-want) < eps, "got %v want %v", got, want)
}

func TestLineTwoPort(t *testing.T) {
	// r=0, x=0.5 gives series admittance -2j; charging B=0.2 adds 0.1j on
	// each terminal.
	br := powernet.Branch{From: 1, To: 2, X: 0.5, B: 0.2}
	tp := BranchTwoPort(br)

	approxC(t, tp.FF, complex(0, -1.9))
	approxC(t, tp.TT, complex(0, -1.9))
	approxC(t, tp.FT, complex(0, 2))
	approxC(t, tp.TF, complex(0, 2))
}

func TestTransformerTapTwoPort(t *testing.T) {
	br := powernet.Branch{From: 1, To: 2, X: 0.5, Tap: 2.0}
	tp := BranchTwoPort(br)

	// The from-side stamp scales by 1/tap², the off-diagonals by 1/tap.
	approxC(t, tp.FF, complex(0, -0.5))
	approxC(t, tp.FT, complex(0, 1))
	approxC(t, tp.TF, complex(0, 1))
	approxC(t, tp.TT, complex(0, -2))
}

func TestZeroTapReadAsUnity(t *testing.T) {
	plain := BranchTwoPort(powernet.Branch{From: 1, To: 2, R: 0.01, X: 0.1})
	unity := BranchTwoPort(powernet.Branch{From: 1, To: 2, R: 0.01, X: 0.1, Tap: 1.0})

	approxC(t, plain.FF, unity.FF)
	approxC(t, plain.FT, unity.FT)
	approxC(t, plain.TF, unity.TF)
	approxC(t, plain.TT, unity.TT)
}

func TestBuildTwoBus(t *testing.T) {
	buses := []powernet.Bus{
		{ID: 1, Name: "Bus 1", NominalKV: 230, Type: powernet.Slack, Vm: 1.0},
		{ID: 2, Name: "Bus 2", NominalKV: 230},
	}
	branches := []powernet.Branch{
		{Name: "Line 1-2", From: 1, To: 2, R: 0.02, X: 0.06, RatingMVA: 100},
	}
	net, err := powernet.New("two bus", buses, branches, nil, nil)
	assert.NilError(t, err)

	m := Build(net)
	assert.Equal(t, m.Size(), 2)

	y := 1 / complex(0.02, 0.06)
	approxC(t, m.At(0, 0), y)
	approxC(t, m.At(1, 1), y)
	approxC(t, m.At(0, 1), -y)
	approxC(t, m.At(1, 0), -y)
}

func TestIEEE9Symmetry(t *testing.T) {
	net, err := powernet.IEEE9()
	assert.NilError(t, err)
	m := Build(net)

	assert.Equal(t, m.Size(), 9)
	for i := 0; i < m.Size(); i++ {
		for j := i + 1; j < m.Size(); j++ {
			// No phase shifters in this case, so the matrix is symmetric.
			approxC(t, m.At(i, j), m.At(j, i))
		}
		// Every diagonal entry is inductive overall.
		assert.Assert(t, m.B(i, i) < 0, "B(%d,%d) = %v", i, i, m.B(i, i))
	}
}

func TestIEEE9RowSums(t *testing.T) {
	net, err := powernet.IEEE9()
	assert.NilError(t, err)
	m := Build(net)

	// With zero shunt charging each row of Y sums to zero.
	for i := 0; i < m.Size(); i++ {
		var sum complex128
		for j := 0; j < m.Size(); j++ {
			sum += m.At(i, j)
		}
		assert.Assert(t, cmplx.Abs(sum) < 1e-9, "row %d sums to %v", i, sum)
	}
}
