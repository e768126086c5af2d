package matrix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmittanceAccumulates(t *testing.T) {
	y := NewAdmittance(3)
	y.AddComplex(0, 0, complex(1, -2))
	y.AddComplex(0, 0, complex(0.5, 0.5))
	y.AddComplex(2, 1, complex(0, 3))

	assert.Equal(t, complex(1.5, -1.5), y.At(0, 0))
	assert.Equal(t, complex(0, 3), y.At(2, 1))
	assert.Equal(t, complex(0, 0), y.At(1, 1))
	assert.Equal(t, 2, y.NNZ())
}

func TestAdmittanceTripletsSorted(t *testing.T) {
	y := NewAdmittance(3)
	y.AddComplex(2, 0, 1)
	y.AddComplex(0, 2, 2)
	y.AddComplex(1, 1, 3)
	y.AddComplex(0, 0, 4)

	tr := y.Triplets()
	require.Len(t, tr, 4)
	for i := 1; i < len(tr); i++ {
		prev, cur := tr[i-1], tr[i]
		ordered := prev.Row < cur.Row || (prev.Row == cur.Row && prev.Col < cur.Col)
		assert.True(t, ordered, "triplet %d out of row-major order", i)
	}
}

func TestAdmittanceMulVec(t *testing.T) {
	// [[2, -1], [-1, 2]] * [1, 1] = [1, 1]
	y := NewAdmittance(2)
	y.AddComplex(0, 0, 2)
	y.AddComplex(0, 1, -1)
	y.AddComplex(1, 0, -1)
	y.AddComplex(1, 1, 2)

	out := y.MulVec([]complex128{1, 1})
	assert.Equal(t, []complex128{1, 1}, out)
}

func TestInjectionSum(t *testing.T) {
	s := NewInjection(3)
	s.Add(0, complex(1, 2))
	s.Add(2, complex(-0.5, 0))
	s.Add(0, complex(0.5, 0))

	assert.Equal(t, complex(2, 2), s.Sum())
	assert.Equal(t, complex(1.5, 2), s.At(0))

	vals := s.Values()
	vals[1] = 99 // Values returns a copy
	assert.Equal(t, complex(0, 0), s.At(1))
}
