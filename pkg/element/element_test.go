package element

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
)

func identityMap(t *testing.T, n int) *network.IndexMap {
	t.Helper()
	status := make([]bool, n)
	for i := range status {
		status[i] = true
	}
	m, _, err := network.BuildIndexMap(status, 0)
	require.NoError(t, err)
	return m
}

func assertEntry(t *testing.T, y *matrix.Admittance, i, j int, re, im float64) {
	t.Helper()
	got := y.At(i, j)
	assert.InDelta(t, re, real(got), 1e-12, "real part at (%d,%d)", i, j)
	assert.InDelta(t, im, imag(got), 1e-12, "imag part at (%d,%d)", i, j)
}

func TestLineStampsAC(t *testing.T) {
	// x = 0.1 gives ys = -10j; half the charging admittance lands on each end
	lines, err := NewLines([]float64{0}, []float64{0.1}, []complex128{complex(0, 0.2)}, []int{0}, []int{1})
	require.NoError(t, err)

	y := matrix.NewAdmittance(2)
	require.NoError(t, lines.FillAdmittance(y, true, identityMap(t, 2)))

	assertEntry(t, y, 0, 0, 0, -9.9)
	assertEntry(t, y, 1, 1, 0, -9.9)
	assertEntry(t, y, 0, 1, 0, 10)
	assertEntry(t, y, 1, 0, 0, 10)
}

func TestLineStampsDC(t *testing.T) {
	// resistance and charging are ignored, the stamp is 1/x
	lines, err := NewLines([]float64{0.05}, []float64{0.1}, []complex128{complex(0, 0.2)}, []int{0}, []int{1})
	require.NoError(t, err)

	y := matrix.NewAdmittance(2)
	require.NoError(t, lines.FillAdmittance(y, false, identityMap(t, 2)))

	assertEntry(t, y, 0, 0, 10, 0)
	assertEntry(t, y, 0, 1, -10, 0)
	assertEntry(t, y, 1, 0, -10, 0)
	assertEntry(t, y, 1, 1, 10, 0)
}

func TestDeactivatedLineStampsNothing(t *testing.T) {
	lines, err := NewLines([]float64{0}, []float64{0.1}, []complex128{0}, []int{0}, []int{1})
	require.NoError(t, err)
	require.NoError(t, lines.Deactivate(0))

	y := matrix.NewAdmittance(2)
	require.NoError(t, lines.FillAdmittance(y, true, identityMap(t, 2)))
	assert.Zero(t, y.NNZ())
}

func TestLineStampsInSolverSpace(t *testing.T) {
	// model bus 2 compacts to solver bus 1 when bus 1 is disconnected
	m, _, err := network.BuildIndexMap([]bool{true, false, true}, 0)
	require.NoError(t, err)

	lines, err := NewLines([]float64{0}, []float64{0.1}, []complex128{0}, []int{0}, []int{2})
	require.NoError(t, err)

	y := matrix.NewAdmittance(2)
	require.NoError(t, lines.FillAdmittance(y, true, m))
	assertEntry(t, y, 0, 1, 0, 10)
	assertEntry(t, y, 1, 1, 0, -10)
}

func TestLineOnDisconnectedBus(t *testing.T) {
	m, _, err := network.BuildIndexMap([]bool{true, false}, 0)
	require.NoError(t, err)

	lines, err := NewLines([]float64{0}, []float64{0.1}, []complex128{0}, []int{0}, []int{1})
	require.NoError(t, err)

	y := matrix.NewAdmittance(1)
	err = lines.FillAdmittance(y, true, m)
	assert.ErrorIs(t, err, network.ErrInternalInconsistency)
}

func TestTransformerTapRatio(t *testing.T) {
	// tap +2 steps of 2.5% on the HV side: k = 1.05
	trafos, err := NewTransformers(
		[]float64{0}, []float64{0.1}, []complex128{0},
		[]float64{2.5}, []float64{2}, []float64{0},
		[]bool{true}, []int{0}, []int{1})
	require.NoError(t, err)

	y := matrix.NewAdmittance(2)
	require.NoError(t, trafos.FillAdmittance(y, true, identityMap(t, 2)))
	assertEntry(t, y, 0, 0, 0, -10/(1.05*1.05))
	assertEntry(t, y, 0, 1, 0, 10/1.05)
	assertEntry(t, y, 1, 0, 0, 10/1.05)
	assertEntry(t, y, 1, 1, 0, -10)

	yDC := matrix.NewAdmittance(2)
	require.NoError(t, trafos.FillAdmittance(yDC, false, identityMap(t, 2)))
	assertEntry(t, yDC, 0, 0, 1/(0.1*1.05), 0)
}

func TestTransformerTapOnLVSide(t *testing.T) {
	// tap on the LV side inverts the effective ratio
	trafos, err := NewTransformers(
		[]float64{0}, []float64{0.1}, []complex128{0},
		[]float64{2.5}, []float64{2}, []float64{0},
		[]bool{false}, []int{0}, []int{1})
	require.NoError(t, err)

	y := matrix.NewAdmittance(2)
	require.NoError(t, trafos.FillAdmittance(y, false, identityMap(t, 2)))
	assertEntry(t, y, 0, 0, 1.05/0.1, 0)
}

func TestTransformerPhaseShift(t *testing.T) {
	// a 30 degree shift rotates the off-diagonal stamps in opposite
	// directions, leaving the diagonals untouched
	trafos, err := NewTransformers(
		[]float64{0}, []float64{0.1}, []complex128{0},
		[]float64{0}, []float64{0}, []float64{30},
		[]bool{true}, []int{0}, []int{1})
	require.NoError(t, err)

	y := matrix.NewAdmittance(2)
	require.NoError(t, trafos.FillAdmittance(y, true, identityMap(t, 2)))

	sin30, cos30 := 0.5, math.Sqrt(3)/2
	assertEntry(t, y, 0, 0, 0, -10)
	assertEntry(t, y, 1, 1, 0, -10)
	assertEntry(t, y, 0, 1, -10*sin30, 10*cos30)
	assertEntry(t, y, 1, 0, 10*sin30, 10*cos30)
}

func TestShuntStamps(t *testing.T) {
	shunts, err := NewShunts([]float64{0.1}, []float64{0.2}, []int{1})
	require.NoError(t, err)

	y := matrix.NewAdmittance(2)
	require.NoError(t, shunts.FillAdmittance(y, true, identityMap(t, 2)))
	assertEntry(t, y, 1, 1, -0.1, 0.2)

	yDC := matrix.NewAdmittance(2)
	require.NoError(t, shunts.FillAdmittance(yDC, false, identityMap(t, 2)))
	assert.Zero(t, yDC.NNZ())
}

func TestInjectionSigns(t *testing.T) {
	m := identityMap(t, 3)

	loads, err := NewLoads([]float64{0.5}, []float64{0.2}, []int{1})
	require.NoError(t, err)
	gens, err := NewGenerators([]float64{0.3}, []float64{1}, []float64{-1}, []float64{1}, []int{0})
	require.NoError(t, err)
	sgens, err := NewStaticGens([]float64{0.1}, []float64{0.05},
		[]float64{0}, []float64{1}, []float64{-1}, []float64{1}, []int{2})
	require.NoError(t, err)

	s := matrix.NewInjection(3)
	require.NoError(t, loads.FillInjection(s, true, m))
	require.NoError(t, gens.FillInjection(s, true, m))
	require.NoError(t, sgens.FillInjection(s, true, m))

	assert.Equal(t, complex(0.3, 0), s.At(0))
	assert.Equal(t, complex(-0.5, -0.2), s.At(1))
	assert.Equal(t, complex(0.1, 0.05), s.At(2))

	// the linearized form drops the reactive parts
	sDC := matrix.NewInjection(3)
	require.NoError(t, loads.FillInjection(sDC, false, m))
	require.NoError(t, sgens.FillInjection(sDC, false, m))
	assert.Equal(t, complex(-0.5, 0), sDC.At(1))
	assert.Equal(t, complex(0.1, 0), sDC.At(2))
}

func TestGeneratorSetVm(t *testing.T) {
	gens, err := NewGenerators([]float64{0}, []float64{1.05}, []float64{-1}, []float64{1}, []int{1})
	require.NoError(t, err)

	// the magnitude is overridden, the angle survives
	v := []complex128{complex(2, 0), complex(0, 1)}
	require.NoError(t, gens.SetVm(v, identityMap(t, 2)))
	assert.InDelta(t, 0, real(v[1]), 1e-12)
	assert.InDelta(t, 1.05, imag(v[1]), 1e-12)
	assert.Equal(t, complex(2, 0), v[0])

	// a zero entry has no angle to keep
	v = []complex128{complex(2, 0), 0}
	require.NoError(t, gens.SetVm(v, identityMap(t, 2)))
	assert.Equal(t, complex(1.05, 0), v[1])
}

func TestGeneratorSetQSharesPerBus(t *testing.T) {
	gens, err := NewGenerators(
		[]float64{0.1, 0.2, 0.3}, []float64{1, 1, 1},
		[]float64{-1, -1, -1}, []float64{1, 1, 1}, []int{0, 0, 1})
	require.NoError(t, err)

	gens.SetQ([]float64{0.3, 0.5})
	_, q, _ := gens.Results()
	assert.InDelta(t, 0.15, q[0], 1e-12)
	assert.InDelta(t, 0.15, q[1], 1e-12)
	assert.InDelta(t, 0.5, q[2], 1e-12)
}

func TestSlackContributionSigns(t *testing.T) {
	m := identityMap(t, 1)
	va, vm := []float64{0}, []float64{1}
	v := []complex128{1}
	vnKV := []float64{138}

	loads, err := NewLoads([]float64{0.5}, []float64{0}, []int{0})
	require.NoError(t, err)
	require.NoError(t, loads.ComputeResults(va, vm, v, m, vnKV))
	assert.InDelta(t, 0.5, loads.SlackContribution(0), 1e-12)

	sgens, err := NewStaticGens([]float64{0.1}, []float64{0},
		[]float64{0}, []float64{1}, []float64{-1}, []float64{1}, []int{0})
	require.NoError(t, err)
	require.NoError(t, sgens.ComputeResults(va, vm, v, m, vnKV))
	assert.InDelta(t, -0.1, sgens.SlackContribution(0), 1e-12)
}

func TestCollectionSizeValidation(t *testing.T) {
	_, err := NewLines([]float64{0}, []float64{0.1, 0.2}, []complex128{0}, []int{0}, []int{1})
	assert.ErrorIs(t, err, network.ErrInvalidArgument)

	_, err = NewLoads([]float64{0.5}, []float64{0}, []int{1, 2})
	assert.ErrorIs(t, err, network.ErrInvalidArgument)
}
