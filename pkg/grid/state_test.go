package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"powergrid/pkg/network"
)

// threeBusGrid exercises every element category: a line from the slack
// bus to a PV bus and a step-down transformer to a distribution bus
// carrying a shunt and a load.
func threeBusGrid(t *testing.T) *GridModel {
	t.Helper()
	g := New()
	require.NoError(t, g.InitBuses([]float64{138, 138, 20}))
	require.NoError(t, g.AddLines(
		[]float64{0.01}, []float64{0.1}, []complex128{complex(0, 0.02)},
		[]int{0}, []int{1}))
	require.NoError(t, g.AddTransformers(
		[]float64{0.005}, []float64{0.05}, []complex128{0},
		[]float64{1.25}, []float64{0}, []float64{0},
		[]bool{true}, []int{1}, []int{2}))
	require.NoError(t, g.AddGenerators(
		[]float64{0, 0.2}, []float64{1.02, 1.01},
		[]float64{-1, -1}, []float64{1, 1}, []int{0, 1}))
	require.NoError(t, g.AddShunts([]float64{0}, []float64{0.05}, []int{2}))
	require.NoError(t, g.AddLoads([]float64{0.3}, []float64{0.1}, []int{2}))
	require.NoError(t, g.AddStaticGens(
		[]float64{0.1}, []float64{0.02},
		[]float64{0}, []float64{0.5}, []float64{-0.1}, []float64{0.1}, []int{1}))
	require.NoError(t, g.AddStorages([]float64{0.05}, []float64{0}, []int{1}))
	require.NoError(t, g.SetSlackGen(0))
	return g
}

func TestSnapshotRoundTrip(t *testing.T) {
	g := threeBusGrid(t)
	res1, err := g.ACPowerFlow(make([]complex128, 3), 30, 1e-8)
	require.NoError(t, err)

	snap := g.GetState()
	assert.NotEmpty(t, snap.Version)

	g2 := New()
	require.NoError(t, g2.SetState(snap))
	assert.Equal(t, StatusDirty, g2.Status())

	// reassembly from the snapshot reproduces the solve bit for bit
	res2, err := g2.ACPowerFlow(make([]complex128, 3), 30, 1e-8)
	require.NoError(t, err)
	assert.Equal(t, res1, res2)

	// snapshotting the restored model yields the same snapshot
	assert.Equal(t, snap, g2.GetState())
}

func TestSnapshotCarriesMutations(t *testing.T) {
	g := threeBusGrid(t)
	require.NoError(t, g.DeactivateSgen(0))
	require.NoError(t, g.ChangeLoadP(0, 0.35))
	require.NoError(t, g.ChangeTrafoBusLV(0, 2)) // no-op move, keeps topology valid

	res1, err := g.ACPowerFlow(make([]complex128, 3), 30, 1e-8)
	require.NoError(t, err)

	g2 := New()
	require.NoError(t, g2.SetState(g.GetState()))
	res2, err := g2.ACPowerFlow(make([]complex128, 3), 30, 1e-8)
	require.NoError(t, err)
	assert.Equal(t, res1, res2)
}

func TestSnapshotDoesNotShareMemory(t *testing.T) {
	g := threeBusGrid(t)
	snap := g.GetState()

	snap.BusStatus[2] = false
	snap.Loads.P[0] = 99

	assert.True(t, g.busStatus[2])
	pLoadState := g.GetState().Loads.P
	assert.InDelta(t, 0.3, pLoadState[0], 1e-12)
}

func TestSetStateRejectsBadBusFrame(t *testing.T) {
	g := New()
	err := g.SetState(Snapshot{
		BusVnKV:   []float64{138, 138},
		BusStatus: []bool{true},
	})
	assert.ErrorIs(t, err, network.ErrInvalidArgument)
}
