package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIndexMap(t *testing.T) {
	tests := []struct {
		name       string
		busStatus  []bool
		slack      int
		wantSolver []int // expected ModelToSolver
		wantModel  []int // expected SolverToModel
		wantSlack  int
		wantErr    error
	}{
		{
			name:       "all connected is the identity",
			busStatus:  []bool{true, true, true},
			slack:      0,
			wantSolver: []int{0, 1, 2},
			wantModel:  []int{0, 1, 2},
			wantSlack:  0,
		},
		{
			name:       "hole in the middle compacts the tail",
			busStatus:  []bool{true, false, true, true},
			slack:      2,
			wantSolver: []int{0, DisconnectedBus, 1, 2},
			wantModel:  []int{0, 2, 3},
			wantSlack:  1,
		},
		{
			name:       "leading holes",
			busStatus:  []bool{false, false, true, true},
			slack:      3,
			wantSolver: []int{DisconnectedBus, DisconnectedBus, 0, 1},
			wantModel:  []int{2, 3},
			wantSlack:  1,
		},
		{
			name:      "disconnected slack",
			busStatus: []bool{true, false, true},
			slack:     1,
			wantErr:   ErrConfiguration,
		},
		{
			name:      "slack out of range",
			busStatus: []bool{true, true},
			slack:     2,
			wantErr:   ErrConfiguration,
		},
		{
			name:      "negative slack",
			busStatus: []bool{true, true},
			slack:     -1,
			wantErr:   ErrConfiguration,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, slackSolver, err := BuildIndexMap(tc.busStatus, tc.slack)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantSolver, m.ModelToSolver)
			assert.Equal(t, tc.wantModel, m.SolverToModel)
			assert.Equal(t, tc.wantSlack, slackSolver)
		})
	}
}

func TestBuildIndexMapBijection(t *testing.T) {
	busStatus := []bool{true, false, true, false, false, true, true}
	m, _, err := BuildIndexMap(busStatus, 2)
	require.NoError(t, err)

	require.Equal(t, 4, m.NumSolverBuses())
	for sid, mid := range m.SolverToModel {
		assert.Equal(t, sid, m.ModelToSolver[mid])
		assert.True(t, busStatus[mid])
	}
	// solver ids preserve model order
	for i := 1; i < len(m.SolverToModel); i++ {
		assert.Less(t, m.SolverToModel[i-1], m.SolverToModel[i])
	}
}

func TestClassification(t *testing.T) {
	cls := NewClassification(5, 2)

	cls.MarkPV(0)
	cls.MarkPV(0) // idempotent
	cls.MarkPV(2) // slack never becomes PV
	cls.MarkPV(4)
	cls.Finalize()

	assert.Equal(t, 2, cls.SlackSolverID)
	assert.Equal(t, []int{0, 4}, cls.PV)
	assert.Equal(t, []int{1, 3}, cls.PQ)
}

func TestClassificationAllPQ(t *testing.T) {
	cls := NewClassification(3, 0)
	cls.Finalize()

	assert.Empty(t, cls.PV)
	assert.Equal(t, []int{1, 2}, cls.PQ)
}
