package network

import "fmt"

// DisconnectedBus is the sentinel a deactivated model bus maps to in
// solver space.
const DisconnectedBus = -1

// IndexMap compacts the active buses of the model into the dense 0..k-1
// numbering the solver works with. Restricted to active buses the map is
// a bijection, and SolverToModel is strictly increasing in model id.
type IndexMap struct {
	ModelToSolver []int
	SolverToModel []int
}

// BuildIndexMap walks the buses once in increasing model-id order and
// hands consecutive solver ids to the active ones. It returns the map and
// the solver id of the slack bus.
func BuildIndexMap(busStatus []bool, slackModelID int) (*IndexMap, int, error) {
	if slackModelID < 0 || slackModelID >= len(busStatus) {
		return nil, DisconnectedBus, fmt.Errorf("%w: slack bus %d out of range (%d buses)",
			ErrConfiguration, slackModelID, len(busStatus))
	}

	m := &IndexMap{
		ModelToSolver: make([]int, len(busStatus)),
		SolverToModel: make([]int, 0, len(busStatus)),
	}
	solverID := 0
	for modelID, active := range busStatus {
		if !active {
			m.ModelToSolver[modelID] = DisconnectedBus
			continue
		}
		m.ModelToSolver[modelID] = solverID
		m.SolverToModel = append(m.SolverToModel, modelID)
		solverID++
	}

	slackSolverID := m.ModelToSolver[slackModelID]
	if slackSolverID == DisconnectedBus {
		return nil, DisconnectedBus, fmt.Errorf("%w: the slack bus is disconnected", ErrConfiguration)
	}
	return m, slackSolverID, nil
}

// NumSolverBuses returns k, the number of active buses.
func (m *IndexMap) NumSolverBuses() int { return len(m.SolverToModel) }

func (m *IndexMap) Clone() *IndexMap {
	c := &IndexMap{
		ModelToSolver: make([]int, len(m.ModelToSolver)),
		SolverToModel: make([]int, len(m.SolverToModel)),
	}
	copy(c.ModelToSolver, m.ModelToSolver)
	copy(c.SolverToModel, m.SolverToModel)
	return c
}
