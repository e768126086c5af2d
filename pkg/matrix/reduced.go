package matrix

import (
	"fmt"

	"github.com/edp1096/sparse"

	"powergrid/pkg/network"
)

// ReducedSystem is the real sparse linear system left after removing the
// slack row and column from the linearized admittance matrix. The
// underlying factorization engine indexes from 1; this wrapper exposes
// the 0-based solver-space numbering.
type ReducedSystem struct {
	Size   int
	matrix *sparse.Matrix
	rhs    []float64
	config *sparse.Configuration
}

func NewReducedSystem(size int) (*ReducedSystem, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: reduced system needs at least one bus besides the slack", network.ErrInvalidArgument)
	}
	config := &sparse.Configuration{
		Real:           true,
		Complex:        false,
		Expandable:     true,
		Translate:      false,
		ModifiedNodal:  true,
		TiesMultiplier: 5,
		PrinterWidth:   140,
	}

	mat, err := sparse.Create(int64(size), config)
	if err != nil {
		return nil, fmt.Errorf("creating sparse matrix: %v", err)
	}

	return &ReducedSystem{
		Size:   size,
		matrix: mat,
		rhs:    make([]float64, size+1), // 1-based indexing
		config: config,
	}, nil
}

func (m *ReducedSystem) AddElement(i, j int, value float64) {
	m.matrix.GetElement(int64(i+1), int64(j+1)).Real += value
}

func (m *ReducedSystem) AddRHS(i int, value float64) {
	m.rhs[i+1] += value
}

// Factor runs the LU factorization once. A factorization failure means
// the reduced system is singular, which for a powerflow grid means the
// network is not a single connected component.
func (m *ReducedSystem) Factor() error {
	if err := m.matrix.Factor(); err != nil {
		return fmt.Errorf("%w: %v", network.ErrSingularMatrix, err)
	}
	return nil
}

// Solve resolves the factored system against the accumulated right-hand
// side and returns the solution in 0-based order.
func (m *ReducedSystem) Solve() ([]float64, error) {
	solution, err := m.matrix.Solve(m.rhs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", network.ErrSingularMatrix, err)
	}
	res := make([]float64, m.Size)
	copy(res, solution[1:m.Size+1])
	return res, nil
}

func (m *ReducedSystem) Destroy() {
	if m.matrix != nil {
		m.matrix.Destroy()
	}
}
