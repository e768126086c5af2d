package element

import (
	"fmt"
	"math"

	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
)

// Collection is the uniform contract every element category exposes to
// the grid model. The model owns an ordered list of collections and
// dispatches assembly, classification and result computation over it.
type Collection interface {
	Count() int
	// FillAdmittance streams the admittance contributions of the active
	// elements into y. With ac false only the linearized
	// reactance/susceptance form used by the DC approximation is emitted.
	FillAdmittance(y matrix.TripletSink, ac bool, m *network.IndexMap) error
	// FillInjection streams the injected-power contributions into s.
	FillInjection(s matrix.InjectionSink, ac bool, m *network.IndexMap) error
	// FillClassification marks the buses this collection controls the
	// voltage of.
	FillClassification(cls *network.Classification, m *network.IndexMap) error
	// ComputeResults projects the converged solver-space solution onto the
	// per-element results (flows, powers, voltages).
	ComputeResults(va, vm []float64, v []complex128, m *network.IndexMap, busVnKV []float64) error
	ResetResults()
	// SlackContribution returns the net active power this collection draws
	// from the given model bus, as seen after a converged solve.
	SlackContribution(slackModelID int) float64
	// ReactiveContribution accumulates the per-model-bus reactive power
	// consumed by this collection.
	ReactiveContribution(qByBus []float64)
}

var (
	_ Collection = (*Lines)(nil)
	_ Collection = (*Transformers)(nil)
	_ Collection = (*Shunts)(nil)
	_ Collection = (*Loads)(nil)
	_ Collection = (*Generators)(nil)
	_ Collection = (*StaticGens)(nil)
)

// solverBus resolves the model bus of an active element to solver space.
// An active element left on a deactivated bus has no solver-space home;
// the grid stays inconsistent until the element is moved or deactivated.
func solverBus(m *network.IndexMap, modelBus int) (int, error) {
	sid := m.ModelToSolver[modelBus]
	if sid == network.DisconnectedBus {
		return 0, fmt.Errorf("%w: bus %d is connected in the model and disconnected in the solver",
			network.ErrInternalInconsistency, modelBus)
	}
	return sid, nil
}

func checkID(id, count int, what string) error {
	if id < 0 || id >= count {
		return fmt.Errorf("%w: %s id %d out of range (%d elements)", network.ErrConfiguration, what, id, count)
	}
	return nil
}

func checkBus(busID, numBuses int, what string) error {
	if busID < 0 || busID >= numBuses {
		return fmt.Errorf("%w: %s: new bus %d out of range (%d buses)", network.ErrConfiguration, what, busID, numBuses)
	}
	return nil
}

func nanSlice(n int) []float64 {
	res := make([]float64, n)
	for i := range res {
		res[i] = math.NaN()
	}
	return res
}

func resetSlice(v []float64) {
	for i := range v {
		v[i] = math.NaN()
	}
}
