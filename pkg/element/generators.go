package element

import (
	"fmt"
	"math/cmplx"

	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
)

// Generators holds the voltage-controlling generators: an active-power
// setpoint, a voltage-magnitude target and reactive limits per unit.
type Generators struct {
	p          []float64
	vm         []float64
	qMin, qMax []float64
	bus        []int
	status     []bool

	resP, resQ, resV []float64
}

// GeneratorsState is the round-trippable snapshot of a Generators
// collection.
type GeneratorsState struct {
	P, Vm      []float64
	QMin, QMax []float64
	Bus        []int
	Status     []bool
}

func NewGenerators(p, vm, qMin, qMax []float64, bus []int) (*Generators, error) {
	n := len(p)
	if len(vm) != n || len(qMin) != n || len(qMax) != n || len(bus) != n {
		return nil, fmt.Errorf("%w: generator parameter vectors have mismatched sizes", network.ErrInvalidArgument)
	}
	g := &Generators{
		p:      append([]float64(nil), p...),
		vm:     append([]float64(nil), vm...),
		qMin:   append([]float64(nil), qMin...),
		qMax:   append([]float64(nil), qMax...),
		bus:    append([]int(nil), bus...),
		status: make([]bool, n),
	}
	for i := range g.status {
		g.status[i] = true
	}
	g.ResetResults()
	return g, nil
}

func (g *Generators) Count() int { return len(g.p) }

func (g *Generators) Status() []bool { return append([]bool(nil), g.status...) }

func (g *Generators) Deactivate(id int) error {
	if err := checkID(id, g.Count(), "generator"); err != nil {
		return err
	}
	g.status[id] = false
	return nil
}

func (g *Generators) Reactivate(id int) error {
	if err := checkID(id, g.Count(), "generator"); err != nil {
		return err
	}
	g.status[id] = true
	return nil
}

func (g *Generators) ChangeBus(id, newBus, numBuses int) error {
	if err := checkID(id, g.Count(), "generator"); err != nil {
		return err
	}
	if err := checkBus(newBus, numBuses, "generator"); err != nil {
		return err
	}
	g.bus[id] = newBus
	return nil
}

func (g *Generators) ChangeP(id int, newP float64) error {
	if err := checkID(id, g.Count(), "generator"); err != nil {
		return err
	}
	g.p[id] = newP
	return nil
}

func (g *Generators) ChangeV(id int, newVmPu float64) error {
	if err := checkID(id, g.Count(), "generator"); err != nil {
		return err
	}
	g.vm[id] = newVmPu
	return nil
}

func (g *Generators) Bus(id int) int { return g.bus[id] }

// SlackBus maps the slack generator id to the model bus it sits on.
func (g *Generators) SlackBus(genID int) (int, error) {
	if err := checkID(genID, g.Count(), "slack generator"); err != nil {
		return 0, err
	}
	return g.bus[genID], nil
}

func (g *Generators) FillAdmittance(matrix.TripletSink, bool, *network.IndexMap) error { return nil }

func (g *Generators) FillInjection(s matrix.InjectionSink, ac bool, m *network.IndexMap) error {
	for i := range g.p {
		if !g.status[i] {
			continue
		}
		b, err := solverBus(m, g.bus[i])
		if err != nil {
			return err
		}
		s.Add(b, complex(g.p[i], 0))
	}
	return nil
}

func (g *Generators) FillClassification(cls *network.Classification, m *network.IndexMap) error {
	for i := range g.p {
		if !g.status[i] {
			continue
		}
		b, err := solverBus(m, g.bus[i])
		if err != nil {
			return err
		}
		cls.MarkPV(b)
	}
	return nil
}

// SetVm overrides the magnitude of the initial solver voltage at every
// bus holding an active generator with that generator's target, keeping
// the angle of the guess.
func (g *Generators) SetVm(v []complex128, m *network.IndexMap) error {
	for i := range g.p {
		if !g.status[i] {
			continue
		}
		b, err := solverBus(m, g.bus[i])
		if err != nil {
			return err
		}
		mag := cmplx.Abs(v[b])
		if mag == 0 {
			v[b] = complex(g.vm[i], 0)
		} else {
			v[b] *= complex(g.vm[i]/mag, 0)
		}
	}
	return nil
}

func (g *Generators) ComputeResults(va, vm []float64, v []complex128, m *network.IndexMap, busVnKV []float64) error {
	for i := range g.p {
		if !g.status[i] {
			g.resP[i], g.resQ[i], g.resV[i] = 0, 0, 0
			continue
		}
		b, err := solverBus(m, g.bus[i])
		if err != nil {
			return err
		}
		g.resP[i] = g.p[i]
		g.resQ[i] = 0
		g.resV[i] = vm[b] * busVnKV[g.bus[i]]
	}
	return nil
}

// SetSlackP assigns the aggregated slack active power to the slack
// generator, replacing its setpoint in the results.
func (g *Generators) SetSlackP(genID int, pSlack float64) error {
	if err := checkID(genID, g.Count(), "slack generator"); err != nil {
		return err
	}
	g.resP[genID] = pSlack
	return nil
}

// SetQ distributes the nodal reactive balance: the reactive power
// consumed at each model bus is produced in equal shares by the active
// generators at that bus.
func (g *Generators) SetQ(qByBus []float64) {
	gensAtBus := make([]int, len(qByBus))
	for i := range g.p {
		if g.status[i] {
			gensAtBus[g.bus[i]]++
		}
	}
	for i := range g.p {
		if !g.status[i] {
			continue
		}
		g.resQ[i] = qByBus[g.bus[i]] / float64(gensAtBus[g.bus[i]])
	}
}

func (g *Generators) ResetResults() {
	n := len(g.p)
	if g.resP == nil {
		g.resP, g.resQ, g.resV = nanSlice(n), nanSlice(n), nanSlice(n)
		return
	}
	resetSlice(g.resP)
	resetSlice(g.resQ)
	resetSlice(g.resV)
}

func (g *Generators) SlackContribution(int) float64 { return 0 }

func (g *Generators) ReactiveContribution([]float64) {}

// Results returns the converged per-generator produced P (pu), Q (pu)
// and V (kV).
func (g *Generators) Results() (p, q, v []float64) {
	return copyOf(g.resP), copyOf(g.resQ), copyOf(g.resV)
}

func (g *Generators) State() GeneratorsState {
	return GeneratorsState{
		P:      append([]float64(nil), g.p...),
		Vm:     append([]float64(nil), g.vm...),
		QMin:   append([]float64(nil), g.qMin...),
		QMax:   append([]float64(nil), g.qMax...),
		Bus:    append([]int(nil), g.bus...),
		Status: append([]bool(nil), g.status...),
	}
}

func RestoreGenerators(s GeneratorsState) (*Generators, error) {
	g, err := NewGenerators(s.P, s.Vm, s.QMin, s.QMax, s.Bus)
	if err != nil {
		return nil, err
	}
	copy(g.status, s.Status)
	return g, nil
}

func (g *Generators) Clone() *Generators {
	c, _ := RestoreGenerators(g.State())
	return c
}
