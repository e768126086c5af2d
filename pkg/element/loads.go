package element

import (
	"fmt"
	"math"

	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
)

// Loads holds the loads of the grid: fixed per-unit P/Q consumption at a
// bus. Storage units share this model, the grid keeps them in their own
// instance.
type Loads struct {
	p, q   []float64
	bus    []int
	status []bool

	resP, resQ, resV []float64
}

// LoadsState is the round-trippable snapshot of a Loads collection.
type LoadsState struct {
	P, Q   []float64
	Bus    []int
	Status []bool
}

func NewLoads(p, q []float64, bus []int) (*Loads, error) {
	n := len(p)
	if len(q) != n || len(bus) != n {
		return nil, fmt.Errorf("%w: load parameter vectors have mismatched sizes", network.ErrInvalidArgument)
	}
	l := &Loads{
		p:      append([]float64(nil), p...),
		q:      append([]float64(nil), q...),
		bus:    append([]int(nil), bus...),
		status: make([]bool, n),
	}
	for i := range l.status {
		l.status[i] = true
	}
	l.ResetResults()
	return l, nil
}

func (l *Loads) Count() int { return len(l.p) }

func (l *Loads) Status() []bool { return append([]bool(nil), l.status...) }

func (l *Loads) Deactivate(id int) error {
	if err := checkID(id, l.Count(), "load"); err != nil {
		return err
	}
	l.status[id] = false
	return nil
}

func (l *Loads) Reactivate(id int) error {
	if err := checkID(id, l.Count(), "load"); err != nil {
		return err
	}
	l.status[id] = true
	return nil
}

func (l *Loads) ChangeBus(id, newBus, numBuses int) error {
	if err := checkID(id, l.Count(), "load"); err != nil {
		return err
	}
	if err := checkBus(newBus, numBuses, "load"); err != nil {
		return err
	}
	l.bus[id] = newBus
	return nil
}

func (l *Loads) ChangeP(id int, newP float64) error {
	if err := checkID(id, l.Count(), "load"); err != nil {
		return err
	}
	l.p[id] = newP
	return nil
}

func (l *Loads) ChangeQ(id int, newQ float64) error {
	if err := checkID(id, l.Count(), "load"); err != nil {
		return err
	}
	l.q[id] = newQ
	return nil
}

func (l *Loads) Bus(id int) int { return l.bus[id] }

func (l *Loads) FillAdmittance(matrix.TripletSink, bool, *network.IndexMap) error { return nil }

func (l *Loads) FillInjection(s matrix.InjectionSink, ac bool, m *network.IndexMap) error {
	for i := range l.p {
		if !l.status[i] {
			continue
		}
		b, err := solverBus(m, l.bus[i])
		if err != nil {
			return err
		}
		if ac {
			s.Add(b, -complex(l.p[i], l.q[i]))
		} else {
			s.Add(b, complex(-l.p[i], 0))
		}
	}
	return nil
}

func (l *Loads) FillClassification(*network.Classification, *network.IndexMap) error { return nil }

func (l *Loads) ComputeResults(va, vm []float64, v []complex128, m *network.IndexMap, busVnKV []float64) error {
	for i := range l.p {
		if !l.status[i] {
			l.resP[i], l.resQ[i], l.resV[i] = 0, 0, 0
			continue
		}
		b, err := solverBus(m, l.bus[i])
		if err != nil {
			return err
		}
		l.resP[i] = l.p[i]
		l.resQ[i] = l.q[i]
		l.resV[i] = vm[b] * busVnKV[l.bus[i]]
	}
	return nil
}

func (l *Loads) ResetResults() {
	n := len(l.p)
	if l.resP == nil {
		l.resP, l.resQ, l.resV = nanSlice(n), nanSlice(n), nanSlice(n)
		return
	}
	resetSlice(l.resP)
	resetSlice(l.resQ)
	resetSlice(l.resV)
}

func (l *Loads) SlackContribution(slackModelID int) float64 {
	p := 0.0
	for i := range l.p {
		if l.status[i] && l.bus[i] == slackModelID && !math.IsNaN(l.resP[i]) {
			p += l.resP[i]
		}
	}
	return p
}

func (l *Loads) ReactiveContribution(qByBus []float64) {
	for i := range l.p {
		if l.status[i] && !math.IsNaN(l.resQ[i]) {
			qByBus[l.bus[i]] += l.resQ[i]
		}
	}
}

// Results returns the converged per-load P (pu), Q (pu) and V (kV).
func (l *Loads) Results() (p, q, v []float64) {
	return copyOf(l.resP), copyOf(l.resQ), copyOf(l.resV)
}

func (l *Loads) State() LoadsState {
	return LoadsState{
		P:      append([]float64(nil), l.p...),
		Q:      append([]float64(nil), l.q...),
		Bus:    append([]int(nil), l.bus...),
		Status: append([]bool(nil), l.status...),
	}
}

func RestoreLoads(s LoadsState) (*Loads, error) {
	l, err := NewLoads(s.P, s.Q, s.Bus)
	if err != nil {
		return nil, err
	}
	copy(l.status, s.Status)
	return l, nil
}

func (l *Loads) Clone() *Loads {
	c, _ := RestoreLoads(l.State())
	return c
}
