package element

import (
	"fmt"
	"math"
	"math/cmplx"

	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
)

// Shunts holds the shunt elements. p and q are the per-unit powers the
// shunt consumes at nominal voltage; they translate to a constant
// diagonal admittance.
type Shunts struct {
	p, q   []float64
	bus    []int
	status []bool

	resP, resQ, resV []float64
}

// ShuntsState is the round-trippable snapshot of a Shunts collection.
type ShuntsState struct {
	P, Q   []float64
	Bus    []int
	Status []bool
}

func NewShunts(p, q []float64, bus []int) (*Shunts, error) {
	n := len(p)
	if len(q) != n || len(bus) != n {
		return nil, fmt.Errorf("%w: shunt parameter vectors have mismatched sizes", network.ErrInvalidArgument)
	}
	s := &Shunts{
		p:      append([]float64(nil), p...),
		q:      append([]float64(nil), q...),
		bus:    append([]int(nil), bus...),
		status: make([]bool, n),
	}
	for i := range s.status {
		s.status[i] = true
	}
	s.ResetResults()
	return s, nil
}

func (s *Shunts) Count() int { return len(s.p) }

func (s *Shunts) Status() []bool { return append([]bool(nil), s.status...) }

func (s *Shunts) Deactivate(id int) error {
	if err := checkID(id, s.Count(), "shunt"); err != nil {
		return err
	}
	s.status[id] = false
	return nil
}

func (s *Shunts) Reactivate(id int) error {
	if err := checkID(id, s.Count(), "shunt"); err != nil {
		return err
	}
	s.status[id] = true
	return nil
}

func (s *Shunts) ChangeBus(id, newBus, numBuses int) error {
	if err := checkID(id, s.Count(), "shunt"); err != nil {
		return err
	}
	if err := checkBus(newBus, numBuses, "shunt"); err != nil {
		return err
	}
	s.bus[id] = newBus
	return nil
}

func (s *Shunts) ChangeP(id int, newP float64) error {
	if err := checkID(id, s.Count(), "shunt"); err != nil {
		return err
	}
	s.p[id] = newP
	return nil
}

func (s *Shunts) ChangeQ(id int, newQ float64) error {
	if err := checkID(id, s.Count(), "shunt"); err != nil {
		return err
	}
	s.q[id] = newQ
	return nil
}

func (s *Shunts) Bus(id int) int { return s.bus[id] }

func (s *Shunts) FillAdmittance(y matrix.TripletSink, ac bool, m *network.IndexMap) error {
	if !ac {
		// shunts carry no series reactance, nothing in the linearized form
		return nil
	}
	for i := range s.p {
		if !s.status[i] {
			continue
		}
		b, err := solverBus(m, s.bus[i])
		if err != nil {
			return err
		}
		y.AddComplex(b, b, complex(-s.p[i], s.q[i]))
	}
	return nil
}

func (s *Shunts) FillInjection(matrix.InjectionSink, bool, *network.IndexMap) error { return nil }

func (s *Shunts) FillClassification(*network.Classification, *network.IndexMap) error { return nil }

func (s *Shunts) ComputeResults(va, vm []float64, v []complex128, m *network.IndexMap, busVnKV []float64) error {
	for i := range s.p {
		if !s.status[i] {
			s.resP[i], s.resQ[i], s.resV[i] = 0, 0, 0
			continue
		}
		b, err := solverBus(m, s.bus[i])
		if err != nil {
			return err
		}
		y := complex(-s.p[i], s.q[i])
		// consumed power at the converged voltage
		consumed := -v[b] * cmplx.Conj(y*v[b])
		s.resP[i], s.resQ[i] = real(consumed), imag(consumed)
		s.resV[i] = vm[b] * busVnKV[s.bus[i]]
	}
	return nil
}

func (s *Shunts) ResetResults() {
	n := len(s.p)
	if s.resP == nil {
		s.resP, s.resQ, s.resV = nanSlice(n), nanSlice(n), nanSlice(n)
		return
	}
	resetSlice(s.resP)
	resetSlice(s.resQ)
	resetSlice(s.resV)
}

func (s *Shunts) SlackContribution(slackModelID int) float64 {
	p := 0.0
	for i := range s.p {
		if s.status[i] && s.bus[i] == slackModelID && !math.IsNaN(s.resP[i]) {
			p += s.resP[i]
		}
	}
	return p
}

func (s *Shunts) ReactiveContribution(qByBus []float64) {
	for i := range s.p {
		if s.status[i] && !math.IsNaN(s.resQ[i]) {
			qByBus[s.bus[i]] += s.resQ[i]
		}
	}
}

// Results returns the converged per-shunt consumed P (pu), Q (pu) and
// V (kV).
func (s *Shunts) Results() (p, q, v []float64) {
	return copyOf(s.resP), copyOf(s.resQ), copyOf(s.resV)
}

func (s *Shunts) State() ShuntsState {
	return ShuntsState{
		P:      append([]float64(nil), s.p...),
		Q:      append([]float64(nil), s.q...),
		Bus:    append([]int(nil), s.bus...),
		Status: append([]bool(nil), s.status...),
	}
}

func RestoreShunts(st ShuntsState) (*Shunts, error) {
	s, err := NewShunts(st.P, st.Q, st.Bus)
	if err != nil {
		return nil, err
	}
	copy(s.status, st.Status)
	return s, nil
}

func (s *Shunts) Clone() *Shunts {
	c, _ := RestoreShunts(s.State())
	return c
}
