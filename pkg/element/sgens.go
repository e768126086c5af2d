package element

import (
	"fmt"
	"math"

	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
)

// StaticGens holds the static generators: fixed P/Q injections with
// capability limits, no voltage control. Their buses stay PQ.
type StaticGens struct {
	p, q       []float64
	pMin, pMax []float64
	qMin, qMax []float64
	bus        []int
	status     []bool

	resP, resQ, resV []float64
}

// StaticGensState is the round-trippable snapshot of a StaticGens
// collection.
type StaticGensState struct {
	P, Q       []float64
	PMin, PMax []float64
	QMin, QMax []float64
	Bus        []int
	Status     []bool
}

func NewStaticGens(p, q, pMin, pMax, qMin, qMax []float64, bus []int) (*StaticGens, error) {
	n := len(p)
	if len(q) != n || len(pMin) != n || len(pMax) != n || len(qMin) != n || len(qMax) != n || len(bus) != n {
		return nil, fmt.Errorf("%w: static generator parameter vectors have mismatched sizes", network.ErrInvalidArgument)
	}
	s := &StaticGens{
		p:      append([]float64(nil), p...),
		q:      append([]float64(nil), q...),
		pMin:   append([]float64(nil), pMin...),
		pMax:   append([]float64(nil), pMax...),
		qMin:   append([]float64(nil), qMin...),
		qMax:   append([]float64(nil), qMax...),
		bus:    append([]int(nil), bus...),
		status: make([]bool, n),
	}
	for i := range s.status {
		s.status[i] = true
	}
	s.ResetResults()
	return s, nil
}

func (s *StaticGens) Count() int { return len(s.p) }

func (s *StaticGens) Status() []bool { return append([]bool(nil), s.status...) }

func (s *StaticGens) Deactivate(id int) error {
	if err := checkID(id, s.Count(), "static generator"); err != nil {
		return err
	}
	s.status[id] = false
	return nil
}

func (s *StaticGens) Reactivate(id int) error {
	if err := checkID(id, s.Count(), "static generator"); err != nil {
		return err
	}
	s.status[id] = true
	return nil
}

func (s *StaticGens) ChangeBus(id, newBus, numBuses int) error {
	if err := checkID(id, s.Count(), "static generator"); err != nil {
		return err
	}
	if err := checkBus(newBus, numBuses, "static generator"); err != nil {
		return err
	}
	s.bus[id] = newBus
	return nil
}

func (s *StaticGens) ChangeP(id int, newP float64) error {
	if err := checkID(id, s.Count(), "static generator"); err != nil {
		return err
	}
	s.p[id] = newP
	return nil
}

func (s *StaticGens) ChangeQ(id int, newQ float64) error {
	if err := checkID(id, s.Count(), "static generator"); err != nil {
		return err
	}
	s.q[id] = newQ
	return nil
}

func (s *StaticGens) Bus(id int) int { return s.bus[id] }

func (s *StaticGens) FillAdmittance(matrix.TripletSink, bool, *network.IndexMap) error { return nil }

func (s *StaticGens) FillInjection(sink matrix.InjectionSink, ac bool, m *network.IndexMap) error {
	for i := range s.p {
		if !s.status[i] {
			continue
		}
		b, err := solverBus(m, s.bus[i])
		if err != nil {
			return err
		}
		if ac {
			sink.Add(b, complex(s.p[i], s.q[i]))
		} else {
			sink.Add(b, complex(s.p[i], 0))
		}
	}
	return nil
}

func (s *StaticGens) FillClassification(*network.Classification, *network.IndexMap) error {
	return nil
}

func (s *StaticGens) ComputeResults(va, vm []float64, v []complex128, m *network.IndexMap, busVnKV []float64) error {
	for i := range s.p {
		if !s.status[i] {
			s.resP[i], s.resQ[i], s.resV[i] = 0, 0, 0
			continue
		}
		b, err := solverBus(m, s.bus[i])
		if err != nil {
			return err
		}
		s.resP[i] = s.p[i]
		s.resQ[i] = s.q[i]
		s.resV[i] = vm[b] * busVnKV[s.bus[i]]
	}
	return nil
}

func (s *StaticGens) ResetResults() {
	n := len(s.p)
	if s.resP == nil {
		s.resP, s.resQ, s.resV = nanSlice(n), nanSlice(n), nanSlice(n)
		return
	}
	resetSlice(s.resP)
	resetSlice(s.resQ)
	resetSlice(s.resV)
}

// SlackContribution of a static generator is negative: it injects power
// and relieves the slack generator.
func (s *StaticGens) SlackContribution(slackModelID int) float64 {
	p := 0.0
	for i := range s.p {
		if s.status[i] && s.bus[i] == slackModelID && !math.IsNaN(s.resP[i]) {
			p -= s.resP[i]
		}
	}
	return p
}

func (s *StaticGens) ReactiveContribution(qByBus []float64) {
	for i := range s.p {
		if s.status[i] && !math.IsNaN(s.resQ[i]) {
			qByBus[s.bus[i]] -= s.resQ[i]
		}
	}
}

// Results returns the converged per-unit P, Q and V (kV) per static
// generator.
func (s *StaticGens) Results() (p, q, v []float64) {
	return copyOf(s.resP), copyOf(s.resQ), copyOf(s.resV)
}

func (s *StaticGens) State() StaticGensState {
	return StaticGensState{
		P:      append([]float64(nil), s.p...),
		Q:      append([]float64(nil), s.q...),
		PMin:   append([]float64(nil), s.pMin...),
		PMax:   append([]float64(nil), s.pMax...),
		QMin:   append([]float64(nil), s.qMin...),
		QMax:   append([]float64(nil), s.qMax...),
		Bus:    append([]int(nil), s.bus...),
		Status: append([]bool(nil), s.status...),
	}
}

func RestoreStaticGens(st StaticGensState) (*StaticGens, error) {
	s, err := NewStaticGens(st.P, st.Q, st.PMin, st.PMax, st.QMin, st.QMax, st.Bus)
	if err != nil {
		return nil, err
	}
	copy(s.status, st.Status)
	return s, nil
}

func (s *StaticGens) Clone() *StaticGens {
	c, _ := RestoreStaticGens(s.State())
	return c
}
