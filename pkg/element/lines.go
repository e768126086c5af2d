package element

import (
	"fmt"
	"math"
	"math/cmplx"

	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
)

const sqrt3 = 1.7320508075688772

// Lines holds every powerline of the grid. Electrical parameters are per
// unit: series resistance r, series reactance x and total charging
// admittance h of the pi model.
type Lines struct {
	r, x    []float64
	h       []complex128
	busFrom []int
	busTo   []int
	status  []bool

	resPFrom, resQFrom, resVFrom, resAFrom []float64
	resPTo, resQTo, resVTo, resATo         []float64
}

// LinesState is the round-trippable snapshot of a Lines collection.
type LinesState struct {
	R, X    []float64
	H       []complex128
	BusFrom []int
	BusTo   []int
	Status  []bool
}

func NewLines(r, x []float64, h []complex128, busFrom, busTo []int) (*Lines, error) {
	n := len(r)
	if len(x) != n || len(h) != n || len(busFrom) != n || len(busTo) != n {
		return nil, fmt.Errorf("%w: line parameter vectors have mismatched sizes", network.ErrInvalidArgument)
	}
	l := &Lines{
		r:       append([]float64(nil), r...),
		x:       append([]float64(nil), x...),
		h:       append([]complex128(nil), h...),
		busFrom: append([]int(nil), busFrom...),
		busTo:   append([]int(nil), busTo...),
		status:  make([]bool, n),
	}
	for i := range l.status {
		l.status[i] = true
	}
	l.ResetResults()
	return l, nil
}

func (l *Lines) Count() int { return len(l.r) }

func (l *Lines) Status() []bool { return append([]bool(nil), l.status...) }

func (l *Lines) Deactivate(id int) error {
	if err := checkID(id, l.Count(), "line"); err != nil {
		return err
	}
	l.status[id] = false
	return nil
}

func (l *Lines) Reactivate(id int) error {
	if err := checkID(id, l.Count(), "line"); err != nil {
		return err
	}
	l.status[id] = true
	return nil
}

func (l *Lines) ChangeBusFrom(id, newBus, numBuses int) error {
	if err := checkID(id, l.Count(), "line"); err != nil {
		return err
	}
	if err := checkBus(newBus, numBuses, "line"); err != nil {
		return err
	}
	l.busFrom[id] = newBus
	return nil
}

func (l *Lines) ChangeBusTo(id, newBus, numBuses int) error {
	if err := checkID(id, l.Count(), "line"); err != nil {
		return err
	}
	if err := checkBus(newBus, numBuses, "line"); err != nil {
		return err
	}
	l.busTo[id] = newBus
	return nil
}

func (l *Lines) BusFrom(id int) int { return l.busFrom[id] }
func (l *Lines) BusTo(id int) int   { return l.busTo[id] }

// branch admittances of the pi model, linearized to 1/x when ac is false
func (l *Lines) branchAdmittance(id int, ac bool) (yff, yft, ytf, ytt complex128) {
	if !ac {
		b := complex(1.0/l.x[id], 0)
		return b, -b, -b, b
	}
	ys := 1.0 / complex(l.r[id], l.x[id])
	yff = ys + l.h[id]/2
	return yff, -ys, -ys, yff
}

func (l *Lines) FillAdmittance(y matrix.TripletSink, ac bool, m *network.IndexMap) error {
	for i := range l.r {
		if !l.status[i] {
			continue
		}
		f, err := solverBus(m, l.busFrom[i])
		if err != nil {
			return err
		}
		t, err := solverBus(m, l.busTo[i])
		if err != nil {
			return err
		}
		yff, yft, ytf, ytt := l.branchAdmittance(i, ac)
		y.AddComplex(f, f, yff)
		y.AddComplex(f, t, yft)
		y.AddComplex(t, f, ytf)
		y.AddComplex(t, t, ytt)
	}
	return nil
}

func (l *Lines) FillInjection(matrix.InjectionSink, bool, *network.IndexMap) error { return nil }

func (l *Lines) FillClassification(*network.Classification, *network.IndexMap) error { return nil }

func (l *Lines) ComputeResults(va, vm []float64, v []complex128, m *network.IndexMap, busVnKV []float64) error {
	for i := range l.r {
		if !l.status[i] {
			l.resPFrom[i], l.resQFrom[i], l.resVFrom[i], l.resAFrom[i] = 0, 0, 0, 0
			l.resPTo[i], l.resQTo[i], l.resVTo[i], l.resATo[i] = 0, 0, 0, 0
			continue
		}
		f, err := solverBus(m, l.busFrom[i])
		if err != nil {
			return err
		}
		t, err := solverBus(m, l.busTo[i])
		if err != nil {
			return err
		}
		yff, yft, ytf, ytt := l.branchAdmittance(i, true)

		sFrom := v[f] * cmplx.Conj(yff*v[f]+yft*v[t])
		sTo := v[t] * cmplx.Conj(ytf*v[f]+ytt*v[t])
		l.resPFrom[i], l.resQFrom[i] = real(sFrom), imag(sFrom)
		l.resPTo[i], l.resQTo[i] = real(sTo), imag(sTo)
		l.resVFrom[i] = vm[f] * busVnKV[l.busFrom[i]]
		l.resVTo[i] = vm[t] * busVnKV[l.busTo[i]]
		l.resAFrom[i] = currentMagnitude(sFrom, l.resVFrom[i])
		l.resATo[i] = currentMagnitude(sTo, l.resVTo[i])
	}
	return nil
}

func currentMagnitude(s complex128, vkv float64) float64 {
	if vkv == 0 {
		return 0
	}
	return cmplx.Abs(s) / (sqrt3 * vkv)
}

func (l *Lines) ResetResults() {
	n := len(l.r)
	if l.resPFrom == nil {
		l.resPFrom, l.resQFrom, l.resVFrom, l.resAFrom = nanSlice(n), nanSlice(n), nanSlice(n), nanSlice(n)
		l.resPTo, l.resQTo, l.resVTo, l.resATo = nanSlice(n), nanSlice(n), nanSlice(n), nanSlice(n)
		return
	}
	resetSlice(l.resPFrom)
	resetSlice(l.resQFrom)
	resetSlice(l.resVFrom)
	resetSlice(l.resAFrom)
	resetSlice(l.resPTo)
	resetSlice(l.resQTo)
	resetSlice(l.resVTo)
	resetSlice(l.resATo)
}

func (l *Lines) SlackContribution(slackModelID int) float64 {
	p := 0.0
	for i := range l.r {
		if !l.status[i] {
			continue
		}
		if l.busFrom[i] == slackModelID && !math.IsNaN(l.resPFrom[i]) {
			p += l.resPFrom[i]
		}
		if l.busTo[i] == slackModelID && !math.IsNaN(l.resPTo[i]) {
			p += l.resPTo[i]
		}
	}
	return p
}

func (l *Lines) ReactiveContribution(qByBus []float64) {
	for i := range l.r {
		if !l.status[i] || math.IsNaN(l.resQFrom[i]) {
			continue
		}
		qByBus[l.busFrom[i]] += l.resQFrom[i]
		qByBus[l.busTo[i]] += l.resQTo[i]
	}
}

// FromResults returns the converged per-line P (pu), Q (pu), V (kV) and
// current (kA) at the from side.
func (l *Lines) FromResults() (p, q, v, a []float64) {
	return copyOf(l.resPFrom), copyOf(l.resQFrom), copyOf(l.resVFrom), copyOf(l.resAFrom)
}

// ToResults is FromResults for the to side.
func (l *Lines) ToResults() (p, q, v, a []float64) {
	return copyOf(l.resPTo), copyOf(l.resQTo), copyOf(l.resVTo), copyOf(l.resATo)
}

func (l *Lines) State() LinesState {
	return LinesState{
		R:       append([]float64(nil), l.r...),
		X:       append([]float64(nil), l.x...),
		H:       append([]complex128(nil), l.h...),
		BusFrom: append([]int(nil), l.busFrom...),
		BusTo:   append([]int(nil), l.busTo...),
		Status:  append([]bool(nil), l.status...),
	}
}

func RestoreLines(s LinesState) (*Lines, error) {
	l, err := NewLines(s.R, s.X, s.H, s.BusFrom, s.BusTo)
	if err != nil {
		return nil, err
	}
	copy(l.status, s.Status)
	return l, nil
}

func (l *Lines) Clone() *Lines {
	c, _ := RestoreLines(l.State())
	return c
}

func copyOf(v []float64) []float64 {
	return append([]float64(nil), v...)
}
