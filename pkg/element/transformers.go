package element

import (
	"fmt"
	"math"
	"math/cmplx"

	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
)

// Transformers holds the two-winding transformers. They follow the same
// pi model as lines with an off-nominal tap ratio and a phase shift; the
// ratio is computed once from the tap position and step.
type Transformers struct {
	r, x   []float64
	h      []complex128
	ratio  []float64 // off-nominal ratio computed from the tap
	shift  []float64 // phase shift, radians
	tapHV  []bool    // tap on the high-voltage side
	busHV  []int
	busLV  []int
	status []bool

	resPHV, resQHV, resVHV, resAHV []float64
	resPLV, resQLV, resVLV, resALV []float64
}

// TransformersState is the round-trippable snapshot of a Transformers
// collection.
type TransformersState struct {
	R, X   []float64
	H      []complex128
	Ratio  []float64
	Shift  []float64
	TapHV  []bool
	BusHV  []int
	BusLV  []int
	Status []bool
}

func NewTransformers(r, x []float64, h []complex128, tapStepPct, tapPos, shiftDeg []float64,
	tapHV []bool, busHV, busLV []int) (*Transformers, error) {
	n := len(r)
	if len(x) != n || len(h) != n || len(tapStepPct) != n || len(tapPos) != n ||
		len(shiftDeg) != n || len(tapHV) != n || len(busHV) != n || len(busLV) != n {
		return nil, fmt.Errorf("%w: transformer parameter vectors have mismatched sizes", network.ErrInvalidArgument)
	}
	t := &Transformers{
		r:      append([]float64(nil), r...),
		x:      append([]float64(nil), x...),
		h:      append([]complex128(nil), h...),
		ratio:  make([]float64, n),
		shift:  make([]float64, n),
		tapHV:  append([]bool(nil), tapHV...),
		busHV:  append([]int(nil), busHV...),
		busLV:  append([]int(nil), busLV...),
		status: make([]bool, n),
	}
	for i := 0; i < n; i++ {
		t.ratio[i] = 1.0 + tapPos[i]*tapStepPct[i]/100.0
		t.shift[i] = shiftDeg[i] * math.Pi / 180.0
		t.status[i] = true
	}
	t.ResetResults()
	return t, nil
}

func (t *Transformers) Count() int { return len(t.r) }

func (t *Transformers) Status() []bool { return append([]bool(nil), t.status...) }

func (t *Transformers) Deactivate(id int) error {
	if err := checkID(id, t.Count(), "transformer"); err != nil {
		return err
	}
	t.status[id] = false
	return nil
}

func (t *Transformers) Reactivate(id int) error {
	if err := checkID(id, t.Count(), "transformer"); err != nil {
		return err
	}
	t.status[id] = true
	return nil
}

func (t *Transformers) ChangeBusHV(id, newBus, numBuses int) error {
	if err := checkID(id, t.Count(), "transformer"); err != nil {
		return err
	}
	if err := checkBus(newBus, numBuses, "transformer"); err != nil {
		return err
	}
	t.busHV[id] = newBus
	return nil
}

func (t *Transformers) ChangeBusLV(id, newBus, numBuses int) error {
	if err := checkID(id, t.Count(), "transformer"); err != nil {
		return err
	}
	if err := checkBus(newBus, numBuses, "transformer"); err != nil {
		return err
	}
	t.busLV[id] = newBus
	return nil
}

func (t *Transformers) BusHV(id int) int { return t.busHV[id] }
func (t *Transformers) BusLV(id int) int { return t.busLV[id] }

func (t *Transformers) branchAdmittance(id int, ac bool) (yff, yft, ytf, ytt complex128) {
	k := t.ratio[id]
	if !t.tapHV[id] {
		k = 1.0 / k
	}
	if !ac {
		b := complex(1.0/(t.x[id]*k), 0)
		return b, -b, -b, b
	}
	ys := 1.0 / complex(t.r[id], t.x[id])
	kc := complex(k, 0)
	rot := cmplx.Exp(complex(0, t.shift[id]))
	yff = (ys + t.h[id]/2) / (kc * kc)
	yft = -ys / (kc * cmplx.Conj(rot))
	ytf = -ys / (kc * rot)
	ytt = ys + t.h[id]/2
	return yff, yft, ytf, ytt
}

func (t *Transformers) FillAdmittance(y matrix.TripletSink, ac bool, m *network.IndexMap) error {
	for i := range t.r {
		if !t.status[i] {
			continue
		}
		f, err := solverBus(m, t.busHV[i])
		if err != nil {
			return err
		}
		l, err := solverBus(m, t.busLV[i])
		if err != nil {
			return err
		}
		yff, yft, ytf, ytt := t.branchAdmittance(i, ac)
		y.AddComplex(f, f, yff)
		y.AddComplex(f, l, yft)
		y.AddComplex(l, f, ytf)
		y.AddComplex(l, l, ytt)
	}
	return nil
}

func (t *Transformers) FillInjection(matrix.InjectionSink, bool, *network.IndexMap) error { return nil }

func (t *Transformers) FillClassification(*network.Classification, *network.IndexMap) error {
	return nil
}

func (t *Transformers) ComputeResults(va, vm []float64, v []complex128, m *network.IndexMap, busVnKV []float64) error {
	for i := range t.r {
		if !t.status[i] {
			t.resPHV[i], t.resQHV[i], t.resVHV[i], t.resAHV[i] = 0, 0, 0, 0
			t.resPLV[i], t.resQLV[i], t.resVLV[i], t.resALV[i] = 0, 0, 0, 0
			continue
		}
		f, err := solverBus(m, t.busHV[i])
		if err != nil {
			return err
		}
		l, err := solverBus(m, t.busLV[i])
		if err != nil {
			return err
		}
		yff, yft, ytf, ytt := t.branchAdmittance(i, true)

		sHV := v[f] * cmplx.Conj(yff*v[f]+yft*v[l])
		sLV := v[l] * cmplx.Conj(ytf*v[f]+ytt*v[l])
		t.resPHV[i], t.resQHV[i] = real(sHV), imag(sHV)
		t.resPLV[i], t.resQLV[i] = real(sLV), imag(sLV)
		t.resVHV[i] = vm[f] * busVnKV[t.busHV[i]]
		t.resVLV[i] = vm[l] * busVnKV[t.busLV[i]]
		t.resAHV[i] = currentMagnitude(sHV, t.resVHV[i])
		t.resALV[i] = currentMagnitude(sLV, t.resVLV[i])
	}
	return nil
}

func (t *Transformers) ResetResults() {
	n := len(t.r)
	if t.resPHV == nil {
		t.resPHV, t.resQHV, t.resVHV, t.resAHV = nanSlice(n), nanSlice(n), nanSlice(n), nanSlice(n)
		t.resPLV, t.resQLV, t.resVLV, t.resALV = nanSlice(n), nanSlice(n), nanSlice(n), nanSlice(n)
		return
	}
	resetSlice(t.resPHV)
	resetSlice(t.resQHV)
	resetSlice(t.resVHV)
	resetSlice(t.resAHV)
	resetSlice(t.resPLV)
	resetSlice(t.resQLV)
	resetSlice(t.resVLV)
	resetSlice(t.resALV)
}

func (t *Transformers) SlackContribution(slackModelID int) float64 {
	p := 0.0
	for i := range t.r {
		if !t.status[i] {
			continue
		}
		if t.busHV[i] == slackModelID && !math.IsNaN(t.resPHV[i]) {
			p += t.resPHV[i]
		}
		if t.busLV[i] == slackModelID && !math.IsNaN(t.resPLV[i]) {
			p += t.resPLV[i]
		}
	}
	return p
}

func (t *Transformers) ReactiveContribution(qByBus []float64) {
	for i := range t.r {
		if !t.status[i] || math.IsNaN(t.resQHV[i]) {
			continue
		}
		qByBus[t.busHV[i]] += t.resQHV[i]
		qByBus[t.busLV[i]] += t.resQLV[i]
	}
}

// HVResults returns the converged per-transformer P (pu), Q (pu), V (kV)
// and current (kA) at the high-voltage side.
func (t *Transformers) HVResults() (p, q, v, a []float64) {
	return copyOf(t.resPHV), copyOf(t.resQHV), copyOf(t.resVHV), copyOf(t.resAHV)
}

// LVResults is HVResults for the low-voltage side.
func (t *Transformers) LVResults() (p, q, v, a []float64) {
	return copyOf(t.resPLV), copyOf(t.resQLV), copyOf(t.resVLV), copyOf(t.resALV)
}

func (t *Transformers) State() TransformersState {
	return TransformersState{
		R:      append([]float64(nil), t.r...),
		X:      append([]float64(nil), t.x...),
		H:      append([]complex128(nil), t.h...),
		Ratio:  append([]float64(nil), t.ratio...),
		Shift:  append([]float64(nil), t.shift...),
		TapHV:  append([]bool(nil), t.tapHV...),
		BusHV:  append([]int(nil), t.busHV...),
		BusLV:  append([]int(nil), t.busLV...),
		Status: append([]bool(nil), t.status...),
	}
}

func RestoreTransformers(s TransformersState) (*Transformers, error) {
	n := len(s.R)
	if len(s.X) != n || len(s.H) != n || len(s.Ratio) != n || len(s.Shift) != n ||
		len(s.TapHV) != n || len(s.BusHV) != n || len(s.BusLV) != n || len(s.Status) != n {
		return nil, fmt.Errorf("%w: transformer state vectors have mismatched sizes", network.ErrInvalidArgument)
	}
	t := &Transformers{
		r:      append([]float64(nil), s.R...),
		x:      append([]float64(nil), s.X...),
		h:      append([]complex128(nil), s.H...),
		ratio:  append([]float64(nil), s.Ratio...),
		shift:  append([]float64(nil), s.Shift...),
		tapHV:  append([]bool(nil), s.TapHV...),
		busHV:  append([]int(nil), s.BusHV...),
		busLV:  append([]int(nil), s.BusLV...),
		status: append([]bool(nil), s.Status...),
	}
	t.ResetResults()
	return t, nil
}

func (t *Transformers) Clone() *Transformers {
	c, _ := RestoreTransformers(t.State())
	return c
}
