package matrix

import "sort"

type coord struct{ row, col int }

// Triplet is one nonzero entry of the admittance matrix.
type Triplet struct {
	Row, Col int
	Val      complex128
}

// Admittance is the sparse complex bus admittance matrix in solver
// space. Element collections stream their contributions into it through
// the TripletSink interface; entries at the same coordinate accumulate.
type Admittance struct {
	size    int
	entries map[coord]complex128
}

func NewAdmittance(size int) *Admittance {
	return &Admittance{
		size:    size,
		entries: make(map[coord]complex128, 4*size),
	}
}

func (y *Admittance) Size() int { return y.size }

func (y *Admittance) NNZ() int { return len(y.entries) }

func (y *Admittance) AddComplex(i, j int, v complex128) {
	y.entries[coord{i, j}] += v
}

// At returns the accumulated entry at (i, j), zero when absent.
func (y *Admittance) At(i, j int) complex128 {
	return y.entries[coord{i, j}]
}

// Triplets returns the nonzero entries in row-major order. The order is
// deterministic so two identical assemblies compare equal entry by entry.
func (y *Admittance) Triplets() []Triplet {
	res := make([]Triplet, 0, len(y.entries))
	for c, v := range y.entries {
		res = append(res, Triplet{Row: c.row, Col: c.col, Val: v})
	}
	sort.Slice(res, func(a, b int) bool {
		if res[a].Row != res[b].Row {
			return res[a].Row < res[b].Row
		}
		return res[a].Col < res[b].Col
	})
	return res
}

// MulVec computes Y·v. It walks the entries in row-major order so that
// repeated products over the same matrix accumulate identically.
func (y *Admittance) MulVec(v []complex128) []complex128 {
	res := make([]complex128, y.size)
	for _, t := range y.Triplets() {
		res[t.Row] += t.Val * v[t.Col]
	}
	return res
}

func (y *Admittance) Clone() *Admittance {
	c := NewAdmittance(y.size)
	for k, v := range y.entries {
		c.entries[k] = v
	}
	return c
}

// Injection is the complex vector of net power injected at each solver
// bus.
type Injection struct {
	values []complex128
}

func NewInjection(size int) *Injection {
	return &Injection{values: make([]complex128, size)}
}

func (s *Injection) Size() int { return len(s.values) }

func (s *Injection) Add(i int, v complex128) {
	s.values[i] += v
}

func (s *Injection) At(i int) complex128 { return s.values[i] }

// Sum returns the aggregate injected power over all buses.
func (s *Injection) Sum() complex128 {
	var total complex128
	for _, v := range s.values {
		total += v
	}
	return total
}

// Values returns a copy of the vector.
func (s *Injection) Values() []complex128 {
	return append([]complex128(nil), s.values...)
}
