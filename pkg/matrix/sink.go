package matrix

// TripletSink receives admittance contributions in solver space.
// Contributions at matching coordinates are summed.
type TripletSink interface {
	AddComplex(i, j int, v complex128)
}

// InjectionSink receives injected-power contributions in solver space.
type InjectionSink interface {
	Add(i int, v complex128)
}
