package consts

const (
	InitVmPu     = 1.04    // default voltage magnitude initializer (pu)
	BaseMVA      = 1.0     // default base power (MVA)
	StateVersion = "0.5.5" // snapshot format version
)
