package network

import "errors"

// Error taxonomy of the engine. Callers discriminate with errors.Is.
var (
	// ErrConfiguration reports an invalid grid description: a bad element
	// id, an out-of-range bus, or a disconnected slack bus.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidArgument reports a size or shape mismatch on caller input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDivergence reports that the solver exhausted its iteration budget
	// without converging. Recoverable: the caller may retry with another
	// initial guess or a larger budget.
	ErrDivergence = errors.New("powerflow diverged")

	// ErrSingularMatrix reports a factorization failure, of the Newton
	// Jacobian or of the reduced DC system. It usually means the network is
	// not a single connected component. Treated like a divergence, never as
	// fatal.
	ErrSingularMatrix = errors.New("singular matrix")

	// ErrInternalInconsistency reports a broken invariant. It signals a
	// defect in the engine, not a caller mistake.
	ErrInternalInconsistency = errors.New("internal inconsistency")
)
