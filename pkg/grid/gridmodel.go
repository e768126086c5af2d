package grid

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"powergrid/internal/consts"
	"powergrid/pkg/element"
	"powergrid/pkg/matrix"
	"powergrid/pkg/network"
	"powergrid/pkg/solver"
)

// Status is the dirty-state machine of a model instance. Every mutating
// method transitions it and every solve reads and resets it.
type Status int

const (
	// StatusDirty: the bus index map and everything derived from it must
	// be rebuilt before the next solve.
	StatusDirty Status = iota
	// StatusClean: topology structures are valid but setpoints changed
	// since the last solve; results are stale.
	StatusClean
	// StatusSolved: the last solve converged.
	StatusSolved
	// StatusDiverged: the last solve failed; results are reset and the
	// next solve rebuilds from scratch.
	StatusDiverged
)

func (s Status) String() string {
	switch s {
	case StatusDirty:
		return "dirty"
	case StatusClean:
		return "clean"
	case StatusSolved:
		return "solved"
	case StatusDiverged:
		return "diverged"
	}
	return "unknown"
}

// GridModel owns the network description, assembles the solver-space
// representation and drives the active solver strategy. A GridModel is
// not safe for concurrent use; independent instances (see Copy) may run
// in parallel.
type GridModel struct {
	log            *zap.Logger
	status         Status
	computeResults bool
	initVmPu       float64
	baseMVA        float64

	busVnKV   []float64
	busStatus []bool

	lines      *element.Lines
	shunts     *element.Shunts
	trafos     *element.Transformers
	loads      *element.Loads
	generators *element.Generators
	sgens      *element.StaticGens
	storages   *element.Loads

	genSlack       int // slack generator id
	slackBus       int // model space
	slackBusSolver int

	indexMap *network.IndexMap
	ybus     *matrix.Admittance
	sbus     *matrix.Injection
	cls      *network.Classification

	strategy solver.Strategy
}

// mustEmpty guards the zero-element constructors in New: building a
// collection from all-nil vectors must never fail.
func mustEmpty[T any](c T, err error) T {
	if err != nil {
		panic(err)
	}
	return c
}

func New() *GridModel {
	return &GridModel{
		log:            zap.NewNop(),
		status:         StatusDirty,
		computeResults: true,
		initVmPu:       consts.InitVmPu,
		baseMVA:        consts.BaseMVA,
		lines:          mustEmpty(element.NewLines(nil, nil, nil, nil, nil)),
		shunts:         mustEmpty(element.NewShunts(nil, nil, nil)),
		trafos:         mustEmpty(element.NewTransformers(nil, nil, nil, nil, nil, nil, nil, nil, nil)),
		loads:          mustEmpty(element.NewLoads(nil, nil, nil)),
		generators:     mustEmpty(element.NewGenerators(nil, nil, nil, nil, nil)),
		sgens:          mustEmpty(element.NewStaticGens(nil, nil, nil, nil, nil, nil, nil)),
		storages:       mustEmpty(element.NewLoads(nil, nil, nil)),
		genSlack:       -1,
		strategy:       solver.New(solver.KindNewtonRaphson),
	}
}

// SetLogger installs a structured logger for solve diagnostics. The
// default is a no-op logger.
func (g *GridModel) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	g.log = log
}

func (g *GridModel) SetInitVmPu(v float64) { g.initVmPu = v }
func (g *GridModel) InitVmPu() float64     { return g.initVmPu }
func (g *GridModel) SetBaseMVA(v float64)  { g.baseMVA = v }
func (g *GridModel) BaseMVA() float64      { return g.baseMVA }

// SetComputeResults toggles per-element result computation after a
// converged solve.
func (g *GridModel) SetComputeResults(enabled bool) { g.computeResults = enabled }

func (g *GridModel) Status() Status { return g.status }

// ChangeSolver replaces the active strategy for the given kind.
func (g *GridModel) ChangeSolver(kind solver.Kind) {
	g.strategy = solver.New(kind)
	g.markDirty()
}

func (g *GridModel) SolverKind() solver.Kind { return g.strategy.Kind() }

// collections returns the fixed ordered list the assembler dispatches
// over. The order does not change the assembled system or the
// classification; it does fix the result computation order.
func (g *GridModel) collections() []element.Collection {
	return []element.Collection{g.lines, g.shunts, g.trafos, g.loads, g.generators, g.sgens, g.storages}
}

func (g *GridModel) markDirty() { g.status = StatusDirty }

// markStale records a setpoint change: the index map stays valid but any
// solved results no longer match the inputs.
func (g *GridModel) markStale() {
	if g.status == StatusSolved {
		g.status = StatusClean
	}
}

func (g *GridModel) needRebuild() bool {
	return g.status == StatusDirty || g.status == StatusDiverged || g.indexMap == nil
}

// ACPowerFlow runs the active strategy on the full nonlinear system and
// returns the converged complex voltage per model bus. The guess must
// have one entry per model bus, connected or not; entries of deactivated
// buses are ignored.
func (g *GridModel) ACPowerFlow(vInit []complex128, maxIter int, tol float64) ([]complex128, error) {
	return g.run(vInit, maxIter, tol, true)
}

// DCPowerFlow runs the linearized approximation. The active strategy is
// swapped for the DC strategy for the duration of the call and restored
// on every exit path.
func (g *GridModel) DCPowerFlow(vInit []complex128, maxIter int, tol float64) ([]complex128, error) {
	prev := g.strategy
	g.strategy = solver.New(solver.KindDC)
	defer func() { g.strategy = prev }()
	return g.run(vInit, maxIter, tol, false)
}

func (g *GridModel) run(vInit []complex128, maxIter int, tol float64, ac bool) ([]complex128, error) {
	if len(vInit) != len(g.busVnKV) {
		return nil, fmt.Errorf("%w: initial guess has %d entries, the grid has %d buses (connected and disconnected)",
			network.ErrInvalidArgument, len(vInit), len(g.busVnKV))
	}

	v, err := g.prepare(vInit, ac)
	if err != nil {
		return nil, err
	}
	g.log.Debug("powerflow started",
		zap.Stringer("solver", g.strategy.Kind()),
		zap.Int("solverBuses", g.indexMap.NumSolverBuses()),
		zap.Bool("ac", ac))

	conv, solveErr := g.strategy.Solve(g.ybus, v, g.sbus, g.cls, maxIter, tol)
	if solveErr != nil && !errors.Is(solveErr, network.ErrSingularMatrix) {
		return nil, solveErr
	}
	if !conv {
		g.resetAllResults()
		g.status = StatusDiverged
		g.log.Warn("powerflow diverged", zap.Int("maxIterations", maxIter), zap.Error(solveErr))
		if solveErr != nil {
			// a singular reduced system means a split network; callers treat
			// it like any divergence
			return nil, fmt.Errorf("%w: %w", network.ErrDivergence, solveErr)
		}
		return nil, fmt.Errorf("%w: no convergence within %d iterations", network.ErrDivergence, maxIter)
	}

	res, err := g.projectResults(vInit)
	if err != nil {
		return nil, err
	}
	g.status = StatusSolved
	g.log.Debug("powerflow converged", zap.Duration("elapsed", g.strategy.ElapsedTime()))
	return res, nil
}

// ensureTopology resolves the slack bus and rebuilds the index map and
// the classification when the model is dirty.
func (g *GridModel) ensureTopology() error {
	slackBus, err := g.generators.SlackBus(g.genSlack)
	if err != nil {
		return err
	}
	g.slackBus = slackBus

	if !g.needRebuild() {
		return nil
	}
	m, slackSolver, err := network.BuildIndexMap(g.busStatus, slackBus)
	if err != nil {
		return err
	}
	g.indexMap = m
	g.slackBusSolver = slackSolver
	g.strategy.Reset()

	cls := network.NewClassification(m.NumSolverBuses(), slackSolver)
	for _, c := range g.collections() {
		if err := c.FillClassification(cls, m); err != nil {
			return err
		}
	}
	cls.Finalize()
	g.cls = cls
	return nil
}

// assemble rebuilds the admittance matrix and the injection vector from
// the element contributions and balances the injection on the slack bus.
func (g *GridModel) assemble(ac bool) (*matrix.Admittance, *matrix.Injection, error) {
	nbSolver := g.indexMap.NumSolverBuses()
	y := matrix.NewAdmittance(nbSolver)
	s := matrix.NewInjection(nbSolver)
	for _, c := range g.collections() {
		if err := c.FillAdmittance(y, ac, g.indexMap); err != nil {
			return nil, nil, err
		}
	}
	for _, c := range g.collections() {
		if err := c.FillInjection(s, ac, g.indexMap); err != nil {
			return nil, nil, err
		}
	}
	// the slack generator absorbs the active-power imbalance
	s.Add(g.slackBusSolver, complex(-real(s.Sum()), 0))
	return y, s, nil
}

// prepare runs the resync: topology when needed, admittance and
// injections always (setpoints may have changed without any topology
// mutation), and the initial solver-space voltage vector.
func (g *GridModel) prepare(vInit []complex128, ac bool) ([]complex128, error) {
	if err := g.ensureTopology(); err != nil {
		return nil, err
	}
	y, s, err := g.assemble(ac)
	if err != nil {
		return nil, err
	}
	g.ybus, g.sbus = y, s

	v := make([]complex128, g.indexMap.NumSolverBuses())
	for sid, mid := range g.indexMap.SolverToModel {
		v[sid] = vInit[mid]
		if v[sid] == 0 {
			v[sid] = complex(g.initVmPu, 0)
		}
	}
	if err := g.generators.SetVm(v, g.indexMap); err != nil {
		return nil, err
	}
	return v, nil
}

// projectResults maps the converged solver-space voltages back onto the
// model numbering and triggers per-element result computation.
func (g *GridModel) projectResults(vInit []complex128) ([]complex128, error) {
	if g.computeResults {
		if err := g.computeAllResults(); err != nil {
			return nil, err
		}
	}
	vSol := g.strategy.Voltage()
	res := make([]complex128, len(vInit))
	for mid, active := range g.busStatus {
		if !active {
			continue
		}
		sid := g.indexMap.ModelToSolver[mid]
		if sid == network.DisconnectedBus || sid >= len(vSol) {
			return nil, fmt.Errorf("%w: bus %d is connected in the model and missing from the solver result",
				network.ErrInternalInconsistency, mid)
		}
		res[mid] = vSol[sid]
	}
	return res, nil
}

func (g *GridModel) computeAllResults() error {
	va, vm, v := g.strategy.Angle(), g.strategy.Magnitude(), g.strategy.Voltage()
	for _, c := range g.collections() {
		if err := c.ComputeResults(va, vm, v, g.indexMap, g.busVnKV); err != nil {
			return err
		}
	}

	pSlack := 0.0
	for _, c := range g.collections() {
		pSlack += c.SlackContribution(g.slackBus)
	}
	if err := g.generators.SetSlackP(g.genSlack, pSlack); err != nil {
		return err
	}

	qByBus := make([]float64, len(g.busVnKV))
	for _, c := range g.collections() {
		c.ReactiveContribution(qByBus)
	}
	g.generators.SetQ(qByBus)
	return nil
}

func (g *GridModel) resetAllResults() {
	for _, c := range g.collections() {
		c.ResetResults()
	}
}

// CheckSolution returns the per-model-bus power mismatch of a candidate
// voltage vector against the current grid description. Entries of
// deactivated buses are zero.
func (g *GridModel) CheckSolution(v []complex128) ([]complex128, error) {
	if len(v) != len(g.busVnKV) {
		return nil, fmt.Errorf("%w: candidate voltage has %d entries, the grid has %d buses",
			network.ErrInvalidArgument, len(v), len(g.busVnKV))
	}
	if err := g.ensureTopology(); err != nil {
		return nil, err
	}
	y, s, err := g.assemble(true)
	if err != nil {
		return nil, err
	}

	vSol := make([]complex128, g.indexMap.NumSolverBuses())
	for sid, mid := range g.indexMap.SolverToModel {
		vSol[sid] = v[mid]
	}
	iBus := y.MulVec(vSol)
	res := make([]complex128, len(v))
	for sid, mid := range g.indexMap.SolverToModel {
		res[mid] = vSol[sid]*conj(iBus[sid]) - s.At(sid)
	}
	return res, nil
}

func conj(v complex128) complex128 { return complex(real(v), -imag(v)) }

// NumBuses returns the total bus count, connected and disconnected.
func (g *GridModel) NumBuses() int { return len(g.busVnKV) }

// NumConnectedBuses returns the number of active buses.
func (g *GridModel) NumConnectedBuses() int {
	n := 0
	for _, active := range g.busStatus {
		if active {
			n++
		}
	}
	return n
}

// Ybus returns the admittance matrix of the last resync, nil before the
// first solve.
func (g *GridModel) Ybus() *matrix.Admittance { return g.ybus }

// Sbus returns the injection vector of the last resync.
func (g *GridModel) Sbus() []complex128 {
	if g.sbus == nil {
		return nil
	}
	return g.sbus.Values()
}

func (g *GridModel) PV() []int {
	if g.cls == nil {
		return nil
	}
	return append([]int(nil), g.cls.PV...)
}

func (g *GridModel) PQ() []int {
	if g.cls == nil {
		return nil
	}
	return append([]int(nil), g.cls.PQ...)
}

func (g *GridModel) Angles() []float64        { return g.strategy.Angle() }
func (g *GridModel) Magnitudes() []float64    { return g.strategy.Magnitude() }
func (g *GridModel) Jacobian() *mat.Dense     { return g.strategy.Jacobian() }
func (g *GridModel) ComputationTime() float64 { return g.strategy.ElapsedTime().Seconds() }

func (g *GridModel) SlackGen() int { return g.genSlack }

// Element collection views.
func (g *GridModel) Lines() *element.Lines               { return g.lines }
func (g *GridModel) Shunts() *element.Shunts             { return g.shunts }
func (g *GridModel) Transformers() *element.Transformers { return g.trafos }
func (g *GridModel) Loads() *element.Loads               { return g.loads }
func (g *GridModel) Generators() *element.Generators     { return g.generators }
func (g *GridModel) StaticGens() *element.StaticGens     { return g.sgens }
func (g *GridModel) Storages() *element.Loads            { return g.storages }
