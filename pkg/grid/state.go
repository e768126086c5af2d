package grid

import (
	"fmt"

	"powergrid/internal/consts"
	"powergrid/pkg/element"
	"powergrid/pkg/network"
	"powergrid/pkg/solver"
)

// Snapshot is the full serializable description of a grid: everything
// needed to rebuild an equivalent model, nothing derived. Storage units
// reuse the load representation.
type Snapshot struct {
	Version   string
	InitVmPu  float64
	BaseMVA   float64
	BusVnKV   []float64
	BusStatus []bool

	Lines        element.LinesState
	Shunts       element.ShuntsState
	Transformers element.TransformersState
	Generators   element.GeneratorsState
	Loads        element.LoadsState
	StaticGens   element.StaticGensState
	Storages     element.LoadsState

	SlackGen int
}

// GetState captures the current grid description. The snapshot shares
// no memory with the model.
func (g *GridModel) GetState() Snapshot {
	return Snapshot{
		Version:      consts.StateVersion,
		InitVmPu:     g.initVmPu,
		BaseMVA:      g.baseMVA,
		BusVnKV:      append([]float64(nil), g.busVnKV...),
		BusStatus:    append([]bool(nil), g.busStatus...),
		Lines:        g.lines.State(),
		Shunts:       g.shunts.State(),
		Transformers: g.trafos.State(),
		Generators:   g.generators.State(),
		Loads:        g.loads.State(),
		StaticGens:   g.sgens.State(),
		Storages:     g.storages.State(),
		SlackGen:     g.genSlack,
	}
}

// SetState replaces the whole grid description with a snapshot. All
// derived data is discarded and the model comes back dirty.
func (g *GridModel) SetState(s Snapshot) error {
	if len(s.BusVnKV) != len(s.BusStatus) {
		return fmt.Errorf("%w: snapshot has %d bus voltages for %d bus statuses",
			network.ErrInvalidArgument, len(s.BusVnKV), len(s.BusStatus))
	}
	lines, err := element.RestoreLines(s.Lines)
	if err != nil {
		return err
	}
	shunts, err := element.RestoreShunts(s.Shunts)
	if err != nil {
		return err
	}
	trafos, err := element.RestoreTransformers(s.Transformers)
	if err != nil {
		return err
	}
	gens, err := element.RestoreGenerators(s.Generators)
	if err != nil {
		return err
	}
	loads, err := element.RestoreLoads(s.Loads)
	if err != nil {
		return err
	}
	sgens, err := element.RestoreStaticGens(s.StaticGens)
	if err != nil {
		return err
	}
	storages, err := element.RestoreLoads(s.Storages)
	if err != nil {
		return err
	}

	g.initVmPu = s.InitVmPu
	g.baseMVA = s.BaseMVA
	g.busVnKV = append([]float64(nil), s.BusVnKV...)
	g.busStatus = append([]bool(nil), s.BusStatus...)
	g.lines = lines
	g.shunts = shunts
	g.trafos = trafos
	g.generators = gens
	g.loads = loads
	g.sgens = sgens
	g.storages = storages
	g.genSlack = s.SlackGen

	g.indexMap = nil
	g.ybus = nil
	g.sbus = nil
	g.cls = nil
	g.strategy.Reset()
	g.status = StatusDirty
	return nil
}

// Copy returns an independent deep copy of the grid description. The
// copy starts dirty with fresh solver buffers; solved results are not
// carried over.
func (g *GridModel) Copy() *GridModel {
	c := New()
	c.log = g.log
	c.computeResults = g.computeResults
	c.initVmPu = g.initVmPu
	c.baseMVA = g.baseMVA
	c.busVnKV = append([]float64(nil), g.busVnKV...)
	c.busStatus = append([]bool(nil), g.busStatus...)
	c.lines = g.lines.Clone()
	c.shunts = g.shunts.Clone()
	c.trafos = g.trafos.Clone()
	c.loads = g.loads.Clone()
	c.generators = g.generators.Clone()
	c.sgens = g.sgens.Clone()
	c.storages = g.storages.Clone()
	c.genSlack = g.genSlack
	c.strategy = solver.New(g.strategy.Kind())
	c.status = StatusDirty
	return c
}
