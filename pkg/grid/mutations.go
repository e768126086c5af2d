package grid

import (
	"fmt"

	"powergrid/pkg/element"
	"powergrid/pkg/network"
)

// InitBuses defines the bus frame of the grid: one nominal voltage (kV)
// per bus. All buses start connected. It resets any previously loaded
// elements.
func (g *GridModel) InitBuses(vnKV []float64) error {
	if len(vnKV) == 0 {
		return fmt.Errorf("%w: a grid needs at least one bus", network.ErrInvalidArgument)
	}
	g.busVnKV = append([]float64(nil), vnKV...)
	g.busStatus = make([]bool, len(vnKV))
	for i := range g.busStatus {
		g.busStatus[i] = true
	}
	g.markDirty()
	return nil
}

func (g *GridModel) checkBuses(bus ...[]int) error {
	for _, vec := range bus {
		for _, b := range vec {
			if b < 0 || b >= len(g.busVnKV) {
				return fmt.Errorf("%w: bus id %d out of range [0, %d)", network.ErrConfiguration, b, len(g.busVnKV))
			}
		}
	}
	return nil
}

// AddLines loads the powerline table. Parameters are per unit on the
// grid base power; h is the total charging admittance of the pi model.
func (g *GridModel) AddLines(r, x []float64, h []complex128, busFrom, busTo []int) error {
	if err := g.checkBuses(busFrom, busTo); err != nil {
		return err
	}
	lines, err := element.NewLines(r, x, h, busFrom, busTo)
	if err != nil {
		return err
	}
	g.lines = lines
	g.markDirty()
	return nil
}

func (g *GridModel) AddTransformers(r, x []float64, h []complex128, tapStepPct, tapPos, shiftDeg []float64,
	tapHV []bool, busHV, busLV []int) error {
	if err := g.checkBuses(busHV, busLV); err != nil {
		return err
	}
	trafos, err := element.NewTransformers(r, x, h, tapStepPct, tapPos, shiftDeg, tapHV, busHV, busLV)
	if err != nil {
		return err
	}
	g.trafos = trafos
	g.markDirty()
	return nil
}

func (g *GridModel) AddShunts(p, q []float64, bus []int) error {
	if err := g.checkBuses(bus); err != nil {
		return err
	}
	shunts, err := element.NewShunts(p, q, bus)
	if err != nil {
		return err
	}
	g.shunts = shunts
	g.markDirty()
	return nil
}

func (g *GridModel) AddGenerators(p, vm, qMin, qMax []float64, bus []int) error {
	if err := g.checkBuses(bus); err != nil {
		return err
	}
	gens, err := element.NewGenerators(p, vm, qMin, qMax, bus)
	if err != nil {
		return err
	}
	g.generators = gens
	g.markDirty()
	return nil
}

func (g *GridModel) AddLoads(p, q []float64, bus []int) error {
	if err := g.checkBuses(bus); err != nil {
		return err
	}
	loads, err := element.NewLoads(p, q, bus)
	if err != nil {
		return err
	}
	g.loads = loads
	g.markDirty()
	return nil
}

func (g *GridModel) AddStaticGens(p, q, pMin, pMax, qMin, qMax []float64, bus []int) error {
	if err := g.checkBuses(bus); err != nil {
		return err
	}
	sgens, err := element.NewStaticGens(p, q, pMin, pMax, qMin, qMax, bus)
	if err != nil {
		return err
	}
	g.sgens = sgens
	g.markDirty()
	return nil
}

// AddStorages loads the storage table. Storage units behave like loads:
// positive power is consumption (charging).
func (g *GridModel) AddStorages(p, q []float64, bus []int) error {
	if err := g.checkBuses(bus); err != nil {
		return err
	}
	storages, err := element.NewLoads(p, q, bus)
	if err != nil {
		return err
	}
	g.storages = storages
	g.markDirty()
	return nil
}

// SetSlackGen designates the generator whose bus is the slack bus.
func (g *GridModel) SetSlackGen(genID int) error {
	if genID < 0 || genID >= g.generators.Count() {
		return fmt.Errorf("%w: slack generator id %d out of range [0, %d)", network.ErrConfiguration, genID, g.generators.Count())
	}
	g.genSlack = genID
	g.markDirty()
	return nil
}

func (g *GridModel) checkBus(bus int) error {
	if bus < 0 || bus >= len(g.busVnKV) {
		return fmt.Errorf("%w: bus id %d out of range [0, %d)", network.ErrConfiguration, bus, len(g.busVnKV))
	}
	return nil
}

// DeactivateBus removes a bus from the solver space. Elements attached
// to it stay loaded and fail the next solve unless deactivated or moved.
func (g *GridModel) DeactivateBus(bus int) error {
	if err := g.checkBus(bus); err != nil {
		return err
	}
	g.busStatus[bus] = false
	g.markDirty()
	return nil
}

func (g *GridModel) ReactivateBus(bus int) error {
	if err := g.checkBus(bus); err != nil {
		return err
	}
	g.busStatus[bus] = true
	g.markDirty()
	return nil
}

// topo wraps a topology mutation: on success the model is dirty.
func (g *GridModel) topo(err error) error {
	if err != nil {
		return err
	}
	g.markDirty()
	return nil
}

// setpoint wraps a setpoint mutation: the index map stays valid.
func (g *GridModel) setpoint(err error) error {
	if err != nil {
		return err
	}
	g.markStale()
	return nil
}

func (g *GridModel) DeactivateLine(id int) error { return g.topo(g.lines.Deactivate(id)) }
func (g *GridModel) ReactivateLine(id int) error { return g.topo(g.lines.Reactivate(id)) }
func (g *GridModel) ChangeLineBusFrom(id, newBus int) error {
	return g.topo(g.lines.ChangeBusFrom(id, newBus, len(g.busVnKV)))
}
func (g *GridModel) ChangeLineBusTo(id, newBus int) error {
	return g.topo(g.lines.ChangeBusTo(id, newBus, len(g.busVnKV)))
}

func (g *GridModel) DeactivateTrafo(id int) error { return g.topo(g.trafos.Deactivate(id)) }
func (g *GridModel) ReactivateTrafo(id int) error { return g.topo(g.trafos.Reactivate(id)) }
func (g *GridModel) ChangeTrafoBusHV(id, newBus int) error {
	return g.topo(g.trafos.ChangeBusHV(id, newBus, len(g.busVnKV)))
}
func (g *GridModel) ChangeTrafoBusLV(id, newBus int) error {
	return g.topo(g.trafos.ChangeBusLV(id, newBus, len(g.busVnKV)))
}

func (g *GridModel) DeactivateShunt(id int) error { return g.topo(g.shunts.Deactivate(id)) }
func (g *GridModel) ReactivateShunt(id int) error { return g.topo(g.shunts.Reactivate(id)) }
func (g *GridModel) ChangeShuntBus(id, newBus int) error {
	return g.topo(g.shunts.ChangeBus(id, newBus, len(g.busVnKV)))
}
func (g *GridModel) ChangeShuntP(id int, newP float64) error {
	return g.setpoint(g.shunts.ChangeP(id, newP))
}
func (g *GridModel) ChangeShuntQ(id int, newQ float64) error {
	return g.setpoint(g.shunts.ChangeQ(id, newQ))
}

func (g *GridModel) DeactivateLoad(id int) error { return g.topo(g.loads.Deactivate(id)) }
func (g *GridModel) ReactivateLoad(id int) error { return g.topo(g.loads.Reactivate(id)) }
func (g *GridModel) ChangeLoadBus(id, newBus int) error {
	return g.topo(g.loads.ChangeBus(id, newBus, len(g.busVnKV)))
}
func (g *GridModel) ChangeLoadP(id int, newP float64) error {
	return g.setpoint(g.loads.ChangeP(id, newP))
}
func (g *GridModel) ChangeLoadQ(id int, newQ float64) error {
	return g.setpoint(g.loads.ChangeQ(id, newQ))
}

func (g *GridModel) DeactivateGen(id int) error { return g.topo(g.generators.Deactivate(id)) }
func (g *GridModel) ReactivateGen(id int) error { return g.topo(g.generators.Reactivate(id)) }
func (g *GridModel) ChangeGenBus(id, newBus int) error {
	return g.topo(g.generators.ChangeBus(id, newBus, len(g.busVnKV)))
}
func (g *GridModel) ChangeGenP(id int, newP float64) error {
	return g.setpoint(g.generators.ChangeP(id, newP))
}
func (g *GridModel) ChangeGenV(id int, newVmPu float64) error {
	return g.setpoint(g.generators.ChangeV(id, newVmPu))
}

func (g *GridModel) DeactivateSgen(id int) error { return g.topo(g.sgens.Deactivate(id)) }
func (g *GridModel) ReactivateSgen(id int) error { return g.topo(g.sgens.Reactivate(id)) }
func (g *GridModel) ChangeSgenBus(id, newBus int) error {
	return g.topo(g.sgens.ChangeBus(id, newBus, len(g.busVnKV)))
}
func (g *GridModel) ChangeSgenP(id int, newP float64) error {
	return g.setpoint(g.sgens.ChangeP(id, newP))
}
func (g *GridModel) ChangeSgenQ(id int, newQ float64) error {
	return g.setpoint(g.sgens.ChangeQ(id, newQ))
}

func (g *GridModel) DeactivateStorage(id int) error { return g.topo(g.storages.Deactivate(id)) }
func (g *GridModel) ReactivateStorage(id int) error { return g.topo(g.storages.Reactivate(id)) }
func (g *GridModel) ChangeStorageBus(id, newBus int) error {
	return g.topo(g.storages.ChangeBus(id, newBus, len(g.busVnKV)))
}
func (g *GridModel) ChangeStorageP(id int, newP float64) error {
	return g.setpoint(g.storages.ChangeP(id, newP))
}
func (g *GridModel) ChangeStorageQ(id int, newQ float64) error {
	return g.setpoint(g.storages.ChangeQ(id, newQ))
}
