package network

// Classification partitions the solver buses into the slack bus, the PV
// buses (voltage controlled) and the PQ buses (fixed injection). Marking
// is idempotent: once a bus is PV it stays PV, and the slack bus is never
// added to either set, so the fill order of the element categories does
// not change the final partition.
type Classification struct {
	SlackSolverID int
	PV            []int
	PQ            []int

	marked []bool
}

func NewClassification(numSolverBuses, slackSolverID int) *Classification {
	return &Classification{
		SlackSolverID: slackSolverID,
		marked:        make([]bool, numSolverBuses),
	}
}

// MarkPV records a voltage-controlling element at the given solver bus.
func (c *Classification) MarkPV(solverID int) {
	if solverID == c.SlackSolverID || c.marked[solverID] {
		return
	}
	c.marked[solverID] = true
	c.PV = append(c.PV, solverID)
}

// Finalize assigns every bus that is neither slack nor PV to the PQ set.
func (c *Classification) Finalize() {
	for busID := range c.marked {
		if busID == c.SlackSolverID || c.marked[busID] {
			continue
		}
		c.PQ = append(c.PQ, busID)
		c.marked[busID] = true
	}
}

func (c *Classification) Clone() *Classification {
	n := &Classification{
		SlackSolverID: c.SlackSolverID,
		PV:            append([]int(nil), c.PV...),
		PQ:            append([]int(nil), c.PQ...),
		marked:        append([]bool(nil), c.marked...),
	}
	return n
}
