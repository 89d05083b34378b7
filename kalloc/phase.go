package kalloc

// Phase is the boot lifecycle state of a Pool
type Phase uint32

const (
	// PhaseUninitialized is the state of a newly-created pool. Nothing can be allocated.
	PhaseUninitialized Phase = iota
	// PhaseSingleContext follows InitPhaseOne. Only one execution context may use the pool
	// and locking is disabled.
	PhaseSingleContext
	// PhaseMultiContext follows InitPhaseTwo. Locking is active and the reference table has
	// been reset.
	PhaseMultiContext
)

var phaseMapping = map[Phase]string{
	PhaseUninitialized: "PhaseUninitialized",
	PhaseSingleContext: "PhaseSingleContext",
	PhaseMultiContext:  "PhaseMultiContext",
}

func (p Phase) String() string {
	return phaseMapping[p]
}
