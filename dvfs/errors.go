package dvfs

import "errors"

// Sentinel errors returned by the engine. Callers match with errors.Is;
// wrapped messages carry the rail or clock name.
var (
	// ErrNoSuchRail is returned when a rail name is not registered.
	ErrNoSuchRail = errors.New("no such rail")

	// ErrNoSuchClock is returned when a clock name is not registered.
	ErrNoSuchClock = errors.New("no such clock")

	// ErrNoRegulator is returned when a ramp needs to move a rail that has
	// no regulator bound. A ramp to the current voltage succeeds instead.
	ErrNoRegulator = errors.New("no regulator bound")

	// ErrRegulatorWrite is returned when the hardware rejects a voltage
	// write. The rail is left at the last successfully written voltage.
	ErrRegulatorWrite = errors.New("regulator write failed")

	// ErrRampIncomplete is returned when a ramp finishes its step budget
	// short of the requested target. Non-fatal: the rail holds the
	// best-effort voltage reached.
	ErrRampIncomplete = errors.New("ramp incomplete")

	// ErrRateTooHigh is returned when a requested rate exceeds a clock's
	// frequency table. No state is mutated.
	ErrRateTooHigh = errors.New("rate above voltage table")

	// ErrVoltageTooHigh is returned when the table voltage for a rate
	// exceeds the clock's per-clock ceiling. No state is mutated.
	ErrVoltageTooHigh = errors.New("voltage above clock ceiling")

	// ErrNoAltTable is returned by UseAltFrequencies when the clock has no
	// alternate frequency table registered.
	ErrNoAltTable = errors.New("no alternate frequency table")

	// ErrAltTableApply is returned when switching tables failed and the
	// previous table was restored.
	ErrAltTableApply = errors.New("alternate table apply failed")

	// ErrSuspendOrdering is returned when no rail can be suspended without
	// violating the dependency order. SuspendAll rolls back by resuming.
	ErrSuspendOrdering = errors.New("suspend ordering failure")

	// ErrInvalidIndex is returned for an out-of-range thermal index.
	ErrInvalidIndex = errors.New("thermal index out of range")

	// ErrNoContinuousTable is returned when continuous-control mode is
	// requested on a clock without a continuous-mode voltage table.
	ErrNoContinuousTable = errors.New("no continuous-mode voltage table")
)
