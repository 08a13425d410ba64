package dvfs

// RatePhase is the phase of a clock rate-change notification.
type RatePhase int

const (
	// PreRateChange fires before the clock hardware switches rate.
	PreRateChange RatePhase = iota
	// PostRateChange fires after the switch completed.
	PostRateChange
	// AbortRateChange fires when the switch was abandoned.
	AbortRateChange
)

// ClockEvent handles a rate-change notification from the clock subsystem.
// Voltage is raised before a rate increase and lowered after a rate
// decrease, so the rail never undervolts the clock in between. Aborted
// changes leave the (safe, higher) voltage in place until the next event.
// Events for unknown or inactive clocks, or before Start, are ignored.
func (s *System) ClockEvent(clock string, oldRate, newRate uint64, phase RatePhase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	c, ok := s.clocks[clock]
	if !ok {
		return nil
	}
	if s.ClockActive != nil && !s.ClockActive(clock) {
		return nil
	}

	switch phase {
	case PreRateChange:
		if oldRate < newRate {
			return s.setRate(c, newRate)
		}
	case PostRateChange:
		if oldRate > newRate {
			return s.setRate(c, newRate)
		}
	case AbortRateChange:
	}

	return nil
}
