package dvfs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ContinuousRange selects which of a clock's rates are handed to the
// external closed-loop controller when its rail is in continuous-control
// mode.
type ContinuousRange int

const (
	// RangeNone keeps every rate on stepped ramping.
	RangeNone ContinuousRange = iota
	// RangeAllRates hands every rate to the closed loop.
	RangeAllRates
	// RangeHighRates hands rates at or above RangeMinRate to the closed
	// loop and keeps lower rates on stepped ramping.
	RangeHighRates
)

// continuousRange reports whether rate falls in the clock's continuous-mode
// range, independent of whether the rail is currently in that mode.
func (c *ClockVoltage) continuousRange(rate uint64) bool {
	if len(c.ContinuousMillivolts) == 0 {
		return false
	}
	switch c.Range {
	case RangeAllRates:
		return true
	case RangeHighRates:
		return rate >= c.RangeMinRate
	}
	return false
}

// continuousScale reports whether the closed loop owns the voltage for rate
// right now.
func (c *ClockVoltage) continuousScale(rate uint64) bool {
	return c.Rail.ContinuousMode && c.continuousRange(rate)
}

// rangeEntry reports a transition from below the high-rates range into it;
// the first step is then limited to the range floor because the closed loop
// completes the voltage/rate ramp on its own.
func (c *ClockVoltage) rangeEntry(rate uint64) bool {
	return c.Range == RangeHighRates &&
		c.continuousRange(rate) && !c.continuousRange(c.CurRate)
}

// SetupContinuousTable registers the voltage table the closed loop uses for
// a clock, parallel to the clock's primary frequency table.
func (s *System) SetupContinuousTable(clock string, millivolts []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clocks[clock]
	if !ok {
		return fmt.Errorf("%s: %w", clock, ErrNoSuchClock)
	}
	if len(millivolts) != len(c.Freqs) {
		return fmt.Errorf("clock %s: continuous table has %d entries, want %d",
			clock, len(millivolts), len(c.Freqs))
	}
	c.ContinuousMillivolts = millivolts
	return nil
}

// SetContinuousRange selects which rates of a clock the closed loop covers.
func (s *System) SetContinuousRange(clock string, rng ContinuousRange, minRate uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clocks[clock]
	if !ok {
		return fmt.Errorf("%s: %w", clock, ErrNoSuchClock)
	}
	if len(c.ContinuousMillivolts) == 0 {
		return fmt.Errorf("clock %s: %w", clock, ErrNoContinuousTable)
	}
	c.Range = rng
	c.RangeMinRate = minRate
	return nil
}

// EnterContinuousMode hands the clock's rail to the external closed-loop
// controller and records the demand for rate. Stepped ramping and clamping
// are bypassed until LeaveContinuousMode.
func (s *System) EnterContinuousMode(clock string, rate uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clocks[clock]
	if !ok {
		return fmt.Errorf("%s: %w", clock, ErrNoSuchClock)
	}
	if len(c.ContinuousMillivolts) == 0 {
		return fmt.Errorf("clock %s: %w", clock, ErrNoContinuousTable)
	}

	if !c.Rail.ContinuousMode {
		c.Rail.ContinuousMode = true
		return s.setRate(c, rate)
	}
	return nil
}

// LeaveContinuousMode returns the rail to stepped control: the real voltage
// is read back from the regulator, a rail disabled while in continuous mode
// is re-parked at its disable level, and demand for rate is re-resolved.
func (s *System) LeaveContinuousMode(clock string, rate uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clocks[clock]
	if !ok {
		return fmt.Errorf("%s: %w", clock, ErrNoSuchClock)
	}

	r := c.Rail
	if !r.ContinuousMode {
		return nil
	}

	r.ContinuousMode = false
	if r.reg != nil {
		if uv, err := r.reg.Voltage(); err == nil {
			r.Millivolts = uv / 1000
			r.PendingMillivolts = r.Millivolts
		} else {
			logrus.Errorf("dvfs: %s: voltage read-back leaving continuous mode: %v",
				r.Name, err)
		}
	}
	if r.Disabled {
		r.Disabled = false
		if err := s.disableRail(r); err != nil {
			logrus.Errorf("dvfs: %s: re-park after continuous mode: %v", r.Name, err)
		}
	}
	return s.setRate(c, rate)
}
