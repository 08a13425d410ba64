package dvfs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// setVoltage steps a rail's physical voltage from current to millivolts in
// bounded increments, telling every rail that depends on this one about the
// change both before and after each regulator write. The pre-write update
// lets a dependent rail raise itself ahead of a rising source, and the
// post-write update lets it settle after a falling one, so no dependent is
// ever undervolted mid-ramp.
//
// Caller holds the System mutex.
func (s *System) setVoltage(r *Rail, millivolts int) error {
	if r.reg == nil {
		if millivolts == r.Millivolts {
			return nil
		}
		return fmt.Errorf("%s: %w", r.Name, ErrNoRegulator)
	}

	// The external closed loop already applied the physical voltage;
	// just record it.
	if r.ContinuousMode {
		r.Millivolts = millivolts
		r.PendingMillivolts = millivolts
		r.Stats.update(millivolts, s.now())
		return nil
	}

	if r.Disabled {
		return nil
	}

	var step, offset int
	if millivolts > r.Millivolts {
		step = r.StepUp
		offset = step
	} else {
		step = r.Step
		offset = -step
	}

	r.resolving = true
	defer func() { r.resolving = false }()

	// Full-off and full-on transitions happen in one move under the
	// jump-to-zero policy, as does any move of a powered-down rail whose
	// on/off state is sequenced externally.
	jumpToZero := r.JumpToZero && (millivolts == 0 || r.Millivolts == 0)
	var steps int
	if jumpToZero || (r.ExternalPM && r.Stats.Off) {
		steps = 1
	} else {
		steps = ceilDiv(abs(millivolts-r.Millivolts), step)
	}

	for i := 0; i < steps; i++ {
		// The last step lands exactly on the target; earlier ones move
		// one increment from the current voltage.
		if i < steps-1 {
			r.PendingMillivolts = r.Millivolts + offset
		} else {
			r.PendingMillivolts = millivolts
		}

		// Tell each dependent rail the voltage is about to change.
		// This rail is the relationship's From; Millivolts is still
		// the old value and PendingMillivolts the one about to land.
		for _, rel := range r.outgoing {
			if err := s.railUpdate(rel.To); err != nil {
				return err
			}
		}

		if err := r.reg.SetVoltage(r.PendingMillivolts*1000, r.MaxMillivolts*1000); err != nil {
			logrus.Errorf("dvfs: failed to set regulator %s: %v", r.Name, err)
			return fmt.Errorf("%s: write %d mV: %w", r.Name, r.PendingMillivolts, ErrRegulatorWrite)
		}

		r.Millivolts = r.PendingMillivolts
		r.Stats.update(r.Millivolts, s.now())

		// Tell each dependent rail the voltage has changed; current
		// and pending now agree on the new value.
		for _, rel := range r.outgoing {
			if err := s.railUpdate(rel.To); err != nil {
				return err
			}
		}
	}

	if r.Millivolts != millivolts {
		logrus.Errorf("dvfs: %s didn't reach target %d in %d steps (%d)",
			r.Name, millivolts, steps, r.Millivolts)
		return fmt.Errorf("%s: target %d mV, reached %d mV: %w",
			r.Name, millivolts, r.Millivolts, ErrRampIncomplete)
	}

	return nil
}
