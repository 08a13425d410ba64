package dvfs

import "github.com/sirupsen/logrus"

// resolveRetrySlack is the extra iteration granted to the fixed-point loop
// beyond the step count of the initial delta. The bound makes circular
// dependencies converge by construction: each pass either reaches a fixed
// point or the loop runs out and the last working value is accepted as
// best effort.
const resolveRetrySlack = 1

// applyLimits clamps a demand into the rail's effective range: the static
// min/max narrowed by the current thermal floor and cap entries. An explicit
// override replaces the demand entirely before clamping.
func (r *Rail) applyLimits(millivolts int) int {
	minMV := r.MinMillivolts
	maxMV := r.MaxMillivolts

	if len(r.ThermFloors) > 0 && r.ThermFloorIdx < len(r.ThermFloors) {
		minMV = r.ThermFloors[r.ThermFloorIdx].Millivolts
	}
	if len(r.ThermCaps) > 0 && r.ThermCapIdx > 0 {
		maxMV = r.ThermCaps[r.ThermCapIdx-1].Millivolts
	}

	if r.OverrideMillivolts != 0 {
		millivolts = r.OverrideMillivolts
	}

	return clamp(millivolts, minMV, maxMV)
}

// railUpdate computes the minimum voltage a rail must supply and drives the
// ramp engine there. The target is the maximum over its clocks' demands,
// thermal- and override-clamped, then adjusted by every incoming relationship
// edge until the working value stops changing. Ramping in turn calls
// railUpdate on every rail reachable via outgoing edges.
//
// Caller holds the System mutex.
func (s *System) railUpdate(r *Rail) error {
	if r.Disabled {
		return nil
	}
	// Suspended rails are handled during resume.
	if r.Suspended {
		return nil
	}
	// No regulator bound yet; handled once the connect phase runs.
	if r.reg == nil {
		return nil
	}
	// Mid-ramp re-entry while resolving circular dependencies.
	if r.resolving {
		return nil
	}

	millivolts := 0
	for _, c := range r.clocks {
		millivolts = max(millivolts, c.CurMillivolts)
	}

	if millivolts > 0 {
		millivolts = r.applyLimits(millivolts)
	} else if r.ExternalPM {
		// Powering off is the external sequencer's decision.
		return nil
	} else if !r.JumpToZero && !r.ZeroDemandOff {
		if !r.warnedZeroDemand {
			logrus.Warnf("dvfs: %s cannot be turned off by rail update", r.Name)
			r.warnedZeroDemand = true
		}
		return nil
	}

	// Retry while limited by incoming relationships to ride out circular
	// dependencies: the bound is the step count of the remaining delta
	// plus slack, so the loop always terminates.
	var err error
	steps := ceilDiv(abs(millivolts-r.Millivolts), r.Step) + resolveRetrySlack
	for ; steps > 0; steps-- {
		r.PendingMillivolts = millivolts
		for _, rel := range r.incoming {
			r.PendingMillivolts = rel.Solve()
		}

		if r.PendingMillivolts == r.Millivolts {
			break
		}

		err = s.setVoltage(r, r.PendingMillivolts)
	}

	return err
}
