package dvfs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// PowerEvent is a system power-state notification driving the suspend and
// resume sequencing.
type PowerEvent int

const (
	PowerEventSuspendPrepare PowerEvent = iota
	PowerEventPostSuspend
	PowerEventReboot
)

// allSuspended reports whether every rail is suspended or disabled.
func (s *System) allSuspended() bool {
	for _, r := range s.rails {
		if !r.Suspended && !r.Disabled {
			return false
		}
	}
	return true
}

// sourcesInert reports whether every rail this rail depends on is already
// suspended, disabled, or inert per the edge's solved-at-nominal flag, so
// suspending this rail cannot be undercut by a later source move.
func sourcesInert(r *Rail) bool {
	for _, rel := range r.incoming {
		if !rel.From.Suspended && !rel.From.Disabled && !rel.SolvedAtNominal {
			return false
		}
	}
	return true
}

// suspendOne suspends the first rail whose dependencies are all inert:
// ramp up to the thermal-clamped suspend level (never down), then mark it
// suspended. Failing to find any eligible rail means the dependency order
// is deadlocked.
func (s *System) suspendOne() error {
	for _, r := range s.rails {
		if r.Suspended || r.Disabled || !sourcesInert(r) {
			continue
		}

		mv := r.applyLimits(r.suspendLevel())
		// The suspend level only applies upward; a rail already above
		// it holds its voltage.
		if mv >= r.Millivolts {
			if err := s.setVoltage(r, mv); err != nil {
				logrus.Errorf("dvfs: failed %s suspend at %d", r.Name, r.Millivolts)
				return err
			}
		}

		r.Suspended = true
		return nil
	}
	return fmt.Errorf("%w", ErrSuspendOrdering)
}

// SuspendAll quiesces every rail in dependency order. On any failure the
// partial suspend is rolled back with a full resume and the error is
// returned to the caller.
func (s *System) SuspendAll() error {
	s.mu.Lock()
	var err error
	for !s.allSuspended() {
		if err = s.suspendOne(); err != nil {
			break
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.ResumeAll()
		return err
	}

	logrus.Infof("dvfs: suspended")
	return nil
}

// ResumeAll clears every suspended flag, then resolves every rail. Order
// does not matter: resolve is idempotent and converges, so each rail lands
// back on its demand regardless of scan position.
func (s *System) ResumeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rails {
		r.Suspended = false
	}
	for _, r := range s.rails {
		if err := s.railUpdate(r); err != nil {
			logrus.Errorf("dvfs: resume update of %s failed: %v", r.Name, err)
		}
	}

	logrus.Infof("dvfs: resumed")
}

// HandlePowerEvent dispatches a power-state notification. Suspend-prepare
// failures propagate so the caller can veto the system suspend; reboot
// quiesces rails best-effort.
func (s *System) HandlePowerEvent(ev PowerEvent) error {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		return nil
	}

	switch ev {
	case PowerEventSuspendPrepare:
		return s.SuspendAll()
	case PowerEventPostSuspend:
		s.ResumeAll()
		return nil
	case PowerEventReboot:
		if err := s.SuspendAll(); err != nil {
			logrus.Errorf("dvfs: reboot quiesce failed: %v", err)
		}
		return nil
	}
	return fmt.Errorf("unknown power event %d", ev)
}
