package dvfs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ThermLimit is one thermal constraint entry: at or above Temperature the
// rail's floor (or cap) is Millivolts. Entries are ordered by ascending
// temperature with non-increasing voltage.
type ThermLimit struct {
	Temperature int `yaml:"temperature"`
	Millivolts  int `yaml:"millivolts"`
}

// ThermalKind selects which thermal table an index update targets.
type ThermalKind int

const (
	ThermalFloor ThermalKind = iota
	ThermalCap
)

func (k ThermalKind) String() string {
	switch k {
	case ThermalFloor:
		return "floor"
	case ThermalCap:
		return "cap"
	}
	return "unknown"
}

// validateThermLimits checks ordering and range of a floor or cap table.
// Valid tables have strictly ascending temperatures, non-increasing voltage,
// and a lowest limit at or above the rail minimum.
func validateThermLimits(r *Rail, limits []ThermLimit) error {
	if len(limits) == 0 || limits[0].Millivolts == 0 {
		return fmt.Errorf("missing thermal limits")
	}

	for i := 0; i < len(limits)-1; i++ {
		if limits[i].Temperature >= limits[i+1].Temperature ||
			limits[i].Millivolts < limits[i+1].Millivolts {
			return fmt.Errorf("unordered thermal limits")
		}
	}

	if limits[len(limits)-1].Millivolts < r.MinMillivolts {
		return fmt.Errorf("thermal limits below minimum voltage")
	}

	return nil
}

// initThermLimits validates the rail's thermal tables. An invalid table is
// dropped with a warning and the rail falls back to its static min/max for
// that side; this is a configuration error, never a fatal one.
func initThermLimits(r *Rail) {
	if len(r.ThermFloors) > 0 {
		err := validateThermLimits(r, r.ThermFloors)
		if err == nil && r.ThermFloors[0].Millivolts > r.NominalMillivolts {
			err = fmt.Errorf("thermal floor above nominal voltage")
		}
		if err != nil {
			logrus.Warnf("dvfs: %s: invalid Vmin thermal floors: %v", r.Name, err)
			r.ThermFloors = nil
		} else {
			r.ThermFloorIdx = 0
		}
	}

	if len(r.ThermCaps) > 0 {
		if err := validateThermLimits(r, r.ThermCaps); err != nil {
			logrus.Warnf("dvfs: %s: invalid Vmax thermal caps: %v", r.Name, err)
			r.ThermCaps = nil
		} else {
			// Cap index == len(caps) selects the coldest (highest) cap.
			r.ThermCapIdx = len(r.ThermCaps)
		}
	}
}

// UpdateThermalIndex moves a rail's floor or cap index to the bucket pushed
// by the thermal zone and re-resolves the rail synchronously. The floor at
// index i is floors[i] when i < len(floors); the cap at index i is caps[i-1]
// when i > 0, so index 0 means no cap and index len(caps) the coldest cap.
func (s *System) UpdateThermalIndex(rail string, kind ThermalKind, idx int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.railsByName[rail]
	if !ok {
		return fmt.Errorf("%s: %w", rail, ErrNoSuchRail)
	}

	switch kind {
	case ThermalFloor:
		if idx < 0 || idx > len(r.ThermFloors) {
			return fmt.Errorf("%s: floor index %d: %w", rail, idx, ErrInvalidIndex)
		}
		if r.ThermFloorIdx != idx {
			r.ThermFloorIdx = idx
			return s.railUpdate(r)
		}
	case ThermalCap:
		if idx < 0 || idx > len(r.ThermCaps) {
			return fmt.Errorf("%s: cap index %d: %w", rail, idx, ErrInvalidIndex)
		}
		if r.ThermCapIdx != idx {
			r.ThermCapIdx = idx
			return s.railUpdate(r)
		}
	default:
		return fmt.Errorf("%s: unknown thermal kind %d", rail, kind)
	}

	return nil
}

// ThermalStateCount returns the number of entries in a rail's floor or cap
// table; zero when the table was invalid or absent.
func (s *System) ThermalStateCount(rail string, kind ThermalKind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.railsByName[rail]
	if !ok {
		return 0, fmt.Errorf("%s: %w", rail, ErrNoSuchRail)
	}
	if kind == ThermalFloor {
		return len(r.ThermFloors), nil
	}
	return len(r.ThermCaps), nil
}

// ThermalIndex returns the current floor or cap index of a rail.
func (s *System) ThermalIndex(rail string, kind ThermalKind) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.railsByName[rail]
	if !ok {
		return 0, fmt.Errorf("%s: %w", rail, ErrNoSuchRail)
	}
	if kind == ThermalFloor {
		return r.ThermFloorIdx, nil
	}
	return r.ThermCapIdx, nil
}
