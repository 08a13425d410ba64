package dvfs

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// ClockVoltage maps one clock's frequency to the voltage its rail must
// supply. Freqs ascends and pairs with Millivolts entry for entry; an
// optional alternate frequency table can be swapped in when the clock's
// routing changes.
type ClockVoltage struct {
	Name string
	Rail *Rail

	Freqs      []uint64
	Millivolts []int

	AltFreqs []uint64
	UseAlt   bool

	// MaxMillivolts is an optional per-clock voltage ceiling; table
	// entries above it reject the rate. Zero means no ceiling.
	MaxMillivolts int

	CurRate       uint64
	CurMillivolts int

	// Continuous-control-mode parameters; see continuous.go.
	ContinuousMillivolts []int
	Range                ContinuousRange
	RangeMinRate         uint64
}

// freqs returns the active frequency table.
func (c *ClockVoltage) freqs() []uint64 {
	if c.UseAlt {
		return c.AltFreqs
	}
	return c.Freqs
}

// voltages returns the voltage table to pair with freqs for rate: the
// continuous-mode table when the rail's closed loop covers the rate, else
// the normal one.
func (c *ClockVoltage) voltages(rate uint64) []int {
	if c.continuousScale(rate) {
		return c.ContinuousMillivolts
	}
	return c.Millivolts
}

// tableIndex returns the first table entry at or above rate, or -1 when the
// rate exceeds the table.
func (c *ClockVoltage) tableIndex(rate uint64) int {
	freqs := c.freqs()
	for i, f := range freqs {
		if rate <= f {
			return i
		}
	}
	return -1
}

// voltageAtOrAbove derives a best-effort demand for rate, used to seed
// demand at Start: rates beyond the table fall back to the clock ceiling or
// the last table entry.
func (c *ClockVoltage) voltageAtOrAbove(rate uint64) int {
	if rate == 0 {
		return 0
	}
	if i := c.tableIndex(rate); i >= 0 {
		return c.voltages(rate)[i]
	}
	if c.MaxMillivolts != 0 {
		return c.MaxMillivolts
	}
	return c.Millivolts[len(c.Millivolts)-1]
}

// normalizeTable truncates a parallel freq/voltage table at the first zero
// voltage and pads trailing zero frequencies with their predecessor.
func normalizeTable(freqs []uint64, mvs []int) ([]uint64, []int) {
	n := len(mvs)
	if len(freqs) < n {
		n = len(freqs)
	}
	for i := 0; i < n; i++ {
		if mvs[i] == 0 {
			n = i
			break
		}
	}
	freqs = freqs[:n]
	mvs = mvs[:n]
	for i := 1; i < n; i++ {
		if freqs[i] == 0 {
			freqs[i] = freqs[i-1]
		}
	}
	return freqs, mvs
}

// SetupClock registers a clock's frequency/voltage table on a rail.
// Call before Start; tables are static afterwards.
func (s *System) SetupClock(clock, rail string, freqs []uint64, millivolts []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.railsByName[rail]
	if !ok {
		return fmt.Errorf("%s: %w", rail, ErrNoSuchRail)
	}
	if _, dup := s.clocks[clock]; dup {
		return fmt.Errorf("duplicate clock %s", clock)
	}

	freqs, millivolts = normalizeTable(freqs, millivolts)
	if len(freqs) == 0 {
		return fmt.Errorf("clock %s: empty voltage table", clock)
	}

	c := &ClockVoltage{
		Name:       clock,
		Rail:       r,
		Freqs:      freqs,
		Millivolts: millivolts,
	}
	r.clocks = append(r.clocks, c)
	s.clocks[clock] = c

	return nil
}

// SetClockCeiling sets a per-clock voltage ceiling in millivolts.
func (s *System) SetClockCeiling(clock string, millivolts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clocks[clock]
	if !ok {
		return fmt.Errorf("%s: %w", clock, ErrNoSuchClock)
	}
	c.MaxMillivolts = millivolts
	return nil
}

// AddAltFrequencies registers an alternate frequency table for a clock,
// selectable at runtime with UseAltFrequencies. The table must match the
// primary table's length.
func (s *System) AddAltFrequencies(clock string, altFreqs []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clocks[clock]
	if !ok {
		return fmt.Errorf("%s: %w", clock, ErrNoSuchClock)
	}
	for i := 1; i < len(altFreqs); i++ {
		if altFreqs[i] == 0 {
			altFreqs[i] = altFreqs[i-1]
		}
	}
	if len(altFreqs) != len(c.Freqs) {
		return fmt.Errorf("clock %s: alternate table has %d entries, want %d",
			clock, len(altFreqs), len(c.Freqs))
	}
	c.AltFreqs = altFreqs
	return nil
}

// setRate derives the clock's voltage demand for rate and re-resolves the
// owning rail. Zero rate means the clock is idle and demands nothing.
func (s *System) setRate(c *ClockVoltage, rate uint64) error {
	freqs := c.freqs()

	// On entry into the continuous-mode range, limit the first step to
	// the range floor; the closed loop finishes the ramp on its own.
	if c.rangeEntry(rate) {
		rate = c.RangeMinRate
	}

	if rate > freqs[len(freqs)-1] {
		logrus.Warnf("dvfs: rate %d too high for %s", rate, c.Name)
		return fmt.Errorf("clock %s: rate %d: %w", c.Name, rate, ErrRateTooHigh)
	}

	if rate == 0 {
		c.CurMillivolts = 0
	} else {
		i := c.tableIndex(rate)
		mv := c.voltages(rate)[i]
		if c.MaxMillivolts != 0 && mv > c.MaxMillivolts {
			logrus.Warnf("dvfs: voltage %d too high for %s", mv, c.Name)
			return fmt.Errorf("clock %s: %d mV: %w", c.Name, mv, ErrVoltageTooHigh)
		}
		c.CurMillivolts = mv
	}

	c.CurRate = rate

	if err := s.railUpdate(c.Rail); err != nil {
		logrus.Errorf("dvfs: failed to set rail %s for clock %s to %d mV: %v",
			c.Rail.Name, c.Name, c.CurMillivolts, err)
		return err
	}
	return nil
}

// SetRate updates the voltage demand for a clock whose rate changed.
// A no-op until Start has completed.
func (s *System) SetRate(clock string, rate uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	c, ok := s.clocks[clock]
	if !ok {
		return fmt.Errorf("%s: %w", clock, ErrNoSuchClock)
	}
	return s.setRate(c, rate)
}

// GetRate returns the rate last used to determine rail voltage for clock;
// zero when unknown or before Start.
func (s *System) GetRate(clock string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return 0
	}
	c, ok := s.clocks[clock]
	if !ok {
		return 0
	}
	return c.CurRate
}

// PredictVoltage returns the voltage the rail must supply for clock to run
// at rate, without mutating any state. Zero rate predicts zero.
func (s *System) PredictVoltage(clock string, rate uint64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clocks[clock]
	if !ok {
		return 0, fmt.Errorf("%s: %w", clock, ErrNoSuchClock)
	}
	if rate == 0 {
		return 0, nil
	}

	mvs := c.Millivolts
	if c.continuousRange(rate) {
		mvs = c.ContinuousMillivolts
	}
	i := c.tableIndex(rate)
	if i < 0 {
		return 0, fmt.Errorf("clock %s: rate %d: %w", clock, rate, ErrRateTooHigh)
	}
	return mvs[i], nil
}

// Frequencies returns the clock's active frequency table.
func (s *System) Frequencies(clock string) ([]uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clocks[clock]
	if !ok {
		return nil, fmt.Errorf("%s: %w", clock, ErrNoSuchClock)
	}
	freqs := make([]uint64, len(c.freqs()))
	copy(freqs, c.freqs())
	return freqs, nil
}

// MaxRate returns the highest rate in the clock's active table.
func (s *System) MaxRate(clock string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clocks[clock]
	if !ok {
		return 0
	}
	freqs := c.freqs()
	return freqs[len(freqs)-1]
}

// RoundRate rounds rate up to the next table frequency, or down to the
// table maximum when beyond it. Unknown clocks pass the rate through.
func (s *System) RoundRate(clock string, rate uint64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clocks[clock]
	if !ok {
		return rate
	}
	freqs := c.freqs()
	for _, f := range freqs {
		if f >= rate {
			return f
		}
	}
	return freqs[len(freqs)-1]
}

// UseAltFrequencies swaps a clock between its primary and alternate
// frequency tables, re-deriving demand for the current rate. A swap that
// fails to apply is reverted and reported as ErrAltTableApply.
func (s *System) UseAltFrequencies(clock string, useAlt bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clocks[clock]
	if !ok {
		return fmt.Errorf("%s: %w", clock, ErrNoSuchClock)
	}
	if c.AltFreqs == nil {
		return fmt.Errorf("clock %s: %w", clock, ErrNoAltTable)
	}
	if c.UseAlt == useAlt {
		return nil
	}

	c.UseAlt = useAlt
	if err := s.setRate(c, c.CurRate); err != nil {
		c.UseAlt = !useAlt
		logrus.Errorf("dvfs: %s: alternate table apply failed, reverting: %v", c.Name, err)
		if rerr := s.setRate(c, c.CurRate); rerr != nil {
			logrus.Errorf("dvfs: %s: revert failed: %v", c.Name, rerr)
		}
		return fmt.Errorf("clock %s: %w", clock, ErrAltTableApply)
	}
	return nil
}
