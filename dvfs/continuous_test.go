package dvfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func continuousSystem(t *testing.T) (*System, map[string]*SimRegulator) {
	t.Helper()
	s, regs := startSystem(t, twoRailDesc(), map[string]int{"vdd-cpu": 850})
	mustSetupClock(t, s, "cclk", "vdd-cpu",
		[]uint64{100e6, 200e6, 400e6}, []int{850, 900, 1000})
	require.NoError(t, s.SetupContinuousTable("cclk", []int{840, 880, 950}))
	return s, regs
}

func TestContinuous_EnterRecordsWithoutRegulatorWrites(t *testing.T) {
	// GIVEN a clock with a closed-loop table covering all rates
	s, regs := continuousSystem(t)
	require.NoError(t, s.SetContinuousRange("cclk", RangeAllRates, 0))
	mustStart(t, s, regs)
	regs["vdd-cpu"].Writes = nil

	// WHEN the closed loop takes over
	require.NoError(t, s.EnterContinuousMode("cclk", 400e6))

	// THEN the demand comes from the continuous table and nothing is
	// written; the loop owns the physical voltage
	assert.Equal(t, 950, railVoltage(t, s, "vdd-cpu"))
	assert.Empty(t, regs["vdd-cpu"].Writes)
	assert.Equal(t, uint64(400e6), s.GetRate("cclk"))
}

func TestContinuous_LeaveReadsBackAndResumesStepping(t *testing.T) {
	// GIVEN a rail under closed-loop control whose physical voltage drifted
	s, regs := continuousSystem(t)
	require.NoError(t, s.SetContinuousRange("cclk", RangeAllRates, 0))
	mustStart(t, s, regs)
	require.NoError(t, s.EnterContinuousMode("cclk", 400e6))
	regs["vdd-cpu"].Microvolts = 920 * 1000 // where the loop left it
	regs["vdd-cpu"].Writes = nil

	// WHEN control returns to the stepped engine
	require.NoError(t, s.LeaveContinuousMode("cclk", 200e6))

	// THEN the read-back voltage is the ramp origin and stepping resumes
	assert.Equal(t, 900, railVoltage(t, s, "vdd-cpu"))
	assert.Equal(t, []int{900}, regs["vdd-cpu"].Writes, "one 20 mV step down from 920")
	assert.False(t, s.RailByName("vdd-cpu").ContinuousMode)
}

func TestContinuous_HighRatesEntryLimitsFirstStepToRangeFloor(t *testing.T) {
	// GIVEN the closed loop covering only rates at or above 300 MHz
	s, regs := continuousSystem(t)
	require.NoError(t, s.SetContinuousRange("cclk", RangeHighRates, 300e6))
	mustStart(t, s, regs)
	require.NoError(t, s.SetRate("cclk", 100e6))

	// WHEN a rate change crosses into the range
	require.NoError(t, s.EnterContinuousMode("cclk", 400e6))

	// THEN only the range floor is applied; the loop ramps the rest
	assert.Equal(t, uint64(300e6), s.GetRate("cclk"))
	assert.Equal(t, 950, railVoltage(t, s, "vdd-cpu"))
}

func TestContinuous_RangeRequiresTable(t *testing.T) {
	s, regs := startSystem(t, twoRailDesc(), nil)
	mustSetupClock(t, s, "cclk", "vdd-cpu", []uint64{100e6}, []int{850})
	mustStart(t, s, regs)

	assert.ErrorIs(t, s.SetContinuousRange("cclk", RangeAllRates, 0), ErrNoContinuousTable)
	assert.ErrorIs(t, s.EnterContinuousMode("cclk", 100e6), ErrNoContinuousTable)
}

func TestContinuous_TableLengthMustMatchFrequencies(t *testing.T) {
	s, _ := startSystem(t, twoRailDesc(), nil)
	mustSetupClock(t, s, "cclk", "vdd-cpu", []uint64{100e6, 200e6}, []int{850, 900})

	err := s.SetupContinuousTable("cclk", []int{840})
	assert.Error(t, err)
}
