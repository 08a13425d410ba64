package dvfs

import "testing"

func notifierSystem(t *testing.T) (*System, map[string]*SimRegulator) {
	t.Helper()
	s, regs := startSystem(t, twoRailDesc(), map[string]int{"vdd-cpu": 850})
	mustSetupClock(t, s, "cclk", "vdd-cpu",
		[]uint64{100e6, 200e6, 400e6}, []int{850, 900, 1000})
	return s, regs
}

func TestNotifier_PreEventRaisesVoltageBeforeRateIncrease(t *testing.T) {
	s, regs := notifierSystem(t)
	mustStart(t, s, regs)

	if err := s.ClockEvent("cclk", 100e6, 400e6, PreRateChange); err != nil {
		t.Fatalf("ClockEvent: %v", err)
	}

	if mv := railVoltage(t, s, "vdd-cpu"); mv != 1000 {
		t.Errorf("voltage after pre event: got %d, want 1000", mv)
	}
}

func TestNotifier_PreEventIgnoresRateDecrease(t *testing.T) {
	// Lowering voltage before the hardware slows down would undervolt it.
	s, regs := notifierSystem(t)
	mustStart(t, s, regs)
	if err := s.ClockEvent("cclk", 100e6, 400e6, PreRateChange); err != nil {
		t.Fatalf("raise: %v", err)
	}

	if err := s.ClockEvent("cclk", 400e6, 100e6, PreRateChange); err != nil {
		t.Fatalf("ClockEvent: %v", err)
	}

	if mv := railVoltage(t, s, "vdd-cpu"); mv != 1000 {
		t.Errorf("voltage after pre-decrease event: got %d, want 1000 (hold)", mv)
	}
}

func TestNotifier_PostEventLowersVoltageAfterRateDecrease(t *testing.T) {
	s, regs := notifierSystem(t)
	mustStart(t, s, regs)
	if err := s.ClockEvent("cclk", 100e6, 400e6, PreRateChange); err != nil {
		t.Fatalf("raise: %v", err)
	}

	if err := s.ClockEvent("cclk", 400e6, 100e6, PostRateChange); err != nil {
		t.Fatalf("ClockEvent: %v", err)
	}

	if mv := railVoltage(t, s, "vdd-cpu"); mv != 850 {
		t.Errorf("voltage after post event: got %d, want 850", mv)
	}
}

func TestNotifier_AbortLeavesVoltageInPlace(t *testing.T) {
	s, regs := notifierSystem(t)
	mustStart(t, s, regs)
	if err := s.ClockEvent("cclk", 100e6, 400e6, PreRateChange); err != nil {
		t.Fatalf("raise: %v", err)
	}

	if err := s.ClockEvent("cclk", 100e6, 400e6, AbortRateChange); err != nil {
		t.Fatalf("ClockEvent: %v", err)
	}

	// The higher voltage is safe; it is reclaimed on the next real event.
	if mv := railVoltage(t, s, "vdd-cpu"); mv != 1000 {
		t.Errorf("voltage after abort: got %d, want 1000", mv)
	}
}

func TestNotifier_InactiveClockIgnored(t *testing.T) {
	s, regs := notifierSystem(t)
	s.ClockActive = func(string) bool { return false }
	mustStart(t, s, regs)

	if err := s.ClockEvent("cclk", 100e6, 400e6, PreRateChange); err != nil {
		t.Fatalf("ClockEvent: %v", err)
	}

	if mv := railVoltage(t, s, "vdd-cpu"); mv != 850 {
		t.Errorf("voltage for inactive clock: got %d, want 850 (untouched)", mv)
	}
}

func TestNotifier_EventsBeforeStartAndForUnknownClocksIgnored(t *testing.T) {
	s, regs := notifierSystem(t)

	if err := s.ClockEvent("cclk", 100e6, 400e6, PreRateChange); err != nil {
		t.Fatalf("event before start: %v", err)
	}

	mustStart(t, s, regs)
	if err := s.ClockEvent("ghost", 100e6, 400e6, PreRateChange); err != nil {
		t.Fatalf("event for unknown clock: %v", err)
	}

	if mv := railVoltage(t, s, "vdd-cpu"); mv != 850 {
		t.Errorf("voltage: got %d, want 850 (untouched)", mv)
	}
}
