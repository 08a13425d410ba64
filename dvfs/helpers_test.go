package dvfs

import "testing"

// twoRailDesc returns descriptors for the vdd-cpu/vdd-core pair most tests
// use: 800-1100 mV cpu rail stepping at 50 mV, 800-1200 mV core rail
// stepping at 100 mV.
func twoRailDesc() []RailDescriptor {
	return []RailDescriptor{
		{
			Name:              "vdd-cpu",
			MinMillivolts:     800,
			MaxMillivolts:     1100,
			NominalMillivolts: 1000,
			Step:              50,
		},
		{
			Name:              "vdd-core",
			MinMillivolts:     800,
			MaxMillivolts:     1200,
			NominalMillivolts: 1100,
			Step:              100,
		},
	}
}

// startSystem builds and starts a System over simulated regulators parked
// at bootMV per rail.
func startSystem(t *testing.T, descs []RailDescriptor, bootMV map[string]int) (*System, map[string]*SimRegulator) {
	t.Helper()

	s := NewSystem()
	if err := s.InitRails(descs); err != nil {
		t.Fatalf("InitRails: %v", err)
	}

	regs := make(map[string]*SimRegulator, len(descs))
	provider := make(SimProvider, len(descs))
	for _, d := range descs {
		mv, ok := bootMV[d.Name]
		if !ok {
			mv = d.NominalMillivolts
		}
		reg := NewSimRegulator(mv)
		regs[d.Name] = reg
		provider[d.Name] = reg
	}

	return s, regs
}

func mustStart(t *testing.T, s *System, regs map[string]*SimRegulator) {
	t.Helper()
	provider := make(SimProvider, len(regs))
	for name, reg := range regs {
		provider[name] = reg
	}
	if err := s.Start(provider); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func mustSetupClock(t *testing.T, s *System, clock, rail string, freqs []uint64, mvs []int) {
	t.Helper()
	if err := s.SetupClock(clock, rail, freqs, mvs); err != nil {
		t.Fatalf("SetupClock(%s): %v", clock, err)
	}
}

func railVoltage(t *testing.T, s *System, name string) int {
	t.Helper()
	mv, err := s.Voltage(name)
	if err != nil {
		t.Fatalf("Voltage(%s): %v", name, err)
	}
	return mv
}
