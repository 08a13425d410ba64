package dvfs

import "fmt"

// Regulator is the control interface for one physical voltage regulator.
// Voltages cross this boundary in microvolts; the engine works in millivolts
// internally.
type Regulator interface {
	// SetVoltage requests any voltage in [minUV, maxUV]. The engine always
	// passes the step target as minUV and the rail maximum as maxUV.
	SetVoltage(minUV, maxUV int) error
	// Voltage returns the currently programmed voltage in microvolts.
	Voltage() (int, error)
	Enable() error
	Disable() error
	IsEnabled() bool
	// ConstraintVoltages reports the regulator's own voltage range, when
	// known. Used to derive a rail minimum that the descriptor left unset.
	ConstraintVoltages() (minUV, maxUV int, ok bool)
}

// RegulatorProvider binds rails to regulators during the one-time connect
// phase in System.Start.
type RegulatorProvider interface {
	Connect(railID string) (Regulator, error)
}

// SimRegulator is an in-memory Regulator for tests and the CLI. Writes is
// the committed write history in millivolts; WriteErr, when set, is consulted
// before each write to inject hardware failures.
type SimRegulator struct {
	Microvolts int
	MinUV      int
	MaxUV      int
	Enabled    bool
	Writes     []int
	WriteErr   func(millivolts int) error
}

// NewSimRegulator returns a regulator parked at millivolts.
func NewSimRegulator(millivolts int) *SimRegulator {
	return &SimRegulator{Microvolts: millivolts * 1000}
}

func (sr *SimRegulator) SetVoltage(minUV, maxUV int) error {
	if sr.WriteErr != nil {
		if err := sr.WriteErr(minUV / 1000); err != nil {
			return err
		}
	}
	sr.Microvolts = minUV
	sr.Writes = append(sr.Writes, minUV/1000)
	return nil
}

func (sr *SimRegulator) Voltage() (int, error) { return sr.Microvolts, nil }

func (sr *SimRegulator) Enable() error  { sr.Enabled = true; return nil }
func (sr *SimRegulator) Disable() error { sr.Enabled = false; return nil }

func (sr *SimRegulator) IsEnabled() bool { return sr.Enabled }

func (sr *SimRegulator) ConstraintVoltages() (int, int, bool) {
	if sr.MinUV == 0 && sr.MaxUV == 0 {
		return 0, 0, false
	}
	return sr.MinUV, sr.MaxUV, true
}

// SimProvider maps rail names to pre-built regulators. Connect fails for
// unlisted rails, which leaves those rails disabled after Start.
type SimProvider map[string]Regulator

func (p SimProvider) Connect(railID string) (Regulator, error) {
	reg, ok := p[railID]
	if !ok {
		return nil, fmt.Errorf("no regulator for rail %s", railID)
	}
	return reg, nil
}
