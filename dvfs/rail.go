package dvfs

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Rail is one logical voltage domain controlling a single physical
// regulator. All fields are guarded by the owning System's mutex.
type Rail struct {
	Name string

	// Millivolts is the last voltage committed to the regulator.
	// PendingMillivolts is the working value mid-resolve or mid-step.
	Millivolts        int
	PendingMillivolts int

	MinMillivolts     int
	MaxMillivolts     int
	NominalMillivolts int

	// DisableMillivolts and SuspendMillivolts are the park levels for
	// rail disable and system suspend; zero means nominal.
	DisableMillivolts int
	SuspendMillivolts int

	// OverrideMillivolts, when non-zero, replaces the computed clock
	// demand entirely (still clamped to the effective range).
	OverrideMillivolts int

	// Step bounds a single downward ramp increment; StepUp an upward one.
	Step   int
	StepUp int

	// JumpToZero lets the rail transition to or from 0 mV in one move
	// instead of stepping, and permits powering off on zero demand.
	JumpToZero bool

	// ExternalPM marks a rail whose on/off state is sequenced outside the
	// engine; zero demand then holds the voltage rather than powering off.
	ExternalPM bool

	// ZeroDemandOff permits powering the rail off on zero clock demand
	// even without JumpToZero. Default is to warn and hold.
	ZeroDemandOff bool

	Disabled  bool
	Suspended bool

	// ContinuousMode hands voltage control to an external closed loop;
	// ramps record the target directly without stepping or propagation.
	ContinuousMode bool

	ThermFloors   []ThermLimit
	ThermCaps     []ThermLimit
	ThermFloorIdx int
	ThermCapIdx   int

	Stats RailStats

	// resolving guards against a rail re-entering its own ramp while its
	// change propagation recurses through the graph.
	resolving bool

	warnedZeroDemand bool

	clocks   []*ClockVoltage
	outgoing []*Relationship // edges where this rail is the source
	incoming []*Relationship // edges this rail depends on

	reg Regulator
}

// disableLevel is the park voltage for a disabled rail.
func (r *Rail) disableLevel() int {
	if r.DisableMillivolts != 0 {
		return r.DisableMillivolts
	}
	return r.NominalMillivolts
}

// suspendLevel is the park voltage for a suspended rail.
func (r *Rail) suspendLevel() int {
	if r.SuspendMillivolts != 0 {
		return r.SuspendMillivolts
	}
	return r.NominalMillivolts
}

// RailDescriptor is the static init-time description of one rail.
type RailDescriptor struct {
	Name              string
	MinMillivolts     int
	MaxMillivolts     int
	NominalMillivolts int
	DisableMillivolts int
	SuspendMillivolts int
	Step              int
	StepUp            int
	JumpToZero        bool
	ExternalPM        bool
	ZeroDemandOff     bool
	ThermFloors       []ThermLimit
	ThermCaps         []ThermLimit
	StatsBinUV        int
}

// System owns every rail, clock and relationship edge. One non-reentrant
// mutex serializes all mutation; the resolve/ramp recursion runs entirely
// under a single acquisition, so each external trigger is atomic.
type System struct {
	mu sync.Mutex

	rails       []*Rail // registration order; also the suspend scan order
	railsByName map[string]*Rail
	clocks      map[string]*ClockVoltage

	started bool

	// ClockActive reports whether a clock is enabled or prepared; rate
	// notifications for inactive clocks are ignored. Nil means active.
	// ClockRate supplies the current rate of a clock at Start so initial
	// demand can be seeded. Both must be set before Start.
	ClockActive func(clock string) bool
	ClockRate   func(clock string) uint64

	now func() time.Time
}

// NewSystem returns an empty registry. Populate with InitRails, SetupClock
// and AddRelationships, then call Start.
func NewSystem() *System {
	return &System{
		railsByName: make(map[string]*Rail),
		clocks:      make(map[string]*ClockVoltage),
		now:         time.Now,
	}
}

// InitRails registers rails from their static descriptors. Park levels are
// clamped to nominal, missing steps default to the full range (one step),
// and invalid thermal tables are dropped with a warning.
func (s *System) InitRails(descs []RailDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range descs {
		if d.Name == "" {
			return fmt.Errorf("rail descriptor without a name")
		}
		if _, dup := s.railsByName[d.Name]; dup {
			return fmt.Errorf("duplicate rail %s", d.Name)
		}

		r := &Rail{
			Name:              d.Name,
			MinMillivolts:     d.MinMillivolts,
			MaxMillivolts:     d.MaxMillivolts,
			NominalMillivolts: d.NominalMillivolts,
			DisableMillivolts: min(d.DisableMillivolts, d.NominalMillivolts),
			SuspendMillivolts: min(d.SuspendMillivolts, d.NominalMillivolts),
			Step:              d.Step,
			StepUp:            d.StepUp,
			JumpToZero:        d.JumpToZero,
			ExternalPM:        d.ExternalPM,
			ZeroDemandOff:     d.ZeroDemandOff,
			ThermFloors:       d.ThermFloors,
			ThermCaps:         d.ThermCaps,
			Millivolts:        d.NominalMillivolts,
			PendingMillivolts: d.NominalMillivolts,
		}
		r.Stats.BinUV = d.StatsBinUV
		if r.Step == 0 {
			r.Step = r.MaxMillivolts
		}
		if r.StepUp == 0 {
			r.StepUp = r.Step
		}
		initThermLimits(r)

		s.rails = append(s.rails, r)
		s.railsByName[d.Name] = r
	}

	return nil
}

// RailByName returns a registered rail, or nil.
func (s *System) RailByName(name string) *Rail {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.railsByName[name]
}

// connectRegulator performs the one-time regulator bind for one rail:
// connect, enable unless externally sequenced, read the boot voltage, and
// adopt the regulator's minimum when the descriptor left the rail minimum
// unset.
func (s *System) connectRegulator(p RegulatorProvider, r *Rail) error {
	if r.reg == nil {
		reg, err := p.Connect(r.Name)
		if err != nil {
			return err
		}
		r.reg = reg
	}

	if !r.ExternalPM {
		if err := r.reg.Enable(); err != nil {
			return fmt.Errorf("enable: %w", err)
		}
	}

	uv, err := r.reg.Voltage()
	if err != nil {
		return fmt.Errorf("initial voltage read: %w", err)
	}

	if r.MinMillivolts == 0 {
		if minUV, _, ok := r.reg.ConstraintVoltages(); ok {
			r.MinMillivolts = minUV / 1000
		}
	}

	r.Millivolts = uv / 1000
	r.PendingMillivolts = r.Millivolts
	r.Stats.init(r, r.Millivolts, s.now())

	return nil
}

// Start runs the connect phase and brings the system live: every rail is
// bound to its regulator (a failed bind disables that rail and startup
// continues), enabled clocks seed their initial demand, and every rail is
// resolved once. Clock and power notifications are ignored until Start
// returns.
func (s *System) Start(p RegulatorProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range s.rails {
		if err := s.connectRegulator(p, r); err != nil {
			logrus.Errorf("dvfs: failed to connect %s rail: %v", r.Name, err)
			if !r.Disabled {
				s.disableRail(r)
			}
		}
	}

	for _, r := range s.rails {
		s.seedClockDemand(r)
		if r.reg != nil && !r.Disabled {
			if err := s.railUpdate(r); err != nil {
				logrus.Errorf("dvfs: initial update of %s failed: %v", r.Name, err)
			}
		}
	}

	s.started = true
	return nil
}

// seedClockDemand captures each active clock's current rate and derives its
// voltage demand before the first resolve.
func (s *System) seedClockDemand(r *Rail) {
	for _, c := range r.clocks {
		if s.ClockActive != nil && !s.ClockActive(c.Name) {
			continue
		}
		if s.ClockRate == nil {
			continue
		}
		c.CurRate = s.ClockRate(c.Name)
		c.CurMillivolts = c.voltageAtOrAbove(c.CurRate)
	}
}

// EnableRail re-enables a disabled rail and resolves it immediately.
func (s *System) EnableRail(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.railsByName[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNoSuchRail)
	}
	if !r.Disabled {
		return nil
	}
	r.Disabled = false
	return s.railUpdate(r)
}

// DisableRail parks a rail at its disable level and freezes it. The park
// only applies upward: a rail already above the level stays where it is,
// and a park that would drop the voltage is refused.
func (s *System) DisableRail(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.railsByName[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNoSuchRail)
	}
	if r.Disabled {
		return nil
	}
	return s.disableRail(r)
}

func (s *System) disableRail(r *Rail) error {
	if r.ContinuousMode {
		r.Disabled = true
		return nil
	}

	mv := r.applyLimits(r.disableLevel())
	if mv < r.Millivolts {
		logrus.Errorf("dvfs: failed to disable %s at %d", r.Name, r.Millivolts)
		return fmt.Errorf("disable %s: level %d mV below current %d mV",
			r.Name, mv, r.Millivolts)
	}
	if err := s.setVoltage(r, mv); err != nil {
		logrus.Errorf("dvfs: failed to disable %s at %d", r.Name, r.Millivolts)
		return err
	}
	r.Disabled = true
	return nil
}

// SetOverride forces a rail's demand to millivolts (still clamped to the
// effective range); zero clears the override. Re-resolves immediately.
func (s *System) SetOverride(name string, millivolts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.railsByName[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNoSuchRail)
	}
	if r.OverrideMillivolts == millivolts {
		return nil
	}
	r.OverrideMillivolts = millivolts
	return s.railUpdate(r)
}

// IsRailUp reports whether the regulator output is on. Rails without
// external power sequencing are always up once connected.
func (s *System) IsRailUp(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.railsByName[name]
	if !ok || r.reg == nil {
		return false
	}
	if !r.ExternalPM {
		return true
	}
	return r.reg.IsEnabled()
}

// PowerUpRail turns on an externally sequenced rail's regulator output.
func (s *System) PowerUpRail(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.railsByName[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNoSuchRail)
	}
	if !r.ExternalPM || r.reg == nil {
		return fmt.Errorf("%s: not under external power sequencing", name)
	}
	if err := r.reg.Enable(); err != nil {
		return err
	}
	r.Stats.setOff(false, r.Millivolts, s.now())
	return nil
}

// PowerDownRail turns off an externally sequenced rail's regulator output.
func (s *System) PowerDownRail(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.railsByName[name]
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrNoSuchRail)
	}
	if !r.ExternalPM || r.reg == nil {
		return fmt.Errorf("%s: not under external power sequencing", name)
	}
	if err := r.reg.Disable(); err != nil {
		return err
	}
	r.Stats.setOff(true, 0, s.now())
	return nil
}

// Voltage returns a rail's current committed voltage in millivolts.
func (s *System) Voltage(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.railsByName[name]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrNoSuchRail)
	}
	return r.Millivolts, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
