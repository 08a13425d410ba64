package dvfs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PlatformSpec is the static platform description: rails, their thermal
// tables, clock voltage tables, and inter-rail relationships. Loaded from
// YAML via LoadPlatformSpec(path).
type PlatformSpec struct {
	Rails         []RailSpec         `yaml:"rails"`
	Clocks        []ClockSpec        `yaml:"clocks"`
	Relationships []RelationshipSpec `yaml:"relationships,omitempty"`
}

// RailSpec describes one rail.
type RailSpec struct {
	Name       string `yaml:"name"`
	MinMV      int    `yaml:"min_mv"`
	MaxMV      int    `yaml:"max_mv"`
	NominalMV  int    `yaml:"nominal_mv"`
	DisableMV  int    `yaml:"disable_mv,omitempty"`
	SuspendMV  int    `yaml:"suspend_mv,omitempty"`
	StepMV     int    `yaml:"step_mv,omitempty"`
	StepUpMV   int    `yaml:"step_up_mv,omitempty"`
	JumpToZero bool   `yaml:"jump_to_zero,omitempty"`
	ExternalPM bool   `yaml:"external_pm,omitempty"`
	// ZeroDemand selects the zero-clock-demand policy: "hold" (default,
	// warn and keep the voltage) or "off" (rail may be commanded off).
	ZeroDemand  string       `yaml:"zero_demand,omitempty"`
	ThermFloors []ThermLimit `yaml:"therm_floors,omitempty"`
	ThermCaps   []ThermLimit `yaml:"therm_caps,omitempty"`
	BootMV      int          `yaml:"boot_mv,omitempty"` // SimRegulator start voltage; 0 = nominal
	StatsBinUV  int          `yaml:"stats_bin_uv,omitempty"`
}

// ClockSpec describes one clock's tables on a rail.
type ClockSpec struct {
	Name        string   `yaml:"name"`
	Rail        string   `yaml:"rail"`
	Frequencies []uint64 `yaml:"frequencies"`
	Millivolts  []int    `yaml:"millivolts"`
	AltFreqs    []uint64 `yaml:"alt_frequencies,omitempty"`
	MaxMV       int      `yaml:"max_mv,omitempty"`

	ContinuousMillivolts []int  `yaml:"continuous_millivolts,omitempty"`
	ContinuousRange      string `yaml:"continuous_range,omitempty"` // none|all|high
	ContinuousMinRate    uint64 `yaml:"continuous_min_rate,omitempty"`
}

// RelationshipSpec describes one dependency edge.
type RelationshipSpec struct {
	From            string `yaml:"from"`
	To              string `yaml:"to"`
	Policy          string `yaml:"policy"`
	OffsetMV        int    `yaml:"offset_mv,omitempty"`
	SolvedAtNominal bool   `yaml:"solved_at_nominal,omitempty"`
}

// LoadPlatformSpec reads and parses a platform YAML file.
func LoadPlatformSpec(path string) (*PlatformSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read platform spec: %w", err)
	}
	var spec PlatformSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse platform spec: %w", err)
	}
	if len(spec.Rails) == 0 {
		return nil, fmt.Errorf("platform spec has no rails")
	}
	return &spec, nil
}

// BuildSystem constructs a System from a platform spec: rails first, then
// clock tables, then relationship edges. The System is not yet started.
func BuildSystem(spec *PlatformSpec) (*System, error) {
	s := NewSystem()

	descs := make([]RailDescriptor, 0, len(spec.Rails))
	for _, rs := range spec.Rails {
		if rs.ZeroDemand != "" && rs.ZeroDemand != "hold" && rs.ZeroDemand != "off" {
			return nil, fmt.Errorf("rail %s: unknown zero_demand policy %q", rs.Name, rs.ZeroDemand)
		}
		descs = append(descs, RailDescriptor{
			Name:              rs.Name,
			MinMillivolts:     rs.MinMV,
			MaxMillivolts:     rs.MaxMV,
			NominalMillivolts: rs.NominalMV,
			DisableMillivolts: rs.DisableMV,
			SuspendMillivolts: rs.SuspendMV,
			Step:              rs.StepMV,
			StepUp:            rs.StepUpMV,
			JumpToZero:        rs.JumpToZero,
			ExternalPM:        rs.ExternalPM,
			ZeroDemandOff:     rs.ZeroDemand == "off",
			ThermFloors:       rs.ThermFloors,
			ThermCaps:         rs.ThermCaps,
			StatsBinUV:        rs.StatsBinUV,
		})
	}
	if err := s.InitRails(descs); err != nil {
		return nil, err
	}

	for _, cs := range spec.Clocks {
		if err := s.SetupClock(cs.Name, cs.Rail, cs.Frequencies, cs.Millivolts); err != nil {
			return nil, err
		}
		if cs.MaxMV != 0 {
			if err := s.SetClockCeiling(cs.Name, cs.MaxMV); err != nil {
				return nil, err
			}
		}
		if len(cs.AltFreqs) > 0 {
			if err := s.AddAltFrequencies(cs.Name, cs.AltFreqs); err != nil {
				return nil, err
			}
		}
		if len(cs.ContinuousMillivolts) > 0 {
			if err := s.SetupContinuousTable(cs.Name, cs.ContinuousMillivolts); err != nil {
				return nil, err
			}
			rng, err := parseContinuousRange(cs.ContinuousRange)
			if err != nil {
				return nil, fmt.Errorf("clock %s: %w", cs.Name, err)
			}
			if rng != RangeNone {
				if err := s.SetContinuousRange(cs.Name, rng, cs.ContinuousMinRate); err != nil {
					return nil, err
				}
			}
		}
	}

	rels := make([]RelationshipDescriptor, 0, len(spec.Relationships))
	for _, rel := range spec.Relationships {
		policy, err := ParseSolverPolicy(rel.Policy)
		if err != nil {
			return nil, fmt.Errorf("relationship %s -> %s: %w", rel.From, rel.To, err)
		}
		rels = append(rels, RelationshipDescriptor{
			From:             rel.From,
			To:               rel.To,
			Policy:           policy,
			OffsetMillivolts: rel.OffsetMV,
			SolvedAtNominal:  rel.SolvedAtNominal,
		})
	}
	if err := s.AddRelationships(rels); err != nil {
		return nil, err
	}

	return s, nil
}

func parseContinuousRange(s string) (ContinuousRange, error) {
	switch s {
	case "", "none":
		return RangeNone, nil
	case "all":
		return RangeAllRates, nil
	case "high":
		return RangeHighRates, nil
	}
	return 0, fmt.Errorf("unknown continuous range %q", s)
}

// SimRegulators builds a SimProvider with one regulator per rail, parked at
// the rail's boot voltage (nominal unless boot_mv overrides it). Used by
// the CLI and anywhere a platform runs without hardware.
func (spec *PlatformSpec) SimRegulators() SimProvider {
	p := make(SimProvider, len(spec.Rails))
	for _, rs := range spec.Rails {
		mv := rs.BootMV
		if mv == 0 {
			mv = rs.NominalMV
		}
		p[rs.Name] = NewSimRegulator(mv)
	}
	return p
}
