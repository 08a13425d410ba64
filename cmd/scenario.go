package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rail-sim/rail-sim/dvfs"
)

// Scenario is an ordered list of events to drive against a started System.
type Scenario struct {
	Events []ScenarioEvent `yaml:"events"`
}

// ScenarioEvent is one step of a scenario. Op selects the operation; the
// remaining fields parameterize it.
type ScenarioEvent struct {
	Op string `yaml:"op"` // set_rate | predict | thermal_floor | thermal_cap | suspend | resume | enable_rail | disable_rail | use_alt | override

	Clock  string `yaml:"clock,omitempty"`
	Rate   uint64 `yaml:"rate,omitempty"`
	Rail   string `yaml:"rail,omitempty"`
	Index  int    `yaml:"index,omitempty"`
	MV     int    `yaml:"mv,omitempty"`
	UseAlt bool   `yaml:"use_alt,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	return &sc, nil
}

// Run executes the scenario in order, stopping at the first failing event.
func (sc *Scenario) Run(sys *dvfs.System) error {
	for i, ev := range sc.Events {
		var err error
		switch ev.Op {
		case "set_rate":
			err = sys.SetRate(ev.Clock, ev.Rate)
		case "predict":
			var mv int
			mv, err = sys.PredictVoltage(ev.Clock, ev.Rate)
			if err == nil {
				fmt.Printf("%s @ %d Hz -> %d mV\n", ev.Clock, ev.Rate, mv)
			}
		case "thermal_floor":
			err = sys.UpdateThermalIndex(ev.Rail, dvfs.ThermalFloor, ev.Index)
		case "thermal_cap":
			err = sys.UpdateThermalIndex(ev.Rail, dvfs.ThermalCap, ev.Index)
		case "suspend":
			err = sys.HandlePowerEvent(dvfs.PowerEventSuspendPrepare)
		case "resume":
			err = sys.HandlePowerEvent(dvfs.PowerEventPostSuspend)
		case "enable_rail":
			err = sys.EnableRail(ev.Rail)
		case "disable_rail":
			err = sys.DisableRail(ev.Rail)
		case "use_alt":
			err = sys.UseAltFrequencies(ev.Clock, ev.UseAlt)
		case "override":
			err = sys.SetOverride(ev.Rail, ev.MV)
		default:
			err = fmt.Errorf("unknown op %q", ev.Op)
		}
		if err != nil {
			return fmt.Errorf("event %d (%s): %w", i, ev.Op, err)
		}
		logrus.Debugf("scenario event %d (%s) ok", i, ev.Op)
	}
	return nil
}
