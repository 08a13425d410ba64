package dvfs

import (
	"fmt"
	"io"
)

// Diagnostic dumps. All three are read-only snapshots of the rail/graph
// state taken under the System mutex; the format is for humans, not for
// parsing.

// DumpTree writes the rail tree: each rail's voltage and mode, its incoming
// relationships with their currently solved requirement, thermal state, and
// the per-clock rates and demands.
func (s *System) DumpTree(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(w, "   clock           rate       mV\n")
	fmt.Fprintf(w, "-------------------------------------\n")

	for _, r := range s.rails {
		mode := ""
		if r.ContinuousMode {
			mode = " continuous mode"
		} else if r.Disabled {
			mode = " disabled"
		} else if r.Suspended {
			mode = " suspended"
		}
		mv := r.Millivolts
		if r.Stats.Off {
			mv = 0
		}
		fmt.Fprintf(w, "%s %d mV%s:\n", r.Name, mv, mode)

		for _, rel := range r.incoming {
			fmt.Fprintf(w, "   %-10s %-7d mV %s -> %-4d mV\n",
				rel.From.Name, rel.From.Millivolts, rel.Policy, rel.Solve())
		}
		fmt.Fprintf(w, "   nominal    %-7d mV\n", r.NominalMillivolts)

		floor := 0
		if len(r.ThermFloors) > 0 && r.ThermFloorIdx < len(r.ThermFloors) {
			floor = r.ThermFloors[r.ThermFloorIdx].Millivolts
		}
		fmt.Fprintf(w, "   therm_floor    %-7d mV\n", floor)

		capMV := 0
		if len(r.ThermCaps) > 0 && r.ThermCapIdx > 0 {
			capMV = r.ThermCaps[r.ThermCapIdx-1].Millivolts
		}
		fmt.Fprintf(w, "   therm_cap    %-7d mV\n", capMV)

		for _, c := range r.clocks {
			fmt.Fprintf(w, "   %-15s %-10d %-4d mV\n", c.Name, c.CurRate, c.CurMillivolts)
		}
	}
}

// DumpTables writes every clock's frequency/voltage tables in mV/MHz.
func (s *System) DumpTables(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(w, "voltage tables: units mV/MHz\n")

	for _, r := range s.rails {
		for _, c := range r.clocks {
			fmt.Fprintf(w, "\n%-16s", r.Name)
			for _, mv := range c.Millivolts {
				fmt.Fprintf(w, "%7d", mv)
			}
			fmt.Fprintf(w, "\n")

			if len(c.ContinuousMillivolts) > 0 {
				fmt.Fprintf(w, "%-8s (cont.) ", r.Name)
				for _, mv := range c.ContinuousMillivolts {
					fmt.Fprintf(w, "%7d", mv)
				}
				fmt.Fprintf(w, "\n")
			}

			fmt.Fprintf(w, "%-16s", c.Name)
			for _, f := range c.Freqs {
				fmt.Fprintf(w, " %6.1f", float64(f)/1e6)
			}
			fmt.Fprintf(w, "\n")

			if c.AltFreqs != nil {
				fmt.Fprintf(w, "%-10s (alt)", c.Name)
				for _, f := range c.AltFreqs {
					fmt.Fprintf(w, " %6.1f", float64(f)/1e6)
				}
				fmt.Fprintf(w, "\n")
			}
		}
	}
}

// DumpStats writes each rail's time-at-voltage histogram, flushing the
// running bin first so totals are current. Empty bins are skipped.
func (s *System) DumpStats(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(w, "%-12s %-10s\n", "millivolts", "time")

	for _, r := range s.rails {
		fmt.Fprintf(w, "%s (bin: %d.%dmV)\n", r.Name,
			r.Stats.BinUV/1000, (r.Stats.BinUV/10)%100)

		r.Stats.flush(s.now())

		fmt.Fprintf(w, "%-12d %-10d\n", 0, r.Stats.TimeAt[0].Milliseconds())
		for i := 1; i <= statsTopBin; i++ {
			if r.Stats.TimeAt[i] == 0 {
				continue
			}
			fmt.Fprintf(w, "%-12d %-10d\n",
				r.Stats.BinMillivolts(i), r.Stats.TimeAt[i].Milliseconds())
		}
	}
}
