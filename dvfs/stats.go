package dvfs

import (
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// statsBinDefaultUV is the default histogram bin width in microvolts.
	statsBinDefaultUV = 12500
	// statsTopBin is the highest voltage bin; bin 0 counts time spent off.
	statsTopBin = 40
)

// RailStats is the time-at-voltage histogram for one rail. Bin 0 accumulates
// time with the rail off; bins 1..statsTopBin cover BinUV-wide slices above
// the rail minimum, with everything beyond the range squashed into the top
// bin.
type RailStats struct {
	BinUV  int
	Off    bool
	TimeAt [statsTopBin + 1]time.Duration

	minMillivolts int
	lastIndex     int
	lastUpdate    time.Time
}

func (st *RailStats) binIndex(millivolts int) int {
	i := 1 + (2*(millivolts-st.minMillivolts)*1000+st.BinUV)/(2*st.BinUV)
	return min(i, statsTopBin)
}

func (st *RailStats) init(r *Rail, millivolts int, now time.Time) {
	if st.BinUV == 0 {
		st.BinUV = statsBinDefaultUV
	}
	st.minMillivolts = r.MinMillivolts
	statsRange := (statsTopBin - 1) * st.BinUV / 1000

	st.lastUpdate = now
	if millivolts >= r.MinMillivolts {
		st.lastIndex = st.binIndex(millivolts)
	}

	if r.MaxMillivolts > r.MinMillivolts+statsRange {
		logrus.Warnf("dvfs: %s: stats above %d mV will be squashed",
			r.Name, r.MinMillivolts+statsRange)
	}
}

// update accumulates elapsed time into the current bin, then moves to the
// bin for millivolts. An off rail keeps accumulating into its last bin.
func (st *RailStats) update(millivolts int, now time.Time) {
	st.TimeAt[st.lastIndex] += now.Sub(st.lastUpdate)
	st.lastUpdate = now

	if st.Off {
		return
	}

	if millivolts >= st.minMillivolts {
		st.lastIndex = st.binIndex(millivolts)
	} else if millivolts == 0 {
		st.lastIndex = 0
	}
}

// flush accumulates elapsed time without changing the current bin. Used by
// the diagnostic dump so histogram totals are current at read time.
func (st *RailStats) flush(now time.Time) {
	st.TimeAt[st.lastIndex] += now.Sub(st.lastUpdate)
	st.lastUpdate = now
}

// setOff marks the rail powered off or back on for accounting purposes.
func (st *RailStats) setOff(off bool, millivolts int, now time.Time) {
	st.flush(now)
	st.Off = off
	if off {
		st.lastIndex = 0
	} else if millivolts >= st.minMillivolts {
		st.lastIndex = st.binIndex(millivolts)
	}
}

// BinMillivolts returns the lower edge of bin i, in millivolts. Bin 0 is the
// off bin and reports 0.
func (st *RailStats) BinMillivolts(i int) int {
	if i == 0 {
		return 0
	}
	return st.minMillivolts + (i-1)*st.BinUV/1000
}
