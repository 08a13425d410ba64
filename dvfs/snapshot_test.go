package dvfs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_DumpsCoverRailsClocksAndEdges(t *testing.T) {
	descs := twoRailDesc()
	descs[0].ThermFloors = []ThermLimit{{Temperature: 0, Millivolts: 950}}
	s, regs := startSystem(t, descs, map[string]int{"vdd-cpu": 850})
	mustSetupClock(t, s, "cclk", "vdd-cpu",
		[]uint64{100e6, 400e6}, []int{850, 1000})
	require.NoError(t, s.AddRelationships([]RelationshipDescriptor{
		{From: "vdd-cpu", To: "vdd-core", Policy: OffsetAtLeast, OffsetMillivolts: 100},
	}))
	mustStart(t, s, regs)
	require.NoError(t, s.SetRate("cclk", 400e6))

	var tree bytes.Buffer
	s.DumpTree(&tree)
	out := tree.String()
	assert.Contains(t, out, "vdd-cpu 1000 mV")
	assert.Contains(t, out, "cclk")
	assert.Contains(t, out, "offset-at-least")
	assert.Contains(t, out, "therm_floor")

	var tables bytes.Buffer
	s.DumpTables(&tables)
	assert.Contains(t, tables.String(), "voltage tables")
	assert.Contains(t, tables.String(), "cclk")

	var stats bytes.Buffer
	s.DumpStats(&stats)
	assert.Contains(t, stats.String(), "vdd-cpu")
	assert.Contains(t, stats.String(), "millivolts")
}
