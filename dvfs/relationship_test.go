package dvfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func solverRails() (*Rail, *Rail) {
	from := &Rail{Name: "from", MinMillivolts: 800, MaxMillivolts: 1100, NominalMillivolts: 1000}
	to := &Rail{Name: "to", MinMillivolts: 850, MaxMillivolts: 1200, NominalMillivolts: 1100}
	return from, to
}

func TestSolve_OffsetAtLeast(t *testing.T) {
	from, to := solverRails()
	rel := &Relationship{From: from, To: to, Policy: OffsetAtLeast, OffsetMillivolts: 120}

	from.PendingMillivolts = 900
	to.PendingMillivolts = 950
	assert.Equal(t, 1020, rel.Solve(), "source+offset above working value raises it")

	to.PendingMillivolts = 1100
	assert.Equal(t, 1100, rel.Solve(), "working value above source+offset holds")

	from.PendingMillivolts = 0
	to.PendingMillivolts = 950
	assert.Equal(t, 950, rel.Solve(), "off source imposes nothing")
}

func TestSolve_ClampToSource(t *testing.T) {
	from, to := solverRails()
	rel := &Relationship{From: from, To: to, Policy: ClampToSource}

	from.PendingMillivolts = 1000
	to.PendingMillivolts = 900
	assert.Equal(t, 1000, rel.Solve(), "tracks the source upward")

	from.PendingMillivolts = 1300 // beyond to's max
	assert.Equal(t, 1200, rel.Solve(), "source clamped into to's range")

	from.PendingMillivolts = 820 // below to's min
	to.PendingMillivolts = 800
	assert.Equal(t, 850, rel.Solve(), "source clamped up to to's min")

	from.PendingMillivolts = 0
	to.PendingMillivolts = 900
	assert.Equal(t, 900, rel.Solve(), "off source imposes nothing")
}

func TestSolve_CapAtNominalWhenInert(t *testing.T) {
	from, to := solverRails()
	rel := &Relationship{From: from, To: to, Policy: CapAtNominalWhenInert}

	from.PendingMillivolts = 0
	to.PendingMillivolts = 1200
	assert.Equal(t, 1100, rel.Solve(), "off source caps at nominal")

	to.PendingMillivolts = 1000
	assert.Equal(t, 1000, rel.Solve(), "below nominal passes through")

	from.PendingMillivolts = 900
	to.PendingMillivolts = 1200
	assert.Equal(t, 1200, rel.Solve(), "live source imposes nothing")
}

func TestParseSolverPolicy(t *testing.T) {
	for _, p := range []SolverPolicy{OffsetAtLeast, ClampToSource, CapAtNominalWhenInert} {
		got, err := ParseSolverPolicy(p.String())
		assert.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseSolverPolicy("bogus")
	assert.Error(t, err)
}

func TestAddRelationships_PopulatesBothAdjacencySets(t *testing.T) {
	s := NewSystem()
	if err := s.InitRails(twoRailDesc()); err != nil {
		t.Fatalf("InitRails: %v", err)
	}

	err := s.AddRelationships([]RelationshipDescriptor{
		{From: "vdd-cpu", To: "vdd-core", Policy: OffsetAtLeast, OffsetMillivolts: 100},
	})
	assert.NoError(t, err)

	cpu := s.railsByName["vdd-cpu"]
	core := s.railsByName["vdd-core"]
	assert.Len(t, cpu.outgoing, 1)
	assert.Len(t, core.incoming, 1)
	assert.Same(t, cpu.outgoing[0], core.incoming[0])
}

func TestAddRelationships_UnknownRail(t *testing.T) {
	s := NewSystem()
	if err := s.InitRails(twoRailDesc()); err != nil {
		t.Fatalf("InitRails: %v", err)
	}

	err := s.AddRelationships([]RelationshipDescriptor{
		{From: "vdd-cpu", To: "vdd-gpu", Policy: OffsetAtLeast},
	})
	assert.ErrorIs(t, err, ErrNoSuchRail)
}
