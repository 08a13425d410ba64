package dvfs

import "fmt"

// SolverPolicy enumerates how a relationship edge constrains the dependent
// rail's voltage. Policies are enumerated rather than opaque functions so
// each variant is exhaustively testable.
type SolverPolicy int

const (
	// OffsetAtLeast requires To to supply at least From's pending voltage
	// plus OffsetMillivolts. An off source (pending 0) imposes nothing.
	OffsetAtLeast SolverPolicy = iota

	// ClampToSource makes To track From's pending voltage, clamped into
	// To's static range. An off source imposes nothing.
	ClampToSource

	// CapAtNominalWhenInert caps To at its nominal voltage while From is
	// off. The only policy that can lower the working value.
	CapAtNominalWhenInert
)

func (p SolverPolicy) String() string {
	switch p {
	case OffsetAtLeast:
		return "offset-at-least"
	case ClampToSource:
		return "clamp-to-source"
	case CapAtNominalWhenInert:
		return "cap-at-nominal-when-inert"
	}
	return "unknown"
}

// ParseSolverPolicy converts a descriptor string to a SolverPolicy.
func ParseSolverPolicy(s string) (SolverPolicy, error) {
	switch s {
	case "offset-at-least":
		return OffsetAtLeast, nil
	case "clamp-to-source":
		return ClampToSource, nil
	case "cap-at-nominal-when-inert":
		return CapAtNominalWhenInert, nil
	}
	return 0, fmt.Errorf("unknown solver policy %q", s)
}

// Relationship is a directed dependency edge: To's voltage must satisfy
// Policy relative to From's. Edges are registered in bulk before any rail
// becomes active and are immutable afterwards.
type Relationship struct {
	From *Rail
	To   *Rail

	Policy           SolverPolicy
	OffsetMillivolts int

	// SolvedAtNominal marks the dependency inert at the suspend point,
	// letting To suspend before From.
	SolvedAtNominal bool
}

// Solve returns the voltage To must supply given the current working value
// To.PendingMillivolts and the source's From.PendingMillivolts. During a
// ramp of From the pending value is the voltage about to be (or just)
// written, which is what a dependent rail must pre-satisfy.
func (rel *Relationship) Solve() int {
	working := rel.To.PendingMillivolts
	source := rel.From.PendingMillivolts

	switch rel.Policy {
	case OffsetAtLeast:
		if source == 0 {
			return working
		}
		return max(working, source+rel.OffsetMillivolts)
	case ClampToSource:
		if source == 0 {
			return working
		}
		return max(working, clamp(source, rel.To.MinMillivolts, rel.To.MaxMillivolts))
	case CapAtNominalWhenInert:
		if source == 0 {
			return min(working, rel.To.NominalMillivolts)
		}
		return working
	}
	return working
}

// RelationshipDescriptor declares one edge for AddRelationships.
type RelationshipDescriptor struct {
	From             string
	To               string
	Policy           SolverPolicy
	OffsetMillivolts int
	SolvedAtNominal  bool
}

// AddRelationships registers a batch of dependency edges, appending each to
// the source's outgoing set and the dependent's incoming set. No cycle
// detection: cycles are expected and broken at resolution time by the
// per-rail recursion guard and the bounded fixed-point loop.
func (s *System) AddRelationships(descs []RelationshipDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range descs {
		from, ok := s.railsByName[d.From]
		if !ok {
			return fmt.Errorf("relationship from %s: %w", d.From, ErrNoSuchRail)
		}
		to, ok := s.railsByName[d.To]
		if !ok {
			return fmt.Errorf("relationship to %s: %w", d.To, ErrNoSuchRail)
		}

		rel := &Relationship{
			From:             from,
			To:               to,
			Policy:           d.Policy,
			OffsetMillivolts: d.OffsetMillivolts,
			SolvedAtNominal:  d.SolvedAtNominal,
		}
		from.outgoing = append(from.outgoing, rel)
		to.incoming = append(to.incoming, rel)
	}

	return nil
}
