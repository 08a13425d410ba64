// Package dvfs implements dynamic voltage scaling for a set of interdependent
// power rails: given the clock frequencies active on each rail, it computes
// the minimum voltage every rail must supply and steps the physical regulator
// there in bounded increments.
//
// # Reading Guide
//
// Start with these three files to understand the core engine:
//   - rail.go: Rail state, the System registry, and the regulator connect phase
//   - resolve.go: demand resolution (max clock demand, thermal clamp, fixed
//     point over incoming relationship edges)
//   - ramp.go: the stepped ramp engine with two-phase change propagation
//
// # Architecture
//
// A System owns all rails and clocks behind one mutex. External triggers
// (rate changes, thermal index pushes, suspend/resume) lock it, then the
// resolve/ramp pair recurses synchronously across the relationship graph.
// Re-entry into a rail mid-ramp is cut by that rail's own recursion guard,
// and circular dependencies converge through a bounded fixed-point loop,
// so the recursion terminates regardless of graph shape.
//
// # Key Interfaces
//
// Hardware sits behind small interfaces so the engine is testable without
// a board:
//   - Regulator: voltage read/write and enable/disable for one rail
//   - RegulatorProvider: the one-time connect phase at Start
//
// SimRegulator implements Regulator in-package for tests and the CLI.
package dvfs
