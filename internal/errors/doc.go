// Package errors provides coded, structured errors for vgraph.
//
// Every configuration or runtime failure the graph reports carries a short
// code (e.g. "G001") that maps to a registered message and explanation.
// Errors wrap the sentinel they stand for, so callers keep using the
// standard library:
//
//	err := errors.New("G001").WithSubject("user.name").Wrap(graph.ErrNotFound)
//	stderrors.Is(err, graph.ErrNotFound) // true
//
// # Categories
//
//   - config: wiring bugs found at registration time (duplicate IDs,
//     conflicting providers, cycles)
//   - runtime: failures of an individual read or write
//   - manifest: HCL manifest problems, usually with a source location
//   - cli: command-line usage errors
//
// # Terminal output
//
// Format renders an error with its location, source excerpt and hint:
//
//	ERROR G003: Node re-registered with a different shape
//
//	  graph.hcl:12:3
//
//	    11 │ node "total" {
//	  → 12 │   params = ["price", "qty"]
//	       │   ^
//	    13 │ }
//
//	  Hint: register each node once, from a single registration table
package errors
