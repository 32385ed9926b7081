// Package engine builds the dispatch graph for one pipeline action and
// drives single passes through it.
//
// # Overview
//
// A pipeline run is one pass of one action (bridge, input, output or
// cleanup) over the configured segments. The engine realizes each segment
// through the stage registry, asks it for the callable matching the action,
// wires the subscription graph and then folds a batch through the result:
//
//	           driving flow (declaration order)
//	┌─────────┐      ┌─────────┐      ┌─────────┐      ┌─────────┐
//	│ input   │ ───> │ filter  │ ───> │ storage │ ───> │ output  │
//	└─────────┘      └─────────┘      └────┬────┘      └─────────┘
//	                                       │ clone
//	                                       ▼
//	                                  ┌─────────┐
//	                                  │ audit   │  (subscriber)
//	                                  └─────────┘
//
// Each active segment receives the previous segment's batch and its result
// feeds the next. Segments that are inactive in the current action dispatch
// a nil callable and are skipped entirely.
//
// # Subscriptions
//
// A segment that declares module_subscription leaves the driving flow and
// instead observes the named segments: whenever an observed segment
// produces a result, the subscriber runs with a deep clone of it. Observer
// results never rejoin the driving flow, and observer chains cascade
// recursively. Build rejects unknown targets and any subscription cycle,
// so the cascade always terminates.
//
// # Build and Run
//
// Build is the fail-fast phase: registry resolution, capability checks,
// Configure and Dispatch for every segment, subscription wiring and cycle
// detection all happen before any record moves. A configuration that
// builds is safe to run. Run executes exactly one pass under a generated
// pass id and records pass and per-segment record metrics; scheduling
// repeated passes belongs to the operator (cron, systemd timers), not to
// the engine.
package engine
