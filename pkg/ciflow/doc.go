// Package ciflow schedules a directed acyclic graph of CI jobs and computes
// a single pipeline verdict from their outcomes.
//
// A pipeline is a set of jobs with declared dependencies. The graph is
// validated up front, including cycle detection, and scheduled in
// topological batches: every job in a batch has all of its dependencies
// settled in an earlier batch, so batches bound the available parallelism
// and act as hard synchronisation barriers. Upstream failures propagate
// downstream as skips rather than errors, and a per-job run policy can
// override that propagation.
//
// The verdict follows a two-tier policy: a failing required job fails the
// pipeline, a failing optional job never does.
package ciflow
