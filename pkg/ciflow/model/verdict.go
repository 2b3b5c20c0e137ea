package model

import "time"

// Verdict is the single pass/fail result of a pipeline run.
type Verdict string

const (
	VerdictSuccess Verdict = "success"
	VerdictFailure Verdict = "failure"
)

// Well-known result reasons.
const (
	ReasonTimeout   = "timeout"
	ReasonStep      = "step failed"
	ReasonCancelled = "run cancelled"
	ReasonUpstream  = "upstream failure"
	ReasonNoFailure = "no upstream failure"
)

// Result is the settled record for one job. Each job's result is written
// exactly once by the scheduler and is read-only afterwards.
type Result struct {
	JobID    string
	Required bool
	Outcome  Outcome

	// Reason explains a failed or skipped outcome.
	Reason string

	// Cause is the upstream job whose outcome caused a skip.
	Cause string

	// RequiredCause is true when a skip traces back, directly or through
	// other skipped jobs, to a failed or cancelled required job.
	RequiredCause bool

	ExitCode int
	Duration time.Duration
}

// RunObserver receives scheduling events as the run progresses. All
// callbacks happen from the scheduler goroutine that settles the job, never
// concurrently for the same job.
type RunObserver interface {
	// JobStarted runs right after a job transitions to running.
	JobStarted(job Job)
	// JobSettled runs once a job reaches a terminal outcome.
	JobSettled(job Job, res Result)
	// RunFinished runs once after every reachable job is terminal.
	RunFinished(verdict Verdict, results map[string]Result)
}
