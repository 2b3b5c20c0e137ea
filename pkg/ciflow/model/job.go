package model

import (
	"time"

	"github.com/pkg/errors"
)

// Outcome is the execution status of a job.
type Outcome string

const (
	OutcomePending   Outcome = "pending"
	OutcomeRunning   Outcome = "running"
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeCancelled Outcome = "cancelled"
)

// Terminal reports whether the outcome is final. A terminal outcome never
// changes again.
func (o Outcome) Terminal() bool {
	switch o {
	case OutcomeSucceeded, OutcomeFailed, OutcomeSkipped, OutcomeCancelled:
		return true
	default:
		return false
	}
}

// Blocking reports whether the outcome prevents dependants from running.
func (o Outcome) Blocking() bool {
	switch o {
	case OutcomeFailed, OutcomeCancelled, OutcomeSkipped:
		return true
	default:
		return false
	}
}

// ErrInvalidTransition is returned when an outcome transition breaks the job
// state machine.
var ErrInvalidTransition = errors.New("invalid outcome transition")

// CheckTransition validates an outcome transition.
//
// Allowed transitions: pending -> running, pending -> skipped,
// running -> succeeded | failed | cancelled. A skipped job never runs, and a
// terminal outcome is immutable.
func CheckTransition(from, to Outcome) error {
	allowed := false

	switch from {
	case OutcomePending:
		allowed = to == OutcomeRunning || to == OutcomeSkipped
	case OutcomeRunning:
		allowed = to == OutcomeSucceeded || to == OutcomeFailed || to == OutcomeCancelled
	}

	if !allowed {
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", from, to)
	}

	return nil
}

// RunPolicy controls when a job starts relative to its upstream outcomes.
type RunPolicy string

const (
	// PolicyNormal skips the job when any dependency failed, was cancelled
	// or was skipped.
	PolicyNormal RunPolicy = "normal"
	// PolicyAlways runs the job regardless of upstream outcomes.
	PolicyAlways RunPolicy = "always"
	// PolicyOnFailure runs the job only when at least one dependency
	// failed, was cancelled or was skipped.
	PolicyOnFailure RunPolicy = "on_failure"
)

// ParseRunPolicy converts a configuration string into a RunPolicy.
// An empty string maps to PolicyNormal.
func ParseRunPolicy(s string) (RunPolicy, error) {
	switch RunPolicy(s) {
	case "", PolicyNormal:
		return PolicyNormal, nil
	case PolicyAlways:
		return PolicyAlways, nil
	case PolicyOnFailure:
		return PolicyOnFailure, nil
	}

	return "", errors.Errorf("unknown run policy %q", s)
}

// Step is a single opaque command inside a job. Only its exit status is
// observed.
type Step struct {
	Name string
	Run  string
}

// Job is a named unit of pipeline work.
type Job struct {
	ID       string
	Steps    []Step
	Needs    []string
	Timeout  time.Duration
	Required bool
	Policy   RunPolicy
}
