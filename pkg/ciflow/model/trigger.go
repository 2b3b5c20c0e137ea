package model

import "time"

// EventKind is the kind of event that started a pipeline invocation.
type EventKind string

const (
	EventPush        EventKind = "push"
	EventPullRequest EventKind = "pull_request"
	EventSchedule    EventKind = "schedule"
	EventManual      EventKind = "manual"
)

// TriggerContext describes one pipeline invocation. It is created once per
// run and never mutated.
type TriggerContext struct {
	Event   EventKind
	Branch  string
	FiredAt time.Time
}

// Filters is the trigger configuration a TriggerContext is evaluated
// against.
//
// A nil branch list means the matching event kind is not configured at all;
// an empty-but-present list matches every branch.
type Filters struct {
	PushBranches        []string
	PullRequestBranches []string
	Schedules           []string
}
