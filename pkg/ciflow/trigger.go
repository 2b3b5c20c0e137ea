package ciflow

import (
	"time"

	"github.com/robfig/cron/v3"

	"github.com/askiada/go-ciflow/pkg/ciflow/model"
)

// ShouldRun decides whether a pipeline invocation runs at all. It is a pure
// function of the trigger context and the configured filters.
//
// Push and pull_request events match only when their event kind is
// configured and the target branch is listed (an empty-but-present branch
// list matches every branch). Schedule events match when one of the
// configured cron expressions fires at the trigger time, compared at minute
// precision. Manual triggers always run. An unmatched trigger makes the
// whole pipeline a no-op, not a failure.
func ShouldRun(tc model.TriggerContext, filters model.Filters) bool {
	switch tc.Event {
	case model.EventManual:
		return true
	case model.EventPush:
		return branchMatches(tc.Branch, filters.PushBranches)
	case model.EventPullRequest:
		return branchMatches(tc.Branch, filters.PullRequestBranches)
	case model.EventSchedule:
		return scheduleMatches(tc.FiredAt, filters.Schedules)
	}

	return false
}

func branchMatches(branch string, configured []string) bool {
	if configured == nil {
		return false
	}
	if len(configured) == 0 {
		return true
	}

	for _, b := range configured {
		if b == branch {
			return true
		}
	}

	return false
}

func scheduleMatches(firedAt time.Time, specs []string) bool {
	if firedAt.IsZero() {
		return false
	}

	minute := firedAt.Truncate(time.Minute)

	for _, spec := range specs {
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			// Invalid expressions are rejected at configuration load;
			// one slipping through must not fire the pipeline.
			continue
		}

		if sched.Next(minute.Add(-time.Second)).Equal(minute) {
			return true
		}
	}

	return false
}
