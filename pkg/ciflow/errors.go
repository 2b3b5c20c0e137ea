package ciflow

import (
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrNoJobs            = errors.New("pipeline has no jobs")
	ErrDuplicateJob      = errors.New("duplicate job id")
	ErrUnknownDependency = errors.New("dependency references unknown job")
	ErrSelfDependency    = errors.New("job depends on itself")
	ErrCycle             = errors.New("dependency cycle")
	ErrRunnerMustBeSet   = errors.New("runner must be set")
	ErrGraphMustBeSet    = errors.New("graph must be set")
)

// CycleError reports a dependency cycle found during graph validation.
// Path holds the job ids along the cycle, closing on the first id.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return "dependency cycle: " + strings.Join(e.Path, " -> ")
}

func (e *CycleError) Unwrap() error { return ErrCycle }
