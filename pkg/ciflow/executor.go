package ciflow

import (
	"bytes"
	"context"
	"io"
	"os/exec"

	"github.com/pkg/errors"

	"github.com/askiada/go-ciflow/pkg/ciflow/model"
)

// Runner executes a single step of a job. The scheduler observes nothing
// about a step beyond its exit status and whether it finished within the
// job's timeout; a non-nil error means the step could not be started at all.
type Runner interface {
	RunStep(ctx context.Context, job model.Job, step model.Step) (exitCode int, err error)
}

// ShellRunner runs steps through `sh -c`.
type ShellRunner struct {
	// Output receives the combined stdout and stderr of every step. When
	// nil the output is discarded.
	Output io.Writer
}

// NewShellRunner creates a ShellRunner writing step output to w.
func NewShellRunner(w io.Writer) *ShellRunner {
	return &ShellRunner{Output: w}
}

// RunStep executes one step and returns its exit status. The command is
// killed when ctx is done; the caller decides whether that was a timeout or
// a cancellation.
func (r *ShellRunner) RunStep(ctx context.Context, _ model.Job, step model.Step) (int, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", step.Run)

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()

	if r.Output != nil {
		_, _ = r.Output.Write(out.Bytes())
	}

	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, errors.Wrapf(err, "unable to run step %q", step.Run)
}

var _ Runner = (*ShellRunner)(nil)
