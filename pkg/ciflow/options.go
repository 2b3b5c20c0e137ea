package ciflow

import "github.com/askiada/go-ciflow/pkg/ciflow/model"

// Option configures a Scheduler.
type Option func(s *Scheduler)

// WithRunner sets the step runner. The default discards step output and
// runs steps through `sh -c`.
func WithRunner(r Runner) Option {
	return func(s *Scheduler) {
		s.runner = r
	}
}

// WithMaxParallel bounds how many jobs of a batch run at the same time.
// Zero or negative means no limit beyond the batch size.
func WithMaxParallel(n int) Option {
	return func(s *Scheduler) {
		s.maxParallel = n
	}
}

// WithObserver attaches an observer to the run.
func WithObserver(o model.RunObserver) Option {
	return func(s *Scheduler) {
		s.observers = append(s.observers, o)
	}
}
