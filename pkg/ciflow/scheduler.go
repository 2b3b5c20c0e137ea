package ciflow

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/askiada/go-ciflow/pkg/ciflow/model"
)

// Scheduler executes a job graph batch by batch.
//
// Jobs inside a batch run concurrently, bounded by the optional parallelism
// limit. A batch must fully settle before the next one starts, since any
// later job may depend on any job of the current batch. Outcomes are
// recorded exactly once per job, by the goroutine that settles it, and are
// read-only afterwards.
type Scheduler struct {
	graph       *Graph
	runner      Runner
	maxParallel int
	observers   []model.RunObserver

	mu      sync.Mutex
	state   map[string]model.Outcome
	results map[string]model.Result
	ran     bool
}

// NewScheduler creates a scheduler for the given graph.
func NewScheduler(g *Graph, opts ...Option) (*Scheduler, error) {
	if g == nil {
		return nil, ErrGraphMustBeSet
	}

	s := &Scheduler{
		graph:   g,
		runner:  NewShellRunner(io.Discard),
		state:   make(map[string]model.Outcome, g.Len()),
		results: make(map[string]model.Result, g.Len()),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.runner == nil {
		return nil, ErrRunnerMustBeSet
	}

	for _, id := range g.JobIDs() {
		s.state[id] = model.OutcomePending
	}

	return s, nil
}

// Run executes the whole graph and returns the settled per-job results.
//
// Step failures and timeouts never surface as errors; they become the
// owning job's terminal outcome. The returned error only reports scheduler
// misuse or a runner that could not start a step. A scheduler runs once.
func (s *Scheduler) Run(ctx context.Context) (map[string]model.Result, error) {
	s.mu.Lock()
	if s.ran {
		s.mu.Unlock()
		return nil, errors.New("scheduler already ran")
	}
	s.ran = true
	s.mu.Unlock()

	if ctx == nil {
		ctx = context.Background()
	}

	// stopCause is set to the first required job that failed or was
	// cancelled. Once set, running jobs finish but no new batch starts.
	stopCause := ""

	it := s.graph.Batches()

	for {
		batch, ok := it.Next()
		if !ok {
			break
		}

		launch := make([]model.Job, 0, len(batch))

		for _, id := range batch {
			job, _ := s.graph.Job(id)

			if res, skip := s.preflight(job, stopCause, ctx.Err() != nil); skip {
				if err := s.settle(job, res); err != nil {
					return nil, err
				}

				continue
			}

			launch = append(launch, job)
		}

		grp := &errgroup.Group{}
		if s.maxParallel > 0 {
			grp.SetLimit(s.maxParallel)
		}

		for _, job := range launch {
			job := job
			grp.Go(func() error {
				return s.runJob(ctx, job)
			})
		}

		// Batch barrier: wait for every sibling to settle before the
		// next batch is considered.
		if err := grp.Wait(); err != nil {
			return nil, err
		}

		if stopCause == "" {
			stopCause = s.firstRequiredFailure()
		}
	}

	results := s.Results()
	verdict := Aggregate(results)

	for _, obs := range s.observers {
		obs.RunFinished(verdict, results)
	}

	return results, nil
}

// Results returns a copy of the settled results recorded so far. Outcomes
// are visible job by job while the run is still in flight.
func (s *Scheduler) Results() map[string]model.Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]model.Result, len(s.results))
	for id, res := range s.results {
		out[id] = res
	}

	return out
}

// preflight decides whether a job must be skipped instead of launched.
func (s *Scheduler) preflight(job model.Job, stopCause string, cancelled bool) (model.Result, bool) {
	if job.Policy == model.PolicyAlways {
		if cancelled {
			return s.skipResult(job, model.ReasonCancelled, ""), true
		}

		return model.Result{}, false
	}

	if cancelled {
		return s.skipResult(job, model.ReasonCancelled, ""), true
	}

	if stopCause != "" {
		res := s.skipResult(job, model.ReasonUpstream, stopCause)
		res.RequiredCause = true

		return res, true
	}

	s.mu.Lock()
	blockers := make([]model.Result, 0, len(job.Needs))
	for _, dep := range s.graph.Dependencies(job.ID) {
		if res, ok := s.results[dep]; ok && res.Outcome.Blocking() {
			blockers = append(blockers, res)
		}
	}
	s.mu.Unlock()

	if job.Policy == model.PolicyOnFailure {
		if len(blockers) == 0 {
			return s.skipResult(job, model.ReasonNoFailure, ""), true
		}

		return model.Result{}, false
	}

	if len(blockers) == 0 {
		return model.Result{}, false
	}

	res := s.skipResult(job, model.ReasonUpstream, blockers[0].JobID)
	for _, b := range blockers {
		if b.Required && (b.Outcome == model.OutcomeFailed || b.Outcome == model.OutcomeCancelled) {
			res.RequiredCause = true
		}
		if b.Outcome == model.OutcomeSkipped && b.RequiredCause {
			res.RequiredCause = true
		}
	}

	return res, true
}

func (s *Scheduler) skipResult(job model.Job, reason, cause string) model.Result {
	return model.Result{
		JobID:    job.ID,
		Required: job.Required,
		Outcome:  model.OutcomeSkipped,
		Reason:   reason,
		Cause:    cause,
	}
}

// transition moves a job to a non-terminal outcome under the state lock.
func (s *Scheduler) transition(id string, to model.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := model.CheckTransition(s.state[id], to); err != nil {
		return errors.Wrapf(err, "job %s", id)
	}

	s.state[id] = to

	return nil
}

// runJob executes a job's steps sequentially and settles its outcome.
func (s *Scheduler) runJob(ctx context.Context, job model.Job) error {
	if err := s.transition(job.ID, model.OutcomeRunning); err != nil {
		return err
	}

	s.graph.Annotate(job.ID, model.OutcomeRunning)
	for _, obs := range s.observers {
		obs.JobStarted(job)
	}

	jobCtx := ctx
	cancel := context.CancelFunc(func() {})
	if job.Timeout > 0 {
		jobCtx, cancel = context.WithTimeout(ctx, job.Timeout)
	}
	defer cancel()

	start := time.Now()
	res := model.Result{
		JobID:    job.ID,
		Required: job.Required,
		Outcome:  model.OutcomeSucceeded,
	}

	for _, step := range job.Steps {
		code, err := s.runner.RunStep(jobCtx, job, step)
		res.ExitCode = code

		switch {
		case ctx.Err() != nil:
			// The whole run was cancelled; the job never gets to
			// finish its steps.
			res.Outcome = model.OutcomeCancelled
			res.Reason = model.ReasonCancelled
		case errors.Is(jobCtx.Err(), context.DeadlineExceeded):
			res.Outcome = model.OutcomeFailed
			res.Reason = model.ReasonTimeout
		case err != nil:
			res.Outcome = model.OutcomeFailed
			res.Reason = err.Error()
		case code != 0:
			res.Outcome = model.OutcomeFailed
			res.Reason = model.ReasonStep
		default:
			continue
		}

		break
	}

	res.Duration = time.Since(start)

	return s.settle(job, res)
}

// settle records a job's terminal result. It is called exactly once per job.
func (s *Scheduler) settle(job model.Job, res model.Result) error {
	s.mu.Lock()

	if err := model.CheckTransition(s.state[job.ID], res.Outcome); err != nil {
		s.mu.Unlock()
		return errors.Wrapf(err, "job %s", job.ID)
	}
	if _, done := s.results[job.ID]; done {
		s.mu.Unlock()
		return errors.Errorf("job %s settled twice", job.ID)
	}

	s.state[job.ID] = res.Outcome
	s.results[job.ID] = res
	s.mu.Unlock()

	s.graph.Annotate(job.ID, res.Outcome)
	for _, obs := range s.observers {
		obs.JobSettled(job, res)
	}

	return nil
}

func (s *Scheduler) firstRequiredFailure() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.graph.JobIDs() {
		res, ok := s.results[id]
		if !ok || !res.Required {
			continue
		}
		if res.Outcome == model.OutcomeFailed || res.Outcome == model.OutcomeCancelled {
			return id
		}
	}

	return ""
}
