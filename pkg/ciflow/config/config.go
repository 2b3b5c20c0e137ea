// Package config loads pipeline definitions from YAML files.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/askiada/go-ciflow/pkg/ciflow/model"
)

// File is the on-disk pipeline definition.
type File struct {
	Name        string    `yaml:"name"`
	On          Triggers  `yaml:"on"`
	MaxParallel int       `yaml:"max_parallel,omitempty"`
	Jobs        []JobSpec `yaml:"jobs"`
}

// Triggers configures when the pipeline runs.
type Triggers struct {
	Push        *BranchFilter `yaml:"push,omitempty"`
	PullRequest *BranchFilter `yaml:"pull_request,omitempty"`
	Schedule    []string      `yaml:"schedule,omitempty"`
}

// BranchFilter lists the target branches an event matches. An empty list
// matches every branch.
type BranchFilter struct {
	Branches []string `yaml:"branches,omitempty"`
}

// JobSpec declares one job.
type JobSpec struct {
	Name      string     `yaml:"name"`
	Needs     []string   `yaml:"needs,omitempty"`
	Required  bool       `yaml:"required,omitempty"`
	RunPolicy string     `yaml:"run_policy,omitempty"`
	Timeout   string     `yaml:"timeout,omitempty"`
	Steps     []StepSpec `yaml:"steps"`
}

// StepSpec declares one opaque command inside a job.
type StepSpec struct {
	Name string `yaml:"name,omitempty"`
	Run  string `yaml:"run"`
}

// Load reads and validates a pipeline definition.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read pipeline file %s", path)
	}

	return Parse(data)
}

// Parse decodes and validates a pipeline definition.
func Parse(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "unable to decode pipeline file")
	}

	if err := file.validate(); err != nil {
		return nil, err
	}

	return &file, nil
}

func (f *File) validate() error {
	if len(f.Jobs) == 0 {
		return errors.New("pipeline declares no jobs")
	}

	for _, spec := range f.Jobs {
		if spec.Name == "" {
			return errors.New("job name is required")
		}
		if len(spec.Steps) == 0 {
			return errors.Errorf("job %s declares no steps", spec.Name)
		}
		for _, step := range spec.Steps {
			if step.Run == "" {
				return errors.Errorf("job %s has a step without a run command", spec.Name)
			}
		}
		if _, err := model.ParseRunPolicy(spec.RunPolicy); err != nil {
			return errors.Wrapf(err, "job %s", spec.Name)
		}
		if spec.Timeout != "" {
			if _, err := time.ParseDuration(spec.Timeout); err != nil {
				return errors.Wrapf(err, "job %s has an invalid timeout", spec.Name)
			}
		}
	}

	for _, spec := range f.On.Schedule {
		if _, err := cron.ParseStandard(spec); err != nil {
			return errors.Wrapf(err, "invalid cron expression %q", spec)
		}
	}

	return nil
}

// ModelJobs converts the declared jobs into the scheduler's job model.
func (f *File) ModelJobs() ([]model.Job, error) {
	jobs := make([]model.Job, 0, len(f.Jobs))

	for _, spec := range f.Jobs {
		policy, err := model.ParseRunPolicy(spec.RunPolicy)
		if err != nil {
			return nil, errors.Wrapf(err, "job %s", spec.Name)
		}

		var timeout time.Duration
		if spec.Timeout != "" {
			timeout, err = time.ParseDuration(spec.Timeout)
			if err != nil {
				return nil, errors.Wrapf(err, "job %s", spec.Name)
			}
		}

		steps := make([]model.Step, 0, len(spec.Steps))
		for _, step := range spec.Steps {
			steps = append(steps, model.Step{Name: step.Name, Run: step.Run})
		}

		jobs = append(jobs, model.Job{
			ID:       spec.Name,
			Steps:    steps,
			Needs:    append([]string(nil), spec.Needs...),
			Timeout:  timeout,
			Required: spec.Required,
			Policy:   policy,
		})
	}

	return jobs, nil
}

// Filters converts the trigger section into evaluator filters.
func (f *File) Filters() model.Filters {
	filters := model.Filters{
		Schedules: append([]string(nil), f.On.Schedule...),
	}

	if f.On.Push != nil {
		filters.PushBranches = orEmpty(f.On.Push.Branches)
	}
	if f.On.PullRequest != nil {
		filters.PullRequestBranches = orEmpty(f.On.PullRequest.Branches)
	}

	return filters
}

// orEmpty keeps a configured-but-empty filter distinguishable from an
// absent one.
func orEmpty(branches []string) []string {
	if branches == nil {
		return []string{}
	}

	return append([]string(nil), branches...)
}
