package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askiada/go-ciflow/pkg/ciflow/model"
)

const samplePipeline = `
name: build-and-test
on:
  push:
    branches: [main]
  pull_request:
    branches: [main, develop]
  schedule:
    - "0 3 * * *"
max_parallel: 4
jobs:
  - name: lint
    required: true
    steps:
      - run: make lint
  - name: build
    required: true
    timeout: 10m
    steps:
      - name: compile
        run: make build
  - name: unit
    required: true
    needs: [build]
    steps:
      - run: make test
  - name: bench
    needs: [build]
    steps:
      - run: make bench
  - name: cleanup
    needs: [unit, bench]
    run_policy: always
    steps:
      - run: make clean
`

func TestParse(t *testing.T) {
	file, err := Parse([]byte(samplePipeline))
	require.NoError(t, err)

	assert.Equal(t, "build-and-test", file.Name)
	assert.Equal(t, 4, file.MaxParallel)
	require.Len(t, file.Jobs, 5)

	jobs, err := file.ModelJobs()
	require.NoError(t, err)
	require.Len(t, jobs, 5)

	byID := map[string]model.Job{}
	for _, j := range jobs {
		byID[j.ID] = j
	}

	assert.True(t, byID["lint"].Required)
	assert.False(t, byID["bench"].Required)
	assert.Equal(t, 10*time.Minute, byID["build"].Timeout)
	assert.Equal(t, model.PolicyAlways, byID["cleanup"].Policy)
	assert.Equal(t, model.PolicyNormal, byID["unit"].Policy)
	assert.Equal(t, []string{"unit", "bench"}, byID["cleanup"].Needs)
	require.Len(t, byID["build"].Steps, 1)
	assert.Equal(t, "compile", byID["build"].Steps[0].Name)
	assert.Equal(t, "make build", byID["build"].Steps[0].Run)
}

func TestParseFilters(t *testing.T) {
	file, err := Parse([]byte(samplePipeline))
	require.NoError(t, err)

	filters := file.Filters()
	assert.Equal(t, []string{"main"}, filters.PushBranches)
	assert.Equal(t, []string{"main", "develop"}, filters.PullRequestBranches)
	assert.Equal(t, []string{"0 3 * * *"}, filters.Schedules)
}

func TestParseFiltersPresence(t *testing.T) {
	file, err := Parse([]byte(`
name: p
on:
  push: {}
jobs:
  - name: a
    steps:
      - run: "true"
`))
	require.NoError(t, err)

	filters := file.Filters()
	// Configured without branches: present and matches everything.
	assert.NotNil(t, filters.PushBranches)
	assert.Empty(t, filters.PushBranches)
	// Never configured: absent.
	assert.Nil(t, filters.PullRequestBranches)
}

func TestParseRejects(t *testing.T) {
	tcs := map[string]struct {
		yaml string
	}{
		"no jobs": {yaml: `name: p`},
		"job without name": {yaml: `
jobs:
  - steps:
      - run: "true"
`},
		"job without steps": {yaml: `
jobs:
  - name: a
`},
		"step without run": {yaml: `
jobs:
  - name: a
    steps:
      - name: nope
`},
		"unknown run policy": {yaml: `
jobs:
  - name: a
    run_policy: perhaps
    steps:
      - run: "true"
`},
		"bad timeout": {yaml: `
jobs:
  - name: a
    timeout: soon
    steps:
      - run: "true"
`},
		"bad cron": {yaml: `
on:
  schedule: ["not cron"]
jobs:
  - name: a
    steps:
      - run: "true"
`},
		"not yaml": {yaml: `{{`},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.yml")
	require.NoError(t, os.WriteFile(path, []byte(samplePipeline), 0o644))

	file, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "build-and-test", file.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}
