package ciflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askiada/go-ciflow/pkg/ciflow/model"
)

func res(id string, required bool, outcome model.Outcome, requiredCause bool) model.Result {
	return model.Result{JobID: id, Required: required, Outcome: outcome, RequiredCause: requiredCause}
}

func TestAggregate(t *testing.T) {
	tcs := map[string]struct {
		results map[string]model.Result
		want    model.Verdict
	}{
		"all succeeded": {
			results: map[string]model.Result{
				"a": res("a", true, model.OutcomeSucceeded, false),
				"b": res("b", false, model.OutcomeSucceeded, false),
			},
			want: model.VerdictSuccess,
		},
		"required failed": {
			results: map[string]model.Result{
				"a": res("a", true, model.OutcomeFailed, false),
			},
			want: model.VerdictFailure,
		},
		"required cancelled": {
			results: map[string]model.Result{
				"a": res("a", true, model.OutcomeCancelled, false),
			},
			want: model.VerdictFailure,
		},
		"optional failed": {
			results: map[string]model.Result{
				"a": res("a", true, model.OutcomeSucceeded, false),
				"b": res("b", false, model.OutcomeFailed, false),
			},
			want: model.VerdictSuccess,
		},
		"required skipped behind required failure": {
			results: map[string]model.Result{
				"a": res("a", true, model.OutcomeFailed, false),
				"b": res("b", true, model.OutcomeSkipped, true),
			},
			want: model.VerdictFailure,
		},
		"required skipped behind optional failure": {
			results: map[string]model.Result{
				"a": res("a", false, model.OutcomeFailed, false),
				"b": res("b", true, model.OutcomeSkipped, false),
			},
			want: model.VerdictSuccess,
		},
		"optional skipped": {
			results: map[string]model.Result{
				"a": res("a", true, model.OutcomeSucceeded, false),
				"b": res("b", false, model.OutcomeSkipped, true),
			},
			want: model.VerdictSuccess,
		},
		"empty": {
			results: map[string]model.Result{},
			want:    model.VerdictSuccess,
		},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Aggregate(tc.results))
		})
	}
}

func TestAggregateIdempotent(t *testing.T) {
	results := map[string]model.Result{
		"a": res("a", true, model.OutcomeFailed, false),
		"b": res("b", true, model.OutcomeSkipped, true),
		"c": res("c", false, model.OutcomeSucceeded, false),
	}

	first := Aggregate(results)
	second := Aggregate(results)

	assert.Equal(t, first, second)
	assert.Equal(t, model.VerdictFailure, first)
}
