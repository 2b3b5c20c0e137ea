package ciflow

import "github.com/askiada/go-ciflow/pkg/ciflow/model"

// Aggregate computes the pipeline verdict from settled job results.
//
// The verdict is failure iff a required job failed, was cancelled, or was
// skipped because of an upstream required-job failure. Optional jobs are
// reported but never affect the verdict. The function is pure: aggregating
// the same results again always yields the same verdict.
func Aggregate(results map[string]model.Result) model.Verdict {
	for _, res := range results {
		if !res.Required {
			continue
		}

		switch res.Outcome {
		case model.OutcomeFailed, model.OutcomeCancelled:
			return model.VerdictFailure
		case model.OutcomeSkipped:
			if res.RequiredCause {
				return model.VerdictFailure
			}
		}
	}

	return model.VerdictSuccess
}
