package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckTransition(t *testing.T) {
	tcs := map[string]struct {
		from    Outcome
		to      Outcome
		wantErr bool
	}{
		"pending to running":     {from: OutcomePending, to: OutcomeRunning},
		"pending to skipped":     {from: OutcomePending, to: OutcomeSkipped},
		"running to succeeded":   {from: OutcomeRunning, to: OutcomeSucceeded},
		"running to failed":      {from: OutcomeRunning, to: OutcomeFailed},
		"running to cancelled":   {from: OutcomeRunning, to: OutcomeCancelled},
		"pending to succeeded":   {from: OutcomePending, to: OutcomeSucceeded, wantErr: true},
		"pending to failed":      {from: OutcomePending, to: OutcomeFailed, wantErr: true},
		"running to skipped":     {from: OutcomeRunning, to: OutcomeSkipped, wantErr: true},
		"succeeded is immutable": {from: OutcomeSucceeded, to: OutcomeRunning, wantErr: true},
		"failed is immutable":    {from: OutcomeFailed, to: OutcomeRunning, wantErr: true},
		"skipped never runs":     {from: OutcomeSkipped, to: OutcomeRunning, wantErr: true},
		"cancelled is immutable": {from: OutcomeCancelled, to: OutcomeSucceeded, wantErr: true},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			err := CheckTransition(tc.from, tc.to)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOutcomeTerminal(t *testing.T) {
	assert.False(t, OutcomePending.Terminal())
	assert.False(t, OutcomeRunning.Terminal())
	assert.True(t, OutcomeSucceeded.Terminal())
	assert.True(t, OutcomeFailed.Terminal())
	assert.True(t, OutcomeSkipped.Terminal())
	assert.True(t, OutcomeCancelled.Terminal())
}

func TestOutcomeBlocking(t *testing.T) {
	assert.False(t, OutcomeSucceeded.Blocking())
	assert.False(t, OutcomePending.Blocking())
	assert.True(t, OutcomeFailed.Blocking())
	assert.True(t, OutcomeCancelled.Blocking())
	assert.True(t, OutcomeSkipped.Blocking())
}

func TestParseRunPolicy(t *testing.T) {
	tcs := map[string]struct {
		in      string
		want    RunPolicy
		wantErr bool
	}{
		"empty defaults to normal": {in: "", want: PolicyNormal},
		"normal":                   {in: "normal", want: PolicyNormal},
		"always":                   {in: "always", want: PolicyAlways},
		"on failure":               {in: "on_failure", want: PolicyOnFailure},
		"unknown":                  {in: "sometimes", wantErr: true},
	}

	for name, tc := range tcs {
		tc := tc
		t.Run(name, func(t *testing.T) {
			got, err := ParseRunPolicy(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
