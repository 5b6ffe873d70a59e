package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunStartsPending(t *testing.T) {
	run := NewRun(OpFullProvision, []string{"cp1", "w1"})

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, StatusPlanning, run.Status)
	assert.True(t, run.Resumable)
	require.Len(t, run.Outcomes, 2)
	assert.Equal(t, OutcomePending, run.Outcomes["cp1"].State)
}

func TestFinalStatusAggregation(t *testing.T) {
	tests := []struct {
		name   string
		states map[string]OutcomeState
		want   RunStatus
	}{
		{
			name:   "all succeeded",
			states: map[string]OutcomeState{"a": OutcomeSucceeded, "b": OutcomeSucceeded},
			want:   StatusSucceeded,
		},
		{
			name:   "mixed success and failure",
			states: map[string]OutcomeState{"a": OutcomeSucceeded, "b": OutcomeFailed},
			want:   StatusPartiallyFailed,
		},
		{
			name:   "all failed",
			states: map[string]OutcomeState{"a": OutcomeFailed, "b": OutcomeFailed},
			want:   StatusFailed,
		},
		{
			name:   "failure plus skipped, nothing succeeded",
			states: map[string]OutcomeState{"a": OutcomeFailed, "b": OutcomeSkipped},
			want:   StatusFailed,
		},
		{
			name:   "success plus skipped after cancellation",
			states: map[string]OutcomeState{"a": OutcomeSucceeded, "b": OutcomeSkipped},
			want:   StatusPartiallyFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := &Run{Outcomes: map[string]NodeOutcome{}}
			for hostname, state := range tt.states {
				run.TargetNodes = append(run.TargetNodes, hostname)
				run.Outcomes[hostname] = NodeOutcome{State: state}
			}
			assert.Equal(t, tt.want, run.finalStatus())
		})
	}
}

func TestOperationValid(t *testing.T) {
	assert.True(t, OpAddNode.Valid())
	assert.False(t, Operation("reboot").Valid())
}
