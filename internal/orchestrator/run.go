// Package orchestrator drives multi-node provisioning operations. It plans
// per-node work with role ordering, dispatches it to the executor with a
// bounded worker pool, gates success on cluster readiness, and persists run
// state so interrupted operations can resume.
package orchestrator

import (
	"time"

	"github.com/google/uuid"
)

// Operation names the kind of work a run performs.
type Operation string

const (
	OpFullProvision Operation = "full-provision"
	OpAddNode       Operation = "add-node"
	OpRemoveNode    Operation = "remove-node"
	OpUpdate        Operation = "update"
)

// Valid reports whether the operation is one of the known kinds.
func (o Operation) Valid() bool {
	switch o {
	case OpFullProvision, OpAddNode, OpRemoveNode, OpUpdate:
		return true
	}
	return false
}

// OutcomeState is the per-node progress within a run.
type OutcomeState string

const (
	OutcomePending   OutcomeState = "pending"
	OutcomeRunning   OutcomeState = "running"
	OutcomeSucceeded OutcomeState = "succeeded"
	OutcomeFailed    OutcomeState = "failed"
	OutcomeSkipped   OutcomeState = "skipped"
)

// Terminal reports whether the state will not change again within this run.
func (s OutcomeState) Terminal() bool {
	return s == OutcomeSucceeded || s == OutcomeFailed || s == OutcomeSkipped
}

// RunStatus is the overall state of a provisioning run.
type RunStatus string

const (
	StatusPlanning        RunStatus = "planning"
	StatusDispatching     RunStatus = "dispatching"
	StatusFinalizing      RunStatus = "finalizing"
	StatusSucceeded       RunStatus = "succeeded"
	StatusPartiallyFailed RunStatus = "partially-failed"
	StatusFailed          RunStatus = "failed"
)

// Terminal reports whether the run has finished.
func (s RunStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusPartiallyFailed || s == StatusFailed
}

// NodeOutcome records the result of one node's step sequence.
type NodeOutcome struct {
	State       OutcomeState `yaml:"state"`
	Reason      string       `yaml:"reason,omitempty"`
	Step        string       `yaml:"step,omitempty"`
	StartedAt   *time.Time   `yaml:"started_at,omitempty"`
	CompletedAt *time.Time   `yaml:"completed_at,omitempty"`
}

// Run is one orchestrated multi-node operation, persisted after every
// transition so an interrupted run can be resumed.
type Run struct {
	ID          string                 `yaml:"id"`
	Operation   Operation              `yaml:"operation"`
	Status      RunStatus              `yaml:"status"`
	TargetNodes []string               `yaml:"target_nodes"`
	Outcomes    map[string]NodeOutcome `yaml:"outcomes"`
	CheckMode   bool                   `yaml:"check_mode,omitempty"`
	Tags        []string               `yaml:"tags,omitempty"`
	StartedAt   time.Time              `yaml:"started_at"`
	CompletedAt *time.Time             `yaml:"completed_at,omitempty"`
	Resumable   bool                   `yaml:"resumable"`
}

// NewRun creates a run in the planning state with every target pending.
func NewRun(op Operation, targets []string) *Run {
	outcomes := make(map[string]NodeOutcome, len(targets))
	for _, hostname := range targets {
		outcomes[hostname] = NodeOutcome{State: OutcomePending}
	}
	return &Run{
		ID:          uuid.NewString(),
		Operation:   op,
		Status:      StatusPlanning,
		TargetNodes: targets,
		Outcomes:    outcomes,
		StartedAt:   time.Now().UTC(),
		Resumable:   true,
	}
}

// Succeeded lists hostnames that reached the succeeded state.
func (r *Run) Succeeded() []string {
	return r.withState(OutcomeSucceeded)
}

// Failed lists hostnames that reached the failed state.
func (r *Run) Failed() []string {
	return r.withState(OutcomeFailed)
}

func (r *Run) withState(state OutcomeState) []string {
	var hostnames []string
	for _, hostname := range r.TargetNodes {
		if r.Outcomes[hostname].State == state {
			hostnames = append(hostnames, hostname)
		}
	}
	return hostnames
}

// finalStatus aggregates the worst per-node outcome into the run's terminal
// status. Skipped nodes never make a clean run partial on their own unless a
// mix of success and failure or cancellation left work undone.
func (r *Run) finalStatus() RunStatus {
	var succeeded, failed, skipped int
	for _, outcome := range r.Outcomes {
		switch outcome.State {
		case OutcomeSucceeded:
			succeeded++
		case OutcomeFailed:
			failed++
		case OutcomeSkipped:
			skipped++
		}
	}

	switch {
	case failed == 0 && skipped == 0:
		return StatusSucceeded
	case succeeded > 0 && (failed > 0 || skipped > 0):
		return StatusPartiallyFailed
	default:
		return StatusFailed
	}
}
