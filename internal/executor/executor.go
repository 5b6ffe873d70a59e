// Package executor defines the contract with the external configuration
// engine that performs per-host provisioning steps, plus an adapter for
// ansible-playbook.
//
// The engine is assumed to be safely re-invocable (idempotent); this package
// relies on that property but does not implement it.
package executor

import "context"

// StepStatus is the outcome of a single named provisioning step on one host.
type StepStatus string

const (
	StepOK          StepStatus = "ok"
	StepChanged     StepStatus = "changed"
	StepFailed      StepStatus = "failed"
	StepUnreachable StepStatus = "unreachable"
	StepSkipped     StepStatus = "skipped"
)

// StepResult is the per-step report returned by the executor.
type StepResult struct {
	Step   string
	Status StepStatus
	Detail string
}

// Failed reports whether the step ended in failure (including the host being
// unreachable before the step could run).
func (r StepResult) Failed() bool {
	return r.Status == StepFailed || r.Status == StepUnreachable
}

// Job describes one host's provisioning work: the playbook to run and the
// host's resolved configuration (inventory defaults merged with node-specific
// overrides; node-specific always wins).
type Job struct {
	Hostname  string
	Playbook  string
	Vars      map[string]any
	CheckMode bool
	Tags      []string
}

// Executor runs the declared configuration steps on a single host and
// reports per-step success/failure with captured diagnostic output.
//
// An error return means the executor itself could not run or report; step
// failures are reported through StepResults, not the error.
type Executor interface {
	Run(ctx context.Context, job Job) ([]StepResult, error)
}
