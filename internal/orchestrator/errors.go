package orchestrator

import "fmt"

// NodeError is a per-node failure. Every variant carries the hostname and
// the step that failed so operators can go straight to the broken host.
type NodeError interface {
	error
	Hostname() string
	Step() string
}

// UnreachableError indicates the node's overlay address could not be reached
// before step execution began.
type UnreachableError struct {
	Host   string
	AtStep string
	Detail string
}

func (e *UnreachableError) Error() string {
	return fmt.Sprintf("node %s unreachable at step %q: %s", e.Host, e.AtStep, e.Detail)
}
func (e *UnreachableError) Hostname() string { return e.Host }
func (e *UnreachableError) Step() string     { return e.AtStep }

// ExecutorFailureError indicates the external executor reported a non-zero
// outcome for a named step.
type ExecutorFailureError struct {
	Host   string
	AtStep string
	Detail string
}

func (e *ExecutorFailureError) Error() string {
	return fmt.Sprintf("node %s failed at step %q: %s", e.Host, e.AtStep, e.Detail)
}
func (e *ExecutorFailureError) Hostname() string { return e.Host }
func (e *ExecutorFailureError) Step() string     { return e.AtStep }

// ReadinessTimeoutError indicates the node never reported Ready through the
// cluster API within the configured window.
type ReadinessTimeoutError struct {
	Host string
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("node %s failed at step %q: node did not report Ready in time", e.Host, stepReadiness)
}
func (e *ReadinessTimeoutError) Hostname() string { return e.Host }
func (e *ReadinessTimeoutError) Step() string     { return stepReadiness }

// ValidationRejectedError indicates a pre-flight check failed before any
// step was dispatched for the node.
type ValidationRejectedError struct {
	Host   string
	Detail string
}

func (e *ValidationRejectedError) Error() string {
	return fmt.Sprintf("node %s rejected at step %q: %s", e.Host, stepPreflight, e.Detail)
}
func (e *ValidationRejectedError) Hostname() string { return e.Host }
func (e *ValidationRejectedError) Step() string     { return stepPreflight }

const (
	stepPreflight = "preflight"
	stepConnect   = "connect"
	stepReadiness = "readiness"
)

// failureReason maps a node error to the short reason recorded in the run.
func failureReason(err NodeError) string {
	switch err.(type) {
	case *UnreachableError:
		return "unreachable"
	case *ExecutorFailureError:
		return "executor-failure"
	case *ReadinessTimeoutError:
		return "readiness-timeout"
	case *ValidationRejectedError:
		return "validation-rejected"
	default:
		return "error"
	}
}
