package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kubani/kubani/internal/config"
	"github.com/kubani/kubani/internal/executor"
	"github.com/kubani/kubani/internal/inventory"
	"github.com/kubani/kubani/internal/util/async"
	"github.com/kubani/kubani/internal/util/retry"
)

// ReadinessWaiter is the post-condition gate: after the executor finishes, a
// node must report Ready through the cluster API before it counts as
// succeeded.
type ReadinessWaiter interface {
	WaitForNodeReady(ctx context.Context, name string, timeout time.Duration) error
}

// RunJournal persists run state between per-node transitions so an
// interrupted run can be resumed. *RunStore satisfies it.
type RunJournal interface {
	Save(run *Run) error
	Load(id string) (*Run, error)
}

// Orchestrator executes provisioning runs against an inventory.
type Orchestrator struct {
	Executor    executor.Executor
	Readiness   ReadinessWaiter
	Store       RunJournal
	Observer    Observer
	Concurrency int
	Timeouts    *config.Timeouts

	// Probe checks a node's overlay address is reachable before any step
	// is dispatched. Optional.
	Probe func(ctx context.Context, ip string) error

	mu sync.Mutex
	// persistErr holds the first checkpoint write failure of the current run.
	persistErr error
}

// Request describes the operation to execute.
type Request struct {
	Operation Operation
	Limit     []string
	CheckMode bool
	Tags      []string

	// ResumeID names an earlier run whose succeeded nodes are skipped.
	ResumeID string
}

// New creates an orchestrator with defaults filled in.
func New(exec executor.Executor, readiness ReadinessWaiter, store RunJournal) *Orchestrator {
	return &Orchestrator{
		Executor:    exec,
		Readiness:   readiness,
		Store:       store,
		Observer:    NewConsoleObserver(),
		Concurrency: 4,
		Timeouts:    config.LoadTimeouts(),
	}
}

// Execute runs the requested operation to completion and returns the
// finished run. Per-node failures do not make Execute itself fail; the error
// return is reserved for the orchestrator being unable to run at all.
func (o *Orchestrator) Execute(ctx context.Context, inv *inventory.Inventory, req Request) (*Run, error) {
	plan, err := BuildPlan(inv, req.Operation, req.Limit)
	if err != nil {
		return nil, err
	}

	run := NewRun(req.Operation, plan.Targets())
	run.CheckMode = req.CheckMode
	run.Tags = req.Tags

	o.mu.Lock()
	o.persistErr = nil
	o.mu.Unlock()

	if req.ResumeID != "" {
		if err := o.carryForward(run, req.ResumeID); err != nil {
			return nil, err
		}
	}

	run.Status = StatusDispatching
	if err := o.persist(run); err != nil {
		return nil, err
	}

	o.Observer.Event(Event{
		Type:    EventRunStarted,
		Message: fmt.Sprintf("%s run %s across %d nodes", run.Operation, run.ID, len(run.TargetNodes)),
	})

	for _, batch := range plan.Batches {
		o.dispatchBatch(ctx, inv, run, batch)

		// Barrier: workers only join once every control-plane node is up.
		if batch.Name == "control-plane" && len(run.Failed()) > 0 {
			o.skipRemaining(run, "control-plane provisioning did not complete")
			break
		}
		if ctx.Err() != nil {
			o.skipRemaining(run, "run cancelled")
			break
		}
	}

	run.Status = StatusFinalizing
	if err := o.persist(run); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	run.CompletedAt = &now
	run.Status = run.finalStatus()
	run.Resumable = run.Status != StatusSucceeded
	if err := o.persist(run); err != nil {
		return nil, err
	}

	o.Observer.Event(Event{
		Type:    EventRunCompleted,
		Message: fmt.Sprintf("run %s finished: %s", run.ID, run.Status),
		Fields: map[string]string{
			"succeeded": fmt.Sprint(len(run.Succeeded())),
			"failed":    fmt.Sprint(len(run.Failed())),
		},
	})

	o.mu.Lock()
	persistErr := o.persistErr
	o.mu.Unlock()
	if persistErr != nil {
		return run, fmt.Errorf("run %s completed but a checkpoint write failed: %w", run.ID, persistErr)
	}
	return run, nil
}

// carryForward copies succeeded outcomes from an earlier run so those nodes
// are not re-dispatched. Pending, running and failed nodes start over.
func (o *Orchestrator) carryForward(run *Run, resumeID string) error {
	previous, err := o.Store.Load(resumeID)
	if err != nil {
		return fmt.Errorf("cannot resume run %s: %w", resumeID, err)
	}
	if previous.Operation != run.Operation {
		return fmt.Errorf("cannot resume run %s: operation was %s, requested %s",
			resumeID, previous.Operation, run.Operation)
	}

	for hostname, outcome := range previous.Outcomes {
		if outcome.State != OutcomeSucceeded {
			continue
		}
		if _, planned := run.Outcomes[hostname]; planned {
			run.Outcomes[hostname] = outcome
		}
	}
	return nil
}

func (o *Orchestrator) dispatchBatch(ctx context.Context, inv *inventory.Inventory, run *Run, batch Batch) {
	var tasks []async.Task
	var done int
	total := 0

	for _, node := range batch.Nodes {
		if o.outcomeOf(run, node.Hostname).State == OutcomeSucceeded {
			continue
		}
		total++
		tasks = append(tasks, async.Task{
			Name: node.Hostname,
			Func: func(ctx context.Context) error {
				o.provisionNode(ctx, inv, run, node)
				o.mu.Lock()
				done++
				o.Observer.Progress(batch.Name, done, total)
				o.mu.Unlock()
				return nil
			},
		})
	}

	// Task funcs record their own outcomes, so the pool itself never errors.
	_ = async.RunLimited(ctx, tasks, o.Concurrency)
}

// provisionNode runs one node's full step sequence and records the outcome.
// Failures are isolated here; nothing propagates to sibling nodes.
func (o *Orchestrator) provisionNode(ctx context.Context, inv *inventory.Inventory, run *Run, node inventory.Node) {
	if ctx.Err() != nil {
		o.setOutcome(run, node.Hostname, NodeOutcome{State: OutcomeSkipped, Reason: "run cancelled"})
		o.Observer.Event(Event{Type: EventNodeSkipped, Hostname: node.Hostname, Message: "run cancelled"})
		return
	}

	o.setOutcome(run, node.Hostname, NodeOutcome{State: OutcomeRunning, StartedAt: timePtr(time.Now().UTC())})
	o.Observer.Event(Event{Type: EventNodeDispatched, Hostname: node.Hostname, Message: "dispatching"})

	if err := o.preflight(node); err != nil {
		o.recordFailure(run, err)
		return
	}

	if o.Probe != nil && !run.CheckMode {
		if err := o.probeWithRetry(ctx, node.TailscaleIP); err != nil {
			o.recordFailure(run, &UnreachableError{Host: node.Hostname, AtStep: stepConnect, Detail: err.Error()})
			return
		}
	}

	job := executor.Job{
		Hostname:  node.Hostname,
		Playbook:  playbookFor(run.Operation, node.Role),
		Vars:      resolveVars(inv, node),
		CheckMode: run.CheckMode,
		Tags:      run.Tags,
	}

	stepCtx := ctx
	if o.Timeouts != nil && o.Timeouts.Executor > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, o.Timeouts.Executor)
		defer cancel()
	}

	results, err := o.Executor.Run(stepCtx, job)
	if err != nil {
		o.recordFailure(run, &ExecutorFailureError{Host: node.Hostname, AtStep: "invoke", Detail: err.Error()})
		return
	}
	if nodeErr := classifyResults(node.Hostname, results); nodeErr != nil {
		o.recordFailure(run, nodeErr)
		return
	}

	if o.shouldGateOnReadiness(run) {
		readyCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := o.Readiness.WaitForNodeReady(readyCtx, node.Hostname, o.readinessTimeout()); err != nil {
			o.recordFailure(run, &ReadinessTimeoutError{Host: node.Hostname})
			return
		}
	}

	o.setOutcome(run, node.Hostname, NodeOutcome{
		State:       OutcomeSucceeded,
		StartedAt:   o.outcomeOf(run, node.Hostname).StartedAt,
		CompletedAt: timePtr(time.Now().UTC()),
	})
	o.Observer.Event(Event{Type: EventNodeSucceeded, Hostname: node.Hostname, Message: "provisioned"})
}

// preflight rejects a node before any step is dispatched.
func (o *Orchestrator) preflight(node inventory.Node) NodeError {
	if node.TailscaleIP == "" {
		return &ValidationRejectedError{Host: node.Hostname, Detail: "node has no overlay address"}
	}
	if !node.Role.Valid() {
		return &ValidationRejectedError{Host: node.Hostname, Detail: fmt.Sprintf("unknown role %q", node.Role)}
	}
	return nil
}

// probeWithRetry dials the node's overlay address, retrying with backoff so a
// machine waking from sleep gets a grace period before it is declared
// unreachable.
func (o *Orchestrator) probeWithRetry(ctx context.Context, ip string) error {
	attempts := 3
	delay := time.Second
	if o.Timeouts != nil {
		if o.Timeouts.RetryMaxAttempts > 0 {
			attempts = o.Timeouts.RetryMaxAttempts
		}
		if o.Timeouts.RetryInitialDelay > 0 {
			delay = o.Timeouts.RetryInitialDelay
		}
	}
	return retry.Do(ctx, func() error {
		return o.Probe(ctx, ip)
	}, retry.WithMaxAttempts(attempts), retry.WithInitialDelay(delay))
}

func (o *Orchestrator) shouldGateOnReadiness(run *Run) bool {
	if run.CheckMode || run.Operation == OpRemoveNode {
		return false
	}
	return o.Readiness != nil
}

func (o *Orchestrator) readinessTimeout() time.Duration {
	if o.Timeouts != nil && o.Timeouts.NodeReady > 0 {
		return o.Timeouts.NodeReady
	}
	return 5 * time.Minute
}

// classifyResults maps executor step results to the node error taxonomy.
func classifyResults(hostname string, results []executor.StepResult) NodeError {
	for _, result := range results {
		switch result.Status {
		case executor.StepUnreachable:
			return &UnreachableError{Host: hostname, AtStep: result.Step, Detail: result.Detail}
		case executor.StepFailed:
			return &ExecutorFailureError{Host: hostname, AtStep: result.Step, Detail: result.Detail}
		}
	}
	return nil
}

func (o *Orchestrator) recordFailure(run *Run, err NodeError) {
	o.setOutcome(run, err.Hostname(), NodeOutcome{
		State:       OutcomeFailed,
		Reason:      failureReason(err),
		Step:        err.Step(),
		StartedAt:   o.outcomeOf(run, err.Hostname()).StartedAt,
		CompletedAt: timePtr(time.Now().UTC()),
	})
	o.Observer.Event(Event{
		Type:     EventNodeFailed,
		Hostname: err.Hostname(),
		Message:  err.Error(),
		Fields:   map[string]string{"step": err.Step()},
	})
}

// skipRemaining transitions every node not yet dispatched to skipped.
// Monotonic: terminal outcomes are never overwritten.
func (o *Orchestrator) skipRemaining(run *Run, reason string) {
	for _, hostname := range run.TargetNodes {
		if run.Outcomes[hostname].State.Terminal() {
			continue
		}
		o.setOutcome(run, hostname, NodeOutcome{State: OutcomeSkipped, Reason: reason})
		o.Observer.Event(Event{Type: EventNodeSkipped, Hostname: hostname, Message: reason})
	}
}

func (o *Orchestrator) outcomeOf(run *Run, hostname string) NodeOutcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	return run.Outcomes[hostname]
}

func (o *Orchestrator) setOutcome(run *Run, hostname string, outcome NodeOutcome) {
	o.mu.Lock()
	run.Outcomes[hostname] = outcome
	o.mu.Unlock()

	// A failed checkpoint does not stop the run, but it is reported as it
	// happens and again at finalization: a crash before the final save would
	// leave the on-disk state behind reality.
	if err := o.persist(run); err != nil {
		o.mu.Lock()
		if o.persistErr == nil {
			o.persistErr = err
		}
		o.mu.Unlock()
		o.Observer.Event(Event{
			Type:     EventCheckpointFailed,
			Hostname: hostname,
			Message:  fmt.Sprintf("failed to checkpoint run %s: %v", run.ID, err),
		})
	}
}

func (o *Orchestrator) persist(run *Run) error {
	if o.Store == nil {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.Store.Save(run)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
