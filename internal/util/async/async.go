// Package async provides helpers for running independent operations
// concurrently with a bounded number of workers.
package async

import (
	"context"
	"fmt"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunParallel executes all tasks concurrently and waits for every task to
// finish. If any task fails, the first error is returned after all tasks
// complete.
func RunParallel(ctx context.Context, tasks []Task) error {
	return RunLimited(ctx, tasks, len(tasks))
}

// RunLimited executes tasks with at most limit of them in flight at once.
// Tasks not yet started when the context is cancelled are skipped, but tasks
// already running are always waited for.
func RunLimited(ctx context.Context, tasks []Task, limit int) error {
	if len(tasks) == 0 {
		return nil
	}
	if limit < 1 {
		limit = 1
	}

	type result struct {
		name string
		err  error
	}

	sem := make(chan struct{}, limit)
	resultChan := make(chan result, len(tasks))
	started := 0

	for _, task := range tasks {
		// The select below picks randomly between ready cases, so an already
		// cancelled context must short-circuit before a task can still start.
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
		case sem <- struct{}{}:
			started++
			go func() {
				defer func() { <-sem }()
				resultChan <- result{name: task.Name, err: task.Func(ctx)}
			}()
		}
	}

	var firstError error
	for range started {
		res := <-resultChan
		if res.err != nil && firstError == nil {
			firstError = fmt.Errorf("%s: %w", res.name, res.err)
		}
	}

	if firstError == nil && ctx.Err() != nil && started < len(tasks) {
		firstError = fmt.Errorf("cancelled before all tasks started: %w", ctx.Err())
	}
	return firstError
}
