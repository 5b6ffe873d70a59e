package orchestrator

import (
	"fmt"
	"log"
	"strings"
	"time"
)

// Observer receives structured events as a run progresses.
type Observer interface {
	// Event emits a structured event
	Event(event Event)

	// Progress reports completed vs total nodes for a batch
	Progress(batch string, current, total int)

	// WithFields returns a new Observer with additional context fields
	WithFields(fields map[string]string) Observer
}

// Event represents a structured orchestration event.
type Event struct {
	Type      EventType
	Hostname  string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// EventType represents the type of orchestration event.
type EventType string

const (
	// EventRunStarted indicates a run has begun dispatching.
	EventRunStarted EventType = "run.started"
	// EventRunCompleted indicates a run has reached a terminal state.
	EventRunCompleted EventType = "run.completed"

	// EventNodeDispatched indicates a node's step sequence has started.
	EventNodeDispatched EventType = "node.dispatched"
	// EventNodeSucceeded indicates a node completed all steps and passed
	// the readiness gate.
	EventNodeSucceeded EventType = "node.succeeded"
	// EventNodeFailed indicates a node's step sequence failed.
	EventNodeFailed EventType = "node.failed"
	// EventNodeSkipped indicates a node was never dispatched.
	EventNodeSkipped EventType = "node.skipped"

	// EventCheckpointFailed indicates a run state write did not land; the
	// on-disk run may be behind what actually happened.
	EventCheckpointFailed EventType = "run.checkpoint-failed"
)

// ConsoleObserver implements Observer using the standard log package.
type ConsoleObserver struct {
	contextFields map[string]string
}

// NewConsoleObserver creates a new console-based observer.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{
		contextFields: make(map[string]string),
	}
}

// Event implements Observer.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if event.Fields == nil {
		event.Fields = make(map[string]string)
	}
	for k, v := range o.contextFields {
		if _, exists := event.Fields[k]; !exists {
			event.Fields[k] = v
		}
	}

	log.Print(o.formatEvent(event))
}

// Progress implements Observer.
func (o *ConsoleObserver) Progress(batch string, current, total int) {
	if total == 0 {
		log.Printf("[%s] progress: %d/%d", batch, current, total)
		return
	}
	percentage := (current * 100) / total
	log.Printf("[%s] progress: %d/%d (%d%%)", batch, current, total, percentage)
}

// WithFields implements Observer.
func (o *ConsoleObserver) WithFields(fields map[string]string) Observer {
	newFields := make(map[string]string)
	for k, v := range o.contextFields {
		newFields[k] = v
	}
	for k, v := range fields {
		newFields[k] = v
	}
	return &ConsoleObserver{contextFields: newFields}
}

func (o *ConsoleObserver) formatEvent(event Event) string {
	var parts []string

	parts = append(parts, string(event.Type))
	if event.Hostname != "" {
		parts = append(parts, fmt.Sprintf("[%s]", event.Hostname))
	}
	parts = append(parts, event.Message)

	if len(event.Fields) > 0 {
		var fieldParts []string
		for k, v := range event.Fields {
			fieldParts = append(fieldParts, fmt.Sprintf("%s=%s", k, v))
		}
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(fieldParts, ", ")))
	}

	return strings.Join(parts, " ")
}

// NopObserver discards all events. Useful in tests.
type NopObserver struct{}

func (NopObserver) Event(Event) {}

func (NopObserver) Progress(string, int, int) {}

func (n NopObserver) WithFields(map[string]string) Observer { return n }
