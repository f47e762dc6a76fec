// Package telemetry appends an audit trail of scheduling decisions to a JSONL
// file: conflict scans, date rewrites, rejected edges, cyclic layouts, and
// snapshot writes. Each line is one Event, so a project's history can be
// replayed or grepped after the fact.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// Event kinds identify the type of telemetry event.
const (
	KindConflictsDetected  = "conflicts_detected"
	KindFixApplied         = "fix_applied"
	KindLevelsCyclic       = "levels_cyclic"
	KindDependencyRejected = "dependency_rejected"
	KindDependencyAdded    = "dependency_added"
	KindTaskDeleted        = "task_deleted"
	KindSnapshotSaved      = "snapshot_saved"
	KindSnapshotDeleted    = "snapshot_deleted"
)

// Event is a single telemetry record. Project names the file or snapshot
// the event concerns; TaskID is set for events about one task.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Kind      string    `json:"kind"`
	Project   string    `json:"project,omitempty"`
	TaskID    string    `json:"task,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Emitter writes telemetry events to a JSONL file. It is safe for concurrent
// use by multiple goroutines. A nil *Emitter is a valid no-op emitter.
type Emitter struct {
	file *os.File
	enc  *json.Encoder
	now  func() time.Time
	mu   sync.Mutex
}

// NewEmitter opens path for appending, creating it if needed.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open %s: %w", path, err)
	}
	return &Emitter{
		file: f,
		enc:  json.NewEncoder(f),
		now:  time.Now,
	}, nil
}

// Emit writes a single event. A zero Timestamp is filled with the current
// time. Calling Emit on a nil Emitter is a no-op.
func (e *Emitter) Emit(evt Event) error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if evt.Timestamp.IsZero() {
		evt.Timestamp = e.now().UTC()
	}
	if err := e.enc.Encode(evt); err != nil {
		return fmt.Errorf("telemetry: encode event: %w", err)
	}
	return nil
}

// Record is shorthand for emitting a timestamped event of kind.
func (e *Emitter) Record(kind, project, taskID string, data any) error {
	return e.Emit(Event{Kind: kind, Project: project, TaskID: taskID, Data: data})
}

// Close closes the underlying file. Calling Close on a nil Emitter is a no-op.
func (e *Emitter) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.file.Close(); err != nil {
		return fmt.Errorf("telemetry: close: %w", err)
	}
	return nil
}
