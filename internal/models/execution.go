package models

import (
	"fmt"
	"time"
)

// RunStatus is the recorded outcome of one fleet run.
type RunStatus string

const (
	RunSuccess RunStatus = "SUCCESS"
	RunFailed  RunStatus = "FAILED"
)

// ExecutionLog is one append-only record of a scheduler run outcome.
//
// Entries are never mutated or deleted; the scheduler always reads the most
// recent entry by execution time to decide whether a run is due.
type ExecutionLog struct {
	id            string
	executionTime time.Time
	status        RunStatus
	durationMS    int64
	errMsg        string
	createdAt     time.Time
}

// NewExecutionLog creates a log entry for a run that started at executionTime.
func NewExecutionLog(executionTime time.Time, status RunStatus, duration time.Duration) *ExecutionLog {
	return &ExecutionLog{
		executionTime: executionTime,
		status:        status,
		durationMS:    duration.Milliseconds(),
		createdAt:     time.Now(),
	}
}

func (e *ExecutionLog) ID() string               { return e.id }
func (e *ExecutionLog) ExecutionTime() time.Time { return e.executionTime }
func (e *ExecutionLog) Status() RunStatus        { return e.status }
func (e *ExecutionLog) DurationMS() int64        { return e.durationMS }
func (e *ExecutionLog) Error() string            { return e.errMsg }
func (e *ExecutionLog) CreatedAt() time.Time     { return e.createdAt }

// UpdatedAt mirrors CreatedAt; log entries are immutable once written.
func (e *ExecutionLog) UpdatedAt() time.Time { return e.createdAt }

func (e *ExecutionLog) SetID(id string)          { e.id = id }
func (e *ExecutionLog) SetError(msg string)      { e.errMsg = msg }
func (e *ExecutionLog) SetCreatedAt(t time.Time) { e.createdAt = t }

// Validate checks if the log entry's data is valid
func (e *ExecutionLog) Validate() error {
	if e.executionTime.IsZero() {
		return fmt.Errorf("execution time is required")
	}
	if e.status != RunSuccess && e.status != RunFailed {
		return fmt.Errorf("invalid run status: %s", e.status)
	}
	return nil
}
