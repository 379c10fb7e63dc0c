package models

import (
	"craft-keeper/internal/errs"
)

type EventType string

const (
	EventStarted   EventType = "started"
	EventProgress  EventType = "progress"
	EventCompleted EventType = "completed"
	EventSkipped   EventType = "skipped"
	EventFailed    EventType = "failed"
	// EventFinished is the aggregate end of an execution that was not cancelled.
	EventFinished EventType = "finished"
	// EventCancelled replaces EventFinished when the execution was cancelled.
	EventCancelled EventType = "cancelled"
)

/**
 * Download progress event. Events of one task arrive in the order
 * started, progress*, completed|failed. Events of different tasks interleave freely.
 * @property {string} runId - Execution identifier
 * @property {EventType} type - Event type
 * @property {DownloadTask} task - Task the event belongs to, nil for aggregate events
 * @property {int64} bytes - Bytes received so far
 * @property {int64} total - Expected total bytes, 0 when unknown
 * @property {int} attempt - 1-based attempt number
 * @property {errs.Error} error - Failure reason of a failed task
 * @property {[]TaskFailure} failures - Permanent failures, on the finished event
 */
type ProgressEvent struct {
	RunID    string        `json:"runId"`
	Type     EventType     `json:"type"`
	Task     *DownloadTask `json:"task,omitempty"`
	Bytes    int64         `json:"bytes,omitempty"`
	Total    int64         `json:"total,omitempty"`
	Attempt  int           `json:"attempt,omitempty"`
	Err      *errs.Error   `json:"error,omitempty"`
	Failures []TaskFailure `json:"failures,omitempty"`
}

type TaskFailure struct {
	Task DownloadTask `json:"task"`
	Err  *errs.Error  `json:"error"`
}
