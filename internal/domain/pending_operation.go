package domain

import "time"

type OperationKind string

const (
	OperationSave   OperationKind = "save"
	OperationDelete OperationKind = "delete"
)

// PendingOperation is a write waiting to be replayed once connectivity
// returns. Save carries the task, delete carries only the id.
type PendingOperation struct {
	Seq          uint64        `json:"seq"`
	Kind         OperationKind `json:"type"`
	Task         *Task         `json:"task,omitempty"`
	TaskID       string        `json:"taskId"`
	EnqueuedAt   time.Time     `json:"timestamp"`
	LocalApplied bool          `json:"localApplied"`
}
