package model

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a task.
type State string

const (
	StateProcessing State = "PROCESSING"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Status is the record polled by clients for a single task.
type Status struct {
	State    State  `json:"state"`
	Progress int    `json:"progress"`
	Stage    string `json:"stage"`
	Error    string `json:"error,omitempty"` // set only when State is FAILED
}

// StatusEvent is published to the message broker when a task reaches a terminal state.
type StatusEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	TaskID     string    `json:"task_id"`
	Kind       Kind      `json:"kind"`
	Filename   string    `json:"filename"`
	Status     Status    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewStatusEvent builds an event for task t with the given terminal status.
func NewStatusEvent(t Task, s Status) StatusEvent {
	return StatusEvent{
		EventID:    uuid.New(),
		TaskID:     t.ID,
		Kind:       t.Kind,
		Filename:   t.Filename,
		Status:     s,
		OccurredAt: time.Now().UTC(),
	}
}
