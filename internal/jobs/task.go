// Package jobs implements the background task pipeline: a Redis-backed
// queue, the worker that drains it, and the cron schedules. Tasks are
// enqueued exclusively from post-commit hooks, so a queued task always
// refers to committed state.
package jobs

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/tix-api/internal/repository"
)

// TaskType identifies what a queued task does.
type TaskType string

const (
	TaskAssignTicket  TaskType = "ticket.assign"
	TaskExportTickets TaskType = "tickets.export"
)

// Task is the unit carried on the queue, JSON-encoded. Exactly one of
// the payload pointers is set, matching Type.
type Task struct {
	ID         string          `json:"id"`
	Type       TaskType        `json:"type"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	Assignment *AssignmentTask `json:"assignment,omitempty"`
	Export     *ExportTask     `json:"export,omitempty"`
}

// AssignmentTask asks the worker to auto-assign a ticket.
type AssignmentTask struct {
	TicketID string `json:"ticket_id"`
}

// ExportTask asks the worker to build a CSV export and mail it.
type ExportTask struct {
	AgentID string                        `json:"agent_id"`
	Fields  []string                      `json:"fields,omitempty"`
	Filter  repository.ClosedTicketFilter `json:"filter"`
}

// NewAssignmentTask builds an assignment task.
func NewAssignmentTask(ticketID string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       TaskAssignTicket,
		EnqueuedAt: time.Now().UTC(),
		Assignment: &AssignmentTask{TicketID: ticketID},
	}
}

// NewExportTask builds an export task.
func NewExportTask(agentID string, fields []string, filter repository.ClosedTicketFilter) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       TaskExportTickets,
		EnqueuedAt: time.Now().UTC(),
		Export:     &ExportTask{AgentID: agentID, Fields: fields, Filter: filter},
	}
}
