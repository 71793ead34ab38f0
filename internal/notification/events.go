package notification

import (
	"context"
	"time"
)

// EventType names a task lifecycle transition
type EventType string

const (
	EventTaskCreated     EventType = "task.created"
	EventTaskUpdated     EventType = "task.updated"
	EventTaskCompleted   EventType = "task.completed"
	EventTaskRegenerated EventType = "task.regenerated"
	EventTaskDeleted     EventType = "task.deleted"
	EventTaskOverdue     EventType = "task.overdue"
)

// TaskEvent is what connected clients are told about a task change
type TaskEvent struct {
	Type        EventType `json:"type"`
	TaskID      string    `json:"taskId"`
	ParentID    string    `json:"parentTaskId,omitempty"`
	ProjectID   string    `json:"projectId,omitempty"`
	ActorID     string    `json:"actorId,omitempty"`
	SuccessorID string    `json:"successorId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// Publisher hands task events to the live-update transport
type Publisher interface {
	Publish(ctx context.Context, event TaskEvent) error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, TaskEvent) error { return nil }

// Message is a push notification addressed to users
type Message struct {
	Title       string
	Body        string
	Data        map[string]string
	ClickAction string
}

// Notifier pushes messages to users' devices. Delivery is best-effort and
// failures are only logged.
type Notifier interface {
	NotifyUsers(ctx context.Context, userIDs []string, msg Message)
}

// NoopNotifier drops every message
type NoopNotifier struct{}

func (NoopNotifier) NotifyUsers(context.Context, []string, Message) {}
