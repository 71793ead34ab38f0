package usecase

import (
	"context"
	"time"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/notification"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"
)

// TaskUsecase defines the interface for task business logic
type TaskUsecase interface {
	// ListVisibleTasks returns the enriched current tasks userID may see
	ListVisibleTasks(ctx context.Context, userID string) ([]*domain.EnrichedTask, error)

	// GetTaskDetail returns nil when the task is missing or hidden from userID
	GetTaskDetail(ctx context.Context, taskID, userID string) (*domain.EnrichedTask, error)

	// CreateTask creates a top-level task, or a subtask when ParentTaskID is set
	CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error)

	// UpdateTask applies a partial update on behalf of requesterID
	UpdateTask(ctx context.Context, taskID string, updates TaskUpdateRequest, requesterID string) (*domain.Task, error)

	// CompleteTask retires the current instance and spawns the next one for
	// recurring tasks
	CompleteTask(ctx context.Context, taskID, requesterID string) (*CompletionResult, error)

	// DeleteTask deletes a task together with its subtasks
	DeleteTask(ctx context.Context, taskID, requesterID string) error

	// Subtask operations are scoped by the parent: a parent hidden from
	// requesterID behaves as a missing one, and writes need edit rights on it.
	ListSubtasks(ctx context.Context, taskID, requesterID string) ([]*domain.EnrichedTask, error)
	GetSubtask(ctx context.Context, taskID, subtaskID, requesterID string) (*domain.EnrichedTask, error)
	UpdateSubtask(ctx context.Context, taskID, subtaskID string, updates TaskUpdateRequest, requesterID string) (*domain.EnrichedTask, error)

	SetClock(now func() time.Time)
	SetPublisher(publisher notification.Publisher)
	SetNotifier(notifier notification.Notifier)
}

// CreateTaskInput carries the fields accepted when creating a task. Dates
// are ISO-8601 strings.
type CreateTaskInput struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Priority           string   `json:"priority"`
	Status             string   `json:"status"`
	Deadline           *string  `json:"deadline"`
	Tags               []string `json:"tags"`
	ProjectID          string   `json:"projectId"`
	CreatorID          string   `json:"creatorId"`
	AssigneeIDs        []string `json:"assigneeIds"`
	Recurring          bool     `json:"recurring"`
	RecurrenceInterval string   `json:"recurrenceInterval"`
	RecurrenceValue    int      `json:"recurrenceValue"`
	ParentTaskID       string   `json:"parentTaskId"`
}

// TaskUpdateRequest represents the fields that can be updated. A nil field
// is left unchanged; an empty Deadline or ProjectID clears it.
type TaskUpdateRequest struct {
	Title              *string   `json:"title,omitempty"`
	Description        *string   `json:"description,omitempty"`
	Priority           *string   `json:"priority,omitempty"`
	Status             *string   `json:"status,omitempty"`
	Deadline           *string   `json:"deadline,omitempty"`
	Tags               *[]string `json:"tags,omitempty"`
	ProjectID          *string   `json:"projectId,omitempty"`
	AssigneeIDs        *[]string `json:"assigneeIds,omitempty"`
	Recurring          *bool     `json:"recurring,omitempty"`
	RecurrenceInterval *string   `json:"recurrenceInterval,omitempty"`
	RecurrenceValue    *int      `json:"recurrenceValue,omitempty"`
}

// CompletionResult reports the outcome of CompleteTask. Success is false,
// with no error, when the instance had already been completed.
type CompletionResult struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Task      *domain.Task `json:"task,omitempty"`
	Successor *domain.Task `json:"successor,omitempty"`
}
