package repository

import (
	"context"
	"time"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"
)

// SuccessorFunc builds the next instance of a task that has just been
// retired. Returning nil means the chain ends here.
type SuccessorFunc func(retired *domain.Task) (*domain.Task, error)

// CompletionResult is what a completion transaction wrote
type CompletionResult struct {
	Retired   *domain.Task
	Successor *domain.Task
}

// TaskRepository defines the interface for task data access. Subtasks live
// in the same store and are distinguished by ParentTaskID.
type TaskRepository interface {
	// Create stores a new task, assigning an ID when it has none
	Create(ctx context.Context, task *domain.Task) error

	// FindByID returns nil, nil when the task does not exist
	FindByID(ctx context.Context, id string) (*domain.Task, error)

	// FindAll returns every top-level task
	FindAll(ctx context.Context) ([]*domain.Task, error)

	// FindByProjects returns top-level tasks whose project is one of projectIDs
	FindByProjects(ctx context.Context, projectIDs []string) ([]*domain.Task, error)

	// FindByCreator returns top-level tasks created by userID
	FindByCreator(ctx context.Context, userID string) ([]*domain.Task, error)

	// FindByAssignee returns top-level tasks assigned to userID
	FindByAssignee(ctx context.Context, userID string) ([]*domain.Task, error)

	// FindSubtasks returns the subtasks of parentID
	FindSubtasks(ctx context.Context, parentID string) ([]*domain.Task, error)

	// Update overwrites an existing task. The write is conditional on the
	// stored IsCurrentInstance still equalling task.IsCurrentInstance; when
	// a completion has retired the task since it was read, nothing is
	// written and domain.ErrAlreadyRetired is returned.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task and all of its subtasks
	Delete(ctx context.Context, id string) error

	// Complete retires the task and, when next returns a task, creates the
	// successor, all in one transaction. The retire step is a compare-and-swap
	// on IsCurrentInstance: if the task is already retired nothing is written
	// and domain.ErrAlreadyRetired is returned. A missing task yields an
	// error wrapping domain.ErrNotFound.
	Complete(ctx context.Context, id string, completedAt time.Time, next SuccessorFunc) (*CompletionResult, error)

	// FindOverdueCandidates returns current, unfinished tasks whose deadline
	// is before now and which are not flagged overdue yet
	FindOverdueCandidates(ctx context.Context, now time.Time) ([]*domain.Task, error)

	// MarkOverdue sets the overdue flag on a task
	MarkOverdue(ctx context.Context, id string) error
}

// ProjectRepository is the slice of project storage the task lifecycle needs
type ProjectRepository interface {
	// FindByID returns nil, nil when the project does not exist
	FindByID(ctx context.Context, id string) (*domain.Project, error)

	// FindByOwner returns the projects owned by userID
	FindByOwner(ctx context.Context, userID string) ([]*domain.Project, error)

	// AppendTask links task into the project's task list. It is a set-union:
	// appending a reference that is already present is a no-op.
	AppendTask(ctx context.Context, projectID string, task domain.Ref) error
}

// IsCurrent reports whether a stored isCurrentInstance value marks the
// current instance. Documents written before the flag existed have no value
// and count as current.
func IsCurrent(v *bool) bool {
	return v == nil || *v
}
