package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	authdomain "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/domain"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/notification"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/recurrence"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/repository"
)

const msgAlreadyCompleted = "task already completed"

// taskUsecase implements TaskUsecase interface
type taskUsecase struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	resolver    ReferenceResolver
	enricher    *TaskEnricher
	access      *AccessResolver
	publisher   notification.Publisher
	notifier    notification.Notifier
	now         func() time.Time
}

// NewTaskUsecase creates a new instance of taskUsecase
func NewTaskUsecase(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, resolver ReferenceResolver, enricher *TaskEnricher) TaskUsecase {
	return &taskUsecase{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		resolver:    resolver,
		enricher:    enricher,
		access:      NewAccessResolver(taskRepo, projectRepo, resolver, enricher),
		publisher:   notification.NoopPublisher{},
		notifier:    notification.NoopNotifier{},
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (u *taskUsecase) SetClock(now func() time.Time) {
	u.now = now
}

func (u *taskUsecase) SetPublisher(publisher notification.Publisher) {
	u.publisher = publisher
}

func (u *taskUsecase) SetNotifier(notifier notification.Notifier) {
	u.notifier = notifier
}

func (u *taskUsecase) ListVisibleTasks(ctx context.Context, userID string) ([]*domain.EnrichedTask, error) {
	return u.access.ListVisibleTasks(ctx, userID)
}

func (u *taskUsecase) GetTaskDetail(ctx context.Context, taskID, userID string) (*domain.EnrichedTask, error) {
	return u.access.GetTaskDetail(ctx, taskID, userID)
}

func (u *taskUsecase) CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, domain.NewValidationError("title", "is required")
	}
	if strings.TrimSpace(input.CreatorID) == "" {
		return nil, domain.NewValidationError("creator", "is required")
	}

	var deadline *time.Time
	if input.Deadline != nil {
		var err error
		if deadline, err = parseDeadline(*input.Deadline); err != nil {
			return nil, err
		}
	}

	interval := parseInterval(input.RecurrenceInterval)
	value := input.RecurrenceValue
	if input.Recurring {
		if err := validateRecurring(interval, value, deadline); err != nil {
			return nil, err
		}
	} else {
		interval, value = "", 0
	}

	status := domain.TaskStatusToDo
	if strings.TrimSpace(input.Status) != "" {
		s, ok := domain.NormalizeStatus(input.Status)
		if !ok {
			return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", input.Status))
		}
		status = s
	}

	creatorRef, err := domain.ParseRef(domain.CollectionUsers, input.CreatorID)
	if err != nil {
		return nil, domain.NewValidationError("creator", err.Error())
	}
	creator, err := u.resolver.ResolveUser(ctx, creatorRef.ID)
	if err != nil {
		return nil, err
	}
	if creator == nil {
		return nil, fmt.Errorf("creator %s: %w", creatorRef.ID, domain.ErrNotFound)
	}

	var parentID string
	if input.ParentTaskID != "" {
		parent, err := u.taskRepo.FindByID(ctx, input.ParentTaskID)
		if err != nil {
			return nil, err
		}
		if parent == nil || !CanView(creator, parent) {
			return nil, fmt.Errorf("parent task %s: %w", input.ParentTaskID, domain.ErrNotFound)
		}
		if !CanUserEdit(creator, parent) {
			return nil, domain.ErrPermissionDenied
		}
		if parent.IsSubtask() {
			return nil, domain.NewValidationError("parentTaskId", "subtasks cannot have subtasks")
		}
		parentID = parent.ID
	}

	now := u.now()
	task := &domain.Task{
		Title:              title,
		Description:        input.Description,
		Priority:           domain.ParsePriority(input.Priority),
		Status:             status,
		Deadline:           deadline,
		CreatedDate:        now,
		ModifiedDate:       now,
		Tags:               domain.NormalizeTags(input.Tags),
		Project:            u.resolveProject(ctx, input.ProjectID),
		Creator:            creatorRef,
		Assignees:          u.resolveAssignees(ctx, input.AssigneeIDs),
		Recurring:          input.Recurring,
		RecurrenceInterval: interval,
		RecurrenceValue:    value,
		IsCurrentInstance:  true,
		ParentTaskID:       parentID,
	}
	task.RefreshOverdue(now)

	if err := u.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	if !task.IsSubtask() {
		u.linkToProject(ctx, task)
	}

	u.publish(ctx, notification.EventTaskCreated, task, creatorRef.ID, "")
	u.notifyAssignees(ctx, task, creatorRef.ID, notification.Message{
		Title: "New task: " + task.Title,
		Body:  creatorLabel(creator) + " assigned you a task",
	})

	log.Printf("[TaskUsecase] Created task %s (parent=%q, recurring=%v)", task.ID, task.ParentTaskID, task.Recurring)
	return task, nil
}

func (u *taskUsecase) UpdateTask(ctx context.Context, taskID string, updates TaskUpdateRequest, requesterID string) (*domain.Task, error) {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	requester, err := u.resolver.ResolveUser(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, fmt.Errorf("user %s: %w", requesterID, domain.ErrNotFound)
	}
	if !CanUserEdit(requester, task) {
		return nil, domain.ErrPermissionDenied
	}

	previousProject := task.ProjectID()
	if err := u.applyUpdates(ctx, task, updates); err != nil {
		return nil, err
	}
	if err := u.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task %s: %w", task.ID, err)
	}

	if !task.IsSubtask() && task.ProjectID() != previousProject {
		u.linkToProject(ctx, task)
	}
	u.publish(ctx, notification.EventTaskUpdated, task, requester.ID, "")
	return task, nil
}

// applyUpdates merges a partial update into task, validating as it goes.
// Nothing is written to task unless the whole update is valid.
func (u *taskUsecase) applyUpdates(ctx context.Context, task *domain.Task, updates TaskUpdateRequest) error {
	next := task.Clone()

	if updates.Title != nil {
		title := strings.TrimSpace(*updates.Title)
		if title == "" {
			return domain.NewValidationError("title", "cannot be empty")
		}
		next.Title = title
	}
	if updates.Description != nil {
		next.Description = *updates.Description
	}
	if updates.Priority != nil {
		next.Priority = domain.ParsePriority(*updates.Priority)
	}
	if updates.Status != nil {
		status, ok := domain.NormalizeStatus(*updates.Status)
		if !ok {
			return domain.NewValidationError("status", fmt.Sprintf("unknown status %q", *updates.Status))
		}
		next.Status = status
	}
	if updates.Deadline != nil {
		deadline, err := parseDeadline(*updates.Deadline)
		if err != nil {
			return err
		}
		next.Deadline = deadline
	}
	if updates.Tags != nil {
		next.Tags = domain.NormalizeTags(*updates.Tags)
	}
	if updates.ProjectID != nil {
		if strings.TrimSpace(*updates.ProjectID) == "" {
			next.Project = nil
		} else if project := u.resolveProject(ctx, *updates.ProjectID); project != nil {
			next.Project = project
		}
	}
	if updates.AssigneeIDs != nil {
		next.Assignees = u.resolveAssignees(ctx, *updates.AssigneeIDs)
	}

	if updates.Recurring != nil {
		next.Recurring = *updates.Recurring
	}
	if updates.RecurrenceInterval != nil {
		next.RecurrenceInterval = parseInterval(*updates.RecurrenceInterval)
	}
	if updates.RecurrenceValue != nil {
		next.RecurrenceValue = *updates.RecurrenceValue
	}
	if next.Recurring {
		if err := validateRecurring(next.RecurrenceInterval, next.RecurrenceValue, next.Deadline); err != nil {
			return err
		}
	} else {
		next.RecurrenceInterval = ""
		next.RecurrenceValue = 0
	}

	now := u.now()
	next.ModifiedDate = now
	next.RefreshOverdue(now)
	*task = *next
	return nil
}

func (u *taskUsecase) CompleteTask(ctx context.Context, taskID, requesterID string) (*CompletionResult, error) {
	task, requester, err := u.access.visibleTask(ctx, taskID, requesterID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	if !CanComplete(requester, task) {
		return nil, domain.ErrPermissionDenied
	}

	completedAt := u.now()
	var next repository.SuccessorFunc
	if task.Recurring {
		next = func(retired *domain.Task) (*domain.Task, error) {
			return buildSuccessor(retired, completedAt)
		}
	}

	result, err := u.taskRepo.Complete(ctx, task.ID, completedAt, next)
	if errors.Is(err, domain.ErrAlreadyRetired) {
		log.Printf("[TaskUsecase] Task %s was already completed", task.ID)
		return &CompletionResult{Success: false, Message: msgAlreadyCompleted}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("complete task %s: %w", task.ID, err)
	}

	u.publish(ctx, notification.EventTaskCompleted, result.Retired, requester.ID, "")

	out := &CompletionResult{Success: true, Message: "task completed", Task: result.Retired}
	if successor := result.Successor; successor != nil {
		if !successor.IsSubtask() {
			u.linkToProject(ctx, successor)
		}
		u.publish(ctx, notification.EventTaskRegenerated, result.Retired, requester.ID, successor.ID)
		out.Successor = successor
		out.Message = "task completed, next occurrence due " + *domain.FormatInstant(successor.Deadline)
		log.Printf("[TaskUsecase] Task %s completed, successor %s created", task.ID, successor.ID)
	}
	return out, nil
}

// buildSuccessor derives the next instance of a recurring task from the
// instance that was just retired
func buildSuccessor(retired *domain.Task, completedAt time.Time) (*domain.Task, error) {
	due, err := recurrence.NextDueDate(retired.Deadline, retired.RecurrenceInterval, retired.RecurrenceValue, completedAt)
	if err != nil {
		return nil, err
	}
	successor := retired.Clone()
	successor.ID = ""
	successor.Status = domain.TaskStatusToDo
	successor.IsCurrentInstance = true
	successor.CreatedDate = completedAt
	successor.ModifiedDate = completedAt
	successor.Deadline = &due
	successor.IsOverdue = false
	return successor, nil
}

func (u *taskUsecase) DeleteTask(ctx context.Context, taskID, requesterID string) error {
	task, err := u.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	allowed, err := u.access.CanEdit(ctx, task, requesterID)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.ErrPermissionDenied
	}
	if err := u.taskRepo.Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("delete task %s: %w", task.ID, err)
	}
	u.publish(ctx, notification.EventTaskDeleted, task, requesterID, "")
	return nil
}

func (u *taskUsecase) ListSubtasks(ctx context.Context, taskID, requesterID string) ([]*domain.EnrichedTask, error) {
	parent, _, err := u.visibleParent(ctx, taskID, requesterID)
	if err != nil {
		return nil, err
	}
	subtasks, err := u.taskRepo.FindSubtasks(ctx, parent.ID)
	if err != nil {
		return nil, err
	}
	return u.enricher.EnrichAll(ctx, subtasks), nil
}

func (u *taskUsecase) GetSubtask(ctx context.Context, taskID, subtaskID, requesterID string) (*domain.EnrichedTask, error) {
	parent, _, err := u.access.visibleTask(ctx, taskID, requesterID)
	if err != nil || parent == nil {
		return nil, err
	}
	subtask, err := u.findSubtask(ctx, parent.ID, subtaskID)
	if err != nil || subtask == nil {
		return nil, err
	}
	return u.enricher.Enrich(ctx, subtask), nil
}

func (u *taskUsecase) UpdateSubtask(ctx context.Context, taskID, subtaskID string, updates TaskUpdateRequest, requesterID string) (*domain.EnrichedTask, error) {
	parent, requester, err := u.visibleParent(ctx, taskID, requesterID)
	if err != nil {
		return nil, err
	}
	if !CanUserEdit(requester, parent) {
		return nil, domain.ErrPermissionDenied
	}
	subtask, err := u.findSubtask(ctx, parent.ID, subtaskID)
	if err != nil || subtask == nil {
		return nil, err
	}
	if err := u.applyUpdates(ctx, subtask, updates); err != nil {
		return nil, err
	}
	if err := u.taskRepo.Update(ctx, subtask); err != nil {
		return nil, fmt.Errorf("update subtask %s: %w", subtask.ID, err)
	}
	u.publish(ctx, notification.EventTaskUpdated, subtask, requester.ID, "")
	return u.enricher.Enrich(ctx, subtask), nil
}

// visibleParent is visibleTask with a hidden or missing parent reported as
// ErrNotFound
func (u *taskUsecase) visibleParent(ctx context.Context, taskID, requesterID string) (*domain.Task, *authdomain.User, error) {
	parent, requester, err := u.access.visibleTask(ctx, taskID, requesterID)
	if err != nil {
		return nil, nil, err
	}
	if parent == nil {
		return nil, nil, fmt.Errorf("task %s: %w", taskID, domain.ErrNotFound)
	}
	return parent, requester, nil
}

// findSubtask returns nil when the subtask does not exist under taskID
func (u *taskUsecase) findSubtask(ctx context.Context, taskID, subtaskID string) (*domain.Task, error) {
	subtask, err := u.taskRepo.FindByID(ctx, subtaskID)
	if err != nil {
		return nil, err
	}
	if subtask == nil || subtask.ParentTaskID != taskID {
		return nil, nil
	}
	return subtask, nil
}

// resolveAssignees keeps only the ids that resolve to an existing user
func (u *taskUsecase) resolveAssignees(ctx context.Context, ids []string) []domain.Ref {
	refs := make([]domain.Ref, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		ref, err := domain.ParseRef(domain.CollectionUsers, raw)
		if err != nil {
			log.Printf("[TaskUsecase] Skipping assignee %q: %v", raw, err)
			continue
		}
		if _, ok := seen[ref.ID]; ok {
			continue
		}
		user, err := u.resolver.ResolveUser(ctx, ref.ID)
		if err != nil {
			log.Printf("[TaskUsecase] Skipping assignee %s: %v", ref.ID, err)
			continue
		}
		if user == nil {
			log.Printf("[TaskUsecase] Skipping unknown assignee %s", ref.ID)
			continue
		}
		seen[ref.ID] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}

// resolveProject returns nil for an empty or unresolvable project id
func (u *taskUsecase) resolveProject(ctx context.Context, raw string) *domain.Ref {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	ref, err := domain.ParseRef(domain.CollectionProjects, raw)
	if err != nil {
		log.Printf("[TaskUsecase] Ignoring project %q: %v", raw, err)
		return nil
	}
	project, err := u.resolver.ResolveProject(ctx, ref.ID)
	if err != nil {
		log.Printf("[TaskUsecase] Ignoring project %s: %v", ref.ID, err)
		return nil
	}
	if project == nil {
		log.Printf("[TaskUsecase] Ignoring unknown project %s", ref.ID)
		return nil
	}
	return &ref
}

// linkToProject appends the task to its project's task list. The task is
// already stored, so a failure here is logged and not returned.
func (u *taskUsecase) linkToProject(ctx context.Context, task *domain.Task) {
	if task.Project == nil {
		return
	}
	if err := u.projectRepo.AppendTask(ctx, task.Project.ID, domain.TaskRef(task.ID)); err != nil {
		log.Printf("[TaskUsecase] Failed to link task %s to project %s: %v", task.ID, task.Project.ID, err)
	}
}

func (u *taskUsecase) publish(ctx context.Context, eventType notification.EventType, task *domain.Task, actorID, successorID string) {
	event := notification.TaskEvent{
		Type:        eventType,
		TaskID:      task.ID,
		ParentID:    task.ParentTaskID,
		ProjectID:   task.ProjectID(),
		ActorID:     actorID,
		SuccessorID: successorID,
		OccurredAt:  u.now(),
	}
	if err := u.publisher.Publish(ctx, event); err != nil {
		log.Printf("[TaskUsecase] Failed to publish %s for task %s: %v", eventType, task.ID, err)
	}
}

func (u *taskUsecase) notifyAssignees(ctx context.Context, task *domain.Task, actorID string, msg notification.Message) {
	var userIDs []string
	for _, a := range task.Assignees {
		if a.ID != actorID {
			userIDs = append(userIDs, a.ID)
		}
	}
	if len(userIDs) == 0 {
		return
	}
	msg.Data = map[string]string{"taskId": task.ID, "type": "task_assigned"}
	u.notifier.NotifyUsers(ctx, userIDs, msg)
}

func validateRecurring(interval domain.RecurrenceInterval, value int, deadline *time.Time) error {
	if err := recurrence.Validate(interval, value); err != nil {
		return err
	}
	if deadline == nil {
		return domain.NewValidationError("deadline", "is required for recurring tasks")
	}
	return nil
}

func parseInterval(raw string) domain.RecurrenceInterval {
	return domain.RecurrenceInterval(strings.ToLower(strings.TrimSpace(raw)))
}

// parseDeadline treats an empty string as "no deadline"
func parseDeadline(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t := domain.ParseInstant(raw)
	if t == nil {
		return nil, domain.NewValidationError("deadline", fmt.Sprintf("%q is not an ISO-8601 date", raw))
	}
	return t, nil
}

func creatorLabel(user *authdomain.User) string {
	if strings.TrimSpace(user.Name) == "" {
		return LabelUnnamedCreator
	}
	return user.Name
}
