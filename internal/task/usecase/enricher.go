package usecase

import (
	"context"
	"log"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"

	"golang.org/x/sync/errgroup"
)

// Fallback labels used when a reference cannot be turned into a name
const (
	LabelNoProject       = "No project"
	LabelUntitledProject = "Untitled Project"
	LabelNoCreator       = "No creator"
	LabelUnnamedCreator  = "Unnamed Creator"
	LabelUnnamedUser     = "Unnamed User"
)

const defaultEnrichConcurrency = 8

// TaskEnricher attaches resolved names to tasks. A failed lookup degrades
// to a fallback label and never fails the whole task.
type TaskEnricher struct {
	resolver    ReferenceResolver
	concurrency int
}

// NewTaskEnricher creates an enricher that resolves at most concurrency
// tasks at a time in EnrichAll
func NewTaskEnricher(resolver ReferenceResolver, concurrency int) *TaskEnricher {
	if concurrency <= 0 {
		concurrency = defaultEnrichConcurrency
	}
	return &TaskEnricher{resolver: resolver, concurrency: concurrency}
}

// Enrich builds the read view of a single task
func (e *TaskEnricher) Enrich(ctx context.Context, task *domain.Task) *domain.EnrichedTask {
	view := &domain.EnrichedTask{
		ID:                 task.ID,
		Title:              task.Title,
		Description:        task.Description,
		Priority:           task.Priority,
		Status:             task.Status,
		Deadline:           domain.FormatInstant(task.Deadline),
		CreatedDate:        domain.FormatInstant(&task.CreatedDate),
		ModifiedDate:       domain.FormatInstant(&task.ModifiedDate),
		Tags:               append([]string{}, task.Tags...),
		Project:            task.Project,
		Creator:            task.Creator,
		Assignees:          append([]domain.Ref{}, task.Assignees...),
		Recurring:          task.Recurring,
		RecurrenceInterval: task.RecurrenceInterval,
		RecurrenceValue:    task.RecurrenceValue,
		IsCurrentInstance:  task.IsCurrentInstance,
		ParentTaskID:       task.ParentTaskID,
		IsOverdue:          task.IsOverdue,
	}
	view.ProjectTitle = e.projectTitle(ctx, task)
	view.CreatorName = e.creatorName(ctx, task)
	view.AssigneeNames = e.assigneeNames(ctx, task)
	return view
}

// EnrichAll enriches tasks in parallel and preserves their order
func (e *TaskEnricher) EnrichAll(ctx context.Context, tasks []*domain.Task) []*domain.EnrichedTask {
	out := make([]*domain.EnrichedTask, len(tasks))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			out[i] = e.Enrich(ctx, task)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (e *TaskEnricher) projectTitle(ctx context.Context, task *domain.Task) string {
	if task.Project == nil || task.Project.IsZero() {
		return LabelNoProject
	}
	entity, err := e.resolver.Resolve(ctx, *task.Project)
	if err != nil {
		log.Printf("[Enricher] Resolving project %s for task %s failed: %v", task.Project, task.ID, err)
		return LabelNoProject
	}
	if entity == nil || entity.Project == nil {
		return LabelNoProject
	}
	if entity.Project.Title == "" {
		return LabelUntitledProject
	}
	return entity.Project.Title
}

func (e *TaskEnricher) creatorName(ctx context.Context, task *domain.Task) string {
	if task.Creator.IsZero() {
		return LabelNoCreator
	}
	entity, err := e.resolver.Resolve(ctx, task.Creator)
	if err != nil {
		log.Printf("[Enricher] Resolving creator %s for task %s failed: %v", task.Creator, task.ID, err)
		return LabelNoCreator
	}
	if entity == nil || entity.User == nil {
		return LabelNoCreator
	}
	if entity.User.Name == "" {
		return LabelUnnamedCreator
	}
	return entity.User.Name
}

// assigneeNames keeps assignee order; references that do not resolve are
// dropped, so the result can be shorter than task.Assignees.
func (e *TaskEnricher) assigneeNames(ctx context.Context, task *domain.Task) []string {
	names := make([]string, 0, len(task.Assignees))
	for _, ref := range task.Assignees {
		entity, err := e.resolver.Resolve(ctx, ref)
		if err != nil {
			log.Printf("[Enricher] Resolving assignee %s for task %s failed: %v", ref, task.ID, err)
			continue
		}
		if entity == nil || entity.User == nil {
			continue
		}
		if entity.User.Name == "" {
			names = append(names, LabelUnnamedUser)
			continue
		}
		names = append(names, entity.User.Name)
	}
	return names
}
