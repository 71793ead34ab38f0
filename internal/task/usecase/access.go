package usecase

import (
	"context"
	"fmt"
	"sort"

	authdomain "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/domain"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/repository"
)

// AccessResolver decides which tasks a user sees and which they may edit
type AccessResolver struct {
	tasks    repository.TaskRepository
	projects repository.ProjectRepository
	resolver ReferenceResolver
	enricher *TaskEnricher
}

func NewAccessResolver(tasks repository.TaskRepository, projects repository.ProjectRepository, resolver ReferenceResolver, enricher *TaskEnricher) *AccessResolver {
	return &AccessResolver{
		tasks:    tasks,
		projects: projects,
		resolver: resolver,
		enricher: enricher,
	}
}

// ListVisibleTasks returns the current-instance top-level tasks userID may
// see, enriched. An unknown user sees nothing.
func (a *AccessResolver) ListVisibleTasks(ctx context.Context, userID string) ([]*domain.EnrichedTask, error) {
	user, err := a.resolver.ResolveUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return []*domain.EnrichedTask{}, nil
	}

	var sources [][]*domain.Task
	switch user.Role {
	case authdomain.RoleHR:
		all, err := a.tasks.FindAll(ctx)
		if err != nil {
			return nil, err
		}
		sources = append(sources, all)

	case authdomain.RoleManager:
		owned, err := a.projects.FindByOwner(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("list projects owned by %s: %w", user.ID, err)
		}
		projectIDs := make([]string, 0, len(owned))
		for _, p := range owned {
			projectIDs = append(projectIDs, p.ID)
		}
		inProjects, err := a.tasks.FindByProjects(ctx, projectIDs)
		if err != nil {
			return nil, err
		}
		created, err := a.tasks.FindByCreator(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		sources = append(sources, inProjects, created)

	default:
		assigned, err := a.tasks.FindByAssignee(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		created, err := a.tasks.FindByCreator(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		sources = append(sources, assigned, created)
	}

	visible := currentUnion(sources...)
	sortTasks(visible)
	return a.enricher.EnrichAll(ctx, visible), nil
}

// GetTaskDetail returns the enriched task, or nil when the task or the user
// does not exist or a staff user is neither assignee nor creator. The last
// case is indistinguishable from a missing task.
func (a *AccessResolver) GetTaskDetail(ctx context.Context, taskID, userID string) (*domain.EnrichedTask, error) {
	task, _, err := a.visibleTask(ctx, taskID, userID)
	if err != nil || task == nil {
		return nil, err
	}
	return a.enricher.Enrich(ctx, task), nil
}

// visibleTask loads the task and the requester, returning nil for either
// when the task is not visible to them
func (a *AccessResolver) visibleTask(ctx context.Context, taskID, userID string) (*domain.Task, *authdomain.User, error) {
	task, err := a.tasks.FindByID(ctx, taskID)
	if err != nil || task == nil {
		return nil, nil, err
	}
	user, err := a.resolver.ResolveUser(ctx, userID)
	if err != nil || user == nil {
		return nil, nil, err
	}
	if !CanView(user, task) {
		return nil, nil, nil
	}
	return task, user, nil
}

// CanEdit reports whether userID may modify task. Unknown users may not.
func (a *AccessResolver) CanEdit(ctx context.Context, task *domain.Task, userID string) (bool, error) {
	user, err := a.resolver.ResolveUser(ctx, userID)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}
	return CanUserEdit(user, task), nil
}

// CanView: hr and managers see every task, staff only tasks they are
// assigned to or created.
func CanView(user *authdomain.User, task *domain.Task) bool {
	switch user.Role {
	case authdomain.RoleHR, authdomain.RoleManager:
		return true
	}
	return task.IsAssignee(user.ID) || task.IsCreator(user.ID)
}

// CanUserEdit: hr is read-only, managers may edit any task including ones
// they did not create, staff only the tasks they created.
func CanUserEdit(user *authdomain.User, task *domain.Task) bool {
	switch user.Role {
	case authdomain.RoleHR:
		return false
	case authdomain.RoleManager:
		return true
	}
	return task.IsCreator(user.ID)
}

// CanComplete: anyone who can see a task may complete it, except hr, who
// is read-only.
func CanComplete(user *authdomain.User, task *domain.Task) bool {
	if user.Role == authdomain.RoleHR {
		return false
	}
	return CanView(user, task)
}

// currentUnion merges task lists, dropping duplicates by id and retired
// instances
func currentUnion(lists ...[]*domain.Task) []*domain.Task {
	seen := make(map[string]struct{})
	var out []*domain.Task
	for _, list := range lists {
		for _, t := range list {
			if !t.IsCurrentInstance {
				continue
			}
			if _, ok := seen[t.ID]; ok {
				continue
			}
			seen[t.ID] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

// sortTasks orders by deadline (nulls last), then newest first
func sortTasks(tasks []*domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		switch {
		case a.Deadline == nil && b.Deadline != nil:
			return false
		case a.Deadline != nil && b.Deadline == nil:
			return true
		case a.Deadline != nil && b.Deadline != nil && !a.Deadline.Equal(*b.Deadline):
			return a.Deadline.Before(*b.Deadline)
		}
		if !a.CreatedDate.Equal(b.CreatedDate) {
			return a.CreatedDate.After(b.CreatedDate)
		}
		return a.ID < b.ID
	})
}
