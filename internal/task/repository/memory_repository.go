package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"

	"github.com/google/uuid"
)

var (
	_ TaskRepository    = (*MemoryTaskRepository)(nil)
	_ ProjectRepository = (*MemoryProjectRepository)(nil)
)

// MemoryTaskRepository is an in-process TaskRepository. A single mutex makes
// every method, Complete included, atomic.
type MemoryTaskRepository struct {
	mu    sync.Mutex
	tasks map[string]*domain.Task
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{tasks: make(map[string]*domain.Task)}
}

func (r *MemoryTaskRepository) Create(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(task)
	return nil
}

func (r *MemoryTaskRepository) insertLocked(task *domain.Task) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	r.tasks[task.ID] = task.Clone()
}

func (r *MemoryTaskRepository) FindByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, nil
	}
	return t.Clone(), nil
}

func (r *MemoryTaskRepository) FindAll(_ context.Context) ([]*domain.Task, error) {
	return r.filter(func(t *domain.Task) bool { return !t.IsSubtask() }), nil
}

func (r *MemoryTaskRepository) FindByProjects(_ context.Context, projectIDs []string) ([]*domain.Task, error) {
	wanted := make(map[string]struct{}, len(projectIDs))
	for _, id := range projectIDs {
		wanted[id] = struct{}{}
	}
	return r.filter(func(t *domain.Task) bool {
		if t.IsSubtask() || t.Project == nil {
			return false
		}
		_, ok := wanted[t.Project.ID]
		return ok
	}), nil
}

func (r *MemoryTaskRepository) FindByCreator(_ context.Context, userID string) ([]*domain.Task, error) {
	return r.filter(func(t *domain.Task) bool { return !t.IsSubtask() && t.IsCreator(userID) }), nil
}

func (r *MemoryTaskRepository) FindByAssignee(_ context.Context, userID string) ([]*domain.Task, error) {
	return r.filter(func(t *domain.Task) bool { return !t.IsSubtask() && t.IsAssignee(userID) }), nil
}

func (r *MemoryTaskRepository) FindSubtasks(_ context.Context, parentID string) ([]*domain.Task, error) {
	return r.filter(func(t *domain.Task) bool { return t.ParentTaskID == parentID }), nil
}

func (r *MemoryTaskRepository) filter(keep func(*domain.Task) bool) []*domain.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Task
	for _, t := range r.tasks {
		if keep(t) {
			out = append(out, t.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedDate.Equal(out[j].CreatedDate) {
			return out[i].CreatedDate.Before(out[j].CreatedDate)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *MemoryTaskRepository) Update(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tasks[task.ID]
	if !ok {
		return fmt.Errorf("task %s: %w", task.ID, domain.ErrNotFound)
	}
	if stored.IsCurrentInstance != task.IsCurrentInstance {
		return domain.ErrAlreadyRetired
	}
	r.tasks[task.ID] = task.Clone()
	return nil
}

func (r *MemoryTaskRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sid, t := range r.tasks {
		if t.ParentTaskID == id {
			delete(r.tasks, sid)
		}
	}
	delete(r.tasks, id)
	return nil
}

func (r *MemoryTaskRepository) Complete(_ context.Context, id string, completedAt time.Time, next SuccessorFunc) (*CompletionResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	if !current.IsCurrentInstance {
		return nil, domain.ErrAlreadyRetired
	}

	retired := current.Clone()
	Retire(retired, completedAt)

	var successor *domain.Task
	if next != nil {
		var err error
		successor, err = next(retired.Clone())
		if err != nil {
			return nil, err
		}
	}

	r.tasks[id] = retired.Clone()
	result := &CompletionResult{Retired: retired}
	if successor != nil {
		r.insertLocked(successor)
		result.Successor = successor.Clone()
	}
	return result, nil
}

func (r *MemoryTaskRepository) FindOverdueCandidates(_ context.Context, now time.Time) ([]*domain.Task, error) {
	return r.filter(func(t *domain.Task) bool {
		return t.IsCurrentInstance && !t.IsOverdue && domain.ComputeOverdue(t.Deadline, t.Status, now)
	}), nil
}

func (r *MemoryTaskRepository) MarkOverdue(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	t.IsOverdue = true
	return nil
}

// Retire applies the retired-instance field values to t
func Retire(t *domain.Task, completedAt time.Time) {
	t.Status = domain.TaskStatusDone
	t.IsCurrentInstance = false
	t.IsOverdue = false
	t.ModifiedDate = completedAt
}

// MemoryProjectRepository is an in-process ProjectRepository
type MemoryProjectRepository struct {
	mu       sync.Mutex
	projects map[string]*domain.Project
}

func NewMemoryProjectRepository(projects ...domain.Project) *MemoryProjectRepository {
	r := &MemoryProjectRepository{projects: make(map[string]*domain.Project)}
	for i := range projects {
		r.Put(projects[i])
	}
	return r
}

// Put inserts or replaces a project
func (r *MemoryProjectRepository) Put(p domain.Project) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.TaskList = append([]domain.Ref(nil), p.TaskList...)
	r.projects[p.ID] = &p
}

func (r *MemoryProjectRepository) FindByID(_ context.Context, id string) (*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, nil
	}
	return cloneProject(p), nil
}

func (r *MemoryProjectRepository) FindByOwner(_ context.Context, userID string) ([]*domain.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Project
	for _, p := range r.projects {
		if p.Owner.ID == userID {
			out = append(out, cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryProjectRepository) AppendTask(_ context.Context, projectID string, task domain.Ref) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.projects[projectID]
	if !ok {
		return fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
	}
	if !p.HasTask(task) {
		p.TaskList = append(p.TaskList, task)
	}
	return nil
}

func cloneProject(p *domain.Project) *domain.Project {
	cp := *p
	cp.TaskList = append([]domain.Ref(nil), p.TaskList...)
	return &cp
}
