package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// taskRow is the Postgres shape of a task. Subtasks share the table and are
// found through the parent_task_id index.
type taskRow struct {
	ID                 string         `gorm:"primaryKey"`
	Title              string         `gorm:"not null"`
	Description        string
	Priority           string
	Status             string         `gorm:"index"`
	Deadline           *time.Time     `gorm:"index"`
	CreatedDate        time.Time
	ModifiedDate       time.Time
	Tags               pq.StringArray `gorm:"type:text[]"`
	ProjectID          *string        `gorm:"index"`
	CreatorID          string         `gorm:"index;not null"`
	AssigneeIDs        pq.StringArray `gorm:"type:text[]"`
	Recurring          bool
	RecurrenceInterval string
	RecurrenceValue    int
	IsCurrentInstance  bool   `gorm:"not null;index"`
	ParentTaskID       string `gorm:"index"`
	IsOverdue          bool
}

func (taskRow) TableName() string { return "tasks" }

func newTaskRow(t *domain.Task) *taskRow {
	row := &taskRow{
		ID:                 t.ID,
		Title:              t.Title,
		Description:        t.Description,
		Priority:           string(t.Priority),
		Status:             string(t.Status),
		Deadline:           t.Deadline,
		CreatedDate:        t.CreatedDate,
		ModifiedDate:       t.ModifiedDate,
		Tags:               pq.StringArray(t.Tags),
		CreatorID:          t.Creator.ID,
		Recurring:          t.Recurring,
		RecurrenceInterval: string(t.RecurrenceInterval),
		RecurrenceValue:    t.RecurrenceValue,
		IsCurrentInstance:  t.IsCurrentInstance,
		ParentTaskID:       t.ParentTaskID,
		IsOverdue:          t.IsOverdue,
	}
	if t.Project != nil {
		id := t.Project.ID
		row.ProjectID = &id
	}
	for _, a := range t.Assignees {
		row.AssigneeIDs = append(row.AssigneeIDs, a.ID)
	}
	return row
}

func (row *taskRow) toDomain() *domain.Task {
	t := &domain.Task{
		ID:                 row.ID,
		Title:              row.Title,
		Description:        row.Description,
		Priority:           domain.Priority(row.Priority),
		Status:             domain.TaskStatus(row.Status),
		Deadline:           row.Deadline,
		CreatedDate:        row.CreatedDate,
		ModifiedDate:       row.ModifiedDate,
		Tags:               []string(row.Tags),
		Creator:            domain.UserRef(row.CreatorID),
		Recurring:          row.Recurring,
		RecurrenceInterval: domain.RecurrenceInterval(row.RecurrenceInterval),
		RecurrenceValue:    row.RecurrenceValue,
		IsCurrentInstance:  row.IsCurrentInstance,
		ParentTaskID:       row.ParentTaskID,
		IsOverdue:          row.IsOverdue,
	}
	if row.ProjectID != nil && *row.ProjectID != "" {
		ref := domain.ProjectRef(*row.ProjectID)
		t.Project = &ref
	}
	for _, id := range row.AssigneeIDs {
		t.Assignees = append(t.Assignees, domain.UserRef(id))
	}
	return t
}

type projectRow struct {
	ID          string `gorm:"primaryKey"`
	Title       string
	Description string
	OwnerID     string         `gorm:"index"`
	TaskList    pq.StringArray `gorm:"type:text[]"`
}

func (projectRow) TableName() string { return "projects" }

func (row *projectRow) toDomain() *domain.Project {
	p := &domain.Project{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Owner:       domain.UserRef(row.OwnerID),
	}
	for _, id := range row.TaskList {
		p.TaskList = append(p.TaskList, domain.TaskRef(id))
	}
	return p
}

// gormTaskRepository implements TaskRepository using GORM
type gormTaskRepository struct {
	db *gorm.DB
}

// NewGormTaskRepository creates a new GORM-based TaskRepository
func NewGormTaskRepository(db *gorm.DB) TaskRepository {
	if err := db.AutoMigrate(&taskRow{}); err != nil {
		log.Printf("[TaskRepository] Auto-migrate tasks failed: %v", err)
	}
	return &gormTaskRepository{db: db}
}

func (r *gormTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(newTaskRow(task)).Error
}

func (r *gormTaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	var row taskRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find task %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func (r *gormTaskRepository) FindAll(ctx context.Context) ([]*domain.Task, error) {
	return r.find(r.topLevel(ctx))
}

func (r *gormTaskRepository) FindByProjects(ctx context.Context, projectIDs []string) ([]*domain.Task, error) {
	if len(projectIDs) == 0 {
		return nil, nil
	}
	return r.find(r.topLevel(ctx).Where("project_id IN ?", projectIDs))
}

func (r *gormTaskRepository) FindByCreator(ctx context.Context, userID string) ([]*domain.Task, error) {
	return r.find(r.topLevel(ctx).Where("creator_id = ?", userID))
}

func (r *gormTaskRepository) FindByAssignee(ctx context.Context, userID string) ([]*domain.Task, error) {
	return r.find(r.topLevel(ctx).Where("? = ANY(assignee_ids)", userID))
}

func (r *gormTaskRepository) FindSubtasks(ctx context.Context, parentID string) ([]*domain.Task, error) {
	return r.find(r.db.WithContext(ctx).Model(&taskRow{}).Where("parent_task_id = ?", parentID))
}

func (r *gormTaskRepository) topLevel(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&taskRow{}).Where("COALESCE(parent_task_id, '') = ''")
}

func (r *gormTaskRepository) find(query *gorm.DB) ([]*domain.Task, error) {
	var rows []taskRow
	if err := query.Order("created_date ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]*domain.Task, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, rows[i].toDomain())
	}
	return tasks, nil
}

// Update only writes when the stored is_current_instance still matches the
// value the caller read, so a completion that committed in between is not
// undone.
func (r *gormTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	res := r.db.WithContext(ctx).Model(&taskRow{}).
		Where("id = ? AND is_current_instance = ?", task.ID, task.IsCurrentInstance).
		Select("*").
		Updates(newTaskRow(task))
	if res.Error != nil {
		return fmt.Errorf("update task %s: %w", task.ID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	existing, err := r.FindByID(ctx, task.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("task %s: %w", task.ID, domain.ErrNotFound)
	}
	return domain.ErrAlreadyRetired
}

func (r *gormTaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("parent_task_id = ?", id).Delete(&taskRow{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&taskRow{}).Error
	})
}

// Complete relies on the row lock taken by the conditional UPDATE: a
// concurrent completion blocks on it, re-evaluates the WHERE clause after
// this transaction commits and updates nothing.
func (r *gormTaskRepository) Complete(ctx context.Context, id string, completedAt time.Time, next SuccessorFunc) (*CompletionResult, error) {
	var result CompletionResult
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&taskRow{}).
			Where("id = ? AND is_current_instance = ?", id, true).
			Updates(map[string]interface{}{
				"status":              string(domain.TaskStatusDone),
				"is_current_instance": false,
				"is_overdue":          false,
				"modified_date":       completedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&taskRow{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
			}
			return domain.ErrAlreadyRetired
		}

		var row taskRow
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			return err
		}
		result.Retired = row.toDomain()
		if next == nil {
			return nil
		}

		successor, err := next(result.Retired.Clone())
		if err != nil || successor == nil {
			return err
		}
		if successor.ID == "" {
			successor.ID = uuid.New().String()
		}
		if err := tx.Create(newTaskRow(successor)).Error; err != nil {
			return err
		}
		result.Successor = successor
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *gormTaskRepository) FindOverdueCandidates(ctx context.Context, now time.Time) ([]*domain.Task, error) {
	return r.find(r.db.WithContext(ctx).Model(&taskRow{}).
		Where("is_current_instance = ? AND is_overdue = ? AND status <> ? AND deadline IS NOT NULL AND deadline < ?",
			true, false, string(domain.TaskStatusDone), now))
}

func (r *gormTaskRepository) MarkOverdue(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&taskRow{}).Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_overdue": true,
		}).Error
}

type gormProjectRepository struct {
	db *gorm.DB
}

// NewGormProjectRepository creates a GORM-based ProjectRepository
func NewGormProjectRepository(db *gorm.DB) ProjectRepository {
	if err := db.AutoMigrate(&projectRow{}); err != nil {
		log.Printf("[ProjectRepository] Auto-migrate projects failed: %v", err)
	}
	return &gormProjectRepository{db: db}
}

func (r *gormProjectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	var row projectRow
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find project %s: %w", id, err)
	}
	return row.toDomain(), nil
}

func (r *gormProjectRepository) FindByOwner(ctx context.Context, userID string) ([]*domain.Project, error) {
	var rows []projectRow
	if err := r.db.WithContext(ctx).Where("owner_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list projects for %s: %w", userID, err)
	}
	projects := make([]*domain.Project, 0, len(rows))
	for i := range rows {
		projects = append(projects, rows[i].toDomain())
	}
	return projects, nil
}

// AppendTask is a single conditional UPDATE, so retries and concurrent
// appends of the same reference leave exactly one entry.
func (r *gormProjectRepository) AppendTask(ctx context.Context, projectID string, task domain.Ref) error {
	res := r.db.WithContext(ctx).Exec(
		`UPDATE projects SET task_list = array_append(COALESCE(task_list, '{}'::text[]), ?)
		 WHERE id = ? AND NOT (? = ANY(COALESCE(task_list, '{}'::text[])))`,
		task.ID, projectID, task.ID)
	if res.Error != nil {
		return fmt.Errorf("append task to project %s: %w", projectID, res.Error)
	}
	if res.RowsAffected == 0 {
		project, err := r.FindByID(ctx, projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
		}
	}
	return nil
}
