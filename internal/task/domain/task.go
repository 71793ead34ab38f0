package domain

import (
	"strings"
	"time"
)

// Priority represents task priority level
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// TaskStatus represents the current state of a task.
// Any transition between statuses is permitted.
type TaskStatus string

const (
	TaskStatusToDo       TaskStatus = "To Do"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusInReview   TaskStatus = "In Review"
	TaskStatusDone       TaskStatus = "Done"
)

// RecurrenceInterval is the unit a recurring task repeats in
type RecurrenceInterval string

const (
	IntervalDays   RecurrenceInterval = "days"
	IntervalWeeks  RecurrenceInterval = "weeks"
	IntervalMonths RecurrenceInterval = "months"
)

// Valid reports whether the interval is one of the supported units
func (i RecurrenceInterval) Valid() bool {
	switch i {
	case IntervalDays, IntervalWeeks, IntervalMonths:
		return true
	}
	return false
}

// Task is a unit of work. A Task with a non-empty ParentTaskID is a subtask
// and is only reachable through its parent.
type Task struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Priority     Priority   `json:"priority"`
	Status       TaskStatus `json:"status"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	CreatedDate  time.Time  `json:"createdDate"`
	ModifiedDate time.Time  `json:"modifiedDate"`
	Tags         []string   `json:"tags"`

	Project   *Ref  `json:"project,omitempty"`
	Creator   Ref   `json:"creator"`
	Assignees []Ref `json:"assignees"`

	Recurring          bool               `json:"recurring"`
	RecurrenceInterval RecurrenceInterval `json:"recurrenceInterval,omitempty"`
	RecurrenceValue    int                `json:"recurrenceValue,omitempty"`
	IsCurrentInstance  bool               `json:"isCurrentInstance"`

	ParentTaskID string `json:"parentTaskId,omitempty"`
	IsOverdue    bool   `json:"isOverdue"`
}

// IsSubtask reports whether the task lives under a parent task
func (t *Task) IsSubtask() bool {
	return t.ParentTaskID != ""
}

// IsAssignee reports whether userID is among the task's assignees
func (t *Task) IsAssignee(userID string) bool {
	for _, a := range t.Assignees {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// IsCreator reports whether userID created the task
func (t *Task) IsCreator(userID string) bool {
	return t.Creator.ID != "" && t.Creator.ID == userID
}

// ProjectID returns the id of the owning project, or "" when there is none
func (t *Task) ProjectID() string {
	if t.Project == nil {
		return ""
	}
	return t.Project.ID
}

// RefreshOverdue recomputes IsOverdue against now
func (t *Task) RefreshOverdue(now time.Time) {
	t.IsOverdue = ComputeOverdue(t.Deadline, t.Status, now)
}

// ComputeOverdue is true when a deadline has passed on an unfinished task
func ComputeOverdue(deadline *time.Time, status TaskStatus, now time.Time) bool {
	return deadline != nil && deadline.Before(now) && status != TaskStatusDone
}

// Clone returns a deep copy of the task
func (t *Task) Clone() *Task {
	cp := *t
	if t.Deadline != nil {
		d := *t.Deadline
		cp.Deadline = &d
	}
	if t.Project != nil {
		p := *t.Project
		cp.Project = &p
	}
	cp.Tags = append([]string(nil), t.Tags...)
	cp.Assignees = append([]Ref(nil), t.Assignees...)
	return &cp
}

// EnrichedTask is the read view of a task with referenced names resolved and
// all dates rendered in the canonical ISO-8601 form.
type EnrichedTask struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	Priority     Priority   `json:"priority"`
	Status       TaskStatus `json:"status"`
	Deadline     *string    `json:"deadline"`
	CreatedDate  *string    `json:"createdDate"`
	ModifiedDate *string    `json:"modifiedDate"`
	Tags         []string   `json:"tags"`

	Project   *Ref  `json:"project,omitempty"`
	Creator   Ref   `json:"creator"`
	Assignees []Ref `json:"assignees"`

	Recurring          bool               `json:"recurring"`
	RecurrenceInterval RecurrenceInterval `json:"recurrenceInterval,omitempty"`
	RecurrenceValue    int                `json:"recurrenceValue,omitempty"`
	IsCurrentInstance  bool               `json:"isCurrentInstance"`
	ParentTaskID       string             `json:"parentTaskId,omitempty"`
	IsOverdue          bool               `json:"isOverdue"`

	ProjectTitle  string   `json:"projectTitle"`
	CreatorName   string   `json:"creatorName"`
	AssigneeNames []string `json:"assigneeNames"`
}

// NormalizeStatus maps loosely formatted input ("done", "in_progress",
// "IN-REVIEW", "todo") onto the canonical status values.
func NormalizeStatus(s string) (TaskStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("_", " ", "-", " ").Replace(key)
	key = strings.Join(strings.Fields(key), " ")
	switch key {
	case "to do", "todo":
		return TaskStatusToDo, true
	case "in progress", "inprogress":
		return TaskStatusInProgress, true
	case "in review", "inreview", "review":
		return TaskStatusInReview, true
	case "done", "completed", "complete":
		return TaskStatusDone, true
	}
	return "", false
}

// ParsePriority maps free-form input to a priority, defaulting to medium
func ParsePriority(p string) Priority {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "high":
		return PriorityHigh
	case "low":
		return PriorityLow
	default:
		return PriorityMedium
	}
}

// NormalizeTags trims and de-duplicates tags, keeping first-seen order
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
