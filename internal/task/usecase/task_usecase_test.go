package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/notification"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/repository"
)

func TestCreateTaskValidation(t *testing.T) {
	deadline := "2025-11-15T00:00:00Z"
	tests := []struct {
		name  string
		input CreateTaskInput
	}{
		{"missing title", CreateTaskInput{Title: "  ", CreatorID: "a"}},
		{"missing creator", CreateTaskInput{Title: "Water plants"}},
		{"zero value", CreateTaskInput{Title: "x", CreatorID: "a", Recurring: true, RecurrenceInterval: "days", RecurrenceValue: 0, Deadline: &deadline}},
		{"negative value", CreateTaskInput{Title: "x", CreatorID: "a", Recurring: true, RecurrenceInterval: "weeks", RecurrenceValue: -3, Deadline: &deadline}},
		{"unknown interval", CreateTaskInput{Title: "x", CreatorID: "a", Recurring: true, RecurrenceInterval: "years", RecurrenceValue: 1, Deadline: &deadline}},
		{"recurring without deadline", CreateTaskInput{Title: "x", CreatorID: "a", Recurring: true, RecurrenceInterval: "days", RecurrenceValue: 1}},
		{"bad status", CreateTaskInput{Title: "x", CreatorID: "a", Status: "blocked"}},
		{"bad deadline", CreateTaskInput{Title: "x", CreatorID: "a", Deadline: strPtr("next tuesday")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.usecase.CreateTask(context.Background(), tt.input)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
			all, _ := f.tasks.FindAll(context.Background())
			if len(all) != 0 {
				t.Fatalf("%d tasks stored after rejected create", len(all))
			}
		})
	}
}

func TestCreateTaskAcceptsLargeRecurrenceValue(t *testing.T) {
	f := newFixture()
	task, err := f.usecase.CreateTask(context.Background(), CreateTaskInput{
		Title:              "Rotate crops",
		CreatorID:          "a",
		Deadline:           strPtr("2025-11-15T00:00:00Z"),
		Recurring:          true,
		RecurrenceInterval: "Days",
		RecurrenceValue:    1000,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.RecurrenceInterval != domain.IntervalDays || task.RecurrenceValue != 1000 {
		t.Fatalf("recurrence = %s/%d", task.RecurrenceInterval, task.RecurrenceValue)
	}
	if !task.IsCurrentInstance || task.Status != domain.TaskStatusToDo {
		t.Fatalf("new task should be a current To Do instance, got %+v", task)
	}
}

func TestCreateTaskUnknownCreator(t *testing.T) {
	f := newFixture()
	_, err := f.usecase.CreateTask(context.Background(), CreateTaskInput{Title: "x", CreatorID: "ghost"})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCreateTaskSkipsUnresolvableReferences(t *testing.T) {
	f := newFixture()
	task, err := f.usecase.CreateTask(context.Background(), CreateTaskInput{
		Title:       "Fix fence",
		CreatorID:   "users/a",
		ProjectID:   "missing-project",
		AssigneeIDs: []string{"b", "ghost", "users/c", "b"},
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Project != nil {
		t.Fatalf("Project = %v, want nil", task.Project)
	}
	if len(task.Assignees) != 2 || task.Assignees[0].ID != "b" || task.Assignees[1].ID != "c" {
		t.Fatalf("Assignees = %v, want [b c]", task.Assignees)
	}
	if task.Creator != domain.UserRef("a") {
		t.Fatalf("Creator = %v", task.Creator)
	}
	if len(f.notifier.calls) != 1 || len(f.notifier.calls[0]) != 2 {
		t.Fatalf("notifier calls = %v, want one call for b and c", f.notifier.calls)
	}
	if f.publisher.count(notification.EventTaskCreated) != 1 {
		t.Fatalf("expected one task.created event")
	}
}

func TestCreateTaskLinksProject(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task, err := f.usecase.CreateTask(ctx, CreateTaskInput{Title: "Sow", CreatorID: "mgr1", ProjectID: "projects/p1"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	// a retried append must not duplicate the entry
	if err := f.projects.AppendTask(ctx, "p1", domain.TaskRef(task.ID)); err != nil {
		t.Fatalf("AppendTask: %v", err)
	}

	project, _ := f.projects.FindByID(ctx, "p1")
	if len(project.TaskList) != 1 || project.TaskList[0] != domain.TaskRef(task.ID) {
		t.Fatalf("TaskList = %v, want [%s]", project.TaskList, task.ID)
	}
}

func TestCreateTaskSurvivesFailedProjectLink(t *testing.T) {
	f := newFixture()
	uc := NewTaskUsecase(f.tasks, failingAppendProjects{f.projects}, f.resolver, f.enricher)

	task, err := uc.CreateTask(context.Background(), CreateTaskInput{Title: "Sow", CreatorID: "mgr1", ProjectID: "p1"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	stored, _ := f.tasks.FindByID(context.Background(), task.ID)
	if stored == nil || stored.ProjectID() != "p1" {
		t.Fatalf("task should be stored with its project, got %+v", stored)
	}
}

func createRecurring(t *testing.T, f *fixture) *domain.Task {
	t.Helper()
	task, err := f.usecase.CreateTask(context.Background(), CreateTaskInput{
		Title:              "Clean coop",
		CreatorID:          "a",
		ProjectID:          "p1",
		AssigneeIDs:        []string{"b"},
		Tags:               []string{"chores"},
		Deadline:           strPtr("2025-11-15T00:00:00Z"),
		Recurring:          true,
		RecurrenceInterval: "weeks",
		RecurrenceValue:    2,
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	return task
}

func TestCompleteRecurringTask(t *testing.T) {
	tests := []struct {
		name        string
		completedAt time.Time
		want        time.Time
	}{
		{"before deadline", time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC), time.Date(2025, 11, 29, 0, 0, 0, 0, time.UTC)},
		{"after deadline", time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 4, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			ctx := context.Background()
			original := createRecurring(t, f)

			f.now = tt.completedAt
			res, err := f.usecase.CompleteTask(ctx, original.ID, "b")
			if err != nil {
				t.Fatalf("CompleteTask: %v", err)
			}
			if !res.Success || res.Successor == nil {
				t.Fatalf("result = %+v, want success with successor", res)
			}

			successor := res.Successor
			if !successor.Deadline.Equal(tt.want) {
				t.Fatalf("successor deadline = %v, want %v", successor.Deadline, tt.want)
			}
			if successor.Deadline.Before(tt.completedAt) {
				t.Fatalf("successor due before completion")
			}
			if successor.ID == original.ID || successor.Status != domain.TaskStatusToDo || !successor.IsCurrentInstance || successor.IsOverdue {
				t.Fatalf("bad successor %+v", successor)
			}
			if !successor.CreatedDate.Equal(tt.completedAt) {
				t.Fatalf("successor createdDate = %v", successor.CreatedDate)
			}
			if successor.Title != original.Title || successor.RecurrenceValue != 2 || successor.ProjectID() != "p1" ||
				len(successor.Assignees) != 1 || len(successor.Tags) != 1 {
				t.Fatalf("successor did not copy fields: %+v", successor)
			}

			retired, _ := f.tasks.FindByID(ctx, original.ID)
			if retired.IsCurrentInstance || retired.Status != domain.TaskStatusDone || !retired.ModifiedDate.Equal(tt.completedAt) {
				t.Fatalf("original not retired: %+v", retired)
			}

			project, _ := f.projects.FindByID(ctx, "p1")
			if !project.HasTask(domain.TaskRef(successor.ID)) {
				t.Fatalf("successor not linked to project: %v", project.TaskList)
			}
			if f.publisher.count(notification.EventTaskRegenerated) != 1 {
				t.Fatalf("expected one task.regenerated event")
			}
		})
	}
}

func TestCompleteNonRecurringTaskTwice(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task, err := f.usecase.CreateTask(ctx, CreateTaskInput{Title: "Buy seed", CreatorID: "a"})
	if err != nil {
		t.Fatal(err)
	}

	res, err := f.usecase.CompleteTask(ctx, task.ID, "a")
	if err != nil || !res.Success || res.Successor != nil {
		t.Fatalf("first completion = %+v, %v", res, err)
	}

	res, err = f.usecase.CompleteTask(ctx, task.ID, "a")
	if err != nil {
		t.Fatalf("second completion: %v", err)
	}
	if res.Success || res.Message != "task already completed" {
		t.Fatalf("second completion = %+v, want already completed", res)
	}
}

func TestConcurrentCompletionCreatesOneSuccessor(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	original := createRecurring(t, f)

	const callers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.usecase.CompleteTask(ctx, original.ID, "a")
			if err != nil {
				t.Errorf("CompleteTask: %v", err)
				return
			}
			if res.Success {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("%d completions succeeded, want 1", successes)
	}
	all, _ := f.tasks.FindByCreator(ctx, "a")
	current := 0
	for _, task := range all {
		if task.IsCurrentInstance {
			current++
		}
	}
	if len(all) != 2 || current != 1 {
		t.Fatalf("chain has %d tasks with %d current, want 2 and 1", len(all), current)
	}
}

func TestCompleteHiddenTaskIsNotFound(t *testing.T) {
	f := newFixture()
	task := f.seed("t1", "a", "", "b")

	_, err := f.usecase.CompleteTask(context.Background(), task.ID, "c")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	stored, _ := f.tasks.FindByID(context.Background(), task.ID)
	if !stored.IsCurrentInstance {
		t.Fatalf("hidden task was retired")
	}
}

func TestUpdateTaskNormalizesStatus(t *testing.T) {
	for input, want := range map[string]domain.TaskStatus{
		"done":        domain.TaskStatusDone,
		"in_progress": domain.TaskStatusInProgress,
		"IN-REVIEW":   domain.TaskStatusInReview,
		"todo":        domain.TaskStatusToDo,
	} {
		f := newFixture()
		task := f.seed("t1", "a", "")
		got, err := f.usecase.UpdateTask(context.Background(), task.ID, TaskUpdateRequest{Status: strPtr(input)}, "a")
		if err != nil {
			t.Fatalf("UpdateTask(%q): %v", input, err)
		}
		if got.Status != want {
			t.Fatalf("status %q stored as %q, want %q", input, got.Status, want)
		}
	}
}

func TestUpdateTaskPermissions(t *testing.T) {
	tests := []struct {
		requester string
		wantErr   error
	}{
		{"a", nil},
		{"mgr2", nil},
		{"hr1", domain.ErrPermissionDenied},
		{"b", domain.ErrPermissionDenied},
		{"c", domain.ErrPermissionDenied},
		{"ghost", domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.requester, func(t *testing.T) {
			f := newFixture()
			task := f.seed("t1", "a", "", "b")
			_, err := f.usecase.UpdateTask(context.Background(), task.ID, TaskUpdateRequest{Title: strPtr("renamed")}, tt.requester)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("UpdateTask: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateTaskMissing(t *testing.T) {
	f := newFixture()
	_, err := f.usecase.UpdateTask(context.Background(), "nope", TaskUpdateRequest{}, "a")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestUpdateTaskRecurrence(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.seed("t1", "a", "")

	_, err := f.usecase.UpdateTask(ctx, task.ID, TaskUpdateRequest{Recurring: boolPtr(true), RecurrenceInterval: strPtr("days"), RecurrenceValue: intPtr(1)}, "a")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("recurring without deadline: err = %v", err)
	}

	_, err = f.usecase.UpdateTask(ctx, task.ID, TaskUpdateRequest{
		Recurring: boolPtr(true), RecurrenceInterval: strPtr("days"), RecurrenceValue: intPtr(0), Deadline: strPtr("2025-12-01T00:00:00Z"),
	}, "a")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("zero value: err = %v", err)
	}
	stored, _ := f.tasks.FindByID(ctx, task.ID)
	if stored.Recurring || stored.Deadline != nil {
		t.Fatalf("rejected update leaked into store: %+v", stored)
	}

	got, err := f.usecase.UpdateTask(ctx, task.ID, TaskUpdateRequest{
		Recurring: boolPtr(true), RecurrenceInterval: strPtr("months"), RecurrenceValue: intPtr(1), Deadline: strPtr("2025-12-01T00:00:00Z"),
	}, "a")
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if !got.Recurring || got.RecurrenceInterval != domain.IntervalMonths {
		t.Fatalf("got %+v", got)
	}

	got, err = f.usecase.UpdateTask(ctx, task.ID, TaskUpdateRequest{Recurring: boolPtr(false)}, "a")
	if err != nil {
		t.Fatalf("UpdateTask: %v", err)
	}
	if got.Recurring || got.RecurrenceInterval != "" || got.RecurrenceValue != 0 {
		t.Fatalf("turning recurrence off should clear it, got %+v", got)
	}
}

func TestUpdateTaskRecomputesOverdue(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.seed("t1", "a", "")

	got, err := f.usecase.UpdateTask(ctx, task.ID, TaskUpdateRequest{Deadline: strPtr("2025-11-01T00:00:00Z")}, "a")
	if err != nil {
		t.Fatal(err)
	}
	if !got.IsOverdue {
		t.Fatalf("past deadline should be overdue")
	}
	if !got.ModifiedDate.Equal(f.now) {
		t.Fatalf("ModifiedDate = %v, want %v", got.ModifiedDate, f.now)
	}

	got, err = f.usecase.UpdateTask(ctx, task.ID, TaskUpdateRequest{Status: strPtr("Done")}, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.IsOverdue {
		t.Fatalf("done task should not be overdue")
	}

	got, err = f.usecase.UpdateTask(ctx, task.ID, TaskUpdateRequest{Deadline: strPtr("")}, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Deadline != nil {
		t.Fatalf("empty deadline should clear it")
	}
}

func TestDeleteTaskCascades(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	parent := f.seed("parent", "a", "")
	sub, err := f.usecase.CreateTask(ctx, CreateTaskInput{Title: "step", CreatorID: "a", ParentTaskID: parent.ID})
	if err != nil {
		t.Fatal(err)
	}

	if err := f.usecase.DeleteTask(ctx, parent.ID, "hr1"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("hr delete: err = %v", err)
	}
	if err := f.usecase.DeleteTask(ctx, parent.ID, "a"); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	for _, id := range []string{parent.ID, sub.ID} {
		if got, _ := f.tasks.FindByID(ctx, id); got != nil {
			t.Fatalf("task %s survived delete", id)
		}
	}
}

func TestSubtasks(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	parent := f.seed("parent", "a", "p1")
	other := f.seed("other", "a", "")

	if _, err := f.usecase.CreateTask(ctx, CreateTaskInput{Title: "x", CreatorID: "a", ParentTaskID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing parent: err = %v", err)
	}

	sub, err := f.usecase.CreateTask(ctx, CreateTaskInput{Title: "Dig", CreatorID: "a", ParentTaskID: parent.ID, ProjectID: "p1"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	project, _ := f.projects.FindByID(ctx, "p1")
	if project.HasTask(domain.TaskRef(sub.ID)) {
		t.Fatalf("subtasks must not be linked into the project task list")
	}

	list, err := f.usecase.ListSubtasks(ctx, parent.ID, "a")
	if err != nil || len(list) != 1 || list[0].ID != sub.ID {
		t.Fatalf("ListSubtasks = %v, %v", list, err)
	}
	if list, _ := f.usecase.ListSubtasks(ctx, other.ID, "a"); len(list) != 0 {
		t.Fatalf("other task has subtasks %v", list)
	}

	if got, err := f.usecase.GetSubtask(ctx, other.ID, sub.ID, "a"); err != nil || got != nil {
		t.Fatalf("GetSubtask under wrong parent = %v, %v", got, err)
	}

	updated, err := f.usecase.UpdateSubtask(ctx, parent.ID, sub.ID, TaskUpdateRequest{Status: strPtr("in progress")}, "a")
	if err != nil {
		t.Fatalf("UpdateSubtask: %v", err)
	}
	if updated.Status != domain.TaskStatusInProgress || updated.ProjectTitle != "Harvest" {
		t.Fatalf("UpdateSubtask = %+v", updated)
	}

	if got, err := f.usecase.UpdateSubtask(ctx, parent.ID, "missing", TaskUpdateRequest{}, "a"); err != nil || got != nil {
		t.Fatalf("UpdateSubtask missing = %v, %v", got, err)
	}
}

func TestSubtasksFollowParentAccess(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	parent := f.seed("secret", "a", "", "b")
	sub, err := f.usecase.CreateTask(ctx, CreateTaskInput{Title: "step", CreatorID: "a", ParentTaskID: parent.ID})
	if err != nil {
		t.Fatal(err)
	}

	// c can neither see the parent nor tell it apart from a missing one
	_, hiddenErr := f.usecase.ListSubtasks(ctx, parent.ID, "c")
	_, missingErr := f.usecase.ListSubtasks(ctx, "nonexistent", "c")
	if !errors.Is(hiddenErr, domain.ErrNotFound) || !errors.Is(missingErr, domain.ErrNotFound) {
		t.Fatalf("ListSubtasks hidden = %v, missing = %v, want not found for both", hiddenErr, missingErr)
	}
	if got, err := f.usecase.GetSubtask(ctx, parent.ID, sub.ID, "c"); err != nil || got != nil {
		t.Fatalf("GetSubtask hidden = %v, %v", got, err)
	}
	if _, err := f.usecase.UpdateSubtask(ctx, parent.ID, sub.ID, TaskUpdateRequest{Title: strPtr("x")}, "c"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("UpdateSubtask hidden: err = %v", err)
	}
	if _, err := f.usecase.CreateTask(ctx, CreateTaskInput{Title: "x", CreatorID: "c", ParentTaskID: parent.ID}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("CreateTask under hidden parent: err = %v", err)
	}

	// b is assigned, so may read but not write
	if list, err := f.usecase.ListSubtasks(ctx, parent.ID, "b"); err != nil || len(list) != 1 {
		t.Fatalf("assignee ListSubtasks = %v, %v", list, err)
	}
	if _, err := f.usecase.CreateTask(ctx, CreateTaskInput{Title: "x", CreatorID: "b", ParentTaskID: parent.ID}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("assignee CreateTask subtask: err = %v", err)
	}

	// hr reads everything and writes nothing
	if got, err := f.usecase.GetSubtask(ctx, parent.ID, sub.ID, "hr1"); err != nil || got == nil {
		t.Fatalf("hr GetSubtask = %v, %v", got, err)
	}
	if _, err := f.usecase.CreateTask(ctx, CreateTaskInput{Title: "x", CreatorID: "hr1", ParentTaskID: parent.ID}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("hr CreateTask subtask: err = %v", err)
	}
	if _, err := f.usecase.UpdateSubtask(ctx, parent.ID, sub.ID, TaskUpdateRequest{Title: strPtr("x")}, "hr1"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("hr UpdateSubtask: err = %v", err)
	}

	// managers may write under any parent
	if _, err := f.usecase.UpdateSubtask(ctx, parent.ID, sub.ID, TaskUpdateRequest{Status: strPtr("done")}, "mgr2"); err != nil {
		t.Fatalf("manager UpdateSubtask: %v", err)
	}
	stored, _ := f.tasks.FindByID(ctx, sub.ID)
	if stored.Title != "step" || stored.Status != domain.TaskStatusDone {
		t.Fatalf("subtask = %+v", stored)
	}
}

func TestHRCannotCompleteTask(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	task := f.seed("t1", "a", "", "b")

	if _, err := f.usecase.CompleteTask(ctx, task.ID, "hr1"); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("hr completion: err = %v, want permission denied", err)
	}
	stored, _ := f.tasks.FindByID(ctx, task.ID)
	if !stored.IsCurrentInstance || stored.Status != domain.TaskStatusToDo {
		t.Fatalf("hr retired the task: %+v", stored)
	}

	res, err := f.usecase.CompleteTask(ctx, task.ID, "mgr1")
	if err != nil || !res.Success {
		t.Fatalf("manager completion = %+v, %v", res, err)
	}
}

// completingTaskRepository completes the task inside Update, before the
// write lands, the way a concurrent CompleteTask would
type completingTaskRepository struct {
	*repository.MemoryTaskRepository
	complete func()
}

func (r *completingTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	if r.complete != nil {
		r.complete()
		r.complete = nil
	}
	return r.MemoryTaskRepository.Update(ctx, task)
}

func TestUpdateAfterConcurrentCompletionKeepsOneCurrent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	original := createRecurring(t, f)

	repo := &completingTaskRepository{MemoryTaskRepository: f.tasks}
	uc := NewTaskUsecase(repo, f.projects, f.resolver, f.enricher)
	uc.SetClock(func() time.Time { return f.now })
	repo.complete = func() {
		if res, err := uc.CompleteTask(ctx, original.ID, "a"); err != nil || !res.Success {
			t.Fatalf("CompleteTask = %+v, %v", res, err)
		}
	}

	_, err := uc.UpdateTask(ctx, original.ID, TaskUpdateRequest{Title: strPtr("Water beds daily")}, "a")
	if !errors.Is(err, domain.ErrAlreadyRetired) {
		t.Fatalf("UpdateTask err = %v, want already retired", err)
	}

	retired, _ := f.tasks.FindByID(ctx, original.ID)
	if retired.IsCurrentInstance || retired.Status != domain.TaskStatusDone {
		t.Fatalf("completion was overwritten: %+v", retired)
	}
	chain, _ := f.tasks.FindByCreator(ctx, "a")
	current := 0
	for _, task := range chain {
		if task.IsCurrentInstance {
			current++
		}
	}
	if len(chain) != 2 || current != 1 {
		t.Fatalf("chain has %d tasks with %d current, want 2 and 1", len(chain), current)
	}
}
