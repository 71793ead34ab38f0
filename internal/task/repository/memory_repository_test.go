package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"
)

func TestMemoryCompleteIsCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTaskRepository()
	if err := repo.Create(ctx, &domain.Task{ID: "t1", Title: "x", IsCurrentInstance: true}); err != nil {
		t.Fatal(err)
	}
	completedAt := time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
	next := func(retired *domain.Task) (*domain.Task, error) {
		s := retired.Clone()
		s.ID = ""
		s.Status = domain.TaskStatusToDo
		s.IsCurrentInstance = true
		return s, nil
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		won      int
		retiredN int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := repo.Complete(ctx, "t1", completedAt, next)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil && res.Successor != nil:
				won++
			case errors.Is(err, domain.ErrAlreadyRetired):
				retiredN++
			default:
				t.Errorf("Complete: %+v, %v", res, err)
			}
		}()
	}
	wg.Wait()

	if won != 1 || retiredN != 9 {
		t.Fatalf("won=%d retired=%d, want 1 and 9", won, retiredN)
	}
	all, _ := repo.FindAll(ctx)
	if len(all) != 2 {
		t.Fatalf("%d tasks stored, want 2", len(all))
	}
	original, _ := repo.FindByID(ctx, "t1")
	if original.IsCurrentInstance || original.Status != domain.TaskStatusDone || !original.ModifiedDate.Equal(completedAt) {
		t.Fatalf("original not retired: %+v", original)
	}
}

func TestMemoryCompleteMissing(t *testing.T) {
	_, err := NewMemoryTaskRepository().Complete(context.Background(), "nope", time.Now(), nil)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestMemoryCompleteSuccessorErrorWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTaskRepository()
	_ = repo.Create(ctx, &domain.Task{ID: "t1", IsCurrentInstance: true})

	boom := errors.New("boom")
	if _, err := repo.Complete(ctx, "t1", time.Now(), func(*domain.Task) (*domain.Task, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	got, _ := repo.FindByID(ctx, "t1")
	if !got.IsCurrentInstance {
		t.Fatalf("failed completion retired the task")
	}
}

func TestMemoryStoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTaskRepository()
	task := &domain.Task{Title: "x", Tags: []string{"a"}}
	if err := repo.Create(ctx, task); err != nil {
		t.Fatal(err)
	}
	if task.ID == "" {
		t.Fatalf("Create did not assign an id")
	}
	task.Tags[0] = "changed"

	got, _ := repo.FindByID(ctx, task.ID)
	if got.Tags[0] != "a" {
		t.Fatalf("store shares memory with caller")
	}
}

func TestMemoryTopLevelQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTaskRepository()
	p := domain.ProjectRef("p1")
	_ = repo.Create(ctx, &domain.Task{ID: "top", Project: &p, Creator: domain.UserRef("a"), Assignees: []domain.Ref{domain.UserRef("b")}})
	_ = repo.Create(ctx, &domain.Task{ID: "sub", Project: &p, Creator: domain.UserRef("a"), Assignees: []domain.Ref{domain.UserRef("b")}, ParentTaskID: "top"})

	for name, find := range map[string]func() ([]*domain.Task, error){
		"all":      func() ([]*domain.Task, error) { return repo.FindAll(ctx) },
		"project":  func() ([]*domain.Task, error) { return repo.FindByProjects(ctx, []string{"p1"}) },
		"creator":  func() ([]*domain.Task, error) { return repo.FindByCreator(ctx, "a") },
		"assignee": func() ([]*domain.Task, error) { return repo.FindByAssignee(ctx, "b") },
	} {
		got, err := find()
		if err != nil || len(got) != 1 || got[0].ID != "top" {
			t.Fatalf("%s: got %v, %v", name, got, err)
		}
	}

	subs, _ := repo.FindSubtasks(ctx, "top")
	if len(subs) != 1 || subs[0].ID != "sub" {
		t.Fatalf("FindSubtasks = %v", subs)
	}

	if err := repo.Delete(ctx, "top"); err != nil {
		t.Fatal(err)
	}
	if got, _ := repo.FindByID(ctx, "sub"); got != nil {
		t.Fatalf("subtask survived cascade delete")
	}
}

func TestMemoryAppendTaskIsSetUnion(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryProjectRepository(domain.Project{ID: "p1", Owner: domain.UserRef("m")})

	for i := 0; i < 3; i++ {
		if err := repo.AppendTask(ctx, "p1", domain.TaskRef("t1")); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.AppendTask(ctx, "p1", domain.TaskRef("t2")); err != nil {
		t.Fatal(err)
	}
	p, _ := repo.FindByID(ctx, "p1")
	if len(p.TaskList) != 2 {
		t.Fatalf("TaskList = %v, want two entries", p.TaskList)
	}

	if err := repo.AppendTask(ctx, "missing", domain.TaskRef("t1")); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("append to missing project: err = %v", err)
	}
}

func TestIsCurrent(t *testing.T) {
	f, tr := false, true
	if !IsCurrent(nil) || !IsCurrent(&tr) || IsCurrent(&f) {
		t.Fatalf("IsCurrent mismatch")
	}
}

func TestMemoryUpdateRejectsRetiredInstance(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryTaskRepository()
	_ = repo.Create(ctx, &domain.Task{ID: "t1", Title: "x", Status: domain.TaskStatusToDo, IsCurrentInstance: true})

	stale, _ := repo.FindByID(ctx, "t1")
	if _, err := repo.Complete(ctx, "t1", time.Now(), nil); err != nil {
		t.Fatal(err)
	}

	stale.Title = "y"
	if err := repo.Update(ctx, stale); !errors.Is(err, domain.ErrAlreadyRetired) {
		t.Fatalf("err = %v, want already retired", err)
	}
	got, _ := repo.FindByID(ctx, "t1")
	if got.IsCurrentInstance || got.Status != domain.TaskStatusDone || got.Title != "x" {
		t.Fatalf("stale update landed: %+v", got)
	}

	// a write that read the retired state still goes through
	got.Title = "z"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update retired copy: %v", err)
	}
	if err := repo.Update(ctx, &domain.Task{ID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing: err = %v", err)
	}
}
