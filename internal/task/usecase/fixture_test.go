package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	authdomain "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/domain"
	authrepo "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/repository"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/notification"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/repository"
)

var fixedNow = time.Date(2025, 11, 10, 9, 0, 0, 0, time.UTC)

type fixture struct {
	users     *authrepo.MemoryUserRepository
	projects  *repository.MemoryProjectRepository
	tasks     *repository.MemoryTaskRepository
	resolver  ReferenceResolver
	enricher  *TaskEnricher
	access    *AccessResolver
	usecase   TaskUsecase
	publisher *recordingPublisher
	notifier  *recordingNotifier
	now       time.Time
}

func newFixture() *fixture {
	f := &fixture{
		users: authrepo.NewMemoryUserRepository(
			authdomain.User{ID: "hr1", Name: "Hana", Role: authdomain.RoleHR},
			authdomain.User{ID: "mgr1", Name: "Minh", Role: authdomain.RoleManager},
			authdomain.User{ID: "mgr2", Name: "Mai", Role: authdomain.RoleManager},
			authdomain.User{ID: "a", Name: "Anna", Role: authdomain.RoleStaff},
			authdomain.User{ID: "b", Name: "Bao", Role: authdomain.RoleStaff},
			authdomain.User{ID: "c", Name: "Chi", Role: authdomain.RoleStaff},
		),
		projects: repository.NewMemoryProjectRepository(
			domain.Project{ID: "p1", Title: "Harvest", Owner: domain.UserRef("mgr1")},
			domain.Project{ID: "p2", Title: "Irrigation", Owner: domain.UserRef("mgr2")},
		),
		tasks:     repository.NewMemoryTaskRepository(),
		publisher: &recordingPublisher{},
		notifier:  &recordingNotifier{},
		now:       fixedNow,
	}
	f.resolver = NewReferenceResolver(f.users, f.projects)
	f.enricher = NewTaskEnricher(f.resolver, 4)
	f.access = NewAccessResolver(f.tasks, f.projects, f.resolver, f.enricher)
	f.usecase = NewTaskUsecase(f.tasks, f.projects, f.resolver, f.enricher)
	f.usecase.SetClock(func() time.Time { return f.now })
	f.usecase.SetPublisher(f.publisher)
	f.usecase.SetNotifier(f.notifier)
	return f
}

// seed stores a current top-level task directly, bypassing validation
func (f *fixture) seed(id, creator string, project string, assignees ...string) *domain.Task {
	t := &domain.Task{
		ID:                id,
		Title:             "task " + id,
		Priority:          domain.PriorityMedium,
		Status:            domain.TaskStatusToDo,
		CreatedDate:       f.now,
		ModifiedDate:      f.now,
		Creator:           domain.UserRef(creator),
		IsCurrentInstance: true,
	}
	if project != "" {
		ref := domain.ProjectRef(project)
		t.Project = &ref
	}
	for _, a := range assignees {
		t.Assignees = append(t.Assignees, domain.UserRef(a))
	}
	if err := f.tasks.Create(context.Background(), t); err != nil {
		panic(err)
	}
	return t
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []notification.TaskEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event notification.TaskEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) count(t notification.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls [][]string
}

func (n *recordingNotifier) NotifyUsers(_ context.Context, userIDs []string, _ notification.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, append([]string(nil), userIDs...))
}

// failingResolver fails every lookup
type failingResolver struct{}

var errStoreDown = errors.New("store unavailable")

func (failingResolver) Resolve(context.Context, domain.Ref) (*Entity, error) {
	return nil, errStoreDown
}

func (failingResolver) ResolveUser(context.Context, string) (*authdomain.User, error) {
	return nil, errStoreDown
}

func (failingResolver) ResolveProject(context.Context, string) (*domain.Project, error) {
	return nil, errStoreDown
}

// failingAppendProjects rejects every task-list append
type failingAppendProjects struct {
	repository.ProjectRepository
}

func (failingAppendProjects) AppendTask(context.Context, string, domain.Ref) error {
	return errStoreDown
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }
func boolPtr(b bool) *bool    { return &b }

func ids(tasks []*domain.EnrichedTask) map[string]bool {
	out := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		out[t.ID] = true
	}
	return out
}
