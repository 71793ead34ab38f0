package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore caps the number of values in an "in" filter
const firestoreInLimit = 30

// taskDoc is the stored document. Dates and references are decoded as
// interface values because older documents hold them in several shapes;
// they are converted into domain values once, in toDomain.
type taskDoc struct {
	Title              string   `firestore:"title"`
	Description        string   `firestore:"description"`
	Priority           string   `firestore:"priority"`
	Status             string   `firestore:"status"`
	Deadline           any      `firestore:"deadline"`
	CreatedDate        any      `firestore:"createdDate"`
	ModifiedDate       any      `firestore:"modifiedDate"`
	Tags               []string `firestore:"tags"`
	Project            any      `firestore:"project"`
	Creator            any      `firestore:"creator"`
	Assignees          []any    `firestore:"assignees"`
	Recurring          bool     `firestore:"recurring"`
	RecurrenceInterval string   `firestore:"recurrenceInterval"`
	RecurrenceValue    int      `firestore:"recurrenceValue"`
	IsCurrentInstance  *bool    `firestore:"isCurrentInstance"`
	ParentTaskID       string   `firestore:"parentTaskId"`
	IsOverdue          bool     `firestore:"isOverdue"`
}

func (d *taskDoc) toDomain(id string) *domain.Task {
	t := &domain.Task{
		ID:                 id,
		Title:              d.Title,
		Description:        d.Description,
		Priority:           domain.ParsePriority(d.Priority),
		Status:             domain.TaskStatusToDo,
		Deadline:           domain.ParseInstant(d.Deadline),
		Tags:               d.Tags,
		Recurring:          d.Recurring,
		RecurrenceInterval: domain.RecurrenceInterval(d.RecurrenceInterval),
		RecurrenceValue:    d.RecurrenceValue,
		IsCurrentInstance:  IsCurrent(d.IsCurrentInstance),
		ParentTaskID:       d.ParentTaskID,
		IsOverdue:          d.IsOverdue,
	}
	if s, ok := domain.NormalizeStatus(d.Status); ok {
		t.Status = s
	}
	if created := domain.ParseInstant(d.CreatedDate); created != nil {
		t.CreatedDate = *created
	}
	if modified := domain.ParseInstant(d.ModifiedDate); modified != nil {
		t.ModifiedDate = *modified
	}
	if ref, ok := refFromValue(domain.CollectionProjects, d.Project); ok {
		t.Project = &ref
	}
	if ref, ok := refFromValue(domain.CollectionUsers, d.Creator); ok {
		t.Creator = ref
	}
	for _, a := range d.Assignees {
		if ref, ok := refFromValue(domain.CollectionUsers, a); ok {
			t.Assignees = append(t.Assignees, ref)
		}
	}
	return t
}

// refFromValue accepts a native document reference or a "collection/id"
// path string.
func refFromValue(collection string, v any) (domain.Ref, bool) {
	switch val := v.(type) {
	case *firestore.DocumentRef:
		if val == nil || val.Parent == nil {
			return domain.Ref{}, false
		}
		return domain.Ref{Collection: val.Parent.ID, ID: val.ID}, true
	case string:
		ref, err := domain.ParseRef(collection, val)
		if err != nil {
			return domain.Ref{}, false
		}
		return ref, true
	}
	return domain.Ref{}, false
}

type firestoreStore struct {
	client *firestore.Client
}

func (s *firestoreStore) docRef(ref domain.Ref) *firestore.DocumentRef {
	return s.client.Collection(ref.Collection).Doc(ref.ID)
}

func (s *firestoreStore) tasks() *firestore.CollectionRef {
	return s.client.Collection(domain.CollectionTasks)
}

func (s *firestoreStore) encodeTask(t *domain.Task) map[string]any {
	assignees := make([]*firestore.DocumentRef, 0, len(t.Assignees))
	for _, a := range t.Assignees {
		assignees = append(assignees, s.docRef(a))
	}
	var project any
	if t.Project != nil {
		project = s.docRef(*t.Project)
	}
	var deadline any
	if t.Deadline != nil {
		deadline = *t.Deadline
	}
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	doc := map[string]any{
		"title":             t.Title,
		"description":       t.Description,
		"priority":          string(t.Priority),
		"status":            string(t.Status),
		"deadline":          deadline,
		"createdDate":       t.CreatedDate,
		"modifiedDate":      t.ModifiedDate,
		"tags":              tags,
		"project":           project,
		"creator":           s.docRef(t.Creator),
		"assignees":         assignees,
		"recurring":         t.Recurring,
		"isCurrentInstance": t.IsCurrentInstance,
		"parentTaskId":      t.ParentTaskID,
		"isOverdue":         t.IsOverdue,
	}
	if t.Recurring {
		doc["recurrenceInterval"] = string(t.RecurrenceInterval)
		doc["recurrenceValue"] = t.RecurrenceValue
	}
	return doc
}

func decodeTask(snap *firestore.DocumentSnapshot) (*domain.Task, error) {
	var doc taskDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", snap.Ref.ID, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

type firestoreTaskRepository struct {
	firestoreStore
}

// NewFirestoreTaskRepository stores tasks and subtasks in one "tasks"
// collection; subtasks carry parentTaskId.
func NewFirestoreTaskRepository(client *firestore.Client) TaskRepository {
	return &firestoreTaskRepository{firestoreStore{client: client}}
}

func (r *firestoreTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	var ref *firestore.DocumentRef
	if task.ID == "" {
		ref = r.tasks().NewDoc()
		task.ID = ref.ID
	} else {
		ref = r.tasks().Doc(task.ID)
	}
	if _, err := ref.Create(ctx, r.encodeTask(task)); err != nil {
		return fmt.Errorf("create task %s: %w", task.ID, err)
	}
	return nil
}

func (r *firestoreTaskRepository) FindByID(ctx context.Context, id string) (*domain.Task, error) {
	if id == "" {
		return nil, nil
	}
	snap, err := r.tasks().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return decodeTask(snap)
}

// FindAll scans the collection: documents without a parentTaskId field
// would be missed by an equality filter.
func (r *firestoreTaskRepository) FindAll(ctx context.Context) ([]*domain.Task, error) {
	return r.collect(ctx, r.tasks().Query, true)
}

func (r *firestoreTaskRepository) FindByProjects(ctx context.Context, projectIDs []string) ([]*domain.Task, error) {
	var out []*domain.Task
	for start := 0; start < len(projectIDs); start += firestoreInLimit {
		end := start + firestoreInLimit
		if end > len(projectIDs) {
			end = len(projectIDs)
		}
		refs := make([]*firestore.DocumentRef, 0, end-start)
		for _, id := range projectIDs[start:end] {
			refs = append(refs, r.docRef(domain.ProjectRef(id)))
		}
		tasks, err := r.collect(ctx, r.tasks().Where("project", "in", refs), true)
		if err != nil {
			return nil, err
		}
		out = append(out, tasks...)
	}
	return out, nil
}

func (r *firestoreTaskRepository) FindByCreator(ctx context.Context, userID string) ([]*domain.Task, error) {
	return r.collect(ctx, r.tasks().Where("creator", "==", r.docRef(domain.UserRef(userID))), true)
}

func (r *firestoreTaskRepository) FindByAssignee(ctx context.Context, userID string) ([]*domain.Task, error) {
	return r.collect(ctx, r.tasks().Where("assignees", "array-contains", r.docRef(domain.UserRef(userID))), true)
}

func (r *firestoreTaskRepository) FindSubtasks(ctx context.Context, parentID string) ([]*domain.Task, error) {
	return r.collect(ctx, r.tasks().Where("parentTaskId", "==", parentID), false)
}

func (r *firestoreTaskRepository) collect(ctx context.Context, q firestore.Query, topLevelOnly bool) ([]*domain.Task, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	tasks := make([]*domain.Task, 0, len(snaps))
	for _, snap := range snaps {
		task, err := decodeTask(snap)
		if err != nil {
			log.Printf("[TaskRepository] Skipping undecodable task %s: %v", snap.Ref.ID, err)
			continue
		}
		if topLevelOnly && task.IsSubtask() {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (r *firestoreTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	ref := r.tasks().Doc(task.ID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("task %s: %w", task.ID, domain.ErrNotFound)
			}
			return err
		}
		stored, err := decodeTask(snap)
		if err != nil {
			return err
		}
		if stored.IsCurrentInstance != task.IsCurrentInstance {
			return domain.ErrAlreadyRetired
		}
		return tx.Set(ref, r.encodeTask(task))
	})
	if err != nil {
		return fmt.Errorf("update task %s: %w", task.ID, err)
	}
	return nil
}

func (r *firestoreTaskRepository) Delete(ctx context.Context, id string) error {
	parent := r.tasks().Doc(id)
	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		children, err := tx.Documents(r.tasks().Where("parentTaskId", "==", id)).GetAll()
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := tx.Delete(child.Ref); err != nil {
				return err
			}
		}
		return tx.Delete(parent)
	})
}

// Complete runs as an optimistic Firestore transaction. If another
// completion commits first, Firestore retries this function, the re-read
// sees isCurrentInstance=false and the attempt ends with ErrAlreadyRetired
// without writing.
func (r *firestoreTaskRepository) Complete(ctx context.Context, id string, completedAt time.Time, next SuccessorFunc) (*CompletionResult, error) {
	ref := r.tasks().Doc(id)
	var result *CompletionResult
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		result = nil
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
			}
			return err
		}
		current, err := decodeTask(snap)
		if err != nil {
			return err
		}
		if !current.IsCurrentInstance {
			return domain.ErrAlreadyRetired
		}

		retired := current.Clone()
		Retire(retired, completedAt)

		var successor *domain.Task
		if next != nil {
			if successor, err = next(retired.Clone()); err != nil {
				return err
			}
		}

		if err := tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(retired.Status)},
			{Path: "isCurrentInstance", Value: false},
			{Path: "isOverdue", Value: false},
			{Path: "modifiedDate", Value: completedAt},
		}); err != nil {
			return err
		}

		result = &CompletionResult{Retired: retired}
		if successor == nil {
			return nil
		}
		newRef := r.tasks().NewDoc()
		successor.ID = newRef.ID
		if err := tx.Create(newRef, r.encodeTask(successor)); err != nil {
			return err
		}
		result.Successor = successor
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *firestoreTaskRepository) FindOverdueCandidates(ctx context.Context, now time.Time) ([]*domain.Task, error) {
	q := r.tasks().Where("isOverdue", "==", false).Where("deadline", "<", now)
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query overdue tasks: %w", err)
	}
	var tasks []*domain.Task
	for _, snap := range snaps {
		task, err := decodeTask(snap)
		if err != nil {
			continue
		}
		if task.IsCurrentInstance && domain.ComputeOverdue(task.Deadline, task.Status, now) {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (r *firestoreTaskRepository) MarkOverdue(ctx context.Context, id string) error {
	_, err := r.tasks().Doc(id).Update(ctx, []firestore.Update{{Path: "isOverdue", Value: true}})
	return err
}

type projectDoc struct {
	Title       string `firestore:"title"`
	Description string `firestore:"description"`
	Owner       any    `firestore:"owner"`
	TaskList    []any  `firestore:"taskList"`
}

func (d *projectDoc) toDomain(id string) *domain.Project {
	p := &domain.Project{ID: id, Title: d.Title, Description: d.Description}
	if ref, ok := refFromValue(domain.CollectionUsers, d.Owner); ok {
		p.Owner = ref
	}
	for _, v := range d.TaskList {
		if ref, ok := refFromValue(domain.CollectionTasks, v); ok {
			p.TaskList = append(p.TaskList, ref)
		}
	}
	return p
}

type firestoreProjectRepository struct {
	firestoreStore
}

// NewFirestoreProjectRepository reads projects from the "projects" collection
func NewFirestoreProjectRepository(client *firestore.Client) ProjectRepository {
	return &firestoreProjectRepository{firestoreStore{client: client}}
}

func (r *firestoreProjectRepository) FindByID(ctx context.Context, id string) (*domain.Project, error) {
	if id == "" {
		return nil, nil
	}
	snap, err := r.client.Collection(domain.CollectionProjects).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get project %s: %w", id, err)
	}
	var doc projectDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", id, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

func (r *firestoreProjectRepository) FindByOwner(ctx context.Context, userID string) ([]*domain.Project, error) {
	snaps, err := r.client.Collection(domain.CollectionProjects).
		Where("owner", "==", r.docRef(domain.UserRef(userID))).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query projects for %s: %w", userID, err)
	}
	projects := make([]*domain.Project, 0, len(snaps))
	for _, snap := range snaps {
		var doc projectDoc
		if err := snap.DataTo(&doc); err != nil {
			continue
		}
		projects = append(projects, doc.toDomain(snap.Ref.ID))
	}
	return projects, nil
}

// AppendTask uses ArrayUnion, which Firestore applies as a set-union on the
// server.
func (r *firestoreProjectRepository) AppendTask(ctx context.Context, projectID string, task domain.Ref) error {
	_, err := r.client.Collection(domain.CollectionProjects).Doc(projectID).Update(ctx, []firestore.Update{
		{Path: "taskList", Value: firestore.ArrayUnion(r.docRef(task))},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
		}
		return fmt.Errorf("append task to project %s: %w", projectID, err)
	}
	return nil
}
