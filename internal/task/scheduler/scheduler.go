package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/notification"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/repository"
)

const defaultInterval = 1 * time.Minute

// OverdueScheduler periodically flags current tasks whose deadline has
// passed and tells the people involved
type OverdueScheduler struct {
	taskRepo  repository.TaskRepository
	notifier  notification.Notifier
	publisher notification.Publisher
	interval  time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	stopOnce  sync.Once
}

// NewOverdueScheduler creates a new scheduler. A non-positive interval
// falls back to one minute.
func NewOverdueScheduler(
	taskRepo repository.TaskRepository,
	notifier notification.Notifier,
	publisher notification.Publisher,
	interval time.Duration,
) *OverdueScheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if notifier == nil {
		notifier = notification.NoopNotifier{}
	}
	if publisher == nil {
		publisher = notification.NoopPublisher{}
	}
	return &OverdueScheduler{
		taskRepo:  taskRepo,
		notifier:  notifier,
		publisher: publisher,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
		stopChan:  make(chan struct{}),
	}
}

// SetClock replaces the time source
func (s *OverdueScheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Start begins the scheduler loop
func (s *OverdueScheduler) Start() {
	log.Printf("[OverdueScheduler] Starting overdue sweep (interval: %s)", s.interval)

	go func() {
		// Run immediately on start
		s.sweep()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stopChan:
				log.Println("[OverdueScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *OverdueScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *OverdueScheduler) sweep() {
	if _, err := s.RunOnce(context.Background()); err != nil {
		log.Printf("[OverdueScheduler] Sweep failed: %v", err)
	}
}

// RunOnce flags every task that became overdue since the last sweep and
// returns how many were flagged
func (s *OverdueScheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.now()

	tasks, err := s.taskRepo.FindOverdueCandidates(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find overdue tasks: %w", err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	log.Printf("[OverdueScheduler] Found %d newly overdue tasks", len(tasks))

	flagged := 0
	for _, task := range tasks {
		// a retired instance can show up if it was completed mid-sweep
		if !domain.ComputeOverdue(task.Deadline, task.Status, now) || !task.IsCurrentInstance {
			continue
		}
		if err := s.taskRepo.MarkOverdue(ctx, task.ID); err != nil {
			log.Printf("[OverdueScheduler] Error marking task %s overdue: %v", task.ID, err)
			continue
		}
		flagged++

		if err := s.publisher.Publish(ctx, notification.TaskEvent{
			Type:       notification.EventTaskOverdue,
			TaskID:     task.ID,
			ParentID:   task.ParentTaskID,
			ProjectID:  task.ProjectID(),
			OccurredAt: now,
		}); err != nil {
			log.Printf("[OverdueScheduler] Error publishing overdue event for task %s: %v", task.ID, err)
		}

		s.notifier.NotifyUsers(ctx, recipients(task), notification.Message{
			Title: "Overdue: " + task.Title,
			Body:  fmt.Sprintf("Deadline was %s", task.Deadline.Format("02/01/2006 15:04")),
			Data: map[string]string{
				"type":     "task_overdue",
				"task_id":  task.ID,
				"priority": string(task.Priority),
			},
			ClickAction: "/tasks/" + task.ID,
		})
	}
	return flagged, nil
}

// recipients are the assignees plus the creator
func recipients(task *domain.Task) []string {
	ids := make([]string, 0, len(task.Assignees)+1)
	for _, a := range task.Assignees {
		ids = append(ids, a.ID)
	}
	if task.Creator.ID != "" {
		ids = append(ids, task.Creator.ID)
	}
	return ids
}
