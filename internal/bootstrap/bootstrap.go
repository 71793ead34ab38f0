package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strings"

	authdomain "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/domain"
	authRepo "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/repository"
	authUsecase "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/usecase"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/notification"
	taskRepo "github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/repository"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/scheduler"
	taskUsecase "github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/usecase"
	"github.com/jxuanl/spm-g2-little-farms-sub000/pkg/config"
	"github.com/jxuanl/spm-g2-little-farms-sub000/pkg/database"
	"github.com/jxuanl/spm-g2-little-farms-sub000/pkg/fcm"

	firebase "firebase.google.com/go/v4"
)

// Stores groups the repositories selected by STORE_DRIVER
type Stores struct {
	Users     authRepo.UserRepository
	FCMTokens authRepo.FCMTokenRepository
	Tasks     taskRepo.TaskRepository
	Projects  taskRepo.ProjectRepository

	firebaseApp *firebase.App
	closers     []func() error
}

// OpenStores connects to the configured backing store
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	s := &Stores{}

	switch strings.ToLower(cfg.StoreDriver) {
	case config.StoreFirestore:
		app, err := database.NewFirebaseApp(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client, err := database.NewFirestoreClient(ctx, app)
		if err != nil {
			return nil, err
		}
		s.firebaseApp = app
		s.closers = append(s.closers, client.Close)
		s.Users = authRepo.NewFirestoreUserRepository(client)
		s.FCMTokens = authRepo.NewFirestoreFCMTokenRepository(client)
		s.Tasks = taskRepo.NewFirestoreTaskRepository(client)
		s.Projects = taskRepo.NewFirestoreProjectRepository(client)

	case config.StorePostgres:
		db, err := database.NewPostgresConnection(cfg)
		if err != nil {
			return nil, err
		}
		if err := db.AutoMigrate(&authdomain.User{}, &authdomain.FCMToken{}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			s.closers = append(s.closers, sqlDB.Close)
		}
		s.Users = authRepo.NewUserRepository(db)
		s.FCMTokens = authRepo.NewFCMTokenRepository(db)
		s.Tasks = taskRepo.NewGormTaskRepository(db)
		s.Projects = taskRepo.NewGormProjectRepository(db)

	case config.StoreMemory:
		log.Println("[Bootstrap] Using in-memory store, data is lost on exit")
		s.Users = authRepo.NewMemoryUserRepository()
		s.FCMTokens = authRepo.NewMemoryFCMTokenRepository()
		s.Tasks = taskRepo.NewMemoryTaskRepository()
		s.Projects = taskRepo.NewMemoryProjectRepository()

	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	return s, nil
}

// Close releases store connections
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Printf("[Bootstrap] Close failed: %v", err)
		}
	}
}

// App is the wired application shared by the HTTP server and taskctl
type App struct {
	Config    *config.Config
	Stores    *Stores
	Auth      authUsecase.AuthUsecase
	Tasks     taskUsecase.TaskUsecase
	Scheduler *scheduler.OverdueScheduler
}

// New wires stores, use cases and the optional Pub/Sub and FCM adapters.
// Missing cloud configuration disables the adapter instead of failing.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher := newPublisher(ctx, cfg, stores)
	notifier := newNotifier(ctx, cfg, stores)

	resolver := taskUsecase.NewReferenceResolver(stores.Users, stores.Projects)
	enricher := taskUsecase.NewTaskEnricher(resolver, cfg.EnrichConcurrency)

	tasks := taskUsecase.NewTaskUsecase(stores.Tasks, stores.Projects, resolver, enricher)
	tasks.SetPublisher(publisher)
	tasks.SetNotifier(notifier)

	return &App{
		Config:    cfg,
		Stores:    stores,
		Auth:      authUsecase.NewAuthUsecase(stores.Users, stores.FCMTokens, cfg),
		Tasks:     tasks,
		Scheduler: scheduler.NewOverdueScheduler(stores.Tasks, notifier, publisher, cfg.OverdueSweepInterval),
	}, nil
}

// Close stops the scheduler and releases every connection
func (a *App) Close() {
	a.Scheduler.Stop()
	a.Stores.Close()
}

func newPublisher(ctx context.Context, cfg *config.Config, stores *Stores) notification.Publisher {
	if cfg.GoogleProjectID == "" {
		log.Println("[WARN] GOOGLE_PROJECT_ID not configured, task events are not published")
		return notification.NoopPublisher{}
	}

	// Accept a full resource name as well as the short topic name
	topicName := cfg.PubSubTopic
	if parts := strings.Split(topicName, "/"); len(parts) > 1 {
		topicName = parts[len(parts)-1]
	}

	publisher, err := notification.NewPubSubPublisher(ctx, cfg.GoogleProjectID, topicName, cfg.FirebaseCredentials)
	if err != nil {
		log.Printf("[ERROR] Failed to initialize Pub/Sub publisher: %v", err)
		return notification.NoopPublisher{}
	}
	stores.closers = append(stores.closers, publisher.Close)
	return publisher
}

func newNotifier(ctx context.Context, cfg *config.Config, stores *Stores) notification.Notifier {
	app := stores.firebaseApp
	if app == nil {
		if cfg.FirebaseCredentials == "" {
			log.Println("[WARN] No Firebase credentials configured, push notifications disabled")
			return notification.NoopNotifier{}
		}
		var err error
		if app, err = database.NewFirebaseApp(ctx, cfg); err != nil {
			log.Printf("[WARN] Failed to initialize Firebase (push notifications disabled): %v", err)
			return notification.NoopNotifier{}
		}
	}

	client, err := fcm.NewClient(ctx, app)
	if err != nil {
		log.Printf("[WARN] Failed to initialize FCM client (push notifications disabled): %v", err)
		return notification.NoopNotifier{}
	}
	return notification.NewPushNotifier(stores.FCMTokens, client)
}
