package bootstrap

import (
	"context"
	"testing"

	"github.com/jxuanl/spm-g2-little-farms-sub000/pkg/config"
)

func TestNewWithMemoryStore(t *testing.T) {
	app, err := New(context.Background(), &config.Config{StoreDriver: "memory", EnrichConcurrency: 2})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer app.Close()

	if app.Tasks == nil || app.Auth == nil || app.Scheduler == nil {
		t.Fatalf("app not fully wired: %+v", app)
	}
	tasks, err := app.Tasks.ListVisibleTasks(context.Background(), "nobody")
	if err != nil || len(tasks) != 0 {
		t.Fatalf("ListVisibleTasks = %v, %v", tasks, err)
	}
}

func TestOpenStoresRejectsUnknownDriver(t *testing.T) {
	if _, err := OpenStores(context.Background(), &config.Config{StoreDriver: "mongo"}); err == nil {
		t.Fatalf("unknown driver accepted")
	}
}
