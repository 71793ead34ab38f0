package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	api "github.com/jxuanl/spm-g2-little-farms-sub000/cmd/api"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/bootstrap"
	"github.com/jxuanl/spm-g2-little-farms-sub000/pkg/config"
)

func main() {
	// Load configuration
	cfg := config.Load()

	ctx := context.Background()
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize application:", err)
	}
	defer app.Close()

	// Flag overdue tasks in the background
	app.Scheduler.Start()

	handler := api.NewHandler(app.Auth, app.Tasks, cfg)

	go func() {
		log.Printf("Server starting on port %s (store: %s)", cfg.Port, cfg.StoreDriver)
		if err := handler.Start(":" + cfg.Port); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down")
}
