package database

import (
	"context"
	"fmt"
	"log"

	"github.com/jxuanl/spm-g2-little-farms-sub000/pkg/config"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// NewFirebaseApp initializes the Firebase app shared by Firestore and FCM.
// Without FIREBASE_CREDENTIALS the application default credentials are used.
func NewFirebaseApp(ctx context.Context, cfg *config.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentials))
	}

	var fbConfig *firebase.Config
	if cfg.GoogleProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.GoogleProjectID}
	}

	app, err := firebase.NewApp(ctx, fbConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	return app, nil
}

// NewFirestoreClient opens a Firestore client from the Firebase app
func NewFirestoreClient(ctx context.Context, app *firebase.App) (*firestore.Client, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get firestore client: %w", err)
	}
	log.Println("[Database] Connected to Firestore")
	return client, nil
}
