package repository

import (
	"context"

	authdomain "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/domain"
)

// UserRepository reads users. Users are provisioned elsewhere, so there is
// no write path here.
type UserRepository interface {
	// FindByID returns nil, nil when the user does not exist
	FindByID(ctx context.Context, id string) (*authdomain.User, error)

	// FindByEmail returns nil, nil when no user has the address
	FindByEmail(ctx context.Context, email string) (*authdomain.User, error)
}

// FCMTokenRepository defines the interface for FCM token operations
type FCMTokenRepository interface {
	SaveToken(ctx context.Context, userID, token, deviceInfo string) error
	GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.FCMToken, error)
	DeleteToken(ctx context.Context, token string) error
}
