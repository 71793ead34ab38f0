package usecase

import (
	"context"
	"errors"

	authdomain "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/domain"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrUserNotFound = errors.New("user not found")
)

// AuthUsecase validates bearer tokens and manages push tokens. Accounts are
// provisioned elsewhere; this service only reads them.
type AuthUsecase interface {
	// ValidateToken checks an HS256 access token and loads its user
	ValidateToken(ctx context.Context, tokenString string) (*authdomain.User, error)

	// IssueToken signs an access token for an existing user
	IssueToken(ctx context.Context, userID string) (string, error)

	// IssueTokenForEmail looks the user up by email, then behaves like IssueToken
	IssueTokenForEmail(ctx context.Context, email string) (string, error)

	GetUser(ctx context.Context, userID string) (*authdomain.User, error)

	RegisterFCMToken(ctx context.Context, userID, token, deviceInfo string) error
	UnregisterFCMToken(ctx context.Context, token string) error
}
