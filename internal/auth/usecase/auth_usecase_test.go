package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	authdomain "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/domain"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/repository"
	"github.com/jxuanl/spm-g2-little-farms-sub000/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

func newTestUsecase() (AuthUsecase, *repository.MemoryUserRepository, *repository.MemoryFCMTokenRepository) {
	users := repository.NewMemoryUserRepository(authdomain.User{ID: "a", Name: "Anna", Email: "anna@farm.test", Role: authdomain.RoleStaff})
	tokens := repository.NewMemoryFCMTokenRepository()
	cfg := &config.Config{JWTSecret: "test-secret", JWTAccessExpiry: time.Minute}
	return NewAuthUsecase(users, tokens, cfg), users, tokens
}

func TestIssueAndValidateToken(t *testing.T) {
	uc, _, _ := newTestUsecase()
	ctx := context.Background()

	token, err := uc.IssueToken(ctx, "a")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	user, err := uc.ValidateToken(ctx, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if user.ID != "a" {
		t.Fatalf("user = %s, want a", user.ID)
	}

	if _, err := uc.IssueToken(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("IssueToken(ghost) err = %v", err)
	}
}

func TestValidateTokenRejects(t *testing.T) {
	uc, users, _ := newTestUsecase()
	ctx := context.Background()

	sign := func(secret string, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		if err != nil {
			t.Fatal(err)
		}
		return s
	}
	exp := time.Now().Add(time.Minute).Unix()

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{"garbage", "not-a-jwt", ErrInvalidToken},
		{"wrong secret", sign("other", jwt.MapClaims{"user_id": "a", "exp": exp}), ErrInvalidToken},
		{"expired", sign("test-secret", jwt.MapClaims{"user_id": "a", "exp": time.Now().Add(-time.Minute).Unix()}), ErrInvalidToken},
		{"no user claim", sign("test-secret", jwt.MapClaims{"exp": exp}), ErrInvalidToken},
		{"unknown user", sign("test-secret", jwt.MapClaims{"user_id": "ghost", "exp": exp}), ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := uc.ValidateToken(ctx, tt.token); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	token, err := uc.IssueToken(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	users.Remove("a")
	if _, err := uc.ValidateToken(ctx, token); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("removed user: err = %v", err)
	}
}

func TestFCMTokenRegistration(t *testing.T) {
	uc, _, tokens := newTestUsecase()
	ctx := context.Background()

	if err := uc.RegisterFCMToken(ctx, "a", "", "web"); err == nil {
		t.Fatalf("empty token accepted")
	}
	if err := uc.RegisterFCMToken(ctx, "a", "tok-1", "web"); err != nil {
		t.Fatalf("RegisterFCMToken: %v", err)
	}
	got, _ := tokens.GetTokensByUserID(ctx, "a")
	if len(got) != 1 || got[0].Token != "tok-1" {
		t.Fatalf("tokens = %+v", got)
	}
	if err := uc.UnregisterFCMToken(ctx, "tok-1"); err != nil {
		t.Fatalf("UnregisterFCMToken: %v", err)
	}
	if got, _ := tokens.GetTokensByUserID(ctx, "a"); len(got) != 0 {
		t.Fatalf("token not removed: %+v", got)
	}
}

func TestIssueTokenForEmail(t *testing.T) {
	uc, _, _ := newTestUsecase()
	ctx := context.Background()

	token, err := uc.IssueTokenForEmail(ctx, " anna@farm.test ")
	if err != nil {
		t.Fatalf("IssueTokenForEmail: %v", err)
	}
	user, err := uc.ValidateToken(ctx, token)
	if err != nil || user.ID != "a" {
		t.Fatalf("ValidateToken = %v, %v", user, err)
	}

	if _, err := uc.IssueTokenForEmail(ctx, "ghost@farm.test"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("unknown email: err = %v", err)
	}
	if _, err := uc.IssueTokenForEmail(ctx, ""); err == nil {
		t.Fatalf("empty email accepted")
	}
}
