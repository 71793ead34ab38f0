package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	authdomain "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/domain"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/repository"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/usecase"
	"github.com/jxuanl/spm-g2-little-farms-sub000/pkg/config"

	"github.com/gin-gonic/gin"
)

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	users := repository.NewMemoryUserRepository(authdomain.User{ID: "a", Name: "Anna", Role: authdomain.RoleStaff})
	uc := usecase.NewAuthUsecase(users, repository.NewMemoryFCMTokenRepository(), &config.Config{JWTSecret: "s", JWTAccessExpiry: time.Minute})
	h := NewAuthHandler(uc)

	r := gin.New()
	r.GET("/me", AuthMiddleware(uc), h.Me)

	token, err := uc.IssueToken(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("status=%d want %d body=%s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}
