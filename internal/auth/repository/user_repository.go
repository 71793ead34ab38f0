package repository

import (
	"context"
	"errors"
	"fmt"

	authdomain "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/domain"

	"gorm.io/gorm"
)

// userRepository implements UserRepository on Postgres
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new instance of userRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{
		db: db,
	}
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*authdomain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*authdomain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *userRepository) findOne(ctx context.Context, query string, arg string) (*authdomain.User, error) {
	if arg == "" {
		return nil, nil
	}
	var user authdomain.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	user.Role = authdomain.ParseRole(string(user.Role))
	return &user, nil
}
