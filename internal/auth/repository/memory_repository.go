package repository

import (
	"context"
	"sync"
	"time"

	authdomain "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/domain"

	"github.com/google/uuid"
)

// MemoryUserRepository keeps users in process. It backs the "memory" store
// driver and the tests.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]authdomain.User
}

func NewMemoryUserRepository(users ...authdomain.User) *MemoryUserRepository {
	r := &MemoryUserRepository{users: make(map[string]authdomain.User)}
	for _, u := range users {
		r.Put(u)
	}
	return r
}

// Put inserts or replaces a user
func (r *MemoryUserRepository) Put(user authdomain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	r.users[user.ID] = user
}

// Remove deletes a user, leaving any references to it dangling
func (r *MemoryUserRepository) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*authdomain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*authdomain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if email != "" && u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

type MemoryFCMTokenRepository struct {
	mu     sync.RWMutex
	tokens map[string]authdomain.FCMToken
}

func NewMemoryFCMTokenRepository() *MemoryFCMTokenRepository {
	return &MemoryFCMTokenRepository{tokens: make(map[string]authdomain.FCMToken)}
}

func (r *MemoryFCMTokenRepository) SaveToken(_ context.Context, userID, token, deviceInfo string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	existing, ok := r.tokens[token]
	if !ok {
		existing = authdomain.FCMToken{ID: uuid.New().String(), Token: token, CreatedAt: now}
	}
	existing.UserID = userID
	existing.DeviceInfo = deviceInfo
	existing.UpdatedAt = now
	r.tokens[token] = existing
	return nil
}

func (r *MemoryFCMTokenRepository) GetTokensByUserID(_ context.Context, userID string) ([]authdomain.FCMToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []authdomain.FCMToken
	for _, t := range r.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *MemoryFCMTokenRepository) DeleteToken(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tokens, token)
	return nil
}
