package repository

import (
	"context"
	"fmt"
	"time"

	authdomain "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/domain"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	usersCollection     = "users"
	fcmTokensCollection = "fcmTokens"
)

type userDoc struct {
	Name       string    `firestore:"name"`
	Email      string    `firestore:"email"`
	Role       string    `firestore:"role"`
	Department string    `firestore:"department"`
	CreatedAt  time.Time `firestore:"createdAt,omitempty"`
	UpdatedAt  time.Time `firestore:"updatedAt,omitempty"`
}

func (d *userDoc) toDomain(id string) *authdomain.User {
	return &authdomain.User{
		ID:         id,
		Name:       d.Name,
		Email:      d.Email,
		Role:       authdomain.ParseRole(d.Role),
		Department: d.Department,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository reads users from the "users" collection
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client}
}

func (r *firestoreUserRepository) FindByID(ctx context.Context, id string) (*authdomain.User, error) {
	if id == "" {
		return nil, nil
	}
	snap, err := r.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	var doc userDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", id, err)
	}
	return doc.toDomain(snap.Ref.ID), nil
}

func (r *firestoreUserRepository) FindByEmail(ctx context.Context, email string) (*authdomain.User, error) {
	if email == "" {
		return nil, nil
	}
	snaps, err := r.client.Collection(usersCollection).Where("email", "==", email).Limit(1).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	var doc userDoc
	if err := snaps[0].DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", snaps[0].Ref.ID, err)
	}
	return doc.toDomain(snaps[0].Ref.ID), nil
}

type fcmTokenDoc struct {
	UserID     string    `firestore:"userId"`
	DeviceInfo string    `firestore:"deviceInfo"`
	CreatedAt  time.Time `firestore:"createdAt"`
	UpdatedAt  time.Time `firestore:"updatedAt"`
}

type firestoreFCMTokenRepository struct {
	client *firestore.Client
}

// NewFirestoreFCMTokenRepository keys token documents by the token itself,
// which makes SaveToken an upsert.
func NewFirestoreFCMTokenRepository(client *firestore.Client) FCMTokenRepository {
	return &firestoreFCMTokenRepository{client: client}
}

func (r *firestoreFCMTokenRepository) SaveToken(ctx context.Context, userID, token, deviceInfo string) error {
	now := time.Now()
	_, err := r.client.Collection(fcmTokensCollection).Doc(token).Set(ctx, map[string]any{
		"userId":     userID,
		"deviceInfo": deviceInfo,
		"updatedAt":  now,
		"createdAt":  now,
	}, firestore.MergeAll)
	return err
}

func (r *firestoreFCMTokenRepository) GetTokensByUserID(ctx context.Context, userID string) ([]authdomain.FCMToken, error) {
	snaps, err := r.client.Collection(fcmTokensCollection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("query fcm tokens: %w", err)
	}
	tokens := make([]authdomain.FCMToken, 0, len(snaps))
	for _, snap := range snaps {
		var doc fcmTokenDoc
		if err := snap.DataTo(&doc); err != nil {
			continue
		}
		tokens = append(tokens, authdomain.FCMToken{
			ID:         snap.Ref.ID,
			UserID:     doc.UserID,
			Token:      snap.Ref.ID,
			DeviceInfo: doc.DeviceInfo,
			CreatedAt:  doc.CreatedAt,
			UpdatedAt:  doc.UpdatedAt,
		})
	}
	return tokens, nil
}

func (r *firestoreFCMTokenRepository) DeleteToken(ctx context.Context, token string) error {
	_, err := r.client.Collection(fcmTokensCollection).Doc(token).Delete(ctx)
	return err
}
