package usecase

import (
	"context"
	"fmt"

	authdomain "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/domain"
	authrepo "github.com/jxuanl/spm-g2-little-farms-sub000/internal/auth/repository"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/domain"
	"github.com/jxuanl/spm-g2-little-farms-sub000/internal/task/repository"
)

// Entity is the snapshot a reference resolved to. Exactly one of User and
// Project is set.
type Entity struct {
	Ref     domain.Ref
	User    *authdomain.User
	Project *domain.Project
}

// ReferenceResolver turns weak references into current snapshots. A missing
// target is reported as nil, nil; only store failures are errors.
type ReferenceResolver interface {
	Resolve(ctx context.Context, ref domain.Ref) (*Entity, error)
	ResolveUser(ctx context.Context, id string) (*authdomain.User, error)
	ResolveProject(ctx context.Context, id string) (*domain.Project, error)
}

type referenceResolver struct {
	users    authrepo.UserRepository
	projects repository.ProjectRepository
}

// NewReferenceResolver creates a resolver over the user and project stores
func NewReferenceResolver(users authrepo.UserRepository, projects repository.ProjectRepository) ReferenceResolver {
	return &referenceResolver{users: users, projects: projects}
}

func (r *referenceResolver) Resolve(ctx context.Context, ref domain.Ref) (*Entity, error) {
	if ref.IsZero() {
		return nil, nil
	}
	switch ref.Collection {
	case domain.CollectionUsers:
		user, err := r.ResolveUser(ctx, ref.ID)
		if err != nil || user == nil {
			return nil, err
		}
		return &Entity{Ref: ref, User: user}, nil
	case domain.CollectionProjects:
		project, err := r.ResolveProject(ctx, ref.ID)
		if err != nil || project == nil {
			return nil, err
		}
		return &Entity{Ref: ref, Project: project}, nil
	}
	return nil, fmt.Errorf("cannot resolve reference %s: unsupported collection", ref)
}

func (r *referenceResolver) ResolveUser(ctx context.Context, id string) (*authdomain.User, error) {
	if id == "" {
		return nil, nil
	}
	return r.users.FindByID(ctx, id)
}

func (r *referenceResolver) ResolveProject(ctx context.Context, id string) (*domain.Project, error) {
	if id == "" {
		return nil, nil
	}
	return r.projects.FindByID(ctx, id)
}
