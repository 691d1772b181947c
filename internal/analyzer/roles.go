package analyzer

import (
	"context"

	"github.com/spec-kit/triage-service/internal/domain"
)

// UserLookup resolves helpdesk accounts. Satisfied by the helpdesk client.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

// roleResolver caches author roles for the duration of one analysis pass.
// Roles are not cached across passes; the helpdesk may change them.
type roleResolver struct {
	users UserLookup
	seen  map[int64]domain.UserRole
}

func newRoleResolver(users UserLookup) *roleResolver {
	return &roleResolver{users: users, seen: make(map[int64]domain.UserRole)}
}

// role resolves an author's role, returning an error only when the lookup
// itself fails. Callers degrade to a direct phrase check in that case.
func (r *roleResolver) role(ctx context.Context, authorID int64) (domain.UserRole, error) {
	if cached, ok := r.seen[authorID]; ok {
		return cached, nil
	}
	user, err := r.users.GetUser(ctx, authorID)
	if err != nil {
		return "", err
	}
	r.seen[authorID] = user.Role
	return user.Role, nil
}
