package auth

import (
	"context"

	"github.com/homescout/listing-api/internal/models"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

// UserLookup is the slice of the user store the resolver needs.
type UserLookup interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// Resolver maps bearer credentials to user records, enforcing the
// active and admin constraints on top of token validation.
type Resolver struct {
	tokens *TokenService
	users  UserLookup
}

// NewResolver constructs a Resolver over the token service and user store.
func NewResolver(tokens *TokenService, users UserLookup) *Resolver {
	return &Resolver{tokens: tokens, users: users}
}

// RequireUser resolves mandatory credentials to a user. Absent credentials,
// a failing token, or an unknown subject all fail UNAUTHENTICATED.
func (r *Resolver) RequireUser(ctx context.Context, rawToken string) (*models.User, error) {
	if rawToken == "" {
		return nil, apperrors.NewAppError(apperrors.CodeUnauthenticated, "credentials required", nil)
	}

	subject, err := r.tokens.Validate(rawToken)
	if err != nil {
		return nil, err
	}

	user, err := r.users.FindByEmail(ctx, subject)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			// Token outlived its user; lookup failure is the only
			// revocation mechanism.
			return nil, apperrors.NewAppError(apperrors.CodeUnauthenticated, "could not validate credentials", err)
		}
		return nil, err
	}
	return user, nil
}

// RequireActiveUser resolves credentials and additionally rejects
// deactivated accounts with INACTIVE_USER.
func (r *Resolver) RequireActiveUser(ctx context.Context, rawToken string) (*models.User, error) {
	user, err := r.RequireUser(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.NewAppError(apperrors.CodeInactiveUser, "inactive user", nil)
	}
	return user, nil
}

// RequireAdmin resolves an active user and rejects non-admins with FORBIDDEN.
func (r *Resolver) RequireAdmin(ctx context.Context, rawToken string) (*models.User, error) {
	user, err := r.RequireActiveUser(ctx, rawToken)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin {
		return nil, apperrors.NewAppError(apperrors.CodeForbidden, "admin privileges required", nil)
	}
	return user, nil
}

// OptionalUser returns (nil, nil) only when no credentials were supplied.
// A present but invalid token is never silently treated as anonymous.
func (r *Resolver) OptionalUser(ctx context.Context, rawToken string) (*models.User, error) {
	if rawToken == "" {
		return nil, nil
	}
	return r.RequireUser(ctx, rawToken)
}
