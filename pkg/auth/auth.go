package auth

import (
	"context"
	"errors"
)

// UserContextKey is the key for user data in context
type UserContextKey struct{}

// UserContext holds authenticated user information
type UserContext struct {
	UserID   string
	Username string
	Email    string
	Token    string
}

// TokenValidator interface for validating tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*UserContext, error)
}

var (
	// ErrInvalidToken indicates the token did not resolve to a valid identity.
	ErrInvalidToken = errors.New("invalid token")
	// ErrNoUserContext indicates no authenticated user is present in the context.
	ErrNoUserContext = errors.New("no user context")
)

// ContextWithUser stores the user context in the request context
func ContextWithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, UserContextKey{}, user)
}

// GetUserFromContext retrieves the authenticated user from the context
func GetUserFromContext(ctx context.Context) (*UserContext, error) {
	user, ok := ctx.Value(UserContextKey{}).(*UserContext)
	if !ok || user == nil {
		return nil, ErrNoUserContext
	}
	return user, nil
}
