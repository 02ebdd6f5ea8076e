package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// User is the identity asserted by the external identity provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// State mirrors the identity provider's session: User is nil when signed out.
type State struct {
	User      *User
	IsLoading bool
}

// StateSource notifies listeners of identity changes. The returned function
// unsubscribes the listener.
type StateSource interface {
	OnAuthStateChanged(listener func(State)) (unsubscribe func())
}

// Claims represents JWT token claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (c *Claims) User() *User {
	id := c.UserID
	if id == "" {
		id = c.Subject
	}
	return &User{ID: id, Email: c.Email}
}

type ctxKey string

const ContextUserKey ctxKey = "user"

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok && u != nil
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}
