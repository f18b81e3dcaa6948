// Package actor identifies the user performing an action.
//
// This package is used for:
// - Audit logging (who performed an action)
// - Access policy evaluation (role, department membership)
package actor

import (
	"context"
	"fmt"
)

// Actor represents the authenticated user performing an action.
type Actor struct {
	// ID is the unique identifier of the actor (user ID)
	ID int64 `json:"id"`

	// Username is the actor's login name
	Username string `json:"username"`

	// Email is the actor's email address
	Email string `json:"email"`

	// IsStaff reports whether the actor holds administrative rights
	IsStaff bool `json:"is_staff"`

	// SourceIP is the direct connection address of the request.
	// It is never taken from a client-supplied forwarding header.
	SourceIP string `json:"-"`
}

// String returns a string representation of the actor for logging
func (a *Actor) String() string {
	if a == nil {
		return "anonymous"
	}
	return fmt.Sprintf("%s (#%d)", a.Username, a.ID)
}

// contextKey is the type for context keys to avoid collisions
type contextKey string

const actorContextKey contextKey = "actor"

// FromContext retrieves the Actor from the context.
// Returns nil if no actor is present (unauthenticated requests).
func FromContext(ctx context.Context) *Actor {
	if ctx == nil {
		return nil
	}
	a, ok := ctx.Value(actorContextKey).(*Actor)
	if !ok {
		return nil
	}
	return a
}

// WithActor returns a new context with the Actor attached.
func WithActor(ctx context.Context, a *Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorContextKey, a)
}

// MustFromContext retrieves the Actor from the context.
// Panics if no actor is present. Use only behind authentication middleware.
func MustFromContext(ctx context.Context) *Actor {
	a := FromContext(ctx)
	if a == nil {
		panic("actor not found in context")
	}
	return a
}
