// Package actor provides request-scoped identity and trace extraction.
// The core trusts that the actor id was verified upstream; it only carries
// the id through for audit fields (planned_by, started_by, ...).
package actor

import (
	"context"

	"github.com/google/uuid"
)

// Roles issued by the plant's identity provider.
const (
	RoleAdmin       = "admin"
	RoleStorekeeper = "storekeeper"
	RoleOperator    = "operator"
)

// Actor contains the authenticated user information the core needs.
type Actor struct {
	UserID string
	Email  string
	Roles  []string
}

type actorKey struct{}

// WithActor adds Actor to context.
func WithActor(ctx context.Context, a *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// FromContext returns Actor from context, or nil.
func FromContext(ctx context.Context) *Actor {
	if v, ok := ctx.Value(actorKey{}).(*Actor); ok {
		return v
	}
	return nil
}

// UserID returns the acting user id from context or empty string.
func UserID(ctx context.Context) string {
	if a := FromContext(ctx); a != nil {
		return a.UserID
	}
	return ""
}

// HasRole checks if the actor has a specific role.
func HasRole(ctx context.Context, role string) bool {
	a := FromContext(ctx)
	if a == nil {
		return false
	}
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Trace contains request tracing information.
type Trace struct {
	TraceID   string
	RequestID string
}

type traceKey struct{}

// WithTrace adds Trace to context.
func WithTrace(ctx context.Context, t *Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// TraceFromContext returns Trace from context, or nil.
func TraceFromContext(ctx context.Context) *Trace {
	if v, ok := ctx.Value(traceKey{}).(*Trace); ok {
		return v
	}
	return nil
}

// NewTrace creates a Trace with generated ids.
func NewTrace() *Trace {
	return &Trace{
		TraceID:   uuid.New().String(),
		RequestID: uuid.New().String(),
	}
}
