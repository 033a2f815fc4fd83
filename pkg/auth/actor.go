// Package auth carries the authenticated caller through the service layer.
// Identity is established upstream by the gateway; this package only parses
// and transports it.
package auth

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/packdrop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/packdrop-backend/pkg/errors"
)

// Actor is the caller a domain operation runs on behalf of.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

type actorKey struct{}

// NewActor parses gateway-supplied identity. The system role is reserved for
// in-process jobs and cannot be claimed by a request.
func NewActor(rawUserID, rawRole string) (Actor, error) {
	if strings.TrimSpace(rawUserID) == "" || strings.TrimSpace(rawRole) == "" {
		return Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing actor identity")
	}
	id, err := uuid.Parse(strings.TrimSpace(rawUserID))
	if err != nil || id == uuid.Nil {
		return Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid actor id")
	}
	role, err := enums.ParseActorRole(rawRole)
	if err != nil || role == enums.ActorRoleSystem {
		return Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid actor role")
	}
	return Actor{UserID: id, Role: role}, nil
}

// System returns the actor used by scheduled jobs.
func System() Actor {
	return Actor{Role: enums.ActorRoleSystem}
}

// Is reports whether the actor holds any of the given roles.
func (a Actor) Is(roles ...enums.ActorRole) bool {
	for _, role := range roles {
		if a.Role == role {
			return true
		}
	}
	return false
}

// IDPtr returns nil for the system actor.
func (a Actor) IDPtr() *uuid.UUID {
	if a.UserID == uuid.Nil {
		return nil
	}
	id := a.UserID
	return &id
}

// WithActor stores the actor on the context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// FromContext returns the actor seeded by the transport layer.
func FromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}
