package permission

import (
	"context"

	"github.com/sakif/yamdb/internal/model"
)

// Actor is the identity a request acts as. The zero value is anonymous.
type Actor struct {
	AccountID   string
	Username    string
	Role        model.Role
	IsSuperuser bool
}

// Anonymous returns the actor used when a request carries no valid token.
func Anonymous() Actor {
	return Actor{}
}

// ActorFor builds the actor for a loaded account.
func ActorFor(a *model.Account) Actor {
	return Actor{
		AccountID:   a.ID,
		Username:    a.Username,
		Role:        a.Role,
		IsSuperuser: a.IsSuperuser,
	}
}

func (a Actor) Authenticated() bool {
	return a.AccountID != ""
}

// EffectiveRole is the policy subject for the actor. Unknown roles collapse
// to user, superusers count as admin.
func (a Actor) EffectiveRole() string {
	switch {
	case !a.Authenticated():
		return roleAnonymous
	case a.IsSuperuser:
		return string(model.RoleAdmin)
	default:
		return string(a.Role.Normalize())
	}
}

// IsAdmin reports whether the actor holds admin rights.
func (a Actor) IsAdmin() bool {
	return a.EffectiveRole() == string(model.RoleAdmin)
}

type ctxKey struct{}

// WithActor stores the actor in ctx.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// ActorFrom returns the actor stored in ctx, or Anonymous if there is none.
func ActorFrom(ctx context.Context) Actor {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	if !ok {
		return Anonymous()
	}
	return a
}
