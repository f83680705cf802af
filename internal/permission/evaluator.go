// Package permission decides whether an actor may perform an action.
//
// HOW DECISIONS ARE MADE:
// The role → capability matrix is a casbin RBAC policy (policy.csv) with a
// role hierarchy, so "moderator can do everything a user can" is a g line
// rather than a chain of ifs. Ownership ("is this my review?") is not a role
// question, so it's checked here in Go on top of the matrix.
//
// Every Can* method returns nil when the action is allowed. A denial is an
// apperror: Unauthenticated when the actor is anonymous (the client should
// log in), Forbidden otherwise (logging in again won't help).
package permission

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"

	"github.com/sakif/yamdb/internal/apperror"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

const roleAnonymous = "anonymous"

// Objects and actions used in policy.csv.
const (
	objCatalog  = "catalog"
	objContent  = "content"
	objAccounts = "accounts"
	objProfile  = "profile"

	actRead       = "read"
	actWrite      = "write"
	actCreate     = "create"
	actModifyOwn  = "modify_own"
	actModifyAny  = "modify_any"
	actManage     = "manage"
	actAccess     = "access"
	actAssignRole = "assign_role"
)

const (
	msgAuthRequired = "authentication credentials were not provided"
	msgDenied       = "access denied"
)

// Evaluator answers permission questions. Safe for concurrent use.
type Evaluator struct {
	enforcer *casbin.SyncedEnforcer
}

// New builds an Evaluator from the embedded model and policy.
func New() (*Evaluator, error) {
	m, err := casbinmodel.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("permission: loading model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("permission: creating enforcer: %w", err)
	}
	if err := loadPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}
	return &Evaluator{enforcer: enforcer}, nil
}

// loadPolicy reads "p, sub, obj, act" and "g, child, parent" lines.
func loadPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		switch {
		case parts[0] == "p" && len(parts) == 4:
			if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
				return fmt.Errorf("permission: adding policy %v: %w", parts[1:], err)
			}
		case parts[0] == "g" && len(parts) == 3:
			if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
				return fmt.Errorf("permission: adding role link %v: %w", parts[1:], err)
			}
		default:
			return fmt.Errorf("permission: malformed policy line %q", line)
		}
	}
	return nil
}

// has asks the matrix. An enforcement error counts as a denial.
func (e *Evaluator) has(actor Actor, obj, act string) bool {
	ok, err := e.enforcer.Enforce(actor.EffectiveRole(), obj, act)
	return err == nil && ok
}

func deny(actor Actor) error {
	if !actor.Authenticated() {
		return apperror.Unauthenticated(msgAuthRequired)
	}
	return apperror.Forbidden(msgDenied)
}

func (e *Evaluator) check(actor Actor, obj, act string) error {
	if e.has(actor, obj, act) {
		return nil
	}
	return deny(actor)
}

// CanRead covers reads of titles, categories, genres, reviews and comments.
// Anyone may read, including anonymous callers.
func (e *Evaluator) CanRead(actor Actor) error {
	return e.check(actor, objContent, actRead)
}

// CanWriteCatalog covers create/update/delete of categories, genres and titles.
func (e *Evaluator) CanWriteCatalog(actor Actor) error {
	return e.check(actor, objCatalog, actWrite)
}

// CanCreateContent covers posting a review or comment.
func (e *Evaluator) CanCreateContent(actor Actor) error {
	return e.check(actor, objContent, actCreate)
}

// CanModifyContent covers editing or deleting a review or comment written by
// authorID. Authors may change their own; moderators and admins anyone's.
func (e *Evaluator) CanModifyContent(actor Actor, authorID string) error {
	if e.has(actor, objContent, actModifyAny) {
		return nil
	}
	if actor.Authenticated() && actor.AccountID == authorID && e.has(actor, objContent, actModifyOwn) {
		return nil
	}
	return deny(actor)
}

// CanManageAccounts covers listing, creating, editing and deleting accounts
// other than one's own.
func (e *Evaluator) CanManageAccounts(actor Actor) error {
	return e.check(actor, objAccounts, actManage)
}

// CanAccessProfile covers reading and updating one's own profile.
func (e *Evaluator) CanAccessProfile(actor Actor) error {
	return e.check(actor, objProfile, actAccess)
}

// CanAssignRole reports whether the actor may change an account's role.
func (e *Evaluator) CanAssignRole(actor Actor) error {
	return e.check(actor, objProfile, actAssignRole)
}
