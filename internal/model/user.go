// Package model defines the data structures used throughout the application.
package model

import "time"

// Role is the access level attached to an Account.
//
// The set is closed: anything that is not one of the three constants below is
// treated as RoleUser by Normalize. Unknown values coming from the database or
// a request body can therefore never grant elevated access.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// Normalize returns r if it is a known role and RoleUser otherwise.
func (r Role) Normalize() Role {
	if r.Valid() {
		return r
	}
	return RoleUser
}

// ReservedUsername is the path sentinel for "the current user" (/users/me).
// No account may be registered under it.
const ReservedUsername = "me"

// Account represents a registered user account.
//
// ACTIVATION:
// Accounts created through signup start inactive. They become active the
// first time the owner exchanges a confirmation code for a token, which proves
// control of the email address. Accounts created by an admin are active
// straight away.
//
// CONFIRMATION CODES:
// The confirmation code is a bearer secret. We keep only a bcrypt hash of it
// (bound to the account's current state), the same way you'd store a password.
// The json:"-" tags keep both fields out of every API response.
type Account struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Bio         string     `json:"bio"`
	Role        Role       `json:"role"`
	IsSuperuser bool       `json:"-"`
	IsActive    bool       `json:"-"`
	CodeHash    string     `json:"-"`
	CodeIssued  *time.Time `json:"-"`
	CreatedAt   time.Time  `json:"-"`
	UpdatedAt   time.Time  `json:"-"`
}

// HasPendingCode reports whether a confirmation code is outstanding.
func (a *Account) HasPendingCode() bool {
	return a.CodeHash != "" && a.CodeIssued != nil
}
