// Package identity resolves the holder identity attached to every lock.
// Callers normally self-identify with a login name; anonymous callers are
// assigned a generated id so their locks remain distinguishable.
package identity

import (
	"strings"

	"github.com/google/uuid"
)

// Defaults for fields the caller did not supply.
const (
	UnknownName  = "Unknown"
	UnknownEmail = "unknown@example.com"
)

// User is the authenticated identity behind a lock holder.
type User struct {
	Login string
	Name  string
	Email string
}

// FromLogin builds a User from a bare login name.
// In production this would integrate with an OAuth provider; for now the
// login is trusted as supplied. An empty login yields a generated
// "anon-<uuid>" identity so concurrent anonymous callers do not alias
// each other's locks.
func FromLogin(login string) User {
	login = strings.TrimSpace(login)
	if login == "" {
		login = "anon-" + uuid.NewString()
	}
	return User{
		Login: login,
		Name:  UnknownName,
		Email: UnknownEmail,
	}
}

// HolderID returns the stable id recorded on lock records for this user.
func (u User) HolderID() string {
	return u.Login
}
