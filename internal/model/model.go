// Package model defines domain entities shared by the client core, services and repositories.
package model

import "time"

// Identity names the currently signed-in session. It is assigned once per sign-in and
// read-only to everything except the authentication state machine.
type Identity struct {
	UID       string `json:"uid"`
	Anonymous bool   `json:"anonymous"`
}

// Credential is the result of a successful sign-in.
type Credential struct {
	Identity
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"` // access token expiry
}

// Expired reports whether the access token is no longer usable at now.
func (c Credential) Expired(now time.Time) bool {
	return c.AccessToken == "" || !now.Before(c.ExpiresAt)
}

// User is an account known to the identity service.
type User struct {
	ID           string // opaque UID; UUIDv4 for anonymous users, issuer-chosen for custom tokens
	Anonymous    bool
	CreatedAt    time.Time
	LastSignInAt time.Time
}

// Collection names a user-scoped document collection.
type Collection string

// Known collections.
const (
	CollectionMemories Collection = "memories"
	CollectionProjects Collection = "projects"
)

// Valid reports whether c is one of the known collections.
func (c Collection) Valid() bool {
	return c == CollectionMemories || c == CollectionProjects
}
