// ABOUTME: Identity and credential registry types for the session store
// ABOUTME: Identities are persisted at key "user", credentials at "registeredUsers"

package session

import (
	"strings"
	"time"
)

// Identity is the signed-in user's profile and session metadata. Exactly one
// Identity is current at a time; it is the JSON value behind the "user" key.
type Identity struct {
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Joined      time.Time `json:"joined"`
	LastLogin   time.Time `json:"lastLogin"`
	Token       string    `json:"token,omitempty"`
	TokenExpiry int64     `json:"tokenExpiration,omitempty"` // epoch millis
}

// credential is one registered user in the registry. Passwords are stored
// only as bcrypt hashes; reset tokens only as SHA-256 digests.
type credential struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"passwordHash"`
	Joined       time.Time `json:"joined"`
	ResetHash    string    `json:"resetHash,omitempty"`
	ResetExpiry  time.Time `json:"resetExpiry,omitempty"`
}

// validEmail applies the Identity invariant: non-empty and contains "@"
// with something on both sides.
func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1
}

// localPart returns everything before the "@", used as a fallback display name.
func localPart(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
