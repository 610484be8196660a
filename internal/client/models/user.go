// Package models defines the payloads exchanged with the backend.
package models

import "time"

// User is the identity returned by /auth/me and by login/signup.
// Identity is ID; the client never mutates a User, it replaces it.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Profile is the backend-defined document behind /user/profile.
type Profile map[string]any
