// Package model defines domain entities for the application.
package model

import "time"

// User represents a registered gallery user.
// The password hash is stored in PHC string format and never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Username constraints, matching what the shipped client enforces.
const (
	MinUsernameLength = 1
	MaxUsernameLength = 20
)
