// Package model defines domain entities for the application.
package model

import "time"

// ImageRecord represents one stored derived image owned by a single user.
// Records are immutable: a re-upload of different bytes creates a new record,
// a re-upload of identical bytes converges on the existing one.
type ImageRecord struct {
	ID            string    `json:"id"`
	OwnerUsername string    `json:"owner_username"`
	ContentHash   string    `json:"content_hash"`
	StorageKey    string    `json:"storage_key"`
	ContentType   string    `json:"content_type"`
	Greyscale     bool      `json:"greyscale"`
	Transforms    []string  `json:"transforms"`
	CreatedAt     time.Time `json:"created_at"`
}
