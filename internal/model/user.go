// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// WHY `json:"-"` ON PasswordHash?
// The "-" tag tells encoding/json to skip the field entirely. Every handler
// that writes a User to the wire therefore omits the credential hash without
// having to remember to blank it out first.
//
// The ID is generated by the store (an ObjectID hex string on MongoDB, an xid
// on SQLite) and is serialized as "_id", the key the UI reads.
type User struct {
	ID           string    `json:"_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"` // unique across all users
	PasswordHash string    `json:"-"`     // bcrypt output, never returned to clients
	CreatedAt    time.Time `json:"createdAt"`
}
