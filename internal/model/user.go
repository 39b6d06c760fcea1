package model

import "time"

// User is an account that can own slots and take part in swaps.
// The normalized email doubles as the identity carried through the
// swap protocol, so it is stored denormalized on slots and requests.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash of the password.
//  CreatedAt    – creation timestamp.
//  UpdatedAt    – last update timestamp.
type User struct {
	ID           uint64    // users.id
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}
