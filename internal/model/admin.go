package model

import "time"

// Admin represents a row in the `admins` table.  Admins generate and
// revoke lock links.
type Admin struct {
	ID           uint64    // admins.id
	Username     string    // admins.username
	PasswordHash string    // admins.password_hash (bcrypt)
	CreatedAt    time.Time // admins.created_at
}
