package domain

import "time"

// User represents a registered account. PasswordHash holds the bcrypt hash;
// the plaintext password never leaves the sign-up/login request.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
