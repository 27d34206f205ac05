package auth

import "time"

// Account carries the credential fields needed to authenticate a login.
type Account struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
