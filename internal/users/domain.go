package users

import "time"

// User represents a user account for management. PasswordHash is write-only
// and never serialized.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListRequest carries pagination for user listings.
type ListRequest struct {
	Limit  int
	Offset int
}

// CreateRequest carries the fields for a new account. Password is the
// plaintext input; hashing happens in the service before persistence.
type CreateRequest struct {
	Name     string
	Username string
	Email    string
	Password string
}

// UpdateRequest mirrors CreateRequest. An empty Password keeps the stored
// hash untouched.
type UpdateRequest struct {
	Name     string
	Username string
	Email    string
	Password string
}
