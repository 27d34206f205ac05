package roles

import "time"

// Role is a named bundle of permissions assignable to users.
type Role struct {
	ID          int64
	Name        string
	Permissions []string
	UsersCount  int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListRequest carries pagination for role listings.
type ListRequest struct {
	Limit  int
	Offset int
}
