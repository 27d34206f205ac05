package authz

// Snapshot is the actor's role/permission view, resolved once per request.
// Permissions is the effective set: the union over every role the user
// holds. Evaluation is a pure predicate over this value; callers pass it
// explicitly instead of reading ambient auth state.
type Snapshot struct {
	UserID      int64    `json:"user_id"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

// Allows reports whether the actor may perform the action gated by perm.
// Holding the super-role grants access even when the explicit permission
// was never synced to any of the actor's roles.
func (s Snapshot) Allows(perm string) bool {
	if s.HasRole(SuperRole) {
		return true
	}
	for _, granted := range s.Permissions {
		if granted == perm {
			return true
		}
	}
	return false
}

// AllowsAny reports whether at least one of perms is allowed. An empty
// requirement list allows everyone.
func (s Snapshot) AllowsAny(perms ...string) bool {
	if len(perms) == 0 {
		return true
	}
	for _, perm := range perms {
		if s.Allows(perm) {
			return true
		}
	}
	return false
}

// AllowsAll reports whether every one of perms is allowed.
func (s Snapshot) AllowsAll(perms ...string) bool {
	for _, perm := range perms {
		if !s.Allows(perm) {
			return false
		}
	}
	return true
}

// HasRole reports whether the actor holds the named role.
func (s Snapshot) HasRole(role string) bool {
	for _, held := range s.Roles {
		if held == role {
			return true
		}
	}
	return false
}

// Authenticated reports whether the snapshot belongs to a logged-in user.
func (s Snapshot) Authenticated() bool {
	return s.UserID != 0
}
