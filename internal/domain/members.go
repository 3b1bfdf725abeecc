package domain

import "slices"

// Identity is who a session acts as. A guest has an empty UserID.
type Identity struct {
	UserID string `json:"user_id,omitempty"`
	Name   string `json:"name"`
}

func (i Identity) IsGuest() bool {
	return i.UserID == ""
}

func (r *Room) IsOwner(id Identity) bool {
	return !id.IsGuest() && r.OwnerID == id.UserID
}

func (r *Room) IsAdmin(id Identity) bool {
	return !id.IsGuest() && slices.Contains(r.AdminIDs, id.UserID)
}

// SetAdmin adds or removes userID from the admin list. It reports whether the list changed.
func (r *Room) SetAdmin(userID string, admin bool) bool {
	i := slices.Index(r.AdminIDs, userID)
	switch {
	case admin && i < 0:
		r.AdminIDs = append(r.AdminIDs, userID)
		return true
	case !admin && i >= 0:
		r.AdminIDs = slices.Delete(r.AdminIDs, i, i+1)
		return true
	}

	return false
}

// User is an account known to persistence.
type User struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Name: u.Name}
}
