package domain

type Capability int

const (
	CanPause Capability = iota
	CanSkip
	CanAdd
	CanRemove
	CanMove
)

func (c Capability) String() string {
	switch c {
	case CanPause:
		return "pause"
	case CanSkip:
		return "skip"
	case CanAdd:
		return "add"
	case CanRemove:
		return "remove"
	case CanMove:
		return "move"
	}
	return "unknown"
}

// IsModerator reports whether id is the owner or an admin of the room.
func (r *Room) IsModerator(id Identity) bool {
	return r.IsOwner(id) || r.IsAdmin(id)
}

// Can resolves a capability for id. Moderators can do everything, everyone else
// falls back to the room setting.
func (r *Room) Can(id Identity, c Capability) bool {
	if r.IsModerator(id) {
		return true
	}

	switch c {
	case CanPause:
		return r.Settings.UsersCanPause
	case CanSkip:
		return r.Settings.UsersCanSkip
	case CanAdd:
		return r.Settings.UsersCanAdd
	case CanRemove:
		return r.Settings.UsersCanRemove
	case CanMove:
		return r.Settings.UsersCanMove
	}
	return false
}
