package domain

import (
	"errors"
	"math/rand/v2"
	"time"
)

const (
	// TimePadding is the negative offset applied on every video change, in seconds.
	TimePadding = 3
	// EndGrace is added to a video's duration before it is considered ended, in seconds.
	EndGrace = 2
)

var ErrIndexOutOfRange = errors.New("playlist index out of range")

type Settings struct {
	Title          string `json:"title"`
	Topic          string `json:"topic"`
	IsPrivate      bool   `json:"is_private"`
	UsersCanPause  bool   `json:"users_can_pause"`
	UsersCanSkip   bool   `json:"users_can_skip"`
	UsersCanAdd    bool   `json:"users_can_add"`
	UsersCanRemove bool   `json:"users_can_remove"`
	UsersCanMove   bool   `json:"users_can_move"`
}

func DefaultSettings() Settings {
	return Settings{
		UsersCanPause:  true,
		UsersCanSkip:   true,
		UsersCanAdd:    true,
		UsersCanRemove: true,
		UsersCanMove:   true,
	}
}

// Apply sets the fields named in changes. Unknown keys and mistyped values are ignored.
func (s *Settings) Apply(changes map[string]any) {
	for key, value := range changes {
		switch v := value.(type) {
		case string:
			switch key {
			case "title":
				s.Title = v
			case "topic":
				s.Topic = v
			}
		case bool:
			switch key {
			case "is_private":
				s.IsPrivate = v
			case "users_can_pause":
				s.UsersCanPause = v
			case "users_can_skip":
				s.UsersCanSkip = v
			case "users_can_add":
				s.UsersCanAdd = v
			case "users_can_remove":
				s.UsersCanRemove = v
			case "users_can_move":
				s.UsersCanMove = v
			}
		}
	}
}

// Room is the authoritative playback and playlist state of one room.
// Position is always within [0, len(Playlist)]; len(Playlist) means the playlist has ended.
type Room struct {
	ID       string
	Settings Settings
	OwnerID  string
	AdminIDs []string
	Playlist []PlaylistEntry
	Position int
	Player   Player
}

func NewRoom(id string) *Room {
	return &Room{
		ID:       id,
		Settings: DefaultSettings(),
	}
}

func (r *Room) Clone() *Room {
	c := *r
	c.AdminIDs = append([]string(nil), r.AdminIDs...)
	c.Playlist = append([]PlaylistEntry(nil), r.Playlist...)
	return &c
}

func (r *Room) Ended() bool {
	return r.Position >= len(r.Playlist)
}

func (r *Room) CurrentVideo() (PlaylistEntry, bool) {
	if r.Ended() {
		return PlaylistEntry{}, false
	}

	return r.Playlist[r.Position], true
}

// CurrentPosition returns the playback offset in whole seconds. It is negative
// right after a video change until the padding has elapsed.
func (r *Room) CurrentPosition(now time.Time) int {
	if !r.Player.IsPlaying {
		return r.Player.LastPosition
	}

	return int(now.Sub(r.Player.StartTimestamp).Seconds()) + r.Player.LastPosition
}

// Play starts playback. It reports false when the room was already playing.
func (r *Room) Play(now time.Time) bool {
	if r.Player.IsPlaying {
		return false
	}

	r.Player.StartTimestamp = now
	r.Player.IsPlaying = true
	return true
}

// Pause stops playback at the current position. It reports false when the room was already paused.
func (r *Room) Pause(now time.Time) bool {
	if !r.Player.IsPlaying {
		return false
	}

	r.Player.LastPosition = r.CurrentPosition(now)
	r.Player.IsPlaying = false
	return true
}

func (r *Room) Seek(t int, now time.Time) {
	r.Player.LastPosition = t
	r.Player.StartTimestamp = now
}

// ChangeVideo points the room at index and restarts playback with the given padding.
// index may equal len(Playlist), which leaves the room in the ended state.
func (r *Room) ChangeVideo(index, padding int, now time.Time) error {
	if index < 0 || index > len(r.Playlist) {
		return ErrIndexOutOfRange
	}

	r.Position = index
	r.Player.LastPosition = -padding
	r.Player.StartTimestamp = now
	r.Player.IsPlaying = true
	return nil
}

type InsertResult struct {
	Index        int
	VideoChanged bool
}

// InsertVideo adds entry at index, or appends it when index is nil or past the end.
func (r *Room) InsertVideo(entry PlaylistEntry, index *int, now time.Time) (InsertResult, error) {
	wasEnded := r.Ended()

	i := len(r.Playlist)
	if index != nil {
		if *index < 0 {
			return InsertResult{}, ErrIndexOutOfRange
		}
		if *index < i {
			i = *index
		}
	}

	if i < r.Position || (i == r.Position && !wasEnded) {
		r.Position++
	}
	r.Playlist = insertAt(r.Playlist, i, entry)

	res := InsertResult{Index: i}
	if wasEnded {
		if err := r.ChangeVideo(i, TimePadding, now); err != nil {
			return InsertResult{}, err
		}
		res.VideoChanged = true
	}

	return res, nil
}

type RemoveResult struct {
	Entry        PlaylistEntry
	VideoChanged bool
}

// RemoveVideo deletes the entry at index. Removing the playing entry moves playback
// to the entry that takes its place.
func (r *Room) RemoveVideo(index int, now time.Time) (RemoveResult, error) {
	if index < 0 || index >= len(r.Playlist) {
		return RemoveResult{}, ErrIndexOutOfRange
	}

	beforeCurrent := index < r.Position
	isCurrent := index == r.Position

	entry := r.Playlist[index]
	r.Playlist = removeAt(r.Playlist, index)

	res := RemoveResult{Entry: entry}
	switch {
	case beforeCurrent:
		r.Position--
	case isCurrent:
		if err := r.ChangeVideo(r.Position, TimePadding, now); err != nil {
			return RemoveResult{}, err
		}
		res.VideoChanged = true
	}

	return res, nil
}

// MoveVideo moves the entry at from to to. The playing entry keeps playing.
func (r *Room) MoveVideo(from, to int) error {
	if from < 0 || from >= len(r.Playlist) || to < 0 || to >= len(r.Playlist) {
		return ErrIndexOutOfRange
	}
	if from == to {
		return nil
	}

	entry := r.Playlist[from]
	r.Playlist = insertAt(removeAt(r.Playlist, from), to, entry)

	switch {
	case from == r.Position:
		r.Position = to
	case from < r.Position && to >= r.Position:
		r.Position--
	case from > r.Position && to <= r.Position:
		r.Position++
	}

	return nil
}

// Shuffle permutes the playlist and keeps Position on the entry that was playing.
func (r *Room) Shuffle() {
	order := rand.Perm(len(r.Playlist))
	shuffled := make([]PlaylistEntry, len(r.Playlist))
	newPosition := len(r.Playlist)
	for newIndex, oldIndex := range order {
		shuffled[newIndex] = r.Playlist[oldIndex]
		if oldIndex == r.Position {
			newPosition = newIndex
		}
	}

	r.Playlist = shuffled
	r.Position = newPosition
}

// CheckVideoEnded advances to the next entry when the playing video has run past
// duration plus EndGrace. It reports whether the room advanced. A duration of zero
// or less is unknown (live streams report P0D) and never ends on its own.
func (r *Room) CheckVideoEnded(duration int, now time.Time) bool {
	if r.Ended() || !r.Player.IsPlaying || duration <= 0 {
		return false
	}

	if r.CurrentPosition(now) < duration+EndGrace {
		return false
	}

	return r.ChangeVideo(r.Position+1, TimePadding, now) == nil
}
