package room

import (
	"time"

	"github.com/sharetube/synctube/internal/domain"
)

const videoService = "youtube"

// Outbound events. Every event carries its action name so it can be written as is.

type SyncEvent struct {
	Action    string `json:"action"`
	VideoTime int    `json:"video_time"`
	IsPlaying bool   `json:"is_playing"`
}

type SetVideoEvent struct {
	Action       string `json:"action"`
	VideoService string `json:"video_service"`
	VideoID      string `json:"video_id"`
	PlaylistPos  int    `json:"playlist_pos"`
}

type PlaylistEntry struct {
	VideoID  string `json:"video_id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Duration int    `json:"duration"`
	AddedBy  string `json:"added_by"`
}

const (
	PlaylistUpdateAll    = "all"
	PlaylistUpdateAdd    = "add"
	PlaylistUpdateRemove = "remove"
	PlaylistUpdateMove   = "move"
)

type PlaylistUpdateEvent struct {
	Action     string          `json:"action"`
	Type       string          `json:"type"`
	Playlist   []PlaylistEntry `json:"playlist,omitempty"`
	Entries    []PlaylistEntry `json:"entries,omitempty"`
	FirstIndex *int            `json:"first_index,omitempty"`
	Indices    []int           `json:"indices,omitempty"`
	OldIndex   *int            `json:"old_index,omitempty"`
	NewIndex   *int            `json:"new_index,omitempty"`
}

type UserInfo struct {
	Username string `json:"username"`
	IsYou    bool   `json:"isyou"`
	IsGuest  bool   `json:"isguest"`
	IsAdmin  bool   `json:"isadmin"`
	IsOwner  bool   `json:"isowner"`
}

type UserListUpdateEvent struct {
	Action   string     `json:"action"`
	UserList []UserInfo `json:"userlist"`
}

type ChatEvent struct {
	Action   string `json:"action"`
	Sender   string `json:"sender"`
	Message  string `json:"message"`
	IsAction bool   `json:"is_action"`
}

type ConfigUpdateEvent struct {
	Action   string          `json:"action"`
	Settings domain.Settings `json:"settings"`
}

type RoomListEntry struct {
	Name      string `json:"name"`
	Title     string `json:"title"`
	UserCount int    `json:"usercount"`
}

type RoomListEvent struct {
	Action string          `json:"action"`
	Rooms  []RoomListEntry `json:"rooms"`
}

type KickedEvent struct {
	Action  string `json:"action"`
	By      string `json:"by"`
	Message string `json:"message"`
}

type ErrorEvent struct {
	Action    string `json:"action"`
	Reason    string `json:"reason"`
	ReasonMsg string `json:"reason_msg"`
}

type RoomNotFoundEvent struct {
	Action string `json:"action"`
	RoomID string `json:"room_id"`
}

func NewErrorEvent(reason, msg string) ErrorEvent {
	if msg == "" {
		msg = reason
	}
	return ErrorEvent{Action: "error", Reason: reason, ReasonMsg: msg}
}

func NewRoomNotFoundEvent(roomID string) RoomNotFoundEvent {
	return RoomNotFoundEvent{Action: "room_not_found", RoomID: roomID}
}

func newSyncEvent(r *domain.Room, now time.Time) SyncEvent {
	return SyncEvent{
		Action:    "sync",
		VideoTime: r.CurrentPosition(now),
		IsPlaying: r.Player.IsPlaying,
	}
}

func newSetVideoEvent(r *domain.Room) SetVideoEvent {
	entry, _ := r.CurrentVideo()
	return SetVideoEvent{
		Action:       "setvideo",
		VideoService: videoService,
		VideoID:      entry.VideoID,
		PlaylistPos:  r.Position,
	}
}

func newConfigUpdateEvent(r *domain.Room) ConfigUpdateEvent {
	return ConfigUpdateEvent{Action: "config_update", Settings: r.Settings}
}

// Bus event types. Payloads carry only what a receiver cannot read back from the repository.
const (
	eventSync           = "sync"
	eventVideoChanged   = "video_changed"
	eventPlaylistChange = "playlist_change"
	eventUserList       = "userlist_update"
	eventChat           = "chat_message"
	eventConfig         = "config_update"
	eventKick           = "kick"
)

// kickPayload names the worker holding the target session in Worker. An empty
// Worker lets any worker with a member of that name perform the kick.
type kickPayload struct {
	Username string `json:"username"`
	By       string `json:"by"`
	Message  string `json:"message"`
	Worker   string `json:"worker,omitempty"`
}

// emission is one event applied to local sessions and published on the bus.
type emission struct {
	kind    string
	payload any
}
