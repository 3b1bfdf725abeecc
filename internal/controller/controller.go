package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/sharetube/synctube/internal/domain"
	"github.com/sharetube/synctube/internal/service/room"
	"github.com/sharetube/synctube/pkg/validator"
	"github.com/sharetube/synctube/pkg/wsrouter"
)

type iRoomService interface {
	ResolveIdentity(ctx context.Context, credential string) domain.Identity
	Join(ctx context.Context, params *room.JoinParams) error
	Disconnect(ctx context.Context, params *room.JoinParams)
	Sync(ctx context.Context, params *room.PlayerParams) error
	Play(ctx context.Context, params *room.PlayerParams) error
	Pause(ctx context.Context, params *room.PlayerParams) error
	Seek(ctx context.Context, params *room.SeekParams) error
	ChangeVideo(ctx context.Context, params *room.ChangeVideoParams) error
	AddVideo(ctx context.Context, params *room.AddVideoParams) error
	RemoveVideo(ctx context.Context, params *room.RemoveVideoParams) error
	MoveVideo(ctx context.Context, params *room.MoveVideoParams) error
	ShufflePlaylist(ctx context.Context, params *room.PlayerParams) error
	ReloadPlaylist(ctx context.Context, params *room.PlayerParams) error
	Chat(ctx context.Context, params *room.ChatParams) error
	Kick(ctx context.Context, params *room.KickParams) error
	SetAdmin(ctx context.Context, params *room.SetAdminParams) error
	UpdateSettings(ctx context.Context, params *room.UpdateSettingsParams) error
	SendRoomList(ctx context.Context, params *room.RoomListParams)
	RoomList(ctx context.Context) []room.RoomListEntry
	CreateRoom(ctx context.Context, params *room.CreateRoomParams) (room.CreateRoomResponse, error)
}

type controller struct {
	roomService iRoomService
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter[*session]
	logger      *slog.Logger
}

func NewController(roomService iRoomService, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
