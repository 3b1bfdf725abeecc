package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/sharetube/synctube/internal/service/room"
)

type EmptyInput struct{}

type JoinInput struct {
	RoomID     string `json:"room_id" validate:"required,max=64,slug"`
	Credential string `json:"credential"`
}

func (c controller) handleJoin(ctx context.Context, sess *session, input JoinInput) error {
	if sess.State() == stateJoined {
		return ErrAlreadyJoined
	}

	sess.bind(c.roomService.ResolveIdentity(ctx, input.Credential))

	if err := c.roomService.Join(ctx, &room.JoinParams{Sender: sess, RoomID: input.RoomID}); err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			sess.Send(room.NewRoomNotFoundEvent(input.RoomID))
			sess.Close(websocket.CloseNormalClosure, "room not found")
			return nil
		}
		return fmt.Errorf("failed to join room: %w", err)
	}

	sess.joined(input.RoomID)
	c.logger.InfoContext(ctx, "session joined", "room_id", input.RoomID, "name", sess.Identity().Name)
	return nil
}

type RoomListInput struct {
	Listen bool `json:"listen"`
}

func (c controller) handleRoomList(ctx context.Context, sess *session, input RoomListInput) error {
	c.roomService.SendRoomList(ctx, &room.RoomListParams{Sender: sess, Listen: input.Listen})
	return nil
}

func (c controller) playerParams(sess *session) *room.PlayerParams {
	return &room.PlayerParams{Sender: sess, RoomID: sess.RoomID()}
}

func (c controller) handleSync(ctx context.Context, sess *session, _ EmptyInput) error {
	return c.roomService.Sync(ctx, c.playerParams(sess))
}

func (c controller) handlePlay(ctx context.Context, sess *session, _ EmptyInput) error {
	if err := c.roomService.Play(ctx, c.playerParams(sess)); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	return nil
}

func (c controller) handlePause(ctx context.Context, sess *session, _ EmptyInput) error {
	if err := c.roomService.Pause(ctx, c.playerParams(sess)); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}

	return nil
}

type SeekInput struct {
	Time *int `json:"time" validate:"required,gte=0"`
}

func (c controller) handleSeek(ctx context.Context, sess *session, input SeekInput) error {
	if err := c.roomService.Seek(ctx, &room.SeekParams{
		Sender: sess,
		RoomID: sess.RoomID(),
		Time:   *input.Time,
	}); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	return nil
}

type IndexInput struct {
	Index *int `json:"index" validate:"required"`
}

func (c controller) handleChangeVideo(ctx context.Context, sess *session, input IndexInput) error {
	if err := c.roomService.ChangeVideo(ctx, &room.ChangeVideoParams{
		Sender: sess,
		RoomID: sess.RoomID(),
		Index:  *input.Index,
	}); err != nil {
		return fmt.Errorf("failed to change video: %w", err)
	}

	return nil
}

type AddVideoInput struct {
	VideoID string `json:"video_id" validate:"required,len=11"`
	Index   *int   `json:"index" validate:"omitempty,gte=0"`
}

func (c controller) handleAddVideo(ctx context.Context, sess *session, input AddVideoInput) error {
	if err := c.roomService.AddVideo(ctx, &room.AddVideoParams{
		Sender:  sess,
		RoomID:  sess.RoomID(),
		VideoID: input.VideoID,
		Index:   input.Index,
	}); err != nil {
		return fmt.Errorf("failed to add video: %w", err)
	}

	return nil
}

func (c controller) handleRemoveVideo(ctx context.Context, sess *session, input IndexInput) error {
	if err := c.roomService.RemoveVideo(ctx, &room.RemoveVideoParams{
		Sender: sess,
		RoomID: sess.RoomID(),
		Index:  *input.Index,
	}); err != nil {
		return fmt.Errorf("failed to remove video: %w", err)
	}

	return nil
}

type MoveVideoInput struct {
	OldIndex *int `json:"old_index" validate:"required"`
	NewIndex *int `json:"new_index" validate:"required"`
}

func (c controller) handleMoveVideo(ctx context.Context, sess *session, input MoveVideoInput) error {
	if err := c.roomService.MoveVideo(ctx, &room.MoveVideoParams{
		Sender:   sess,
		RoomID:   sess.RoomID(),
		OldIndex: *input.OldIndex,
		NewIndex: *input.NewIndex,
	}); err != nil {
		return fmt.Errorf("failed to move video: %w", err)
	}

	return nil
}

func (c controller) handleShufflePlaylist(ctx context.Context, sess *session, _ EmptyInput) error {
	if err := c.roomService.ShufflePlaylist(ctx, c.playerParams(sess)); err != nil {
		return fmt.Errorf("failed to shuffle playlist: %w", err)
	}

	return nil
}

func (c controller) handleReloadPlaylist(ctx context.Context, sess *session, _ EmptyInput) error {
	return c.roomService.ReloadPlaylist(ctx, c.playerParams(sess))
}

type ChatInput struct {
	Message  string `json:"message" validate:"max=500"`
	IsAction bool   `json:"is_action"`
}

func (c controller) handleChat(ctx context.Context, sess *session, input ChatInput) error {
	return c.roomService.Chat(ctx, &room.ChatParams{
		Sender:   sess,
		RoomID:   sess.RoomID(),
		Message:  input.Message,
		IsAction: input.IsAction,
	})
}

type KickInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Message  string `json:"message" validate:"max=200"`
}

func (c controller) handleKick(ctx context.Context, sess *session, input KickInput) error {
	if err := c.roomService.Kick(ctx, &room.KickParams{
		Sender:   sess,
		RoomID:   sess.RoomID(),
		Username: input.Username,
		Message:  input.Message,
	}); err != nil {
		return fmt.Errorf("failed to kick user: %w", err)
	}

	return nil
}

type SetAdminInput struct {
	Username string `json:"username" validate:"required,max=64"`
	Admin    bool   `json:"admin"`
}

func (c controller) handleSetAdmin(ctx context.Context, sess *session, input SetAdminInput) error {
	if err := c.roomService.SetAdmin(ctx, &room.SetAdminParams{
		Sender:   sess,
		RoomID:   sess.RoomID(),
		Username: input.Username,
		Admin:    input.Admin,
	}); err != nil {
		return fmt.Errorf("failed to set admin: %w", err)
	}

	return nil
}

type UpdateSettingsInput struct {
	Title          *string `json:"title" validate:"omitempty,max=100"`
	Topic          *string `json:"topic" validate:"omitempty,max=500"`
	IsPrivate      *bool   `json:"is_private"`
	UsersCanPause  *bool   `json:"users_can_pause"`
	UsersCanSkip   *bool   `json:"users_can_skip"`
	UsersCanAdd    *bool   `json:"users_can_add"`
	UsersCanRemove *bool   `json:"users_can_remove"`
	UsersCanMove   *bool   `json:"users_can_move"`
}

func (c controller) handleUpdateSettings(ctx context.Context, sess *session, input UpdateSettingsInput) error {
	if err := c.roomService.UpdateSettings(ctx, &room.UpdateSettingsParams{
		Sender:  sess,
		RoomID:  sess.RoomID(),
		Changes: room.SettingsChanges(input),
	}); err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	return nil
}
