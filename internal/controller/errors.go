package controller

import (
	"context"
	"errors"

	"github.com/sharetube/synctube/internal/service/room"
	"github.com/sharetube/synctube/pkg/wsrouter"
)

var (
	ErrNotJoined       = errors.New("join a room first")
	ErrAlreadyJoined   = errors.New("already joined a room")
	ErrValidationError = errors.New("validation error")
)

// errorReason maps an action error to the reason id and message sent to the client.
func errorReason(err error) (string, string) {
	switch {
	case errors.Is(err, ErrNotJoined):
		return "not_joined", ErrNotJoined.Error()
	case errors.Is(err, ErrAlreadyJoined):
		return "already_joined", ErrAlreadyJoined.Error()
	case errors.Is(err, wsrouter.ErrUnknownAction):
		return "invalid_action", "An action was sent to the server that it did not understand."
	case errors.Is(err, wsrouter.ErrInvalidPayload), errors.Is(err, ErrValidationError):
		return "invalid_request", err.Error()
	case errors.Is(err, room.ErrInvalidVideo):
		return "invalid_video", "That video does not exist or cannot be played."
	case errors.Is(err, room.ErrProviderUnavailable):
		return "invalid_video", "Could not look up that video right now. Try again later."
	case errors.Is(err, room.ErrIndexOutOfRange):
		return "index_out_of_range", "That playlist entry does not exist."
	case errors.Is(err, room.ErrNotAllowed):
		return "not_allowed", "You are not allowed to do that."
	case errors.Is(err, room.ErrPlaylistLimitReached):
		return "playlist_full", "The playlist is full."
	case errors.Is(err, room.ErrUserNotFound):
		return "user_not_found", "No such user."
	case errors.Is(err, room.ErrNothingToUpdate):
		return "invalid_request", room.ErrNothingToUpdate.Error()
	case errors.Is(err, room.ErrRoomNotFound):
		return "room_not_found", room.ErrRoomNotFound.Error()
	}

	return "internal_error", "Something went wrong."
}

func (c controller) writeError(ctx context.Context, sess *session, err error) {
	reason, msg := errorReason(err)
	if reason == "internal_error" {
		c.logger.ErrorContext(ctx, "failed to handle action", "error", err)
	} else {
		c.logger.DebugContext(ctx, "action rejected", "reason", reason, "error", err)
	}

	sess.Send(room.NewErrorEvent(reason, msg))
}
