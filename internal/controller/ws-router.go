package controller

import (
	"context"
	"fmt"

	"github.com/sharetube/synctube/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter[*session] {
	mux := wsrouter.New[*session]()
	mux.Use(c.loggerWSMw(), c.joinedWSMw())

	// session
	handle(c, mux, "join", c.handleJoin)
	handle(c, mux, "roomlist", c.handleRoomList)

	// player
	handle(c, mux, "sync", c.handleSync)
	handle(c, mux, "play", c.handlePlay)
	handle(c, mux, "pause", c.handlePause)
	handle(c, mux, "seek", c.handleSeek)
	handle(c, mux, "changevideo", c.handleChangeVideo)

	// playlist
	handle(c, mux, "addvideo", c.handleAddVideo)
	handle(c, mux, "removevideo", c.handleRemoveVideo)
	handle(c, mux, "movevideo", c.handleMoveVideo)
	handle(c, mux, "shuffleplaylist", c.handleShufflePlaylist)
	handle(c, mux, "reloadplaylist", c.handleReloadPlaylist)

	// members
	handle(c, mux, "chatmsg", c.handleChat)
	handle(c, mux, "kickuser", c.handleKick)
	handle(c, mux, "setadmin", c.handleSetAdmin)
	handle(c, mux, "updatesettings", c.handleUpdateSettings)

	return mux
}

// handle registers fn for action and validates its input before calling it.
func handle[T any](c controller, mux *wsrouter.WSRouter[*session], action string, fn func(ctx context.Context, sess *session, input T) error) {
	wsrouter.Handle(mux, action, func(ctx context.Context, sess *session, input T) error {
		if errs, ok := c.validate.Validate(input); !ok {
			return fmt.Errorf("%w: %s", ErrValidationError, errs[0].Message)
		}

		return fn(ctx, sess, input)
	})
}
