package controller

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sharetube/synctube/internal/service/room"
	"github.com/sharetube/synctube/pkg/rest"
)

type createRoomRequest struct {
	Slug      string `json:"slug" validate:"required,max=64,slug"`
	Title     string `json:"title" validate:"max=100"`
	Topic     string `json:"topic" validate:"max=500"`
	IsPrivate bool   `json:"is_private"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest

	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.InfoContext(r.Context(), "failed to read create room request", "error", err)
		rest.WriteJSON(w, http.StatusUnprocessableEntity, rest.Envelope{"error": err.Error()})
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"errors": validationErrors})
		return
	}

	resp, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		Slug:       req.Slug,
		Title:      req.Title,
		Topic:      req.Topic,
		IsPrivate:  req.IsPrivate,
		Credential: bearerToken(r),
	})
	if err != nil {
		switch {
		case errors.Is(err, room.ErrRoomAlreadyExists):
			rest.WriteJSON(w, http.StatusConflict, rest.Envelope{"error": err.Error()})
		case errors.Is(err, room.ErrNotAllowed):
			rest.WriteJSON(w, http.StatusUnauthorized, rest.Envelope{"error": "invalid credential"})
		default:
			c.logger.ErrorContext(r.Context(), "failed to create room", "error", err)
			rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		}
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"room": resp})
}

func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"rooms": c.roomService.RoomList(r.Context())})
}

func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}

	return strings.TrimSpace(token)
}
