package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrMalformedMessage is returned for input that is not a JSON object with an action.
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownAction    = errors.New("unknown action")
	ErrInvalidPayload   = errors.New("invalid payload")
)

type message struct {
	Action string `json:"action"`
}

// HandlerFunc handles one decoded message on behalf of a connection state S.
type HandlerFunc[S any] func(ctx context.Context, s S, raw json.RawMessage) error

type Middleware[S any] func(next HandlerFunc[S]) HandlerFunc[S]

// WSRouter dispatches flat {"action": ..., ...} messages by their action field.
type WSRouter[S any] struct {
	routes      map[string]HandlerFunc[S]
	middlewares []Middleware[S]
}

func New[S any]() *WSRouter[S] {
	return &WSRouter[S]{routes: make(map[string]HandlerFunc[S])}
}

func (r *WSRouter[S]) Use(mws ...Middleware[S]) {
	r.middlewares = append(r.middlewares, mws...)
}

func (r *WSRouter[S]) HandleRaw(action string, handler HandlerFunc[S]) {
	r.routes[action] = handler
}

// Handle registers a handler whose input is decoded from the whole message into T.
func Handle[S, T any](r *WSRouter[S], action string, handler func(ctx context.Context, s S, input T) error) {
	r.HandleRaw(action, func(ctx context.Context, s S, raw json.RawMessage) error {
		var input T
		if err := json.Unmarshal(raw, &input); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}

		return handler(ctx, s, input)
	})
}

func (r *WSRouter[S]) Route(ctx context.Context, s S, data []byte) error {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if msg.Action == "" {
		return fmt.Errorf("%w: missing action", ErrMalformedMessage)
	}

	handler, exists := r.routes[msg.Action]
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownAction, msg.Action)
	}

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		handler = r.middlewares[i](handler)
	}

	ctx = context.WithValue(ctx, actionKey, msg.Action)
	return handler(ctx, s, data)
}
