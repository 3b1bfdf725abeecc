package room

import "context"

const maxChatMessageLength = 500

type ChatParams struct {
	Sender   Session
	RoomID   string
	Message  string
	IsAction bool
	// Force sends an empty message.
	Force bool
}

// Chat relays a message to everyone in the room. It changes no state.
func (s *service) Chat(ctx context.Context, params *ChatParams) error {
	lr, err := s.room(params.RoomID)
	if err != nil {
		return err
	}

	message := params.Message
	if message == "" && !params.Force {
		return nil
	}
	if len([]rune(message)) > maxChatMessageLength {
		message = string([]rune(message)[:maxChatMessageLength])
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()

	s.broadcast(ctx, lr, emission{
		kind: eventChat,
		payload: ChatEvent{
			Action:   "chatmsg",
			Sender:   params.Sender.Identity().Name,
			Message:  message,
			IsAction: params.IsAction,
		},
	})
	return nil
}
