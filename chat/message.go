package chat

import (
	"context"
	"fmt"

	"github.com/SundaeSwap-finance/clearchat/model"
	"github.com/google/uuid"
)

// MessageToSend is a message as submitted by a client. UserID names the
// destination guest of an OUT message and is ignored for IN.
type MessageToSend struct {
	UserID    string          `json:"userId,omitempty"`
	Content   string          `json:"content"`
	Direction model.Direction `json:"direction"`
}

// StoreMessage stores a message between a guest and the room admins and
// returns it with the guest it belongs to. Guests send IN messages from
// themselves; admins send OUT messages to a named guest.
func (s *Service) StoreMessage(ctx context.Context, id Identity, send MessageToSend) (model.Message, *model.Guest, error) {
	if !send.Direction.Valid() {
		return model.Message{}, nil, fmt.Errorf("%w: direction %q", ErrMessageInvalid, send.Direction)
	}

	now := s.now()
	message := model.Message{
		MessageID:   uuid.NewString(),
		RoomID:      id.RoomID,
		UserID:      id.UserID,
		Content:     model.TruncateContent(send.Content),
		Direction:   send.Direction,
		CreatedTime: now,
	}

	var sentTime int64
	if send.Direction == model.DirectionOut {
		if err := requireAdmin(id); err != nil {
			return model.Message{}, nil, err
		}
		if send.UserID == "" {
			return model.Message{}, nil, fmt.Errorf("%w: outbound message has no userId", ErrMessageInvalid)
		}
		message.UserID = send.UserID
	} else {
		sentTime = now
	}

	guest, err := s.store.GetGuest(ctx, id.RoomID, message.UserID)
	if err != nil {
		return model.Message{}, nil, err
	}
	if err := s.store.PutMessage(ctx, message, sentTime); err != nil {
		return model.Message{}, nil, err
	}
	if sentTime != 0 {
		guest.MessageSentByUserTime = sentTime
	}
	return message, guest, nil
}

// GetMessages returns the caller's own conversation.
func (s *Service) GetMessages(ctx context.Context, id Identity) ([]model.Message, error) {
	return s.store.ListMessages(ctx, id.RoomID, id.UserID)
}

// GetRoomMessages returns every conversation in the caller's room.
func (s *Service) GetRoomMessages(ctx context.Context, id Identity) ([]model.Message, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return s.store.ListRoomMessages(ctx, id.RoomID)
}
