package model

import (
	"errors"
	"fmt"
)

var ErrInvalidTransition = errors.New("invalid guest state transition")

type GuestState string

const (
	GuestPending GuestState = "PENDING"
	GuestGranted GuestState = "GRANTED"
	GuestDenied  GuestState = "DENIED"
)

func (s GuestState) Valid() bool {
	switch s {
	case GuestPending, GuestGranted, GuestDenied:
		return true
	}
	return false
}

// Guest is a visitor to a room. Grant is set if and only if State is
// GuestGranted.
type Guest struct {
	RoomID                 string     `json:"roomId"                           dynamodbav:"room_id"                 ddb:"hash"`
	UserID                 string     `json:"userId"                           dynamodbav:"user_id"                 ddb:"range"`
	Name                   string     `json:"name"                             dynamodbav:"name"`
	State                  GuestState `json:"state"                            dynamodbav:"state"`
	CreatedTime            int64      `json:"createdTime"                      dynamodbav:"created_time"`
	RequestedAccessTime    int64      `json:"requestedAccessTime"              dynamodbav:"requested_access_time"`
	MessageSentByUserTime  int64      `json:"messageSentByUserTime,omitempty"  dynamodbav:"message_sent_by_user_time,omitempty"`
	MessageReadByAdminTime int64      `json:"messageReadByAdminTime,omitempty" dynamodbav:"message_read_by_admin_time,omitempty"`
	Grant                  *Grant     `json:"grant,omitempty"                  dynamodbav:"grant,omitempty"`
}

// NewGuest returns a pending guest requesting access at now.
func NewGuest(roomID, userID, name string, now int64) Guest {
	return Guest{
		RoomID:              roomID,
		UserID:              userID,
		Name:                name,
		State:               GuestPending,
		CreatedTime:         now,
		RequestedAccessTime: now,
	}
}

// Transition moves the guest to state. Entering GuestGranted copies the room's
// current grant onto the guest; any other state clears it. PENDING is only an
// initial state and can not be re-entered.
func (g *Guest) Transition(state GuestState, current Grant) error {
	if !state.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidTransition, state)
	}
	if state == GuestPending {
		return fmt.Errorf("%w: %v -> %v", ErrInvalidTransition, g.State, state)
	}

	g.State = state
	if state == GuestGranted {
		grant := current
		g.Grant = &grant
	} else {
		g.Grant = nil
	}
	return nil
}

// HasUnreadMessages reports whether the guest sent a message the admin has
// not looked at yet.
func (g Guest) HasUnreadMessages() bool {
	if g.MessageSentByUserTime == 0 {
		return false
	}
	return g.MessageReadByAdminTime == 0 || g.MessageReadByAdminTime < g.MessageSentByUserTime
}
