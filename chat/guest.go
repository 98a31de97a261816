package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/SundaeSwap-finance/clearchat/model"
	"github.com/rs/zerolog"
)

var ErrAdminGuest = errors.New("admins can not register as guests")

// CreateGuest registers the caller as a pending guest of their room. A caller
// that is already a guest gets their existing record back unchanged.
func (s *Service) CreateGuest(ctx context.Context, id Identity, name string) (*model.Guest, error) {
	if id.IsAdmin {
		return nil, ErrAdminGuest
	}
	guest := model.NewGuest(id.RoomID, id.UserID, name, s.now())
	err := s.store.CreateGuest(ctx, guest)
	if errors.Is(err, ErrGuestExists) {
		zerolog.Ctx(ctx).Warn().Str("user_id", id.UserID).Msg("guest already registered")
		return s.store.GetGuest(ctx, id.RoomID, id.UserID)
	}
	if err != nil {
		return nil, err
	}
	return &guest, nil
}

// GetGuest returns the caller's guest record, or nil if they have not
// registered.
func (s *Service) GetGuest(ctx context.Context, id Identity) (*model.Guest, error) {
	guest, err := s.store.GetGuest(ctx, id.RoomID, id.UserID)
	if errors.Is(err, ErrGuestNotFound) {
		return nil, nil
	}
	return guest, err
}

func (s *Service) ListGuests(ctx context.Context, id Identity) ([]model.Guest, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return s.store.ListGuests(ctx, id.RoomID)
}

// SetGuestState moves a guest of the caller's room to state. Granting copies
// the room's grant as read now; any other state clears the guest's grant.
func (s *Service) SetGuestState(ctx context.Context, id Identity, userID string, state model.GuestState) (*model.Guest, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	guest, err := s.store.GetGuest(ctx, id.RoomID, userID)
	if err != nil {
		return nil, err
	}

	var current model.Grant
	if state == model.GuestGranted {
		room, err := s.store.GetRoom(ctx, id.RoomID)
		if err != nil {
			return nil, err
		}
		current = room.Grant
	}
	previous := guest.State
	if err := guest.Transition(state, current); err != nil {
		return nil, err
	}

	updated, err := s.store.SetGuestState(ctx, id.RoomID, userID, guest.State, guest.Grant)
	if err != nil {
		return nil, fmt.Errorf("failed to set guest %v to %v: %w", userID, state, err)
	}
	zerolog.Ctx(ctx).Info().
		Str("user_id", userID).
		Str("from", string(previous)).
		Str("to", string(state)).
		Msg("guest state changed")
	return updated, nil
}

// MarkGuestRead records that an admin has seen the guest's messages.
func (s *Service) MarkGuestRead(ctx context.Context, id Identity, userID string) (*model.Guest, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return s.store.SetGuestReadTime(ctx, id.RoomID, userID, s.now())
}
