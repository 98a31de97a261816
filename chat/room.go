package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/SundaeSwap-finance/clearchat/model"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type ClaimReason string

const (
	RoomNotAvailable  ClaimReason = "ROOM_NOT_AVAILABLE"
	RoomNotValid      ClaimReason = "ROOM_NOT_VALID"
	AdminModeNotValid ClaimReason = "ADMIN_MODE_NOT_VALID"
	EmailNotValid     ClaimReason = "EMAIL_NOT_VALID"
	GrantNotValid     ClaimReason = "GRANT_NOT_VALID"
)

type ClaimAdmin struct {
	Mode  model.AdminMode `json:"mode"            validate:"oneof=LINK EMAIL"`
	Email string          `json:"email,omitempty"`
}

type ClaimRequest struct {
	RoomID string      `json:"roomId"`
	Grant  model.Grant `json:"grant"`
	Admin  ClaimAdmin  `json:"admin"`
}

type ClaimResult struct {
	Success   bool        `json:"success"`
	AdminLink string      `json:"adminLink,omitempty"`
	GuestLink string      `json:"guestLink,omitempty"`
	Reason    ClaimReason `json:"reason,omitempty"`
}

func claimFailed(reason ClaimReason) ClaimResult {
	return ClaimResult{Reason: reason}
}

// CheckRoomAvailability reports whether roomID is well formed, not reserved
// and not yet claimed.
func (s *Service) CheckRoomAvailability(ctx context.Context, roomID string) (bool, error) {
	if err := model.ValidateRoomID(roomID); err != nil {
		return false, nil
	}
	_, err := s.store.GetRoom(ctx, roomID)
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return true, nil
	case err != nil:
		return false, err
	}
	return false, nil
}

// ClaimRoom creates the room with a fresh admin token. Validation failures
// are reported as a reason on the result; the error is reserved for store and
// mail failures.
func (s *Service) ClaimRoom(ctx context.Context, req ClaimRequest, creator string) (ClaimResult, error) {
	switch err := model.ValidateRoomID(req.RoomID); {
	case errors.Is(err, model.ErrRoomIDReserved):
		return claimFailed(RoomNotAvailable), nil
	case err != nil:
		return claimFailed(RoomNotValid), nil
	}
	available, err := s.CheckRoomAvailability(ctx, req.RoomID)
	if err != nil {
		return ClaimResult{}, err
	}
	if !available {
		return claimFailed(RoomNotAvailable), nil
	}
	if err := s.validate.Struct(req.Admin); err != nil {
		return claimFailed(AdminModeNotValid), nil
	}
	if req.Admin.Mode == model.AdminModeEmail {
		if err := s.validate.Var(req.Admin.Email, "required,email"); err != nil {
			return claimFailed(EmailNotValid), nil
		}
	}
	if err := req.Grant.Validate(); err != nil {
		return claimFailed(GrantNotValid), nil
	}

	now := s.now()
	room := model.Room{
		RoomID:       req.RoomID,
		Creator:      creator,
		CreatedTime:  now,
		AccessedTime: now,
		Grant:        req.Grant,
		AdminToken:   s.config.NewToken(),
	}
	if req.Admin.Mode == model.AdminModeEmail {
		room.Email = req.Admin.Email
	}
	if err := s.store.CreateRoom(ctx, room); err != nil {
		if errors.Is(err, ErrRoomExists) {
			return claimFailed(RoomNotAvailable), nil
		}
		return ClaimResult{}, err
	}

	result := ClaimResult{
		Success:   true,
		AdminLink: model.AdminLink(room.RoomID, s.config.Zone, room.AdminToken),
		GuestLink: model.GuestLink(room.RoomID, s.config.Zone),
	}
	if req.Admin.Mode == model.AdminModeEmail {
		if err := s.mailer.SendAdminLink(ctx, req.Admin.Email, room.RoomID, result.AdminLink, result.GuestLink); err != nil {
			return ClaimResult{}, fmt.Errorf("room %v claimed but admin link not sent: %w", room.RoomID, err)
		}
	}

	zerolog.Ctx(ctx).Info().Str("room_id", room.RoomID).Str("admin_mode", string(req.Admin.Mode)).Msg("room claimed")
	return result, nil
}

func (s *Service) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	return s.store.GetRoom(ctx, roomID)
}

// GetRoomDetails returns the caller's room after recording the access.
func (s *Service) GetRoomDetails(ctx context.Context, id Identity) (*model.Room, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	room, err := s.store.GetRoom(ctx, id.RoomID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if err := s.store.TouchRoom(ctx, id.RoomID, now); err != nil {
		return nil, err
	}
	room.AccessedTime = now
	return room, nil
}

// UpdateRoomGrant sets the room's grant and refreshes it on every granted
// guest, returning those guests. An invalid grant changes nothing and yields
// no guests along with model.ErrGrantInvalid.
func (s *Service) UpdateRoomGrant(ctx context.Context, id Identity, grant model.Grant) ([]model.Guest, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	if err := grant.Validate(); err != nil {
		return []model.Guest{}, err
	}

	guests, err := s.store.ListGuests(ctx, id.RoomID)
	if err != nil {
		return nil, err
	}
	granted := lo.Filter(guests, func(g model.Guest, _ int) bool {
		return g.State == model.GuestGranted
	})
	for i := range granted {
		g := grant
		granted[i].Grant = &g
	}

	if err := s.store.SetRoomGrant(ctx, id.RoomID, grant, granted); err != nil {
		return nil, err
	}
	return granted, nil
}

// DeleteRoom removes the room with all its guests and messages. The guests are
// returned so the caller can still notify them.
func (s *Service) DeleteRoom(ctx context.Context, id Identity) ([]model.Guest, error) {
	return s.clearRoom(ctx, id, false)
}

// ResetRoom removes the guests and messages but keeps the room, its grant
// and its admin token.
func (s *Service) ResetRoom(ctx context.Context, id Identity) ([]model.Guest, error) {
	return s.clearRoom(ctx, id, true)
}

func (s *Service) clearRoom(ctx context.Context, id Identity, keepRoom bool) ([]model.Guest, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	guests, err := s.store.ListGuests(ctx, id.RoomID)
	if err != nil {
		return nil, err
	}
	messages, err := s.store.ListRoomMessages(ctx, id.RoomID)
	if err != nil {
		return nil, err
	}
	if err := s.store.ClearRoom(ctx, id.RoomID, guests, messages, keepRoom); err != nil {
		return nil, err
	}
	zerolog.Ctx(ctx).Info().
		Str("room_id", id.RoomID).
		Bool("keep_room", keepRoom).
		Int("guests", len(guests)).
		Int("messages", len(messages)).
		Msg("room cleared")
	return guests, nil
}
