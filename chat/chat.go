// Package chat implements the room, guest and message operations behind the
// websocket and REST handlers: guest admission, message storage and the
// chunked room lifecycle mutations.
package chat

import (
	"context"
	"errors"
	"time"

	"github.com/SundaeSwap-finance/clearchat/clearchat-ws/guestdao"
	"github.com/SundaeSwap-finance/clearchat/clearchat-ws/roomdao"
	"github.com/SundaeSwap-finance/clearchat/model"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrRoomNotFound   = roomdao.ErrNotFound
	ErrRoomExists     = roomdao.ErrExists
	ErrGuestNotFound  = guestdao.ErrNotFound
	ErrGuestExists    = guestdao.ErrExists
	ErrNotAdmin       = errors.New("user is not an admin")
	ErrMessageInvalid = errors.New("message invalid")
)

// Store persists rooms, guests and messages. Multi-record writes are applied
// in chunks; a failure part way leaves the earlier chunks applied.
type Store interface {
	GetRoom(ctx context.Context, roomID string) (*model.Room, error)
	CreateRoom(ctx context.Context, room model.Room) error
	TouchRoom(ctx context.Context, roomID string, accessedTime int64) error
	// SetRoomGrant writes grant to the room and to each of the guests.
	SetRoomGrant(ctx context.Context, roomID string, grant model.Grant, guests []model.Guest) error
	// ClearRoom deletes the guests and messages, and the room itself unless
	// keepRoom is set.
	ClearRoom(ctx context.Context, roomID string, guests []model.Guest, messages []model.Message, keepRoom bool) error

	GetGuest(ctx context.Context, roomID, userID string) (*model.Guest, error)
	ListGuests(ctx context.Context, roomID string) ([]model.Guest, error)
	CreateGuest(ctx context.Context, guest model.Guest) error
	SetGuestState(ctx context.Context, roomID, userID string, state model.GuestState, grant *model.Grant) (*model.Guest, error)
	SetGuestReadTime(ctx context.Context, roomID, userID string, readTime int64) (*model.Guest, error)

	ListMessages(ctx context.Context, roomID, userID string) ([]model.Message, error)
	ListRoomMessages(ctx context.Context, roomID string) ([]model.Message, error)
	// PutMessage stores the message and, when sentTime is non zero, sets the
	// guest's messageSentByUserTime in the same transaction.
	PutMessage(ctx context.Context, message model.Message, sentTime int64) error
}

// Mailer sends the admin link of a newly claimed room.
type Mailer interface {
	SendAdminLink(ctx context.Context, to, roomID, adminLink, guestLink string) error
}

// Identity is the logical user behind a connection.
type Identity struct {
	RoomID  string
	UserID  string
	IsAdmin bool
}

type Config struct {
	Zone     string
	Now      func() time.Time
	NewToken func() string
}

type Service struct {
	store    Store
	mailer   Mailer
	config   Config
	validate *validator.Validate
}

func New(store Store, mailer Mailer, config Config) *Service {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.NewToken == nil {
		config.NewToken = uuid.NewString
	}
	return &Service{
		store:    store,
		mailer:   mailer,
		config:   config,
		validate: validator.New(),
	}
}

func (s *Service) now() int64 {
	return model.Millis(s.config.Now())
}

func requireAdmin(id Identity) error {
	if !id.IsAdmin {
		return ErrNotAdmin
	}
	return nil
}
