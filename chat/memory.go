package chat

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SundaeSwap-finance/clearchat/model"
	"github.com/samber/lo"
)

// MemoryStore is an in-process Store for console mode and tests. Every
// operation is applied under one lock, so multi-record writes are atomic.
type MemoryStore struct {
	mu       sync.Mutex
	rooms    map[string]model.Room
	guests   map[string]map[string]model.Guest
	messages map[string]model.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    map[string]model.Room{},
		guests:   map[string]map[string]model.Guest{},
		messages: map[string]model.Message{},
	}
}

func copyGuest(g model.Guest) *model.Guest {
	if g.Grant != nil {
		grant := *g.Grant
		g.Grant = &grant
	}
	return &g
}

func (s *MemoryStore) GetRoom(_ context.Context, roomID string) (*model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrRoomNotFound, roomID)
	}
	return &room, nil
}

func (s *MemoryStore) CreateRoom(_ context.Context, room model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.RoomID]; ok {
		return fmt.Errorf("%w: %v", ErrRoomExists, room.RoomID)
	}
	s.rooms[room.RoomID] = room
	return nil
}

func (s *MemoryStore) TouchRoom(_ context.Context, roomID string, accessedTime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: %v", ErrRoomNotFound, roomID)
	}
	room.AccessedTime = accessedTime
	s.rooms[roomID] = room
	return nil
}

func (s *MemoryStore) SetRoomGrant(_ context.Context, roomID string, grant model.Grant, guests []model.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[roomID]
	if !ok {
		return fmt.Errorf("%w: %v", ErrRoomNotFound, roomID)
	}
	for _, g := range guests {
		current, ok := s.guests[roomID][g.UserID]
		if !ok || current.State != model.GuestGranted {
			return fmt.Errorf("guest %v is no longer granted", g.UserID)
		}
	}
	room.Grant = grant
	s.rooms[roomID] = room
	for _, g := range guests {
		current := s.guests[roomID][g.UserID]
		value := grant
		current.Grant = &value
		s.guests[roomID][g.UserID] = current
	}
	return nil
}

func (s *MemoryStore) ClearRoom(_ context.Context, roomID string, guests []model.Guest, messages []model.Message, keepRoom bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, g := range guests {
		delete(s.guests[roomID], g.UserID)
	}
	for _, m := range messages {
		delete(s.messages, m.MessageID)
	}
	if !keepRoom {
		delete(s.rooms, roomID)
		delete(s.guests, roomID)
	}
	return nil
}

func (s *MemoryStore) GetGuest(_ context.Context, roomID, userID string) (*model.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	guest, ok := s.guests[roomID][userID]
	if !ok {
		return nil, fmt.Errorf("%w: %v / %v", ErrGuestNotFound, roomID, userID)
	}
	return copyGuest(guest), nil
}

func (s *MemoryStore) ListGuests(_ context.Context, roomID string) ([]model.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	guests := make([]model.Guest, 0, len(s.guests[roomID]))
	for _, g := range s.guests[roomID] {
		guests = append(guests, *copyGuest(g))
	}
	sort.Slice(guests, func(i, j int) bool {
		return guests[i].UserID < guests[j].UserID
	})
	return guests, nil
}

func (s *MemoryStore) CreateGuest(_ context.Context, guest model.Guest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.guests[guest.RoomID][guest.UserID]; ok {
		return fmt.Errorf("%w: %v / %v", ErrGuestExists, guest.RoomID, guest.UserID)
	}
	if s.guests[guest.RoomID] == nil {
		s.guests[guest.RoomID] = map[string]model.Guest{}
	}
	s.guests[guest.RoomID][guest.UserID] = *copyGuest(guest)
	return nil
}

func (s *MemoryStore) update(roomID, userID string, fn func(*model.Guest)) (*model.Guest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	guest, ok := s.guests[roomID][userID]
	if !ok {
		return nil, fmt.Errorf("%w: %v / %v", ErrGuestNotFound, roomID, userID)
	}
	fn(&guest)
	s.guests[roomID][userID] = guest
	return copyGuest(guest), nil
}

func (s *MemoryStore) SetGuestState(_ context.Context, roomID, userID string, state model.GuestState, grant *model.Grant) (*model.Guest, error) {
	return s.update(roomID, userID, func(g *model.Guest) {
		g.State = state
		g.Grant = nil
		if grant != nil {
			value := *grant
			g.Grant = &value
		}
	})
}

func (s *MemoryStore) SetGuestReadTime(_ context.Context, roomID, userID string, readTime int64) (*model.Guest, error) {
	return s.update(roomID, userID, func(g *model.Guest) {
		g.MessageReadByAdminTime = readTime
	})
}

func (s *MemoryStore) ListMessages(_ context.Context, roomID, userID string) ([]model.Message, error) {
	return s.listMessages(func(m model.Message) bool {
		return m.RoomID == roomID && m.UserID == userID
	}), nil
}

func (s *MemoryStore) ListRoomMessages(_ context.Context, roomID string) ([]model.Message, error) {
	return s.listMessages(func(m model.Message) bool {
		return m.RoomID == roomID
	}), nil
}

func (s *MemoryStore) listMessages(match func(model.Message) bool) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	messages := lo.Filter(lo.Values(s.messages), func(m model.Message, _ int) bool {
		return match(m)
	})
	sort.SliceStable(messages, func(i, j int) bool {
		if messages[i].CreatedTime == messages[j].CreatedTime {
			return messages[i].MessageID < messages[j].MessageID
		}
		return messages[i].CreatedTime < messages[j].CreatedTime
	})
	return messages
}

func (s *MemoryStore) PutMessage(_ context.Context, message model.Message, sentTime int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sentTime != 0 {
		guest, ok := s.guests[message.RoomID][message.UserID]
		if !ok {
			return fmt.Errorf("%w: %v / %v", ErrGuestNotFound, message.RoomID, message.UserID)
		}
		guest.MessageSentByUserTime = sentTime
		s.guests[message.RoomID][message.UserID] = guest
	}
	s.messages[message.MessageID] = message
	return nil
}
