package clearchatws

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/SundaeSwap-finance/clearchat/clearchat-ws/connectiondao"
)

// MemoryRegistry is an in-process Registry for console mode and tests. All
// three views of a connection are derived from one map under one lock.
type MemoryRegistry struct {
	mu         sync.Mutex
	conns      map[string]connectiondao.Connection
	roomExists func(ctx context.Context, roomID string) (bool, error)
}

// NewMemoryRegistry returns a registry that refuses connections to rooms for
// which roomExists reports false.
func NewMemoryRegistry(roomExists func(ctx context.Context, roomID string) (bool, error)) *MemoryRegistry {
	return &MemoryRegistry{
		conns:      map[string]connectiondao.Connection{},
		roomExists: roomExists,
	}
}

func (r *MemoryRegistry) Register(ctx context.Context, conn connectiondao.Connection) error {
	ok, err := r.roomExists(ctx, conn.RoomID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: room %v does not exist", connectiondao.ErrRegistrationFailed, conn.RoomID)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ConnectionID] = conn
	return nil
}

func (r *MemoryRegistry) Unregister(_ context.Context, connectionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, connectionID)
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, connectionID string) (*connectiondao.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.conns[connectionID]
	if !ok {
		return nil, fmt.Errorf("%w: %v", connectiondao.ErrConnectionNotFound, connectionID)
	}
	return &conn, nil
}

func (r *MemoryRegistry) ConnectionsForUser(_ context.Context, roomID, userID string) ([]string, error) {
	return r.find(func(c connectiondao.Connection) bool {
		return c.RoomID == roomID && c.UserID == userID
	}), nil
}

func (r *MemoryRegistry) ConnectionsForRoomAdmins(_ context.Context, roomID string) ([]string, error) {
	return r.find(func(c connectiondao.Connection) bool {
		return c.RoomID == roomID && c.IsAdmin
	}), nil
}

func (r *MemoryRegistry) MarkAuthenticated(_ context.Context, connectionIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range connectionIDs {
		if conn, ok := r.conns[id]; ok {
			conn.Authenticated = true
			r.conns[id] = conn
		}
	}
	return nil
}

func (r *MemoryRegistry) find(match func(connectiondao.Connection) bool) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, conn := range r.conns {
		if match(conn) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
