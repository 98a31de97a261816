package chat

import (
	"context"

	clearchatddb "github.com/SundaeSwap-finance/clearchat/clearchat-ddb"
	"github.com/SundaeSwap-finance/clearchat/clearchat-ws/guestdao"
	"github.com/SundaeSwap-finance/clearchat/clearchat-ws/messagedao"
	"github.com/SundaeSwap-finance/clearchat/clearchat-ws/roomdao"
	"github.com/SundaeSwap-finance/clearchat/model"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// DynamoStore is the Store backed by the rooms, guests and messages tables.
type DynamoStore struct {
	Rooms    *roomdao.DAO
	Guests   *guestdao.DAO
	Messages *messagedao.DAO
	Writer   *clearchatddb.TxWriter
}

func NewDynamoStore(api dynamodbiface.DynamoDBAPI, env string, batchSize int) *DynamoStore {
	return &DynamoStore{
		Rooms:    roomdao.Build(api, env),
		Guests:   guestdao.Build(api, env),
		Messages: messagedao.Build(api, env),
		Writer:   clearchatddb.NewTxWriter(api, batchSize),
	}
}

func (s *DynamoStore) GetRoom(ctx context.Context, roomID string) (*model.Room, error) {
	return s.Rooms.Get(ctx, roomID)
}

func (s *DynamoStore) CreateRoom(ctx context.Context, room model.Room) error {
	return s.Rooms.Create(ctx, room)
}

func (s *DynamoStore) TouchRoom(ctx context.Context, roomID string, accessedTime int64) error {
	return s.Rooms.Touch(ctx, roomID, accessedTime)
}

func (s *DynamoStore) SetRoomGrant(ctx context.Context, roomID string, grant model.Grant, guests []model.Guest) error {
	item, err := s.Rooms.SetGrantItem(roomID, grant)
	if err != nil {
		return err
	}
	items := []*dynamodb.TransactWriteItem{item}
	for _, guest := range guests {
		item, err := s.Guests.SetGrantItem(roomID, guest.UserID, grant)
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	return s.Writer.Write(ctx, items...)
}

// ClearRoom deletes the room row last, so a room that fails part way can be
// cleared again.
func (s *DynamoStore) ClearRoom(ctx context.Context, roomID string, guests []model.Guest, messages []model.Message, keepRoom bool) error {
	items := make([]*dynamodb.TransactWriteItem, 0, len(guests)+len(messages)+1)
	for _, guest := range guests {
		items = append(items, s.Guests.DeleteItem(roomID, guest.UserID))
	}
	for _, message := range messages {
		items = append(items, s.Messages.DeleteItem(message.MessageID))
	}
	if !keepRoom {
		items = append(items, s.Rooms.DeleteItem(roomID))
	}
	return s.Writer.Write(ctx, items...)
}

func (s *DynamoStore) GetGuest(ctx context.Context, roomID, userID string) (*model.Guest, error) {
	return s.Guests.Get(ctx, roomID, userID)
}

func (s *DynamoStore) ListGuests(ctx context.Context, roomID string) ([]model.Guest, error) {
	return s.Guests.ListByRoom(ctx, roomID)
}

func (s *DynamoStore) CreateGuest(ctx context.Context, guest model.Guest) error {
	return s.Guests.Create(ctx, guest)
}

func (s *DynamoStore) SetGuestState(ctx context.Context, roomID, userID string, state model.GuestState, grant *model.Grant) (*model.Guest, error) {
	return s.Guests.SetState(ctx, roomID, userID, state, grant)
}

func (s *DynamoStore) SetGuestReadTime(ctx context.Context, roomID, userID string, readTime int64) (*model.Guest, error) {
	return s.Guests.SetReadTime(ctx, roomID, userID, readTime)
}

func (s *DynamoStore) ListMessages(ctx context.Context, roomID, userID string) ([]model.Message, error) {
	return s.Messages.ListByUser(ctx, roomID, userID)
}

func (s *DynamoStore) ListRoomMessages(ctx context.Context, roomID string) ([]model.Message, error) {
	return s.Messages.ListByRoom(ctx, roomID)
}

func (s *DynamoStore) PutMessage(ctx context.Context, message model.Message, sentTime int64) error {
	item, err := s.Messages.PutItem(message)
	if err != nil {
		return err
	}
	items := []*dynamodb.TransactWriteItem{item}
	if sentTime != 0 {
		item, err := s.Guests.SetSentTimeItem(message.RoomID, message.UserID, sentTime)
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	return s.Writer.Write(ctx, items...)
}
