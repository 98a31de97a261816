package roomdao

import (
	"context"
	"errors"
	"fmt"

	clearchatddb "github.com/SundaeSwap-finance/clearchat/clearchat-ddb"
	"github.com/SundaeSwap-finance/clearchat/model"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/savaki/ddb"
)

var (
	ErrNotFound = errors.New("room not found")
	ErrExists   = errors.New("room already exists")
)

// DAO provides access to the rooms table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, model.Room{}),
		api:       api,
		tableName: tableName,
	}
}

func (d *DAO) TableName() string {
	return d.tableName
}

// Get returns the room, read consistently so a just-claimed room is visible.
func (d *DAO) Get(ctx context.Context, roomID string) (*model.Room, error) {
	var room model.Room
	if err := d.table.Get(roomID).ConsistentRead(true).ScanWithContext(ctx, &room); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, roomID)
		}
		return nil, fmt.Errorf("failed to get room %v: %w", roomID, err)
	}
	return &room, nil
}

// Exists reports whether a room row is present.
func (d *DAO) Exists(ctx context.Context, roomID string) (bool, error) {
	_, err := d.Get(ctx, roomID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Create stores a new room. ErrExists is returned if the room id is taken.
func (d *DAO) Create(ctx context.Context, room model.Room) error {
	item, err := dynamodbattribute.MarshalMap(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room %v: %w", room.RoomID, err)
	}
	_, err = d.api.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(room_id)"),
	})
	if err != nil {
		if clearchatddb.IsConditionFailed(err) {
			return fmt.Errorf("%w: %v", ErrExists, room.RoomID)
		}
		return fmt.Errorf("failed to create room %v: %w", room.RoomID, err)
	}
	return nil
}

// Touch sets the accessed time of an existing room.
func (d *DAO) Touch(ctx context.Context, roomID string, accessedTime int64) error {
	_, err := d.api.UpdateItemWithContext(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(d.tableName),
		Key:                 key(roomID),
		UpdateExpression:    aws.String("SET accessed_time = :now"),
		ConditionExpression: aws.String("attribute_exists(room_id)"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":now": {N: aws.String(fmt.Sprint(accessedTime))},
		},
	})
	if err != nil {
		if clearchatddb.IsConditionFailed(err) {
			return fmt.Errorf("%w: %v", ErrNotFound, roomID)
		}
		return fmt.Errorf("failed to touch room %v: %w", roomID, err)
	}
	return nil
}

// SetGrantItem builds the transactional update of a room's grant.
func (d *DAO) SetGrantItem(roomID string, grant model.Grant) (*dynamodb.TransactWriteItem, error) {
	return clearchatddb.Set(d.tableName, map[string]string{"room_id": roomID}, "grant", grant)
}

// DeleteItem builds the transactional delete of a room.
func (d *DAO) DeleteItem(roomID string) *dynamodb.TransactWriteItem {
	return clearchatddb.Delete(d.tableName, map[string]string{"room_id": roomID})
}

func key(roomID string) map[string]*dynamodb.AttributeValue {
	return clearchatddb.StringKey(map[string]string{"room_id": roomID})
}
