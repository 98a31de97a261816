package messagedao

import (
	"context"
	"fmt"
	"sort"

	clearchatddb "github.com/SundaeSwap-finance/clearchat/clearchat-ddb"
	"github.com/SundaeSwap-finance/clearchat/model"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/savaki/ddb"
)

// RoomUserIndex is the GSI on (room_id, user_id).
const RoomUserIndex = "RoomUserIndex"

// DAO provides access to the messages table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, model.Message{}),
		api:       api,
		tableName: tableName,
	}
}

func (d *DAO) TableName() string {
	return d.tableName
}

// ListByUser returns the conversation between a guest and the room admins,
// oldest first.
func (d *DAO) ListByUser(ctx context.Context, roomID, userID string) ([]model.Message, error) {
	return d.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		IndexName:              aws.String(RoomUserIndex),
		KeyConditionExpression: aws.String("room_id = :room AND user_id = :user"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":room": {S: aws.String(roomID)},
			":user": {S: aws.String(userID)},
		},
	})
}

// ListByRoom returns every message in the room, oldest first.
func (d *DAO) ListByRoom(ctx context.Context, roomID string) ([]model.Message, error) {
	return d.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		IndexName:              aws.String(RoomUserIndex),
		KeyConditionExpression: aws.String("room_id = :room"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":room": {S: aws.String(roomID)},
		},
	})
}

func (d *DAO) query(ctx context.Context, input *dynamodb.QueryInput) ([]model.Message, error) {
	var messages []model.Message
	if err := clearchatddb.QueryAll(ctx, d.api, input, &messages); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedTime < messages[j].CreatedTime
	})
	return messages, nil
}

// PutItem builds the transactional put of a new message.
func (d *DAO) PutItem(message model.Message) (*dynamodb.TransactWriteItem, error) {
	return clearchatddb.Put(d.tableName, message)
}

// DeleteItem builds the transactional delete of a message.
func (d *DAO) DeleteItem(messageID string) *dynamodb.TransactWriteItem {
	return clearchatddb.Delete(d.tableName, map[string]string{"message_id": messageID})
}
