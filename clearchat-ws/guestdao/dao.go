package guestdao

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
	ErrNotFound = errors.New("guest not found")
	ErrExists   = errors.New("guest already exists")
)

// DAO provides access to the guests table, keyed by room and user.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, model.Guest{}),
		api:       api,
		tableName: tableName,
	}
}

func (d *DAO) TableName() string {
	return d.tableName
}

func (d *DAO) Get(ctx context.Context, roomID, userID string) (*model.Guest, error) {
	var guest model.Guest
	if err := d.table.Get(roomID).Range(userID).ConsistentRead(true).ScanWithContext(ctx, &guest); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return nil, fmt.Errorf("%w: %v / %v", ErrNotFound, roomID, userID)
		}
		return nil, fmt.Errorf("failed to get guest %v / %v: %w", roomID, userID, err)
	}
	return &guest, nil
}

// ListByRoom returns every guest of the room.
func (d *DAO) ListByRoom(ctx context.Context, roomID string) ([]model.Guest, error) {
	var guests []model.Guest
	err := clearchatddb.QueryAll(ctx, d.api, &dynamodb.QueryInput{
		TableName:              aws.String(d.tableName),
		KeyConditionExpression: aws.String("room_id = :room"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":room": {S: aws.String(roomID)},
		},
		ConsistentRead: aws.Bool(true),
	}, &guests)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests for %v: %w", roomID, err)
	}
	return guests, nil
}

// Create stores a new guest. ErrExists is returned if the user already has a
// guest record in the room.
func (d *DAO) Create(ctx context.Context, guest model.Guest) error {
	item, err := dynamodbattribute.MarshalMap(guest)
	if err != nil {
		return fmt.Errorf("failed to marshal guest %v: %w", guest.UserID, err)
	}
	_, err = d.api.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(room_id)"),
	})
	if err != nil {
		if clearchatddb.IsConditionFailed(err) {
			return fmt.Errorf("%w: %v / %v", ErrExists, guest.RoomID, guest.UserID)
		}
		return fmt.Errorf("failed to create guest %v / %v: %w", guest.RoomID, guest.UserID, err)
	}
	return nil
}

// SetState writes the guest's state and grant together and returns the
// updated guest. A nil grant removes the attribute.
func (d *DAO) SetState(ctx context.Context, roomID, userID string, state model.GuestState, grant *model.Grant) (*model.Guest, error) {
	input := &dynamodb.UpdateItemInput{
		TableName:           aws.String(d.tableName),
		Key:                 key(roomID, userID),
		ConditionExpression: aws.String("attribute_exists(room_id)"),
		ExpressionAttributeNames: map[string]*string{
			"#state": aws.String("state"),
			"#grant": aws.String("grant"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":state": {S: aws.String(string(state))},
		},
		ReturnValues: aws.String(dynamodb.ReturnValueAllNew),
	}
	if grant != nil {
		av, err := dynamodbattribute.Marshal(grant)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal grant: %w", err)
		}
		input.ExpressionAttributeValues[":grant"] = av
		input.UpdateExpression = aws.String("SET #state = :state, #grant = :grant")
	} else {
		input.UpdateExpression = aws.String("SET #state = :state REMOVE #grant")
	}
	return d.update(ctx, roomID, userID, input)
}

// SetReadTime records when an admin last looked at the guest's messages.
func (d *DAO) SetReadTime(ctx context.Context, roomID, userID string, readTime int64) (*model.Guest, error) {
	return d.update(ctx, roomID, userID, &dynamodb.UpdateItemInput{
		TableName:           aws.String(d.tableName),
		Key:                 key(roomID, userID),
		UpdateExpression:    aws.String("SET message_read_by_admin_time = :t"),
		ConditionExpression: aws.String("attribute_exists(room_id)"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":t": {N: aws.String(fmt.Sprint(readTime))},
		},
		ReturnValues: aws.String(dynamodb.ReturnValueAllNew),
	})
}

func (d *DAO) update(ctx context.Context, roomID, userID string, input *dynamodb.UpdateItemInput) (*model.Guest, error) {
	output, err := d.api.UpdateItemWithContext(ctx, input)
	if err != nil {
		if clearchatddb.IsConditionFailed(err) {
			return nil, fmt.Errorf("%w: %v / %v", ErrNotFound, roomID, userID)
		}
		return nil, fmt.Errorf("failed to update guest %v / %v: %w", roomID, userID, err)
	}
	var guest model.Guest
	if err := dynamodbattribute.UnmarshalMap(output.Attributes, &guest); err != nil {
		return nil, fmt.Errorf("failed to unmarshal guest %v / %v: %w", roomID, userID, err)
	}
	return &guest, nil
}

// SetGrantItem builds the transactional update of a granted guest's grant.
// The item fails its condition if the guest has left GuestGranted since it
// was read.
func (d *DAO) SetGrantItem(roomID, userID string, grant model.Grant) (*dynamodb.TransactWriteItem, error) {
	av, err := dynamodbattribute.Marshal(grant)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal grant: %w", err)
	}
	return &dynamodb.TransactWriteItem{
		Update: &dynamodb.Update{
			TableName:           aws.String(d.tableName),
			Key:                 key(roomID, userID),
			UpdateExpression:    aws.String("SET #grant = :grant"),
			ConditionExpression: aws.String("#state = :granted"),
			ExpressionAttributeNames: map[string]*string{
				"#grant": aws.String("grant"),
				"#state": aws.String("state"),
			},
			ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
				":grant":   av,
				":granted": {S: aws.String(string(model.GuestGranted))},
			},
		},
	}, nil
}

// SetSentTimeItem builds the transactional update of the time the guest last
// sent a message.
func (d *DAO) SetSentTimeItem(roomID, userID string, sentTime int64) (*dynamodb.TransactWriteItem, error) {
	return clearchatddb.Set(d.tableName, keyMap(roomID, userID), "message_sent_by_user_time", sentTime)
}

// DeleteItem builds the transactional delete of a guest.
func (d *DAO) DeleteItem(roomID, userID string) *dynamodb.TransactWriteItem {
	return clearchatddb.Delete(d.tableName, keyMap(roomID, userID))
}

func keyMap(roomID, userID string) map[string]string {
	return map[string]string{"room_id": roomID, "user_id": userID}
}

func key(roomID, userID string) map[string]*dynamodb.AttributeValue {
	return clearchatddb.StringKey(keyMap(roomID, userID))
}
