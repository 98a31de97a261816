// Package connectiondao is the connection registry: it records which physical
// websocket connections belong to which user, room and admin role across the
// connections, user-connections and admin-connections tables, and keeps the
// three in step by only ever writing them together in one transaction.
package connectiondao

import (
	"context"
	"errors"
	"fmt"
	"strings"

	clearchatddb "github.com/SundaeSwap-finance/clearchat/clearchat-ddb"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/savaki/ddb"
)

var (
	ErrRegistrationFailed = errors.New("registration failed")
	ErrConnectionNotFound = errors.New("connection not found")
)

type DAO struct {
	client *ddb.DDB
	api    dynamodbiface.DynamoDBAPI
	tables Tables
	conns  *ddb.Table
	users  *ddb.Table
	admins *ddb.Table
	writer *clearchatddb.TxWriter
}

func New(api dynamodbiface.DynamoDBAPI, tables Tables, batchSize int) *DAO {
	client := ddb.New(api)
	return &DAO{
		client: client,
		api:    api,
		tables: tables,
		conns:  client.MustTable(tables.Connections, Connection{}),
		users:  client.MustTable(tables.UserConnections, UserConnection{}),
		admins: client.MustTable(tables.AdminConnections, AdminConnection{}),
		writer: clearchatddb.NewTxWriter(api, batchSize),
	}
}

// Register writes the connection and its index rows in a single transaction,
// conditional on the room existing. ErrRegistrationFailed is returned when the
// room is missing.
func (d *DAO) Register(ctx context.Context, conn Connection) error {
	items := []*dynamodb.TransactWriteItem{
		{
			ConditionCheck: &dynamodb.ConditionCheck{
				TableName:           aws.String(d.tables.Rooms),
				Key:                 clearchatddb.StringKey(map[string]string{"room_id": conn.RoomID}),
				ConditionExpression: aws.String("attribute_exists(room_id)"),
			},
		},
	}

	records := []interface{}{
		conn,
		UserConnection{
			UserID:         conn.UserID,
			RoomConnection: RoomConnection(conn.RoomID, conn.ConnectionID),
			IsAdmin:        conn.IsAdmin,
			CreatedTime:    conn.CreatedTime,
			TTL:            conn.TTL,
		},
	}
	if conn.IsAdmin {
		records = append(records, AdminConnection{
			RoomID:       conn.RoomID,
			ConnectionID: conn.ConnectionID,
			UserID:       conn.UserID,
			CreatedTime:  conn.CreatedTime,
			TTL:          conn.TTL,
		})
	}
	tables := []string{d.tables.Connections, d.tables.UserConnections, d.tables.AdminConnections}
	for i, record := range records {
		item, err := clearchatddb.Put(tables[i], record)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	if _, err := d.api.TransactWriteItemsWithContext(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		if clearchatddb.IsConditionFailed(err) {
			return fmt.Errorf("%w: room %v does not exist", ErrRegistrationFailed, conn.RoomID)
		}
		return fmt.Errorf("failed to register connection %v: %w", conn.ConnectionID, err)
	}
	return nil
}

// Unregister removes the connection and its index rows. Unknown connections
// are not an error.
func (d *DAO) Unregister(ctx context.Context, connectionID string) error {
	conn, err := d.Get(ctx, connectionID)
	if errors.Is(err, ErrConnectionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var (
		delConn = d.conns.Delete(connectionID)
		delUser = d.users.Delete(conn.UserID).Range(RoomConnection(conn.RoomID, connectionID))
	)
	if conn.IsAdmin {
		delAdmin := d.admins.Delete(conn.RoomID).Range(connectionID)
		_, err = d.client.TransactWriteItemsWithContext(ctx, delConn, delUser, delAdmin)
	} else {
		_, err = d.client.TransactWriteItemsWithContext(ctx, delConn, delUser)
	}
	if err != nil {
		return fmt.Errorf("failed to unregister connection %v: %w", connectionID, err)
	}
	return nil
}

// Get returns the identity owning a connection, read consistently.
func (d *DAO) Get(ctx context.Context, connectionID string) (*Connection, error) {
	var conn Connection
	if err := d.conns.Get(connectionID).ConsistentRead(true).ScanWithContext(ctx, &conn); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return nil, fmt.Errorf("%w: %v", ErrConnectionNotFound, connectionID)
		}
		return nil, fmt.Errorf("failed to get connection %v: %w", connectionID, err)
	}
	return &conn, nil
}

// ConnectionsForUser lists every connection of userID in roomID.
func (d *DAO) ConnectionsForUser(ctx context.Context, roomID, userID string) ([]string, error) {
	prefix := RoomConnection(roomID, "")
	var rows []UserConnection
	err := clearchatddb.QueryAll(ctx, d.api, &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.UserConnections),
		KeyConditionExpression: aws.String("user_id = :user AND begins_with(room_connection, :prefix)"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":user":   {S: aws.String(userID)},
			":prefix": {S: aws.String(prefix)},
		},
		ConsistentRead: aws.Bool(true),
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections for %v in %v: %w", userID, roomID, err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, strings.TrimPrefix(row.RoomConnection, prefix))
	}
	return ids, nil
}

// ConnectionsForRoomAdmins lists every admin connection of roomID.
func (d *DAO) ConnectionsForRoomAdmins(ctx context.Context, roomID string) ([]string, error) {
	var rows []AdminConnection
	err := clearchatddb.QueryAll(ctx, d.api, &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.AdminConnections),
		KeyConditionExpression: aws.String("room_id = :room"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":room": {S: aws.String(roomID)},
		},
		ConsistentRead: aws.Bool(true),
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list admin connections for %v: %w", roomID, err)
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ConnectionID)
	}
	return ids, nil
}

// MarkAuthenticated flags the connections as authenticated. Up to the batch
// size this is one transaction; larger sets are written in several and a
// failure part way leaves the earlier chunks applied. A connection that
// disconnects concurrently cancels the transaction, so it is retried once
// with the connections that still exist.
func (d *DAO) MarkAuthenticated(ctx context.Context, connectionIDs []string) error {
	err := d.markAuthenticated(ctx, connectionIDs)
	if err == nil || !clearchatddb.IsConditionFailed(err) {
		return err
	}

	var live []string
	for _, id := range connectionIDs {
		_, getErr := d.Get(ctx, id)
		switch {
		case getErr == nil:
			live = append(live, id)
		case !errors.Is(getErr, ErrConnectionNotFound):
			return getErr
		}
	}
	return d.markAuthenticated(ctx, live)
}

func (d *DAO) markAuthenticated(ctx context.Context, connectionIDs []string) error {
	items := make([]*dynamodb.TransactWriteItem, 0, len(connectionIDs))
	for _, id := range connectionIDs {
		item, err := clearchatddb.Set(d.tables.Connections, map[string]string{"connection_id": id}, "authenticated", true)
		if err != nil {
			return err
		}
		items = append(items, item)
	}
	if err := d.writer.Write(ctx, items...); err != nil {
		return fmt.Errorf("failed to mark %d connections authenticated: %w", len(connectionIDs), err)
	}
	return nil
}
