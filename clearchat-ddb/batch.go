package clearchatddb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// DefaultBatchSize is the historical TransactWriteItems item limit.
const DefaultBatchSize = 25

// PartialWriteError reports a TxWriter failure after some chunks were
// committed. Committed chunks are not rolled back.
type PartialWriteError struct {
	Applied int // chunks committed before the failure
	Chunks  int
	Err     error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("transaction chunk %d of %d failed, %d chunks already applied: %v", e.Applied+1, e.Chunks, e.Applied, e.Err)
}

func (e *PartialWriteError) Unwrap() error {
	return e.Err
}

// TxWriter writes an arbitrary number of items as a sequence of DynamoDB
// transactions of at most Size items each. Each chunk is atomic; the sequence
// as a whole is not.
type TxWriter struct {
	api  dynamodbiface.DynamoDBAPI
	size int
}

func NewTxWriter(api dynamodbiface.DynamoDBAPI, size int) *TxWriter {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return &TxWriter{api: api, size: size}
}

func (w *TxWriter) Size() int {
	return w.size
}

func (w *TxWriter) Write(ctx context.Context, items ...*dynamodb.TransactWriteItem) error {
	if len(items) == 0 {
		return nil
	}

	chunks := lo.Chunk(items, w.size)
	for i, chunk := range chunks {
		_, err := w.api.TransactWriteItemsWithContext(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: chunk,
		})
		if err != nil {
			if i == 0 {
				return fmt.Errorf("transaction of %d items failed: %w", len(chunk), err)
			}
			return &PartialWriteError{Applied: i, Chunks: len(chunks), Err: err}
		}
		zerolog.Ctx(ctx).Debug().
			Int("chunk", i+1).
			Int("chunks", len(chunks)).
			Int("items", len(chunk)).
			Msg("transaction chunk written")
	}
	return nil
}

// Put builds a transactional put of v into tableName.
func Put(tableName string, v interface{}) (*dynamodb.TransactWriteItem, error) {
	item, err := dynamodbattribute.MarshalMap(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal item for %v: %w", tableName, err)
	}
	return &dynamodb.TransactWriteItem{
		Put: &dynamodb.Put{
			TableName: aws.String(tableName),
			Item:      item,
		},
	}, nil
}

// Delete builds a transactional delete of the item with the given key.
func Delete(tableName string, key map[string]string) *dynamodb.TransactWriteItem {
	return &dynamodb.TransactWriteItem{
		Delete: &dynamodb.Delete{
			TableName: aws.String(tableName),
			Key:       StringKey(key),
		},
	}
}

// Set builds a transactional update setting attribute name to v on the item
// with the given key. The item must already exist.
func Set(tableName string, key map[string]string, name string, v interface{}) (*dynamodb.TransactWriteItem, error) {
	value, err := dynamodbattribute.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %v for %v: %w", name, tableName, err)
	}
	// any key attribute exists iff the item does
	var attr string
	for k := range key {
		if attr == "" || k < attr {
			attr = k
		}
	}
	return &dynamodb.TransactWriteItem{
		Update: &dynamodb.Update{
			TableName:           aws.String(tableName),
			Key:                 StringKey(key),
			UpdateExpression:    aws.String("SET #v = :v"),
			ConditionExpression: aws.String("attribute_exists(#k)"),
			ExpressionAttributeNames: map[string]*string{
				"#v": aws.String(name),
				"#k": aws.String(attr),
			},
			ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
				":v": value,
			},
		},
	}, nil
}

// StringKey converts a key of string attributes to its wire form.
func StringKey(key map[string]string) map[string]*dynamodb.AttributeValue {
	av := make(map[string]*dynamodb.AttributeValue, len(key))
	for k, v := range key {
		av[k] = &dynamodb.AttributeValue{S: aws.String(v)}
	}
	return av
}

// IsConditionFailed reports whether err was caused by a failed condition
// expression, either on a single write or inside a transaction.
func IsConditionFailed(err error) bool {
	var ccf *dynamodb.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *dynamodb.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if reason != nil && aws.StringValue(reason.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}
