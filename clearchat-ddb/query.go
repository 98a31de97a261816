package clearchatddb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
)

// QueryAll runs input to completion, following LastEvaluatedKey, and
// unmarshals every item into out, which must be a pointer to a slice.
func QueryAll(ctx context.Context, api dynamodbiface.DynamoDBAPI, input *dynamodb.QueryInput, out interface{}) error {
	var items []map[string]*dynamodb.AttributeValue
	err := api.QueryPagesWithContext(ctx, input, func(page *dynamodb.QueryOutput, _ bool) bool {
		items = append(items, page.Items...)
		return true
	})
	if err != nil {
		return fmt.Errorf("query on %v failed: %w", *input.TableName, err)
	}
	if err := dynamodbattribute.UnmarshalListOfMaps(items, out); err != nil {
		return fmt.Errorf("unable to unmarshal items from %v: %w", *input.TableName, err)
	}
	return nil
}
