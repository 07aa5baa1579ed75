package dynamo

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-membership-api/internal/domain"
)

// CounterRepo manages monotonic counters. PK: counter_id, attribute: current.
type CounterRepo struct {
	client    API
	tableName string
}

func NewCounterRepo(client API, tableName string) *CounterRepo {
	return &CounterRepo{client: client, tableName: tableName}
}

// Next atomically increments the named counter and returns the new value.
// A missing counter starts at zero. The increment is rejected with
// domain.ErrIdentifierSpaceExhausted when the result would exceed ceiling.
func (r *CounterRepo) Next(ctx context.Context, name string, ceiling int64) (int64, error) {
	if ceiling < 1 {
		return 0, fmt.Errorf("counter %s max %d: %w", name, ceiling, domain.ErrIdentifierSpaceExhausted)
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldCounterID, name),
		UpdateExpression:    aws.String("ADD #c :one"),
		ConditionExpression: aws.String("attribute_not_exists(#c) OR #c < :max"),
		ExpressionAttributeNames: map[string]string{
			"#c": fieldCurrent,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":max": &types.AttributeValueMemberN{Value: strconv.FormatInt(ceiling, 10)},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return 0, fmt.Errorf("counter %s reached %d: %w", name, ceiling, domain.ErrIdentifierSpaceExhausted)
		}
		return 0, storageErr("increment counter", err)
	}
	n, ok := out.Attributes[fieldCurrent].(*types.AttributeValueMemberN)
	if !ok {
		return 0, storageErr("increment counter", fmt.Errorf("missing %q in response", fieldCurrent))
	}
	v, err := strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return 0, storageErr("parse counter", err)
	}
	return v, nil
}
