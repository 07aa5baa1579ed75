package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-membership-api/internal/domain"
)

// ContactRepo stores contact form submissions. PK: contact_id.
type ContactRepo struct {
	client    API
	tableName string
}

func NewContactRepo(client API, tableName string) *ContactRepo {
	return &ContactRepo{client: client, tableName: tableName}
}

func (r *ContactRepo) Create(ctx context.Context, c *domain.ContactMessage) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal contact message: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#c)"),
		ExpressionAttributeNames: map[string]string{"#c": fieldContactID},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("contact id %s: %w", c.ContactID, domain.ErrConflict)
		}
		return storageErr("create contact message", err)
	}
	return nil
}
