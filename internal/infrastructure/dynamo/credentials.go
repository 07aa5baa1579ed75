package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-membership-api/internal/domain"
)

// CredentialRepo stores login accounts. PK: email, GSI: uid-index.
type CredentialRepo struct {
	client    API
	tableName string
}

func NewCredentialRepo(client API, tableName string) *CredentialRepo {
	return &CredentialRepo{client: client, tableName: tableName}
}

// Create writes c unless a credential already exists for c.Email,
// in which case it returns domain.ErrCredentialExists.
func (r *CredentialRepo) Create(ctx context.Context, c *domain.Credential) error {
	item, err := attributevalue.MarshalMap(c)
	if err != nil {
		return fmt.Errorf("marshal credential: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#e)"),
		ExpressionAttributeNames: map[string]string{"#e": fieldEmail},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("credential for email: %w", domain.ErrCredentialExists)
		}
		return storageErr("create credential", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored hash for email. It returns
// domain.ErrNotFound when no credential exists for email.
func (r *CredentialRepo) UpdatePasswordHash(ctx context.Context, email, hash string, at time.Time) error {
	updatedAt, err := attributevalue.Marshal(at)
	if err != nil {
		return fmt.Errorf("marshal credential timestamp: %w", err)
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(fieldEmail, email),
		UpdateExpression:    aws.String("SET #p = :p, #u = :u"),
		ConditionExpression: aws.String("attribute_exists(#e)"),
		ExpressionAttributeNames: map[string]string{
			"#p": fieldPasswordHash,
			"#u": fieldUpdatedAt,
			"#e": fieldEmail,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: hash},
			":u": updatedAt,
		},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return fmt.Errorf("credential not found: %w", domain.ErrNotFound)
		}
		return storageErr("update credential password", err)
	}
	return nil
}

func (r *CredentialRepo) GetByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldEmail, email),
	})
	if err != nil {
		return nil, storageErr("get credential", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("credential not found: %w", domain.ErrNotFound)
	}
	var c domain.Credential
	if err := attributevalue.UnmarshalMap(out.Item, &c); err != nil {
		return nil, storageErr("unmarshal credential", err)
	}
	return &c, nil
}

func (r *CredentialRepo) GetByUID(ctx context.Context, uid string) (*domain.Credential, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexUID),
		KeyConditionExpression:    aws.String("#u = :u"),
		ExpressionAttributeNames:  map[string]string{"#u": fieldUID},
		ExpressionAttributeValues: map[string]types.AttributeValue{":u": &types.AttributeValueMemberS{Value: uid}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, storageErr("query credentials", err)
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("credential not found: %w", domain.ErrNotFound)
	}
	var c domain.Credential
	if err := attributevalue.UnmarshalMap(out.Items[0], &c); err != nil {
		return nil, storageErr("unmarshal credential", err)
	}
	return &c, nil
}
