package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-membership-api/internal/domain"
)

// TokenRepo manages single-use emailed tokens; verification and password reset
// tokens each live in their own table.
// PK: token, GSI: email-index, TTL: ttl.
type TokenRepo struct {
	client    API
	tableName string
}

func NewTokenRepo(client API, tableName string) *TokenRepo {
	return &TokenRepo{client: client, tableName: tableName}
}

// Supersede deletes every token stored for v.Email and writes v, in one
// transaction where the item limit allows. It returns how many tokens were removed.
func (r *TokenRepo) Supersede(ctx context.Context, v *domain.VerificationToken) (int, error) {
	existing, err := r.tokensForEmail(ctx, v.Email)
	if err != nil {
		return 0, err
	}

	// Overflow beyond one transaction is deleted up front; only reachable if
	// supersession was previously interrupted many times for one address.
	for len(existing) > maxTransactItems-1 {
		if err := r.Delete(ctx, existing[0]); err != nil {
			return 0, err
		}
		existing = existing[1:]
	}

	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return 0, fmt.Errorf("marshal verification token: %w", err)
	}
	items := make([]types.TransactWriteItem, 0, len(existing)+1)
	for _, tok := range existing {
		items = append(items, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(r.tableName),
				Key:       strKey(fieldToken, tok),
			},
		})
	}
	items = append(items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:                aws.String(r.tableName),
			Item:                     item,
			ConditionExpression:      aws.String("attribute_not_exists(#t)"),
			ExpressionAttributeNames: map[string]string{"#t": fieldToken},
		},
	})

	if _, err := r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		if idx, ok := cancelledByCondition(err); ok && len(idx) > 0 {
			return 0, fmt.Errorf("token collision: %w", domain.ErrConflict)
		}
		return 0, storageErr("supersede verification tokens", err)
	}
	return len(existing), nil
}

// GetByToken looks up a token record by exact token value.
func (r *TokenRepo) GetByToken(ctx context.Context, token string) (*domain.VerificationToken, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldToken, token),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storageErr("get verification token", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("verification token not found: %w", domain.ErrNotFound)
	}
	var v domain.VerificationToken
	if err := attributevalue.UnmarshalMap(out.Item, &v); err != nil {
		return nil, storageErr("unmarshal verification token", err)
	}
	return &v, nil
}

// ListByEmail returns every stored token for email, expired or not.
func (r *TokenRepo) ListByEmail(ctx context.Context, email string) ([]domain.VerificationToken, error) {
	var tokens []domain.VerificationToken
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexEmail),
		KeyConditionExpression:    aws.String("#e = :e"),
		ExpressionAttributeNames:  map[string]string{"#e": fieldEmail},
		ExpressionAttributeValues: map[string]types.AttributeValue{":e": &types.AttributeValueMemberS{Value: email}},
	}
	for {
		out, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, storageErr("query verification tokens", err)
		}
		var page []domain.VerificationToken
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, storageErr("unmarshal verification tokens", err)
		}
		tokens = append(tokens, page...)
		if len(out.LastEvaluatedKey) == 0 {
			return tokens, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (r *TokenRepo) tokensForEmail(ctx context.Context, email string) ([]string, error) {
	tokens, err := r.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(tokens))
	for _, t := range tokens {
		values = append(values, t.Token)
	}
	return values, nil
}

func (r *TokenRepo) Delete(ctx context.Context, token string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(fieldToken, token),
	})
	if err != nil {
		return storageErr("delete verification token", err)
	}
	return nil
}

// Claim deletes the token only if it still exists and returns the deleted record.
// Of several concurrent callers exactly one receives the record; the rest get
// domain.ErrNotFound.
func (r *TokenRepo) Claim(ctx context.Context, token string) (*domain.VerificationToken, error) {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldToken, token),
		ConditionExpression:      aws.String("attribute_exists(#t)"),
		ExpressionAttributeNames: map[string]string{"#t": fieldToken},
		ReturnValues:             types.ReturnValueAllOld,
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil, fmt.Errorf("verification token already claimed: %w", domain.ErrNotFound)
		}
		return nil, storageErr("claim verification token", err)
	}
	var v domain.VerificationToken
	if err := attributevalue.UnmarshalMap(out.Attributes, &v); err != nil {
		return nil, storageErr("unmarshal verification token", err)
	}
	return &v, nil
}

// Restore puts a previously claimed token back unless a record with the same
// value already exists. When a token issued at or after v.CreatedAt is stored
// for the same email, nothing is written and domain.ErrConflict is returned.
func (r *TokenRepo) Restore(ctx context.Context, v *domain.VerificationToken) error {
	current, err := r.ListByEmail(ctx, v.Email)
	if err != nil {
		return err
	}
	for _, c := range current {
		if c.Token != v.Token && !c.CreatedAt.Before(v.CreatedAt) {
			return fmt.Errorf("token superseded: %w", domain.ErrConflict)
		}
	}

	item, err := attributevalue.MarshalMap(v)
	if err != nil {
		return fmt.Errorf("marshal verification token: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     item,
		ConditionExpression:      aws.String("attribute_not_exists(#t)"),
		ExpressionAttributeNames: map[string]string{"#t": fieldToken},
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return nil
		}
		return storageErr("restore verification token", err)
	}
	return nil
}
