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

// MemberRepo provides typed DynamoDB operations for the members table.
// PK: member_id, GSIs: email-index, uid-index. Email and uid uniqueness is
// enforced through guard items in the member_keys table (PK: guard_key).
type MemberRepo struct {
	client    API
	tableName string
	keysTable string
}

func NewMemberRepo(client API, tableName, keysTable string) *MemberRepo {
	return &MemberRepo{client: client, tableName: tableName, keysTable: keysTable}
}

// Create writes the member and its email and uid guards atomically.
// Errors: domain.ErrConflict when the uid already has a member, domain.ErrIdentifierTaken
// when member_id exists, domain.ErrEmailAlreadyRegistered when the email guard exists.
func (r *MemberRepo) Create(ctx context.Context, m *domain.Member) error {
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("marshal member: %w", err)
	}
	_, err = r.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(r.tableName),
				Item:                     item,
				ConditionExpression:      aws.String("attribute_not_exists(#m)"),
				ExpressionAttributeNames: map[string]string{"#m": fieldMemberID},
			}},
			r.guard(guardEmail+m.Email, m.MemberID),
			r.guard(guardUID+m.UID, m.MemberID),
		},
	})
	if err == nil {
		return nil
	}
	idx, ok := cancelledByCondition(err)
	if !ok || len(idx) == 0 {
		return storageErr("create member", err)
	}
	failed := map[int]bool{}
	for _, i := range idx {
		failed[i] = true
	}
	// uid first: a repeated Register for the same credential also trips the email guard.
	switch {
	case failed[2]:
		return fmt.Errorf("member uid already bound: %w", domain.ErrConflict)
	case failed[0]:
		return fmt.Errorf("member id %s: %w", m.MemberID, domain.ErrIdentifierTaken)
	default:
		return fmt.Errorf("member email: %w", domain.ErrEmailAlreadyRegistered)
	}
}

func (r *MemberRepo) guard(key, memberID string) types.TransactWriteItem {
	return types.TransactWriteItem{Put: &types.Put{
		TableName: aws.String(r.keysTable),
		Item: map[string]types.AttributeValue{
			fieldGuardKey: &types.AttributeValueMemberS{Value: key},
			fieldMemberID: &types.AttributeValueMemberS{Value: memberID},
		},
		ConditionExpression:      aws.String("attribute_not_exists(#k)"),
		ExpressionAttributeNames: map[string]string{"#k": fieldGuardKey},
	}}
}

// GetByMemberID reads the member record with a strongly consistent read.
func (r *MemberRepo) GetByMemberID(ctx context.Context, memberID string) (*domain.Member, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(fieldMemberID, memberID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storageErr("get member", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("member not found: %w", domain.ErrNotFound)
	}
	var m domain.Member
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return nil, storageErr("unmarshal member", err)
	}
	return &m, nil
}

// ExistsByMemberID reports whether a member already holds memberID.
func (r *MemberRepo) ExistsByMemberID(ctx context.Context, memberID string) (bool, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:                aws.String(r.tableName),
		Key:                      strKey(fieldMemberID, memberID),
		ProjectionExpression:     aws.String("#m"),
		ExpressionAttributeNames: map[string]string{"#m": fieldMemberID},
		ConsistentRead:           aws.Bool(true),
	})
	if err != nil {
		return false, storageErr("lookup member id", err)
	}
	return out.Item != nil, nil
}

// GetByEmail resolves the email guard, then reads the member it points at.
// Both reads are strongly consistent, so a member written by a concurrent
// Create is visible as soon as that transaction commits.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (*domain.Member, error) {
	return r.byGuard(ctx, guardEmail+email)
}

// GetByUID resolves the uid guard, then reads the member it points at.
func (r *MemberRepo) GetByUID(ctx context.Context, uid string) (*domain.Member, error) {
	return r.byGuard(ctx, guardUID+uid)
}

// Count returns the number of members, paging through a COUNT scan.
func (r *MemberRepo) Count(ctx context.Context) (int64, error) {
	var total int64
	input := &dynamodb.ScanInput{
		TableName: aws.String(r.tableName),
		Select:    types.SelectCount,
	}
	for {
		out, err := r.client.Scan(ctx, input)
		if err != nil {
			return 0, storageErr("count members", err)
		}
		total += int64(out.Count)
		if len(out.LastEvaluatedKey) == 0 {
			return total, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (r *MemberRepo) byGuard(ctx context.Context, key string) (*domain.Member, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.keysTable),
		Key:            strKey(fieldGuardKey, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, storageErr("get member key", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("member not found: %w", domain.ErrNotFound)
	}
	var g struct {
		MemberID string `dynamodbav:"member_id"`
	}
	if err := attributevalue.UnmarshalMap(out.Item, &g); err != nil {
		return nil, storageErr("unmarshal member key", err)
	}
	return r.GetByMemberID(ctx, g.MemberID)
}
