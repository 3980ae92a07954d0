package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDB key constants for the single-table design.
const (
	pkPrefix  = "USER#"
	skProfile = "PROFILE"
	skStory   = "STORY#"
	skCredit  = "CREDIT#"
)

// DynamoStore implements StoryStore and UserStore using AWS DynamoDB.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
	now       func() time.Time
}

// Compile-time interface checks.
var (
	_ StoryStore = (*DynamoStore)(nil)
	_ UserStore  = (*DynamoStore)(nil)
)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		now:       time.Now,
	}
}

// TableName returns the backing table.
func (s *DynamoStore) TableName() string { return s.tableName }

// --- Internal helpers ---

func userPK(userID string) string {
	return pkPrefix + userID
}

func storySK(storyID string) string {
	return skStory + storyID
}

func (s *DynamoStore) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

func itemKey(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// putItem marshals a domain object and writes it to DynamoDB with PK and SK.
// The domain object should use dynamodbav:"-" for fields derived from PK/SK.
func (s *DynamoStore) putItem(ctx context.Context, pk, sk string, data interface{}) error {
	item, err := attributevalue.MarshalMap(data)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	// Key attributes overwrite any conflicting keys from the data.
	item["PK"] = &types.AttributeValueMemberS{Value: pk}
	item["SK"] = &types.AttributeValueMemberS{Value: sk}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.tableName,
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("PutItem PK=%s SK=%s: %w", pk, sk, err)
	}
	return nil
}

// getItem reads a single item from DynamoDB and unmarshals it into out.
// Returns false if the item does not exist (out is not modified).
func (s *DynamoStore) getItem(ctx context.Context, pk, sk string, out interface{}) (bool, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key:       itemKey(pk, sk),
	})
	if err != nil {
		return false, fmt.Errorf("GetItem PK=%s SK=%s: %w", pk, sk, err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("unmarshal PK=%s SK=%s: %w", pk, sk, err)
	}
	return true, nil
}

// updateItem runs UpdateItem and reports a failed condition as ok=false.
func (s *DynamoStore) updateItem(ctx context.Context, in *dynamodb.UpdateItemInput) (out *dynamodb.UpdateItemOutput, ok bool, err error) {
	in.TableName = &s.tableName
	out, err = s.client.UpdateItem(ctx, in)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return out, true, nil
}
