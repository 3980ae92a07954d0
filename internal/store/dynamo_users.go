package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/story"
)

func (s *DynamoStore) GetUser(ctx context.Context, userID string) (*story.User, error) {
	var u story.User
	found, err := s.getItem(ctx, userPK(userID), skProfile, &u)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	u.ID = userID
	return &u, nil
}

func (s *DynamoStore) PutUser(ctx context.Context, user *story.User) error {
	now := s.timestamp()
	if user.CreatedAt == "" {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = story.SubscriptionInactive
	}
	return s.putItem(ctx, userPK(user.ID), skProfile, user)
}

// subscriptionUpdateInput builds a SET expression over the non-empty fields
// of sub.
func subscriptionUpdateInput(pk string, sub SubscriptionUpdate, now string) *dynamodb.UpdateItemInput {
	sets := []string{"updatedAt = :now"}
	values := map[string]types.AttributeValue{
		":now": &types.AttributeValueMemberS{Value: now},
	}
	add := func(attr, placeholder, v string) {
		if v == "" {
			return
		}
		sets = append(sets, attr+" = "+placeholder)
		values[placeholder] = &types.AttributeValueMemberS{Value: v}
	}
	add("subscriptionStatus", ":status", sub.Status)
	add("subscriptionStartDate", ":start", sub.StartDate)
	add("subscriptionEndDate", ":end", sub.EndDate)
	add("stripeSubscriptionId", ":subId", sub.StripeSubscriptionID)

	return &dynamodb.UpdateItemInput{
		Key:                       itemKey(pk, skProfile),
		UpdateExpression:          aws.String("SET " + strings.Join(sets, ", ")),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: values,
	}
}

func (s *DynamoStore) UpdateSubscription(ctx context.Context, userID string, sub SubscriptionUpdate) error {
	_, ok, err := s.updateItem(ctx, subscriptionUpdateInput(userPK(userID), sub, s.timestamp()))
	if err != nil {
		return fmt.Errorf("update subscription for %s: %w", userID, err)
	}
	if !ok {
		return fmt.Errorf("user %s: %w", userID, story.ErrNotFound)
	}
	log.Info().Str("userId", userID).Str("status", sub.Status).Msg("Subscription updated")
	return nil
}

func (s *DynamoStore) SetEmailIfMissing(ctx context.Context, userID, email string) error {
	_, ok, err := s.updateItem(ctx, &dynamodb.UpdateItemInput{
		Key:                 itemKey(userPK(userID), skProfile),
		UpdateExpression:    aws.String("SET email = :email, updatedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(PK) AND (attribute_not_exists(email) OR email = :empty)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
			":empty": &types.AttributeValueMemberS{Value: ""},
			":now":   &types.AttributeValueMemberS{Value: s.timestamp()},
		},
	})
	if err != nil {
		return fmt.Errorf("set email for %s: %w", userID, err)
	}
	if ok {
		log.Debug().Str("userId", userID).Msg("User email recorded")
	}
	return nil
}

func creditSK(createdAt, id string) string {
	return skCredit + createdAt + "#" + id
}

func (s *DynamoStore) AddCredits(ctx context.Context, tx story.CreditTransaction) (int, error) {
	out, ok, err := s.updateItem(ctx, &dynamodb.UpdateItemInput{
		Key:                 itemKey(userPK(tx.UserID), skProfile),
		UpdateExpression:    aws.String("ADD credits :amt SET updatedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":amt": &types.AttributeValueMemberN{Value: strconv.Itoa(tx.Amount)},
			":now": &types.AttributeValueMemberS{Value: s.timestamp()},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		return 0, fmt.Errorf("add credits for %s: %w", tx.UserID, err)
	}
	if !ok {
		return 0, fmt.Errorf("user %s: %w", tx.UserID, story.ErrNotFound)
	}

	balance := 0
	if n, isNum := out.Attributes["credits"].(*types.AttributeValueMemberN); isNum {
		balance, _ = strconv.Atoi(n.Value)
	}

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt == "" {
		tx.CreatedAt = s.timestamp()
	}
	if err := s.putItem(ctx, userPK(tx.UserID), creditSK(tx.CreatedAt, tx.ID), tx); err != nil {
		// The balance already moved; the ledger entry is best effort.
		log.Error().Err(err).Str("userId", tx.UserID).Int("amount", tx.Amount).Msg("Failed to write credit transaction")
	}

	log.Info().
		Str("userId", tx.UserID).
		Int("amount", tx.Amount).
		Str("type", tx.Type).
		Int("balance", balance).
		Msg("Credits added")
	return balance, nil
}
