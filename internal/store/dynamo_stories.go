package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/story"
)

func (s *DynamoStore) GetStory(ctx context.Context, userID, storyID string) (*story.StoryRecord, error) {
	var rec story.StoryRecord
	found, err := s.getItem(ctx, userPK(userID), storySK(storyID), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	rec.ID = storyID
	rec.UserID = userID
	return &rec, nil
}

func (s *DynamoStore) PutStory(ctx context.Context, rec *story.StoryRecord) error {
	if rec.CreatedAt == "" {
		rec.CreatedAt = s.timestamp()
	}
	if rec.Images == nil {
		rec.Images = []story.StoryImage{}
	}
	if err := s.putItem(ctx, userPK(rec.UserID), storySK(rec.ID), rec); err != nil {
		return err
	}
	log.Debug().
		Str("userId", rec.UserID).
		Str("storyId", rec.ID).
		Int("images", len(rec.Images)).
		Msg("Story saved")
	return nil
}

// imageUpdateInput builds the UpdateItem call that replaces images[index]
// and nothing else.
func imageUpdateInput(pk, sk string, index int, img map[string]types.AttributeValue, now string) *dynamodb.UpdateItemInput {
	return &dynamodb.UpdateItemInput{
		Key:                 itemKey(pk, sk),
		UpdateExpression:    aws.String(fmt.Sprintf("SET images[%d] = :img, updatedAt = :now", index)),
		ConditionExpression: aws.String("attribute_exists(PK) AND size(images) > :idx"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":img": &types.AttributeValueMemberM{Value: img},
			":now": &types.AttributeValueMemberS{Value: now},
			":idx": &types.AttributeValueMemberN{Value: strconv.Itoa(index)},
		},
	}
}

func (s *DynamoStore) UpdateStoryImage(ctx context.Context, userID, storyID string, index int, img story.StoryImage) error {
	if index < 0 {
		return fmt.Errorf("%w: negative image index %d", story.ErrValidation, index)
	}
	av, err := attributevalue.MarshalMap(img)
	if err != nil {
		return fmt.Errorf("marshal image: %w", err)
	}

	_, ok, err := s.updateItem(ctx, imageUpdateInput(userPK(userID), storySK(storyID), index, av, s.timestamp()))
	if err != nil {
		return fmt.Errorf("update story %s image %d: %w", storyID, index, err)
	}
	if !ok {
		return fmt.Errorf("story %s image %d: %w", storyID, index, story.ErrNotFound)
	}

	log.Debug().Str("storyId", storyID).Int("index", index).Msg("Story image updated")
	return nil
}
