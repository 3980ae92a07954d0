// Package store persists saved stories and user accounts.
//
// The package uses a single-table DynamoDB design where all records for a
// user share a partition key (USER#{userId}). Sort keys distinguish record
// types: PROFILE for the account, STORY#{storyId} for saved stories and
// CREDIT#{timestamp}#{id} for the credit ledger.
//
// All Get methods return (nil, nil) when the requested record does not exist.
// All Put methods perform full-item replacement (upsert semantics).
package store

import (
	"context"

	"github.com/fpang/storyfairy/internal/story"
)

// StoryStore persists StoryRecords.
type StoryStore interface {
	// GetStory retrieves a story owned by userID. Returns nil, nil if not found.
	GetStory(ctx context.Context, userID, storyID string) (*story.StoryRecord, error)

	// PutStory creates or replaces a story.
	PutStory(ctx context.Context, rec *story.StoryRecord) error

	// UpdateStoryImage replaces the single image entry at index. Other
	// entries are not written. Returns story.ErrNotFound when the story or
	// the index no longer exists.
	UpdateStoryImage(ctx context.Context, userID, storyID string, index int, img story.StoryImage) error
}

// UserStore persists user accounts and their credit ledger.
type UserStore interface {
	// GetUser retrieves a user. Returns nil, nil if not found.
	GetUser(ctx context.Context, userID string) (*story.User, error)

	// PutUser creates or replaces a user.
	PutUser(ctx context.Context, user *story.User) error

	// UpdateSubscription sets the subscription fields of an existing user.
	// Empty strings leave the corresponding field unchanged.
	UpdateSubscription(ctx context.Context, userID string, sub SubscriptionUpdate) error

	// SetEmailIfMissing records email on a user that has none yet.
	SetEmailIfMissing(ctx context.Context, userID, email string) error

	// AddCredits atomically adjusts the user's balance, appends a ledger
	// entry and returns the new balance.
	AddCredits(ctx context.Context, tx story.CreditTransaction) (int, error)
}

// SubscriptionUpdate is the set of subscription fields changed by a
// billing event.
type SubscriptionUpdate struct {
	Status               string
	StartDate            string
	EndDate              string
	StripeSubscriptionID string
}
