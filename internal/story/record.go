package story

// StoryRecord is a saved story owned by a user. Images is the ordered image
// list; the regeneration path patches one entry in place.
type StoryRecord struct {
	ID                string                `json:"id" dynamodbav:"-"`
	UserID            string                `json:"userId" dynamodbav:"-"`
	Title             string                `json:"title" dynamodbav:"title"`
	StoryText         string                `json:"storyText" dynamodbav:"storyText"`
	DetailedStoryText string                `json:"detailedStoryText" dynamodbav:"detailedStoryText"`
	CreatedAt         string                `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt         string                `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
	Metadata          map[string]string     `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
	Images            []StoryImage          `json:"images" dynamodbav:"images"`
	CoverImages       map[string]CoverImage `json:"coverImages,omitempty" dynamodbav:"coverImages,omitempty"`
}

// StoryImage is one entry of a StoryRecord's image list.
type StoryImage struct {
	ImageURL string `json:"imageUrl" dynamodbav:"imageUrl"`
	Prompt   string `json:"prompt" dynamodbav:"prompt"`
}

// CoverImage is a front or back cover illustration.
type CoverImage struct {
	URL    string `json:"url" dynamodbav:"url"`
	Prompt string `json:"prompt,omitempty" dynamodbav:"prompt,omitempty"`
}

// Subscription status values stored on a User.
const (
	SubscriptionActive    = "active"
	SubscriptionInactive  = "inactive"
	SubscriptionCancelled = "cancelled"
)

// User is the account record consulted by the subscription gate and
// updated by billing events.
type User struct {
	ID                    string `json:"id" dynamodbav:"-"`
	Email                 string `json:"email,omitempty" dynamodbav:"email,omitempty"`
	Credits               int    `json:"credits" dynamodbav:"credits"`
	SubscriptionStatus    string `json:"subscriptionStatus" dynamodbav:"subscriptionStatus"`
	SubscriptionStartDate string `json:"subscriptionStartDate,omitempty" dynamodbav:"subscriptionStartDate,omitempty"`
	SubscriptionEndDate   string `json:"subscriptionEndDate,omitempty" dynamodbav:"subscriptionEndDate,omitempty"`
	StripeSubscriptionID  string `json:"stripeSubscriptionId,omitempty" dynamodbav:"stripeSubscriptionId,omitempty"`
	CreatedAt             string `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt             string `json:"updatedAt" dynamodbav:"updatedAt"`
}

// IsPremium reports whether the user has an active subscription.
func (u *User) IsPremium() bool {
	return u != nil && u.SubscriptionStatus == SubscriptionActive
}

// Credit transaction types.
const (
	CreditPurchase  = "PURCHASE"
	CreditDeduction = "DEDUCTION"
	CreditRefund    = "REFUND"
)

// CreditTransaction is an append-only ledger entry for a credit change.
type CreditTransaction struct {
	ID          string `json:"id" dynamodbav:"-"`
	UserID      string `json:"userId" dynamodbav:"-"`
	Amount      int    `json:"amount" dynamodbav:"amount"`
	Type        string `json:"type" dynamodbav:"type"`
	Description string `json:"description" dynamodbav:"description"`
	Reference   string `json:"reference,omitempty" dynamodbav:"reference,omitempty"`
	CreatedAt   string `json:"createdAt" dynamodbav:"createdAt"`
}
