package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fpang/storyfairy/internal/story"
)

// MemoryStore implements StoryStore and UserStore in process memory. It
// backs the local serve command and tests.
type MemoryStore struct {
	mu      sync.Mutex
	stories map[string]story.StoryRecord
	users   map[string]story.User
	ledger  []story.CreditTransaction
}

var (
	_ StoryStore = (*MemoryStore)(nil)
	_ UserStore  = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stories: make(map[string]story.StoryRecord),
		users:   make(map[string]story.User),
	}
}

func now() string { return time.Now().UTC().Format(time.RFC3339) }

func cloneRecord(rec story.StoryRecord) story.StoryRecord {
	rec.Images = append([]story.StoryImage(nil), rec.Images...)
	return rec
}

func (m *MemoryStore) GetStory(_ context.Context, userID, storyID string) (*story.StoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.stories[userPK(userID)+storySK(storyID)]
	if !ok {
		return nil, nil
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (m *MemoryStore) PutStory(_ context.Context, rec *story.StoryRecord) error {
	if rec.CreatedAt == "" {
		rec.CreatedAt = now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[userPK(rec.UserID)+storySK(rec.ID)] = cloneRecord(*rec)
	return nil
}

func (m *MemoryStore) UpdateStoryImage(_ context.Context, userID, storyID string, index int, img story.StoryImage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := userPK(userID) + storySK(storyID)
	rec, ok := m.stories[k]
	if !ok || index < 0 || index >= len(rec.Images) {
		return fmt.Errorf("story %s image %d: %w", storyID, index, story.ErrNotFound)
	}
	rec.Images[index] = img
	rec.UpdatedAt = now()
	m.stories[k] = rec
	return nil
}

func (m *MemoryStore) GetUser(_ context.Context, userID string) (*story.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *MemoryStore) PutUser(_ context.Context, user *story.User) error {
	ts := now()
	if user.CreatedAt == "" {
		user.CreatedAt = ts
	}
	user.UpdatedAt = ts
	if user.SubscriptionStatus == "" {
		user.SubscriptionStatus = story.SubscriptionInactive
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) UpdateSubscription(_ context.Context, userID string, sub SubscriptionUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return fmt.Errorf("user %s: %w", userID, story.ErrNotFound)
	}
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&u.SubscriptionStatus, sub.Status)
	set(&u.SubscriptionStartDate, sub.StartDate)
	set(&u.SubscriptionEndDate, sub.EndDate)
	set(&u.StripeSubscriptionID, sub.StripeSubscriptionID)
	u.UpdatedAt = now()
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) SetEmailIfMissing(_ context.Context, userID, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if ok && u.Email == "" {
		u.Email = email
		m.users[userID] = u
	}
	return nil
}

func (m *MemoryStore) AddCredits(_ context.Context, tx story.CreditTransaction) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tx.UserID]
	if !ok {
		return 0, fmt.Errorf("user %s: %w", tx.UserID, story.ErrNotFound)
	}
	u.Credits += tx.Amount
	u.UpdatedAt = now()
	m.users[tx.UserID] = u

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt == "" {
		tx.CreatedAt = now()
	}
	m.ledger = append(m.ledger, tx)
	return u.Credits, nil
}

// Ledger returns the credit transactions recorded for userID, oldest first.
func (m *MemoryStore) Ledger(userID string) []story.CreditTransaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []story.CreditTransaction
	for _, tx := range m.ledger {
		if tx.UserID == userID {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}
