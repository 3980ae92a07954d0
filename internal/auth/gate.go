package auth

import (
	"context"
	"fmt"

	"github.com/fpang/storyfairy/internal/story"
)

// SubscriptionGate decides whether a user may use premium features.
type SubscriptionGate interface {
	Entitled(ctx context.Context, userID string) (bool, error)
}

// UserLoader is the slice of the user store the gate needs.
type UserLoader interface {
	GetUser(ctx context.Context, userID string) (*story.User, error)
}

// UserGate grants premium access to users with an active subscription.
type UserGate struct {
	users UserLoader
}

func NewUserGate(users UserLoader) *UserGate {
	return &UserGate{users: users}
}

// Entitled returns false for unknown users.
func (g *UserGate) Entitled(ctx context.Context, userID string) (bool, error) {
	u, err := g.users.GetUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load user %s: %w", userID, err)
	}
	return u.IsPremium(), nil
}
