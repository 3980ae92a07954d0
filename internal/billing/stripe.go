// Package billing creates Stripe Checkout sessions for subscriptions.
//
// The secret key is loaded from SSM Parameter Store at Lambda cold start,
// or from the environment for local runs.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// Checkout session metadata keys read back by the webhook.
const (
	MetadataUserID = "user_id"
	MetadataType   = "type"
	MetadataEmail  = "email"

	TypeSubscription = "subscription"
)

// ErrPriceRequired is returned when no price ID is supplied.
var ErrPriceRequired = errors.New("price ID is required")

// Client creates Stripe Checkout sessions.
type Client struct {
	sessions *session.Client
	siteURL  string
}

// NewClient creates a Stripe client. siteURL is the public web origin the
// checkout page returns to.
func NewClient(secretKey, siteURL string) *Client {
	return NewClientWithBackend(secretKey, siteURL, stripe.GetBackend(stripe.APIBackend))
}

// NewClientWithBackend creates a Stripe client that sends requests through
// backend.
func NewClientWithBackend(secretKey, siteURL string, backend stripe.Backend) *Client {
	return &Client{
		sessions: &session.Client{B: backend, Key: secretKey},
		siteURL:  strings.TrimRight(siteURL, "/"),
	}
}

// Session is a created checkout session.
type Session struct {
	ID  string
	URL string
}

// SubscriptionCheckout starts a subscription checkout for userID.
func (c *Client) SubscriptionCheckout(ctx context.Context, userID, priceID string) (*Session, error) {
	if priceID == "" {
		return nil, ErrPriceRequired
	}
	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		SuccessURL:        stripe.String(c.siteURL + "/payment-status?status=success&session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:         stripe.String(c.siteURL + "/payment-status?status=cancelled"),
		ClientReferenceID: stripe.String(userID),
	}
	params.Context = ctx
	params.AddMetadata(MetadataUserID, userID)
	params.AddMetadata(MetadataType, TypeSubscription)

	start := time.Now()
	s, err := c.sessions.New(params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) {
			log.Error().
				Str("errorMessage", se.Msg).
				Str("errorType", string(se.Type)).
				Str("errorCode", string(se.Code)).
				Int("statusCode", se.HTTPStatusCode).
				Msg("Stripe API error")
			return nil, fmt.Errorf("create checkout session: %s (type: %s, status: %d)", se.Msg, se.Type, se.HTTPStatusCode)
		}
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	if s.URL == "" {
		return nil, fmt.Errorf("create checkout session: no session URL returned for %s", s.ID)
	}

	log.Info().Str("sessionId", s.ID).Str("userId", userID).Dur("duration", time.Since(start)).Msg("Checkout session created")
	return &Session{ID: s.ID, URL: s.URL}, nil
}
