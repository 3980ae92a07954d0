// Package webhook handles Stripe webhook events that change a user's
// subscription or credit balance.
//
// Events are verified against the Stripe-Signature header with the
// endpoint's signing secret and a timestamp tolerance, then
// checkout.session.completed and customer.subscription.deleted events are
// applied. Bookkeeping failures are logged and still acknowledged with 200
// so Stripe does not retry an event that was partially applied.
package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	stripewebhook "github.com/stripe/stripe-go/v76/webhook"

	"github.com/fpang/storyfairy/internal/billing"
	"github.com/fpang/storyfairy/internal/metrics"
	"github.com/fpang/storyfairy/internal/story"
	"github.com/fpang/storyfairy/internal/store"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20 // 1 MB

// SignatureHeader carries the Stripe event signature.
const SignatureHeader = "Stripe-Signature"

// DefaultTolerance is how old a signed timestamp may be.
const DefaultTolerance = stripewebhook.DefaultTolerance

// SubscriptionPeriod is how long a new subscription stays active.
const SubscriptionPeriod = 30 * 24 * time.Hour

// SubscriptionCredits are granted when a subscription checkout completes.
const SubscriptionCredits = 200

// creditPackages maps a one-off payment in cents to the credits it buys.
var creditPackages = map[int64]int{
	199: 10,
	399: 25,
	799: 60,
}

// CreditsForAmount returns the credits bought by a payment of cents, or 0
// when the amount matches no package.
func CreditsForAmount(cents int64) int {
	return creditPackages[cents]
}

// Accounts is the slice of the user store the webhook updates.
type Accounts interface {
	UpdateSubscription(ctx context.Context, userID string, sub store.SubscriptionUpdate) error
	SetEmailIfMissing(ctx context.Context, userID, email string) error
	AddCredits(ctx context.Context, tx story.CreditTransaction) (int, error)
}

// Handler handles Stripe webhook events.
type Handler struct {
	secret    string
	accounts  Accounts
	tolerance time.Duration
	now       func() time.Time
}

// NewHandler creates a webhook handler. secret is the endpoint's signing
// secret (whsec_...).
func NewHandler(secret string, accounts Accounts) *Handler {
	return &Handler{
		secret:    secret,
		accounts:  accounts,
		tolerance: DefaultTolerance,
		now:       time.Now,
	}
}

// --- Event object types ---

type checkoutSession struct {
	ID            string            `json:"id"`
	AmountTotal   int64             `json:"amount_total"`
	PaymentIntent string            `json:"payment_intent"`
	Subscription  string            `json:"subscription"`
	Metadata      map[string]string `json:"metadata"`
}

type subscription struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
}

// ServeHTTP accepts POSTed events.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	status := h.handleEvent(w, r)
	metrics.RecordRequest("stripe-webhook", r.Method, status, time.Since(start))
}

func (h *Handler) handleEvent(w http.ResponseWriter, r *http.Request) int {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		log.Error().Err(err).Msg("Webhook event: failed to read body")
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return http.StatusBadRequest
	}
	defer r.Body.Close()

	evt, err := stripewebhook.ConstructEventWithOptions(body, r.Header.Get(SignatureHeader), h.secret,
		stripewebhook.ConstructEventOptions{
			Tolerance:                h.tolerance,
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		log.Warn().Err(err).Msg("Webhook event: invalid signature or payload")
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return http.StatusBadRequest
	}
	if evt.Data == nil {
		log.Warn().Str("eventId", evt.ID).Msg("Webhook event: no data")
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return http.StatusBadRequest
	}

	log.Info().Str("eventId", evt.ID).Str("type", string(evt.Type)).Msg("Webhook event received")

	status := http.StatusOK
	switch evt.Type {
	case "checkout.session.completed":
		status = h.checkoutCompleted(r.Context(), evt)
	case "customer.subscription.deleted":
		status = h.subscriptionDeleted(r.Context(), evt)
	default:
		log.Debug().Str("type", string(evt.Type)).Msg("Webhook event ignored")
	}

	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return status
	}
	w.WriteHeader(http.StatusOK)
	return status
}

func (h *Handler) checkoutCompleted(ctx context.Context, evt stripe.Event) int {
	var s checkoutSession
	if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
		log.Warn().Err(err).Str("eventId", evt.ID).Msg("Checkout session: invalid object")
		return http.StatusBadRequest
	}
	userID := s.Metadata[billing.MetadataUserID]
	if userID == "" {
		log.Error().Str("sessionId", s.ID).Msg("No user_id in session metadata")
		return http.StatusBadRequest
	}

	if email := s.Metadata[billing.MetadataEmail]; email != "" {
		if err := h.accounts.SetEmailIfMissing(ctx, userID, email); err != nil {
			log.Error().Err(err).Str("userId", userID).Msg("Failed to record user email")
		}
	}

	if s.Metadata[billing.MetadataType] == billing.TypeSubscription {
		start := h.now().UTC()
		err := h.accounts.UpdateSubscription(ctx, userID, store.SubscriptionUpdate{
			Status:               story.SubscriptionActive,
			StartDate:            start.Format(time.RFC3339),
			EndDate:              start.Add(SubscriptionPeriod).Format(time.RFC3339),
			StripeSubscriptionID: s.Subscription,
		})
		if err != nil {
			log.Error().Err(err).Str("userId", userID).Msg("Failed to activate subscription")
		}
		h.addCredits(ctx, userID, SubscriptionCredits, fmt.Sprintf("Subscription purchase - %d credits", SubscriptionCredits), s)
		return http.StatusOK
	}

	credits := CreditsForAmount(s.AmountTotal)
	if credits == 0 {
		log.Error().Int64("amountTotal", s.AmountTotal).Str("userId", userID).Msg("Payment amount matches no credit package")
		return http.StatusOK
	}
	h.addCredits(ctx, userID, credits, fmt.Sprintf("Credit purchase - $%d.%02d", s.AmountTotal/100, s.AmountTotal%100), s)
	return http.StatusOK
}

func (h *Handler) addCredits(ctx context.Context, userID string, amount int, desc string, s checkoutSession) {
	ref := s.PaymentIntent
	if ref == "" {
		ref = s.ID
	}
	balance, err := h.accounts.AddCredits(ctx, story.CreditTransaction{
		UserID:      userID,
		Amount:      amount,
		Type:        story.CreditPurchase,
		Description: desc,
		Reference:   ref,
	})
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Int("amount", amount).Msg("Failed to add credits")
		return
	}
	log.Info().Str("userId", userID).Int("amount", amount).Int("balance", balance).Msg("Credits added")
}

func (h *Handler) subscriptionDeleted(ctx context.Context, evt stripe.Event) int {
	var sub subscription
	if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
		log.Warn().Err(err).Str("eventId", evt.ID).Msg("Subscription: invalid object")
		return http.StatusBadRequest
	}
	if sub.Customer == "" {
		log.Error().Str("subscriptionId", sub.ID).Msg("No customer in subscription cancellation event")
		return http.StatusBadRequest
	}

	err := h.accounts.UpdateSubscription(ctx, sub.Customer, store.SubscriptionUpdate{
		Status:  story.SubscriptionCancelled,
		EndDate: h.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.Error().Err(err).Str("userId", sub.Customer).Msg("Failed to cancel subscription")
	}
	return http.StatusOK
}
