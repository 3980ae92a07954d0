package httpapi

import (
	"errors"
	"net/http"

	"github.com/fpang/storyfairy/internal/billing"
)

// Subscription tiers reported to the web client.
const (
	TierPremium = "PREMIUM"
	TierFree    = "FREE"
)

type subscriptionResponse struct {
	Tier         string `json:"tier"`
	IsSubscribed bool   `json:"isSubscribed"`
}

// GET /api/subscription
func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	if s.deps.Users == nil {
		httpError(w, http.StatusServiceUnavailable, "user storage is not available")
		return
	}

	u, err := s.deps.Users.GetUser(r.Context(), userID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load user", err.Error())
		return
	}
	if u == nil {
		httpError(w, http.StatusNotFound, "user not found")
		return
	}

	resp := subscriptionResponse{Tier: TierFree}
	if u.IsPremium() {
		resp = subscriptionResponse{Tier: TierPremium, IsSubscribed: true}
	}
	respondJSON(w, http.StatusOK, resp)
}

type subscribeRequest struct {
	PriceID string `json:"priceId"`
}

// POST /api/subscribe {priceId}
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	if s.deps.Checkout == nil {
		httpError(w, http.StatusServiceUnavailable, "billing is not configured")
		return
	}

	var req subscribeRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := s.deps.Checkout.SubscriptionCheckout(r.Context(), userID, req.PriceID)
	if errors.Is(err, billing.ErrPriceRequired) {
		httpError(w, http.StatusBadRequest, "priceId is required")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to create checkout session", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"sessionUrl": session.URL})
}
