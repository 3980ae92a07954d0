// Package httpapi serves the StoryFairy HTTP API.
//
// Endpoints:
//
//	GET  /api/health                  health check
//	GET  /api/story/generate          generate a story (?topic=...)
//	POST /api/story/generate          generate a story ({topic, imageStyle})
//	POST /api/story/regenerate-image  redraw one image of a saved story (premium)
//	GET  /api/story/{storyId}         saved story with proxied image URLs
//	GET  /api/blob/{name}             stored artifact bytes (?container=...)
//	GET  /api/subscription            subscription tier of the caller
//	POST /api/subscribe               start a Stripe subscription checkout
package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"

	"github.com/fpang/storyfairy/internal/artifact"
	"github.com/fpang/storyfairy/internal/auth"
	"github.com/fpang/storyfairy/internal/billing"
	"github.com/fpang/storyfairy/internal/pipeline"
	"github.com/fpang/storyfairy/internal/regen"
	"github.com/fpang/storyfairy/internal/story"
	"github.com/fpang/storyfairy/internal/store"
)

// ServiceName is reported by the health endpoint.
const ServiceName = "storyfairy"

// Generator runs the story pipeline.
type Generator interface {
	Run(ctx context.Context, topic string, opts pipeline.Options) (*pipeline.Result, error)
}

// Regenerator redraws one image of a saved story.
type Regenerator interface {
	Regenerate(ctx context.Context, req regen.Request) (string, error)
}

// Checkout starts a Stripe subscription checkout.
type Checkout interface {
	SubscriptionCheckout(ctx context.Context, userID, priceID string) (*billing.Session, error)
}

// Deps are the collaborators of a Server. Only Generator and Artifacts are
// required; endpoints whose collaborator is nil answer 401 or 503.
type Deps struct {
	Generator    Generator
	Regenerator  Regenerator
	Artifacts    artifact.Store
	Stories      store.StoryStore
	Users        auth.UserLoader
	Auth         auth.Authenticator
	Gate         auth.SubscriptionGate
	Checkout     Checkout
	OriginVerify string
	DefaultStyle string
}

// Server routes API requests to the pipeline, stores and billing.
type Server struct {
	deps  Deps
	newID func() string
	now   func() string
}

// New creates a Server.
func New(deps Deps) *Server {
	if deps.DefaultStyle == "" {
		deps.DefaultStyle = story.DefaultStyle
	}
	return &Server{
		deps:  deps,
		newID: uuid.NewString,
		now:   nowRFC3339,
	}
}

// Handler returns the routed handler wrapped in metrics, origin
// verification and gzip compression.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/story/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/story/generate", s.handleGenerate)
	mux.HandleFunc("POST /api/story/regenerate-image", s.handleRegenerateImage)
	mux.HandleFunc("GET /api/story/{storyId}", s.handleGetStory)
	mux.HandleFunc("GET /api/blob/{name}", s.handleBlob)
	mux.HandleFunc("GET /api/subscription", s.handleSubscription)
	mux.HandleFunc("POST /api/subscribe", s.handleSubscribe)

	return withMetrics(withOriginVerify(s.deps.OriginVerify, gzhttp.GzipHandler(mux)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": ServiceName,
	})
}
