package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fpang/storyfairy/internal/artifact"
	"github.com/fpang/storyfairy/internal/auth"
	"github.com/fpang/storyfairy/internal/pipeline"
	"github.com/fpang/storyfairy/internal/regen"
	"github.com/fpang/storyfairy/internal/story"
)

func nowRFC3339() string { return time.Now().UTC().Format(time.RFC3339) }

type generateRequest struct {
	Topic      string `json:"topic"`
	ImageStyle string `json:"imageStyle"`
}

type generateResponse struct {
	StoryText        string                `json:"storyText"`
	StoryURL         string                `json:"storyUrl"`
	DetailedStoryURL string                `json:"detailedStoryUrl"`
	Images           []story.ImageArtifact `json:"images"`
	StoryID          string                `json:"storyId,omitempty"`
}

// GET  /api/story/generate?topic=...&imageStyle=...
// POST /api/story/generate {topic, imageStyle}
//
// Authentication is optional. When the caller is identified the story is
// also saved as a StoryRecord and its ID returned.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	req := generateRequest{
		Topic:      r.URL.Query().Get("topic"),
		ImageStyle: r.URL.Query().Get("imageStyle"),
	}
	if r.Method == http.MethodPost {
		if err := decodeJSON(r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	topic, err := story.ValidateTopic(req.Topic)
	if err != nil {
		httpError(w, http.StatusBadRequest, "topic is required and must be at most 200 characters")
		return
	}
	style := req.ImageStyle
	if style == "" {
		style = s.deps.DefaultStyle
	}

	userID := s.optionalPrincipal(r)

	res, err := s.deps.Generator.Run(r.Context(), topic, pipeline.Options{Style: style})
	if err != nil {
		if errors.Is(err, story.ErrValidation) {
			httpError(w, http.StatusBadRequest, "invalid topic")
			return
		}
		httpError(w, http.StatusInternalServerError, "failed to generate story", err.Error())
		return
	}

	resp := generateResponse{
		StoryText:        res.StoryText,
		StoryURL:         res.StoryURL,
		DetailedStoryURL: res.DetailedStoryURL,
		Images:           res.Images,
	}
	if userID != "" && s.deps.Stories != nil {
		resp.StoryID = s.saveStory(r, userID, topic, res)
	}
	respondJSON(w, http.StatusOK, resp)
}

// saveStory persists a generated story for its owner. Failures are logged
// and the generation still succeeds.
func (s *Server) saveStory(r *http.Request, userID, topic string, res *pipeline.Result) string {
	rec := &story.StoryRecord{
		ID:        s.newID(),
		UserID:    userID,
		Title:     topic,
		StoryText: res.StoryText,
		CreatedAt: s.now(),
		Metadata:  map[string]string{"runId": res.Telemetry.RunID},
		Images:    make([]story.StoryImage, len(res.Images)),
	}
	if res.Narrative != nil {
		rec.DetailedStoryText = res.Narrative.Detailed
		rec.Metadata["textProvider"] = res.Narrative.Provider
	}
	for i, img := range res.Images {
		rec.Images[i] = story.StoryImage{ImageURL: img.URL, Prompt: img.Prompt}
	}

	if err := s.deps.Stories.PutStory(r.Context(), rec); err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Failed to save generated story")
		return ""
	}
	log.Info().Str("userId", userID).Str("storyId", rec.ID).Int("images", len(rec.Images)).Msg("Story saved")
	return rec.ID
}

type regenerateRequest struct {
	Prompt            string `json:"prompt"`
	ImageStyle        string `json:"imageStyle"`
	ImageModel        string `json:"imageModel"`
	StoryID           string `json:"storyId"`
	ImageIndex        *int   `json:"imageIndex"`
	ReferenceImageURL string `json:"referenceImageUrl"`
}

// POST /api/story/regenerate-image
func (s *Server) handleRegenerateImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	if !s.requirePremium(w, r, userID) {
		return
	}
	if s.deps.Regenerator == nil {
		httpError(w, http.StatusServiceUnavailable, "image regeneration is not available")
		return
	}

	var req regenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ImageIndex == nil {
		httpError(w, http.StatusBadRequest, "imageIndex is required")
		return
	}

	url, err := s.deps.Regenerator.Regenerate(r.Context(), regen.Request{
		UserID:            userID,
		StoryID:           req.StoryID,
		Index:             *req.ImageIndex,
		Prompt:            req.Prompt,
		Style:             req.ImageStyle,
		Model:             req.ImageModel,
		ReferenceImageURL: req.ReferenceImageURL,
	})
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]string{"url": url})
	case errors.Is(err, story.ErrValidation):
		httpError(w, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, story.ErrNotFound):
		httpError(w, http.StatusNotFound, "story not found")
	default:
		httpError(w, http.StatusInternalServerError, "failed to regenerate image", err.Error())
	}
}

// validationMessage strips the sentinel prefix so the client sees only the
// field-level reason.
func validationMessage(err error) string {
	msg := err.Error()
	prefix := story.ErrValidation.Error() + ": "
	if len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return "invalid request"
}

// GET /api/story/{storyId}
func (s *Server) handleGetStory(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requirePrincipal(w, r)
	if !ok {
		return
	}
	if s.deps.Stories == nil {
		httpError(w, http.StatusServiceUnavailable, "story storage is not available")
		return
	}

	storyID := r.PathValue("storyId")
	rec, err := s.deps.Stories.GetStory(r.Context(), userID, storyID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to load story", err.Error())
		return
	}
	if rec == nil {
		httpError(w, http.StatusNotFound, "story not found")
		return
	}

	for i := range rec.Images {
		rec.Images[i].ImageURL = story.ProxyURL(rec.Images[i].ImageURL, story.ContainerImages)
	}
	for k, c := range rec.CoverImages {
		c.URL = story.ProxyURL(c.URL, story.ContainerImages)
		rec.CoverImages[k] = c
	}
	rec.ID = storyID
	rec.UserID = userID
	respondJSON(w, http.StatusOK, rec)
}

// GET /api/blob/{name}?container=...
func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	container, err := story.ParseContainer(r.URL.Query().Get("container"))
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid container")
		return
	}
	name := r.PathValue("name")
	if name == "" {
		httpError(w, http.StatusBadRequest, "blob name is required")
		return
	}

	obj, err := s.deps.Artifacts.Get(r.Context(), string(container), name)
	if errors.Is(err, artifact.ErrNotFound) {
		httpError(w, http.StatusNotFound, "blob not found")
		return
	}
	if err != nil {
		if errors.Is(err, story.ErrValidation) {
			httpError(w, http.StatusBadRequest, "invalid blob name")
			return
		}
		httpError(w, http.StatusInternalServerError, "failed to read blob", err.Error())
		return
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Data)
}

// optionalPrincipal returns the caller's user ID, or "" for anonymous
// callers. An invalid token is treated as anonymous.
func (s *Server) optionalPrincipal(r *http.Request) string {
	if s.deps.Auth == nil || auth.TokenFromRequest(r) == "" {
		return ""
	}
	userID, err := s.deps.Auth.Authenticate(r)
	if err != nil {
		log.Warn().Err(err).Msg("Ignoring invalid token on optional-auth endpoint")
		return ""
	}
	return userID
}

// requirePrincipal writes 401 and returns false when the request is not
// authenticated.
func (s *Server) requirePrincipal(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.deps.Auth == nil {
		httpError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	userID, err := s.deps.Auth.Authenticate(r)
	if err != nil {
		log.Debug().Err(err).Str("path", r.URL.Path).Msg("Unauthenticated request")
		httpError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}

// requirePremium writes 403 and returns false unless the user is entitled
// to premium features.
func (s *Server) requirePremium(w http.ResponseWriter, r *http.Request, userID string) bool {
	if s.deps.Gate == nil {
		httpError(w, http.StatusForbidden, "premium subscription required")
		return false
	}
	ok, err := s.deps.Gate.Entitled(r.Context(), userID)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "failed to check subscription", err.Error())
		return false
	}
	if !ok {
		httpError(w, http.StatusForbidden, "premium subscription required")
		return false
	}
	return true
}
