package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/replicate/replicate-go"

	"github.com/fpang/storyfairy/internal/story"
)

func newTestClient(t *testing.T, srv *httptest.Server) *ReplicateClient {
	t.Helper()
	c, err := NewReplicateClient("r8_test", replicate.WithBaseURL(srv.URL))
	if err != nil {
		t.Fatal(err)
	}
	return c.WithPolling(time.Millisecond, 3)
}

func TestFluxSchnell_ImmediateResult(t *testing.T) {
	var gotInput map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/black-forest-labs/flux-schnell/predictions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer r8_test" {
			t.Errorf("unexpected headers: %v", r.Header)
		}
		var body struct {
			Input map[string]any `json:"input"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		gotInput = body.Input
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p1","status":"succeeded","output":["https://cdn.example/p1.webp"]}`))
	}))
	defer srv.Close()

	res, err := FluxSchnell(newTestClient(t, srv)).Generate(context.Background(), Request{Prompt: "a dragon"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SourceURL != "https://cdn.example/p1.webp" || res.Provider != ProviderFluxSchnell {
		t.Errorf("unexpected result: %+v", res)
	}
	if gotInput["prompt"] != "a dragon" || gotInput["aspect_ratio"] != "1:1" || gotInput["num_inference_steps"] != float64(4) {
		t.Errorf("unexpected input: %v", gotInput)
	}
}

func TestStableDiffusion3_PollsUntilDone(t *testing.T) {
	var polls atomic.Int32
	var gotImage any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if r.URL.Path != "/models/stability-ai/stable-diffusion-3/predictions" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			var body struct {
				Input map[string]any `json:"input"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			gotImage = body.Input["image"]
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"id":"p2","status":"starting"}`))
		case http.MethodGet:
			if r.URL.Path != "/predictions/p2" {
				t.Errorf("unexpected poll path %s", r.URL.Path)
			}
			if polls.Add(1) < 2 {
				w.Write([]byte(`{"id":"p2","status":"processing"}`))
				return
			}
			w.Write([]byte(`{"id":"p2","status":"succeeded","output":"https://cdn.example/p2.png"}`))
		}
	}))
	defer srv.Close()

	req := Request{Prompt: "a castle", ReferenceImageURL: "https://example.com/ref.png"}
	res, err := StableDiffusion3(newTestClient(t, srv)).Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SourceURL != "https://cdn.example/p2.png" {
		t.Errorf("SourceURL = %q", res.SourceURL)
	}
	if polls.Load() != 2 {
		t.Errorf("polls = %d, want 2", polls.Load())
	}
	if gotImage != "https://example.com/ref.png" {
		t.Errorf("reference image not passed: %v", gotImage)
	}
}

func TestReplicate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind story.ErrorKind
	}{
		{"bad token", http.StatusUnauthorized, `{"title":"Unauthenticated","detail":"invalid token","status":401}`, story.KindAuth},
		{"bad input", http.StatusUnprocessableEntity, `{"title":"Invalid input","detail":"prompt is required","status":422}`, story.KindBadRequest},
		{"prediction failed", http.StatusCreated, `{"id":"p3","status":"failed","error":"NSFW"}`, story.KindUnknown},
		{"no output", http.StatusCreated, `{"id":"p4","status":"succeeded","output":[]}`, story.KindEmpty},
		{"never finishes", http.StatusCreated, `{"id":"p5","status":"processing"}`, story.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := FluxSchnell(newTestClient(t, srv)).Generate(context.Background(), Request{Prompt: "x"})
			var pe *story.ProviderError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ProviderError, got %v", err)
			}
			if pe.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q (err %v)", pe.Kind, tt.wantKind, err)
			}
		})
	}
}
