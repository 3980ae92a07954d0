package artifact

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/fpang/storyfairy/internal/story"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	url, err := s.Put(ctx, []byte("Once upon a time."), "text/plain", string(story.ContainerStories), "dragon-1234abcd.txt")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if key, _ := story.KeyFromURL(url); key != "dragon-1234abcd.txt" {
		t.Errorf("URL %q does not end in the key", url)
	}

	obj, err := s.Get(ctx, string(story.ContainerStories), "dragon-1234abcd.txt")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(obj.Data) != "Once upon a time." || !strings.HasPrefix(obj.ContentType, "text/plain") {
		t.Errorf("unexpected object: %q %q", obj.Data, obj.ContentType)
	}

	if _, err := s.Get(ctx, string(story.ContainerImages), "dragon-1234abcd.txt"); !errors.Is(err, ErrNotFound) {
		t.Errorf("containers must be separate, got %v", err)
	}
	if _, err := s.Put(ctx, []byte("x"), "text/plain", "other-container", "k"); !errors.Is(err, story.ErrValidation) {
		t.Errorf("unknown container should fail validation, got %v", err)
	}

	again, err := s.Put(ctx, []byte("Overwritten."), "text/plain", string(story.ContainerStories), "dragon-1234abcd.txt")
	if err != nil || again != url {
		t.Errorf("overwrite should keep the URL: %q vs %q (%v)", again, url, err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	exerciseStore(t, s)
	if s.Puts() != 2 || s.Len() != 1 {
		t.Errorf("Puts=%d Len=%d", s.Puts(), s.Len())
	}
}

func TestDirStore(t *testing.T) {
	s := NewDirStore(t.TempDir())
	exerciseStore(t, s)

	if _, err := s.Put(context.Background(), []byte("x"), "", "", "../escape.png"); !errors.Is(err, story.ErrValidation) {
		t.Errorf("path traversal should be rejected, got %v", err)
	}
}

func TestS3Store(t *testing.T) {
	objects := map[string][]byte{}
	ctypes := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			objects[r.URL.Path] = body
			ctypes[r.URL.Path] = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			data, ok := objects[r.URL.Path]
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
				return
			}
			w.Header().Set("Content-Type", ctypes[r.URL.Path])
			w.Write(data)
		}
	}))
	defer srv.Close()

	client := s3.New(s3.Options{
		Region:       "us-east-1",
		BaseEndpoint: aws.String(srv.URL),
		UsePathStyle: true,
		Credentials:  aws.AnonymousCredentials{},

		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	})
	s := NewS3Store(client, "us-east-1", map[story.Container]string{
		story.ContainerStories: "stories-bucket",
		story.ContainerImages:  "images-bucket",
	})
	exerciseStore(t, s)

	if _, ok := objects["/stories-bucket/dragon-1234abcd.txt"]; !ok {
		t.Errorf("object not written to the stories bucket: %v", objects)
	}
	if got := s.URL(story.ContainerImages, "a-image1.png"); got != "https://images-bucket.s3.us-east-1.amazonaws.com/a-image1.png" {
		t.Errorf("URL = %q", got)
	}
	s.WithPublicBase(story.ContainerImages, "https://cdn.example.com/")
	if got := s.URL(story.ContainerImages, "a-image1.png"); got != "https://cdn.example.com/a-image1.png" {
		t.Errorf("URL with public base = %q", got)
	}
}
