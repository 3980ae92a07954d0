package imagegen

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxImageBytes caps a single downloaded image.
const maxImageBytes = 20 << 20

// Fetcher downloads provider-hosted images.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher is a Fetcher over plain HTTP GET.
type HTTPFetcher struct {
	client *http.Client
}

// NewHTTPFetcher creates a fetcher with a 60 second timeout.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{Timeout: 60 * time.Second}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("image download returned no data")
	}
	return data, nil
}

// Materialize returns the bytes of a generated image, downloading them when
// the provider only returned a URL.
func Materialize(ctx context.Context, f Fetcher, res *Result) ([]byte, error) {
	if len(res.Data) > 0 {
		return res.Data, nil
	}
	if res.SourceURL == "" {
		return nil, errNoOutput
	}
	return f.Fetch(ctx, res.SourceURL)
}
