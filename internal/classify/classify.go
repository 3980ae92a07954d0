// Package classify maps provider SDK and HTTP failures onto story error kinds.
package classify

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/replicate/replicate-go"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/fpang/storyfairy/internal/story"
)

// Error wraps a provider failure in a *story.ProviderError with a kind
// derived from the SDK error type, the HTTP status, or the message text.
func Error(provider string, err error) error {
	if err == nil {
		return nil
	}
	var existing *story.ProviderError
	if errors.As(err, &existing) {
		return err
	}
	return &story.ProviderError{Provider: provider, Kind: Kind(err), Err: err}
}

// Kind classifies err without wrapping it.
func Kind(err error) story.ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return story.KindNetwork
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return ForStatus(apiErr.Code)
	}

	var oaiErr *openai.APIError
	if errors.As(err, &oaiErr) {
		return ForStatus(oaiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return ForStatus(reqErr.HTTPStatusCode)
	}

	var r8Err *replicate.APIError
	if errors.As(err, &r8Err) {
		return ForStatus(r8Err.Status)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return story.KindNetwork
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key not valid") ||
		strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "permission denied"):
		return story.KindAuth
	case strings.Contains(msg, "quota") ||
		strings.Contains(msg, "resource exhausted") ||
		strings.Contains(msg, "rate limit"):
		return story.KindQuota
	case strings.Contains(msg, "connection") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "unreachable"):
		return story.KindNetwork
	default:
		return story.KindUnknown
	}
}

// ForStatus maps an HTTP status code to an error kind.
func ForStatus(code int) story.ErrorKind {
	switch {
	case code == 401 || code == 403:
		return story.KindAuth
	case code == 429:
		return story.KindQuota
	case code == 400 || code == 404 || code == 422:
		return story.KindBadRequest
	case code >= 500:
		return story.KindNetwork
	default:
		return story.KindUnknown
	}
}
