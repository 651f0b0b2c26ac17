package editor

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/BaSui01/imageflow/types"
)

// Fixed user-facing messages. When a credential problem is detected the raw
// upstream text is never forwarded.
const (
	MsgInvalidCredential = "invalid API configuration: the configured API key was rejected"
	MsgNoImage           = "no image in model response"
	MsgUnknown           = "unknown editor error"
)

// credentialMarkers identify a rejected credential in upstream error bodies.
var credentialMarkers = []string{
	"API key not valid",
	"API_KEY_INVALID",
	"invalid api key",
	"Incorrect API key",
}

func isCredentialError(status int, body string) bool {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return true
	}
	for _, marker := range credentialMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// upstreamError converts an upstream failure into a typed error.
// Credential-shaped failures are rewritten to the fixed configuration
// message; everything else keeps the original detail.
func upstreamError(provider string, status int, body string) *types.Error {
	if isCredentialError(status, body) {
		return types.NewError(types.ErrInvalidCredential, MsgInvalidCredential).
			WithHTTPStatus(http.StatusBadGateway).
			WithProvider(provider)
	}

	msg := strings.TrimSpace(body)
	if msg == "" {
		msg = MsgUnknown
	}
	return types.NewError(types.ErrUpstreamError, fmt.Sprintf("image edit error: status=%d body=%s", status, msg)).
		WithHTTPStatus(http.StatusBadGateway).
		WithProvider(provider).
		WithRetryable(status >= 500)
}

// noImageError reports a response that carried no inline image part.
func noImageError(provider string) *types.Error {
	return types.NewError(types.ErrNoImage, MsgNoImage).
		WithHTTPStatus(http.StatusBadGateway).
		WithProvider(provider)
}

// transportError wraps a failure that happened before any response arrived.
func transportError(provider, msg string, cause error) *types.Error {
	return types.NewError(types.ErrUpstreamError, msg).
		WithCause(cause).
		WithHTTPStatus(http.StatusBadGateway).
		WithProvider(provider).
		WithRetryable(true)
}
