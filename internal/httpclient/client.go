package httpclient

import (
	"net/http"
	"time"
)

// NewDefaultHTTPClient creates a simple HTTP client with a timeout
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// NewBearerHTTPClient creates an HTTP client that attaches a bearer token to
// every request. Used for the managed vector and search backends.
func NewBearerHTTPClient(timeout time.Duration, apiKey string) *http.Client {
	if apiKey == "" {
		return NewDefaultHTTPClient(timeout)
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &bearerTransport{
			apiKey: apiKey,
			next:   http.DefaultTransport,
		},
	}
}

type bearerTransport struct {
	apiKey string
	next   http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone before mutating; RoundTrippers must not modify the caller's request
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.apiKey)
	return t.next.RoundTrip(clone)
}
