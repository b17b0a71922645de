// Package httpclient provides the HTTP transport used for package index
// fetches. Redirect following is disabled at the transport level; callers
// inspect redirect responses themselves before deciding to follow them.
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/librarian-dev/librarian/internal/versions"
)

const (
	// DefaultTimeout is used when no timeout is given to NewDefaultClient.
	DefaultTimeout = 30 * time.Second

	// maxBodySize caps the size of a package archive response.
	maxBodySize = 256 * 1024 * 1024
)

// Response is the outcome of a single HTTP exchange. Redirects are never
// followed by the client, so a 3xx status arrives here with its Location
// header intact for the caller to vet.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string

	// Location is the redirect target from the Location header, empty for
	// non-redirect responses.
	Location string
}

// IsRedirect reports whether the response is an HTTP redirect.
func (r *Response) IsRedirect() bool {
	return r.StatusCode >= http.StatusMultipleChoices && r.StatusCode < http.StatusBadRequest
}

// IsSuccess reports whether the response has a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Client performs single HTTP exchanges without following redirects.
type Client interface {
	// Get issues a GET request and returns the raw exchange result. An
	// error is returned only for request construction or transport
	// failures; HTTP-level failures are reported through the Response.
	Get(ctx context.Context, url string) (*Response, error)
}

// defaultClient implements Client on top of net/http.
type defaultClient struct {
	client *http.Client
}

// NewDefaultClient creates a Client with the given timeout. A zero timeout
// selects DefaultTimeout.
func NewDefaultClient(timeout time.Duration) Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &defaultClient{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				// Never follow redirects inside the transport; the
				// fetcher validates the target first.
				return http.ErrUseLastResponse
			},
		},
	}
}

// Get issues a GET request and returns the raw exchange result.
func (c *defaultClient) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", "librarian/"+versions.Version)
	req.Header.Set("X-Request-Provider", "librarian-v"+versions.Version)
	req.Header.Set("Accept", "application/gzip, application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode:  resp.StatusCode,
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Location:    resp.Header.Get("Location"),
	}, nil
}
