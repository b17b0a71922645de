package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarian-dev/librarian/internal/httpclient"
)

// newTestServer creates an httptest server with keep-alives disabled so
// connections do not linger between parallel tests.
func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)
	server.Config.SetKeepAlivesEnabled(false)
	t.Cleanup(server.Close)
	return server
}

func TestGet_Success(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/gzip")
		_, _ = w.Write([]byte("archive-bytes"))
	})

	client := httpclient.NewDefaultClient(5 * time.Second)
	resp, err := client.Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
	assert.False(t, resp.IsRedirect())
	assert.Equal(t, []byte("archive-bytes"), resp.Body)
	assert.Equal(t, "application/gzip", resp.ContentType)
	assert.Empty(t, resp.Location)
}

func TestGet_SetsIdentityHeaders(t *testing.T) {
	t.Parallel()

	var userAgent, provider string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		provider = r.Header.Get("X-Request-Provider")
		w.WriteHeader(http.StatusOK)
	})

	client := httpclient.NewDefaultClient(0)
	_, err := client.Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Contains(t, userAgent, "librarian/")
	assert.Contains(t, provider, "librarian-v")
}

func TestGet_DoesNotFollowRedirects(t *testing.T) {
	t.Parallel()

	var hits int
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Redirect(w, r, "https://elsewhere.example.com/pkg.tar.gz", http.StatusFound)
	})

	client := httpclient.NewDefaultClient(5 * time.Second)
	resp, err := client.Get(context.Background(), server.URL)

	require.NoError(t, err, "a redirect is a result, not a transport error")
	assert.True(t, resp.IsRedirect())
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "https://elsewhere.example.com/pkg.tar.gz", resp.Location)
	assert.Equal(t, 1, hits, "the transport must not follow the redirect")
}

func TestGet_HTTPErrorStatusPassedThrough(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no such package", http.StatusNotFound)
	})

	client := httpclient.NewDefaultClient(5 * time.Second)
	resp, err := client.Get(context.Background(), server.URL)

	require.NoError(t, err)
	assert.False(t, resp.IsSuccess())
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGet_ContextCancellation(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusOK)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	client := httpclient.NewDefaultClient(0)
	_, err := client.Get(ctx, server.URL)

	assert.Error(t, err)
}

func TestGet_InvalidURL(t *testing.T) {
	t.Parallel()

	client := httpclient.NewDefaultClient(0)
	_, err := client.Get(context.Background(), "://not-a-url")

	assert.Error(t, err)
}
