package httpclient_test

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarian-dev/librarian/internal/httpclient"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	err := httpclient.NewHTTPError(http.StatusNotFound, "https://index.test/pkg.tar.gz", "no such package")

	var httpErr *httpclient.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Contains(t, err.Error(), "HTTP 404")
	assert.Contains(t, err.Error(), "https://index.test/pkg.tar.gz")
}

func TestResponsePredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status     int
		isSuccess  bool
		isRedirect bool
	}{
		{status: http.StatusOK, isSuccess: true},
		{status: http.StatusNoContent, isSuccess: true},
		{status: http.StatusMovedPermanently, isRedirect: true},
		{status: http.StatusFound, isRedirect: true},
		{status: http.StatusTemporaryRedirect, isRedirect: true},
		{status: http.StatusBadRequest},
		{status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		resp := &httpclient.Response{StatusCode: tt.status}
		assert.Equal(t, tt.isSuccess, resp.IsSuccess(), "status %d", tt.status)
		assert.Equal(t, tt.isRedirect, resp.IsRedirect(), "status %d", tt.status)
	}
}
