package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/librarian-dev/librarian/internal/config"
	"github.com/librarian-dev/librarian/internal/httpclient"
	"github.com/librarian-dev/librarian/internal/trust"
	"github.com/librarian-dev/librarian/internal/validator"
)

// archiveContentTypes are the response content types accepted for a
// package archive.
var archiveContentTypes = []string{
	"application/gzip",
	"application/x-gzip",
	"application/x-gtar",
	"application/x-tar",
	"application/octet-stream",
}

// indexHandler fetches archives from the public package index over
// HTTPS. The index serves mutable latest pointers, so its provenance is
// never pinned.
type indexHandler struct {
	client       httpclient.Client
	trustState   *trust.State
	endpoint     string
	allowedHosts map[string]struct{}
}

// NewIndexHandler creates a Handler for the public package index.
// Redirects are validated against the allow-list before being followed,
// and at most one redirect hop is ever taken.
func NewIndexHandler(cfg *config.Config, trustState *trust.State, client httpclient.Client, timeout time.Duration) (Handler, error) {
	if cfg.Sources.Index == nil || cfg.Sources.Index.Endpoint == "" {
		return nil, fmt.Errorf("package index is not configured")
	}

	if client == nil {
		client = httpclient.NewDefaultClient(timeout)
	}

	allowed := make(map[string]struct{}, len(cfg.Sources.AllowedHosts)+1)
	for _, host := range cfg.Sources.AllowedHosts {
		allowed[strings.ToLower(host)] = struct{}{}
	}

	// The configured endpoint host is always an allowed origin.
	endpointURL, err := url.Parse(cfg.Sources.Index.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid index endpoint: %w", err)
	}
	allowed[strings.ToLower(endpointURL.Hostname())] = struct{}{}

	return &indexHandler{
		client:       client,
		trustState:   trustState,
		endpoint:     strings.TrimSuffix(cfg.Sources.Index.Endpoint, "/"),
		allowedHosts: allowed,
	}, nil
}

// Fetch retrieves the package archive from the index.
func (h *indexHandler) Fetch(ctx context.Context, name, version string) (*FetchResult, error) {
	if h.trustState.Compromised() {
		return nil, fmt.Errorf("%w: network trust compromised: %s", ErrNetworkBlocked, h.trustState.Reason())
	}

	if version == "" {
		version = "latest"
	}
	fetchURL := fmt.Sprintf("%s/v1/packages/%s/%s.tar.gz", h.endpoint, url.PathEscape(name), url.PathEscape(version))

	slog.Debug("Fetching package from index", "name", name, "version", version, "url", fetchURL)

	resp, err := h.client.Get(ctx, fetchURL)
	if err != nil {
		return nil, fmt.Errorf("index fetch failed: %w", err)
	}

	if resp.IsRedirect() {
		target, err := h.vetRedirect(fetchURL, resp)
		if err != nil {
			// A hostile redirect taints the whole channel, not just
			// this request.
			h.trustState.Compromise(err.Error())
			return nil, fmt.Errorf("%w: %v", ErrNetworkBlocked, err)
		}

		slog.Info("Following validated redirect", "from", fetchURL, "to", target)

		resp, err = h.client.Get(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("redirected fetch failed: %w", err)
		}
		if resp.IsRedirect() {
			reason := fmt.Sprintf("redirect chain from %s exceeds one hop", fetchURL)
			h.trustState.Compromise(reason)
			return nil, fmt.Errorf("%w: %s", ErrNetworkBlocked, reason)
		}
		fetchURL = target
	}

	if err := checkArchiveResponse(fetchURL, resp); err != nil {
		return nil, err
	}

	return NewFetchResult(resp.Body, validator.Provenance{
		Source: config.SourceTypeIndex,
		Ref:    fetchURL,
		Pinned: false,
	}), nil
}

// vetRedirect validates a redirect target before it may be followed: the
// target host must be on the allow-list and the scheme must not
// downgrade from https to http.
func (h *indexHandler) vetRedirect(fromURL string, resp *httpclient.Response) (string, error) {
	if resp.Location == "" {
		return "", fmt.Errorf("redirect from %s carries no Location header", fromURL)
	}

	from, err := url.Parse(fromURL)
	if err != nil {
		return "", fmt.Errorf("invalid request URL %s: %w", fromURL, err)
	}

	target, err := from.Parse(resp.Location)
	if err != nil {
		return "", fmt.Errorf("invalid redirect target %q from %s: %w", resp.Location, fromURL, err)
	}

	if _, ok := h.allowedHosts[strings.ToLower(target.Hostname())]; !ok {
		return "", fmt.Errorf("redirect from %s to disallowed host %q", fromURL, target.Hostname())
	}

	if from.Scheme == "https" && target.Scheme != "https" {
		return "", fmt.Errorf("redirect from %s downgrades scheme to %q", fromURL, target.Scheme)
	}

	return target.String(), nil
}

// checkArchiveResponse validates the final response of a package fetch:
// 2xx status, non-empty body, content type consistent with an archive.
func checkArchiveResponse(fetchURL string, resp *httpclient.Response) error {
	if !resp.IsSuccess() {
		return httpclient.NewHTTPError(resp.StatusCode, fetchURL, "unexpected status for package archive")
	}

	if len(resp.Body) == 0 {
		return fmt.Errorf("empty response body for package archive from %s", fetchURL)
	}

	if resp.ContentType != "" {
		mediaType := resp.ContentType
		if i := strings.IndexByte(mediaType, ';'); i >= 0 {
			mediaType = mediaType[:i]
		}
		mediaType = strings.TrimSpace(strings.ToLower(mediaType))

		ok := false
		for _, accepted := range archiveContentTypes {
			if mediaType == accepted {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("unexpected content type %q for package archive from %s", resp.ContentType, fetchURL)
		}
	}

	return nil
}
