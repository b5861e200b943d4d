// Package catalog proxies category and product requests to the external
// catalog service.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gregjones/httpcache"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-admin-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-admin-go/internal/metrics"
)

// max upstream body we are willing to buffer
const maxBody = 8 << 20

// Client talks JSON to the catalog base URL. GET responses are cached in
// memory according to the upstream cache headers.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	logger  *zap.SugaredLogger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.SugaredLogger) (*Client, error) {
	transport := httpcache.NewMemoryCacheTransport()
	transport.MarkCachedResponses = true
	return NewClientWithHTTPClient(&http.Client{Transport: transport, Timeout: timeout}, baseURL, logger)
}

// NewClientWithHTTPClient builds a Client on a caller-supplied http.Client,
// e.g. one pointed at an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, logger *zap.SugaredLogger) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing catalog URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("catalog URL %q must be absolute", baseURL)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Client{http: httpClient, baseURL: u, logger: logger}, nil
}

func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

func (c *Client) Patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPatch, path, nil, body)
}

func (c *Client) Put(ctx context.Context, path string, query url.Values, body any) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, path, query, body)
}

func (c *Client) Delete(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, query, nil)
}

// Do sends one request. Upstream error statuses become *apperr.UpstreamError,
// timeouts apperr.ErrGatewayTimeout and transport failures apperr.ErrBadGateway.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u := *c.baseURL
	u.Path = c.baseURL.Path + "/" + strings.TrimLeft(path, "/")
	u.RawQuery = compact(query).Encode()

	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, c.transportError(method, path, err)
	}
	metrics.RecordUpstream(method, strconv.Itoa(resp.StatusCode))
	if resp.Header.Get(httpcache.XFromCache) != "" {
		c.logger.Debugw("catalog cache hit", "path", path)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		c.logger.Debugw("catalog error response", "method", method, "path", path, "status", resp.StatusCode)
		return nil, &apperr.UpstreamError{Status: resp.StatusCode, Detail: decodeDetail(payload)}
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(payload) {
		c.logger.Warnw("catalog returned non-JSON body", "method", method, "path", path)
		return nil, fmt.Errorf("%s %s: invalid JSON from catalog: %w", method, path, apperr.ErrBadGateway)
	}
	return json.RawMessage(payload), nil
}

func (c *Client) transportError(method, path string, err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		metrics.RecordUpstream(method, "timeout")
		c.logger.Warnw("catalog timeout", "method", method, "path", path, "err", err)
		return fmt.Errorf("%s %s: %w", method, path, apperr.ErrGatewayTimeout)
	}
	metrics.RecordUpstream(method, "unreachable")
	c.logger.Warnw("catalog unreachable", "method", method, "path", path, "err", err)
	return fmt.Errorf("%s %s: %w", method, path, apperr.ErrBadGateway)
}

// decodeDetail returns the upstream body as JSON when possible, else as text.
func decodeDetail(payload []byte) any {
	var v any
	if err := json.Unmarshal(payload, &v); err == nil {
		return v
	}
	return strings.TrimSpace(string(payload))
}

// compact drops empty parameters so optional filters are not forwarded.
func compact(q url.Values) url.Values {
	out := url.Values{}
	for k, vs := range q {
		for _, v := range vs {
			if v != "" {
				out.Add(k, v)
			}
		}
	}
	return out
}
