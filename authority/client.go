// Package authority is the HTTP client for the remote service that owns
// authentication and access control. Authenticated calls carry the session
// token as a bearer credential.
package authority

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/jrsteele09/go-tab-session/internal/errors"
)

// Client talks to the authority.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	limiter        *rate.Limiter
	onUnauthorized func(ctx context.Context)
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the base HTTP client used for every call.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRateLimit bounds outbound requests to rps with the given burst.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithUnauthorizedHandler registers fn to run when a bearer-authenticated
// call comes back 401, so the owning session can be dropped.
func WithUnauthorizedHandler(fn func(ctx context.Context)) ClientOption {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

// NewClient creates a Client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "[authority.NewClient] base url")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: authority url %q must be absolute", errors.ErrInvalidConfig, baseURL)
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetUnauthorizedHandler replaces the 401 handler after construction.
func (c *Client) SetUnauthorizedHandler(fn func(ctx context.Context)) {
	c.onUnauthorized = fn
}

func (c *Client) endpoint(segments ...string) string {
	u := *c.baseURL
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = c.baseURL.Path + "/" + strings.Join(escaped, "/")
	return u.String()
}

// bearerClient returns an HTTP client that injects tokens from src.
func (c *Client) bearerClient(ctx context.Context, src oauth2.TokenSource) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	hc := oauth2.NewClient(ctx, src)
	hc.Timeout = c.httpClient.Timeout
	return hc
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (c *Client) do(ctx context.Context, hc *http.Client, method, endpoint string, in, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrapf(err, "rate limit wait")
		}
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return errors.Wrapf(err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, req.URL.Path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rejection(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode response")
	}
	return nil
}

// doAuthorized is do with bearer injection and the 401 hook.
func (c *Client) doAuthorized(ctx context.Context, src oauth2.TokenSource, method, endpoint string, in, out any) error {
	err := c.do(ctx, c.bearerClient(ctx, src), method, endpoint, in, out)
	if errors.Is(err, errors.ErrUnauthorized) && c.onUnauthorized != nil {
		log.Debug().Str("endpoint", endpoint).Msg("authority returned 401, dropping session")
		c.onUnauthorized(ctx)
	}
	return err
}

func rejection(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var eb errorBody
	if err := json.Unmarshal(data, &eb); err != nil || eb.Message == "" {
		eb.Message = http.StatusText(resp.StatusCode)
	}
	return &RejectedError{StatusCode: resp.StatusCode, Message: eb.Message}
}

// staticToken wraps a raw token as an oauth2 bearer token source.
func staticToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// TokenFunc supplies the current session token on demand.
type TokenFunc func() string

// Token implements oauth2.TokenSource. It fails with ErrNoSession when no
// token is available, so no unauthenticated request leaves the client.
func (f TokenFunc) Token() (*oauth2.Token, error) {
	t := f()
	if t == "" {
		return nil, errors.ErrNoSession
	}
	return &oauth2.Token{AccessToken: t, TokenType: "Bearer"}, nil
}
