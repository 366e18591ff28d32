package authority

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-tab-session/internal/errors"
)

// Login submits credentials. Any non-2xx answer is returned as *RejectedError.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	var resp LoginResponse
	if err := c.do(ctx, c.httpClient, http.MethodPost, c.endpoint("login"), req, &resp); err != nil {
		return nil, errors.Wrapf(err, "[authority.Login]")
	}
	if resp.Token == "" {
		return nil, &RejectedError{StatusCode: http.StatusBadGateway, Message: "login response carried no token"}
	}
	return &resp, nil
}

// Logout tells the authority to revoke token.
func (c *Client) Logout(ctx context.Context, token string) error {
	err := c.do(ctx, c.bearerClient(ctx, staticToken(token)), http.MethodPost, c.endpoint("logout"), nil, nil)
	return errors.Wrapf(err, "[authority.Logout]")
}

// Me returns the user that owns token.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var user User
	if err := c.doAuthorized(ctx, staticToken(token), http.MethodGet, c.endpoint("me"), nil, &user); err != nil {
		return nil, errors.Wrapf(err, "[authority.Me]")
	}
	return &user, nil
}
