package authority

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/jrsteele09/go-tab-session/access"
	"github.com/jrsteele09/go-tab-session/internal/errors"
)

// AccessClient edits roles and permissions on behalf of a session.
type AccessClient struct {
	client *Client
	tokens oauth2.TokenSource
}

var _ access.Authority = (*AccessClient)(nil)

// Access returns an access.Authority that authenticates with tokens.
func (c *Client) Access(tokens TokenFunc) *AccessClient {
	return &AccessClient{client: c, tokens: tokens}
}

// itemsField names the JSON list for a subject: roles carry permissions,
// users carry roles.
func itemsField(kind access.SubjectKind) string {
	if kind == access.SubjectUser {
		return "roles"
	}
	return "permissions"
}

func (a *AccessClient) endpoint(subject access.Subject) string {
	return a.client.endpoint(string(subject.Kind)+"s", subject.ID, itemsField(subject.Kind))
}

func (a *AccessClient) send(ctx context.Context, method string, subject access.Subject, items []string, sync *bool) error {
	if err := subject.Validate(); err != nil {
		return err
	}
	if items == nil {
		items = []string{}
	}
	body := map[string]any{itemsField(subject.Kind): items}
	if sync != nil {
		body["sync"] = *sync
	}
	return a.client.doAuthorized(ctx, a.tokens, method, a.endpoint(subject), body, nil)
}

// Attach grants items to subject.
func (a *AccessClient) Attach(ctx context.Context, subject access.Subject, items []string) error {
	sync := false
	return errors.Wrapf(a.send(ctx, http.MethodPost, subject, items, &sync), "[authority.Attach]")
}

// Detach revokes items from subject.
func (a *AccessClient) Detach(ctx context.Context, subject access.Subject, items []string) error {
	return errors.Wrapf(a.send(ctx, http.MethodDelete, subject, items, nil), "[authority.Detach]")
}

// Sync replaces the grants of subject with items.
func (a *AccessClient) Sync(ctx context.Context, subject access.Subject, items []string) error {
	sync := true
	return errors.Wrapf(a.send(ctx, http.MethodPost, subject, items, &sync), "[authority.Sync]")
}

// Granted fetches the items currently granted to subject.
func (a *AccessClient) Granted(ctx context.Context, subject access.Subject) (access.Set, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}
	var body map[string][]string
	if err := a.client.doAuthorized(ctx, a.tokens, http.MethodGet, a.endpoint(subject), nil, &body); err != nil {
		return nil, errors.Wrapf(err, "[authority.Granted]")
	}
	return access.NewSet(body[itemsField(subject.Kind)]...), nil
}
