package backend

import (
	"context"
	"net/http"

	"github.com/example/grocery-sync/internal/auth"
)

// Login exchanges credentials for a session. The session token is not
// installed on the client; the caller decides when to use it.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) (auth.Session, error) {
	var session auth.Session
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, creds, &session); err != nil {
		return auth.Session{}, err
	}
	return session, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.doAs(ctx, token, http.MethodPost, "/auth/logout", nil, nil, nil)
}
