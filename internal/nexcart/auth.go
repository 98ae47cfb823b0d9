package nexcart

import (
	"context"
	"net/http"
)

// Tokens is the JWT pair issued by the backend
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// ObtainToken exchanges credentials for a token pair
func (c *Client) ObtainToken(ctx context.Context, username, password string) (Tokens, error) {
	var tokens Tokens
	err := c.do(ctx, call{
		operation: "token.obtain",
		method:    http.MethodPost,
		path:      "/token/",
		body:      tokenRequest{Username: username, Password: password},
	}, &tokens)
	return tokens, err
}

// RefreshToken exchanges a refresh token for a new access token
func (c *Client) RefreshToken(ctx context.Context, refresh string) (Tokens, error) {
	var tokens Tokens
	err := c.do(ctx, call{
		operation: "token.refresh",
		method:    http.MethodPost,
		path:      "/token/refresh/",
		body:      refreshRequest{Refresh: refresh},
	}, &tokens)
	if err == nil && tokens.Refresh == "" {
		tokens.Refresh = refresh
	}
	return tokens, err
}
