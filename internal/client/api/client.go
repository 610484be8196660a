// Package api is a thin typed facade over the gateway: one method per
// backend endpoint. It adds no retries or caching and returns the gateway's
// errors unchanged, apart from rejecting success payloads that are missing
// required fields.
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/zyplyctl/internal/client/gateway"
	"github.com/dmitrijs2005/zyplyctl/internal/client/models"
)

// Provider names a federated identity provider.
type Provider string

const (
	ProviderGoogle Provider = "google"
	ProviderGitHub Provider = "github"
)

// ParseProvider accepts the provider names understood by the backend.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(s); p {
	case ProviderGoogle, ProviderGitHub:
		return p, nil
	default:
		return "", fmt.Errorf("unknown provider %q (want google or github)", s)
	}
}

type Client struct {
	gw *gateway.Gateway
}

func NewClient(gw *gateway.Gateway) *Client {
	return &Client{gw: gw}
}

func (c *Client) Signup(ctx context.Context, name, email, password string) (*models.AuthPayload, error) {
	res, err := gateway.Request[models.AuthPayload](ctx, c.gw, http.MethodPost, "/auth/signup",
		models.SignupRequest{Name: name, Email: email, Password: password}, false)
	if err != nil {
		return nil, err
	}
	return checkAuthPayload(&res)
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthPayload, error) {
	res, err := gateway.Request[models.AuthPayload](ctx, c.gw, http.MethodPost, "/auth/login",
		models.LoginRequest{Email: email, Password: password}, false)
	if err != nil {
		return nil, err
	}
	return checkAuthPayload(&res)
}

// ForgotPassword asks the backend to send a reset link. The response is the
// same whether or not the address has an account.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*models.MessageResponse, error) {
	res, err := gateway.Request[models.MessageResponse](ctx, c.gw, http.MethodPost, "/auth/forgot-password",
		models.ForgotPasswordRequest{Email: email}, false)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Me fetches the user behind the stored token.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	u, err := gateway.Request[models.User](ctx, c.gw, http.MethodGet, "/auth/me", nil, true)
	if err != nil {
		return nil, err
	}
	if u.ID <= 0 {
		return nil, gateway.MalformedError(http.StatusOK, "Invalid response from server: user has no id")
	}
	return &u, nil
}

// FederatedURL is where a browser must be sent to start a login with p.
// It is a navigation target, not a JSON endpoint.
func (c *Client) FederatedURL(p Provider) string {
	return c.gw.URL("/auth/" + string(p))
}

func (c *Client) Profile(ctx context.Context) (models.Profile, error) {
	return gateway.Request[models.Profile](ctx, c.gw, http.MethodGet, "/user/profile", nil, true)
}

func (c *Client) UpdateProfile(ctx context.Context, fields models.Profile) (models.Profile, error) {
	return gateway.Request[models.Profile](ctx, c.gw, http.MethodPut, "/user/profile", fields, true)
}

func checkAuthPayload(p *models.AuthPayload) (*models.AuthPayload, error) {
	if p.Token == "" || p.User == nil || p.User.ID <= 0 {
		return nil, gateway.MalformedError(http.StatusOK, "Invalid response from server: missing token or user")
	}
	return p, nil
}
