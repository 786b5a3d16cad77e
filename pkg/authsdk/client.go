package authsdk

import (
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// SDKClient talks to an authcore service. It covers the unauthenticated
// endpoints and hands out Sessions for the rest.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// ClientOption customises an SDKClient.
type ClientOption func(*SDKClient)

// WithHTTPClient replaces the default client, which times out after 10s.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *SDKClient) { c.HTTPClient = hc }
}

func NewSDKClient(baseURL string, opts ...ClientOption) *SDKClient {
	c := &SDKClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewSessionFromTokens resumes a session from tokens kept elsewhere.
// expiresIn is the access token's remaining lifetime in seconds; at or below
// zero the first call refreshes before using it.
func (c *SDKClient) NewSessionFromTokens(accessToken, refreshToken string, expiresIn int) *Session {
	return newSession(c, TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
	})
}
