// Package client holds thin clients for the external collaborators the
// notes service consumes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"notedeck/pkg/auth"
)

// IdentityClient validates tokens against the external identity provider
// and implements auth.TokenValidator. The provider owns authentication; this
// service only consumes the resolved identity.
type IdentityClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewIdentityClient creates a client for the identity provider at baseURL.
func NewIdentityClient(baseURL string) *IdentityClient {
	return &IdentityClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

type validateTokenRequest struct {
	Token string `json:"token"`
}

type validateTokenResponse struct {
	Valid    bool   `json:"valid"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ValidateToken resolves the token to an authenticated identity.
func (c *IdentityClient) ValidateToken(ctx context.Context, token string) (*auth.UserContext, error) {
	body, err := json.Marshal(validateTokenRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/auth/validate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call identity provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, auth.ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var validateResp validateTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&validateResp); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}

	if !validateResp.Valid {
		return nil, auth.ErrInvalidToken
	}

	return &auth.UserContext{
		UserID:   validateResp.UserID,
		Username: validateResp.Username,
		Email:    validateResp.Email,
		Token:    token,
	}, nil
}
