package provider

import (
	"context"

	"github.com/DanielPopoola/donation-gateway/internal/core/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const tokenPath = "oauth2/token"

// accessToken exchanges the credential for a bearer token. A fresh token is
// requested for every gateway call.
func (c *Client) accessToken(ctx context.Context, cred *domain.Credential) (string, error) {
	tokenURL, err := c.buildURL(tokenPath)
	if err != nil {
		return "", err
	}

	cc := clientcredentials.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.Secret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	tok, err := cc.Token(ctx)
	if err != nil {
		if isTimeout(err) {
			c.logger.Warn("provider token exchange timed out", "host_id", cred.HostID, "error", err)
			return "", domain.NewUpstreamTimeoutError("token exchange", err)
		}
		c.logger.Error("provider token exchange failed", "host_id", cred.HostID, "error", err)
		return "", domain.NewUpstreamAuthError(err)
	}

	return tok.AccessToken, nil
}
