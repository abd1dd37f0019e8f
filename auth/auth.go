// Package auth provides the token sources used to authorize the calls of the HTTP transport, see
// httptransport.WithTokenSource.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// Modes of [Config].
const (
	ModeNone              = "none"
	ModeBearer            = "bearer"
	ModeClientCredentials = "client_credentials"
	ModeJWT               = "jwt"
)

var (
	// ErrConfig is returned when a token source can't be built from its configuration.
	ErrConfig = errors.New("invalid auth configuration")

	// ErrDiscovery is returned when the issuer metadata can't be fetched.
	ErrDiscovery = errors.New("failed to discover issuer")
)

// Static returns a source that always returns token as a bearer token.
func Static(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// ClientCredentials returns a source of tokens issued to the client itself with the OAuth 2.0 client credentials grant.
// The token endpoint is discovered from the OpenID configuration of issuer. Tokens are fetched with ctx, keep it alive
// for as long as the source is used.
func ClientCredentials(ctx context.Context, issuer, clientID, clientSecret string, scopes []string) (oauth2.TokenSource, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrDiscovery, issuer, err)
	}

	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     provider.Endpoint().TokenURL,
		Scopes:       scopes,
		AuthStyle:    provider.Endpoint().AuthStyle,
	}

	return conf.TokenSource(ctx), nil
}

// Config describes a token source.
type Config struct {
	Mode string // One of ModeNone, ModeBearer, ModeClientCredentials or ModeJWT, empty means ModeNone.

	Token string // ModeBearer.

	Issuer       string   // ModeClientCredentials, ModeJWT.
	ClientID     string   // ModeClientCredentials, ModeJWT (subject).
	ClientSecret string   // ModeClientCredentials, ModeJWT (shared secret).
	Scopes       []string // ModeClientCredentials.
	Audience     string   // ModeJWT.
}

// TokenSource builds the source described by c, nil for ModeNone.
func (c Config) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	switch c.Mode {
	case "", ModeNone:
		return nil, nil //nolint:nilnil
	case ModeBearer:
		if c.Token == "" {
			return nil, fmt.Errorf("bearer mode requires a token: %w", ErrConfig)
		}

		return Static(c.Token), nil
	case ModeClientCredentials:
		if c.Issuer == "" || c.ClientID == "" {
			return nil, fmt.Errorf("client credentials mode requires issuer and client ID: %w", ErrConfig)
		}

		return ClientCredentials(ctx, c.Issuer, c.ClientID, c.ClientSecret, c.Scopes)
	case ModeJWT:
		src, err := NewSignedJWT([]byte(c.ClientSecret), JWTClaims{
			Issuer:   c.Issuer,
			Subject:  c.ClientID,
			Audience: c.Audience,
		})
		if err != nil {
			return nil, err
		}

		return src, nil
	}

	return nil, fmt.Errorf("unknown mode %q: %w", c.Mode, ErrConfig)
}
