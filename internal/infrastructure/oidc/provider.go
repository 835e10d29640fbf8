// Package oidc adaptador del proveedor de identidad (authorization code + PKCE S256).
package oidc

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/jhoicas/solar-crm-api/internal/application/ports"
	"github.com/jhoicas/solar-crm-api/pkg/config"
)

var _ ports.IdentityProvider = (*Provider)(nil)

// ErrNonceMismatch el nonce del id_token no es el guardado en el desafío PKCE; el callback se rechaza.
var ErrNonceMismatch = errors.New("oidc: nonce del id_token no coincide")

// Provider descubre el emisor una vez al arrancar y reutiliza verifier y config OAuth2.
// Todas las llamadas salientes usan un cliente HTTP con timeout explícito.
type Provider struct {
	verifier *gooidc.IDTokenVerifier
	oauth    *oauth2.Config
	client   *http.Client
}

// New descubre el proveedor. El secreto del cliente viaja en el cuerpo del POST al token endpoint.
func New(ctx context.Context, cfg config.OIDCConfig, baseURL string) (*Provider, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	provider, err := gooidc.NewProvider(gooidc.ClientContext(ctx, client), cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc: descubrimiento de %s: %w", cfg.IssuerURL, err)
	}

	endpoint := provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	return &Provider{
		verifier: provider.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			RedirectURL:  cfg.RedirectURL(baseURL),
			Scopes:       cfg.Scopes,
		},
		client: client,
	}, nil
}

// AuthCodeURL implementa ports.IdentityProvider.
func (p *Provider) AuthCodeURL(state, nonce, verifier string) string {
	return p.oauth.AuthCodeURL(state, gooidc.Nonce(nonce), oauth2.S256ChallengeOption(verifier))
}

// Exchange implementa ports.IdentityProvider.
func (p *Provider) Exchange(ctx context.Context, code, verifier, nonce string) (*ports.Identity, error) {
	ctx = gooidc.ClientContext(ctx, p.client)

	tok, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("oidc: canje de código: %w", err)
	}
	rawID, ok := tok.Extra("id_token").(string)
	if !ok || rawID == "" {
		return nil, fmt.Errorf("oidc: la respuesta no trae id_token")
	}
	idToken, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return nil, fmt.Errorf("oidc: verificar id_token: %w", err)
	}
	if idToken.Nonce != nonce {
		return nil, ErrNonceMismatch
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("oidc: leer claims: %w", err)
	}
	return &ports.Identity{
		Subject:     idToken.Subject,
		Email:       stringClaim(claims, "email"),
		Name:        displayName(claims),
		IDToken:     rawID,
		AccessToken: tok.AccessToken,
		IDClaims:    claims,
	}, nil
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

func displayName(claims map[string]any) string {
	for _, k := range []string{"name", "preferred_username", "email"} {
		if s := stringClaim(claims, k); s != "" {
			return s
		}
	}
	return ""
}
