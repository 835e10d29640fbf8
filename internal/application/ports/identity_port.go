package ports

import "context"

// Identity resultado verificado del intercambio authorization-code con el proveedor.
// IDClaims viene del id_token ya verificado (firma, audiencia y nonce).
type Identity struct {
	Subject     string
	Email       string
	Name        string
	IDToken     string
	AccessToken string
	IDClaims    map[string]any
}

// IdentityProvider define el puerto de salida hacia el proveedor OIDC.
// La aplicación solo conoce este contrato; el adaptador vive en infrastructure/oidc.
type IdentityProvider interface {
	// AuthCodeURL arma la URL de autorización con challenge S256 y nonce.
	AuthCodeURL(state, nonce, verifier string) string
	// Exchange canjea el código con el verifier PKCE y valida el id_token contra nonce.
	// El contexto debe llevar un timeout; el adaptador además fija uno propio al cliente HTTP.
	Exchange(ctx context.Context, code, verifier, nonce string) (*Identity, error)
}
