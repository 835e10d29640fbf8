package jwt

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// DecodeClaims decodifica el payload de un JWT sin verificar la firma.
// Solo debe usarse con tokens recibidos directamente del endpoint de tokens del proveedor
// (canal TLS autenticado); el id_token se verifica aparte.
func DecodeClaims(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("jwt: token vacío")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("jwt: decodificar claims: %w", err)
	}
	return claims, nil
}

// DecodeClaimsOrEmpty devuelve un mapa vacío cuando el token es opaco o no decodificable.
// Algunos proveedores entregan access tokens opacos; en ese caso los roles salen del id_token.
func DecodeClaimsOrEmpty(raw string) map[string]any {
	claims, err := DecodeClaims(raw)
	if err != nil {
		return map[string]any{}
	}
	return claims
}
