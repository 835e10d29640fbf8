package repository

import (
	"context"
	"time"
)

// KVStore almacén clave→valor con expiración, usado por sesiones y desafíos PKCE.
// La implementación en memoria sirve para una sola instancia; Redis para varias.
type KVStore interface {
	// Get devuelve (nil, false, nil) si la clave no existe o expiró.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete es idempotente.
	Delete(ctx context.Context, key string) error
	// Take lee y borra de forma atómica; un segundo Take de la misma clave no encuentra nada.
	Take(ctx context.Context, key string) ([]byte, bool, error)
}
