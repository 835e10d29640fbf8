// Package redis implementa el almacén de sesiones y desafíos PKCE sobre Redis,
// para despliegues con varias instancias detrás de un balanceador.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

var _ repository.KVStore = (*KVStore)(nil)

// NewClient abre el cliente desde REDIS_URL y verifica la conexión.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: url inválida: %w", err)
	}
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second

	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return client, nil
}

// KVStore la expiración la aplica Redis (SET con EX); Take usa GETDEL.
type KVStore struct {
	client *goredis.Client
	prefix string
}

// NewKVStore construye el almacén. prefix separa las claves de otras aplicaciones.
func NewKVStore(client *goredis.Client, prefix string) *KVStore {
	return &KVStore{client: client, prefix: prefix}
}

func (s *KVStore) key(k string) string {
	return s.prefix + k
}

// Get implementa repository.KVStore.
func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: get: %w", err)
	}
	return v, true, nil
}

// Set implementa repository.KVStore.
func (s *KVStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}

// Delete implementa repository.KVStore.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("redis: del: %w", err)
	}
	return nil
}

// Take implementa repository.KVStore.
func (s *KVStore) Take(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.GetDel(ctx, s.key(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis: getdel: %w", err)
	}
	return v, true, nil
}
