package memory

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

var _ repository.KVStore = (*KVStore)(nil)

type kvEntry struct {
	value     []byte
	expiresAt time.Time
}

// KVStore mapa con expiración perezosa: cada acceso barre las entradas vencidas.
// No hay temporizador; un proceso inactivo conserva entradas vencidas hasta el siguiente acceso.
type KVStore struct {
	mu      sync.Mutex
	entries map[string]kvEntry
	now     func() time.Time
}

// NewKVStore construye el almacén. now nil = time.Now.
func NewKVStore(now func() time.Time) *KVStore {
	if now == nil {
		now = time.Now
	}
	return &KVStore{entries: make(map[string]kvEntry), now: now}
}

func (s *KVStore) sweepLocked(now time.Time) {
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
}

// Get implementa repository.KVStore.
func (s *KVStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

// Set implementa repository.KVStore.
func (s *KVStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweepLocked(now)
	s.entries[key] = kvEntry{value: append([]byte(nil), value...), expiresAt: now.Add(ttl)}
	return nil
}

// Delete implementa repository.KVStore.
func (s *KVStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Take implementa repository.KVStore.
func (s *KVStore) Take(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	delete(s.entries, key)
	return e.value, true, nil
}

// Len número de entradas almacenadas, incluidas las vencidas aún no barridas.
func (s *KVStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
