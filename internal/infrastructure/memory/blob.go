package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

var _ repository.BlobStore = (*BlobStore)(nil)

type blobObject struct {
	data        []byte
	contentType string
}

// BlobStore objetos en memoria; sustituye a S3 en desarrollo y tests.
type BlobStore struct {
	mu      sync.RWMutex
	objects map[string]blobObject
}

// NewBlobStore construye el almacén vacío.
func NewBlobStore() *BlobStore {
	return &BlobStore{objects: make(map[string]blobObject)}
}

// Put lee el cuerpo completo y lo guarda.
func (s *BlobStore) Put(_ context.Context, key string, body io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("blob: leer cuerpo: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = blobObject{data: data, contentType: contentType}
	return nil
}

// Get devuelve domain.ErrNotFound si la clave no existe.
func (s *BlobStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

// Delete es idempotente.
func (s *BlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}
