package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

var _ repository.RecordRepository = (*RecordRepo)(nil)

// RecordRepo registros de negocio en memoria, una tabla por tipo.
type RecordRepo struct {
	mu     sync.RWMutex
	tables map[string]map[string]entity.Record
}

// NewRecordRepo construye el repositorio vacío.
func NewRecordRepo() *RecordRepo {
	return &RecordRepo{tables: make(map[string]map[string]entity.Record)}
}

func cloneRecord(r entity.Record) *entity.Record {
	if r.CustomerID != nil {
		c := *r.CustomerID
		r.CustomerID = &c
	}
	if r.Total != nil {
		t := *r.Total
		r.Total = &t
	}
	r.Data = append([]byte(nil), r.Data...)
	return &r
}

// customerOf en la tabla de clientes el cliente de la fila es la propia fila.
func customerOf(kind entity.ResourceKind, rec entity.Record) string {
	if kind.CustomerColumn == "id" {
		return rec.ID
	}
	if rec.CustomerID == nil {
		return ""
	}
	return *rec.CustomerID
}

func (r *RecordRepo) normalize(kind entity.ResourceKind, rec *entity.Record) entity.Record {
	cp := *cloneRecord(*rec)
	cp.Kind = kind.Name
	if !kind.Owned() {
		cp.OwnerID = ""
	}
	switch kind.CustomerColumn {
	case "":
		cp.CustomerID = nil
	case "id":
		id := cp.ID
		cp.CustomerID = &id
	}
	if !kind.HasTotal {
		cp.Total = nil
	}
	return cp
}

// Create inserta el registro.
func (r *RecordRepo) Create(_ context.Context, kind entity.ResourceKind, rec *entity.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tables[kind.Table]
	if !ok {
		t = make(map[string]entity.Record)
		r.tables[kind.Table] = t
	}
	t[rec.ID] = r.normalize(kind, rec)
	return nil
}

// GetByID devuelve (nil, nil) si no existe.
func (r *RecordRepo) GetByID(_ context.Context, kind entity.ResourceKind, id string) (*entity.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.tables[kind.Table][id]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

// List aplica el filtro de dueños y de cliente; orden por creación descendente.
func (r *RecordRepo) List(_ context.Context, kind entity.ResourceKind, filter repository.RecordFilter) ([]*entity.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var owners map[string]bool
	if filter.OwnerIDs != nil {
		owners = make(map[string]bool, len(filter.OwnerIDs))
		for _, id := range filter.OwnerIDs {
			owners[id] = true
		}
	}
	out := make([]*entity.Record, 0)
	for _, rec := range r.tables[kind.Table] {
		if owners != nil && !owners[rec.OwnerID] {
			continue
		}
		if filter.CustomerID != "" && customerOf(kind, rec) != filter.CustomerID {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return paginate(out, filter.Limit, filter.Offset), nil
}

// Update reemplaza el registro existente.
func (r *RecordRepo) Update(_ context.Context, kind entity.ResourceKind, rec *entity.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[kind.Table][rec.ID]; !ok {
		return domain.ErrNotFound
	}
	r.tables[kind.Table][rec.ID] = r.normalize(kind, rec)
	return nil
}

// Delete es idempotente.
func (r *RecordRepo) Delete(_ context.Context, kind entity.ResourceKind, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tables[kind.Table], id)
	return nil
}
