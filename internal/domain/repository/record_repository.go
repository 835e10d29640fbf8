package repository

import (
	"context"

	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
)

// RecordFilter restringe un listado. OwnerIDs nil = sin filtro de dueño;
// CustomerID vacío = sin filtro de cliente.
type RecordFilter struct {
	OwnerIDs   []string
	CustomerID string
	Limit      int
	Offset     int
}

// RecordRepository persistencia genérica de los recursos de negocio.
type RecordRepository interface {
	Create(ctx context.Context, kind entity.ResourceKind, rec *entity.Record) error
	GetByID(ctx context.Context, kind entity.ResourceKind, id string) (*entity.Record, error)
	List(ctx context.Context, kind entity.ResourceKind, filter RecordFilter) ([]*entity.Record, error)
	Update(ctx context.Context, kind entity.ResourceKind, rec *entity.Record) error
	Delete(ctx context.Context, kind entity.ResourceKind, id string) error
}

// AdminTxRunner ejecuta operaciones masivas de administración en una transacción.
type AdminTxRunner interface {
	RunAdmin(ctx context.Context, fn func(users UserRepository, passwords PasswordRepository, perms PermissionRepository) error) error
}
