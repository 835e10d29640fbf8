package repository

import (
	"context"

	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
)

// UserRepository define el puerto de persistencia para los perfiles internos (DIP).
// Las lecturas devuelven (nil, nil) cuando la fila no existe.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// GetByEmail compara exacto o, con caseInsensitive, sobre el email normalizado.
	GetByEmail(ctx context.Context, email string, caseInsensitive bool) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
	Delete(ctx context.Context, id string) error
	// List devuelve todos los usuarios si ids es nil; si no, solo los indicados.
	List(ctx context.Context, ids []string, limit, offset int) ([]*entity.User, error)
	// SubordinateIDs devuelve los ids cuyo manager_id es managerID (un solo nivel).
	SubordinateIDs(ctx context.Context, managerID string) ([]string, error)
	// DeactivateAllExcept deja activo solo a keepID.
	DeactivateAllExcept(ctx context.Context, keepID string) (int64, error)
}

// PasswordRepository hashes de contraseña locales (tabla user_passwords), separados del perfil.
type PasswordRepository interface {
	Get(ctx context.Context, userID string) (string, error)
	Set(ctx context.Context, userID, hash string) error
	DeleteAllExcept(ctx context.Context, keepID string) (int64, error)
}

// PermissionRepository permisos por módulo.
type PermissionRepository interface {
	ListByUser(ctx context.Context, userID string) ([]entity.PermissionGrant, error)
	Get(ctx context.Context, userID, module string) (*entity.PermissionGrant, error)
	// Replace borra todos los permisos del usuario e inserta grants (no hace merge).
	Replace(ctx context.Context, userID string, grants []entity.PermissionGrant) error
	DeleteAllExcept(ctx context.Context, keepID string) (int64, error)
}
