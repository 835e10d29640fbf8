package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

var _ repository.PermissionRepository = (*PermissionRepo)(nil)

// PermissionRepo permisos por módulo (tabla permission_grants, PK user_id+module).
type PermissionRepo struct {
	q Querier
}

// NewPermissionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPermissionRepository(q Querier) *PermissionRepo {
	return &PermissionRepo{q: q}
}

// ListByUser permisos del usuario ordenados por módulo.
func (r *PermissionRepo) ListByUser(ctx context.Context, userID string) ([]entity.PermissionGrant, error) {
	rows, err := r.q.Query(ctx, `
		SELECT user_id, module, can_view, can_create, can_edit, can_delete
		FROM permission_grants WHERE user_id = $1 ORDER BY module`, userID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	list := []entity.PermissionGrant{}
	for rows.Next() {
		var g entity.PermissionGrant
		if err := rows.Scan(&g.UserID, &g.Module, &g.View, &g.Create, &g.Edit, &g.Delete); err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		list = append(list, g)
	}
	return list, rows.Err()
}

// Get devuelve nil si no hay fila para (usuario, módulo).
func (r *PermissionRepo) Get(ctx context.Context, userID, module string) (*entity.PermissionGrant, error) {
	var g entity.PermissionGrant
	err := r.q.QueryRow(ctx, `
		SELECT user_id, module, can_view, can_create, can_edit, can_delete
		FROM permission_grants WHERE user_id = $1 AND module = $2`, userID, module).
		Scan(&g.UserID, &g.Module, &g.View, &g.Create, &g.Edit, &g.Delete)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get grant: %w", err)
	}
	return &g, nil
}

// Replace borra todos los permisos del usuario e inserta los nuevos en una misma transacción.
// Con módulos repetidos gana el último (ON CONFLICT).
func (r *PermissionRepo) Replace(ctx context.Context, userID string, grants []entity.PermissionGrant) error {
	err := inTx(ctx, r.q, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM permission_grants WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("delete grants: %w", err)
		}
		batch := &pgx.Batch{}
		for _, g := range grants {
			batch.Queue(`
				INSERT INTO permission_grants (user_id, module, can_view, can_create, can_edit, can_delete)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (user_id, module) DO UPDATE SET
					can_view = EXCLUDED.can_view, can_create = EXCLUDED.can_create,
					can_edit = EXCLUDED.can_edit, can_delete = EXCLUDED.can_delete`,
				userID, g.Module, g.View, g.Create, g.Edit, g.Delete)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert grants: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace grants: %w", err)
	}
	return nil
}

// DeleteAllExcept borra los permisos de todos salvo keepID.
func (r *PermissionRepo) DeleteAllExcept(ctx context.Context, keepID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM permission_grants WHERE user_id <> $1`, keepID)
	if err != nil {
		return 0, fmt.Errorf("delete grants: %w", err)
	}
	return tag.RowsAffected(), nil
}
