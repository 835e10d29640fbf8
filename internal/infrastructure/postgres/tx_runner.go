package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

var _ repository.AdminTxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// RunAdmin inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
// La purga usa esta vía para que desactivar, borrar hashes y borrar permisos sea todo o nada.
func (r *TxRunner) RunAdmin(ctx context.Context, fn func(
	users repository.UserRepository,
	passwords repository.PasswordRepository,
	perms repository.PermissionRepository,
) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewUserRepository(tx), NewPasswordRepository(tx), NewPermissionRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
