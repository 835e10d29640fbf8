package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

var _ repository.PasswordRepository = (*PasswordRepo)(nil)

// PasswordRepo hashes locales (tabla user_passwords), separados del perfil.
type PasswordRepo struct {
	q Querier
}

// NewPasswordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPasswordRepository(q Querier) *PasswordRepo {
	return &PasswordRepo{q: q}
}

// Get devuelve "" si el usuario no tiene contraseña local.
func (r *PasswordRepo) Get(ctx context.Context, userID string) (string, error) {
	var hash string
	err := r.q.QueryRow(ctx, `SELECT password_hash FROM user_passwords WHERE user_id = $1`, userID).Scan(&hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get password: %w", err)
	}
	return hash, nil
}

// Set crea o reemplaza el hash.
func (r *PasswordRepo) Set(ctx context.Context, userID, hash string) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO user_passwords (user_id, password_hash, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET password_hash = EXCLUDED.password_hash, updated_at = now()`,
		userID, hash)
	if err != nil {
		return fmt.Errorf("set password: %w", err)
	}
	return nil
}

// DeleteAllExcept borra los hashes de todos salvo keepID.
func (r *PasswordRepo) DeleteAllExcept(ctx context.Context, keepID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM user_passwords WHERE user_id <> $1`, keepID)
	if err != nil {
		return 0, fmt.Errorf("delete passwords: %w", err)
	}
	return tag.RowsAffected(), nil
}
