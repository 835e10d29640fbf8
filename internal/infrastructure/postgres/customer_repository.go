package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

var _ repository.CustomerAccountRepository = (*CustomerAccountRepo)(nil)

const accountColumns = `id, cliente_id, email, name, password_hash, invite_status, created_at, updated_at`

// CustomerAccountRepo accesos al portal (tabla client_accounts, FK a clientes).
type CustomerAccountRepo struct {
	q Querier
}

// NewCustomerAccountRepository construye el adaptador. Pasar pool o tx (Querier).
func NewCustomerAccountRepository(q Querier) *CustomerAccountRepo {
	return &CustomerAccountRepo{q: q}
}

// GetByID obtiene un acceso por ID.
func (r *CustomerAccountRepo) GetByID(ctx context.Context, id string) (*entity.CustomerAccount, error) {
	id, ok := uuidArg(id)
	if !ok {
		return nil, nil
	}
	return r.scanOne(ctx, `SELECT `+accountColumns+` FROM client_accounts WHERE id = $1`, id)
}

// GetByEmail exacto o con lower() en ambos lados.
func (r *CustomerAccountRepo) GetByEmail(ctx context.Context, email string, caseInsensitive bool) (*entity.CustomerAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM client_accounts WHERE email = $1`
	if caseInsensitive {
		query = `SELECT ` + accountColumns + ` FROM client_accounts WHERE lower(email) = lower($1)`
	}
	return r.scanOne(ctx, query, email)
}

func (r *CustomerAccountRepo) scanOne(ctx context.Context, query string, arg any) (*entity.CustomerAccount, error) {
	var a entity.CustomerAccount
	err := r.q.QueryRow(ctx, query, arg).Scan(
		&a.ID, &a.ClientID, &a.Email, &a.Name, &a.PasswordHash, &a.InviteStatus, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get client account: %w", err)
	}
	return &a, nil
}
