package repository

import (
	"context"

	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
)

// CustomerAccountRepository accesos al portal de clientes finales.
type CustomerAccountRepository interface {
	GetByID(ctx context.Context, id string) (*entity.CustomerAccount, error)
	GetByEmail(ctx context.Context, email string, caseInsensitive bool) (*entity.CustomerAccount, error)
}
