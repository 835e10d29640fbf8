package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store agrupa los repositorios sobre un mismo pool, igual que memory.Store.
type Store struct {
	Users       *UserRepo
	Passwords   *PasswordRepo
	Permissions *PermissionRepo
	Accounts    *CustomerAccountRepo
	Records     *RecordRepo
	Tx          *TxRunner
}

// NewStore construye los repositorios sobre el pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		Users:       NewUserRepository(pool),
		Passwords:   NewPasswordRepository(pool),
		Permissions: NewPermissionRepository(pool),
		Accounts:    NewCustomerAccountRepository(pool),
		Records:     NewRecordRepository(pool),
		Tx:          NewTxRunner(pool),
	}
}
