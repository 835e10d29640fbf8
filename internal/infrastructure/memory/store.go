// Package memory implementa los puertos del dominio en memoria de proceso.
// Se usa con APP_STORAGE=memory (desarrollo, demos) y en los tests de casos de uso y HTTP.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

var _ repository.AdminTxRunner = (*Store)(nil)

// Store agrupa los repositorios en memoria.
type Store struct {
	Users       *UserRepo
	Passwords   *PasswordRepo
	Permissions *PermissionRepo
	Accounts    *CustomerAccountRepo
	Records     *RecordRepo

	adminMu sync.Mutex
}

// NewStore construye un almacén vacío.
func NewStore() *Store {
	return &Store{
		Users:       NewUserRepo(),
		Passwords:   NewPasswordRepo(),
		Permissions: NewPermissionRepo(),
		Accounts:    NewCustomerAccountRepo(),
		Records:     NewRecordRepo(),
	}
}

// RunAdmin emula la transacción de PostgreSQL: si fn falla se restaura la foto previa
// de usuarios, contraseñas y permisos. Las operaciones admin se serializan entre sí.
// No aísla del resto de peticiones: la restauración descarta también lo que otra petición
// haya escrito en esos repositorios mientras fn corría. Aceptable para tests y desarrollo local.
func (s *Store) RunAdmin(_ context.Context, fn func(users repository.UserRepository, passwords repository.PasswordRepository, perms repository.PermissionRepository) error) error {
	s.adminMu.Lock()
	defer s.adminMu.Unlock()

	users := s.Users.snapshot()
	hashes := s.Passwords.snapshot()
	grants := s.Permissions.snapshot()

	if err := fn(s.Users, s.Passwords, s.Permissions); err != nil {
		s.Users.restore(users)
		s.Passwords.restore(hashes)
		s.Permissions.restore(grants)
		return err
	}
	return nil
}
