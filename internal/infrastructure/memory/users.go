package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

var (
	_ repository.UserRepository            = (*UserRepo)(nil)
	_ repository.PasswordRepository        = (*PasswordRepo)(nil)
	_ repository.PermissionRepository      = (*PermissionRepo)(nil)
	_ repository.CustomerAccountRepository = (*CustomerAccountRepo)(nil)
)

// UserRepo perfiles en memoria. El email es único sin distinguir mayúsculas, igual que el
// índice lower(email) de PostgreSQL.
type UserRepo struct {
	mu    sync.RWMutex
	users map[string]entity.User
}

// NewUserRepo construye el repositorio vacío.
func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]entity.User)}
}

func cloneUser(u entity.User) *entity.User {
	if u.ManagerID != nil {
		m := *u.ManagerID
		u.ManagerID = &m
	}
	return &u
}

// Create persiste un nuevo usuario.
func (r *UserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	norm := entity.NormalizeEmail(user.Email)
	for _, u := range r.users {
		if entity.NormalizeEmail(u.Email) == norm {
			return domain.ErrEmailAlreadyExists
		}
	}
	r.users[user.ID] = *cloneUser(*user)
	return nil
}

// GetByID obtiene un usuario por ID.
func (r *UserRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	return cloneUser(u), nil
}

// GetByEmail busca exacto o por email normalizado.
func (r *UserRepo) GetByEmail(_ context.Context, email string, caseInsensitive bool) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	norm := entity.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email || (caseInsensitive && entity.NormalizeEmail(u.Email) == norm) {
			return cloneUser(u), nil
		}
	}
	return nil, nil
}

// Update reemplaza el usuario.
func (r *UserRepo) Update(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrNotFound
	}
	norm := entity.NormalizeEmail(user.Email)
	for id, u := range r.users {
		if id != user.ID && entity.NormalizeEmail(u.Email) == norm {
			return domain.ErrEmailAlreadyExists
		}
	}
	r.users[user.ID] = *cloneUser(*user)
	return nil
}

// Delete elimina un usuario por ID.
func (r *UserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

// List ordena por fecha de creación descendente, como el adaptador SQL.
func (r *UserRepo) List(_ context.Context, ids []string, limit, offset int) ([]*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var want map[string]bool
	if ids != nil {
		want = make(map[string]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
	}
	list := make([]*entity.User, 0, len(r.users))
	for _, u := range r.users {
		if want != nil && !want[u.ID] {
			continue
		}
		list = append(list, cloneUser(u))
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return paginate(list, limit, offset), nil
}

// SubordinateIDs ids cuyo manager_id es managerID.
func (r *UserRepo) SubordinateIDs(_ context.Context, managerID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var ids []string
	for _, u := range r.users {
		if u.ManagedBy(managerID) {
			ids = append(ids, u.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// DeactivateAllExcept desactiva a todos salvo keepID, que queda activo.
func (r *UserRepo) DeactivateAllExcept(_ context.Context, keepID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, u := range r.users {
		active := id == keepID
		if u.Active != active {
			u.Active = active
			r.users[id] = u
			n++
		}
	}
	return n, nil
}

func (r *UserRepo) snapshot() map[string]entity.User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]entity.User, len(r.users))
	for k, v := range r.users {
		out[k] = *cloneUser(v)
	}
	return out
}

func (r *UserRepo) restore(s map[string]entity.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = s
}

// PasswordRepo hashes locales en memoria.
type PasswordRepo struct {
	mu     sync.RWMutex
	hashes map[string]string
}

// NewPasswordRepo construye el repositorio vacío.
func NewPasswordRepo() *PasswordRepo {
	return &PasswordRepo{hashes: make(map[string]string)}
}

// Get devuelve "" si el usuario no tiene hash.
func (r *PasswordRepo) Get(_ context.Context, userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hashes[userID], nil
}

// Set crea o reemplaza el hash.
func (r *PasswordRepo) Set(_ context.Context, userID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashes[userID] = hash
	return nil
}

// DeleteAllExcept borra todos los hashes salvo el de keepID.
func (r *PasswordRepo) DeleteAllExcept(_ context.Context, keepID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id := range r.hashes {
		if id != keepID {
			delete(r.hashes, id)
			n++
		}
	}
	return n, nil
}

func (r *PasswordRepo) snapshot() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.hashes))
	for k, v := range r.hashes {
		out[k] = v
	}
	return out
}

func (r *PasswordRepo) restore(s map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hashes = s
}

// PermissionRepo permisos en memoria indexados por usuario y módulo.
type PermissionRepo struct {
	mu     sync.RWMutex
	grants map[string]map[string]entity.PermissionGrant
}

// NewPermissionRepo construye el repositorio vacío.
func NewPermissionRepo() *PermissionRepo {
	return &PermissionRepo{grants: make(map[string]map[string]entity.PermissionGrant)}
}

// ListByUser devuelve los permisos ordenados por módulo.
func (r *PermissionRepo) ListByUser(_ context.Context, userID string) ([]entity.PermissionGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entity.PermissionGrant, 0, len(r.grants[userID]))
	for _, g := range r.grants[userID] {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Module < out[j].Module })
	return out, nil
}

// Get devuelve nil si no hay fila para (usuario, módulo).
func (r *PermissionRepo) Get(_ context.Context, userID, module string) (*entity.PermissionGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.grants[userID][module]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

// Replace borra e inserta; con módulos repetidos gana el último.
func (r *PermissionRepo) Replace(_ context.Context, userID string, grants []entity.PermissionGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := make(map[string]entity.PermissionGrant, len(grants))
	for _, g := range grants {
		g.UserID = userID
		set[g.Module] = g
	}
	r.grants[userID] = set
	return nil
}

// DeleteAllExcept borra los permisos de todos salvo keepID.
func (r *PermissionRepo) DeleteAllExcept(_ context.Context, keepID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, set := range r.grants {
		if id != keepID {
			n += int64(len(set))
			delete(r.grants, id)
		}
	}
	return n, nil
}

func (r *PermissionRepo) snapshot() map[string]map[string]entity.PermissionGrant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]map[string]entity.PermissionGrant, len(r.grants))
	for id, set := range r.grants {
		cp := make(map[string]entity.PermissionGrant, len(set))
		for m, g := range set {
			cp[m] = g
		}
		out[id] = cp
	}
	return out
}

func (r *PermissionRepo) restore(s map[string]map[string]entity.PermissionGrant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grants = s
}

// CustomerAccountRepo accesos del portal en memoria.
type CustomerAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]entity.CustomerAccount
}

// NewCustomerAccountRepo construye el repositorio vacío.
func NewCustomerAccountRepo() *CustomerAccountRepo {
	return &CustomerAccountRepo{accounts: make(map[string]entity.CustomerAccount)}
}

// Add registra o reemplaza un acceso (seed y tests).
func (r *CustomerAccountRepo) Add(acc *entity.CustomerAccount) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accounts[acc.ID] = *acc
}

// GetByID obtiene un acceso por ID.
func (r *CustomerAccountRepo) GetByID(_ context.Context, id string) (*entity.CustomerAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// GetByEmail busca exacto o por email normalizado.
func (r *CustomerAccountRepo) GetByEmail(_ context.Context, email string, caseInsensitive bool) (*entity.CustomerAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	norm := entity.NormalizeEmail(email)
	for _, a := range r.accounts {
		if a.Email == email || (caseInsensitive && entity.NormalizeEmail(a.Email) == norm) {
			acc := a
			return &acc, nil
		}
	}
	return nil, nil
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(list) {
		return list[:0]
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}
