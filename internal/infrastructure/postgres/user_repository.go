package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

var _ repository.UserRepository = (*UserRepo)(nil)

const userColumns = `id, name, email, role, manager_id, active, avatar_key, created_at, updated_at`

// UserRepo perfiles del personal (tabla profiles). Usable con pool o tx.
type UserRepo struct {
	q Querier
}

// NewUserRepository construye el adaptador. Pasar pool o tx (Querier).
func NewUserRepository(q Querier) *UserRepo {
	return &UserRepo{q: q}
}

// Create persiste un nuevo perfil. El índice único sobre lower(email) produce ErrEmailAlreadyExists.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	query := `
		INSERT INTO profiles (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.Role, u.ManagerID, u.Active, u.AvatarKey, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// GetByID obtiene un perfil por ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	id, ok := uuidArg(id)
	if !ok {
		return nil, nil
	}
	query := `SELECT ` + userColumns + ` FROM profiles WHERE id = $1`
	return r.scanOne(ctx, "get profile by id", query, id)
}

// GetByEmail exacto o con lower() en ambos lados.
func (r *UserRepo) GetByEmail(ctx context.Context, email string, caseInsensitive bool) (*entity.User, error) {
	query := `SELECT ` + userColumns + ` FROM profiles WHERE email = $1`
	if caseInsensitive {
		query = `SELECT ` + userColumns + ` FROM profiles WHERE lower(email) = lower($1)`
	}
	return r.scanOne(ctx, "get profile by email", query, email)
}

// Update actualiza los campos editables del perfil.
func (r *UserRepo) Update(ctx context.Context, u *entity.User) error {
	query := `
		UPDATE profiles SET name = $2, email = $3, role = $4, manager_id = $5, active = $6,
			avatar_key = $7, updated_at = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		u.ID, u.Name, u.Email, u.Role, u.ManagerID, u.Active, u.AvatarKey, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailAlreadyExists
		}
		return fmt.Errorf("update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina el perfil. Los subordinados quedan sin gerente (FK ON DELETE SET NULL).
func (r *UserRepo) Delete(ctx context.Context, id string) error {
	id, ok := uuidArg(id)
	if !ok {
		return nil
	}
	if _, err := r.q.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// List con ids nil devuelve todos; con ids (aunque vacío) filtra por pertenencia.
func (r *UserRepo) List(ctx context.Context, ids []string, limit, offset int) ([]*entity.User, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if ids == nil {
		query := `SELECT ` + userColumns + ` FROM profiles
			ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`
		rows, err = r.q.Query(ctx, query, limitArg(limit), offsetArg(offset))
	} else {
		query := `SELECT ` + userColumns + ` FROM profiles WHERE id = ANY($1::uuid[])
			ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
		rows, err = r.q.Query(ctx, query, uuidArgs(ids), limitArg(limit), offsetArg(offset))
	}
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var list []*entity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// SubordinateIDs un solo nivel: manager_id = managerID.
func (r *UserRepo) SubordinateIDs(ctx context.Context, managerID string) ([]string, error) {
	managerID, ok := uuidArg(managerID)
	if !ok {
		return []string{}, nil
	}
	rows, err := r.q.Query(ctx, `SELECT id FROM profiles WHERE manager_id = $1 ORDER BY id`, managerID)
	if err != nil {
		return nil, fmt.Errorf("list subordinates: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan subordinates: %w", err)
	}
	return ids, nil
}

// DeactivateAllExcept deja activo solo keepID y devuelve las filas cambiadas.
func (r *UserRepo) DeactivateAllExcept(ctx context.Context, keepID string) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE profiles SET active = (id = $1), updated_at = now()
		WHERE active IS DISTINCT FROM (id = $1)`, keepID)
	if err != nil {
		return 0, fmt.Errorf("deactivate profiles: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *UserRepo) scanOne(ctx context.Context, op, query string, arg any) (*entity.User, error) {
	u, err := scanUser(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func scanUser(row pgx.Row) (*entity.User, error) {
	var u entity.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.ManagerID, &u.Active, &u.AvatarKey, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
