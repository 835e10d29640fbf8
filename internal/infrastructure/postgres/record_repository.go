package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

var _ repository.RecordRepository = (*RecordRepo)(nil)

// RecordRepo persistencia genérica de los recursos de negocio. Tabla y columnas salen del
// registro de entity.ResourceKind (nunca de la petición) y se escapan con pgx.Identifier.
// Cada tabla tiene id, created_at, updated_at y data jsonb; dueño, cliente y total según el tipo.
type RecordRepo struct {
	q Querier
}

// NewRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRecordRepository(q Querier) *RecordRepo {
	return &RecordRepo{q: q}
}

type recordLayout struct {
	table    string
	owner    string
	customer string // vacío también cuando el cliente es la propia fila
	total    bool
}

func layoutOf(kind entity.ResourceKind) recordLayout {
	l := recordLayout{table: pgx.Identifier{kind.Table}.Sanitize(), total: kind.HasTotal}
	if kind.Owned() {
		l.owner = pgx.Identifier{kind.OwnerColumn}.Sanitize()
	}
	if kind.CustomerColumn != "" && kind.CustomerColumn != "id" {
		l.customer = pgx.Identifier{kind.CustomerColumn}.Sanitize()
	}
	return l
}

// columns en el orden de Scan/Insert.
func (l recordLayout) columns() []string {
	cols := []string{"id"}
	if l.owner != "" {
		cols = append(cols, l.owner)
	}
	if l.customer != "" {
		cols = append(cols, l.customer)
	}
	if l.total {
		cols = append(cols, "total")
	}
	return append(cols, "data", "created_at", "updated_at")
}

func (l recordLayout) values(rec *entity.Record) []any {
	args := []any{rec.ID}
	if l.owner != "" {
		args = append(args, rec.OwnerID)
	}
	if l.customer != "" {
		args = append(args, rec.CustomerID)
	}
	if l.total {
		args = append(args, rec.Total)
	}
	data := rec.Data
	if len(data) == 0 {
		data = []byte(`{}`)
	}
	return append(args, data, rec.CreatedAt, rec.UpdatedAt)
}

func (l recordLayout) scan(kind entity.ResourceKind, row pgx.Row) (*entity.Record, error) {
	rec := &entity.Record{Kind: kind.Name}
	dest := []any{&rec.ID}
	if l.owner != "" {
		dest = append(dest, &rec.OwnerID)
	}
	if l.customer != "" {
		dest = append(dest, &rec.CustomerID)
	}
	if l.total {
		dest = append(dest, &rec.Total)
	}
	dest = append(dest, &rec.Data, &rec.CreatedAt, &rec.UpdatedAt)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	if kind.CustomerColumn == "id" {
		id := rec.ID
		rec.CustomerID = &id
	}
	return rec, nil
}

func placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ph, ", ")
}

// Create inserta el registro.
func (r *RecordRepo) Create(ctx context.Context, kind entity.ResourceKind, rec *entity.Record) error {
	l := layoutOf(kind)
	cols := l.columns()
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, l.table, strings.Join(cols, ", "), placeholders(1, len(cols)))
	if _, err := r.q.Exec(ctx, query, l.values(rec)...); err != nil {
		return fmt.Errorf("insert %s: %w", kind.Name, err)
	}
	return nil
}

// GetByID devuelve (nil, nil) si no existe.
func (r *RecordRepo) GetByID(ctx context.Context, kind entity.ResourceKind, id string) (*entity.Record, error) {
	id, ok := uuidArg(id)
	if !ok {
		return nil, nil
	}
	l := layoutOf(kind)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, strings.Join(l.columns(), ", "), l.table)
	rec, err := l.scan(kind, r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", kind.Name, err)
	}
	return rec, nil
}

// List aplica el filtro de visibilidad: dueño IN (...) o cliente = $n.
func (r *RecordRepo) List(ctx context.Context, kind entity.ResourceKind, filter repository.RecordFilter) ([]*entity.Record, error) {
	l := layoutOf(kind)
	var (
		where []string
		args  []any
	)
	if filter.OwnerIDs != nil {
		if l.owner == "" {
			return nil, fmt.Errorf("list %s: filtro de dueño sobre un recurso sin dueño", kind.Name)
		}
		args = append(args, uuidArgs(filter.OwnerIDs))
		where = append(where, fmt.Sprintf("%s = ANY($%d::uuid[])", l.owner, len(args)))
	}
	if filter.CustomerID != "" {
		col := l.customer
		if kind.CustomerColumn == "id" {
			col = "id"
		}
		if col == "" {
			return nil, fmt.Errorf("list %s: filtro de cliente sobre un recurso sin cliente", kind.Name)
		}
		cid, ok := uuidArg(filter.CustomerID)
		if !ok {
			return []*entity.Record{}, nil
		}
		args = append(args, cid)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM %s`, strings.Join(l.columns(), ", "), l.table)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limitArg(filter.Limit), offsetArg(filter.Offset))
	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind.Name, err)
	}
	defer rows.Close()

	list := []*entity.Record{}
	for rows.Next() {
		rec, err := l.scan(kind, rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", kind.Name, err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

// Update reescribe dueño, cliente, total y data. created_at no cambia.
func (r *RecordRepo) Update(ctx context.Context, kind entity.ResourceKind, rec *entity.Record) error {
	l := layoutOf(kind)
	cols := l.columns()
	values := l.values(rec)

	// cols[0] es id y el penúltimo created_at: no se actualizan.
	var set []string
	args := []any{rec.ID}
	for i := 1; i < len(cols); i++ {
		if cols[i] == "created_at" {
			continue
		}
		args = append(args, values[i])
		set = append(set, fmt.Sprintf("%s = $%d", cols[i], len(args)))
	}
	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, l.table, strings.Join(set, ", "))
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", kind.Name, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete borra por id; idempotente.
func (r *RecordRepo) Delete(ctx context.Context, kind entity.ResourceKind, id string) error {
	id, ok := uuidArg(id)
	if !ok {
		return nil
	}
	l := layoutOf(kind)
	if _, err := r.q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, l.table), id); err != nil {
		return fmt.Errorf("delete %s: %w", kind.Name, err)
	}
	return nil
}
