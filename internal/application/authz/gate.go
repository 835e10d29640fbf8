package authz

import (
	"context"
	"crypto/subtle"

	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
)

// Gate decide permitir/denegar por petición, sin estado entre peticiones.
// nil = permitido; domain.ErrForbidden = denegado.
type Gate struct {
	scoper *Scoper
}

// NewGate construye el gate sobre el scoper de visibilidad.
func NewGate(scoper *Scoper) *Gate {
	return &Gate{scoper: scoper}
}

// Authorize decide una acción sobre un registro ya cargado (o el nuevo registro en create).
// La existencia se comprueba antes de llamar aquí.
func (g *Gate) Authorize(ctx context.Context, actor *entity.Actor, action string, kind entity.ResourceKind, rec *entity.Record) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	if !actor.Active {
		return domain.ErrForbidden
	}
	if actor.Role == entity.RoleCustomer {
		return authorizeCustomer(actor, action, kind, rec)
	}
	if !entity.IsStaffRole(actor.Role) {
		return domain.ErrForbidden
	}

	if !kind.Owned() {
		if action == entity.ActionView {
			return nil
		}
		return authorizeSharedWrite(actor, kind)
	}

	if action == entity.ActionCreate {
		return nil
	}
	if rec == nil {
		return domain.ErrNotFound
	}
	if rec.OwnedBy(actor.ID) {
		return nil
	}
	scope, err := g.scoper.StaffScope(ctx, actor)
	if err != nil {
		return err
	}
	if scope.Contains(rec.OwnerID) {
		return nil
	}
	return domain.ErrForbidden
}

func authorizeCustomer(actor *entity.Actor, action string, kind entity.ResourceKind, rec *entity.Record) error {
	if kind.CustomerColumn == "" || actor.CustomerID == "" {
		return domain.ErrForbidden
	}
	switch action {
	case entity.ActionView:
		if rec.BelongsToCustomer(actor.CustomerID) {
			return nil
		}
	case entity.ActionCreate:
		if kind.CustomerCreate {
			return nil
		}
	}
	return domain.ErrForbidden
}

func authorizeSharedWrite(actor *entity.Actor, kind entity.ResourceKind) error {
	switch kind.Policy {
	case entity.WriteByManager:
		if actor.Role == entity.RoleAdmin || actor.Role == entity.RoleManager {
			return nil
		}
	case entity.WriteByAdmin:
		if actor.IsAdmin() {
			return nil
		}
	}
	return domain.ErrForbidden
}

// CanReassignOwner solo admin cambia el dueño de un registro.
func (g *Gate) CanReassignOwner(actor *entity.Actor) bool {
	return actor.IsAdmin() && actor.Active
}

// CanCreateUser valida la creación de personal y devuelve rol y gerente efectivos.
// Un gerente solo crea vendedores y el gerente del nuevo usuario es siempre él.
func (g *Gate) CanCreateUser(actor *entity.Actor, role string, managerID *string) (string, *string, error) {
	if actor == nil {
		return "", nil, domain.ErrUnauthenticated
	}
	if !actor.Active {
		return "", nil, domain.ErrForbidden
	}
	if role == "" {
		role = entity.RoleSalesperson
	}
	if !entity.IsStaffRole(role) {
		return "", nil, domain.ErrInvalidInput
	}
	switch actor.Role {
	case entity.RoleAdmin:
		return role, managerID, nil
	case entity.RoleManager:
		if role != entity.RoleSalesperson {
			return "", nil, domain.ErrForbidden
		}
		id := actor.ID
		return role, &id, nil
	}
	return "", nil, domain.ErrForbidden
}

// CanEditUser admin, el propio usuario o su gerente directo.
func (g *Gate) CanEditUser(actor *entity.Actor, target *entity.User) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	if !actor.Active || !entity.IsStaffRole(actor.Role) {
		return domain.ErrForbidden
	}
	if actor.IsAdmin() || actor.ID == target.ID {
		return nil
	}
	if actor.Role == entity.RoleManager && target.ManagedBy(actor.ID) {
		return nil
	}
	return domain.ErrForbidden
}

// SanitizeUserPatch descarta en silencio rol y gerente cuando el actor no es admin.
// Devuelve true si descartó algo.
func (g *Gate) SanitizeUserPatch(actor *entity.Actor, patch *entity.UserPatch) bool {
	if actor.IsAdmin() || !patch.HasPrivilegedFields() {
		return false
	}
	patch.Role = nil
	patch.ManagerID = nil
	return true
}

// CanDeleteUser admin o gerente directo; nadie se borra a sí mismo.
func (g *Gate) CanDeleteUser(actor *entity.Actor, target *entity.User) error {
	if err := g.CanEditUser(actor, target); err != nil {
		return err
	}
	if actor.ID == target.ID {
		return domain.ErrForbidden
	}
	return nil
}

// CanWriteGrants admin siempre, gerente sobre subordinados, cualquiera sobre sí mismo.
func (g *Gate) CanWriteGrants(actor *entity.Actor, target *entity.User) error {
	return g.CanEditUser(actor, target)
}

// CanPurge solo admin.
func (g *Gate) CanPurge(actor *entity.Actor) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	if !actor.IsAdmin() || !actor.Active {
		return domain.ErrForbidden
	}
	return nil
}

// CheckBootstrapSecret protege la ruta de bootstrap. No consulta actores ni sesiones.
// Con secreto configurado vacío la ruta queda siempre cerrada.
func CheckBootstrapSecret(configured, provided string) error {
	if configured == "" {
		return domain.ErrBootstrapSecretMissing
	}
	if provided == "" || subtle.ConstantTimeCompare([]byte(configured), []byte(provided)) != 1 {
		return domain.ErrForbidden
	}
	return nil
}
