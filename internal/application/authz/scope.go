package authz

import (
	"context"
	"fmt"

	"github.com/jhoicas/solar-crm-api/internal/domain"
	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

// Scope es el conjunto de dueños visibles para un actor.
// All = sin filtro; CustomerID != "" = filtro por cliente en lugar de por dueño.
type Scope struct {
	All        bool
	OwnerIDs   []string
	CustomerID string
}

// Contains prueba de pertenencia usada en lecturas y escrituras por id.
func (s Scope) Contains(ownerID string) bool {
	if s.All {
		return true
	}
	for _, id := range s.OwnerIDs {
		if id == ownerID {
			return true
		}
	}
	return false
}

// AllowsCustomer prueba de pertenencia para actores del portal.
func (s Scope) AllowsCustomer(customerID string) bool {
	return s.CustomerID != "" && s.CustomerID == customerID
}

// Filter traduce el scope al filtro del repositorio (IN de dueños o igualdad de cliente).
func (s Scope) Filter(limit, offset int) repository.RecordFilter {
	f := repository.RecordFilter{Limit: limit, Offset: offset, CustomerID: s.CustomerID}
	if !s.All && s.CustomerID == "" {
		f.OwnerIDs = append([]string{}, s.OwnerIDs...)
	}
	return f
}

// Scoper calcula la visibilidad por jerarquía. Se consulta en cada petición, sin caché.
// La jerarquía es plana: un gerente ve sus subordinados directos, no los de un subgerente.
type Scoper struct {
	users repository.UserRepository
}

// NewScoper construye el scoper.
func NewScoper(users repository.UserRepository) *Scoper {
	return &Scoper{users: users}
}

// Scope devuelve el conjunto visible para el actor sobre el tipo de recurso.
func (s *Scoper) Scope(ctx context.Context, actor *entity.Actor, kind entity.ResourceKind) (Scope, error) {
	if actor == nil {
		return Scope{}, domain.ErrUnauthenticated
	}
	if actor.Role == entity.RoleCustomer {
		if kind.CustomerColumn == "" || actor.CustomerID == "" {
			return Scope{}, domain.ErrForbidden
		}
		return Scope{CustomerID: actor.CustomerID}, nil
	}
	if !kind.Owned() {
		return Scope{All: true}, nil
	}
	return s.StaffScope(ctx, actor)
}

// StaffScope es la visibilidad sobre filas con dueño (también usada para listar usuarios).
func (s *Scoper) StaffScope(ctx context.Context, actor *entity.Actor) (Scope, error) {
	switch actor.Role {
	case entity.RoleAdmin:
		return Scope{All: true}, nil
	case entity.RoleManager:
		subs, err := s.users.SubordinateIDs(ctx, actor.ID)
		if err != nil {
			return Scope{}, fmt.Errorf("subordinados de %s: %w", actor.ID, err)
		}
		ids := make([]string, 0, len(subs)+1)
		ids = append(ids, actor.ID)
		for _, id := range subs {
			if id != actor.ID {
				ids = append(ids, id)
			}
		}
		return Scope{OwnerIDs: ids}, nil
	case entity.RoleSalesperson:
		return Scope{OwnerIDs: []string{actor.ID}}, nil
	}
	return Scope{}, domain.ErrForbidden
}
