package usecase

import (
	"context"
	"fmt"

	"github.com/jhoicas/solar-crm-api/internal/domain/entity"
	"github.com/jhoicas/solar-crm-api/internal/domain/repository"
)

// ModuleService consulta los permisos por módulo del front (permission_grants).
// Es el único punto de la aplicación que conoce la semántica de los grants.
type ModuleService struct {
	perms repository.PermissionRepository
}

// NewModuleService construye el servicio de módulos.
func NewModuleService(perms repository.PermissionRepository) *ModuleService {
	return &ModuleService{perms: perms}
}

// Allows aplica denegación explícita: una fila con el flag en false deniega la acción;
// sin fila no hay restricción adicional. Los admin y los clientes del portal no pasan por grants.
// Devuelve error solo ante fallos de infraestructura.
func (s *ModuleService) Allows(ctx context.Context, actor *entity.Actor, module, action string) (bool, error) {
	if actor == nil || module == "" {
		return false, fmt.Errorf("module: actor y módulo son obligatorios")
	}
	if actor.IsAdmin() || actor.Role == entity.RoleCustomer {
		return true, nil
	}
	g, err := s.perms.Get(ctx, actor.ID, module)
	if err != nil {
		return false, fmt.Errorf("module: grant %s/%s: %w", actor.ID, module, err)
	}
	if g == nil {
		return true, nil
	}
	return g.Allows(action), nil
}
