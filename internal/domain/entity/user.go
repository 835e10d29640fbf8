package entity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Roles del personal. RoleCustomer no es una fila de users: identifica al cliente final del portal.
const (
	RoleAdmin       = "admin"
	RoleManager     = "manager"
	RoleSalesperson = "salesperson"
	RoleCustomer    = "customer"
)

// IsStaffRole informa si el rol pertenece a la jerarquía interna.
func IsStaffRole(role string) bool {
	switch role {
	case RoleAdmin, RoleManager, RoleSalesperson:
		return true
	}
	return false
}

// User representa un perfil interno (tabla profiles).
// ManagerID forma una jerarquía de un nivel: los vendedores apuntan a su gerente.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      string
	ManagerID *string
	Active    bool
	AvatarKey string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ManagedBy indica si el usuario es subordinado directo de managerID.
func (u *User) ManagedBy(managerID string) bool {
	return u != nil && u.ManagerID != nil && *u.ManagerID == managerID
}

// NormalizeEmail aplica case folding Unicode y recorta espacios; se usa en las búsquedas
// insensibles a mayúsculas. Un Caser no se comparte entre goroutines.
func NormalizeEmail(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// UserPatch cambios parciales sobre un perfil; nil = sin cambio.
type UserPatch struct {
	Name      *string
	Email     *string
	Active    *bool
	Role      *string
	ManagerID *string // "" = quitar gerente
}

// HasPrivilegedFields informa si el patch toca rol o gerente.
func (p UserPatch) HasPrivilegedFields() bool {
	return p.Role != nil || p.ManagerID != nil
}
