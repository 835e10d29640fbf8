package entity

// Acciones sobre un módulo; coinciden con las columnas de permission_grants.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionEdit   = "edit"
	ActionDelete = "delete"
)

// PermissionGrant es el permiso de un usuario sobre un módulo del front.
// Tras cualquier escritura hay como máximo una fila por (UserID, Module).
type PermissionGrant struct {
	UserID string `json:"user_id"`
	Module string `json:"module"`
	View   bool   `json:"view"`
	Create bool   `json:"create"`
	Edit   bool   `json:"edit"`
	Delete bool   `json:"delete"`
}

// Allows devuelve el flag correspondiente a la acción.
func (g PermissionGrant) Allows(action string) bool {
	switch action {
	case ActionView:
		return g.View
	case ActionCreate:
		return g.Create
	case ActionEdit:
		return g.Edit
	case ActionDelete:
		return g.Delete
	}
	return false
}
