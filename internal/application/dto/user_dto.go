package dto

import "time"

// CreateUserRequest alta de personal. Password es opcional (sin él solo entra por SSO).
type CreateUserRequest struct {
	Name      string  `json:"name"`
	Email     string  `json:"email"`
	Role      string  `json:"role"`
	ManagerID *string `json:"manager_id"`
	Password  string  `json:"password"`
}

// UpdateUserRequest cambios parciales; campos ausentes no cambian. manager_id "" quita el gerente.
type UpdateUserRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Active    *bool   `json:"active"`
	Role      *string `json:"role"`
	ManagerID *string `json:"manager_id"`
}

// UserResponse salida de un perfil (nunca incluye el hash).
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	ManagerID *string   `json:"manager_id"`
	Active    bool      `json:"active"`
	HasAvatar bool      `json:"has_avatar"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// GrantInput permiso de un módulo en PUT /api/usuarios/:id/permissions.
type GrantInput struct {
	Module string `json:"module"`
	View   bool   `json:"view"`
	Create bool   `json:"create"`
	Edit   bool   `json:"edit"`
	Delete bool   `json:"delete"`
}

// ReplaceGrantsRequest reemplaza el conjunto completo de permisos del usuario.
type ReplaceGrantsRequest struct {
	Permissions []GrantInput `json:"permissions"`
}

// PurgeRequest cuerpo de POST /api/admin/users/purge.
type PurgeRequest struct {
	KeepID string `json:"keepId"`
}

// PurgeResponse filas afectadas por la purga.
type PurgeResponse struct {
	KeepID           string `json:"keepId"`
	Deactivated      int64  `json:"deactivated"`
	PasswordsDeleted int64  `json:"passwords_deleted"`
	GrantsDeleted    int64  `json:"grants_deleted"`
}
