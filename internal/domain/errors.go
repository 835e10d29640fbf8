package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// La capa HTTP traduce cada uno a un código estable; cualquier otro error es un fallo interno.
var (
	ErrUnauthenticated        = errors.New("sesión ausente, inválida o expirada")
	ErrForbidden              = errors.New("acceso denegado")
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrActorNotFound          = errors.New("no existe un usuario interno para la identidad")
	ErrInvalidCredentials     = errors.New("credenciales inválidas")
	ErrInvitationPending      = errors.New("invitación pendiente de aceptación")
	ErrAccountInactive        = errors.New("cuenta desactivada")
	ErrInvalidState           = errors.New("state de login inválido, expirado o ya usado")
	ErrBootstrapSecretMissing = errors.New("secreto de bootstrap no configurado")
	ErrLocalLoginDisabled     = errors.New("login local deshabilitado mientras el SSO esté activo")
	ErrEmailAlreadyExists     = errors.New("el email ya está registrado")
	ErrBlobStoreDisabled      = errors.New("almacenamiento de archivos no configurado")
	ErrSSODisabled            = errors.New("inicio de sesión SSO deshabilitado")
)
