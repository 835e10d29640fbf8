package entity

import "time"

// Estados de la invitación al portal del cliente.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
)

// CustomerAccount es el acceso al portal de un cliente final. Vive fuera de la jerarquía del
// personal: tiene su propio hash de contraseña y solo ve filas cuyo cliente es ClientID.
type CustomerAccount struct {
	ID           string
	ClientID     string
	Email        string
	Name         string
	PasswordHash string
	InviteStatus string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
