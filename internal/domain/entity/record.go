package entity

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Record es una fila de negocio genérica (lead, cliente, presupuesto, factura...).
// Los campos específicos de cada tipo viajan en Data; el dueño y el cliente son columnas
// propias porque sobre ellas se filtra la visibilidad.
type Record struct {
	ID         string
	Kind       string
	OwnerID    string
	CustomerID *string
	Total      *decimal.Decimal
	Data       json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OwnedBy informa si el registro pertenece al usuario.
func (r *Record) OwnedBy(userID string) bool {
	return r != nil && r.OwnerID != "" && r.OwnerID == userID
}

// BelongsToCustomer informa si el registro es del cliente final indicado.
func (r *Record) BelongsToCustomer(clientID string) bool {
	return r != nil && r.CustomerID != nil && clientID != "" && *r.CustomerID == clientID
}
