package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// RecordRequest alta o cambio de un registro de negocio. En PATCH los campos ausentes no cambian
// y las claves de data se combinan con las existentes.
type RecordRequest struct {
	OwnerID    *string          `json:"owner_id"`
	CustomerID *string          `json:"customer_id"`
	Total      *decimal.Decimal `json:"total"`
	Data       json.RawMessage  `json:"data"`
}

// RecordResponse salida de un registro.
type RecordResponse struct {
	ID         string           `json:"id"`
	Kind       string           `json:"kind"`
	OwnerID    string           `json:"owner_id,omitempty"`
	CustomerID *string          `json:"customer_id,omitempty"`
	Total      *decimal.Decimal `json:"total,omitempty"`
	Data       json.RawMessage  `json:"data"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
