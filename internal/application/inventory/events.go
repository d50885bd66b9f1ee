package inventory

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de evento publicados.
const (
	EventMovementRecorded = "stock.movement_recorded"
	EventLowStock         = "stock.low_stock"
)

// MovementRecordedEvent se emite por cada movimiento confirmado.
type MovementRecordedEvent struct {
	MovementID        string          `json:"movement_id"`
	CompanyID         string          `json:"company_id"`
	ProductID         string          `json:"product_id"`
	Type              string          `json:"type"`
	Quantity          decimal.Decimal `json:"quantity"`
	PreviousQuantity  decimal.Decimal `json:"previous_quantity"`
	ResultingQuantity decimal.Decimal `json:"resulting_quantity"`
	Sequence          int64           `json:"sequence"`
	OccurredAt        time.Time       `json:"occurred_at"`
}

// LowStockEvent se emite cuando un movimiento deja el producto en o bajo su umbral
// viniendo de estar por encima.
type LowStockEvent struct {
	CompanyID        string          `json:"company_id"`
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	CurrentStock     decimal.Decimal `json:"current_stock"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	MovementID       string          `json:"movement_id"`
	OccurredAt       time.Time       `json:"occurred_at"`
}
