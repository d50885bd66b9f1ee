package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordMovementRequest body para POST /api/inventory/movements.
type RecordMovementRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Type      string          `json:"type" validate:"required,oneof=inflow outflow adjustment expiry loss"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason" validate:"required,max=500"`
	Notes     string          `json:"notes,omitempty" validate:"max=2000"`
}

// MovementResponse registro plano de un movimiento (tablas y exportaciones).
type MovementResponse struct {
	ID                string          `json:"id"`
	CompanyID         string          `json:"company_id"`
	ProductID         string          `json:"product_id"`
	ProductName       string          `json:"product_name,omitempty"`
	Type              string          `json:"type"`
	Quantity          decimal.Decimal `json:"quantity"`
	PreviousQuantity  decimal.Decimal `json:"previous_quantity"`
	ResultingQuantity decimal.Decimal `json:"resulting_quantity"`
	Reason            string          `json:"reason"`
	Notes             string          `json:"notes,omitempty"`
	Sequence          int64           `json:"sequence"`
	CreatedAt         time.Time       `json:"created_at"`
	CreatedBy         string          `json:"created_by,omitempty"`
}

// MovementListResponse página del historial de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// LowStockItemDTO producto en o por debajo de su umbral mínimo, con la sugerencia de reposición.
type LowStockItemDTO struct {
	ProductID         string          `json:"product_id"`
	ProductName       string          `json:"product_name"`
	Brand             string          `json:"brand,omitempty"`
	Category          string          `json:"category,omitempty"`
	Unit              string          `json:"unit"`
	CurrentStock      decimal.Decimal `json:"current_stock"`
	MinimumThreshold  decimal.Decimal `json:"minimum_threshold"`
	IdealStock        decimal.Decimal `json:"ideal_stock"`         // MinimumThreshold * 1.5
	SuggestedOrderQty decimal.Decimal `json:"suggested_order_qty"` // IdealStock - CurrentStock
	Priority          int             `json:"priority"`            // 1 = más urgente
}

// LedgerVerificationResponse resultado de re-plegar el historial de un producto.
type LedgerVerificationResponse struct {
	ProductID        string          `json:"product_id"`
	Consistent       bool            `json:"consistent"`
	MovementCount    int             `json:"movement_count"`
	CachedQuantity   decimal.Decimal `json:"cached_quantity"`
	FoldedQuantity   decimal.Decimal `json:"folded_quantity"`
	BrokenAtSequence int64           `json:"broken_at_sequence,omitempty"`
}
