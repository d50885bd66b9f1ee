package dto

import (
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/ledger"
)

// NewMovementResponse aplana un movimiento; productName puede ir vacío.
func NewMovementResponse(m *entity.StockMovement, productName string) MovementResponse {
	return MovementResponse{
		ID:                m.ID,
		CompanyID:         m.CompanyID,
		ProductID:         m.ProductID,
		ProductName:       productName,
		Type:              string(m.Type),
		Quantity:          m.Quantity,
		PreviousQuantity:  m.PreviousQuantity,
		ResultingQuantity: m.ResultingQuantity,
		Reason:            m.Reason,
		Notes:             m.Notes,
		Sequence:          m.Sequence,
		CreatedAt:         m.CreatedAt,
		CreatedBy:         m.CreatedBy,
	}
}

// NewProductResponse aplana un producto con su umbral efectivo.
func NewProductResponse(p *entity.Product) *ProductResponse {
	if p == nil {
		return nil
	}
	return &ProductResponse{
		ID:               p.ID,
		CompanyID:        p.CompanyID,
		Name:             p.Name,
		Brand:            p.Brand,
		Category:         p.Category,
		Price:            p.Price,
		Unit:             string(p.Unit),
		OnHandQuantity:   p.Quantity,
		MinimumThreshold: p.Threshold(),
		LowStock:         ledger.IsLowStock(p),
		Active:           p.Active,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}
