package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest entrada para dar de alta un producto con su existencia inicial.
type CreateProductRequest struct {
	Name             string           `json:"name" validate:"required,min=1,max=200"`
	Brand            string           `json:"brand" validate:"max=120"`
	Category         string           `json:"category" validate:"max=120"`
	Price            decimal.Decimal  `json:"price"`
	Unit             string           `json:"unit" validate:"required,oneof=unit ml g kg liter"`
	InitialQuantity  decimal.Decimal  `json:"initial_quantity"`
	MinimumThreshold *decimal.Decimal `json:"minimum_threshold,omitempty"`
}

// UpdateThresholdRequest body para PATCH /api/products/:id/threshold. nil vuelve al valor por defecto.
type UpdateThresholdRequest struct {
	MinimumThreshold *decimal.Decimal `json:"minimum_threshold"`
}

// ProductResponse salida plana de un producto.
type ProductResponse struct {
	ID               string          `json:"id"`
	CompanyID        string          `json:"company_id"`
	Name             string          `json:"name"`
	Brand            string          `json:"brand,omitempty"`
	Category         string          `json:"category,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Unit             string          `json:"unit"`
	OnHandQuantity   decimal.Decimal `json:"on_hand_quantity"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	LowStock         bool            `json:"low_stock"`
	Active           bool            `json:"active"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// ProductListResponse lista paginada de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
