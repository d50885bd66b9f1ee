package repository

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// ProductFilter filtros para listar productos de una empresa.
type ProductFilter struct {
	IncludeInactive bool
	Limit           int // 0 = sin límite
	Offset          int
}

// ProductRepository define el puerto de persistencia para Product (DIP).
// Todas las operaciones se acotan por companyID: un producto de otra empresa es inexistente.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	// GetByID devuelve (nil, nil) si no existe o pertenece a otra empresa.
	GetByID(ctx context.Context, companyID, id string) (*entity.Product, error)
	ListByCompany(ctx context.Context, companyID string, filter ProductFilter) ([]*entity.Product, error)
	// SetQuantity es compare-and-swap: solo escribe si la cantidad almacenada es expectedPrevious.
	// Devuelve domain.ErrConflict si no coincide y domain.ErrNotFound si el producto no existe.
	// Uso exclusivo del ledger de movimientos dentro de su transacción.
	SetQuantity(ctx context.Context, companyID, id string, newQuantity, expectedPrevious decimal.Decimal) (*entity.Product, error)
	UpdateThreshold(ctx context.Context, companyID, id string, threshold *decimal.Decimal) error
	Deactivate(ctx context.Context, companyID, id string) error
}
