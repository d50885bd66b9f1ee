package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementFilter filtros del historial de movimientos. Los campos vacíos no filtran.
type MovementFilter struct {
	ProductIDs []string // nil = todos; slice vacío no nil = ninguno
	Type       entity.MovementType
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// StockMovementRepository puerto de persistencia del ledger (solo inserción y lectura).
type StockMovementRepository interface {
	// Create inserta el movimiento y asigna Sequence (siguiente posición del producto).
	Create(ctx context.Context, movement *entity.StockMovement) error
	// List devuelve los movimientos más recientes primero.
	List(ctx context.Context, companyID string, filter MovementFilter) ([]*entity.StockMovement, error)
	// ListByProductAsc devuelve todo el historial del producto en orden de aplicación.
	ListByProductAsc(ctx context.Context, companyID, productID string) ([]*entity.StockMovement, error)
}
