package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error, nada de lo escrito en la tx persiste.
// Garantiza atomicidad para el ledger: movimiento insertado + cantidad actualizada, o ninguno.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// EventPublisher publica eventos de inventario después del commit (mejor esfuerzo).
type EventPublisher interface {
	PublishMovementRecorded(ctx context.Context, event MovementRecordedEvent) error
	PublishLowStock(ctx context.Context, event LowStockEvent) error
}

// NoopPublisher descarta los eventos (sin broker configurado).
type NoopPublisher struct{}

func (NoopPublisher) PublishMovementRecorded(context.Context, MovementRecordedEvent) error {
	return nil
}

func (NoopPublisher) PublishLowStock(context.Context, LowStockEvent) error { return nil }
