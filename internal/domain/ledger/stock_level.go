package ledger

import (
	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// IsLowStock indica si la existencia está en o por debajo del umbral mínimo (10 por defecto).
func IsLowStock(p *entity.Product) bool {
	if p == nil {
		return false
	}
	return p.Quantity.LessThanOrEqual(p.Threshold())
}

// CrossedIntoLowStock indica si un movimiento llevó el producto de stock normal a stock bajo.
func CrossedIntoLowStock(threshold, previous, resulting decimal.Decimal) bool {
	return previous.GreaterThan(threshold) && resulting.LessThanOrEqual(threshold)
}

// ChainReport resultado de re-plegar el historial de un producto.
type ChainReport struct {
	Consistent       bool
	MovementCount    int
	CachedQuantity   decimal.Decimal
	FoldedQuantity   decimal.Decimal
	BrokenAtSequence int64 // 0 si la cadena es consistente
}

// VerifyChain recorre los movimientos en orden ascendente y comprueba que cada
// PreviousQuantity sea la ResultingQuantity del anterior (cero para el primero), que cada ResultingQuantity
// sea la que produce la fórmula del tipo y que la última coincida con la cantidad cacheada.
// Sin movimientos, la cantidad cacheada debe ser cero.
func VerifyChain(cached decimal.Decimal, movements []*entity.StockMovement) ChainReport {
	report := ChainReport{
		Consistent:     true,
		MovementCount:  len(movements),
		CachedQuantity: cached,
		FoldedQuantity: decimal.Zero,
	}
	current := decimal.Zero
	for _, m := range movements {
		if !m.PreviousQuantity.Equal(current) {
			report.Consistent = false
			report.BrokenAtSequence = m.Sequence
			break
		}
		expected, err := ResultingQuantity(m.Type, m.PreviousQuantity, m.Quantity)
		if err != nil || !expected.Equal(m.ResultingQuantity) {
			report.Consistent = false
			report.BrokenAtSequence = m.Sequence
			break
		}
		current = m.ResultingQuantity
	}
	report.FoldedQuantity = current
	if report.Consistent && !current.Equal(cached) {
		report.Consistent = false
	}
	return report
}
