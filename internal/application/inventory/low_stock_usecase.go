package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// idealStockFactor nivel al que conviene reponer: 1.5 veces el umbral mínimo.
var idealStockFactor = decimal.NewFromFloat(1.5)

// LowStockUseCase reporte de productos en o por debajo de su umbral mínimo.
// Es una lectura pura sobre la cantidad cacheada; puede estar levemente desactualizado.
type LowStockUseCase struct {
	productRepo repository.ProductRepository
}

// NewLowStockUseCase construye el caso de uso del reporte.
func NewLowStockUseCase(productRepo repository.ProductRepository) *LowStockUseCase {
	return &LowStockUseCase{productRepo: productRepo}
}

// LowStockReport devuelve los productos activos de la empresa con stock bajo, del más crítico
// al menos crítico, con la cantidad sugerida de reposición.
func (uc *LowStockUseCase) LowStockReport(ctx context.Context, companyID string) ([]dto.LowStockItemDTO, error) {
	products, err := uc.productRepo.ListByCompany(ctx, companyID, repository.ProductFilter{})
	if err != nil {
		return nil, err
	}

	items := make([]dto.LowStockItemDTO, 0)
	for _, p := range products {
		if !p.Active || !ledger.IsLowStock(p) {
			continue
		}
		threshold := p.Threshold()
		ideal := threshold.Mul(idealStockFactor)
		suggested := ideal.Sub(p.Quantity)
		if suggested.IsNegative() {
			suggested = decimal.Zero
		}
		items = append(items, dto.LowStockItemDTO{
			ProductID:         p.ID,
			ProductName:       p.Name,
			Brand:             p.Brand,
			Category:          p.Category,
			Unit:              string(p.Unit),
			CurrentStock:      p.Quantity,
			MinimumThreshold:  threshold,
			IdealStock:        ideal,
			SuggestedOrderQty: suggested,
		})
	}

	// Primero los agotados, luego mayor déficit bajo el umbral; empate por nombre e id
	// para que dos lecturas sin escrituras intermedias den el mismo orden.
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.CurrentStock.IsZero() != b.CurrentStock.IsZero() {
			return a.CurrentStock.IsZero()
		}
		defA := a.MinimumThreshold.Sub(a.CurrentStock)
		defB := b.MinimumThreshold.Sub(b.CurrentStock)
		if !defA.Equal(defB) {
			return defA.GreaterThan(defB)
		}
		if a.ProductName != b.ProductName {
			return a.ProductName < b.ProductName
		}
		return a.ProductID < b.ProductID
	})

	for i := range items {
		items[i].Priority = i + 1
	}
	return items, nil
}
