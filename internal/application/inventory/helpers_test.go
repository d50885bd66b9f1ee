package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

const (
	companyA = "company-a"
	companyB = "company-b"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fastPolicy sin esperas entre reintentos.
func fastPolicy(attempts int) inventory.RetryPolicy {
	return inventory.RetryPolicy{MaxAttempts: attempts, CommitTimeout: 5 * time.Second}
}

// seedProduct crea el producto con su ajuste de existencia inicial, como lo hace el alta.
func seedProduct(t *testing.T, store *memory.Store, companyID, name string, qty decimal.Decimal, threshold *decimal.Decimal) *entity.Product {
	t.Helper()
	now := time.Now().UTC()
	p := &entity.Product{
		ID:               uuid.New().String(),
		CompanyID:        companyID,
		Name:             name,
		Unit:             entity.UnitMeasureUnit,
		Quantity:         qty,
		MinimumThreshold: threshold,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	err := store.Run(context.Background(), func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		if err := productRepo.Create(context.Background(), p); err != nil {
			return err
		}
		return movRepo.Create(context.Background(), &entity.StockMovement{
			ID:                uuid.New().String(),
			CompanyID:         companyID,
			ProductID:         p.ID,
			Type:              entity.MovementTypeAdjustment,
			Quantity:          qty,
			PreviousQuantity:  decimal.Zero,
			ResultingQuantity: qty,
			Reason:            "inventario inicial",
			CreatedAt:         now,
		})
	})
	require.NoError(t, err)
	return p
}

func threshold(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func currentQuantity(t *testing.T, store *memory.Store, companyID, productID string) decimal.Decimal {
	t.Helper()
	p, err := store.Products().GetByID(context.Background(), companyID, productID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Quantity
}

func movementsOf(t *testing.T, store *memory.Store, companyID, productID string) []*entity.StockMovement {
	t.Helper()
	list, err := store.Movements().ListByProductAsc(context.Background(), companyID, productID)
	require.NoError(t, err)
	return list
}

func requireChainConsistent(t *testing.T, store *memory.Store, companyID, productID string) ledger.ChainReport {
	t.Helper()
	report := ledger.VerifyChain(currentQuantity(t, store, companyID, productID), movementsOf(t, store, companyID, productID))
	require.True(t, report.Consistent, "cadena rota en secuencia %d (cacheado %s, plegado %s)",
		report.BrokenAtSequence, report.CachedQuantity, report.FoldedQuantity)
	return report
}

// interleavingRunner ejecuta before dentro de la tx, antes de las escrituras del caso de uso:
// simula otro escritor que confirma entre la lectura y el compare-and-swap.
type interleavingRunner struct {
	inner  inventory.TxRunner
	mu     sync.Mutex
	before func(attempt int) // nil = no intercalar
	calls  int
}

func (r *interleavingRunner) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	r.mu.Lock()
	r.calls++
	call, hook := r.calls, r.before
	r.mu.Unlock()
	return r.inner.Run(ctx, func(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository) error {
		if hook != nil {
			hook(call)
		}
		return fn(movRepo, productRepo)
	})
}

// recordingPublisher guarda los eventos publicados.
type recordingPublisher struct {
	mu        sync.Mutex
	movements []inventory.MovementRecordedEvent
	lowStock  []inventory.LowStockEvent
	err       error
}

func (p *recordingPublisher) PublishMovementRecorded(_ context.Context, e inventory.MovementRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.movements = append(p.movements, e)
	return p.err
}

func (p *recordingPublisher) PublishLowStock(_ context.Context, e inventory.LowStockEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lowStock = append(p.lowStock, e)
	return p.err
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total
}
