package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

func newRecorder(store *memory.Store, runner inventory.TxRunner, pub inventory.EventPublisher, attempts int) *inventory.RecordMovementUseCase {
	if runner == nil {
		runner = store
	}
	return inventory.NewRecordMovementUseCase(runner, store.Products(), pub, nil, nil, fastPolicy(attempts))
}

func input(productID string, t entity.MovementType, qty, reason string) inventory.MovementInputDTO {
	return inventory.MovementInputDTO{
		CompanyID: companyA,
		UserID:    "user-1",
		ProductID: productID,
		Type:      t,
		Quantity:  d(qty),
		Reason:    reason,
	}
}

func TestRecordMovement_EntradaSumaExistencia(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Tinte rubio", d("30"), threshold("10"))
	uc := newRecorder(store, nil, nil, 3)

	mov, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeInflow, "20", "purchase"))
	require.NoError(t, err)

	assert.True(t, mov.PreviousQuantity.Equal(d("30")))
	assert.True(t, mov.ResultingQuantity.Equal(d("50")))
	assert.Equal(t, int64(2), mov.Sequence)
	assert.Equal(t, "user-1", mov.CreatedBy)
	assert.True(t, currentQuantity(t, store, companyA, p.ID).Equal(d("50")))
	requireChainConsistent(t, store, companyA, p.ID)
}

func TestRecordMovement_SalidaMayorALaExistenciaQuedaEnCero(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Acetona", d("50"), nil)
	uc := newRecorder(store, nil, nil, 3)

	mov, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeOutflow, "80", "bulk sale"))
	require.NoError(t, err)

	assert.True(t, mov.PreviousQuantity.Equal(d("50")))
	assert.True(t, mov.ResultingQuantity.IsZero(), "se recorta a cero, no -30")
	assert.True(t, currentQuantity(t, store, companyA, p.ID).IsZero())
	requireChainConsistent(t, store, companyA, p.ID)
}

func TestRecordMovement_AjusteEsAbsoluto(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Guantes", d("0"), nil)
	uc := newRecorder(store, nil, nil, 3)

	mov, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeAdjustment, "12", "physical count"))
	require.NoError(t, err)
	assert.True(t, mov.PreviousQuantity.IsZero())
	assert.True(t, mov.ResultingQuantity.Equal(d("12")))

	mov, err = uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeAdjustment, "12", "recount"))
	require.NoError(t, err)
	assert.True(t, mov.ResultingQuantity.Equal(d("12")), "ajustar dos veces al mismo valor deja el mismo valor")
	requireChainConsistent(t, store, companyA, p.ID)
}

func TestRecordMovement_VencimientoYPerdidaRestan(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Crema", d("10"), nil)
	uc := newRecorder(store, nil, nil, 3)

	_, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeExpiry, "3", "vencido"))
	require.NoError(t, err)
	mov, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeLoss, "2.5", "roto"))
	require.NoError(t, err)

	assert.True(t, mov.PreviousQuantity.Equal(d("7")))
	assert.True(t, mov.ResultingQuantity.Equal(d("4.5")))
	requireChainConsistent(t, store, companyA, p.ID)
}

func TestRecordMovement_ValidacionNoCreaMovimiento(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Esmalte", d("20"), nil)
	uc := newRecorder(store, nil, nil, 3)

	tests := []struct {
		name  string
		in    inventory.MovementInputDTO
		field string
	}{
		{"cantidad negativa", input(p.ID, entity.MovementTypeInflow, "-5", "bad input"), "quantity"},
		{"cantidad cero", input(p.ID, entity.MovementTypeOutflow, "0", "nada"), "quantity"},
		{"motivo vacío", input(p.ID, entity.MovementTypeInflow, "5", "   "), "reason"},
		{"tipo inválido", input(p.ID, entity.MovementType("transfer"), "5", "x"), "type"},
		{"sin producto", input("", entity.MovementTypeInflow, "5", "x"), "product_id"},
		{"más de cuatro decimales", input(p.ID, entity.MovementTypeInflow, "0.00001", "muestra"), "quantity"},
		{"entrada desborda el rango", input(p.ID, entity.MovementTypeInflow, "99999999999990", "importación"), "quantity"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.RecordMovement(context.Background(), tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			var vErr *domain.ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}

	assert.Len(t, movementsOf(t, store, companyA, p.ID), 1, "solo el ajuste inicial")
	assert.True(t, currentQuantity(t, store, companyA, p.ID).Equal(d("20")))
}

func TestRecordMovement_AjusteEnCeroEsValido(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Toallas", d("7"), nil)
	uc := newRecorder(store, nil, nil, 3)

	mov, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeAdjustment, "0", "conteo físico"))
	require.NoError(t, err)
	assert.True(t, mov.ResultingQuantity.IsZero())
}

func TestRecordMovement_ProductoInexistenteOtroTenantOInactivo(t *testing.T) {
	store := memory.NewStore()
	ajeno := seedProduct(t, store, companyB, "Producto B", d("5"), nil)
	inactivo := seedProduct(t, store, companyA, "Viejo", d("5"), nil)
	require.NoError(t, store.Products().Deactivate(context.Background(), companyA, inactivo.ID))
	uc := newRecorder(store, nil, nil, 3)

	for _, id := range []string{"no-existe", ajeno.ID, inactivo.ID} {
		_, err := uc.RecordMovement(context.Background(), input(id, entity.MovementTypeInflow, "1", "x"))
		assert.ErrorIs(t, err, domain.ErrNotFound, id)
	}
	assert.True(t, currentQuantity(t, store, companyB, ajeno.ID).Equal(d("5")))
	assert.Len(t, movementsOf(t, store, companyB, ajeno.ID), 1)
}

func TestRecordMovement_ReintentaTrasConflicto(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Shampoo", d("20"), nil)
	other := newRecorder(store, nil, nil, 1)

	runner := &interleavingRunner{inner: store}
	runner.before = func(call int) {
		if call != 1 {
			return
		}
		_, err := other.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeInflow, "5", "compra concurrente"))
		require.NoError(t, err)
	}
	reg := prometheus.NewRegistry()
	uc := inventory.NewRecordMovementUseCase(runner, store.Products(), nil, metrics.NewLedgerMetrics(reg), nil, fastPolicy(3))

	mov, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeOutflow, "10", "venta"))
	require.NoError(t, err)

	assert.Equal(t, 2, runner.calls)
	assert.True(t, mov.PreviousQuantity.Equal(d("25")), "el reintento parte de la lectura fresca")
	assert.True(t, mov.ResultingQuantity.Equal(d("15")))
	assert.Equal(t, int64(3), mov.Sequence)
	assert.True(t, currentQuantity(t, store, companyA, p.ID).Equal(d("15")))
	requireChainConsistent(t, store, companyA, p.ID)
	assert.Equal(t, 1.0, counterValue(t, reg, "stock_cas_conflicts_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "stock_movements_recorded_total"))
}

func TestRecordMovement_ConflictoTrasAgotarReintentos(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Laca", d("20"), nil)
	other := newRecorder(store, nil, nil, 1)

	runner := &interleavingRunner{inner: store}
	runner.before = func(int) {
		_, err := other.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeInflow, "1", "otro escritor"))
		require.NoError(t, err)
	}
	reg := prometheus.NewRegistry()
	uc := inventory.NewRecordMovementUseCase(runner, store.Products(), nil, metrics.NewLedgerMetrics(reg), nil, fastPolicy(3))

	_, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeOutflow, "10", "venta"))
	require.ErrorIs(t, err, domain.ErrConflict)

	assert.Equal(t, 3, runner.calls)
	movs := movementsOf(t, store, companyA, p.ID)
	require.Len(t, movs, 4, "inicial + 3 del otro escritor, ninguno del intento fallido")
	for _, m := range movs[1:] {
		assert.Equal(t, entity.MovementTypeInflow, m.Type)
	}
	assert.True(t, currentQuantity(t, store, companyA, p.ID).Equal(d("23")))
	requireChainConsistent(t, store, companyA, p.ID)
	assert.Equal(t, 3.0, counterValue(t, reg, "stock_cas_conflicts_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "stock_retries_exhausted_total"))
}

func TestRecordMovement_ConcurrentesNoPierdenActualizaciones(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Keratina", d("20"), nil)
	uc := newRecorder(store, nil, nil, 1000)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for _, in := range []inventory.MovementInputDTO{
		input(p.ID, entity.MovementTypeOutflow, "10", "venta"),
		input(p.ID, entity.MovementTypeInflow, "5", "compra"),
	} {
		wg.Add(1)
		go func(in inventory.MovementInputDTO) {
			defer wg.Done()
			_, err := uc.RecordMovement(context.Background(), in)
			errs <- err
		}(in)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.True(t, currentQuantity(t, store, companyA, p.ID).Equal(d("15")))
	report := requireChainConsistent(t, store, companyA, p.ID)
	assert.Equal(t, 3, report.MovementCount)
}

func TestRecordMovement_CargaConcurrente(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Algodón", d("1000"), nil)
	uc := newRecorder(store, nil, nil, 10000)

	const writers = 25
	var wg sync.WaitGroup
	var failed sync.Map
	for i := 0; i < writers; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			if _, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeInflow, "3", "compra")); err != nil {
				failed.Store(i, err)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			if _, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeOutflow, "2", "venta")); err != nil {
				failed.Store(-i-1, err)
			}
		}(i)
	}
	wg.Wait()

	failed.Range(func(k, v any) bool {
		t.Errorf("escritor %v: %v", k, v)
		return true
	})
	assert.True(t, currentQuantity(t, store, companyA, p.ID).Equal(d("1025")))
	report := requireChainConsistent(t, store, companyA, p.ID)
	assert.Equal(t, 1+2*writers, report.MovementCount)

	movs := movementsOf(t, store, companyA, p.ID)
	for i, m := range movs {
		assert.Equal(t, int64(i+1), m.Sequence)
	}
}

func TestRecordMovement_PublicaEventos(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Tinte", d("12"), threshold("10"))
	pub := &recordingPublisher{}
	uc := newRecorder(store, nil, pub, 3)

	_, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeOutflow, "1", "venta"))
	require.NoError(t, err)
	assert.Len(t, pub.movements, 1)
	assert.Empty(t, pub.lowStock, "11 sigue por encima del umbral")

	mov, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeOutflow, "3", "venta"))
	require.NoError(t, err)
	require.Len(t, pub.lowStock, 1)
	ev := pub.lowStock[0]
	assert.Equal(t, p.ID, ev.ProductID)
	assert.Equal(t, "Tinte", ev.ProductName)
	assert.True(t, ev.CurrentStock.Equal(d("8")))
	assert.True(t, ev.MinimumThreshold.Equal(d("10")))
	assert.Equal(t, mov.ID, ev.MovementID)

	_, err = uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeOutflow, "1", "venta"))
	require.NoError(t, err)
	assert.Len(t, pub.lowStock, 1, "ya estaba bajo: no se repite")
	assert.Len(t, pub.movements, 3)
	assert.Equal(t, int64(4), pub.movements[2].Sequence)
}

func TestRecordMovement_FalloDelPublicadorNoAfectaElCommit(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Tinte", d("12"), nil)
	pub := &recordingPublisher{err: errors.New("broker caído")}
	uc := newRecorder(store, nil, pub, 3)

	mov, err := uc.RecordMovement(context.Background(), input(p.ID, entity.MovementTypeOutflow, "5", "venta"))
	require.NoError(t, err)
	assert.NotEmpty(t, mov.ID)
	assert.True(t, currentQuantity(t, store, companyA, p.ID).Equal(d("7")))
}

func TestRecordMovement_CancelacionTrasConfirmarNoPierdeElMovimiento(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Gel", d("10"), nil)
	ctx, cancel := context.WithCancel(context.Background())

	runner := &interleavingRunner{inner: store, before: func(int) { cancel() }}
	uc := inventory.NewRecordMovementUseCase(runner, store.Products(), nil, nil, nil, fastPolicy(3))

	mov, err := uc.RecordMovement(ctx, input(p.ID, entity.MovementTypeInflow, "4", "compra"))
	require.NoError(t, err, "la tx corre desacoplada de la cancelación del request")
	assert.True(t, mov.ResultingQuantity.Equal(d("14")))
	requireChainConsistent(t, store, companyA, p.ID)
}

func TestRecordMovementFromRequest(t *testing.T) {
	store := memory.NewStore()
	p := seedProduct(t, store, companyA, "Tinte", d("5"), nil)
	uc := newRecorder(store, nil, nil, 3)

	out, err := uc.RecordMovementFromRequest(context.Background(), companyA, "user-9", dto.RecordMovementRequest{
		ProductID: p.ID,
		Type:      "inflow",
		Quantity:  d("2"),
		Reason:    "  compra  ",
		Notes:     "factura 123",
	})
	require.NoError(t, err)
	assert.Equal(t, "inflow", out.Type)
	assert.Equal(t, "compra", out.Reason)
	assert.Equal(t, "user-9", out.CreatedBy)
	assert.True(t, out.ResultingQuantity.Equal(d("7")))

	_, err = uc.RecordMovementFromRequest(context.Background(), companyA, "user-9", dto.RecordMovementRequest{
		ProductID: p.ID, Type: "gift", Quantity: d("2"), Reason: "x",
	})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "type", vErr.Field)
}
