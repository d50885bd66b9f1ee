package inventory

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
	"github.com/jhoicas/stock-ledger/pkg/metrics"
)

// RetryPolicy controla los reintentos ante conflicto CAS.
type RetryPolicy struct {
	MaxAttempts   int
	BaseBackoff   time.Duration // espera antes del intento n: BaseBackoff * 2^(n-2) + jitter
	CommitTimeout time.Duration // tope de la transacción; no depende de la cancelación del request
}

// DefaultRetryPolicy 3 intentos, 20ms de base, 5s por transacción.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseBackoff: 20 * time.Millisecond, CommitTimeout: 5 * time.Second}
}

// maxBackoffShift tope del crecimiento exponencial: BaseBackoff * 64.
const maxBackoffShift = 6

func (p RetryPolicy) backoff(attempt int) time.Duration {
	if p.BaseBackoff <= 0 {
		return 0
	}
	shift := min(max(attempt-1, 0), maxBackoffShift)
	d := p.BaseBackoff << shift
	return d + rand.N(p.BaseBackoff)
}

// RecordMovementUseCase registra movimientos de inventario: valida, calcula la cantidad resultante
// y confirma en una sola transacción el movimiento inmutable y la nueva cantidad del producto.
// La escritura de la cantidad es compare-and-swap contra la cantidad leída; si otro movimiento
// se confirmó en medio, la transacción se descarta y se reintenta con una lectura fresca.
type RecordMovementUseCase struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	publisher   EventPublisher
	metrics     *metrics.LedgerMetrics
	log         *logger.Logger
	policy      RetryPolicy
}

// NewRecordMovementUseCase construye el caso de uso. publisher, m y log son opcionales (nil).
func NewRecordMovementUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	publisher EventPublisher,
	m *metrics.LedgerMetrics,
	log *logger.Logger,
	policy RetryPolicy,
) *RecordMovementUseCase {
	if publisher == nil {
		publisher = NoopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.CommitTimeout <= 0 {
		policy.CommitTimeout = DefaultRetryPolicy().CommitTimeout
	}
	return &RecordMovementUseCase{
		txRunner:    txRunner,
		productRepo: productRepo,
		publisher:   publisher,
		metrics:     m,
		log:         log.Named("ledger"),
		policy:      policy,
	}
}

// MovementInputDTO entrada para registrar un movimiento de inventario.
// CompanyID es el tenant activo; UserID queda como autor del movimiento (opcional).
type MovementInputDTO struct {
	CompanyID string
	UserID    string
	ProductID string
	Type      entity.MovementType
	Quantity  decimal.Decimal
	Reason    string
	Notes     string
}

// RecordMovement valida la entrada y confirma el movimiento.
// Errores: *domain.ValidationError (ErrInvalidInput), domain.ErrNotFound, domain.ErrConflict
// tras agotar los reintentos, o el error de infraestructura sin modificar.
func (uc *RecordMovementUseCase) RecordMovement(ctx context.Context, input MovementInputDTO) (*entity.StockMovement, error) {
	if input.CompanyID == "" {
		return nil, domain.NewValidationError("company_id", "empresa requerida")
	}
	if input.ProductID == "" {
		return nil, domain.NewValidationError("product_id", "producto requerido")
	}
	if err := ledger.ValidateMovement(input.Type, input.Quantity, input.Reason); err != nil {
		return nil, err
	}
	input.Reason = strings.TrimSpace(input.Reason)
	input.Notes = strings.TrimSpace(input.Notes)

	for attempt := 1; ; attempt++ {
		res, err := uc.attempt(ctx, input)
		if err == nil {
			uc.metrics.IncRecorded(string(input.Type), attempt)
			uc.afterCommit(ctx, res)
			return res.movement, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		uc.metrics.IncConflict()
		if attempt >= uc.policy.MaxAttempts {
			uc.metrics.IncExhausted()
			uc.log.Warn().
				Str("company_id", input.CompanyID).
				Str("product_id", input.ProductID).
				Int("attempts", attempt).
				Msg("reintentos agotados por contención sobre el producto")
			return nil, domain.ErrConflict
		}
		uc.log.Debug().
			Str("product_id", input.ProductID).
			Int("attempt", attempt).
			Msg("conflicto CAS, reintentando con lectura fresca")
		if err := uc.wait(ctx, attempt+1); err != nil {
			return nil, err
		}
	}
}

type commitResult struct {
	movement *entity.StockMovement
	product  *entity.Product
	previous decimal.Decimal
}

// attempt lee la cantidad actual, calcula el resultado y confirma movimiento + CAS en una tx.
func (uc *RecordMovementUseCase) attempt(ctx context.Context, input MovementInputDTO) (*commitResult, error) {
	product, err := uc.productRepo.GetByID(ctx, input.CompanyID, input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil || !product.Active {
		return nil, domain.ErrNotFound
	}

	previous := product.Quantity
	resulting, err := ledger.ResultingQuantity(input.Type, previous, input.Quantity)
	if err != nil {
		return nil, err
	}
	mov := &entity.StockMovement{
		ID:                uuid.New().String(),
		CompanyID:         input.CompanyID,
		ProductID:         input.ProductID,
		Type:              input.Type,
		Quantity:          input.Quantity,
		PreviousQuantity:  previous,
		ResultingQuantity: resulting,
		Reason:            input.Reason,
		Notes:             input.Notes,
		CreatedAt:         time.Now().UTC(),
		CreatedBy:         input.UserID,
	}

	// Desde aquí la unidad de trabajo no se cancela con el request: termina o hace rollback.
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.policy.CommitTimeout)
	defer cancel()

	start := time.Now()
	var updated *entity.Product
	err = uc.txRunner.Run(txCtx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		if err := movRepo.Create(txCtx, mov); err != nil {
			return err
		}
		p, err := productRepo.SetQuantity(txCtx, input.CompanyID, input.ProductID, resulting, previous)
		if err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	uc.metrics.ObserveCommit(string(input.Type), time.Since(start))
	if updated == nil {
		updated = product
	}
	return &commitResult{movement: mov, product: updated, previous: previous}, nil
}

// afterCommit publica eventos; un fallo aquí no deshace el movimiento confirmado.
func (uc *RecordMovementUseCase) afterCommit(ctx context.Context, res *commitResult) {
	pubCtx := context.WithoutCancel(ctx)
	mov := res.movement
	if err := uc.publisher.PublishMovementRecorded(pubCtx, MovementRecordedEvent{
		MovementID:        mov.ID,
		CompanyID:         mov.CompanyID,
		ProductID:         mov.ProductID,
		Type:              string(mov.Type),
		Quantity:          mov.Quantity,
		PreviousQuantity:  mov.PreviousQuantity,
		ResultingQuantity: mov.ResultingQuantity,
		Sequence:          mov.Sequence,
		OccurredAt:        mov.CreatedAt,
	}); err != nil {
		uc.log.Warn().Err(err).Str("movement_id", mov.ID).Msg("publicar movimiento")
	}

	threshold := res.product.Threshold()
	if !ledger.CrossedIntoLowStock(threshold, res.previous, mov.ResultingQuantity) {
		return
	}
	if err := uc.publisher.PublishLowStock(pubCtx, LowStockEvent{
		CompanyID:        mov.CompanyID,
		ProductID:        mov.ProductID,
		ProductName:      res.product.Name,
		CurrentStock:     mov.ResultingQuantity,
		MinimumThreshold: threshold,
		MovementID:       mov.ID,
		OccurredAt:       mov.CreatedAt,
	}); err != nil {
		uc.log.Warn().Err(err).Str("product_id", mov.ProductID).Msg("publicar stock bajo")
	}
}

func (uc *RecordMovementUseCase) wait(ctx context.Context, attempt int) error {
	d := uc.policy.backoff(attempt - 1)
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
