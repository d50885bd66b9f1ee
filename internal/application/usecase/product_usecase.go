package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// InitialStockReason motivo del movimiento implícito que registra la existencia inicial.
const InitialStockReason = "inventario inicial"

// ProductUseCase casos de uso del almacén de productos. La cantidad solo cambia vía movimientos:
// el alta registra su existencia inicial como un ajuste en el ledger.
type ProductUseCase struct {
	repo     repository.ProductRepository
	txRunner inventory.TxRunner
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(repo repository.ProductRepository, txRunner inventory.TxRunner) *ProductUseCase {
	return &ProductUseCase{repo: repo, txRunner: txRunner}
}

// Create da de alta un producto y, en la misma transacción, el ajuste de existencia inicial.
func (uc *ProductUseCase) Create(ctx context.Context, companyID, userID string, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	if companyID == "" {
		return nil, domain.NewValidationError("company_id", "empresa requerida")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, domain.NewValidationError("name", "el nombre es obligatorio")
	}
	unit, err := entity.ParseUnitMeasure(in.Unit)
	if err != nil {
		return nil, domain.NewValidationError("unit", err.Error())
	}
	if in.InitialQuantity.IsNegative() {
		return nil, domain.NewValidationError("initial_quantity", "la existencia inicial no puede ser negativa")
	}
	if in.MinimumThreshold != nil && in.MinimumThreshold.IsNegative() {
		return nil, domain.NewValidationError("minimum_threshold", "el umbral mínimo no puede ser negativo")
	}
	if in.Price.IsNegative() {
		return nil, domain.NewValidationError("price", "el precio no puede ser negativo")
	}
	if err := ledger.CheckQuantity("initial_quantity", in.InitialQuantity); err != nil {
		return nil, err
	}
	if in.MinimumThreshold != nil {
		if err := ledger.CheckQuantity("minimum_threshold", *in.MinimumThreshold); err != nil {
			return nil, err
		}
	}
	if err := ledger.CheckPrice("price", in.Price); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &entity.Product{
		ID:               uuid.New().String(),
		CompanyID:        companyID,
		Name:             strings.TrimSpace(in.Name),
		Brand:            strings.TrimSpace(in.Brand),
		Category:         strings.TrimSpace(in.Category),
		Price:            in.Price,
		Unit:             unit,
		Quantity:         in.InitialQuantity,
		MinimumThreshold: in.MinimumThreshold,
		Active:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	initial := &entity.StockMovement{
		ID:                uuid.New().String(),
		CompanyID:         companyID,
		ProductID:         product.ID,
		Type:              entity.MovementTypeAdjustment,
		Quantity:          in.InitialQuantity,
		PreviousQuantity:  decimal.Zero,
		ResultingQuantity: in.InitialQuantity,
		Reason:            InitialStockReason,
		CreatedAt:         now,
		CreatedBy:         userID,
	}

	err = uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		if err := productRepo.Create(ctx, product); err != nil {
			return err
		}
		return movRepo.Create(ctx, initial)
	})
	if err != nil {
		return nil, err
	}
	return dto.NewProductResponse(product), nil
}

// Get obtiene un producto de la empresa. Otro tenant o inexistente = domain.ErrNotFound.
func (uc *ProductUseCase) Get(ctx context.Context, companyID, id string) (*dto.ProductResponse, error) {
	product, err := uc.repo.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	return dto.NewProductResponse(product), nil
}

// List lista productos por empresa con paginación.
func (uc *ProductUseCase) List(ctx context.Context, companyID string, includeInactive bool, page dto.PageRequest) (*dto.ProductListResponse, error) {
	list, err := uc.repo.ListByCompany(ctx, companyID, repository.ProductFilter{
		IncludeInactive: includeInactive,
		Limit:           page.Limit,
		Offset:          page.Offset,
	})
	if err != nil {
		return nil, err
	}
	items := make([]dto.ProductResponse, 0, len(list))
	for _, p := range list {
		items = append(items, *dto.NewProductResponse(p))
	}
	return &dto.ProductListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}, nil
}

// UpdateThreshold cambia el umbral mínimo; nil vuelve al valor por defecto (10).
func (uc *ProductUseCase) UpdateThreshold(ctx context.Context, companyID, id string, threshold *decimal.Decimal) (*dto.ProductResponse, error) {
	if threshold != nil {
		if threshold.IsNegative() {
			return nil, domain.NewValidationError("minimum_threshold", "el umbral mínimo no puede ser negativo")
		}
		if err := ledger.CheckQuantity("minimum_threshold", *threshold); err != nil {
			return nil, err
		}
	}
	if err := uc.repo.UpdateThreshold(ctx, companyID, id, threshold); err != nil {
		return nil, err
	}
	return uc.Get(ctx, companyID, id)
}

// Deactivate desactiva el producto (nunca se borra: sus movimientos lo referencian).
func (uc *ProductUseCase) Deactivate(ctx context.Context, companyID, id string) error {
	return uc.repo.Deactivate(ctx, companyID, id)
}
