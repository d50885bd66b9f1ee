package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/ledger"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/textsearch"
)

// HistoryFilter filtros del historial. ProductID vacío = todos los productos de la empresa.
// Search se compara contra el nombre del producto (sin tildes ni mayúsculas).
type HistoryFilter struct {
	ProductID string
	Type      string
	Search    string
	From      *time.Time
	To        *time.Time
	Page      dto.PageRequest
}

// HistoryUseCase lecturas de auditoría sobre el ledger.
type HistoryUseCase struct {
	movRepo         repository.StockMovementRepository
	productRepo     repository.ProductRepository
	defaultPageSize int
}

// NewHistoryUseCase construye el caso de uso.
func NewHistoryUseCase(movRepo repository.StockMovementRepository, productRepo repository.ProductRepository, defaultPageSize int) *HistoryUseCase {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &HistoryUseCase{movRepo: movRepo, productRepo: productRepo, defaultPageSize: defaultPageSize}
}

// History devuelve los movimientos más recientes primero. Incluye productos desactivados.
func (uc *HistoryUseCase) History(ctx context.Context, companyID string, f HistoryFilter) (*dto.MovementListResponse, error) {
	f.Page.DefaultPage(uc.defaultPageSize)
	filter := repository.MovementFilter{From: f.From, To: f.To, Limit: f.Page.Limit, Offset: f.Page.Offset}
	if f.Type != "" {
		t, err := entity.ParseMovementType(f.Type)
		if err != nil {
			return nil, domain.NewValidationError("type", err.Error())
		}
		filter.Type = t
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, domain.NewValidationError("to", "la fecha final es anterior a la inicial")
	}

	// Nombres resueltos desde el catálogo de productos: el movimiento no guarda el nombre.
	var catalog []*entity.Product
	if f.ProductID != "" {
		p, err := uc.productRepo.GetByID(ctx, companyID, f.ProductID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, domain.ErrNotFound
		}
		catalog = []*entity.Product{p}
	} else {
		list, err := uc.productRepo.ListByCompany(ctx, companyID, repository.ProductFilter{IncludeInactive: true})
		if err != nil {
			return nil, err
		}
		catalog = list
	}

	names := make(map[string]string, len(catalog))
	for _, p := range catalog {
		names[p.ID] = p.Name
	}
	if f.ProductID != "" || f.Search != "" {
		filter.ProductIDs = make([]string, 0, len(catalog))
		for _, p := range catalog {
			if textsearch.Contains(p.Name, f.Search) {
				filter.ProductIDs = append(filter.ProductIDs, p.ID)
			}
		}
	}

	out := &dto.MovementListResponse{
		Items: []dto.MovementResponse{},
		Page:  dto.PageResponse{Limit: f.Page.Limit, Offset: f.Page.Offset},
	}
	if filter.ProductIDs != nil && len(filter.ProductIDs) == 0 {
		return out, nil
	}
	list, err := uc.movRepo.List(ctx, companyID, filter)
	if err != nil {
		return nil, err
	}
	for _, m := range list {
		out.Items = append(out.Items, dto.NewMovementResponse(m, names[m.ProductID]))
	}
	return out, nil
}

// VerifyProduct re-pliega el historial completo del producto y lo compara con la cantidad cacheada.
func (uc *HistoryUseCase) VerifyProduct(ctx context.Context, companyID, productID string) (*dto.LedgerVerificationResponse, error) {
	p, err := uc.productRepo.GetByID(ctx, companyID, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	movements, err := uc.movRepo.ListByProductAsc(ctx, companyID, productID)
	if err != nil {
		return nil, err
	}
	report := ledger.VerifyChain(p.Quantity, movements)
	return &dto.LedgerVerificationResponse{
		ProductID:        productID,
		Consistent:       report.Consistent,
		MovementCount:    report.MovementCount,
		CachedQuantity:   report.CachedQuantity,
		FoldedQuantity:   report.FoldedQuantity,
		BrokenAtSequence: report.BrokenAtSequence,
	}, nil
}
