package inventory

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RecordMovementFromRequest adapta el request HTTP al caso de uso RecordMovement(ctx, MovementInputDTO).
// Usar desde handlers HTTP o importaciones por lote que tengan companyID, userID y dto.RecordMovementRequest.
func (uc *RecordMovementUseCase) RecordMovementFromRequest(ctx context.Context, companyID, userID string, in dto.RecordMovementRequest) (*dto.MovementResponse, error) {
	movType, err := entity.ParseMovementType(in.Type)
	if err != nil {
		return nil, domain.NewValidationError("type", err.Error())
	}
	mov, err := uc.RecordMovement(ctx, MovementInputDTO{
		CompanyID: companyID,
		UserID:    userID,
		ProductID: in.ProductID,
		Type:      movType,
		Quantity:  in.Quantity,
		Reason:    in.Reason,
		Notes:     in.Notes,
	})
	if err != nil {
		return nil, err
	}
	out := dto.NewMovementResponse(mov, "")
	return &out, nil
}
