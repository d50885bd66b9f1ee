package ledger

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// Límites de las columnas NUMERIC del almacenamiento: cantidades NUMERIC(18,4), precio NUMERIC(14,2).
const (
	QuantityScale = 4
	PriceScale    = 2
)

var (
	maxQuantity = decimal.New(1, 18-QuantityScale) // exclusivo
	maxPrice    = decimal.New(1, 14-PriceScale)
)

// CheckQuantity rechaza cantidades con más de 4 decimales o fuera del rango almacenable.
func CheckQuantity(field string, q decimal.Decimal) error {
	return checkNumeric(field, q, QuantityScale, maxQuantity)
}

// CheckPrice igual que CheckQuantity con 2 decimales.
func CheckPrice(field string, p decimal.Decimal) error {
	return checkNumeric(field, p, PriceScale, maxPrice)
}

func checkNumeric(field string, v decimal.Decimal, scale int32, limit decimal.Decimal) error {
	if !v.Truncate(scale).Equal(v) {
		return domain.NewValidationError(field, fmt.Sprintf("admite como máximo %d decimales", scale))
	}
	if v.Abs().GreaterThanOrEqual(limit) {
		return domain.NewValidationError(field, "valor fuera de rango")
	}
	return nil
}

// ValidateMovement verifica tipo, cantidad y motivo antes de tocar el almacenamiento.
// Reglas: inflow/outflow/expiry/loss exigen cantidad > 0; adjustment exige cantidad >= 0
// (es la cantidad absoluta objetivo); máximo 4 decimales; el motivo no puede estar vacío.
func ValidateMovement(t entity.MovementType, quantity decimal.Decimal, reason string) error {
	if !t.IsValid() {
		return domain.NewValidationError("type", "tipo de movimiento inválido")
	}
	if t == entity.MovementTypeAdjustment {
		if quantity.IsNegative() {
			return domain.NewValidationError("quantity", "el ajuste requiere una cantidad mayor o igual a cero")
		}
	} else if !quantity.IsPositive() {
		return domain.NewValidationError("quantity", "la cantidad debe ser mayor que cero")
	}
	if err := CheckQuantity("quantity", quantity); err != nil {
		return err
	}
	if strings.TrimSpace(reason) == "" {
		return domain.NewValidationError("reason", "el motivo es obligatorio")
	}
	return nil
}

// ResultingQuantity aplica la función de transición del tipo sobre la cantidad previa.
//
//	inflow:                previous + quantity
//	outflow/expiry/loss:   max(0, previous - quantity)
//	adjustment:            quantity
func ResultingQuantity(t entity.MovementType, previous, quantity decimal.Decimal) (decimal.Decimal, error) {
	switch t {
	case entity.MovementTypeInflow:
		resulting := previous.Add(quantity)
		if err := CheckQuantity("quantity", resulting); err != nil {
			return decimal.Zero, err
		}
		return resulting, nil
	case entity.MovementTypeOutflow, entity.MovementTypeExpiry, entity.MovementTypeLoss:
		return decimal.Max(decimal.Zero, previous.Sub(quantity)), nil
	case entity.MovementTypeAdjustment:
		return quantity, nil
	}
	return decimal.Zero, domain.NewValidationError("type", "tipo de movimiento inválido")
}
