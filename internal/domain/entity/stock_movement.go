package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de movimiento de inventario (conjunto cerrado).
type MovementType string

const (
	MovementTypeInflow     MovementType = "inflow"     // entrada
	MovementTypeOutflow    MovementType = "outflow"    // salida
	MovementTypeAdjustment MovementType = "adjustment" // ajuste a cantidad absoluta
	MovementTypeExpiry     MovementType = "expiry"     // vencimiento
	MovementTypeLoss       MovementType = "loss"       // pérdida
)

var validMovementTypes = []MovementType{
	MovementTypeInflow,
	MovementTypeOutflow,
	MovementTypeAdjustment,
	MovementTypeExpiry,
	MovementTypeLoss,
}

// MovementTypes devuelve los tipos válidos en orden canónico.
func MovementTypes() []MovementType {
	out := make([]MovementType, len(validMovementTypes))
	copy(out, validMovementTypes)
	return out
}

// IsValid indica si el tipo pertenece al conjunto cerrado.
func (t MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// IsDecrement indica si el tipo resta existencias (outflow, expiry, loss).
func (t MovementType) IsDecrement() bool {
	return t == MovementTypeOutflow || t == MovementTypeExpiry || t == MovementTypeLoss
}

// ParseMovementType convierte el valor crudo en MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("tipo de movimiento inválido %q", value)
}

// StockMovement registro inmutable de un cambio en la cantidad de un producto.
// PreviousQuantity es la cantidad justo antes de aplicar el movimiento y ResultingQuantity
// la que queda escrita en el producto. Sequence ordena los movimientos de un mismo producto.
type StockMovement struct {
	ID                string
	CompanyID         string
	ProductID         string
	Type              MovementType
	Quantity          decimal.Decimal
	PreviousQuantity  decimal.Decimal
	ResultingQuantity decimal.Decimal
	Reason            string
	Notes             string
	Sequence          int64
	CreatedAt         time.Time
	CreatedBy         string
}
