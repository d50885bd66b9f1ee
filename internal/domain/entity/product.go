package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMinimumThreshold se aplica cuando el producto no tiene umbral configurado.
var DefaultMinimumThreshold = decimal.NewFromInt(10)

// UnitMeasure unidad de medida del producto.
type UnitMeasure string

const (
	UnitMeasureUnit  UnitMeasure = "unit"
	UnitMeasureML    UnitMeasure = "ml"
	UnitMeasureGram  UnitMeasure = "g"
	UnitMeasureKG    UnitMeasure = "kg"
	UnitMeasureLiter UnitMeasure = "liter"
)

var validUnitMeasures = []UnitMeasure{
	UnitMeasureUnit,
	UnitMeasureML,
	UnitMeasureGram,
	UnitMeasureKG,
	UnitMeasureLiter,
}

// IsValid indica si la unidad pertenece al catálogo.
func (u UnitMeasure) IsValid() bool {
	for _, candidate := range validUnitMeasures {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUnitMeasure convierte el valor crudo en UnitMeasure.
func ParseUnitMeasure(value string) (UnitMeasure, error) {
	for _, candidate := range validUnitMeasures {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("unidad de medida inválida %q", value)
}

// Product representa un producto del inventario de la empresa (una sola ubicación).
// Quantity es la cantidad en existencia cacheada: solo la modifica el ledger de movimientos.
// Name, Brand, Category y Price pertenecen al catálogo; aquí se leen para búsqueda y visualización.
type Product struct {
	ID               string
	CompanyID        string
	Name             string
	Brand            string
	Category         string
	Price            decimal.Decimal
	Unit             UnitMeasure
	Quantity         decimal.Decimal
	MinimumThreshold *decimal.Decimal // nil = DefaultMinimumThreshold
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Threshold devuelve el umbral mínimo efectivo.
func (p *Product) Threshold() decimal.Decimal {
	if p.MinimumThreshold == nil {
		return DefaultMinimumThreshold
	}
	return *p.MinimumThreshold
}
