package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

const movementColumns = `id, company_id, product_id, type, quantity, previous_quantity, resulting_quantity,
	reason, notes, sequence, created_at, created_by`

// StockMovementRepo implementación sobre PostgreSQL (usable con pool o tx). Solo inserta y lee.
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create inserta el movimiento con la siguiente secuencia del producto.
// Dos transacciones que calculen la misma secuencia chocan con UNIQUE (product_id, sequence):
// la segunda recibe domain.ErrConflict.
func (r *StockMovementRepo) Create(ctx context.Context, movement *entity.StockMovement) error {
	query := `
		INSERT INTO stock_movements (` + movementColumns + `)
		SELECT $1::text, $2::text, $3::text, $4::text, $5::numeric, $6::numeric, $7::numeric, $8::text, $9::text,
			COALESCE(MAX(sequence), 0) + 1, $10::timestamptz, NULLIF($11::text, '')
		FROM stock_movements WHERE product_id = $3
		RETURNING sequence`
	err := r.q.QueryRow(ctx, query,
		movement.ID, movement.CompanyID, movement.ProductID, string(movement.Type),
		movement.Quantity, movement.PreviousQuantity, movement.ResultingQuantity,
		movement.Reason, movement.Notes, movement.CreatedAt, movement.CreatedBy,
	).Scan(&movement.Sequence)
	if err != nil {
		return mapMovementInsertError(err)
	}
	return nil
}

// mapMovementInsertError traduce los códigos de Postgres del INSERT de movimientos:
// secuencia repetida o serialización = otro movimiento ganó la carrera; FK = producto ajeno o inexistente.
func mapMovementInsertError(err error) error {
	switch {
	case isUniqueViolation(err), isSerializationFailure(err):
		return domain.ErrConflict
	case isForeignKeyViolation(err):
		return domain.ErrNotFound
	case isNumericOutOfRange(err):
		return domain.NewValidationError("quantity", "valor fuera de rango")
	}
	return fmt.Errorf("create stock movement: %w", err)
}

// List historial de la empresa, más reciente primero.
func (r *StockMovementRepo) List(ctx context.Context, companyID string, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	if filter.ProductIDs != nil && len(filter.ProductIDs) == 0 {
		return []*entity.StockMovement{}, nil
	}
	query := `SELECT ` + movementColumns + ` FROM stock_movements WHERE company_id = $1`
	args := []any{companyID}
	if filter.ProductIDs != nil {
		args = append(args, filter.ProductIDs)
		query += fmt.Sprintf(" AND product_id = ANY($%d)", len(args))
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		query += fmt.Sprintf(" AND type = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at DESC, sequence DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return r.query(ctx, query, args...)
}

// ListByProductAsc historial completo del producto en orden de secuencia.
func (r *StockMovementRepo) ListByProductAsc(ctx context.Context, companyID, productID string) ([]*entity.StockMovement, error) {
	query := `SELECT ` + movementColumns + `
		FROM stock_movements WHERE company_id = $1 AND product_id = $2 ORDER BY sequence`
	return r.query(ctx, query, companyID, productID)
}

func (r *StockMovementRepo) query(ctx context.Context, query string, args ...any) ([]*entity.StockMovement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.StockMovement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.StockMovement, error) {
	var m entity.StockMovement
	var typ string
	var createdBy *string
	if err := row.Scan(
		&m.ID, &m.CompanyID, &m.ProductID, &typ, &m.Quantity, &m.PreviousQuantity, &m.ResultingQuantity,
		&m.Reason, &m.Notes, &m.Sequence, &m.CreatedAt, &createdBy,
	); err != nil {
		return nil, err
	}
	m.Type = entity.MovementType(typ)
	if createdBy != nil {
		m.CreatedBy = *createdBy
	}
	return &m, nil
}
