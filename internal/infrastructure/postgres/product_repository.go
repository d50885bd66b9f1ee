package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, company_id, name, brand, category, price, unit_measure, on_hand_quantity,
	minimum_threshold, active, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		product.ID, product.CompanyID, product.Name, product.Brand, product.Category,
		product.Price, string(product.Unit), product.Quantity, product.MinimumThreshold,
		product.Active, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID obtiene un producto de la empresa. (nil, nil) si no existe.
func (r *ProductRepo) GetByID(ctx context.Context, companyID, id string) (*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND company_id = $2`
	p, err := scanProduct(r.q.QueryRow(ctx, query, id, companyID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// ListByCompany lista productos por empresa con paginación.
func (r *ProductRepo) ListByCompany(ctx context.Context, companyID string, filter repository.ProductFilter) ([]*entity.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE company_id = $1`
	args := []any{companyID}
	if !filter.IncludeInactive {
		query += ` AND active`
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// SetQuantity escribe la nueva cantidad solo si la almacenada sigue siendo expectedPrevious.
func (r *ProductRepo) SetQuantity(ctx context.Context, companyID, id string, newQuantity, expectedPrevious decimal.Decimal) (*entity.Product, error) {
	query := `
		UPDATE products SET on_hand_quantity = $4, updated_at = now()
		WHERE id = $1 AND company_id = $2 AND on_hand_quantity = $3
		RETURNING ` + productColumns
	p, err := scanProduct(r.q.QueryRow(ctx, query, id, companyID, expectedPrevious, newQuantity))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		if isSerializationFailure(err) {
			return nil, domain.ErrConflict
		}
		return nil, fmt.Errorf("set product quantity: %w", err)
	}

	var exists bool
	if err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND company_id = $2)`,
		id, companyID,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check product: %w", err)
	}
	if !exists {
		return nil, domain.ErrNotFound
	}
	return nil, domain.ErrConflict
}

// UpdateThreshold cambia el umbral mínimo (NULL = valor por defecto).
func (r *ProductRepo) UpdateThreshold(ctx context.Context, companyID, id string, threshold *decimal.Decimal) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE products SET minimum_threshold = $3, updated_at = now() WHERE id = $1 AND company_id = $2`,
		id, companyID, threshold,
	)
	if err != nil {
		return fmt.Errorf("update product threshold: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Deactivate desactiva el producto; sus movimientos se conservan.
func (r *ProductRepo) Deactivate(ctx context.Context, companyID, id string) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE products SET active = false, updated_at = now() WHERE id = $1 AND company_id = $2`,
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	var unit string
	var threshold *decimal.Decimal
	if err := row.Scan(
		&p.ID, &p.CompanyID, &p.Name, &p.Brand, &p.Category, &p.Price, &unit, &p.Quantity,
		&threshold, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Unit = entity.UnitMeasure(unit)
	p.MinimumThreshold = threshold
	return &p, nil
}
