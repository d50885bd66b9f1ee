// Package memory implementa los puertos del ledger en memoria (STORAGE_DRIVER=memory y tests).
// Las transacciones acumulan escrituras y las aplican al confirmar, bajo un único lock,
// verificando de nuevo cada compare-and-swap contra el estado confirmado.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var (
	_ inventory.TxRunner                 = (*Store)(nil)
	_ repository.ProductRepository       = (*ProductRepo)(nil)
	_ repository.StockMovementRepository = (*MovementRepo)(nil)
)

// Store estado confirmado compartido por todos los repositorios.
type Store struct {
	mu        sync.RWMutex
	products  map[string]*entity.Product
	byProduct map[string][]*entity.StockMovement // orden de aplicación
	log       []*entity.StockMovement            // orden de commit, todas las empresas
}

// NewStore crea un almacenamiento vacío.
func NewStore() *Store {
	return &Store{
		products:  make(map[string]*entity.Product),
		byProduct: make(map[string][]*entity.StockMovement),
	}
}

// Products repositorio de productos fuera de transacción.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Movements repositorio de movimientos fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

type casWrite struct {
	companyID string
	expected  decimal.Decimal // cantidad confirmada observada por la tx
	value     decimal.Decimal
}

type stagedMovement struct {
	m       *entity.StockMovement
	baseSeq int64 // última secuencia confirmada del producto al insertar
}

type tx struct {
	newProducts map[string]*entity.Product
	quantities  map[string]*casWrite
	movements   []stagedMovement
}

// Run ejecuta fn con repositorios atados a una tx nueva y confirma si fn no devuelve error.
func (s *Store) Run(ctx context.Context, fn func(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) error) error {
	t := &tx{
		newProducts: make(map[string]*entity.Product),
		quantities:  make(map[string]*casWrite),
	}
	if err := fn(&MovementRepo{s: s, tx: t}, &ProductRepo{s: s, tx: t}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range t.newProducts {
		if _, exists := s.products[id]; exists {
			return domain.ErrDuplicate
		}
	}
	for id, w := range t.quantities {
		p, ok := s.products[id]
		if !ok {
			return domain.ErrNotFound
		}
		if !p.Quantity.Equal(w.expected) {
			return domain.ErrConflict
		}
	}
	for _, sm := range t.movements {
		if _, staged := t.newProducts[sm.m.ProductID]; staged {
			continue
		}
		if s.lastSeqLocked(sm.m.ProductID) != sm.baseSeq {
			return domain.ErrConflict
		}
	}

	now := time.Now().UTC()
	for id, p := range t.newProducts {
		s.products[id] = p
	}
	for id, w := range t.quantities {
		p := cloneProduct(s.products[id])
		p.Quantity = w.value
		p.UpdatedAt = now
		s.products[id] = p
	}
	for _, sm := range t.movements {
		s.byProduct[sm.m.ProductID] = append(s.byProduct[sm.m.ProductID], sm.m)
		s.log = append(s.log, sm.m)
	}
	return nil
}

func (s *Store) lastSeqLocked(productID string) int64 {
	list := s.byProduct[productID]
	if len(list) == 0 {
		return 0
	}
	return list[len(list)-1].Sequence
}

// ProductRepo implementación en memoria de repository.ProductRepository.
type ProductRepo struct {
	s  *Store
	tx *tx
}

// Create guarda el producto (en la tx si la hay).
func (r *ProductRepo) Create(_ context.Context, product *entity.Product) error {
	p := cloneProduct(product)
	if r.tx != nil {
		r.s.mu.RLock()
		_, exists := r.s.products[p.ID]
		r.s.mu.RUnlock()
		if exists || r.tx.newProducts[p.ID] != nil {
			return domain.ErrDuplicate
		}
		r.tx.newProducts[p.ID] = p
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, exists := r.s.products[p.ID]; exists {
		return domain.ErrDuplicate
	}
	r.s.products[p.ID] = p
	return nil
}

// GetByID devuelve una copia; la tx ve sus propias escrituras.
func (r *ProductRepo) GetByID(_ context.Context, companyID, id string) (*entity.Product, error) {
	p := r.lookup(companyID, id)
	if p == nil {
		return nil, nil
	}
	return p, nil
}

func (r *ProductRepo) lookup(companyID, id string) *entity.Product {
	var p *entity.Product
	if r.tx != nil {
		if staged, ok := r.tx.newProducts[id]; ok {
			p = cloneProduct(staged)
		}
	}
	if p == nil {
		r.s.mu.RLock()
		committed, ok := r.s.products[id]
		if ok {
			p = cloneProduct(committed)
		}
		r.s.mu.RUnlock()
	}
	if p == nil || p.CompanyID != companyID {
		return nil
	}
	if r.tx != nil {
		if w, ok := r.tx.quantities[id]; ok {
			p.Quantity = w.value
		}
	}
	return p
}

// ListByCompany ordena por fecha de creación descendente (id como desempate).
func (r *ProductRepo) ListByCompany(_ context.Context, companyID string, filter repository.ProductFilter) ([]*entity.Product, error) {
	r.s.mu.RLock()
	list := make([]*entity.Product, 0)
	for _, p := range r.s.products {
		if p.CompanyID != companyID || (!p.Active && !filter.IncludeInactive) {
			continue
		}
		list = append(list, cloneProduct(p))
	}
	r.s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return paginate(list, filter.Limit, filter.Offset), nil
}

// SetQuantity compare-and-swap. Fuera de tx aplica de inmediato; dentro, se verifica otra vez al confirmar.
func (r *ProductRepo) SetQuantity(_ context.Context, companyID, id string, newQuantity, expectedPrevious decimal.Decimal) (*entity.Product, error) {
	if r.tx == nil {
		r.s.mu.Lock()
		defer r.s.mu.Unlock()
		p, ok := r.s.products[id]
		if !ok || p.CompanyID != companyID {
			return nil, domain.ErrNotFound
		}
		if !p.Quantity.Equal(expectedPrevious) {
			return nil, domain.ErrConflict
		}
		updated := cloneProduct(p)
		updated.Quantity = newQuantity
		updated.UpdatedAt = time.Now().UTC()
		r.s.products[id] = updated
		return cloneProduct(updated), nil
	}

	if staged, ok := r.tx.newProducts[id]; ok {
		if staged.CompanyID != companyID {
			return nil, domain.ErrNotFound
		}
		if !staged.Quantity.Equal(expectedPrevious) {
			return nil, domain.ErrConflict
		}
		staged.Quantity = newQuantity
		return cloneProduct(staged), nil
	}

	current := r.lookup(companyID, id)
	if current == nil {
		return nil, domain.ErrNotFound
	}
	if !current.Quantity.Equal(expectedPrevious) {
		return nil, domain.ErrConflict
	}
	if w, ok := r.tx.quantities[id]; ok {
		w.value = newQuantity
	} else {
		r.tx.quantities[id] = &casWrite{companyID: companyID, expected: expectedPrevious, value: newQuantity}
	}
	current.Quantity = newQuantity
	current.UpdatedAt = time.Now().UTC()
	return current, nil
}

// UpdateThreshold se aplica de inmediato (no participa en transacciones del ledger).
func (r *ProductRepo) UpdateThreshold(_ context.Context, companyID, id string, threshold *decimal.Decimal) error {
	return r.s.mutate(companyID, id, func(p *entity.Product) {
		if threshold == nil {
			p.MinimumThreshold = nil
			return
		}
		t := *threshold
		p.MinimumThreshold = &t
	})
}

// Deactivate marca el producto como inactivo.
func (r *ProductRepo) Deactivate(_ context.Context, companyID, id string) error {
	return r.s.mutate(companyID, id, func(p *entity.Product) { p.Active = false })
}

func (s *Store) mutate(companyID, id string, fn func(p *entity.Product)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok || p.CompanyID != companyID {
		return domain.ErrNotFound
	}
	updated := cloneProduct(p)
	fn(updated)
	updated.UpdatedAt = time.Now().UTC()
	s.products[id] = updated
	return nil
}

// MovementRepo implementación en memoria de repository.StockMovementRepository.
type MovementRepo struct {
	s  *Store
	tx *tx
}

// Create asigna la siguiente secuencia del producto y guarda una copia inmutable.
func (r *MovementRepo) Create(_ context.Context, movement *entity.StockMovement) error {
	if r.tx != nil {
		var base int64
		if staged, ok := r.tx.newProducts[movement.ProductID]; ok {
			if staged.CompanyID != movement.CompanyID {
				return domain.ErrNotFound
			}
		} else {
			r.s.mu.RLock()
			p, ok := r.s.products[movement.ProductID]
			base = r.s.lastSeqLocked(movement.ProductID)
			r.s.mu.RUnlock()
			if !ok || p.CompanyID != movement.CompanyID {
				return domain.ErrNotFound
			}
		}
		pending := int64(0)
		for _, sm := range r.tx.movements {
			if sm.m.ProductID == movement.ProductID {
				pending++
			}
		}
		movement.Sequence = base + pending + 1
		r.tx.movements = append(r.tx.movements, stagedMovement{m: cloneMovement(movement), baseSeq: base})
		return nil
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[movement.ProductID]
	if !ok || p.CompanyID != movement.CompanyID {
		return domain.ErrNotFound
	}
	movement.Sequence = r.s.lastSeqLocked(movement.ProductID) + 1
	m := cloneMovement(movement)
	r.s.byProduct[m.ProductID] = append(r.s.byProduct[m.ProductID], m)
	r.s.log = append(r.s.log, m)
	return nil
}

// List recorre el log de commits del más reciente al más antiguo.
func (r *MovementRepo) List(_ context.Context, companyID string, filter repository.MovementFilter) ([]*entity.StockMovement, error) {
	var allowed map[string]bool
	if filter.ProductIDs != nil {
		allowed = make(map[string]bool, len(filter.ProductIDs))
		for _, id := range filter.ProductIDs {
			allowed[id] = true
		}
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.StockMovement, 0)
	for i := len(r.s.log) - 1; i >= 0; i-- {
		m := r.s.log[i]
		if m.CompanyID != companyID {
			continue
		}
		if allowed != nil && !allowed[m.ProductID] {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if filter.From != nil && m.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && m.CreatedAt.After(*filter.To) {
			continue
		}
		out = append(out, cloneMovement(m))
	}
	return paginate(out, filter.Limit, filter.Offset), nil
}

// ListByProductAsc historial completo del producto en orden de aplicación.
func (r *MovementRepo) ListByProductAsc(_ context.Context, companyID, productID string) ([]*entity.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.StockMovement, 0, len(r.s.byProduct[productID]))
	for _, m := range r.s.byProduct[productID] {
		if m.CompanyID == companyID {
			out = append(out, cloneMovement(m))
		}
	}
	return out, nil
}

func paginate[T any](list []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(list) {
			return list[:0]
		}
		list = list[offset:]
	}
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

func cloneProduct(p *entity.Product) *entity.Product {
	c := *p
	if p.MinimumThreshold != nil {
		t := *p.MinimumThreshold
		c.MinimumThreshold = &t
	}
	return &c
}

func cloneMovement(m *entity.StockMovement) *entity.StockMovement {
	c := *m
	return &c
}
