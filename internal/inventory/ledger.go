// Package inventory keeps the stock and reserved counters of products.
//
// A Ledger does not open transactions. Callers bind it to the transaction that
// spans their whole operation so that counter checks and writes stay atomic with
// the order or session changes that caused them.
package inventory

import (
	"context"

	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/repository"
	"github.com/alocode/restopos/pkg/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Ledger struct {
	products  repository.ProductRepository
	movements repository.MovementRepository
}

// NewLedger binds a ledger to db, usually the caller's transaction
func NewLedger(db *gorm.DB) *Ledger {
	return New(repository.NewGormProductRepository(db), repository.NewGormMovementRepository(db))
}

func New(products repository.ProductRepository, movements repository.MovementRepository) *Ledger {
	return &Ledger{products: products, movements: movements}
}

// target is the row whose counters move for a request on a possibly derived product
type target struct {
	requested *domain.Product
	owner     *domain.Product
	qty       decimal.Decimal
}

// resolve redirects a derived product to its base exactly once, scaling the
// quantity by the conversion factor. The owner row is locked when lock is set.
func (l *Ledger) resolve(ctx context.Context, productID int64, qty decimal.Decimal, lock bool) (*target, error) {
	get := l.products.GetByID
	if lock {
		get = l.products.GetForUpdate
	}
	requested, err := get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !requested.IsDerived() {
		return &target{requested: requested, owner: requested, qty: qty}, nil
	}
	baseID := *requested.BaseProductID
	if baseID == requested.ID || !requested.ConversionFactor.IsPositive() {
		return nil, errors.Wrapf(domain.ErrInvalidConversion, "product %s", requested.Name)
	}
	base, err := get(ctx, baseID)
	if err != nil {
		return nil, err
	}
	if base.IsDerived() {
		return nil, errors.Wrapf(domain.ErrInvalidConversion, "base %s of %s is derived", base.Name, requested.Name)
	}
	return &target{requested: requested, owner: base, qty: qty.Mul(requested.ConversionFactor)}, nil
}

// CheckAvailable reports whether qty units of the product could be reserved now
func (l *Ledger) CheckAvailable(ctx context.Context, productID int64, qty decimal.Decimal) (bool, error) {
	t, err := l.resolve(ctx, productID, qty, false)
	if err != nil {
		return false, err
	}
	return t.owner.Available().GreaterThanOrEqual(t.qty), nil
}

// Reserve holds qty units for an order
func (l *Ledger) Reserve(ctx context.Context, productID int64, qty decimal.Decimal, orderID *int64) error {
	if !qty.IsPositive() {
		return errors.Wrapf(domain.ErrInvalidAmount, "reserve %s", qty)
	}
	t, err := l.resolve(ctx, productID, qty, true)
	if err != nil {
		return err
	}
	available := t.owner.Available()
	if available.LessThan(t.qty) {
		return errors.Wrapf(domain.ErrInsufficientStock, "%s: requested %s, available %s",
			t.requested.Name, t.qty.String(), available.String())
	}
	return l.apply(ctx, t, domain.MovementReserve, t.owner.Stock, t.owner.Reserved.Add(t.qty), orderID)
}

// Release returns a reservation; reserved never drops below zero
func (l *Ledger) Release(ctx context.Context, productID int64, qty decimal.Decimal, orderID *int64) error {
	t, err := l.resolve(ctx, productID, qty, true)
	if err != nil {
		return err
	}
	return l.apply(ctx, t, domain.MovementRelease, t.owner.Stock, floorZero(t.owner.Reserved.Sub(t.qty)), orderID)
}

// Consume turns a reservation into a real depletion of stock
func (l *Ledger) Consume(ctx context.Context, productID int64, qty decimal.Decimal, orderID *int64) error {
	t, err := l.resolve(ctx, productID, qty, true)
	if err != nil {
		return err
	}
	return l.apply(ctx, t, domain.MovementConsume,
		floorZero(t.owner.Stock.Sub(t.qty)), floorZero(t.owner.Reserved.Sub(t.qty)), orderID)
}

// Restock adds received stock to a base product
func (l *Ledger) Restock(ctx context.Context, productID int64, qty decimal.Decimal) (*domain.Product, error) {
	if !qty.IsPositive() {
		return nil, errors.Wrapf(domain.ErrInvalidAmount, "restock %s", qty)
	}
	p, err := l.products.GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.IsDerived() {
		return nil, errors.Wrapf(domain.ErrInvalidConversion, "%s is derived, restock its base product", p.Name)
	}
	t := &target{requested: p, owner: p, qty: qty}
	if err := l.apply(ctx, t, domain.MovementRestock, p.Stock.Add(qty), p.Reserved, nil); err != nil {
		return nil, err
	}
	p.Stock = p.Stock.Add(qty)
	return p, nil
}

func (l *Ledger) apply(ctx context.Context, t *target, kind domain.MovementKind,
	stock, reserved decimal.Decimal, orderID *int64) error {
	if err := l.products.UpdateCounters(ctx, t.owner.ID, stock, reserved); err != nil {
		return errors.Wrapf(err, "update counters of product %d", t.owner.ID)
	}
	move := &domain.StockMovement{
		ID:                 common.UUIDint64(),
		ProductID:          t.owner.ID,
		RequestedProductID: t.requested.ID,
		Kind:               kind,
		Quantity:           t.qty,
		StockBefore:        t.owner.Stock,
		StockAfter:         stock,
		ReservedBefore:     t.owner.Reserved,
		ReservedAfter:      reserved,
		OrderID:            orderID,
	}
	if err := l.movements.Create(ctx, move); err != nil {
		return errors.Wrap(err, "record stock movement")
	}
	zap.L().Debug("stock movement",
		zap.String("kind", string(kind)),
		zap.Int64("product_id", t.owner.ID),
		zap.String("qty", t.qty.String()),
		zap.String("stock", stock.String()),
		zap.String("reserved", reserved.String()),
		zap.String("namespace", "inventory"))
	return nil
}

// Availability lists active products with the units that can still be sold.
// Derived products report whole units of their base's free stock.
func (l *Ledger) Availability(ctx context.Context) ([]domain.ProductAvailability, error) {
	products, err := l.products.List(ctx, false)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	byID := make(map[int64]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	result := make([]domain.ProductAvailability, 0, len(products))
	for _, p := range products {
		if !p.Active {
			continue
		}
		result = append(result, domain.ProductAvailability{Product: *p, Available: available(p, byID)})
	}
	return result, nil
}

func available(p *domain.Product, byID map[int64]*domain.Product) decimal.Decimal {
	if !p.IsDerived() {
		return floorZero(p.Available())
	}
	base, ok := byID[*p.BaseProductID]
	if !ok || base.IsDerived() || !p.ConversionFactor.IsPositive() {
		return decimal.Zero
	}
	return floorZero(base.Available()).Div(p.ConversionFactor).Floor()
}

// Movements latest ledger entries of a product
func (l *Ledger) Movements(ctx context.Context, productID int64, limit int) ([]*domain.StockMovement, error) {
	return l.movements.ListByProduct(ctx, productID, limit)
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
