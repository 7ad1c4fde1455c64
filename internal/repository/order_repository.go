package repository

import (
	"context"
	"time"

	"github.com/alocode/restopos/internal/domain"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository is the GORM implementation of OrderRepository
type GormOrderRepository struct {
	db *gorm.DB
}

func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// Create inserts the order together with its lines
func (r *GormOrderRepository) Create(ctx context.Context, o *domain.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

// Update writes the order columns, lines are left untouched
func (r *GormOrderRepository) Update(ctx context.Context, o *domain.Order) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(o).Error
}

func (r *GormOrderRepository) ReplaceLines(ctx context.Context, orderID int64, lines []domain.OrderLine) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("order_id = ?", orderID).Delete(&domain.OrderLine{}).Error; err != nil {
		return errors.Wrapf(err, "delete lines of order %d", orderID)
	}
	if len(lines) == 0 {
		return nil
	}
	if err := db.Create(&lines).Error; err != nil {
		return errors.Wrapf(err, "insert lines of order %d", orderID)
	}
	return nil
}

func (r *GormOrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *GormOrderRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Order, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormOrderRepository) get(db *gorm.DB, id int64) (*domain.Order, error) {
	var o domain.Order
	err := preloadLines(db).Where("id = ?", id).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(domain.ErrOrderNotFound, "order %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load order %d", id)
	}
	return &o, nil
}

func (r *GormOrderRepository) ListByStates(ctx context.Context, states ...domain.OrderState) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := preloadLines(r.db.WithContext(ctx)).
		Where("state IN ?", states).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// ListPendingBefore PENDING orders created before the given instant
func (r *GormOrderRepository) ListPendingBefore(ctx context.Context, before time.Time) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := preloadLines(r.db.WithContext(ctx)).
		Where("state = ? AND created_at < ?", domain.OrderPending, before).
		Order("created_at ASC").
		Find(&orders).Error
	return orders, err
}

// ListBySession orders of a session, optionally filtered by state
func (r *GormOrderRepository) ListBySession(ctx context.Context, sessionID int64, states ...domain.OrderState) ([]*domain.Order, error) {
	var orders []*domain.Order
	query := preloadLines(r.db.WithContext(ctx)).Where("session_id = ?", sessionID)
	if len(states) > 0 {
		query = query.Where("state IN ?", states)
	}
	err := query.Order("created_at ASC").Find(&orders).Error
	return orders, err
}

// ListCompletedBetween COMPLETED orders whose completion time falls in [start, end]
func (r *GormOrderRepository) ListCompletedBetween(ctx context.Context, start, end time.Time) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := preloadLines(r.db.WithContext(ctx)).
		Where("state = ? AND completed_at BETWEEN ? AND ?", domain.OrderCompleted, start, end).
		Order("completed_at ASC").
		Find(&orders).Error
	return orders, err
}

// CountActiveOnTable non-terminal orders seated at the table, other than excludeOrderID
func (r *GormOrderRepository) CountActiveOnTable(ctx context.Context, tableID int64, excludeOrderID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("table_id = ? AND id <> ? AND state IN ?", tableID, excludeOrderID, domain.ActiveOrderStates).
		Count(&count).Error
	return count, err
}

// CountActiveLinesForProduct lines of non-terminal orders that reserved productID
func (r *GormOrderRepository) CountActiveLinesForProduct(ctx context.Context, productID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.OrderLine{}).
		Joins("JOIN pos_order ON pos_order.id = pos_order_line.order_id").
		Where("pos_order_line.product_id = ? AND pos_order.state IN ?", productID, domain.ActiveOrderStates).
		Count(&count).Error
	return count, err
}
