package repository

import (
	"context"
	"time"

	"github.com/alocode/restopos/internal/domain"
	"gorm.io/gorm"
)

// GormMovementRepository is the GORM implementation of MovementRepository
type GormMovementRepository struct {
	db *gorm.DB
}

func NewGormMovementRepository(db *gorm.DB) *GormMovementRepository {
	return &GormMovementRepository{db: db}
}

func (r *GormMovementRepository) Create(ctx context.Context, m *domain.StockMovement) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *GormMovementRepository) ListByProduct(ctx context.Context, productID int64, limit int) ([]*domain.StockMovement, error) {
	var moves []*domain.StockMovement
	query := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&moves).Error
	return moves, err
}

// GormAuditRepository is the GORM implementation of AuditRepository
type GormAuditRepository struct {
	db *gorm.DB
}

func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Create(ctx context.Context, log *domain.SysOprLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

func (r *GormAuditRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("opt_time < ?", before).
		Delete(&domain.SysOprLog{})
	return result.RowsAffected, result.Error
}
