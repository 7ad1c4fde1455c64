package repository

import (
	"context"
	"strings"
	"time"

	"github.com/alocode/restopos/internal/domain"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductRepository is the GORM implementation of ProductRepository
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a product repository over db, which may be a transaction
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

func (r *GormProductRepository) Create(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *GormProductRepository) Save(ctx context.Context, p *domain.Product) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *GormProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *GormProductRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormProductRepository) get(db *gorm.DB, id int64) (*domain.Product, error) {
	var p domain.Product
	err := db.Where("id = ?", id).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(domain.ErrProductNotFound, "product %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load product %d", id)
	}
	return &p, nil
}

func (r *GormProductRepository) UpdateCounters(ctx context.Context, id int64, stock, reserved decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":      stock,
			"reserved":   reserved,
			"updated_at": time.Now(),
		}).Error
}

func (r *GormProductRepository) CountDerivedFrom(ctx context.Context, baseID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Product{}).
		Where("base_product_id = ?", baseID).
		Count(&count).Error
	return count, err
}

func (r *GormProductRepository) List(ctx context.Context, activeOnly bool) ([]*domain.Product, error) {
	var products []*domain.Product
	query := r.db.WithContext(ctx)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	err := query.Order("id ASC").Find(&products).Error
	return products, err
}

func (r *GormProductRepository) Search(ctx context.Context, q string) ([]*domain.Product, error) {
	var products []*domain.Product
	query := r.db.WithContext(ctx).Where("active = ?", true)
	if q = strings.TrimSpace(q); q != "" {
		if strings.EqualFold(r.db.Name(), "postgres") {
			query = query.Where("name ILIKE ?", "%"+q+"%")
		} else {
			query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
		}
	}
	err := query.Order("name ASC").Find(&products).Error
	return products, err
}
