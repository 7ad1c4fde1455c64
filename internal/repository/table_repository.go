package repository

import (
	"context"
	"strings"
	"time"

	"github.com/alocode/restopos/internal/domain"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTableRepository is the GORM implementation of TableRepository
type GormTableRepository struct {
	db *gorm.DB
}

func NewGormTableRepository(db *gorm.DB) *GormTableRepository {
	return &GormTableRepository{db: db}
}

func (r *GormTableRepository) Create(ctx context.Context, t *domain.DiningTable) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *GormTableRepository) Save(ctx context.Context, t *domain.DiningTable) error {
	return r.db.WithContext(ctx).Save(t).Error
}

func (r *GormTableRepository) GetByID(ctx context.Context, id int64) (*domain.DiningTable, error) {
	return r.get(r.db.WithContext(ctx), "id = ?", id)
}

func (r *GormTableRepository) GetForUpdate(ctx context.Context, id int64) (*domain.DiningTable, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), "id = ?", id)
}

func (r *GormTableRepository) GetByNumber(ctx context.Context, number int) (*domain.DiningTable, error) {
	return r.get(r.db.WithContext(ctx), "number = ?", number)
}

func (r *GormTableRepository) get(db *gorm.DB, cond string, arg interface{}) (*domain.DiningTable, error) {
	var t domain.DiningTable
	err := db.Where(cond, arg).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(domain.ErrTableNotFound, "table %v", arg)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load table %v", arg)
	}
	return &t, nil
}

func (r *GormTableRepository) UpdateState(ctx context.Context, id int64, state domain.TableState) error {
	return r.db.WithContext(ctx).
		Model(&domain.DiningTable{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"state":      state,
			"updated_at": time.Now(),
		}).Error
}

func (r *GormTableRepository) List(ctx context.Context) ([]*domain.DiningTable, error) {
	var tables []*domain.DiningTable
	err := r.db.WithContext(ctx).Order("number ASC").Find(&tables).Error
	return tables, err
}

func (r *GormTableRepository) ListByState(ctx context.Context, state domain.TableState) ([]*domain.DiningTable, error) {
	var tables []*domain.DiningTable
	err := r.db.WithContext(ctx).Where("state = ?", state).Order("number ASC").Find(&tables).Error
	return tables, err
}

// Search matches the table number or the state
func (r *GormTableRepository) Search(ctx context.Context, q string) ([]*domain.DiningTable, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return r.List(ctx)
	}
	var tables []*domain.DiningTable
	err := r.db.WithContext(ctx).
		Where("CAST(number AS TEXT) LIKE ? OR LOWER(state) LIKE ?", "%"+q+"%", "%"+strings.ToLower(q)+"%").
		Order("number ASC").
		Find(&tables).Error
	return tables, err
}
