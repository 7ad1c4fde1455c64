package repository

import (
	"context"

	"github.com/alocode/restopos/internal/domain"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var ErrOperatorNotFound = errors.New("operator not found")

// GormOperatorRepository resolves the acting operator of a request
type GormOperatorRepository struct {
	db *gorm.DB
}

func NewGormOperatorRepository(db *gorm.DB) *GormOperatorRepository {
	return &GormOperatorRepository{db: db}
}

func (r *GormOperatorRepository) Create(ctx context.Context, opr *domain.SysOpr) error {
	return r.db.WithContext(ctx).Create(opr).Error
}

func (r *GormOperatorRepository) GetByID(ctx context.Context, id int64) (*domain.SysOpr, error) {
	var opr domain.SysOpr
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&opr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrOperatorNotFound, "operator %d", id)
	}
	return &opr, err
}

func (r *GormOperatorRepository) GetByUsername(ctx context.Context, username string) (*domain.SysOpr, error) {
	var opr domain.SysOpr
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&opr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(ErrOperatorNotFound, "operator %s", username)
	}
	return &opr, err
}

func (r *GormOperatorRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.SysOpr{}).Count(&count).Error
	return count, err
}
