package repository

import (
	"context"

	"github.com/alocode/restopos/internal/domain"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSessionRepository is the GORM implementation of SessionRepository
type GormSessionRepository struct {
	db *gorm.DB
}

func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

func (r *GormSessionRepository) Create(ctx context.Context, s *domain.RegisterSession) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *GormSessionRepository) Update(ctx context.Context, s *domain.RegisterSession) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *GormSessionRepository) GetByID(ctx context.Context, id int64) (*domain.RegisterSession, error) {
	return r.get(r.db.WithContext(ctx), id)
}

func (r *GormSessionRepository) GetForUpdate(ctx context.Context, id int64) (*domain.RegisterSession, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormSessionRepository) get(db *gorm.DB, id int64) (*domain.RegisterSession, error) {
	var s domain.RegisterSession
	err := db.Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(domain.ErrSessionNotFound, "session %d", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load session %d", id)
	}
	return &s, nil
}

func (r *GormSessionRepository) FindOpenByDate(ctx context.Context, date string) (*domain.RegisterSession, error) {
	return r.findOpen(r.db.WithContext(ctx), date)
}

// FindOpenByDateForShare reads the open session under a shared row lock, so a
// concurrent close has to wait for the reading transaction, and a reader that
// queued behind a close sees the session as closed.
func (r *GormSessionRepository) FindOpenByDateForShare(ctx context.Context, date string) (*domain.RegisterSession, error) {
	return r.findOpen(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "SHARE"}), date)
}

func (r *GormSessionRepository) findOpen(db *gorm.DB, date string) (*domain.RegisterSession, error) {
	var sessions []*domain.RegisterSession
	err := db.
		Where("business_date = ? AND state = ?", date, domain.SessionOpen).
		Limit(1).
		Find(&sessions).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find open session of %s", date)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions[0], nil
}

// ListOpenBefore stale OPEN sessions left from earlier business dates
func (r *GormSessionRepository) ListOpenBefore(ctx context.Context, date string) ([]*domain.RegisterSession, error) {
	var sessions []*domain.RegisterSession
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("business_date < ? AND state = ?", date, domain.SessionOpen).
		Order("business_date ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *GormSessionRepository) ListByDate(ctx context.Context, date string) ([]*domain.RegisterSession, error) {
	var sessions []*domain.RegisterSession
	err := r.db.WithContext(ctx).
		Where("business_date = ?", date).
		Order("opened_at DESC").
		Find(&sessions).Error
	return sessions, err
}
