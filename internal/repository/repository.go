package repository

import (
	"context"
	"time"

	"github.com/alocode/restopos/internal/domain"
	"github.com/shopspring/decimal"
)

// ProductRepository handles product rows, including the stock counters
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	Save(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	// GetForUpdate loads the row holding a write lock until the transaction ends
	GetForUpdate(ctx context.Context, id int64) (*domain.Product, error)
	UpdateCounters(ctx context.Context, id int64, stock, reserved decimal.Decimal) error
	CountDerivedFrom(ctx context.Context, baseID int64) (int64, error)
	List(ctx context.Context, activeOnly bool) ([]*domain.Product, error)
	Search(ctx context.Context, q string) ([]*domain.Product, error)
}

// TableRepository handles dining tables
type TableRepository interface {
	Create(ctx context.Context, t *domain.DiningTable) error
	Save(ctx context.Context, t *domain.DiningTable) error
	GetByID(ctx context.Context, id int64) (*domain.DiningTable, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.DiningTable, error)
	GetByNumber(ctx context.Context, number int) (*domain.DiningTable, error)
	UpdateState(ctx context.Context, id int64, state domain.TableState) error
	List(ctx context.Context) ([]*domain.DiningTable, error)
	ListByState(ctx context.Context, state domain.TableState) ([]*domain.DiningTable, error)
	Search(ctx context.Context, q string) ([]*domain.DiningTable, error)
}

// OrderRepository handles orders and their lines
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	Update(ctx context.Context, o *domain.Order) error
	ReplaceLines(ctx context.Context, orderID int64, lines []domain.OrderLine) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.Order, error)
	ListByStates(ctx context.Context, states ...domain.OrderState) ([]*domain.Order, error)
	ListPendingBefore(ctx context.Context, before time.Time) ([]*domain.Order, error)
	ListBySession(ctx context.Context, sessionID int64, states ...domain.OrderState) ([]*domain.Order, error)
	ListCompletedBetween(ctx context.Context, start, end time.Time) ([]*domain.Order, error)
	CountActiveOnTable(ctx context.Context, tableID int64, excludeOrderID int64) (int64, error)
	CountActiveLinesForProduct(ctx context.Context, productID int64) (int64, error)
}

// SessionRepository handles register sessions
type SessionRepository interface {
	Create(ctx context.Context, s *domain.RegisterSession) error
	Update(ctx context.Context, s *domain.RegisterSession) error
	GetByID(ctx context.Context, id int64) (*domain.RegisterSession, error)
	GetForUpdate(ctx context.Context, id int64) (*domain.RegisterSession, error)
	// FindOpenByDate returns nil without error when the date has no OPEN session
	FindOpenByDate(ctx context.Context, date string) (*domain.RegisterSession, error)
	FindOpenByDateForShare(ctx context.Context, date string) (*domain.RegisterSession, error)
	ListOpenBefore(ctx context.Context, date string) ([]*domain.RegisterSession, error)
	ListByDate(ctx context.Context, date string) ([]*domain.RegisterSession, error)
}

// MovementRepository handles the append-only stock movement log
type MovementRepository interface {
	Create(ctx context.Context, m *domain.StockMovement) error
	ListByProduct(ctx context.Context, productID int64, limit int) ([]*domain.StockMovement, error)
}

// AuditRepository handles operator audit logs
type AuditRepository interface {
	Create(ctx context.Context, log *domain.SysOprLog) error
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}
