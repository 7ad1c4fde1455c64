// Package orders implements the order lifecycle: creation with stock reservation,
// the PENDING → PREPARING → READY → COMPLETED progression, cancellation, line
// edits and the sweep of stale pending orders.
package orders

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/events"
	"github.com/alocode/restopos/internal/inventory"
	"github.com/alocode/restopos/internal/repository"
	"github.com/alocode/restopos/pkg/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNotesLength = 500

// LineRequest one product and quantity of a new or edited order
type LineRequest struct {
	ProductID int64 `json:"product_id,string"`
	Quantity  int   `json:"quantity"`
}

// CreateRequest input of Create. TableID is required for TABLE orders only.
type CreateRequest struct {
	Type      domain.OrderType `json:"type"`
	TableID   *int64           `json:"table_id,string,omitempty"`
	Lines     []LineRequest    `json:"lines"`
	Surcharge decimal.Decimal  `json:"surcharge"`
	Notes     string           `json:"notes"`
}

// EditRequest replaces the lines of an order; nil fields are kept
type EditRequest struct {
	Lines     []LineRequest    `json:"lines"`
	Surcharge *decimal.Decimal `json:"surcharge,omitempty"`
	Notes     *string          `json:"notes,omitempty"`
}

// Service order lifecycle. Every public operation is one database transaction;
// events are published once it has committed.
type Service struct {
	db  *gorm.DB
	pub events.Publisher
	now func() time.Time
}

type Option func(*Service)

// WithClock overrides the source of the current time, which also decides the business date
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPublisher(pub events.Publisher) Option {
	return func(s *Service) { s.pub = pub }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, pub: events.Nop{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scope repositories and ledger bound to one transaction
type scope struct {
	orders   repository.OrderRepository
	tables   repository.TableRepository
	products repository.ProductRepository
	sessions repository.SessionRepository
	ledger   *inventory.Ledger
}

func newScope(tx *gorm.DB) *scope {
	return &scope{
		orders:   repository.NewGormOrderRepository(tx),
		tables:   repository.NewGormTableRepository(tx),
		products: repository.NewGormProductRepository(tx),
		sessions: repository.NewGormSessionRepository(tx),
		ledger:   inventory.NewLedger(tx),
	}
}

func validateLines(lines []LineRequest) error {
	if len(lines) == 0 {
		return errors.Wrap(domain.ErrInvalidOrder, "order has no lines")
	}
	for i, l := range lines {
		if l.Quantity <= 0 {
			return errors.Wrapf(domain.ErrInvalidOrder, "line %d: quantity must be positive", i+1)
		}
	}
	return nil
}

func validateExtras(surcharge decimal.Decimal, notes string) error {
	if surcharge.IsNegative() {
		return errors.Wrap(domain.ErrInvalidOrder, "surcharge must not be negative")
	}
	if utf8.RuneCountInString(notes) > maxNotesLength {
		return errors.Wrapf(domain.ErrInvalidOrder, "notes exceed %d characters", maxNotesLength)
	}
	return nil
}

func (r *CreateRequest) validate() error {
	if !r.Type.Valid() {
		return errors.Wrapf(domain.ErrInvalidOrder, "unknown order type %q", r.Type)
	}
	if r.Type.RequiresTable() && r.TableID == nil {
		return errors.Wrap(domain.ErrInvalidOrder, "table orders need a table")
	}
	if !r.Type.RequiresTable() && r.TableID != nil {
		return errors.Wrapf(domain.ErrInvalidOrder, "%s orders take no table", r.Type)
	}
	if err := validateLines(r.Lines); err != nil {
		return err
	}
	return validateExtras(r.Surcharge, r.Notes)
}

// Create places a PENDING order in today's open session, reserving stock for
// every line and occupying the table of dine-in orders.
func (s *Service) Create(ctx context.Context, req CreateRequest, actor int64) (*domain.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	now := s.now()
	order := &domain.Order{
		ID:         common.UUIDint64(),
		Type:       req.Type,
		State:      domain.OrderPending,
		OperatorID: actor,
		Surcharge:  req.Surcharge,
		Notes:      req.Notes,
		CreatedAt:  now,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sc := newScope(tx)
		session, err := sc.sessions.FindOpenByDateForShare(ctx, common.BusinessDate(now))
		if err != nil {
			return err
		}
		if session == nil {
			return domain.ErrNoOpenSession
		}
		order.SessionID = session.ID

		if req.TableID != nil {
			if err := s.occupyTable(ctx, sc, order, *req.TableID); err != nil {
				return err
			}
		}
		lines, err := s.reserveLines(ctx, sc, order.ID, req.Lines)
		if err != nil {
			return err
		}
		order.Lines = lines
		order.Recompute()
		return errors.Wrap(sc.orders.Create(ctx, order), "create order")
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("order created",
		zap.Int64("order_id", order.ID),
		zap.String("type", string(order.Type)),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int64("operator_id", actor),
		zap.String("namespace", "orders"))
	s.publish(events.TopicOrderCreated, order, "", actor)
	return order, nil
}

func (s *Service) occupyTable(ctx context.Context, sc *scope, order *domain.Order, tableID int64) error {
	table, err := sc.tables.GetForUpdate(ctx, tableID)
	if err != nil {
		return err
	}
	if table.State == domain.TableInactive {
		return errors.Wrapf(domain.ErrTableUnavailable, "table %d is inactive", table.Number)
	}
	order.TableID = &table.ID
	number := table.Number
	order.TableNumber = &number
	if table.State == domain.TableOccupied {
		return nil
	}
	return errors.Wrap(sc.tables.UpdateState(ctx, table.ID, domain.TableOccupied), "occupy table")
}

// reserveLines resolves each product, reserves its quantity and snapshots price and name
func (s *Service) reserveLines(ctx context.Context, sc *scope, orderID int64, reqs []LineRequest) ([]domain.OrderLine, error) {
	lines := make([]domain.OrderLine, 0, len(reqs))
	for i, req := range reqs {
		product, err := sc.products.GetByID(ctx, req.ProductID)
		if err != nil {
			return nil, err
		}
		if !product.Active {
			return nil, errors.Wrapf(domain.ErrProductInactive, "%s", product.Name)
		}
		if err := sc.ledger.Reserve(ctx, product.ID, decimal.NewFromInt(int64(req.Quantity)), &orderID); err != nil {
			return nil, err
		}
		line := domain.NewOrderLine(common.UUIDint64(), orderID, i+1, product, req.Quantity)
		line.CreatedAt = s.now()
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *Service) releaseLines(ctx context.Context, sc *scope, order *domain.Order) error {
	for _, line := range order.Lines {
		if err := sc.ledger.Release(ctx, line.ProductID, decimal.NewFromInt(int64(line.Quantity)), &order.ID); err != nil {
			return err
		}
	}
	return nil
}

// freeTable makes the table AVAILABLE again unless another active order still sits there
func (s *Service) freeTable(ctx context.Context, sc *scope, order *domain.Order) error {
	if order.TableID == nil {
		return nil
	}
	others, err := sc.orders.CountActiveOnTable(ctx, *order.TableID, order.ID)
	if err != nil {
		return errors.Wrap(err, "count orders on table")
	}
	if others > 0 {
		return nil
	}
	table, err := sc.tables.GetForUpdate(ctx, *order.TableID)
	if err != nil {
		return err
	}
	if table.State != domain.TableOccupied {
		return nil
	}
	return errors.Wrap(sc.tables.UpdateState(ctx, table.ID, domain.TableAvailable), "free table")
}

// Transition moves an order to next. Completion consumes the reservations,
// cancellation releases them; both free the table.
func (s *Service) Transition(ctx context.Context, id int64, next domain.OrderState, actor int64) (*domain.Order, error) {
	var order *domain.Order
	var from domain.OrderState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sc := newScope(tx)
		var err error
		order, err = sc.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		from = order.State
		if !from.CanTransitionTo(next) {
			return errors.Wrapf(domain.ErrInvalidTransition, "order %d: %s to %s", id, from, next)
		}
		switch next {
		case domain.OrderCompleted:
			err = s.complete(ctx, sc, order, actor)
		case domain.OrderCancelled:
			err = s.cancel(ctx, sc, order)
		default:
			order.State = next
			err = sc.orders.Update(ctx, order)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("order transitioned",
		zap.Int64("order_id", order.ID),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.Int64("operator_id", actor),
		zap.String("namespace", "orders"))
	s.publish(events.TopicOrderTransitioned, order, from, actor)
	return order, nil
}

func (s *Service) complete(ctx context.Context, sc *scope, order *domain.Order, actor int64) error {
	for _, line := range order.Lines {
		if err := sc.ledger.Consume(ctx, line.ProductID, decimal.NewFromInt(int64(line.Quantity)), &order.ID); err != nil {
			return err
		}
	}
	now := s.now()
	order.State = domain.OrderCompleted
	order.CompletedAt = &now
	order.CompletedByID = &actor
	if err := sc.orders.Update(ctx, order); err != nil {
		return errors.Wrap(err, "complete order")
	}
	return s.freeTable(ctx, sc, order)
}

func (s *Service) cancel(ctx context.Context, sc *scope, order *domain.Order) error {
	if err := s.releaseLines(ctx, sc, order); err != nil {
		return err
	}
	order.State = domain.OrderCancelled
	if err := sc.orders.Update(ctx, order); err != nil {
		return errors.Wrap(err, "cancel order")
	}
	return s.freeTable(ctx, sc, order)
}

// ForceCancel cancels a non-terminal order inside the caller's transaction.
// Nothing is published; call NotifyCancelled after the transaction commits.
func (s *Service) ForceCancel(ctx context.Context, tx *gorm.DB, order *domain.Order, actor int64) error {
	if order.State.Terminal() {
		return errors.Wrapf(domain.ErrInvalidTransition, "order %d is %s", order.ID, order.State)
	}
	zap.L().Warn("force cancelling order",
		zap.Int64("order_id", order.ID),
		zap.String("state", string(order.State)),
		zap.Int64("operator_id", actor),
		zap.String("namespace", "orders"))
	return s.cancel(ctx, newScope(tx), order)
}

// NotifyCancelled publishes the transitions made by ForceCancel
func (s *Service) NotifyCancelled(orders []*domain.Order, from map[int64]domain.OrderState, actor int64) {
	for _, o := range orders {
		s.publish(events.TopicOrderTransitioned, o, from[o.ID], actor)
	}
}

// EditLines replaces the lines of an open order. Current reservations are
// released before the new lines reserve, all inside one transaction, so a line
// that cannot be reserved leaves the order as it was.
func (s *Service) EditLines(ctx context.Context, id int64, req EditRequest, actor int64) (*domain.Order, error) {
	if err := validateLines(req.Lines); err != nil {
		return nil, err
	}
	var order *domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sc := newScope(tx)
		var err error
		order, err = sc.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		switch order.State {
		case domain.OrderCompleted:
			return errors.Wrapf(domain.ErrOrderAlreadyCompleted, "order %d", id)
		case domain.OrderCancelled:
			return errors.Wrapf(domain.ErrInvalidTransition, "order %d is cancelled", id)
		}
		if req.Surcharge != nil {
			order.Surcharge = *req.Surcharge
		}
		if req.Notes != nil {
			order.Notes = *req.Notes
		}
		if err := validateExtras(order.Surcharge, order.Notes); err != nil {
			return err
		}

		if err := s.releaseLines(ctx, sc, order); err != nil {
			return err
		}
		lines, err := s.reserveLines(ctx, sc, order.ID, req.Lines)
		if err != nil {
			return err
		}
		if err := sc.orders.ReplaceLines(ctx, order.ID, lines); err != nil {
			return err
		}
		order.Lines = lines
		order.Recompute()
		return errors.Wrap(sc.orders.Update(ctx, order), "update order")
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("order edited",
		zap.Int64("order_id", order.ID),
		zap.Int("lines", len(order.Lines)),
		zap.String("total", order.Total.StringFixed(2)),
		zap.Int64("operator_id", actor),
		zap.String("namespace", "orders"))
	s.publish(events.TopicOrderEdited, order, order.State, actor)
	return order, nil
}

// SweepStalePending cancels PENDING orders created before today, releasing
// their stock and tables. Returns how many were cancelled.
func (s *Service) SweepStalePending(ctx context.Context) (int, error) {
	cutoff := common.StartOfDay(s.now())
	var swept []*domain.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sc := newScope(tx)
		stale, err := sc.orders.ListPendingBefore(ctx, cutoff)
		if err != nil {
			return errors.Wrap(err, "list stale orders")
		}
		for _, o := range stale {
			if err := s.cancel(ctx, sc, o); err != nil {
				return errors.Wrapf(err, "cancel stale order %d", o.ID)
			}
			swept = append(swept, o)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(swept) > 0 {
		zap.L().Info("stale pending orders cancelled",
			zap.Int("count", len(swept)),
			zap.Time("cutoff", cutoff),
			zap.String("namespace", "orders"))
	}
	for _, o := range swept {
		s.publish(events.TopicOrderTransitioned, o, domain.OrderPending, 0)
	}
	return len(swept), nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.Order, error) {
	return repository.NewGormOrderRepository(s.db).GetByID(ctx, id)
}

// ListActive orders still in PENDING, PREPARING or READY
func (s *Service) ListActive(ctx context.Context) ([]*domain.Order, error) {
	return repository.NewGormOrderRepository(s.db).ListByStates(ctx, domain.ActiveOrderStates...)
}

func (s *Service) ListCompletedBetween(ctx context.Context, start, end time.Time) ([]*domain.Order, error) {
	return repository.NewGormOrderRepository(s.db).ListCompletedBetween(ctx, start, end)
}

// ListBySessionAndState orders of a session; an empty state lists all of them
func (s *Service) ListBySessionAndState(ctx context.Context, sessionID int64, state domain.OrderState) ([]*domain.Order, error) {
	repo := repository.NewGormOrderRepository(s.db)
	if state == "" {
		return repo.ListBySession(ctx, sessionID)
	}
	if !state.Valid() {
		return nil, errors.Wrapf(domain.ErrInvalidOrder, "unknown state %q", state)
	}
	return repo.ListBySession(ctx, sessionID, state)
}

func (s *Service) publish(topic string, order *domain.Order, from domain.OrderState, actor int64) {
	s.pub.Publish(topic, events.OrderEvent{
		Order:   *order,
		From:    from,
		To:      order.State,
		ActorID: actor,
		At:      s.now(),
	})
}
