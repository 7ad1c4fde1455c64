// Package register manages the daily cash-register session: opening with a
// float, closing with reconciliation of completed revenue, and the automatic
// close of sessions left open on a past business date.
package register

import (
	"context"
	"time"

	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/events"
	"github.com/alocode/restopos/internal/orders"
	"github.com/alocode/restopos/internal/repository"
	"github.com/alocode/restopos/pkg/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Closing outcome of a manual or automatic close
type Closing struct {
	Session        *domain.RegisterSession `json:"session"`
	Reconciliation domain.Reconciliation   `json:"reconciliation"`
	Cancelled      int                     `json:"cancelled"`

	cancelled []*domain.Order
	from      map[int64]domain.OrderState
}

type Service struct {
	db     *gorm.DB
	orders *orders.Service
	pub    events.Publisher
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPublisher(pub events.Publisher) Option {
	return func(s *Service) { s.pub = pub }
}

// NewService orderSvc performs the cancellations of orders left open at close
func NewService(db *gorm.DB, orderSvc *orders.Service, opts ...Option) *Service {
	s := &Service{db: db, orders: orderSvc, pub: events.Nop{}, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() string {
	return common.BusinessDate(s.now())
}

// Open starts today's session. Sessions still open from earlier dates are
// reconciled and closed first.
func (s *Service) Open(ctx context.Context, openingFloat decimal.Decimal, actor int64) (*domain.RegisterSession, error) {
	if openingFloat.IsNegative() {
		return nil, errors.Wrapf(domain.ErrInvalidAmount, "opening float %s", openingFloat)
	}
	today := s.today()
	var session *domain.RegisterSession
	var stale []*Closing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := repository.NewGormSessionRepository(tx)
		current, err := repo.FindOpenByDate(ctx, today)
		if err != nil {
			return err
		}
		if current != nil {
			return errors.Wrapf(domain.ErrSessionAlreadyOpen, "session %d of %s", current.ID, today)
		}

		stale, err = s.closeStale(ctx, tx, today)
		if err != nil {
			return err
		}

		now := s.now()
		session = &domain.RegisterSession{
			ID:           common.UUIDint64(),
			BusinessDate: today,
			OpeningFloat: openingFloat,
			State:        domain.SessionOpen,
			OpenedByID:   actor,
			OpenedAt:     now,
		}
		if err := repo.Create(ctx, session); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errors.Wrapf(domain.ErrSessionAlreadyOpen, "%s", today)
			}
			return errors.Wrap(err, "create session")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, c := range stale {
		s.notifyClosed(c, true, 0)
	}
	zap.L().Info("register session opened",
		zap.Int64("session_id", session.ID),
		zap.String("business_date", today),
		zap.String("opening_float", openingFloat.StringFixed(2)),
		zap.Int64("operator_id", actor),
		zap.String("namespace", "register"))
	s.pub.Publish(events.TopicRegisterOpened, events.RegisterEvent{
		Session: *session,
		ActorID: actor,
		At:      s.now(),
	})
	return session, nil
}

// CloseStale reconciles and closes OPEN sessions dated before today
func (s *Service) CloseStale(ctx context.Context) (int, error) {
	var stale []*Closing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stale, err = s.closeStale(ctx, tx, s.today())
		return err
	})
	if err != nil {
		return 0, err
	}
	for _, c := range stale {
		s.notifyClosed(c, true, 0)
	}
	return len(stale), nil
}

func (s *Service) closeStale(ctx context.Context, tx *gorm.DB, today string) ([]*Closing, error) {
	sessions, err := repository.NewGormSessionRepository(tx).ListOpenBefore(ctx, today)
	if err != nil {
		return nil, errors.Wrap(err, "list stale sessions")
	}
	closings := make([]*Closing, 0, len(sessions))
	for _, session := range sessions {
		c, err := s.close(ctx, tx, session, 0, true)
		if err != nil {
			return nil, errors.Wrapf(err, "auto close session %d", session.ID)
		}
		zap.L().Warn("stale register session auto closed",
			zap.Int64("session_id", session.ID),
			zap.String("business_date", session.BusinessDate),
			zap.String("closing_balance", c.Reconciliation.ClosingBalance.StringFixed(2)),
			zap.Int("cancelled_orders", c.Cancelled),
			zap.String("namespace", "register"))
		closings = append(closings, c)
	}
	return closings, nil
}

// Close reconciles the session, cancels its orders still in progress and
// stamps the closing balance.
func (s *Service) Close(ctx context.Context, id int64, actor int64) (*Closing, error) {
	var closing *Closing
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		session, err := repository.NewGormSessionRepository(tx).GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if session.State == domain.SessionClosed {
			return errors.Wrapf(domain.ErrSessionAlreadyClosed, "session %d", id)
		}
		closing, err = s.close(ctx, tx, session, actor, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("register session closed",
		zap.Int64("session_id", id),
		zap.String("closing_balance", closing.Reconciliation.ClosingBalance.StringFixed(2)),
		zap.Int("orders", closing.Reconciliation.Orders),
		zap.Int("cancelled_orders", closing.Cancelled),
		zap.Int64("operator_id", actor),
		zap.String("namespace", "register"))
	s.notifyClosed(closing, false, actor)
	return closing, nil
}

func (s *Service) close(ctx context.Context, tx *gorm.DB, session *domain.RegisterSession, actor int64, auto bool) (*Closing, error) {
	list, err := repository.NewGormOrderRepository(tx).ListBySession(ctx, session.ID)
	if err != nil {
		return nil, errors.Wrap(err, "list session orders")
	}
	completed := make([]domain.Order, 0, len(list))
	closing := &Closing{Session: session, from: map[int64]domain.OrderState{}}
	for _, o := range list {
		if o.State == domain.OrderCompleted {
			completed = append(completed, *o)
			continue
		}
		if o.State.Terminal() {
			continue
		}
		closing.from[o.ID] = o.State
		if err := s.orders.ForceCancel(ctx, tx, o, actor); err != nil {
			return nil, err
		}
		closing.cancelled = append(closing.cancelled, o)
	}
	closing.Cancelled = len(closing.cancelled)
	closing.Reconciliation = domain.Reconcile(session.OpeningFloat, completed)

	now := s.now()
	session.State = domain.SessionClosed
	session.ClosingBalance = decimal.NullDecimal{Decimal: closing.Reconciliation.ClosingBalance, Valid: true}
	session.ClosedAt = &now
	session.AutoClosed = auto
	if !auto {
		session.ClosedByID = &actor
	}
	if err := repository.NewGormSessionRepository(tx).Update(ctx, session); err != nil {
		return nil, errors.Wrap(err, "close session")
	}
	return closing, nil
}

func (s *Service) notifyClosed(c *Closing, auto bool, actor int64) {
	s.orders.NotifyCancelled(c.cancelled, c.from, actor)
	rec := c.Reconciliation
	s.pub.Publish(events.TopicRegisterClosed, events.RegisterEvent{
		Session:        *c.Session,
		Reconciliation: &rec,
		Auto:           auto,
		Cancelled:      c.Cancelled,
		ActorID:        actor,
		At:             s.now(),
	})
}

// OpenToday returns today's OPEN session
func (s *Service) OpenToday(ctx context.Context) (*domain.RegisterSession, error) {
	session, err := repository.NewGormSessionRepository(s.db).FindOpenByDate(ctx, s.today())
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNoOpenSession
	}
	return session, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*domain.RegisterSession, error) {
	return repository.NewGormSessionRepository(s.db).GetByID(ctx, id)
}

// ListByDate sessions of a business date, most recent first
func (s *Service) ListByDate(ctx context.Context, date string) ([]*domain.RegisterSession, error) {
	if _, err := time.Parse(common.DateLayout, date); err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidDate, "business date %q", date)
	}
	return repository.NewGormSessionRepository(s.db).ListByDate(ctx, date)
}

// Summary reconciliation of a session as of now; final once the session is closed
func (s *Service) Summary(ctx context.Context, id int64) (*domain.Reconciliation, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	list, err := repository.NewGormOrderRepository(s.db).ListBySession(ctx, id, domain.OrderCompleted)
	if err != nil {
		return nil, errors.Wrap(err, "list session orders")
	}
	completed := make([]domain.Order, 0, len(list))
	for _, o := range list {
		completed = append(completed, *o)
	}
	rec := domain.Reconcile(session.OpeningFloat, completed)
	return &rec, nil
}
