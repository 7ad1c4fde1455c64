// Package reporting builds the daily register report and the exports derived
// from it: the xlsx workbook, the orders csv and the close-of-day mail.
package reporting

import (
	"context"
	"strings"
	"time"

	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/repository"
	"github.com/alocode/restopos/pkg/common"
	"github.com/araddon/dateparse"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SessionReport one register session of the day with its reconciliation
type SessionReport struct {
	Session        domain.RegisterSession `json:"session"`
	Reconciliation domain.Reconciliation  `json:"reconciliation"`
}

// TicketStats distribution of completed order totals
type TicketStats struct {
	Count  int     `json:"count"`
	Sum    float64 `json:"sum"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// DailyReport everything the close of a business date reports
type DailyReport struct {
	Date         string          `json:"date"`
	Sessions     []SessionReport `json:"sessions"`
	OpeningTotal decimal.Decimal `json:"opening_total"`
	ClosingTotal decimal.Decimal `json:"closing_total"`
	Sales        decimal.Decimal `json:"sales"`
	Surcharges   decimal.Decimal `json:"surcharges"`
	Net          decimal.Decimal `json:"net"`
	Orders       []*domain.Order `json:"orders"`
	Tickets      TicketStats     `json:"tickets"`
	GeneratedAt  time.Time       `json:"generated_at"`
}

type Reporter struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReporter(db *gorm.DB, now func() time.Time) *Reporter {
	if now == nil {
		now = time.Now
	}
	return &Reporter{db: db, now: now}
}

// Now current time of the reporter's clock
func (r *Reporter) Now() time.Time {
	return r.now()
}

// Today business date of the reporter's clock
func (r *Reporter) Today() string {
	return common.BusinessDate(r.now())
}

// Daily report of a business date. Sessions still open report their running
// balance as closing.
func (r *Reporter) Daily(ctx context.Context, date string) (*DailyReport, error) {
	if _, err := time.Parse(common.DateLayout, date); err != nil {
		return nil, errors.Wrapf(domain.ErrInvalidDate, "business date %q", date)
	}
	sessions, err := repository.NewGormSessionRepository(r.db).ListByDate(ctx, date)
	if err != nil {
		return nil, errors.Wrap(err, "list sessions")
	}
	orderRepo := repository.NewGormOrderRepository(r.db)
	report := &DailyReport{
		Date:         date,
		Sessions:     make([]SessionReport, 0, len(sessions)),
		OpeningTotal: decimal.Zero,
		ClosingTotal: decimal.Zero,
		Sales:        decimal.Zero,
		Surcharges:   decimal.Zero,
		Orders:       []*domain.Order{},
		GeneratedAt:  r.now(),
	}
	// oldest session first
	for i := len(sessions) - 1; i >= 0; i-- {
		s := sessions[i]
		completed, err := orderRepo.ListBySession(ctx, s.ID, domain.OrderCompleted)
		if err != nil {
			return nil, errors.Wrapf(err, "list orders of session %d", s.ID)
		}
		values := make([]domain.Order, 0, len(completed))
		for _, o := range completed {
			values = append(values, *o)
		}
		rec := domain.Reconcile(s.OpeningFloat, values)
		report.Sessions = append(report.Sessions, SessionReport{Session: *s, Reconciliation: rec})
		report.OpeningTotal = report.OpeningTotal.Add(s.OpeningFloat)
		if s.ClosingBalance.Valid {
			report.ClosingTotal = report.ClosingTotal.Add(s.ClosingBalance.Decimal)
		} else {
			report.ClosingTotal = report.ClosingTotal.Add(rec.ClosingBalance)
		}
		report.Sales = report.Sales.Add(rec.TotalSales)
		report.Surcharges = report.Surcharges.Add(rec.TotalSurcharge)
		report.Orders = append(report.Orders, completed...)
	}
	report.Net = report.Sales.Add(report.Surcharges)
	report.Tickets = ComputeTicketStats(report.Orders)
	return report, nil
}

// CompletedBetween orders completed in [from, to]
func (r *Reporter) CompletedBetween(ctx context.Context, from, to time.Time) ([]*domain.Order, error) {
	if to.Before(from) {
		return nil, errors.Wrapf(domain.ErrInvalidDate, "range %s to %s", from, to)
	}
	return repository.NewGormOrderRepository(r.db).ListCompletedBetween(ctx, from, to)
}

// ParseRange reads a free-form date range. A missing end, or an end given as a
// bare date, extends to the end of that day; a missing start means today.
func ParseRange(from, to string, now time.Time) (time.Time, time.Time, error) {
	loc := now.Location()
	start := common.StartOfDay(now)
	if from = strings.TrimSpace(from); from != "" {
		t, err := dateparse.ParseIn(from, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(domain.ErrInvalidDate, "from %q", from)
		}
		start = t
	}
	end := common.EndOfDay(start)
	if to = strings.TrimSpace(to); to != "" {
		t, err := dateparse.ParseIn(to, loc)
		if err != nil {
			return time.Time{}, time.Time{}, errors.Wrapf(domain.ErrInvalidDate, "to %q", to)
		}
		end = t
		if t.Equal(common.StartOfDay(t)) {
			end = common.EndOfDay(t)
		}
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.Wrapf(domain.ErrInvalidDate, "%q is before %q", to, from)
	}
	return start, end, nil
}

// ComputeTicketStats summarizes the totals of the given orders
func ComputeTicketStats(orders []*domain.Order) TicketStats {
	data := make(stats.Float64Data, 0, len(orders))
	for _, o := range orders {
		data = append(data, o.Total.InexactFloat64())
	}
	ts := TicketStats{Count: len(data)}
	if len(data) == 0 {
		return ts
	}
	ts.Sum, _ = stats.Sum(data)
	ts.Mean, _ = stats.Mean(data)
	ts.Median, _ = stats.Median(data)
	ts.Max, _ = stats.Max(data)
	ts.Mean, _ = stats.Round(ts.Mean, 2)
	ts.Median, _ = stats.Round(ts.Median, 2)
	return ts
}
