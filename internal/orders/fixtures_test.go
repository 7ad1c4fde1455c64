package orders

import (
	"testing"
	"time"

	"github.com/alocode/restopos/internal/dbtest"
	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/pkg/common"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const operator int64 = 501

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

type fixture struct {
	db      *gorm.DB
	clock   *testClock
	svc     *Service
	session *domain.RegisterSession
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := dbtest.Open(t)
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	f := &fixture{db: db, clock: clock, svc: NewService(db, WithClock(clock.Now))}
	f.session = f.openSession(t)
	return f
}

func (f *fixture) openSession(t *testing.T) *domain.RegisterSession {
	t.Helper()
	s := &domain.RegisterSession{
		ID:           common.UUIDint64(),
		BusinessDate: common.BusinessDate(f.clock.now),
		OpeningFloat: decimal.NewFromInt(100),
		State:        domain.SessionOpen,
		OpenedByID:   operator,
		OpenedAt:     f.clock.now,
	}
	if err := f.db.Create(s).Error; err != nil {
		t.Fatalf("open session: %v", err)
	}
	return s
}

func (f *fixture) product(t *testing.T, name, price, stock, reserved string) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:               common.UUIDint64(),
		Name:             name,
		Price:            decimal.RequireFromString(price),
		Stock:            decimal.RequireFromString(stock),
		Reserved:         decimal.RequireFromString(reserved),
		Active:           true,
		ConversionFactor: decimal.NewFromInt(1),
	}
	if err := f.db.Create(p).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return p
}

func (f *fixture) table(t *testing.T, number int, state domain.TableState) *domain.DiningTable {
	t.Helper()
	tbl := &domain.DiningTable{ID: common.UUIDint64(), Number: number, Capacity: 4, State: state}
	if err := f.db.Create(tbl).Error; err != nil {
		t.Fatalf("seed table: %v", err)
	}
	return tbl
}

func (f *fixture) reloadProduct(t *testing.T, id int64) *domain.Product {
	t.Helper()
	var p domain.Product
	if err := f.db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return &p
}

func (f *fixture) tableState(t *testing.T, id int64) domain.TableState {
	t.Helper()
	var tbl domain.DiningTable
	if err := f.db.First(&tbl, "id = ?", id).Error; err != nil {
		t.Fatalf("reload table: %v", err)
	}
	return tbl.State
}

func expectCounters(t *testing.T, p *domain.Product, stock, reserved int64) {
	t.Helper()
	if !p.Stock.Equal(decimal.NewFromInt(stock)) || !p.Reserved.Equal(decimal.NewFromInt(reserved)) {
		t.Errorf("%s: expected stock/reserved %d/%d, got %s/%s", p.Name, stock, reserved, p.Stock, p.Reserved)
	}
}

func tableID(tbl *domain.DiningTable) *int64 {
	id := tbl.ID
	return &id
}

func (f *fixture) derived(t *testing.T, name, price string, base *domain.Product, factor string) *domain.Product {
	t.Helper()
	baseID := base.ID
	p := &domain.Product{
		ID:               common.UUIDint64(),
		Name:             name,
		Price:            decimal.RequireFromString(price),
		Stock:            decimal.Zero,
		Reserved:         decimal.Zero,
		Active:           true,
		BaseProductID:    &baseID,
		ConversionFactor: decimal.RequireFromString(factor),
	}
	if err := f.db.Create(p).Error; err != nil {
		t.Fatalf("seed derived product: %v", err)
	}
	return p
}

func expectDecimalCounters(t *testing.T, p *domain.Product, stock, reserved string) {
	t.Helper()
	if !p.Stock.Equal(decimal.RequireFromString(stock)) || !p.Reserved.Equal(decimal.RequireFromString(reserved)) {
		t.Errorf("%s: expected stock/reserved %s/%s, got %s/%s", p.Name, stock, reserved, p.Stock, p.Reserved)
	}
}
