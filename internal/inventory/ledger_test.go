package inventory

import (
	"context"
	"testing"

	"github.com/alocode/restopos/internal/dbtest"
	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/pkg/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func seedProduct(t *testing.T, db *gorm.DB, name, stock, reserved string, base *domain.Product, factor string) *domain.Product {
	t.Helper()
	p := &domain.Product{
		ID:               common.UUIDint64(),
		Name:             name,
		Price:            dec("10.00"),
		Stock:            dec(stock),
		Reserved:         dec(reserved),
		Active:           true,
		ConversionFactor: dec(factor),
	}
	if base != nil {
		p.BaseProductID = &base.ID
	}
	if err := db.Create(p).Error; err != nil {
		t.Fatalf("seed product %s: %v", name, err)
	}
	return p
}

func reload(t *testing.T, db *gorm.DB, id int64) *domain.Product {
	t.Helper()
	var p domain.Product
	if err := db.First(&p, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product %d: %v", id, err)
	}
	return &p
}

func assertCounters(t *testing.T, p *domain.Product, stock, reserved string) {
	t.Helper()
	if !p.Stock.Equal(dec(stock)) {
		t.Errorf("%s: expected stock %s, got %s", p.Name, stock, p.Stock)
	}
	if !p.Reserved.Equal(dec(reserved)) {
		t.Errorf("%s: expected reserved %s, got %s", p.Name, reserved, p.Reserved)
	}
}

func TestReserveReleaseRestoresReserved(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	p := seedProduct(t, db, "Coffee", "10", "1", nil, "1")
	ledger := NewLedger(db)

	if err := ledger.Reserve(ctx, p.ID, dec("4"), nil); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	assertCounters(t, reload(t, db, p.ID), "10", "5")

	if err := ledger.Release(ctx, p.ID, dec("4"), nil); err != nil {
		t.Fatalf("release: %v", err)
	}
	assertCounters(t, reload(t, db, p.ID), "10", "1")
}

func TestReserveConsumeDepletesStock(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	p := seedProduct(t, db, "Tea", "10", "0", nil, "1")
	ledger := NewLedger(db)

	if err := ledger.Reserve(ctx, p.ID, dec("3"), nil); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := ledger.Consume(ctx, p.ID, dec("3"), nil); err != nil {
		t.Fatalf("consume: %v", err)
	}
	assertCounters(t, reload(t, db, p.ID), "7", "0")
}

func TestReleaseAndConsumeFloorAtZero(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	p := seedProduct(t, db, "Juice", "2", "1", nil, "1")
	ledger := NewLedger(db)

	if err := ledger.Release(ctx, p.ID, dec("5"), nil); err != nil {
		t.Fatalf("release: %v", err)
	}
	assertCounters(t, reload(t, db, p.ID), "2", "0")

	if err := ledger.Release(ctx, p.ID, dec("5"), nil); err != nil {
		t.Fatalf("second release: %v", err)
	}
	assertCounters(t, reload(t, db, p.ID), "2", "0")

	if err := ledger.Consume(ctx, p.ID, dec("9"), nil); err != nil {
		t.Fatalf("consume: %v", err)
	}
	assertCounters(t, reload(t, db, p.ID), "0", "0")
}

func TestReserveInsufficientStock(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	p := seedProduct(t, db, "Pie", "5", "3", nil, "1")
	ledger := NewLedger(db)

	if err := ledger.Reserve(ctx, p.ID, dec("2"), nil); err != nil {
		t.Fatalf("reserve 2: %v", err)
	}
	err := ledger.Reserve(ctx, p.ID, dec("3"), nil)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	assertCounters(t, reload(t, db, p.ID), "5", "5")
}

func TestDerivedProductRoutesToBase(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	base := seedProduct(t, db, "Beer keg (l)", "20", "0", nil, "1")
	pint := seedProduct(t, db, "Beer pint", "0", "0", base, "0.5")
	ledger := NewLedger(db)

	if err := ledger.Reserve(ctx, pint.ID, dec("4"), nil); err != nil {
		t.Fatalf("reserve derived: %v", err)
	}
	assertCounters(t, reload(t, db, base.ID), "20", "2")
	assertCounters(t, reload(t, db, pint.ID), "0", "0")

	if err := ledger.Consume(ctx, pint.ID, dec("4"), nil); err != nil {
		t.Fatalf("consume derived: %v", err)
	}
	assertCounters(t, reload(t, db, base.ID), "18", "0")
	assertCounters(t, reload(t, db, pint.ID), "0", "0")

	ok, err := ledger.CheckAvailable(ctx, pint.ID, dec("36"))
	if err != nil || !ok {
		t.Errorf("expected 36 pints available, got %v (%v)", ok, err)
	}
	ok, err = ledger.CheckAvailable(ctx, pint.ID, dec("37"))
	if err != nil || ok {
		t.Errorf("expected 37 pints unavailable, got %v (%v)", ok, err)
	}
}

func TestInvalidConversion(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	base := seedProduct(t, db, "Flour", "10", "0", nil, "1")
	derived := seedProduct(t, db, "Dough", "0", "0", base, "2")
	chained := seedProduct(t, db, "Bread", "0", "0", derived, "1")
	zero := seedProduct(t, db, "Crumbs", "0", "0", base, "0")
	ledger := NewLedger(db)

	for _, p := range []*domain.Product{chained, zero} {
		err := ledger.Reserve(ctx, p.ID, dec("1"), nil)
		if !errors.Is(err, domain.ErrInvalidConversion) {
			t.Errorf("%s: expected ErrInvalidConversion, got %v", p.Name, err)
		}
	}
	if _, err := ledger.Restock(ctx, derived.ID, dec("1")); !errors.Is(err, domain.ErrInvalidConversion) {
		t.Errorf("expected restock of derived product to fail, got %v", err)
	}
}

func TestUnknownProduct(t *testing.T) {
	db := dbtest.Open(t)
	err := NewLedger(db).Reserve(context.Background(), 42, dec("1"), nil)
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestRestockAndMovements(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	p := seedProduct(t, db, "Water", "1", "0", nil, "1")
	ledger := NewLedger(db)

	updated, err := ledger.Restock(ctx, p.ID, dec("11.5"))
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if !updated.Stock.Equal(dec("12.5")) {
		t.Errorf("expected stock 12.5, got %s", updated.Stock)
	}
	orderID := int64(7)
	if err := ledger.Reserve(ctx, p.ID, dec("2"), &orderID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	moves, err := ledger.Movements(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(moves) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(moves))
	}
	kinds := map[domain.MovementKind]bool{}
	for _, m := range moves {
		kinds[m.Kind] = true
	}
	if !kinds[domain.MovementRestock] || !kinds[domain.MovementReserve] {
		t.Errorf("expected RESTOCK and RESERVE movements, got %v", kinds)
	}
	if _, err := ledger.Restock(ctx, p.ID, dec("0")); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestAvailability(t *testing.T) {
	db := dbtest.Open(t)
	base := seedProduct(t, db, "Rice (kg)", "10", "3", nil, "1")
	seedProduct(t, db, "Rice bowl", "0", "0", base, "0.3")
	hidden := seedProduct(t, db, "Old dish", "4", "0", nil, "1")
	if err := db.Model(hidden).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	rows, err := NewLedger(db).Availability(context.Background())
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	got := map[string]string{}
	for _, r := range rows {
		got[r.Product.Name] = r.Available.String()
	}
	expected := map[string]string{"Rice (kg)": "7", "Rice bowl": "23"}
	if len(got) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, got)
	}
	for name, want := range expected {
		if got[name] != want {
			t.Errorf("%s: expected %s, got %s", name, want, got[name])
		}
	}
}
