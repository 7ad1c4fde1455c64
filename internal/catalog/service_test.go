package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/alocode/restopos/internal/dbtest"
	"github.com/alocode/restopos/internal/domain"
	"github.com/alocode/restopos/internal/orders"
	"github.com/alocode/restopos/pkg/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func TestSaveProduct(t *testing.T) {
	svc := NewService(dbtest.Open(t))
	ctx := context.Background()

	keg, err := svc.SaveProduct(ctx, ProductInput{Name: " Keg ", Price: decimal.NewFromInt(0), Stock: decimal.NewFromInt(30)})
	if err != nil {
		t.Fatalf("save base: %v", err)
	}
	if keg.Name != "Keg" || !keg.Active || !keg.ConversionFactor.Equal(decimal.NewFromInt(1)) {
		t.Errorf("unexpected base product %+v", keg)
	}
	pint, err := svc.SaveProduct(ctx, ProductInput{
		Name:             "Pint",
		Price:            decimal.RequireFromString("4.50"),
		Stock:            decimal.NewFromInt(99),
		BaseProductID:    &keg.ID,
		ConversionFactor: decimal.RequireFromString("0.5"),
	})
	if err != nil {
		t.Fatalf("save derived: %v", err)
	}
	if !pint.Stock.IsZero() || !pint.Reserved.IsZero() {
		t.Errorf("expected derived counters pinned at zero, got %s/%s", pint.Stock, pint.Reserved)
	}

	inactive := false
	updated, err := svc.SaveProduct(ctx, ProductInput{ID: keg.ID, Name: "Keg (l)", Price: decimal.NewFromInt(1), Active: &inactive})
	if err != nil {
		t.Fatalf("update base: %v", err)
	}
	if updated.Active || !updated.Stock.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected inactive base keeping its stock, got active=%v stock=%s", updated.Active, updated.Stock)
	}
	stored, err := svc.GetProduct(ctx, keg.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Active || stored.Name != "Keg (l)" {
		t.Errorf("expected stored update, got %+v", stored)
	}
}

func TestSaveProductValidation(t *testing.T) {
	svc := NewService(dbtest.Open(t))
	ctx := context.Background()
	base, err := svc.SaveProduct(ctx, ProductInput{Name: "Flour", Price: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("save base: %v", err)
	}
	derived, err := svc.SaveProduct(ctx, ProductInput{Name: "Dough", Price: decimal.NewFromInt(2),
		BaseProductID: &base.ID, ConversionFactor: decimal.NewFromInt(2)})
	if err != nil {
		t.Fatalf("save derived: %v", err)
	}
	missing := int64(4242)

	tests := []struct {
		name string
		in   ProductInput
		want error
	}{
		{"empty name", ProductInput{Name: "  ", Price: decimal.NewFromInt(1)}, domain.ErrInvalidProduct},
		{"negative price", ProductInput{Name: "X", Price: decimal.NewFromInt(-1)}, domain.ErrInvalidAmount},
		{"negative factor", ProductInput{Name: "X", BaseProductID: &base.ID, ConversionFactor: decimal.NewFromInt(-2)}, domain.ErrInvalidConversion},
		{"unknown base", ProductInput{Name: "X", BaseProductID: &missing}, domain.ErrProductNotFound},
		{"derived base", ProductInput{Name: "X", BaseProductID: &derived.ID}, domain.ErrInvalidConversion},
		{"self reference", ProductInput{ID: base.ID, Name: "Flour", BaseProductID: &base.ID}, domain.ErrInvalidConversion},
		{"base becomes derived", ProductInput{ID: base.ID, Name: "Flour", BaseProductID: &derived.ID}, domain.ErrInvalidConversion},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SaveProduct(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestRestockAndAvailability(t *testing.T) {
	svc := NewService(dbtest.Open(t))
	ctx := context.Background()
	rice, _ := svc.SaveProduct(ctx, ProductInput{Name: "Rice", Price: decimal.NewFromInt(1), Stock: decimal.NewFromInt(2)})
	bowl, _ := svc.SaveProduct(ctx, ProductInput{Name: "Rice bowl", Price: decimal.NewFromInt(5),
		BaseProductID: &rice.ID, ConversionFactor: decimal.RequireFromString("0.25")})

	if _, err := svc.Restock(ctx, rice.ID, decimal.NewFromInt(3)); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if _, err := svc.Restock(ctx, bowl.ID, decimal.NewFromInt(3)); !errors.Is(err, domain.ErrInvalidConversion) {
		t.Errorf("expected ErrInvalidConversion restocking a derived product, got %v", err)
	}
	rows, err := svc.Availability(ctx)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	got := map[int64]string{}
	for _, r := range rows {
		got[r.Product.ID] = r.Available.String()
	}
	if got[rice.ID] != "5" || got[bowl.ID] != "20" {
		t.Errorf("expected rice 5 and bowls 20, got %v", got)
	}
	moves, err := svc.Movements(ctx, rice.ID, 10)
	if err != nil || len(moves) != 1 || moves[0].Kind != domain.MovementRestock {
		t.Errorf("expected a single RESTOCK movement, got %v (%v)", moves, err)
	}

	found, err := svc.SearchProducts(ctx, "BOWL")
	if err != nil || len(found) != 1 || found[0].ID != bowl.ID {
		t.Errorf("expected search to find the bowl, got %v (%v)", found, err)
	}
	if _, err := svc.SetProductActive(ctx, bowl.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, _ := svc.ListProducts(ctx, true)
	all, _ := svc.ListProducts(ctx, false)
	if len(active) != 1 || len(all) != 2 {
		t.Errorf("expected 1 active of 2 products, got %d of %d", len(active), len(all))
	}
}

func TestTables(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	ctx := context.Background()

	one, err := svc.SaveTable(ctx, TableInput{Number: 1, Capacity: 4, Location: "Terrace"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if one.State != domain.TableAvailable {
		t.Errorf("expected new table AVAILABLE, got %s", one.State)
	}
	two, err := svc.SaveTable(ctx, TableInput{Number: 2, Capacity: 2})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	tests := []struct {
		name string
		in   TableInput
		want error
	}{
		{"zero number", TableInput{Number: 0, Capacity: 2}, domain.ErrInvalidTable},
		{"zero capacity", TableInput{Number: 5, Capacity: 0}, domain.ErrInvalidTable},
		{"duplicate", TableInput{Number: 1, Capacity: 2}, domain.ErrDuplicateTable},
		{"renumber onto another", TableInput{ID: two.ID, Number: 1, Capacity: 2}, domain.ErrDuplicateTable},
		{"unknown", TableInput{ID: 31337, Number: 8, Capacity: 2}, domain.ErrTableNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.SaveTable(ctx, tt.in); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
	if _, err := svc.SaveTable(ctx, TableInput{ID: one.ID, Number: 1, Capacity: 6}); err != nil {
		t.Errorf("expected resaving with the same number to work, got %v", err)
	}

	if _, err := svc.SetTableActive(ctx, one.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	available, _ := svc.ListAvailableTables(ctx)
	if len(available) != 1 || available[0].ID != two.ID {
		t.Errorf("expected only table 2 available, got %d tables", len(available))
	}
	if tbl, err := svc.SetTableActive(ctx, one.ID, true); err != nil || tbl.State != domain.TableAvailable {
		t.Errorf("expected reactivated table, got %v (%v)", tbl, err)
	}

	if err := db.Model(&domain.DiningTable{}).Where("id = ?", two.ID).Update("state", domain.TableOccupied).Error; err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if _, err := svc.SetTableActive(ctx, two.ID, false); !errors.Is(err, domain.ErrTableUnavailable) {
		t.Errorf("expected ErrTableUnavailable, got %v", err)
	}
	found, err := svc.SearchTables(ctx, "occupied")
	if err != nil || len(found) != 1 || found[0].ID != two.ID {
		t.Errorf("expected search by state to find table 2, got %v (%v)", found, err)
	}
	all, _ := svc.ListTables(ctx)
	if len(all) != 2 || all[0].Number != 1 {
		t.Errorf("expected 2 tables ordered by number, got %v", all)
	}
}

func TestConversionLockedWhileOrdersActive(t *testing.T) {
	db := dbtest.Open(t)
	svc := NewService(db)
	ctx := context.Background()
	now := time.Now()
	session := &domain.RegisterSession{
		ID:           common.UUIDint64(),
		BusinessDate: common.BusinessDate(now),
		OpeningFloat: decimal.NewFromInt(100),
		State:        domain.SessionOpen,
		OpenedByID:   1,
		OpenedAt:     now,
	}
	if err := db.Create(session).Error; err != nil {
		t.Fatalf("open session: %v", err)
	}
	keg, err := svc.SaveProduct(ctx, ProductInput{Name: "Keg", Price: decimal.Zero, Stock: decimal.NewFromInt(30)})
	if err != nil {
		t.Fatalf("save keg: %v", err)
	}
	cask, err := svc.SaveProduct(ctx, ProductInput{Name: "Cask", Price: decimal.Zero, Stock: decimal.NewFromInt(30)})
	if err != nil {
		t.Fatalf("save cask: %v", err)
	}
	pintInput := ProductInput{Name: "Pint", Price: decimal.NewFromInt(5), BaseProductID: &keg.ID, ConversionFactor: decimal.NewFromInt(2)}
	pint, err := svc.SaveProduct(ctx, pintInput)
	if err != nil {
		t.Fatalf("save pint: %v", err)
	}
	pintInput.ID = pint.ID

	orderSvc := orders.NewService(db)
	order, err := orderSvc.Create(ctx, orders.CreateRequest{
		Type:  domain.OrderTypeTakeout,
		Lines: []orders.LineRequest{{ProductID: pint.ID, Quantity: 3}},
	}, 1)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	expectReserved(t, svc, keg.ID, 6)

	refused := []struct {
		name   string
		mutate func(in *ProductInput)
	}{
		{"new factor", func(in *ProductInput) { in.ConversionFactor = decimal.NewFromInt(1) }},
		{"new base", func(in *ProductInput) { in.BaseProductID = &cask.ID }},
		{"base cleared", func(in *ProductInput) { in.BaseProductID = nil }},
	}
	for _, tc := range refused {
		in := pintInput
		tc.mutate(&in)
		if _, err := svc.SaveProduct(ctx, in); !errors.Is(err, domain.ErrInvalidConversion) {
			t.Errorf("%s: expected ErrInvalidConversion, got %v", tc.name, err)
		}
	}

	renamed := pintInput
	renamed.Name = "Pint (draft)"
	if _, err := svc.SaveProduct(ctx, renamed); err != nil {
		t.Fatalf("rename with same conversion: %v", err)
	}

	if _, err := orderSvc.Transition(ctx, order.ID, domain.OrderCancelled, 1); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	expectReserved(t, svc, keg.ID, 0)

	changed := pintInput
	changed.ConversionFactor = decimal.NewFromInt(1)
	if _, err := svc.SaveProduct(ctx, changed); err != nil {
		t.Fatalf("factor change after cancel: %v", err)
	}
}

func TestConvertStockedBaseRefused(t *testing.T) {
	svc := NewService(dbtest.Open(t))
	ctx := context.Background()
	keg, err := svc.SaveProduct(ctx, ProductInput{Name: "Keg", Price: decimal.Zero, Stock: decimal.NewFromInt(30)})
	if err != nil {
		t.Fatalf("save keg: %v", err)
	}
	bottle, err := svc.SaveProduct(ctx, ProductInput{Name: "Bottle", Price: decimal.NewFromInt(3), Stock: decimal.NewFromInt(30)})
	if err != nil {
		t.Fatalf("save bottle: %v", err)
	}

	_, err = svc.SaveProduct(ctx, ProductInput{
		ID:               bottle.ID,
		Name:             "Bottle",
		Price:            decimal.NewFromInt(3),
		BaseProductID:    &keg.ID,
		ConversionFactor: decimal.RequireFromString("0.5"),
	})
	if !errors.Is(err, domain.ErrInvalidConversion) {
		t.Fatalf("expected ErrInvalidConversion, got %v", err)
	}
	stored, err := svc.GetProduct(ctx, bottle.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.IsDerived() || !stored.Stock.Equal(decimal.NewFromInt(30)) {
		t.Errorf("expected bottle untouched with stock 30, got derived=%v stock=%s", stored.IsDerived(), stored.Stock)
	}
}

func expectReserved(t *testing.T, svc *Service, id int64, reserved int64) {
	t.Helper()
	p, err := svc.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if !p.Reserved.Equal(decimal.NewFromInt(reserved)) {
		t.Errorf("%s: expected reserved %d, got %s", p.Name, reserved, p.Reserved)
	}
}
